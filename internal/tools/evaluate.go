package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/xk9labs/pagepilot/api/schemas"
	"github.com/xk9labs/pagepilot/internal/envelope"
)

// EvaluateTool runs a JavaScript expression in the page and returns its
// JSON-serialized result. Promises are awaited.
type EvaluateTool struct{}

func (EvaluateTool) Name() string       { return "evaluate" }
func (EvaluateTool) NeedsSession() bool { return true }

func (EvaluateTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{
		Name:        "evaluate",
		Description: "Evaluate a JavaScript expression in the page context and return its JSON result. Promises are awaited.",
		InputSchema: schemas.Object(map[string]schemas.Property{
			"script":  {Type: schemas.TypeString, Description: "JavaScript expression to evaluate."},
			"timeout": schemas.TimeoutProp,
		}, "script"),
	}
}

func (t EvaluateTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), true, args.Timeout(tc.DefaultTimeout), func(ctx context.Context) (envelope.Envelope, error) {
		script := args.String("script", "")
		var res json.RawMessage
		err := tc.Session.Run(ctx, chromedp.Evaluate(script, &res,
			func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
				return p.WithReturnByValue(true).WithAwaitPromise(true)
			}))
		if err != nil {
			return envelope.Envelope{}, fmt.Errorf("evaluate: %w", err)
		}
		if len(res) == 0 {
			res = json.RawMessage("null")
		}
		return envelope.Text(string(res)), nil
	})
}
