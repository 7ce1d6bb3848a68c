package tools

import (
	"context"
	"fmt"
	"net/url"

	"github.com/chromedp/chromedp"

	"github.com/xk9labs/pagepilot/api/schemas"
	"github.com/xk9labs/pagepilot/internal/envelope"
)

// NavigateTool drives the page to a URL and waits for the load to settle.
type NavigateTool struct{}

func (NavigateTool) Name() string       { return "navigate" }
func (NavigateTool) NeedsSession() bool { return true }

func (NavigateTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{
		Name:        "navigate",
		Description: "Navigate the browser session to a URL and wait for the page load.",
		InputSchema: schemas.Object(map[string]schemas.Property{
			"url":      {Type: schemas.TypeString, Description: "Absolute URL to navigate to."},
			"timeout":  schemas.TimeoutProp,
			"headless": schemas.HeadlessProp,
		}, "url"),
	}
}

func (t NavigateTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), true, args.Timeout(tc.NavigationTimeout), func(ctx context.Context) (envelope.Envelope, error) {
		target := args.String("url", "")
		parsed, err := url.Parse(target)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return envelope.Envelope{}, fmt.Errorf("%w: url must be absolute, got %q", envelope.ErrInvalidArguments, target)
		}
		if err := tc.Session.Run(ctx, chromedp.Navigate(target)); err != nil {
			return envelope.Envelope{}, fmt.Errorf("navigate to %s: %w", target, err)
		}
		return envelope.Textf("Navigated to %s", target), nil
	})
}

// HistoryTool moves through the tab's navigation history.
type HistoryTool struct {
	// Back selects direction: true for go_back, false for go_forward.
	Back bool
}

func (t HistoryTool) Name() string {
	if t.Back {
		return "go_back"
	}
	return "go_forward"
}

func (HistoryTool) NeedsSession() bool { return true }

func (t HistoryTool) Schema() schemas.ToolSchema {
	dir := "forward"
	if t.Back {
		dir = "back"
	}
	return schemas.ToolSchema{
		Name:        t.Name(),
		Description: fmt.Sprintf("Navigate %s in the session's history.", dir),
		InputSchema: schemas.Object(map[string]schemas.Property{
			"timeout": schemas.TimeoutProp,
		}),
	}
}

func (t HistoryTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), true, args.Timeout(tc.NavigationTimeout), func(ctx context.Context) (envelope.Envelope, error) {
		action := chromedp.NavigateForward()
		if t.Back {
			action = chromedp.NavigateBack()
		}
		if err := tc.Session.Run(ctx, action); err != nil {
			return envelope.Envelope{}, fmt.Errorf("%s: %w", t.Name(), err)
		}
		var current string
		if err := tc.Session.Run(ctx, chromedp.Location(&current)); err != nil {
			return envelope.Envelope{}, fmt.Errorf("%s: read location: %w", t.Name(), err)
		}
		return envelope.Textf("Now at %s", current), nil
	})
}

// ReloadTool reloads the current page.
type ReloadTool struct{}

func (ReloadTool) Name() string       { return "reload" }
func (ReloadTool) NeedsSession() bool { return true }

func (ReloadTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{
		Name:        "reload",
		Description: "Reload the current page.",
		InputSchema: schemas.Object(map[string]schemas.Property{
			"timeout": schemas.TimeoutProp,
		}),
	}
}

func (t ReloadTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), true, args.Timeout(tc.NavigationTimeout), func(ctx context.Context) (envelope.Envelope, error) {
		if err := tc.Session.Run(ctx, chromedp.Reload()); err != nil {
			return envelope.Envelope{}, fmt.Errorf("reload: %w", err)
		}
		return envelope.Text("Page reloaded"), nil
	})
}
