package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/xk9labs/pagepilot/api/schemas"
	"github.com/xk9labs/pagepilot/internal/envelope"
)

// APIRequestTool performs an HTTP request outside the browser. It keeps its
// own cookie jar across calls, so authenticated API flows work the same way
// the shared browser session does for pages.
type APIRequestTool struct {
	client *APIClient
}

// NewAPIRequestTool wires the tool to its HTTP client.
func NewAPIRequestTool(client *APIClient) *APIRequestTool {
	return &APIRequestTool{client: client}
}

func (*APIRequestTool) Name() string       { return "api_request" }
func (*APIRequestTool) NeedsSession() bool { return false }

func (*APIRequestTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{
		Name:        "api_request",
		Description: "Perform an HTTP request (no browser involved). Cookies persist across calls. HTML responses are summarized to text.",
		InputSchema: schemas.Object(map[string]schemas.Property{
			"method": {
				Type:        schemas.TypeString,
				Description: "HTTP method.",
				Default:     "GET",
				Enum:        []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
			},
			"url":     {Type: schemas.TypeString, Description: "Absolute URL to request."},
			"headers": {Type: schemas.TypeObject, Description: "Request headers as a string-to-string object."},
			"body":    {Type: schemas.TypeString, Description: "Raw request body."},
			"timeout": schemas.TimeoutProp,
		}, "url"),
	}
}

func (t *APIRequestTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), false, args.Timeout(tc.DefaultTimeout), func(ctx context.Context) (envelope.Envelope, error) {
		target := args.String("url", "")
		parsed, err := url.Parse(target)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return envelope.Envelope{}, fmt.Errorf("%w: url must be absolute, got %q", envelope.ErrInvalidArguments, target)
		}
		method := strings.ToUpper(args.String("method", "GET"))

		resp, err := t.client.Do(ctx, method, target, args.StringMap("headers"), args.String("body", ""))
		if err != nil {
			return envelope.Envelope{}, fmt.Errorf("%s %s: %w", method, target, err)
		}

		var b strings.Builder
		fmt.Fprintf(&b, "%s %s -> %d (%s, %dms)\n", method, target, resp.Status, resp.ContentType, resp.Elapsed.Milliseconds())
		body := string(resp.Body)
		if strings.Contains(resp.ContentType, "text/html") {
			body = htmlToText(resp.Body)
		}
		b.WriteString(body)
		if resp.Truncated {
			b.WriteString("\n[response body truncated]")
		}
		return envelope.Text(b.String()), nil
	})
}
