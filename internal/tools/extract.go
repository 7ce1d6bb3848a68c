package tools

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/xk9labs/pagepilot/api/schemas"
	"github.com/xk9labs/pagepilot/internal/envelope"
)

// GetTextTool extracts the rendered text of an element, or of the whole
// document body when no selector is given.
type GetTextTool struct{}

func (GetTextTool) Name() string       { return "get_text" }
func (GetTextTool) NeedsSession() bool { return true }

func (GetTextTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{
		Name:        "get_text",
		Description: "Extract the visible text of an element, or of the whole page when no selector is given.",
		InputSchema: schemas.Object(map[string]schemas.Property{
			"selector": schemas.SelectorProp,
			"timeout":  schemas.TimeoutProp,
		}),
	}
}

func (t GetTextTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), true, args.Timeout(tc.DefaultTimeout), func(ctx context.Context) (envelope.Envelope, error) {
		sel := args.String("selector", "body")
		var text string
		if err := tc.Session.Run(ctx, chromedp.Text(sel, &text, chromedp.ByQuery)); err != nil {
			return envelope.Envelope{}, fmt.Errorf("get text of %q: %w", sel, err)
		}
		return envelope.Text(text), nil
	})
}

// GetHTMLTool extracts the outer HTML of an element or of the document root.
type GetHTMLTool struct{}

func (GetHTMLTool) Name() string       { return "get_html" }
func (GetHTMLTool) NeedsSession() bool { return true }

func (GetHTMLTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{
		Name:        "get_html",
		Description: "Extract the outer HTML of an element, or of the document when no selector is given.",
		InputSchema: schemas.Object(map[string]schemas.Property{
			"selector": schemas.SelectorProp,
			"timeout":  schemas.TimeoutProp,
		}),
	}
}

func (t GetHTMLTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), true, args.Timeout(tc.DefaultTimeout), func(ctx context.Context) (envelope.Envelope, error) {
		sel := args.String("selector", "html")
		var html string
		if err := tc.Session.Run(ctx, chromedp.OuterHTML(sel, &html, chromedp.ByQuery)); err != nil {
			return envelope.Envelope{}, fmt.Errorf("get html of %q: %w", sel, err)
		}
		return envelope.Text(html), nil
	})
}

// GetTitleTool reads the document title.
type GetTitleTool struct{}

func (GetTitleTool) Name() string       { return "get_title" }
func (GetTitleTool) NeedsSession() bool { return true }

func (GetTitleTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{
		Name:        "get_title",
		Description: "Read the current document title.",
		InputSchema: schemas.Object(map[string]schemas.Property{
			"timeout": schemas.TimeoutProp,
		}),
	}
}

func (t GetTitleTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), true, args.Timeout(tc.DefaultTimeout), func(ctx context.Context) (envelope.Envelope, error) {
		var title string
		if err := tc.Session.Run(ctx, chromedp.Title(&title)); err != nil {
			return envelope.Envelope{}, fmt.Errorf("get title: %w", err)
		}
		return envelope.Text(title), nil
	})
}

// GetURLTool reads the current page location.
type GetURLTool struct{}

func (GetURLTool) Name() string       { return "get_url" }
func (GetURLTool) NeedsSession() bool { return true }

func (GetURLTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{
		Name:        "get_url",
		Description: "Read the current page URL.",
		InputSchema: schemas.Object(map[string]schemas.Property{
			"timeout": schemas.TimeoutProp,
		}),
	}
}

func (t GetURLTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), true, args.Timeout(tc.DefaultTimeout), func(ctx context.Context) (envelope.Envelope, error) {
		var loc string
		if err := tc.Session.Run(ctx, chromedp.Location(&loc)); err != nil {
			return envelope.Envelope{}, fmt.Errorf("get url: %w", err)
		}
		return envelope.Text(loc), nil
	})
}

// ScreenshotTool captures the viewport or the full page as PNG.
type ScreenshotTool struct{}

func (ScreenshotTool) Name() string       { return "screenshot" }
func (ScreenshotTool) NeedsSession() bool { return true }

func (ScreenshotTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{
		Name:        "screenshot",
		Description: "Capture a PNG screenshot of the viewport, or the full page with full_page=true.",
		InputSchema: schemas.Object(map[string]schemas.Property{
			"full_page": {Type: schemas.TypeBoolean, Description: "Capture the entire scrollable page.", Default: false},
			"timeout":   schemas.TimeoutProp,
		}),
	}
}

func (t ScreenshotTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), true, args.Timeout(tc.DefaultTimeout), func(ctx context.Context) (envelope.Envelope, error) {
		var buf []byte
		action := chromedp.CaptureScreenshot(&buf)
		if args.Bool("full_page", false) {
			action = chromedp.FullScreenshot(&buf, 90)
		}
		if err := tc.Session.Run(ctx, action); err != nil {
			return envelope.Envelope{}, fmt.Errorf("screenshot: %w", err)
		}
		return envelope.Binary("Screenshot captured", "image/png", buf), nil
	})
}

// PDFTool prints the current page to PDF.
type PDFTool struct{}

func (PDFTool) Name() string       { return "pdf" }
func (PDFTool) NeedsSession() bool { return true }

func (PDFTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{
		Name:        "pdf",
		Description: "Print the current page to a PDF document.",
		InputSchema: schemas.Object(map[string]schemas.Property{
			"timeout": schemas.TimeoutProp,
		}),
	}
}

func (t PDFTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), true, args.Timeout(tc.DefaultTimeout), func(ctx context.Context) (envelope.Envelope, error) {
		var buf []byte
		err := tc.Session.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			return err
		}))
		if err != nil {
			return envelope.Envelope{}, fmt.Errorf("pdf: %w", err)
		}
		return envelope.Binary("PDF generated", "application/pdf", buf), nil
	})
}
