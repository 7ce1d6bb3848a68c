package tools

import (
	"context"
	"fmt"

	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"

	"github.com/xk9labs/pagepilot/api/schemas"
	"github.com/xk9labs/pagepilot/internal/envelope"
)

// ClickTool clicks the first element matching a selector.
type ClickTool struct{}

func (ClickTool) Name() string       { return "click" }
func (ClickTool) NeedsSession() bool { return true }

func (ClickTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{
		Name:        "click",
		Description: "Click the first visible element matching a CSS selector.",
		InputSchema: schemas.Object(map[string]schemas.Property{
			"selector": schemas.SelectorProp,
			"timeout":  schemas.TimeoutProp,
		}, "selector"),
	}
}

func (t ClickTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), true, args.Timeout(tc.DefaultTimeout), func(ctx context.Context) (envelope.Envelope, error) {
		sel := args.String("selector", "")
		if err := tc.Session.Run(ctx, chromedp.Click(sel, chromedp.ByQuery)); err != nil {
			return envelope.Envelope{}, fmt.Errorf("click %q: %w", sel, err)
		}
		return envelope.Textf("Clicked %s", sel), nil
	})
}

// FillTool clears a form field and types a value into it.
type FillTool struct{}

func (FillTool) Name() string       { return "fill" }
func (FillTool) NeedsSession() bool { return true }

func (FillTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{
		Name:        "fill",
		Description: "Clear an input or textarea and type a value into it.",
		InputSchema: schemas.Object(map[string]schemas.Property{
			"selector": schemas.SelectorProp,
			"value":    {Type: schemas.TypeString, Description: "Text to enter into the field."},
			"timeout":  schemas.TimeoutProp,
		}, "selector", "value"),
	}
}

func (t FillTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), true, args.Timeout(tc.DefaultTimeout), func(ctx context.Context) (envelope.Envelope, error) {
		sel := args.String("selector", "")
		value := args.String("value", "")
		err := tc.Session.Run(ctx,
			chromedp.Clear(sel, chromedp.ByQuery),
			chromedp.SendKeys(sel, value, chromedp.ByQuery),
		)
		if err != nil {
			return envelope.Envelope{}, fmt.Errorf("fill %q: %w", sel, err)
		}
		return envelope.Textf("Filled %s", sel), nil
	})
}

// SelectTool picks an option of a <select> element by value.
type SelectTool struct{}

func (SelectTool) Name() string       { return "select" }
func (SelectTool) NeedsSession() bool { return true }

func (SelectTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{
		Name:        "select",
		Description: "Select an option of a <select> element by its value attribute.",
		InputSchema: schemas.Object(map[string]schemas.Property{
			"selector": schemas.SelectorProp,
			"value":    {Type: schemas.TypeString, Description: "Value attribute of the option to select."},
			"timeout":  schemas.TimeoutProp,
		}, "selector", "value"),
	}
}

func (t SelectTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), true, args.Timeout(tc.DefaultTimeout), func(ctx context.Context) (envelope.Envelope, error) {
		sel := args.String("selector", "")
		value := args.String("value", "")
		if err := tc.Session.Run(ctx, chromedp.SetValue(sel, value, chromedp.ByQuery)); err != nil {
			return envelope.Envelope{}, fmt.Errorf("select %q on %q: %w", value, sel, err)
		}
		return envelope.Textf("Selected %s on %s", value, sel), nil
	})
}

// HoverTool moves the pointer over an element, triggering hover styles and
// listeners.
type HoverTool struct{}

func (HoverTool) Name() string       { return "hover" }
func (HoverTool) NeedsSession() bool { return true }

func (HoverTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{
		Name:        "hover",
		Description: "Hover over the first element matching a CSS selector.",
		InputSchema: schemas.Object(map[string]schemas.Property{
			"selector": schemas.SelectorProp,
			"timeout":  schemas.TimeoutProp,
		}, "selector"),
	}
}

func (t HoverTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), true, args.Timeout(tc.DefaultTimeout), func(ctx context.Context) (envelope.Envelope, error) {
		sel := args.String("selector", "")
		// chromedp has no dedicated hover action; dispatch a mouseover via JS
		// after ensuring the element is visible.
		script := fmt.Sprintf(
			`(() => { const el = document.querySelector(%q); if (!el) return false;
			  el.scrollIntoView({block: 'center'});
			  el.dispatchEvent(new MouseEvent('mouseover', {bubbles: true}));
			  return true; })()`, sel)
		var ok bool
		if err := tc.Session.Run(ctx, chromedp.Evaluate(script, &ok)); err != nil {
			return envelope.Envelope{}, fmt.Errorf("hover %q: %w", sel, err)
		}
		if !ok {
			return envelope.Envelope{}, fmt.Errorf("hover %q: element not found", sel)
		}
		return envelope.Textf("Hovered over %s", sel), nil
	})
}

// PressKeyTool sends a key (optionally to a focused element).
type PressKeyTool struct{}

func (PressKeyTool) Name() string       { return "press_key" }
func (PressKeyTool) NeedsSession() bool { return true }

func (PressKeyTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{
		Name:        "press_key",
		Description: "Press a key, e.g. Enter, Tab, Escape, or a printable character. Optionally focus a selector first.",
		InputSchema: schemas.Object(map[string]schemas.Property{
			"key":      {Type: schemas.TypeString, Description: "Key to press (Enter, Tab, Escape, ArrowDown, or a character)."},
			"selector": schemas.SelectorProp,
			"timeout":  schemas.TimeoutProp,
		}, "key"),
	}
}

// namedKeys maps the friendly key names agents use to CDP key runes.
var namedKeys = map[string]string{
	"Enter":      kb.Enter,
	"Tab":        kb.Tab,
	"Escape":     kb.Escape,
	"Backspace":  kb.Backspace,
	"Delete":     kb.Delete,
	"ArrowUp":    kb.ArrowUp,
	"ArrowDown":  kb.ArrowDown,
	"ArrowLeft":  kb.ArrowLeft,
	"ArrowRight": kb.ArrowRight,
	"Home":       kb.Home,
	"End":        kb.End,
	"PageUp":     kb.PageUp,
	"PageDown":   kb.PageDown,
}

func (t PressKeyTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), true, args.Timeout(tc.DefaultTimeout), func(ctx context.Context) (envelope.Envelope, error) {
		key := args.String("key", "")
		keys := key
		if mapped, ok := namedKeys[key]; ok {
			keys = mapped
		}

		actions := make([]chromedp.Action, 0, 2)
		if sel := args.String("selector", ""); sel != "" {
			actions = append(actions, chromedp.Focus(sel, chromedp.ByQuery))
		}
		actions = append(actions, chromedp.KeyEvent(keys))

		if err := tc.Session.Run(ctx, actions...); err != nil {
			return envelope.Envelope{}, fmt.Errorf("press key %q: %w", key, err)
		}
		return envelope.Textf("Pressed %s", key), nil
	})
}

// WaitForTool blocks until a selector becomes visible.
type WaitForTool struct{}

func (WaitForTool) Name() string       { return "wait_for" }
func (WaitForTool) NeedsSession() bool { return true }

func (WaitForTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{
		Name:        "wait_for",
		Description: "Wait until the first element matching a CSS selector is visible.",
		InputSchema: schemas.Object(map[string]schemas.Property{
			"selector": schemas.SelectorProp,
			"timeout":  schemas.TimeoutProp,
		}, "selector"),
	}
}

func (t WaitForTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), true, args.Timeout(tc.DefaultTimeout), func(ctx context.Context) (envelope.Envelope, error) {
		sel := args.String("selector", "")
		if err := tc.Session.Run(ctx, chromedp.WaitVisible(sel, chromedp.ByQuery)); err != nil {
			return envelope.Envelope{}, fmt.Errorf("wait for %q: %w", sel, err)
		}
		return envelope.Textf("Element %s is visible", sel), nil
	})
}
