package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/xk9labs/pagepilot/api/schemas"
	"github.com/xk9labs/pagepilot/internal/envelope"
)

// ConsoleLogsTool returns the diagnostics buffer contents: console output,
// page exceptions, and failed network loads recorded during the session's
// life. The snapshot is non-clearing unless diagnostics.clear_on_read is
// set; console_clear empties the buffer explicitly.
type ConsoleLogsTool struct{}

func (ConsoleLogsTool) Name() string       { return "console_logs" }
func (ConsoleLogsTool) NeedsSession() bool { return false }

func (ConsoleLogsTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{
		Name:        "console_logs",
		Description: "Read the buffered console, exception, and network-failure events from the current session.",
		InputSchema: schemas.Object(map[string]schemas.Property{
			"limit": {Type: schemas.TypeInteger, Description: "Return only the most recent N entries."},
		}),
	}
}

func (t ConsoleLogsTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), false, 0, func(ctx context.Context) (envelope.Envelope, error) {
		entries, dropped := tc.Diags.Snapshot()
		if tc.ClearOnRead {
			tc.Diags.Clear()
		}

		if limit := args.Int("limit", 0); limit > 0 && limit < len(entries) {
			entries = entries[len(entries)-limit:]
		}
		if len(entries) == 0 {
			return envelope.Text("No diagnostics recorded."), nil
		}

		var b strings.Builder
		if dropped > 0 {
			fmt.Fprintf(&b, "(%d older entries dropped)\n", dropped)
		}
		for i, e := range entries {
			if i > 0 {
				b.WriteString("\n")
			}
			b.WriteString(e.String())
		}
		return envelope.Text(b.String()), nil
	})
}

// ConsoleClearTool empties the diagnostics buffer.
type ConsoleClearTool struct{}

func (ConsoleClearTool) Name() string       { return "console_clear" }
func (ConsoleClearTool) NeedsSession() bool { return false }

func (ConsoleClearTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{
		Name:        "console_clear",
		Description: "Discard all buffered diagnostics entries.",
		InputSchema: schemas.Object(nil),
	}
}

func (t ConsoleClearTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), false, 0, func(ctx context.Context) (envelope.Envelope, error) {
		tc.Diags.Clear()
		return envelope.Text("Diagnostics cleared."), nil
	})
}

// CloseSessionTool explicitly resets the shared browser session. The next
// session-bound call launches a fresh one.
type CloseSessionTool struct{}

func (CloseSessionTool) Name() string       { return "close_session" }
func (CloseSessionTool) NeedsSession() bool { return false }

func (CloseSessionTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{
		Name:        "close_session",
		Description: "Close the browser session and clear diagnostics. The next browser tool call starts a fresh session.",
		InputSchema: schemas.Object(nil),
	}
}

func (t CloseSessionTool) Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope {
	return run(ctx, tc, t.Name(), false, 0, func(ctx context.Context) (envelope.Envelope, error) {
		tc.Sessions.Reset()
		return envelope.Text("Session closed."), nil
	})
}
