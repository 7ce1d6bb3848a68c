// Package tools contains the capability contract every tool implements and
// the concrete browser/HTTP tools. Tools are independent units satisfying
// one interface; shared behavior lives in the free-standing safe-execution
// wrapper, not a base type. Tool instances are stateless with respect to
// individual calls: anything mutable belongs to the shared session or the
// diagnostics buffer.
package tools

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/xk9labs/pagepilot/api/schemas"
	"github.com/xk9labs/pagepilot/internal/diagnostics"
	"github.com/xk9labs/pagepilot/internal/envelope"
	"github.com/xk9labs/pagepilot/internal/session"
)

// Tool is the capability contract. Execute must return exactly one envelope
// and must never let a fault escape; every implementation routes its body
// through run().
type Tool interface {
	Name() string
	Schema() schemas.ToolSchema
	// NeedsSession marks tools the dispatcher must acquire a browser
	// session for before executing.
	NeedsSession() bool
	Execute(ctx context.Context, args Args, tc *Context) envelope.Envelope
}

// Context exposes the shared state a tool executes against. Session is nil
// for tools that do not need one.
type Context struct {
	Session  *session.Session
	Sessions *session.Manager
	Diags    *diagnostics.Buffer
	Log      *zap.Logger

	// Process defaults, overridable per call via the timeout argument.
	DefaultTimeout    time.Duration
	NavigationTimeout time.Duration
	// Snapshot policy for the console_logs tool.
	ClearOnRead bool
}

// run is the safe-execution template applied by every tool body. It checks
// the session precondition, applies the per-call deadline, invokes the
// operation, and converts any fault or panic into an error envelope so
// nothing can crash the dispatcher. Exactly one envelope comes back on
// every path.
func run(
	ctx context.Context,
	tc *Context,
	name string,
	needsSession bool,
	timeout time.Duration,
	op func(ctx context.Context) (envelope.Envelope, error),
) (env envelope.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			tc.Log.Error("Tool panicked.", zap.String("tool", name), zap.Any("panic", r))
			env = envelope.Errorf(envelope.KindUnexpectedFault, "tool %s panicked: %v", name, r)
		}
	}()

	if needsSession && (tc.Session == nil || !tc.Session.Alive()) {
		return envelope.Errorf(envelope.KindSessionUnavailable,
			"no live browser session available for %s", name)
	}

	opCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	out, err := op(opCtx)
	if err != nil {
		if opCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return envelope.Errorf(envelope.KindOperationTimeout,
				"Timeout %dms exceeded during %s", timeout.Milliseconds(), name)
		}
		tc.Log.Debug("Tool operation failed.", zap.String("tool", name), zap.Error(err))
		return envelope.FromError(err)
	}
	return out
}
