package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xk9labs/pagepilot/internal/diagnostics"
	"github.com/xk9labs/pagepilot/internal/envelope"
	"github.com/xk9labs/pagepilot/internal/session"
)

func newTestContext() *Context {
	return &Context{
		Sessions:          session.NewManager(nil, diagnostics.NewBuffer(10), zap.NewNop()),
		Diags:             diagnostics.NewBuffer(10),
		Log:               zap.NewNop(),
		DefaultTimeout:    time.Second,
		NavigationTimeout: time.Second,
	}
}

func TestRunReturnsOperationSuccess(t *testing.T) {
	tc := newTestContext()
	env := run(context.Background(), tc, "demo", false, time.Second, func(ctx context.Context) (envelope.Envelope, error) {
		return envelope.Text("ok"), nil
	})
	assert.False(t, env.IsError)
	assert.Equal(t, "ok", envelope.Message(env))
}

func TestRunRequiresSessionWhenDeclared(t *testing.T) {
	tc := newTestContext() // Session is nil
	called := false
	env := run(context.Background(), tc, "click", true, time.Second, func(ctx context.Context) (envelope.Envelope, error) {
		called = true
		return envelope.Text("unreachable"), nil
	})

	assert.True(t, env.IsError)
	assert.Equal(t, envelope.KindSessionUnavailable, envelope.KindFromEnvelope(env))
	assert.False(t, called, "the operation must never run without a session")
}

func TestRunConvertsFaultsToEnvelopes(t *testing.T) {
	tc := newTestContext()
	env := run(context.Background(), tc, "click", false, time.Second, func(ctx context.Context) (envelope.Envelope, error) {
		return envelope.Envelope{}, errors.New("element not found: #missing")
	})

	assert.True(t, env.IsError)
	assert.Equal(t, envelope.KindOperationFailed, envelope.KindFromEnvelope(env))
	assert.Contains(t, envelope.Message(env), "element not found")
}

func TestRunConvertsTimeoutWithinBoundedMargin(t *testing.T) {
	tc := newTestContext()
	start := time.Now()
	env := run(context.Background(), tc, "slow", false, 100*time.Millisecond, func(ctx context.Context) (envelope.Envelope, error) {
		<-ctx.Done() // an operation that never completes on its own
		return envelope.Envelope{}, ctx.Err()
	})
	elapsed := time.Since(start)

	assert.True(t, env.IsError)
	assert.Equal(t, envelope.KindOperationTimeout, envelope.KindFromEnvelope(env))
	assert.Contains(t, envelope.Message(env), "100ms")
	assert.Less(t, elapsed, time.Second, "timeout must not leave the caller blocked")
}

func TestRunRecoversPanics(t *testing.T) {
	tc := newTestContext()
	env := run(context.Background(), tc, "buggy", false, time.Second, func(ctx context.Context) (envelope.Envelope, error) {
		panic("nil dereference somewhere deep")
	})

	assert.True(t, env.IsError)
	assert.Equal(t, envelope.KindUnexpectedFault, envelope.KindFromEnvelope(env))
	assert.Contains(t, envelope.Message(env), "buggy")
}

func TestRunPreservesCallerCancellation(t *testing.T) {
	tc := newTestContext()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	env := run(ctx, tc, "demo", false, time.Second, func(ctx context.Context) (envelope.Envelope, error) {
		return envelope.Envelope{}, ctx.Err()
	})
	assert.True(t, env.IsError)
	// Caller cancellation is not the tool's own timeout.
	assert.NotEqual(t, envelope.KindOperationTimeout, envelope.KindFromEnvelope(env))
}

func TestConsoleLogsSnapshotAndClear(t *testing.T) {
	tc := newTestContext()
	tc.Diags.Recordf(diagnostics.SourceConsole, "log: hello")
	tc.Diags.Recordf(diagnostics.SourceException, "TypeError: x is undefined")

	logsTool := ConsoleLogsTool{}
	env := logsTool.Execute(context.Background(), Args{}, tc)
	require.False(t, env.IsError)
	assert.Contains(t, envelope.Message(env), "log: hello")
	assert.Contains(t, envelope.Message(env), "TypeError")

	// Non-clearing policy: a second snapshot sees the same entries.
	again := logsTool.Execute(context.Background(), Args{}, tc)
	assert.Equal(t, envelope.Message(env), envelope.Message(again))

	clearTool := ConsoleClearTool{}
	clearTool.Execute(context.Background(), Args{}, tc)
	after := logsTool.Execute(context.Background(), Args{}, tc)
	assert.Contains(t, envelope.Message(after), "No diagnostics recorded")
}

func TestConsoleLogsLimit(t *testing.T) {
	tc := newTestContext()
	for i := 0; i < 5; i++ {
		tc.Diags.Recordf(diagnostics.SourceConsole, "entry-%d", i)
	}

	env := ConsoleLogsTool{}.Execute(context.Background(), Args{"limit": float64(2)}, tc)
	msg := envelope.Message(env)
	assert.NotContains(t, msg, "entry-2")
	assert.Contains(t, msg, "entry-3")
	assert.Contains(t, msg, "entry-4")
}
