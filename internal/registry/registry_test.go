package registry_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xk9labs/pagepilot/api/schemas"
	"github.com/xk9labs/pagepilot/internal/config"
	"github.com/xk9labs/pagepilot/internal/envelope"
	"github.com/xk9labs/pagepilot/internal/registry"
	"github.com/xk9labs/pagepilot/internal/tools"
)

type countingTool struct{ name string }

func (t countingTool) Name() string       { return t.name }
func (t countingTool) NeedsSession() bool { return false }
func (t countingTool) Schema() schemas.ToolSchema {
	return schemas.ToolSchema{Name: t.name, InputSchema: schemas.Object(nil)}
}
func (t countingTool) Execute(ctx context.Context, args tools.Args, tc *tools.Context) envelope.Envelope {
	return envelope.Text("done")
}

func TestResolveIsLazyAndOnceOnly(t *testing.T) {
	r := registry.New()
	var builds int32
	r.Register(schemas.ToolSchema{Name: "demo"}, func() tools.Tool {
		atomic.AddInt32(&builds, 1)
		return countingTool{name: "demo"}
	})

	assert.Zero(t, atomic.LoadInt32(&builds), "registration must not construct the tool")

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tool, err := r.Resolve("demo")
			require.NoError(t, err)
			assert.Equal(t, "demo", tool.Name())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&builds), "instance must be constructed exactly once")
}

func TestResolveUnknownName(t *testing.T) {
	r := registry.New()
	_, err := r.Resolve("playwright_teleport")
	require.Error(t, err)
	assert.ErrorIs(t, err, envelope.ErrUnknownTool)
}

func TestRegisterDuplicatePanics(t *testing.T) {
	r := registry.New()
	r.Register(schemas.ToolSchema{Name: "dup"}, func() tools.Tool { return countingTool{name: "dup"} })
	assert.Panics(t, func() {
		r.Register(schemas.ToolSchema{Name: "dup"}, func() tools.Tool { return countingTool{name: "dup"} })
	})
}

func TestSchemasAreSortedAndComplete(t *testing.T) {
	netCfg := config.NetworkConfig{
		DefaultTimeout: time.Second,
		RateLimitRPS:   10,
		RateLimitBurst: 5,
		MaxBodyBytes:   1024,
	}
	r := registry.Default(netCfg, zap.NewNop())

	all := r.Schemas()
	require.NotEmpty(t, all)
	names := make([]string, len(all))
	for i, s := range all {
		names[i] = s.Name
	}
	assert.IsNonDecreasing(t, names)

	// The catalog must cover the core capability groups.
	for _, expected := range []string{
		"navigate", "click", "fill", "evaluate", "screenshot",
		"api_request", "console_logs", "close_session",
	} {
		assert.Contains(t, names, expected)
	}

	// Every schema's tool resolves and agrees on its own name.
	for _, s := range all {
		tool, err := r.Resolve(s.Name)
		require.NoError(t, err)
		assert.Equal(t, s.Name, tool.Name())
	}
}

func TestNavigateSchemaDeclaresRequiredURL(t *testing.T) {
	r := registry.Default(config.NetworkConfig{
		DefaultTimeout: time.Second, RateLimitRPS: 10, RateLimitBurst: 5, MaxBodyBytes: 1024,
	}, zap.NewNop())

	schema, ok := r.Schema("navigate")
	require.True(t, ok)
	assert.Contains(t, schema.InputSchema.Required, "url")
	assert.Equal(t, schemas.TypeString, schema.InputSchema.Properties["url"].Type)
}
