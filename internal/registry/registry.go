// Package registry maps tool names to lazily constructed tool instances.
// This is the single place new tools are added. Construction performs no
// I/O; a tool that is never called is never allocated.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/xk9labs/pagepilot/api/schemas"
	"github.com/xk9labs/pagepilot/internal/config"
	"github.com/xk9labs/pagepilot/internal/envelope"
	"github.com/xk9labs/pagepilot/internal/tools"
)

// Builder constructs a tool instance. Builders must be cheap and free of
// I/O; they run at most once, on the tool's first resolution.
type Builder func() tools.Tool

type entry struct {
	once   sync.Once
	build  Builder
	tool   tools.Tool
	schema schemas.ToolSchema
}

// Registry is a name-to-tool table with lazy singleton instantiation.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entries: make(map[string]*entry)}
}

// Register adds a tool under its schema's name. The schema is captured
// eagerly (it is static metadata); the instance is built on first Resolve.
// Registering a duplicate name panics: tool names are stable identifiers
// and collisions are programming errors.
func (r *Registry) Register(schema schemas.ToolSchema, build Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[schema.Name]; exists {
		panic(fmt.Sprintf("registry: duplicate tool name %q", schema.Name))
	}
	r.entries[schema.Name] = &entry{build: build, schema: schema}
}

// Resolve returns the singleton instance for name, constructing it on first
// request. Unknown names return an error wrapping envelope.ErrUnknownTool.
func (r *Registry) Resolve(name string) (tools.Tool, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", envelope.ErrUnknownTool, name)
	}
	e.once.Do(func() {
		e.tool = e.build()
	})
	return e.tool, nil
}

// Schema returns the registered schema for name.
func (r *Registry) Schema(name string) (schemas.ToolSchema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	if !ok {
		return schemas.ToolSchema{}, false
	}
	return e.schema, true
}

// Schemas returns all registered tool schemas sorted by name, for
// capability discovery.
func (r *Registry) Schemas() []schemas.ToolSchema {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]schemas.ToolSchema, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.schema)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Default builds the production registry with the full tool catalog.
func Default(netCfg config.NetworkConfig, logger *zap.Logger) *Registry {
	r := New()

	static := []tools.Tool{
		tools.NavigateTool{},
		tools.HistoryTool{Back: true},
		tools.HistoryTool{Back: false},
		tools.ReloadTool{},
		tools.ClickTool{},
		tools.FillTool{},
		tools.SelectTool{},
		tools.HoverTool{},
		tools.PressKeyTool{},
		tools.WaitForTool{},
		tools.EvaluateTool{},
		tools.GetTextTool{},
		tools.GetHTMLTool{},
		tools.GetTitleTool{},
		tools.GetURLTool{},
		tools.ScreenshotTool{},
		tools.PDFTool{},
		tools.ConsoleLogsTool{},
		tools.ConsoleClearTool{},
		tools.CloseSessionTool{},
	}
	for _, t := range static {
		t := t
		r.Register(t.Schema(), func() tools.Tool { return t })
	}

	// api_request owns an HTTP client; built lazily so a browser-only
	// workload never allocates it.
	r.Register((&tools.APIRequestTool{}).Schema(), func() tools.Tool {
		return tools.NewAPIRequestTool(tools.NewAPIClient(netCfg, logger))
	})

	return r
}
