// Package dispatch routes incoming tool-call requests to their tool
// implementation. It is a pure request/response state machine: every call
// terminates in exactly one Result Envelope, whatever happens in between —
// unknown name, invalid arguments, a failed session launch, a tool fault, or
// a panic.
package dispatch

import (
	"context"
	"encoding/json"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xk9labs/pagepilot/api/schemas"
	"github.com/xk9labs/pagepilot/internal/config"
	"github.com/xk9labs/pagepilot/internal/diagnostics"
	"github.com/xk9labs/pagepilot/internal/envelope"
	"github.com/xk9labs/pagepilot/internal/registry"
	"github.com/xk9labs/pagepilot/internal/session"
	"github.com/xk9labs/pagepilot/internal/tools"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Request is the in-memory shape the transport layer hands over: a tool name
// and its raw JSON arguments. One Request per invocation.
type Request struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Dispatcher wires the registry, the session manager, and the diagnostics
// buffer into the engine's single entry point.
type Dispatcher struct {
	reg      *registry.Registry
	sessions *session.Manager
	diags    *diagnostics.Buffer
	cfg      *config.Config
	logger   *zap.Logger
}

// New creates a dispatcher.
func New(reg *registry.Registry, sessions *session.Manager, diags *diagnostics.Buffer, cfg *config.Config, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		reg:      reg,
		sessions: sessions,
		diags:    diags,
		cfg:      cfg,
		logger:   logger.Named("dispatcher"),
	}
}

// Handle resolves, validates, and executes one tool call. It never panics
// and never returns without an envelope.
func (d *Dispatcher) Handle(ctx context.Context, req Request) (env envelope.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Dispatch panicked.", zap.String("tool", req.Name), zap.Any("panic", r))
			env = envelope.Errorf(envelope.KindUnexpectedFault, "dispatch of %s panicked: %v", req.Name, r)
		}
	}()

	log := d.logger.With(zap.String("tool", req.Name))

	tool, err := d.reg.Resolve(req.Name)
	if err != nil {
		log.Warn("Unknown tool requested.")
		return envelope.Errorf(envelope.KindUnknownTool, "no tool named %q", req.Name)
	}

	args, err := decodeArgs(req.Arguments)
	if err != nil {
		return envelope.Errorf(envelope.KindInvalidArguments, "arguments must be a JSON object: %v", err)
	}
	if err := validateArgs(tool.Schema().InputSchema, args); err != nil {
		log.Debug("Argument validation failed.", zap.Error(err))
		return envelope.Errorf(envelope.KindInvalidArguments, "%v", err)
	}

	tc := &tools.Context{
		Sessions:          d.sessions,
		Diags:             d.diags,
		Log:               log,
		DefaultTimeout:    d.cfg.Network.DefaultTimeout,
		NavigationTimeout: d.cfg.Network.NavigationTimeout,
		ClearOnRead:       d.cfg.Diagnostics.ClearOnRead,
	}

	if tool.NeedsSession() {
		// Acquisition and use form one critical section per call: two
		// session-mutating calls cannot interleave against the same tab.
		d.sessions.Lock()
		defer d.sessions.Unlock()

		settings := d.settingsFor(args)
		s, err := d.sessions.Acquire(ctx, settings)
		if err != nil {
			log.Error("Session acquisition failed.", zap.Error(err))
			return envelope.Errorf(envelope.KindSessionLaunchFailed, "could not launch browser session: %v", err)
		}
		tc.Session = s
	}

	log.Debug("Executing tool.")
	return tool.Execute(ctx, args, tc)
}

// Schemas exposes the registry's catalog for capability discovery.
func (d *Dispatcher) Schemas() []schemas.ToolSchema {
	return d.reg.Schemas()
}

// settingsFor merges recognized per-call session overrides over the process
// defaults. Only keys present in the call override; everything else keeps
// its configured value.
func (d *Dispatcher) settingsFor(args tools.Args) session.Settings {
	settings := session.SettingsFromConfig(d.cfg.Browser)
	if args.Has("headless") {
		settings.Headless = args.Bool("headless", settings.Headless)
	}
	if args.Has("user_agent") {
		settings.UserAgent = args.String("user_agent", settings.UserAgent)
	}
	if args.Has("viewport_width") {
		settings.ViewportWidth = args.Int("viewport_width", settings.ViewportWidth)
	}
	if args.Has("viewport_height") {
		settings.ViewportHeight = args.Int("viewport_height", settings.ViewportHeight)
	}
	if args.Has("proxy") {
		settings.ProxyURL = args.String("proxy", settings.ProxyURL)
	}
	return settings
}

// decodeArgs parses the raw argument JSON. Absent or null arguments mean an
// empty object, matching tools whose schema has no required fields.
func decodeArgs(raw json.RawMessage) (tools.Args, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return tools.Args{}, nil
	}
	var args tools.Args
	if err := jsonAPI.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = tools.Args{}
	}
	return args, nil
}
