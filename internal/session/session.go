// Package session owns the lifecycle of the single shared browser session.
// The Manager creates it lazily on first use, probes liveness before
// trusting it, relaunches it when it has died or the requested settings are
// incompatible, and tears it down on reset. At most one live session exists
// at any time.
package session

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xk9labs/pagepilot/internal/envelope"
)

// Session is one live browser generation: an allocator (browser process)
// plus a single tab context that all tool calls run against.
type Session struct {
	id       string
	settings Settings
	logger   *zap.Logger

	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc

	closed    atomic.Bool
	closeOnce sync.Once
}

// New wires an already-created allocator/tab context pair into a Session.
// LaunchFunc implementations call this; the chromedp launcher is the
// production caller, fakes pass plain cancelable contexts.
func New(settings Settings, tabCtx context.Context, tabCancel, allocCancel context.CancelFunc, logger *zap.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		id:          id,
		settings:    settings,
		logger:      logger.With(zap.String("session_id", id)),
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
	}
}

// ID returns the session generation identifier.
func (s *Session) ID() string { return s.id }

// Settings returns the configuration the session was launched with.
func (s *Session) Settings() Settings { return s.settings }

// Alive is the cheap liveness probe used before trusting a previously
// acquired session. It is false once the tab context has died (browser
// crash, process exit) or Close has run.
func (s *Session) Alive() bool {
	return !s.closed.Load() && s.tabCtx.Err() == nil
}

// Run executes chromedp actions against the session's tab, honoring the
// caller's context for cancellation and deadline. A deadline expiry
// surfaces as context.DeadlineExceeded so the safe-execution wrapper
// classifies it as a timeout; the session itself is left installed and is
// re-probed on next acquisition.
func (s *Session) Run(ctx context.Context, actions ...chromedp.Action) error {
	if !s.Alive() {
		return envelope.ErrSessionUnavailable
	}

	// chromedp actions must run on a context derived from the tab; mirror
	// the caller's cancellation onto it.
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			// The caller's deadline or cancellation won the race.
			return ctxErr
		}
		if s.tabCtx.Err() != nil {
			return envelope.ErrSessionUnavailable
		}
	}
	return err
}

// Close tears the session down: tab first, then the browser process. Safe
// to call more than once; errors from the driver are not surfaced because
// close is always best-effort.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.logger.Debug("Closing session.")
		if s.tabCancel != nil {
			s.tabCancel()
		}
		if s.allocCancel != nil {
			s.allocCancel()
		}
	})
}
