package session

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/xk9labs/pagepilot/internal/diagnostics"
	"github.com/xk9labs/pagepilot/internal/envelope"
)

// LaunchFunc creates a new session. The default is the chromedp launcher;
// tests substitute a fake driver.
type LaunchFunc func(ctx context.Context, settings Settings) (*Session, error)

// Manager enforces the at-most-one-live-session invariant. Acquisition is
// lazy: no browser is launched until a session-bound tool call arrives.
type Manager struct {
	logger *zap.Logger
	diags  *diagnostics.Buffer
	launch LaunchFunc

	mu      sync.Mutex
	current *Session

	// group collapses concurrent launches: racing acquirers observe the
	// result of a single launch instead of starting their own.
	group singleflight.Group

	// callMu serializes session-bound tool calls so two calls cannot
	// interleave navigation and extraction against the same tab.
	callMu sync.Mutex
}

// NewManager creates a session manager using the given launcher. Pass
// ChromedpLauncher(diags, logger) for the real driver.
func NewManager(launch LaunchFunc, diags *diagnostics.Buffer, logger *zap.Logger) *Manager {
	return &Manager{
		logger: logger.Named("session_manager"),
		diags:  diags,
		launch: launch,
	}
}

// Acquire returns the current session when it is alive and compatible with
// the requested settings; otherwise it discards any stale session and
// launches a fresh one. Concurrent acquirers share a single launch. When
// racing calls request incompatible settings, the first launch wins and the
// loser is served that session; it relaunches on its next call.
func (m *Manager) Acquire(ctx context.Context, settings Settings) (*Session, error) {
	if s := m.usable(settings); s != nil {
		return s, nil
	}

	v, err, _ := m.group.Do("launch", func() (any, error) {
		// Re-check inside the flight: a racing caller may have installed a
		// usable session while this one waited.
		if s := m.usable(settings); s != nil {
			return s, nil
		}

		m.mu.Lock()
		stale := m.current
		m.current = nil
		m.mu.Unlock()
		if stale != nil {
			m.discard(stale)
		}

		m.logger.Info("Launching browser session.",
			zap.Bool("headless", settings.Headless),
			zap.Int("viewport_width", settings.ViewportWidth),
			zap.Int("viewport_height", settings.ViewportHeight))

		s, err := m.launch(ctx, settings)
		if err != nil {
			// Nothing is installed on failure; the next call retries.
			return nil, fmt.Errorf("%w: %v", envelope.ErrSessionLaunch, err)
		}

		m.mu.Lock()
		m.current = s
		m.mu.Unlock()

		m.diags.Recordf(diagnostics.SourceSession, "session %s launched", s.ID())
		m.logger.Info("Browser session ready.", zap.String("session_id", s.ID()))
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Session), nil
}

// usable returns the current session if it is alive and compatible, nil
// otherwise.
func (m *Manager) usable(settings Settings) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current != nil && m.current.Alive() && m.current.Settings().Compatible(settings) {
		return m.current
	}
	return nil
}

// Current returns the installed session, alive or not, or nil.
func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Reset unconditionally discards the current session reference and clears
// the diagnostics buffer. The underlying close is best-effort: close faults
// are logged and swallowed so they never mask the failure that triggered
// the reset. The next session-bound call launches fresh.
func (m *Manager) Reset() {
	m.mu.Lock()
	stale := m.current
	m.current = nil
	m.mu.Unlock()

	if stale != nil {
		m.discard(stale)
		m.logger.Info("Session reset.", zap.String("session_id", stale.ID()))
	}
	m.diags.Clear()
}

// Lock serializes session-mutating tool calls. The dispatcher holds it for
// the acquisition+use critical section of every session-bound call.
func (m *Manager) Lock() { m.callMu.Lock() }

// Unlock releases the session call lock.
func (m *Manager) Unlock() { m.callMu.Unlock() }

// Shutdown closes any live session. Called once at process exit.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	stale := m.current
	m.current = nil
	m.mu.Unlock()
	if stale != nil {
		m.discard(stale)
	}
	m.logger.Info("Session manager shut down.")
}

func (m *Manager) discard(s *Session) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("Panic while closing stale session.", zap.Any("panic", r))
		}
	}()
	s.Close()
}
