package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xk9labs/pagepilot/internal/diagnostics"
	"github.com/xk9labs/pagepilot/internal/envelope"
)

// fakeDriver stands in for the chromedp launcher. Each launch hands out a
// session backed by plain cancelable contexts so liveness and close
// semantics behave like the real thing without a browser.
type fakeDriver struct {
	mu       sync.Mutex
	launches int32
	delay    time.Duration
	failWith error
	sessions []*Session
}

func (d *fakeDriver) launch(ctx context.Context, settings Settings) (*Session, error) {
	atomic.AddInt32(&d.launches, 1)
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.failWith != nil {
		return nil, d.failWith
	}
	tabCtx, tabCancel := context.WithCancel(context.Background())
	s := New(settings, tabCtx, tabCancel, func() {}, zap.NewNop())
	d.mu.Lock()
	d.sessions = append(d.sessions, s)
	d.mu.Unlock()
	return s, nil
}

func (d *fakeDriver) launchCount() int32 { return atomic.LoadInt32(&d.launches) }

func defaultSettings() Settings {
	return Settings{
		Headless:       true,
		ViewportWidth:  1280,
		ViewportHeight: 720,
		LaunchTimeout:  time.Second,
	}
}

func newTestManager(d *fakeDriver) (*Manager, *diagnostics.Buffer) {
	diags := diagnostics.NewBuffer(100)
	return NewManager(d.launch, diags, zap.NewNop()), diags
}

func TestAcquireIsLazyAndReusesLiveSession(t *testing.T) {
	driver := &fakeDriver{}
	m, _ := newTestManager(driver)

	assert.Zero(t, driver.launchCount(), "no launch before first acquire")
	assert.Nil(t, m.Current())

	first, err := m.Acquire(context.Background(), defaultSettings())
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, int32(1), driver.launchCount())

	second, err := m.Acquire(context.Background(), defaultSettings())
	require.NoError(t, err)
	assert.Same(t, first, second, "live compatible session must be reused")
	assert.Equal(t, int32(1), driver.launchCount())
}

func TestConcurrentFirstAcquiresShareOneLaunch(t *testing.T) {
	driver := &fakeDriver{delay: 50 * time.Millisecond}
	m, _ := newTestManager(driver)

	const callers = 16
	results := make([]*Session, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := m.Acquire(context.Background(), defaultSettings())
			require.NoError(t, err)
			results[i] = s
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), driver.launchCount(), "racing acquirers must share one launch")
	for _, s := range results {
		assert.Same(t, results[0], s)
	}
}

func TestIncompatibleSettingsForceRelaunch(t *testing.T) {
	driver := &fakeDriver{}
	m, _ := newTestManager(driver)

	headless, err := m.Acquire(context.Background(), defaultSettings())
	require.NoError(t, err)

	headed := defaultSettings()
	headed.Headless = false
	replacement, err := m.Acquire(context.Background(), headed)
	require.NoError(t, err)

	assert.Equal(t, int32(2), driver.launchCount())
	assert.NotSame(t, headless, replacement)
	assert.False(t, headless.Alive(), "stale session must be closed on relaunch")
	assert.True(t, replacement.Alive())
}

func TestTimeoutOnlySettingsChangeDoesNotRelaunch(t *testing.T) {
	driver := &fakeDriver{}
	m, _ := newTestManager(driver)

	first, err := m.Acquire(context.Background(), defaultSettings())
	require.NoError(t, err)

	slower := defaultSettings()
	slower.LaunchTimeout = 5 * time.Minute
	second, err := m.Acquire(context.Background(), slower)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), driver.launchCount())
}

func TestDeadSessionIsRelaunchedOnNextAcquire(t *testing.T) {
	driver := &fakeDriver{}
	m, _ := newTestManager(driver)

	first, err := m.Acquire(context.Background(), defaultSettings())
	require.NoError(t, err)

	// Simulate a browser crash: the tab context dies out from under us.
	first.tabCancel()
	require.False(t, first.Alive())

	second, err := m.Acquire(context.Background(), defaultSettings())
	require.NoError(t, err)
	assert.NotSame(t, first, second)
	assert.Equal(t, int32(2), driver.launchCount())
}

func TestLaunchFailureInstallsNothing(t *testing.T) {
	driver := &fakeDriver{failWith: errors.New("chrome executable not found")}
	m, _ := newTestManager(driver)

	_, err := m.Acquire(context.Background(), defaultSettings())
	require.Error(t, err)
	assert.ErrorIs(t, err, envelope.ErrSessionLaunch)
	assert.Nil(t, m.Current(), "a failed launch must not install a half-initialized session")

	// The failure is not sticky: the next acquire retries.
	driver.failWith = nil
	s, err := m.Acquire(context.Background(), defaultSettings())
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestResetDiscardsSessionAndClearsDiagnostics(t *testing.T) {
	driver := &fakeDriver{}
	m, diags := newTestManager(driver)

	first, err := m.Acquire(context.Background(), defaultSettings())
	require.NoError(t, err)
	diags.Recordf(diagnostics.SourceConsole, "log: something")
	require.NotZero(t, diags.Len())

	m.Reset()

	assert.False(t, first.Alive())
	assert.Nil(t, m.Current())
	assert.Zero(t, diags.Len(), "reset must clear the diagnostics buffer")

	second, err := m.Acquire(context.Background(), defaultSettings())
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID(), "discarded handle must never be reused")
	assert.Equal(t, int32(2), driver.launchCount())
}

func TestResetWithoutSessionIsHarmless(t *testing.T) {
	driver := &fakeDriver{}
	m, _ := newTestManager(driver)
	m.Reset()
	assert.Zero(t, driver.launchCount())
}

func TestShutdownClosesCurrent(t *testing.T) {
	driver := &fakeDriver{}
	m, _ := newTestManager(driver)

	s, err := m.Acquire(context.Background(), defaultSettings())
	require.NoError(t, err)

	m.Shutdown()
	assert.False(t, s.Alive())
	assert.Nil(t, m.Current())
}

func TestSessionCloseIsIdempotent(t *testing.T) {
	driver := &fakeDriver{}
	m, _ := newTestManager(driver)

	s, err := m.Acquire(context.Background(), defaultSettings())
	require.NoError(t, err)

	s.Close()
	s.Close()
	assert.False(t, s.Alive())
}
