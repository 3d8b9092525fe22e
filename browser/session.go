// Package browser owns the lifecycle of disposable automated browser
// instances. Every session carries a hard wall-clock budget; when it elapses
// the underlying process is terminated regardless of in-flight work.
package browser

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	pw "github.com/playwright-community/playwright-go"

	"treasuryflow/playbook"
)

var (
	// ErrLaunch signals that the browser process or context could not start.
	ErrLaunch = errors.New("browser: session launch failed")
	// ErrDeadline signals that the session budget elapsed.
	ErrDeadline = errors.New("browser: session budget exceeded")
)

// Fixed mobile profile so responsive sites render the same layout on every
// run.
const (
	viewportWidth  = 390
	viewportHeight = 844
	mobileUA       = "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1"
)

// instance abstracts one launched browser stack so tests can substitute a
// fake without a real chromium.
type instance interface {
	Page() playbook.Page
	Close() error
}

// Manager produces exactly one ready-to-use page per Acquire call. No
// pooling: each session is exclusively owned by one execution and disposed
// with it.
type Manager struct {
	budget  time.Duration
	headful bool
	start   func() (instance, error)
}

// NewManager creates a session manager with the given wall-clock budget.
// Headful mode exists only to make local debugging visible.
func NewManager(budget time.Duration, headful bool) *Manager {
	m := &Manager{budget: budget, headful: headful}
	m.start = m.startChromium
	return m
}

// Acquire launches an isolated browser instance, opens one page, and arms
// the budget timer. Launch failures are reported synchronously; no retry.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	inst, err := m.start()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLaunch, err)
	}

	sctx, cancel := context.WithTimeout(ctx, m.budget)
	s := &Session{
		inst:   inst,
		ctx:    sctx,
		cancel: cancel,
	}
	s.timer = time.AfterFunc(m.budget, func() {
		s.timedOut.Store(true)
		s.close()
	})
	return s, nil
}

// Session is one live browser session. Its context expires together with
// the budget timer so in-flight steps and the force-close are never racily
// inconsistent.
type Session struct {
	inst     instance
	ctx      context.Context
	cancel   context.CancelFunc
	timer    *time.Timer
	once     sync.Once
	timedOut atomic.Bool
}

// Page returns the session's single page.
func (s *Session) Page() playbook.Page {
	return s.inst.Page()
}

// Context carries the session deadline; automation steps run under it.
func (s *Session) Context() context.Context {
	return s.ctx
}

// TimedOut reports whether the budget timer force-closed the session.
func (s *Session) TimedOut() bool {
	return s.timedOut.Load()
}

// Release terminates the underlying process and cancels the budget timer.
// It is idempotent: a second call, or a call after the timer already fired,
// is a no-op.
func (s *Session) Release() {
	s.timer.Stop()
	s.close()
}

func (s *Session) close() {
	s.once.Do(func() {
		s.cancel()
		_ = s.inst.Close()
	})
}

// chromium is the playwright-backed instance.
type chromium struct {
	runner  *pw.Playwright
	browser pw.Browser
	page    pw.Page
}

func (m *Manager) startChromium() (instance, error) {
	runner, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("start driver: %w", err)
	}

	browser, err := runner.Chromium.Launch(pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(!m.headful),
	})
	if err != nil {
		_ = runner.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	bctx, err := browser.NewContext(pw.BrowserNewContextOptions{
		Viewport:  &pw.Size{Width: viewportWidth, Height: viewportHeight},
		UserAgent: pw.String(mobileUA),
		IsMobile:  pw.Bool(true),
	})
	if err != nil {
		_ = browser.Close()
		_ = runner.Stop()
		return nil, fmt.Errorf("new context: %w", err)
	}

	page, err := bctx.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = runner.Stop()
		return nil, fmt.Errorf("new page: %w", err)
	}

	return &chromium{runner: runner, browser: browser, page: page}, nil
}

func (c *chromium) Page() playbook.Page {
	return &pwPage{page: c.page}
}

func (c *chromium) Close() error {
	err := c.browser.Close()
	if stopErr := c.runner.Stop(); err == nil {
		err = stopErr
	}
	return err
}
