// Package browser provides Chrome automation sessions for driving the
// Gmail web UI. Each Session owns one browser instance bound to one
// persistent profile directory and one remote-debugging port.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// ErrElementTimeout is returned when an element wait expires before its
// precondition (presence, clickability) holds.
var ErrElementTimeout = errors.New("timed out waiting for element")

// ErrSessionClosed is returned by operations on a stopped session.
var ErrSessionClosed = errors.New("browser session is not running")

// SessionConfig holds per-session browser settings.
type SessionConfig struct {
	Headless        bool
	PageLoadTimeout time.Duration
	ElementTimeout  time.Duration
	CooldownDelay   time.Duration // imposed after Stop so profile locks settle
	ScreenshotDir   string
	UserAgent       string
	WindowWidth     int
	WindowHeight    int
}

// DefaultConfig returns the fixed timeouts the automation is tuned for.
func DefaultConfig() SessionConfig {
	return SessionConfig{
		Headless:        false,
		PageLoadTimeout: 300 * time.Second,
		ElementTimeout:  40 * time.Second,
		CooldownDelay:   5 * time.Second,
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		WindowWidth:     1280,
		WindowHeight:    720,
	}
}

// Session wraps one chromedp-driven Chrome bound to a profile dir and a
// debugging port. Owned exclusively by one account automaton; not safe
// for concurrent use.
type Session struct {
	profileDir  string
	port        int
	config      SessionConfig
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
}

// NewSession prepares a session bound to profileDir and port. The browser
// is not launched until Start.
func NewSession(profileDir string, port int, cfg SessionConfig) *Session {
	return &Session{
		profileDir: profileDir,
		port:       port,
		config:     cfg,
	}
}

// Port returns the remote-debugging port assigned to this session.
func (s *Session) Port() int { return s.port }

// ProfileDir returns the persistent Chrome profile directory.
func (s *Session) ProfileDir() string { return s.profileDir }

// Start launches Chrome bound to the session's profile and port. Extra
// allocator options are appended after the defaults.
func (s *Session) Start(extra ...chromedp.ExecAllocatorOption) error {
	if s.ctx != nil {
		return fmt.Errorf("session on port %d already started", s.port)
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.UserAgent(s.config.UserAgent),
		chromedp.WindowSize(s.config.WindowWidth, s.config.WindowHeight),
		chromedp.UserDataDir(s.profileDir),
		chromedp.Flag("remote-debugging-port", strconv.Itoa(s.port)),
	}
	if s.config.Headless {
		opts = append(opts, chromedp.Headless)
	}
	opts = append(opts, extra...)

	s.allocCtx, s.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	s.ctx, s.cancel = chromedp.NewContext(s.allocCtx)

	// Run with no actions forces the browser process to launch now, so a
	// broken Chrome install fails here instead of mid-login.
	if err := chromedp.Run(s.ctx); err != nil {
		s.teardown()
		return fmt.Errorf("failed to launch browser on port %d: %w", s.port, err)
	}
	return nil
}

// Stop quits the browser and releases the automation contexts, then
// imposes a fixed cooldown so OS-level profile locks settle. Idempotent;
// a never-started or already-stopped session is a no-op.
func (s *Session) Stop() {
	if s.ctx == nil {
		return
	}
	s.teardown()
	time.Sleep(s.config.CooldownDelay)
}

func (s *Session) teardown() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	s.ctx = nil
	s.cancel = nil
	s.allocCtx = nil
	s.allocCancel = nil
}

// Running reports whether the browser is live.
func (s *Session) Running() bool { return s.ctx != nil }

// Navigate loads a URL and waits for the document body, bounded by the
// page-load timeout.
func (s *Session) Navigate(url string) error {
	if s.ctx == nil {
		return ErrSessionClosed
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.config.PageLoadTimeout)
	defer cancel()

	if err := chromedp.Run(ctx, chromedp.Navigate(url), chromedp.WaitReady("body")); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// CurrentURL returns the location of the active page.
func (s *Session) CurrentURL() (string, error) {
	if s.ctx == nil {
		return "", ErrSessionClosed
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.config.ElementTimeout)
	defer cancel()

	var url string
	if err := chromedp.Run(ctx, chromedp.Location(&url)); err != nil {
		return "", err
	}
	return url, nil
}

// FindImmediate returns whatever currently matches the selector without
// waiting. Absence is a valid, fast outcome here - this is the probe used
// for UI state checks.
func (s *Session) FindImmediate(selector string) ([]*cdp.Node, error) {
	if s.ctx == nil {
		return nil, ErrSessionClosed
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.config.ElementTimeout)
	defer cancel()

	var nodes []*cdp.Node
	err := chromedp.Run(ctx,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return nil, err
	}
	return nodes, nil
}

// ElementCount returns how many elements currently match the selector.
// Unlike FindImmediate it works purely in page JS, so it also sees nodes
// chromedp's DOM snapshot has not resolved yet.
func (s *Session) ElementCount(selector string) int {
	if s.ctx == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.config.ElementTimeout)
	defer cancel()

	var count int
	js := fmt.Sprintf(`document.querySelectorAll(%s).length`, jsString(selector))
	if err := chromedp.Run(ctx, chromedp.Evaluate(js, &count)); err != nil {
		return 0
	}
	return count
}

// FindOptions controls FindWithWait preconditions.
type FindOptions struct {
	Clickable bool // wait for visibility and enabled state, not just presence
	Multiple  bool // return all matches instead of the first
}

// FindWithWait blocks until the selector's precondition holds, bounded by
// the element-wait timeout, and returns the matching node(s). Expired
// waits surface as ErrElementTimeout.
func (s *Session) FindWithWait(selector string, opts FindOptions) ([]*cdp.Node, error) {
	if s.ctx == nil {
		return nil, ErrSessionClosed
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.config.ElementTimeout)
	defer cancel()

	actions := []chromedp.Action{}
	if opts.Clickable {
		actions = append(actions,
			chromedp.WaitVisible(selector, chromedp.ByQuery),
			chromedp.WaitEnabled(selector, chromedp.ByQuery))
	} else {
		actions = append(actions, chromedp.WaitReady(selector, chromedp.ByQuery))
	}

	var nodes []*cdp.Node
	if opts.Multiple {
		actions = append(actions, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll))
	} else {
		actions = append(actions, chromedp.Nodes(selector, &nodes, chromedp.ByQuery))
	}

	if err := chromedp.Run(ctx, actions...); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: %s", ErrElementTimeout, selector)
		}
		return nil, err
	}
	return nodes, nil
}

// PageHTML returns the full rendered document, used for DOM-state
// classification.
func (s *Session) PageHTML() (string, error) {
	if s.ctx == nil {
		return "", ErrSessionClosed
	}
	ctx, cancel := context.WithTimeout(s.ctx, s.config.ElementTimeout)
	defer cancel()

	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", err
	}
	return html, nil
}
