// Package browser wraps Playwright behind the small surface the sign-in
// workflow needs: navigate, fill, click, wait, read page text, close.
// The workflow owns at most one live session at a time and tears it down
// between retry attempts.
package browser

import (
	"fmt"
	"io"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// SessionOptions configures a new browser session.
type SessionOptions struct {
	// Headless controls whether the browser runs without a visible window.
	Headless bool

	// UserAgent is sent with every request when non-empty.
	UserAgent string

	// Width and Height set the viewport. Zero values fall back to defaults.
	Width  int
	Height int
}

const (
	defaultViewportWidth  = 1920
	defaultViewportHeight = 1080
)

// Launcher owns the Playwright runtime. Initialize once, then create
// sessions from it; Shutdown stops the runtime.
type Launcher struct {
	mu          sync.Mutex
	pw          *playwright.Playwright
	initialized bool
}

// NewLauncher creates an uninitialized Launcher.
func NewLauncher() *Launcher {
	return &Launcher{}
}

// Initialize installs browser binaries if needed and starts the Playwright
// driver. Driver output is discarded so it cannot interleave with the log
// stream or the TUI.
func (l *Launcher) Initialize() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.initialized {
		return nil
	}

	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	l.pw = pw
	l.initialized = true
	return nil
}

// NewSession launches a Chromium instance and returns a session on a fresh
// page. The caller must Close the session on every exit path.
func (l *Launcher) NewSession(opts SessionOptions) (*Session, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized {
		return nil, fmt.Errorf("launcher not initialized")
	}

	if opts.Width <= 0 {
		opts.Width = defaultViewportWidth
	}
	if opts.Height <= 0 {
		opts.Height = defaultViewportHeight
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		Args: []string{
			"--no-sandbox",
			"--disable-dev-shm-usage",
			"--disable-gpu",
		},
	}
	b, err := l.pw.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	contextOpts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  opts.Width,
			Height: opts.Height,
		},
	}
	if opts.UserAgent != "" {
		contextOpts.UserAgent = playwright.String(opts.UserAgent)
	}
	context, err := b.NewContext(contextOpts)
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		b.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	return &Session{
		browser: b,
		context: context,
		page:    page,
	}, nil
}

// Shutdown stops the Playwright runtime. Sessions must be closed first.
func (l *Launcher) Shutdown() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.initialized || l.pw == nil {
		return nil
	}

	if err := l.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	l.initialized = false
	return nil
}
