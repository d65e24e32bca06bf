// File: internal/browser/manager.go
package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
	"github.com/xkilldash9x/pilot-cli/internal/config"
)

const shutdownGracePeriod = 15 * time.Second

// Manager owns the browser process and mints isolated pages for sessions.
// The underlying Chrome instance is launched lazily on the first NewPage call
// so that commands which never touch a page (version, config validation) do
// not pay the launch cost.
type Manager struct {
	logger *zap.Logger
	cfg    config.BrowserConfig

	allocCtx    context.Context
	allocCancel context.CancelFunc

	pages map[string]*Page
	mu    sync.Mutex
	wg    sync.WaitGroup

	initOnce sync.Once
	initErr  error

	shutdownOnce sync.Once
}

var _ schemas.BrowserManager = (*Manager)(nil)

// NewManager creates a browser manager. The browser itself is not launched
// until the first page is requested.
func NewManager(cfg config.BrowserConfig, logger *zap.Logger) *Manager {
	return &Manager{
		logger: logger.Named("browser_manager"),
		cfg:    cfg,
		pages:  make(map[string]*Page),
	}
}

// browserFlag is one Chrome command line switch in inspectable form.
type browserFlag struct {
	name  string
	value any
}

// allocatorFlags translates the browser configuration into the ordered set of
// Chrome switches the exec allocator will receive. Kept as plain data so the
// effective flag set can be asserted without launching a browser.
func allocatorFlags(cfg config.BrowserConfig) []browserFlag {
	flags := []browserFlag{
		{"no-sandbox", true},
		{"disable-gpu", true},
		{"no-first-run", true},
		{"no-default-browser-check", true},
		{"disable-dev-shm-usage", true},
		{"enable-automation", true},
	}

	if cfg.Headless {
		flags = append(flags,
			browserFlag{"headless", true},
			browserFlag{"hide-scrollbars", true},
			browserFlag{"mute-audio", true},
		)
	}

	if cfg.IgnoreTLSErrors {
		flags = append(flags,
			browserFlag{"ignore-certificate-errors", true},
			browserFlag{"allow-insecure-localhost", true},
		)
	}

	// Additional switches from the config file's 'args' slice. Both bare
	// flags ("--disable-extensions") and key=value forms are accepted.
	for _, arg := range cfg.Args {
		arg = strings.TrimLeft(arg, "-")
		if arg == "" {
			continue
		}
		name, value, found := strings.Cut(arg, "=")
		if found {
			flags = append(flags, browserFlag{name, value})
		} else {
			flags = append(flags, browserFlag{name, true})
		}
	}
	return flags
}

// DefaultAllocatorOptions converts the configured flag set into chromedp exec
// allocator options.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	flags := allocatorFlags(cfg)
	opts := make([]chromedp.ExecAllocatorOption, 0, len(flags))
	for _, f := range flags {
		opts = append(opts, chromedp.Flag(f.name, f.value))
	}
	return opts
}

// initialize launches the browser process exactly once.
func (m *Manager) initialize(ctx context.Context) error {
	m.initOnce.Do(func() {
		m.logger.Info("Launching browser process.", zap.Bool("headless", m.cfg.Headless))

		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), DefaultAllocatorOptions(m.cfg)...)
		m.allocCtx = allocCtx
		m.allocCancel = allocCancel

		// Materialize the browser now so launch failures surface here rather
		// than on the first page action.
		probeCtx, probeCancel := chromedp.NewContext(allocCtx)
		defer probeCancel()

		launchCtx, launchCancel := context.WithTimeout(ctx, 60*time.Second)
		defer launchCancel()

		if err := runWithContext(launchCtx, probeCtx); err != nil {
			allocCancel()
			m.initErr = fmt.Errorf("failed to launch browser process: %w", err)
			return
		}

		m.logger.Info("Browser process launched.")
	})
	return m.initErr
}

// runWithContext executes chromedp actions against cdpCtx while honoring the
// deadline carried by opCtx. With no actions it still forces the lazy cdp
// context to materialize its target.
func runWithContext(opCtx, cdpCtx context.Context, actions ...chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(cdpCtx, actions...)
	}()
	select {
	case err := <-done:
		return err
	case <-opCtx.Done():
		return opCtx.Err()
	}
}

// NewPage creates an isolated page (a fresh browser tab) scoped to the given
// session. The returned page must be closed by the caller; Shutdown closes
// any that remain.
func (m *Manager) NewPage(ctx context.Context, sessionID string) (schemas.Page, error) {
	if err := m.initialize(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.allocCtx == nil || m.allocCtx.Err() != nil {
		m.mu.Unlock()
		return nil, fmt.Errorf("browser manager is shut down")
	}
	m.mu.Unlock()

	pageCtx, pageCancel := chromedp.NewContext(m.allocCtx)

	// Creating the context is lazy; running the setup tasks forces the tab
	// into existence so provisioning failures are reported immediately.
	if err := runWithContext(ctx, pageCtx, setupTasks(m.cfg)); err != nil {
		pageCancel()
		return nil, fmt.Errorf("failed to open page for session %s: %w", sessionID, err)
	}

	p := newPage(sessionID, pageCtx, pageCancel, m.cfg, m.logger)
	dismissDialogs(pageCtx, p.logger)

	m.mu.Lock()
	m.pages[sessionID] = p
	m.mu.Unlock()
	m.wg.Add(1)

	p.onClose = func() {
		m.mu.Lock()
		delete(m.pages, sessionID)
		m.mu.Unlock()
		m.wg.Done()
	}

	m.logger.Debug("Opened browser page.", zap.String("session_id", sessionID))
	return p, nil
}

// Shutdown closes all remaining pages and terminates the browser process.
// It is safe to call more than once.
func (m *Manager) Shutdown(ctx context.Context) error {
	var err error
	m.shutdownOnce.Do(func() {
		m.mu.Lock()
		open := make([]*Page, 0, len(m.pages))
		for _, p := range m.pages {
			open = append(open, p)
		}
		m.mu.Unlock()

		for _, p := range open {
			if cerr := p.Close(); cerr != nil {
				m.logger.Warn("Error closing page during shutdown.", zap.String("session_id", p.ID()), zap.Error(cerr))
			}
		}

		// Wait for page teardown, bounded by the caller's context.
		waited := make(chan struct{})
		go func() {
			m.wg.Wait()
			close(waited)
		}()
		select {
		case <-waited:
		case <-ctx.Done():
			m.logger.Warn("Timed out waiting for pages to close during shutdown.")
		}

		if m.allocCtx == nil {
			return
		}

		// chromedp.Cancel blocks until the browser process exits, so bound it
		// with a grace period.
		done := make(chan error, 1)
		go func() {
			done <- chromedp.Cancel(m.allocCtx)
		}()
		select {
		case cerr := <-done:
			if cerr != nil && !(cerr == context.Canceled && m.allocCtx.Err() != nil) {
				err = fmt.Errorf("browser shutdown: %w", cerr)
			}
		case <-time.After(shutdownGracePeriod):
			m.logger.Warn("Browser did not exit within grace period, forcing.")
		}

		m.allocCancel()
		m.logger.Info("Browser manager shut down.")
	})
	return err
}
