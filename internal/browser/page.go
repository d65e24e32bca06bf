// File: internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
	"github.com/xkilldash9x/pilot-cli/internal/config"
)

const (
	defaultNavigationTimeout = 90 * time.Second
	defaultElementTimeout    = 3 * time.Second
	stabilizeTimeout         = 30 * time.Second
	shortOpTimeout           = 10 * time.Second
	summarizeTimeout         = 30 * time.Second
)

// Page drives a single browser tab over CDP. A page belongs to exactly one
// session and is never shared; all methods combine the page's own context
// with the caller's so either side can end an operation.
type Page struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger *zap.Logger
	cfg    config.BrowserConfig

	onClose func()

	mu       sync.Mutex
	isClosed bool
}

var _ schemas.Page = (*Page)(nil)

func newPage(id string, ctx context.Context, cancel context.CancelFunc, cfg config.BrowserConfig, logger *zap.Logger) *Page {
	return &Page{
		id:     id,
		ctx:    ctx,
		cancel: cancel,
		logger: logger.Named("page").With(zap.String("session_id", id)),
		cfg:    cfg,
	}
}

// ID returns the session identifier this page is scoped to.
func (p *Page) ID() string {
	return p.id
}

// runActions executes chromedp actions against the page while honoring the
// caller's context. The page context carries the CDP target, so actions must
// derive from it rather than from ctx directly.
func (p *Page) runActions(ctx context.Context, actions ...chromedp.Action) error {
	p.mu.Lock()
	if p.isClosed {
		p.mu.Unlock()
		return fmt.Errorf("page is closed")
	}
	p.mu.Unlock()

	opCtx, opCancel := CombineContext(p.ctx, ctx)
	defer opCancel()
	return chromedp.Run(opCtx, actions...)
}

func (p *Page) navigationTimeout() time.Duration {
	if p.cfg.NavigationTimeout > 0 {
		return p.cfg.NavigationTimeout
	}
	return defaultNavigationTimeout
}

func (p *Page) elementTimeout() time.Duration {
	if p.cfg.ElementTimeout > 0 {
		return p.cfg.ElementTimeout
	}
	return defaultElementTimeout
}

// Navigate loads the URL and waits for the document to become ready.
func (p *Page) Navigate(ctx context.Context, url string) error {
	p.logger.Debug("Navigating.", zap.String("url", url))

	navTimeout := p.navigationTimeout()
	navCtx, navCancel := context.WithTimeout(ctx, navTimeout)
	defer navCancel()

	if err := p.runActions(navCtx, chromedp.Navigate(url)); err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation timed out after %s: %w", navTimeout, err)
		}
		if ctx.Err() != nil {
			return fmt.Errorf("navigation canceled: %w", ctx.Err())
		}
		return fmt.Errorf("navigation failed: %w", err)
	}

	// Readiness failures after a successful load are not fatal; the page may
	// be usable even when body readiness never settles.
	if err := p.stabilize(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		p.logger.Warn("Page stabilization failed after navigation.", zap.Error(err))
	}
	return nil
}

// stabilize waits for the DOM to be ready so follow-up queries see content.
func (p *Page) stabilize(ctx context.Context) error {
	stabCtx, cancel := context.WithTimeout(ctx, stabilizeTimeout)
	defer cancel()
	return p.runActions(stabCtx, chromedp.WaitReady("body", chromedp.ByQuery))
}

// elementGated runs actions that require the selector to resolve first. A
// deadline here means the element never became available within one locate
// attempt, which callers treat as not-yet-rendered.
func (p *Page) elementGated(ctx context.Context, verb, selector string, actions ...chromedp.Action) error {
	timeout := p.elementTimeout()
	elemCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.runActions(elemCtx, actions...); err != nil {
		if elemCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return fmt.Errorf("%s failed: no element found for selector %q within %s: %w", verb, selector, timeout, err)
		}
		return fmt.Errorf("%s failed for selector %q: %w", verb, selector, err)
	}
	return nil
}

// Click scrolls the element into view and clicks it.
func (p *Page) Click(ctx context.Context, selector string) error {
	p.logger.Debug("Clicking element.", zap.String("selector", selector))
	return p.elementGated(ctx, "click", selector, chromedp.Tasks{
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	})
}

// Type replaces the element's current value with the given text.
func (p *Page) Type(ctx context.Context, selector, text string) error {
	p.logger.Debug("Typing into element.", zap.String("selector", selector), zap.Int("text_length", len(text)))
	return p.elementGated(ctx, "type", selector, chromedp.Tasks{
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	})
}

// WaitVisible blocks until the selector is visible or one locate attempt
// times out.
func (p *Page) WaitVisible(ctx context.Context, selector string) error {
	p.logger.Debug("Waiting for element.", zap.String("selector", selector))
	return p.elementGated(ctx, "wait", selector,
		chromedp.WaitVisible(selector, chromedp.ByQuery))
}

// Sleep pauses for the given number of milliseconds, honoring cancellation.
func (p *Page) Sleep(ctx context.Context, millis int) error {
	if millis <= 0 {
		return nil
	}
	return p.runActions(ctx, chromedp.Sleep(time.Duration(millis)*time.Millisecond))
}

// ExtractText returns the visible text of the first element matching the
// selector. An empty selector extracts the document title, which is the
// cheapest whole-page answer for "what does the page say".
func (p *Page) ExtractText(ctx context.Context, selector string) (string, error) {
	if selector == "" {
		return p.Title(ctx)
	}
	p.logger.Debug("Extracting text.", zap.String("selector", selector))

	var out string
	err := p.elementGated(ctx, "extract", selector,
		chromedp.Text(selector, &out, chromedp.ByQuery))
	if err != nil {
		return "", err
	}
	return out, nil
}

// ExtractAttribute returns the named attribute of the first element matching
// the selector.
func (p *Page) ExtractAttribute(ctx context.Context, selector, attribute string) (string, error) {
	p.logger.Debug("Extracting attribute.", zap.String("selector", selector), zap.String("attribute", attribute))

	var value string
	var ok bool
	err := p.elementGated(ctx, "extract", selector,
		chromedp.AttributeValue(selector, attribute, &value, &ok, chromedp.ByQuery))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("attribute %q not present on element %q", attribute, selector)
	}
	return value, nil
}

// Title returns the current document title.
func (p *Page) Title(ctx context.Context) (string, error) {
	opCtx, cancel := context.WithTimeout(ctx, shortOpTimeout)
	defer cancel()

	var title string
	if err := p.runActions(opCtx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("failed to read page title: %w", err)
	}
	return title, nil
}

// Summarize captures a bounded snapshot of the page: its location, title, a
// text excerpt, and the visible interactive elements.
func (p *Page) Summarize(ctx context.Context) (schemas.PageSummary, error) {
	opCtx, cancel := context.WithTimeout(ctx, summarizeTimeout)
	defer cancel()

	maxElements := p.cfg.MaxElements
	if maxElements <= 0 {
		maxElements = defaultMaxElements
	}
	excerptChars := p.cfg.ExcerptChars
	if excerptChars <= 0 {
		excerptChars = defaultExcerptChars
	}

	var summary schemas.PageSummary
	tasks := chromedp.Tasks{
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Location(&summary.URL),
		chromedp.Title(&summary.Title),
		chromedp.Evaluate(excerptJS(excerptChars), &summary.TextExcerpt),
		chromedp.Evaluate(detectElementsJS(maxElements), &summary.Elements),
	}
	if err := p.runActions(opCtx, tasks); err != nil {
		return schemas.PageSummary{}, fmt.Errorf("failed to summarize page: %w", err)
	}

	p.logger.Debug("Summarized page.",
		zap.String("url", summary.URL),
		zap.Int("elements", len(summary.Elements)))
	return summary, nil
}

// HighlightElements draws indexed outlines over the given elements. Previous
// overlays are removed first, so calling with an empty slice clears the page.
func (p *Page) HighlightElements(ctx context.Context, elements []schemas.Element) error {
	script, err := highlightJS(elements)
	if err != nil {
		return fmt.Errorf("failed to build highlight script: %w", err)
	}

	opCtx, cancel := context.WithTimeout(ctx, shortOpTimeout)
	defer cancel()

	if err := p.runActions(opCtx, chromedp.Evaluate(script, nil)); err != nil {
		return fmt.Errorf("failed to highlight elements: %w", err)
	}
	return nil
}

// Close tears the page down. It is idempotent; only the first call cancels
// the underlying tab and fires the close callback.
func (p *Page) Close() error {
	p.mu.Lock()
	if p.isClosed {
		p.mu.Unlock()
		return nil
	}
	p.isClosed = true
	p.mu.Unlock()

	p.logger.Debug("Closing page.")

	if p.cancel != nil {
		p.cancel()
	}
	if p.onClose != nil {
		p.onClose()
	}
	return nil
}
