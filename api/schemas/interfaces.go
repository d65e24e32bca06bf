package schemas

import (
	"context"
)

// -- Core Service Interfaces --
//
// The interfaces below form the contract between the interaction engine and
// its collaborators. They live at the API level so the agent, browser and
// service packages can depend on them without importing each other.

// LLMClient is the single capability the planner needs from a language-model
// provider: a prompt in, the raw completion text out. Concrete
// implementations exist per provider and are selected at session creation.
type LLMClient interface {
	// Complete sends the prompt and returns the model's text response.
	Complete(ctx context.Context, prompt string) (string, error)
	// Name identifies the provider for logging.
	Name() string
}

// Page is the browser-automation control surface the executor drives. One
// Page is exclusively owned by one session; implementations are not required
// to be safe for concurrent use.
type Page interface {
	// ID returns the unique id of the underlying browser target.
	ID() string
	// Navigate loads a URL and waits for a readiness condition up to the
	// configured navigation timeout.
	Navigate(ctx context.Context, url string) error
	// Click locates an element and clicks it, waiting up to the configured
	// element timeout for it to become visible.
	Click(ctx context.Context, selector string) error
	// Type focuses an element and types the given text into it.
	Type(ctx context.Context, selector string, text string) error
	// WaitVisible blocks until the selector is visible or the context ends.
	WaitVisible(ctx context.Context, selector string) error
	// Sleep pauses for a fixed interval, honouring context cancellation.
	Sleep(ctx context.Context, millis int) error
	// ExtractText returns the visible text of the first matching element.
	ExtractText(ctx context.Context, selector string) (string, error)
	// ExtractAttribute returns one attribute of the first matching element.
	ExtractAttribute(ctx context.Context, selector, attribute string) (string, error)
	// Title returns the current document title.
	Title(ctx context.Context) (string, error)
	// Summarize produces the bounded page-state snapshot fed to the planner.
	Summarize(ctx context.Context) (PageSummary, error)
	// HighlightElements draws indexed outlines over the detected interactive
	// elements. Only useful when the browser runs headful.
	HighlightElements(ctx context.Context, elements []Element) error
	// Close releases the browser target. Safe to call more than once.
	Close() error
}

// BrowserManager owns the shared browser process and mints isolated pages.
type BrowserManager interface {
	// NewPage creates a fresh, exclusively owned page for a session.
	NewPage(ctx context.Context, sessionID string) (Page, error)
	// Shutdown tears down the browser and every page it minted.
	Shutdown(ctx context.Context) error
}

// SessionService is the surface the HTTP shell exposes upward: start a
// session, poll its status, request cooperative cancellation.
type SessionService interface {
	Start(ctx context.Context, req StartSessionRequest) (string, error)
	Status(sessionID string) (SessionStatusResponse, error)
	Cancel(sessionID string) error
}
