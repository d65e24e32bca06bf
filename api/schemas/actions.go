package schemas

import (
	"fmt"
	"strings"
	"time"
)

// ActionSchemaVersion identifies the action wire format presented to the
// planner. Bump it whenever a field or variant changes meaning so prompts and
// parsers stay in lockstep.
const ActionSchemaVersion = "v1"

// ActionType enumerates the closed set of operations the planner may request.
type ActionType string

const (
	ActionNavigate  ActionType = "navigate"
	ActionClick     ActionType = "click"
	ActionTypeText  ActionType = "type"
	ActionWait      ActionType = "wait"
	ActionExtract   ActionType = "extract"
	ActionTerminate ActionType = "terminate"
)

// Action is one atomic browser operation requested by the planner. It is a
// tagged variant: Type selects which of the remaining fields are meaningful.
// String fields may embed {{name}} variable references; the stored form always
// keeps the reference, never the secret value.
type Action struct {
	// Thought is the planner's free-text reasoning for this step. It is kept
	// for the audit trail and echoed back as model context.
	Thought string `json:"thought,omitempty"`

	Type ActionType `json:"type"`

	// URL is the navigation target for navigate actions.
	URL string `json:"url,omitempty"`
	// Selector is a CSS selector locating the target element for click, type,
	// wait and extract actions.
	Selector string `json:"selector,omitempty"`
	// Value is the text to type. It is a literal or a {{name}} reference.
	Value string `json:"value,omitempty"`
	// Attribute names an element attribute to read for extract actions.
	// Empty means the element's visible text.
	Attribute string `json:"attribute,omitempty"`
	// DurationMS is the fixed pause for wait actions without a selector.
	DurationMS int `json:"duration_ms,omitempty"`
	// Status is the requested terminal outcome for terminate actions, either
	// "success" or "failure".
	Status string `json:"status,omitempty"`
	// Reason optionally explains a terminate action.
	Reason string `json:"reason,omitempty"`
}

// Validate checks that the action is well formed for its declared type.
// The planner rejects and re-prompts on any error returned here rather than
// coercing a malformed action into something executable.
func (a Action) Validate() error {
	switch a.Type {
	case ActionNavigate:
		if strings.TrimSpace(a.URL) == "" {
			return fmt.Errorf("navigate action requires a non-empty url")
		}
	case ActionClick:
		if strings.TrimSpace(a.Selector) == "" {
			return fmt.Errorf("click action requires a non-empty selector")
		}
	case ActionTypeText:
		if strings.TrimSpace(a.Selector) == "" {
			return fmt.Errorf("type action requires a non-empty selector")
		}
		if a.Value == "" {
			return fmt.Errorf("type action requires a value")
		}
	case ActionWait:
		if strings.TrimSpace(a.Selector) == "" && a.DurationMS <= 0 {
			return fmt.Errorf("wait action requires a selector or a positive duration_ms")
		}
	case ActionExtract:
		// An empty selector is allowed and means the document title.
	case ActionTerminate:
		if a.Status != "success" && a.Status != "failure" {
			return fmt.Errorf("terminate action requires status %q or %q, got %q", "success", "failure", a.Status)
		}
	case "":
		return fmt.Errorf("action is missing the required type field")
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	return nil
}

// -- Observations --

// ObservationStatus is the binary outcome of executing an action.
type ObservationStatus string

const (
	ObservationSuccess ObservationStatus = "success"
	ObservationFailure ObservationStatus = "failure"
)

// Element is a bounded description of one interactive element on the page.
// Text is truncated so a large page cannot flood the model context.
type Element struct {
	Index       int    `json:"index"`
	Text        string `json:"text,omitempty"`
	TagName     string `json:"tag_name"`
	ID          string `json:"id,omitempty"`
	ClassName   string `json:"class_name,omitempty"`
	Href        string `json:"href,omitempty"`
	Type        string `json:"type,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Role        string `json:"role,omitempty"`
	X           int    `json:"x"`
	Y           int    `json:"y"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
}

// PageSummary is the bounded page-state snapshot attached to observations and
// fed back to the planner. It never contains the full DOM.
type PageSummary struct {
	URL         string    `json:"url,omitempty"`
	Title       string    `json:"title,omitempty"`
	TextExcerpt string    `json:"text_excerpt,omitempty"`
	Elements    []Element `json:"elements,omitempty"`
}

// Observation is the executor's report of an action's outcome.
type Observation struct {
	Status       ObservationStatus `json:"status"`
	ErrorCode    string            `json:"error_code,omitempty"`
	ErrorDetails string            `json:"error_details,omitempty"`
	// Data holds extracted content for extract actions.
	Data string      `json:"data,omitempty"`
	Page PageSummary `json:"page"`
}

// Failed reports whether the observation records a failed execution.
func (o Observation) Failed() bool { return o.Status == ObservationFailure }

// TranscriptEntry is one (Action, Observation) pair in a session's history.
// The sequence is append-only and ordered by Step.
type TranscriptEntry struct {
	Step        int         `json:"step"`
	Action      Action      `json:"action"`
	Observation Observation `json:"observation"`
	At          time.Time   `json:"at"`
}
