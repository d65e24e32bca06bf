// File: internal/agent/prompt.go
package agent

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"
	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
)

// systemPrompt frames the planner's role and pins down the action contract.
// The model must answer with exactly one JSON action per turn.
const systemPrompt = `You are an expert browser automation assistant. You break a user's task into precise browser actions and emit exactly ONE action per turn as a single JSON object.

## Action Vocabulary
- {"type": "navigate", "url": "<absolute url>"} loads a page.
- {"type": "click", "selector": "<css selector>"} clicks the first matching element.
- {"type": "type", "selector": "<css selector>", "value": "<text>"} replaces the element's value with the text.
- {"type": "wait", "selector": "<css selector>"} waits for the element to become visible.
- {"type": "wait", "duration_ms": <int>} pauses for a fixed time.
- {"type": "extract", "selector": "<css selector>", "attribute": "<name>"} reads text or an attribute; omit the selector to read the document title.
- {"type": "terminate", "status": "success"|"failure", "reason": "<short explanation>"} ends the session. Emit it as soon as the task is complete or clearly impossible.

Every action may carry a "thought" field: one sentence on why this is the right next step.

## Rules
- Respond with ONLY the JSON object, optionally inside a fenced code block. No prose around it.
- Prioritize selectors: #id > .class_name > [role] > [type] > tag:text content. For multi-class elements join classes with dots.
- The listed elements are what is visible right now. If the element list is empty, the page has not been loaded yet and navigation is likely the first step.
- Secret variables are available by NAME only. Reference one by writing {{name}} inside a url, selector, or value field; the real value is injected at execution time. Never invent a variable name that is not listed and never ask for the value.
- Learn from failures: if the previous attempt or an earlier step failed, choose a different selector or approach rather than repeating it.
- One action per response. Do not batch.`

// promptElement is the element view carried in prompts. Geometry is dropped;
// it helps the overlay, not the planner.
type promptElement struct {
	Index       int    `json:"index"`
	Text        string `json:"text,omitempty"`
	TagName     string `json:"tag_name"`
	ID          string `json:"id,omitempty"`
	ClassName   string `json:"class_name,omitempty"`
	Href        string `json:"href,omitempty"`
	Type        string `json:"type,omitempty"`
	Placeholder string `json:"placeholder,omitempty"`
	Role        string `json:"role,omitempty"`
}

// buildUserPrompt assembles the per-turn context as a small XML document:
// command, prior steps, page state, variable names, and on a re-prompt the
// rejected output with its parse error.
func buildUserPrompt(command string, variables []string, history []schemas.TranscriptEntry, page schemas.PageSummary, prevAttempt, prevErr string) (string, error) {
	doc := etree.NewDocument()
	// Canonical escaping keeps quotes in embedded JSON readable for the model.
	doc.WriteSettings.CanonicalText = true
	root := doc.CreateElement("context")

	root.CreateElement("user_command").CreateText(command)
	root.CreateElement("previous_steps").CreateText(renderHistory(history))

	pageEl := root.CreateElement("page")
	pageEl.CreateElement("url").CreateText(page.URL)
	pageEl.CreateElement("title").CreateText(page.Title)
	pageEl.CreateElement("text_excerpt").CreateText(page.TextExcerpt)

	elementsJSON, err := renderElements(page.Elements)
	if err != nil {
		return "", fmt.Errorf("failed to render elements for prompt: %w", err)
	}
	pageEl.CreateElement("elements").CreateText(elementsJSON)

	root.CreateElement("variables").CreateText(strings.Join(variables, ", "))
	root.CreateElement("previous_attempt").CreateText(prevAttempt)
	root.CreateElement("error").CreateText(prevErr)

	doc.Indent(2)
	contextXML, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("failed to serialize prompt context: %w", err)
	}

	return fmt.Sprintf("Decide the single next browser action.\n\n%s\nRespond with one JSON action object.", contextXML), nil
}

// renderHistory flattens transcript entries into numbered lines the model can
// scan. Observation data is included because extracted values often determine
// whether the task is already done.
func renderHistory(history []schemas.TranscriptEntry) string {
	if len(history) == 0 {
		return ""
	}
	var b strings.Builder
	for _, entry := range history {
		fmt.Fprintf(&b, "%d. [%s] %s -> %s", entry.Step, entry.Action.Type, describeAction(entry.Action), entry.Observation.Status)
		if entry.Observation.ErrorCode != "" {
			fmt.Fprintf(&b, " (%s: %s)", entry.Observation.ErrorCode, entry.Observation.ErrorDetails)
		}
		if entry.Observation.Data != "" {
			fmt.Fprintf(&b, " data=%q", entry.Observation.Data)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func describeAction(action schemas.Action) string {
	switch action.Type {
	case schemas.ActionNavigate:
		return action.URL
	case schemas.ActionClick, schemas.ActionWait:
		if action.Selector != "" {
			return action.Selector
		}
		return fmt.Sprintf("%dms", action.DurationMS)
	case schemas.ActionTypeText:
		return fmt.Sprintf("%s = %s", action.Selector, action.Value)
	case schemas.ActionExtract:
		if action.Attribute != "" {
			return fmt.Sprintf("%s @%s", action.Selector, action.Attribute)
		}
		return action.Selector
	case schemas.ActionTerminate:
		return fmt.Sprintf("%s: %s", action.Status, action.Reason)
	default:
		return action.Thought
	}
}

func renderElements(elements []schemas.Element) (string, error) {
	if len(elements) == 0 {
		return "[]", nil
	}
	view := make([]promptElement, len(elements))
	for i, el := range elements {
		view[i] = promptElement{
			Index:       el.Index,
			Text:        el.Text,
			TagName:     el.TagName,
			ID:          el.ID,
			ClassName:   el.ClassName,
			Href:        el.Href,
			Type:        el.Type,
			Placeholder: el.Placeholder,
			Role:        el.Role,
		}
	}
	encoded, err := json.Marshal(view)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}
