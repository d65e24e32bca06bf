// File: internal/agent/prompt_test.go
package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
)

func TestBuildUserPrompt(t *testing.T) {
	history := []schemas.TranscriptEntry{
		{
			Step:        1,
			Action:      schemas.Action{Type: schemas.ActionNavigate, URL: "https://example.com"},
			Observation: schemas.Observation{Status: schemas.ObservationSuccess},
		},
		{
			Step:   2,
			Action: schemas.Action{Type: schemas.ActionClick, Selector: "#missing"},
			Observation: schemas.Observation{
				Status:       schemas.ObservationFailure,
				ErrorCode:    schemas.ErrCodeElementNotFound,
				ErrorDetails: "no element matched",
			},
		},
	}
	page := schemas.PageSummary{
		URL:         "https://example.com/",
		Title:       "Example Domain",
		TextExcerpt: "This domain is for use in illustrative examples",
		Elements: []schemas.Element{
			{Index: 0, TagName: "a", Text: "More information...", X: 10, Y: 20, Width: 100, Height: 16},
		},
	}

	prompt, err := buildUserPrompt("read the title", []string{"api_key", "user"}, history, page, "", "")
	require.NoError(t, err)

	assert.Contains(t, prompt, "<user_command>read the title</user_command>")
	assert.Contains(t, prompt, "api_key, user")
	assert.Contains(t, prompt, "Example Domain")
	assert.Contains(t, prompt, `"tag_name":"a"`)

	// Element geometry stays out of the prompt.
	assert.NotContains(t, prompt, `"x":10`)
	assert.NotContains(t, prompt, `"width":100`)

	// History lines carry numbering, outcome, and error codes.
	assert.Contains(t, prompt, "1. [navigate] https://example.com -> success")
	assert.Contains(t, prompt, "2. [click] #missing -> failure (ELEMENT_NOT_FOUND: no element matched)")
}

func TestBuildUserPromptCarriesRejectedAttempt(t *testing.T) {
	prompt, err := buildUserPrompt("anything", nil, nil, schemas.PageSummary{},
		`{"type": "hover"}`, "action failed validation: unknown action type")
	require.NoError(t, err)

	assert.Contains(t, prompt, "hover")
	assert.Contains(t, prompt, "unknown action type")
	assert.Contains(t, prompt, "<previous_attempt>")
	assert.Contains(t, prompt, "<error>")
}

func TestSystemPromptDocumentsVocabulary(t *testing.T) {
	for _, actionType := range []string{"navigate", "click", "type", "wait", "extract", "terminate"} {
		assert.Contains(t, systemPrompt, `"`+actionType+`"`)
	}
	assert.Contains(t, systemPrompt, "{{name}}")
}

func TestRenderHistoryEmpty(t *testing.T) {
	assert.Empty(t, renderHistory(nil))
}

func TestRenderHistoryIncludesExtractedData(t *testing.T) {
	out := renderHistory([]schemas.TranscriptEntry{
		{
			Step:        3,
			Action:      schemas.Action{Type: schemas.ActionExtract, Selector: "h1"},
			Observation: schemas.Observation{Status: schemas.ObservationSuccess, Data: "Example Domain"},
		},
	})
	assert.Contains(t, out, `data="Example Domain"`)
}
