// File: internal/agent/fuzz_test.go
package agent

import (
	"testing"

	fuzz "github.com/AdaLogics/go-fuzz-headers"
	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
)

// FuzzParseActionResponse feeds arbitrary model output into the response
// parser. Survival without panicking is the bar; any accepted action must
// also be schema-valid.
func FuzzParseActionResponse(f *testing.F) {
	f.Add(`{"type": "navigate", "url": "https://example.com"}`)
	f.Add("```json\n{\"type\": \"click\", \"selector\": \"#go\"}\n```")
	f.Add("no json here at all")
	f.Add(`{"type": "terminate", "status": "success"}`)
	f.Add("{{{{")
	f.Add("")

	f.Fuzz(func(t *testing.T, response string) {
		action, err := parseActionResponse(response)
		if err != nil {
			return
		}
		assert.NoError(t, action.Validate())
	})
}

// FuzzEntrySignature_Structured fuzzes whole transcript entries and checks
// the signature stays deterministic.
func FuzzEntrySignature_Structured(f *testing.F) {
	f.Fuzz(func(t *testing.T, data []byte) {
		fuzzConsumer := fuzz.NewConsumer(data)
		entry := schemas.TranscriptEntry{}
		if err := fuzzConsumer.GenerateStruct(&entry); err != nil {
			return
		}

		first := entrySignature(entry)
		second := entrySignature(entry)
		assert.Equal(t, first, second)

		// Step and timestamp must not influence the signature.
		renumbered := entry
		renumbered.Step = entry.Step + 1
		assert.Equal(t, first, entrySignature(renumbered))
	})
}
