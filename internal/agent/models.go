// File: internal/agent/models.go
package agent

import (
	"fmt"
	"sync"
	"time"

	json "github.com/json-iterator/go"

	"github.com/xkilldash9x/pilot-cli/api/schemas"
)

// State identifies where the interaction loop currently is.
type State string

const (
	StatePlanning   State = "PLANNING"
	StateExecuting  State = "EXECUTING"
	StateObserving  State = "OBSERVING"
	StateTerminated State = "TERMINATED"
)

// Result is the final outcome of one interaction loop.
type Result struct {
	Status schemas.SessionStatus
	Reason schemas.TerminationReason
	Steps  int
}

// Transcript is the append-only record of action/observation pairs for one
// session. Entries are numbered from 1 in execution order. Actions are stored
// in their pre-substitution form so secret values never enter the record.
type Transcript struct {
	mu      sync.RWMutex
	entries []schemas.TranscriptEntry
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{}
}

// Append records one step and returns the entry as stored.
func (t *Transcript) Append(action schemas.Action, obs schemas.Observation) schemas.TranscriptEntry {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry := schemas.TranscriptEntry{
		Step:        len(t.entries) + 1,
		Action:      action,
		Observation: obs,
		At:          time.Now().UTC(),
	}
	t.entries = append(t.entries, entry)
	return entry
}

// Len returns the number of recorded steps.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Snapshot returns a copy of all entries in order.
func (t *Transcript) Snapshot() []schemas.TranscriptEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]schemas.TranscriptEntry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Window returns a copy of the most recent n entries.
func (t *Transcript) Window(n int) []schemas.TranscriptEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if n <= 0 || len(t.entries) == 0 {
		return nil
	}
	start := len(t.entries) - n
	if start < 0 {
		start = 0
	}
	out := make([]schemas.TranscriptEntry, len(t.entries)-start)
	copy(out, t.entries[start:])
	return out
}

// TailSignatureRun returns how many consecutive trailing entries share the
// signature of the last entry. A growing run means the loop is repeating the
// same action and getting the same result back.
func (t *Transcript) TailSignatureRun() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.entries) == 0 {
		return 0
	}
	last := entrySignature(t.entries[len(t.entries)-1])
	run := 0
	for i := len(t.entries) - 1; i >= 0; i-- {
		if entrySignature(t.entries[i]) != last {
			break
		}
		run++
	}
	return run
}

// entrySignature folds an action/observation pair into a comparable key.
// Step numbers and timestamps are excluded so identical repeats collide.
func entrySignature(entry schemas.TranscriptEntry) string {
	actionJSON, err := json.Marshal(entry.Action)
	if err != nil {
		actionJSON = []byte(fmt.Sprintf("%+v", entry.Action))
	}
	return fmt.Sprintf("%s|%s|%s|%s|%s",
		actionJSON,
		entry.Observation.Status,
		entry.Observation.ErrorCode,
		entry.Observation.ErrorDetails,
		entry.Observation.Data,
	)
}
