package schemas

import "time"

// SessionStatus describes the lifecycle state of an interaction session.
type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusFailed    SessionStatus = "failed"
	StatusAborted   SessionStatus = "aborted"
)

// Terminal reports whether the status is final. A session in a terminal
// status never transitions again and its browser resources are released.
func (s SessionStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusAborted:
		return true
	default:
		return false
	}
}

// TerminationReason explains why a session reached a terminal status.
type TerminationReason string

const (
	ReasonRequested       TerminationReason = "requested"
	ReasonBudget          TerminationReason = "budget"
	ReasonStagnation      TerminationReason = "stagnation"
	ReasonTimeout         TerminationReason = "timeout"
	ReasonElementNotFound TerminationReason = "element_not_found"
	ReasonPlanning        TerminationReason = "planning"
	ReasonCanceled        TerminationReason = "canceled"
)

// -- Service Schemas --

// StartSessionRequest is the payload accepted when creating a new session.
// Variables carry secret values; they are handed to the session's vault and
// never echoed back in any response or log.
type StartSessionRequest struct {
	Command   string            `json:"command"`
	Variables map[string]string `json:"variables,omitempty"`
	Model     string            `json:"model,omitempty"`
}

// StartSessionResponse acknowledges an accepted session.
type StartSessionResponse struct {
	SessionID string        `json:"session_id"`
	Status    SessionStatus `json:"status"`
}

// SessionStatusResponse reports the current state of a session together with
// the transcript accumulated so far.
type SessionStatusResponse struct {
	SessionID  string            `json:"session_id"`
	Status     SessionStatus     `json:"status"`
	Reason     TerminationReason `json:"reason,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	Transcript []TranscriptEntry `json:"transcript"`
}

// ErrorEnvelope is the uniform error body returned by the HTTP shell.
type ErrorEnvelope struct {
	Message string            `json:"message"`
	Data    map[string]string `json:"data,omitempty"`
}
