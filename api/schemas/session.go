package schemas

import "time"

// SessionStatus is the terminal state of one booking session.
type SessionStatus string

const (
	SessionRunning   SessionStatus = "running"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// SessionRecord is the journal entry opened when a session starts.
type SessionRecord struct {
	ID        string    `json:"id"`
	URL       string    `json:"url"`
	Model     string    `json:"model"`
	StartedAt time.Time `json:"started_at"`
}

// TurnRecord is the journal entry for one applied action. Frames are never
// journaled.
type TurnRecord struct {
	SessionID   string     `json:"session_id"`
	Turn        int        `json:"turn"`
	ResponseID  string     `json:"response_id"`
	CallID      string     `json:"call_id"`
	ActionType  ActionType `json:"action_type"`
	ActionError string     `json:"action_error,omitempty"`
	RecordedAt  time.Time  `json:"recorded_at"`
}

// SessionSummary closes a session's journal entry.
type SessionSummary struct {
	ID         string        `json:"id"`
	Status     SessionStatus `json:"status"`
	Turns      int           `json:"turns"`
	Error      string        `json:"error,omitempty"`
	FinishedAt time.Time     `json:"finished_at"`
}
