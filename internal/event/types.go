package event

// TaskProgressData is the data for task.progress events. It is the status
// notice shown while a submission is in flight; it is never persisted.
type TaskProgressData struct {
	SessionID string `json:"sessionID"`
	// ElapsedSeconds is time since the submission started.
	ElapsedSeconds int `json:"elapsedSeconds"`
	// Notice is the display text, e.g. "AI is thinking... (42s)".
	Notice string `json:"notice"`
	// Escalated is true once the submission crossed the complex-task mark.
	Escalated bool `json:"escalated"`
}

// TaskFinishedData is the data for task.finished events.
type TaskFinishedData struct {
	SessionID string `json:"sessionID"`
	TaskID    string `json:"taskID,omitempty"`
	// Err holds the terminal failure, empty on success.
	Err string `json:"error,omitempty"`
}

// MessageAppendedData is the data for message.appended events.
type MessageAppendedData struct {
	ID      string `json:"id"`
	Role    string `json:"role"`
	Content string `json:"content"`
}

// SessionChangedData is the data for session.changed events.
type SessionChangedData struct {
	// SessionID is the newly active session, empty when cleared.
	SessionID string `json:"sessionID"`
}
