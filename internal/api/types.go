package api

// NewSessionID is the sentinel session identifier that asks the backend to
// create a brand-new session on submit. The completed task result carries the
// identity the backend actually assigned.
const NewSessionID = "new"

// SessionInfo describes one known session in the backend registry.
type SessionInfo struct {
	SessionID string `json:"session_id"`
	Display   string `json:"display"`
	Project   string `json:"project"`
}

type sessionsResponse struct {
	Sessions []SessionInfo `json:"sessions"`
	Hint     string        `json:"hint,omitempty"`
}

// TaskStatus is the backend-reported state of an asynchronous task.
type TaskStatus string

const (
	TaskProcessing TaskStatus = "processing"
	TaskCompleted  TaskStatus = "completed"
	TaskNotFound   TaskStatus = "not_found"
)

// TaskResult is present once a task completed.
type TaskResult struct {
	// SessionID may differ from the submitted one; a "new" submission
	// receives its assigned identity here.
	SessionID    string  `json:"session_id"`
	Result       string  `json:"result"`
	IsError      bool    `json:"is_error"`
	NumTurns     int     `json:"num_turns"`
	TotalCostUSD float64 `json:"total_cost_usd"`
}

// Task is one poll response.
type Task struct {
	Status TaskStatus  `json:"status"`
	Result *TaskResult `json:"result,omitempty"`
}

type submitResponse struct {
	TaskID string `json:"task_id"`
}

type chatRequest struct {
	Message string `json:"message"`
}

// ProjectConfig is the backend-reported static configuration.
type ProjectConfig struct {
	ProjectPath string `json:"project_path"`
}
