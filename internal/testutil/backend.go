// Package testutil provides a scriptable mock agent backend for tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/agentportal/portal/internal/api"
)

// StaticHeaders is a fixed header source for tests that bypass the
// credential store.
type StaticHeaders map[string]string

// Headers implements api.HeaderSource.
func (h StaticHeaders) Headers() (map[string]string, error) {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out, nil
}

// PollStep scripts one poll response.
type PollStep struct {
	// HTTPStatus, when nonzero, short-circuits the response with that code
	// (500 simulates a transient failure, 401 an auth failure).
	HTTPStatus int
	Status     api.TaskStatus
	Result     *api.TaskResult
}

// Backend is a mock agent backend speaking the portal wire protocol.
type Backend struct {
	Server *httptest.Server

	mu sync.Mutex

	// RequiredAuth, when set, is the exact Authorization header value every
	// request must carry; anything else gets a 401.
	RequiredAuth string
	Sessions     []api.SessionInfo
	ProjectPath  string

	// TaskID is assigned to the next submission.
	TaskID string
	// SubmitStatus, when nonzero, fails submissions with that code.
	SubmitStatus int
	// SubmitDetail is the detail text for failed submissions.
	SubmitDetail string
	// Steps are consumed one per poll; when exhausted, polls report
	// "processing" forever.
	Steps []PollStep

	submitCalls int
	pollCalls   int
	deleteCalls int

	lastMessage       string
	lastSubmitSession string
	lastDeletedTask   string
}

// NewBackend starts a mock backend.
func NewBackend() *Backend {
	b := &Backend{TaskID: "task-1"}

	r := chi.NewRouter()
	r.Get("/api/sessions", b.handleSessions)
	r.Post("/api/sessions/{sessionID}/chat", b.handleSubmit)
	r.Get("/api/sessions/{sessionID}/tasks/{taskID}", b.handlePoll)
	r.Delete("/api/sessions/{sessionID}/tasks/{taskID}", b.handleDelete)
	r.Get("/api/config", b.handleConfig)

	b.Server = httptest.NewServer(r)
	return b
}

func (b *Backend) URL() string { return b.Server.URL }

func (b *Backend) Close() { b.Server.Close() }

// SubmitCalls reports how many submissions arrived.
func (b *Backend) SubmitCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.submitCalls
}

// PollCalls reports how many status polls arrived.
func (b *Backend) PollCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pollCalls
}

// DeleteCalls reports how many task deletions arrived.
func (b *Backend) DeleteCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.deleteCalls
}

// LastMessage reports the body of the last submission.
func (b *Backend) LastMessage() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastMessage
}

// LastSubmitSession reports the session path segment of the last submission.
func (b *Backend) LastSubmitSession() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSubmitSession
}

// LastDeletedTask reports the task id of the last deletion.
func (b *Backend) LastDeletedTask() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastDeletedTask
}

func (b *Backend) authorized(r *http.Request) bool {
	b.mu.Lock()
	required := b.RequiredAuth
	b.mu.Unlock()
	return required == "" || r.Header.Get("Authorization") == required
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (b *Backend) handleSessions(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "bad credentials"})
		return
	}
	b.mu.Lock()
	sessions := b.Sessions
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (b *Backend) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if !b.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "bad credentials"})
		return
	}

	var req struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	b.submitCalls++
	b.lastMessage = req.Message
	b.lastSubmitSession = chi.URLParam(r, "sessionID")
	status := b.SubmitStatus
	detail := b.SubmitDetail
	taskID := b.TaskID
	b.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"detail": detail})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"task_id": taskID})
}

func (b *Backend) handlePoll(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.pollCalls++
	var step PollStep
	if len(b.Steps) > 0 {
		step = b.Steps[0]
		b.Steps = b.Steps[1:]
	} else {
		step = PollStep{Status: api.TaskProcessing}
	}
	b.mu.Unlock()

	if step.HTTPStatus != 0 {
		writeJSON(w, step.HTTPStatus, map[string]string{"detail": "scripted failure"})
		return
	}
	writeJSON(w, http.StatusOK, api.Task{Status: step.Status, Result: step.Result})
}

func (b *Backend) handleDelete(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.deleteCalls++
	b.lastDeletedTask = chi.URLParam(r, "taskID")
	b.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (b *Backend) handleConfig(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	path := b.ProjectPath
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"project_path": path})
}
