package task

import "errors"

var (
	// ErrEmptyMessage rejects a submission whose message trims to nothing.
	// Raised before any network call.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrNoSession rejects a submission without a session context.
	// Raised before any network call.
	ErrNoSession = errors.New("no session selected")

	// ErrTaskNotFound is the terminal failure for a task the backend no
	// longer knows. Never retried.
	ErrTaskNotFound = errors.New("task not found")

	// ErrTimeout is the client-side submission deadline being exceeded. The
	// remote task may still complete server-side with no further effect here.
	ErrTimeout = errors.New("submission timed out")
)
