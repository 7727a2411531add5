package session

import "errors"

var (
	// ErrNoSession means a send was attempted with no active session.
	// Rejected before any network call.
	ErrNoSession = errors.New("no session selected")

	// ErrEmptyMessage means the message trimmed to nothing.
	// Rejected before any network call.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrBusy means a submission is already in flight; at most one is
	// permitted at a time.
	ErrBusy = errors.New("a submission is already in flight")

	// ErrSuperseded means the active session changed while the submission
	// was in flight; its late result was discarded without touching state.
	ErrSuperseded = errors.New("session changed while awaiting result")
)
