package api

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned for HTTP 401 responses. Callers are expected to
// clear cached credentials and force a reprompt before any retry.
var ErrUnauthorized = errors.New("authentication failed")

// StatusError is a non-2xx backend response, carrying the backend-supplied
// detail text when the body had one.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("backend returned %d", e.Code)
}
