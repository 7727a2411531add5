// Package api implements the HTTP client for the agent backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/agentportal/portal/internal/logging"
)

// HeaderSource supplies authentication headers for requests.
type HeaderSource interface {
	Headers() (map[string]string, error)
}

// Client talks JSON over HTTP to the agent backend.
type Client struct {
	baseURL string
	auth    HeaderSource
	http    *http.Client
}

// NewClient creates a backend client. The http.Client carries no timeout of
// its own; per-call contexts bound each request.
func NewClient(baseURL string, auth HeaderSource) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		auth:    auth,
		http:    &http.Client{},
	}
}

// ListSessions fetches the session registry.
func (c *Client) ListSessions(ctx context.Context) ([]SessionInfo, error) {
	var resp sessionsResponse
	if err := c.do(ctx, http.MethodGet, "/api/sessions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// SubmitChat submits a user message for the given session (or NewSessionID)
// and returns the backend-assigned task identifier.
func (c *Client) SubmitChat(ctx context.Context, sessionID, message string) (string, error) {
	path := fmt.Sprintf("/api/sessions/%s/chat", url.PathEscape(sessionID))
	var resp submitResponse
	if err := c.do(ctx, http.MethodPost, path, chatRequest{Message: message}, &resp); err != nil {
		return "", err
	}
	if resp.TaskID == "" {
		return "", fmt.Errorf("backend returned no task id")
	}
	return resp.TaskID, nil
}

// GetTask polls the status of one task.
func (c *Client) GetTask(ctx context.Context, sessionID, taskID string) (*Task, error) {
	path := fmt.Sprintf("/api/sessions/%s/tasks/%s", url.PathEscape(sessionID), url.PathEscape(taskID))
	var task Task
	if err := c.do(ctx, http.MethodGet, path, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask removes a consumed task server-side. Best effort: the caller is
// expected to log and otherwise ignore failures.
func (c *Client) DeleteTask(ctx context.Context, sessionID, taskID string) error {
	path := fmt.Sprintf("/api/sessions/%s/tasks/%s", url.PathEscape(sessionID), url.PathEscape(taskID))
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// GetConfig fetches backend-side static configuration.
func (c *Client) GetConfig(ctx context.Context) (*ProjectConfig, error) {
	var cfg ProjectConfig
	if err := c.do(ctx, http.MethodGet, "/api/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}

	headers, err := c.auth.Headers()
	if err != nil {
		return err
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	logging.Debug().Str("method", method).Str("path", path).Msg("backend request")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{Code: resp.StatusCode, Detail: readDetail(resp.Body)}
	}

	if out == nil {
		// Response ignored (DELETE); drain so the connection is reusable.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// readDetail extracts the backend's {"detail": "..."} error text, if any.
func readDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.Detail
}
