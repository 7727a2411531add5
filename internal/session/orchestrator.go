// Package session owns the active conversation session and its statistics.
//
// The orchestrator is the single owner of all mutable client state: the
// active session identifier, turn count, accumulated cost, the transcript,
// and the known-sessions registry. Switching sessions is atomic with respect
// to transcript and statistics reset, and a late result arriving for an
// abandoned session is discarded rather than applied.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/agentportal/portal/internal/api"
	"github.com/agentportal/portal/internal/event"
	"github.com/agentportal/portal/internal/history"
	"github.com/agentportal/portal/internal/kvstore"
	"github.com/agentportal/portal/internal/logging"
)

// LastSessionKey is the key/value store key holding the advisory last-known
// session identity. It is a hint for display only; the authoritative
// selection is always the in-memory value.
const LastSessionKey = "claude_session_id"

// Submitter runs one submission to a terminal outcome.
type Submitter interface {
	Submit(ctx context.Context, sessionID, message string) (*api.TaskResult, error)
}

// Registry lists the sessions the backend knows about.
type Registry interface {
	ListSessions(ctx context.Context) ([]api.SessionInfo, error)
}

// CredentialStore is the part of the auth store the orchestrator drives:
// clearing cached credentials on authentication failure.
type CredentialStore interface {
	Clear() error
}

// Session is a snapshot of the active session and its running statistics.
type Session struct {
	ID string
	// TurnCount is the backend-reported turn count of the last completed
	// task; it replaces, never accumulates.
	TurnCount int
	// AccumulatedCost is the running sum of task costs within this
	// session's lifetime, in USD.
	AccumulatedCost float64
}

// Orchestrator composes the engine, cache, registry, and credential store.
type Orchestrator struct {
	engine   Submitter
	registry Registry
	creds    CredentialStore
	cache    *history.Cache
	kv       *kvstore.Store
	bus      *event.Bus

	mu         sync.Mutex
	sessionID  string
	turnCount  int
	cost       float64
	transcript []history.Message
	sessions   []api.SessionInfo
	inFlight   bool
	epoch      uint64
}

// New creates an orchestrator. Call Restore before first use to reload the
// cached transcript.
func New(engine Submitter, registry Registry, creds CredentialStore, cache *history.Cache, kv *kvstore.Store, bus *event.Bus) *Orchestrator {
	return &Orchestrator{
		engine:   engine,
		registry: registry,
		creds:    creds,
		cache:    cache,
		kv:       kv,
		bus:      bus,
	}
}

// Restore reloads the persisted transcript. The advisory last-session marker
// is surfaced through LastSessionID but never auto-selected; the user picks a
// session explicitly.
func (o *Orchestrator) Restore() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transcript = o.cache.Load()
}

// LastSessionID returns the advisory last-known session identity, if any.
func (o *Orchestrator) LastSessionID() string {
	var id string
	if err := o.kv.Get(LastSessionKey, &id); err != nil {
		return ""
	}
	return id
}

// CurrentSession returns a snapshot of the active session.
func (o *Orchestrator) CurrentSession() Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Session{ID: o.sessionID, TurnCount: o.turnCount, AccumulatedCost: o.cost}
}

// Messages returns a copy of the visible transcript.
func (o *Orchestrator) Messages() []history.Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]history.Message, len(o.transcript))
	copy(out, o.transcript)
	return out
}

// Sessions returns the last fetched session registry.
func (o *Orchestrator) Sessions() []api.SessionInfo {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]api.SessionInfo, len(o.sessions))
	copy(out, o.sessions)
	return out
}

// CanSend reports whether a send is currently permitted: a non-empty session
// is active and no submission is in flight.
func (o *Orchestrator) CanSend() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sessionID != "" && !o.inFlight
}

// SelectSession switches the active session. Passing "" clears the
// selection. Either way the transcript and statistics reset atomically and
// any in-flight submission's eventual result is discarded.
func (o *Orchestrator) SelectSession(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.selectLocked(id)
}

func (o *Orchestrator) selectLocked(id string) {
	o.epoch++
	o.sessionID = id
	o.turnCount = 0
	o.cost = 0
	o.transcript = nil
	if err := o.cache.Save(o.transcript); err != nil {
		logging.Warn().Err(err).Msg("failed to save cleared transcript")
	}
	o.bus.PublishSync(event.Event{
		Type: event.SessionChanged,
		Data: event.SessionChangedData{SessionID: id},
	})
}

// ResetToNewSession clears all session identity and statistics and purges
// the locally cached transcript and the advisory session marker.
func (o *Orchestrator) ResetToNewSession() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.selectLocked("")
	if err := o.cache.Clear(); err != nil {
		logging.Warn().Err(err).Msg("failed to purge cached transcript")
	}
	if err := o.kv.Remove(LastSessionKey); err != nil {
		logging.Warn().Err(err).Msg("failed to remove last-session marker")
	}
}

// RefreshSessions refetches the session registry. Best effort, last call
// wins. A still-present selection is preserved; a vanished one is cleared
// (which resets transcript and statistics like any other switch).
func (o *Orchestrator) RefreshSessions(ctx context.Context) error {
	sessions, err := o.registry.ListSessions(ctx)
	if err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			o.clearCredentials()
		}
		return err
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	o.sessions = sessions

	if o.sessionID == "" || o.sessionID == api.NewSessionID {
		// A pending brand-new session has no registry entry to match yet;
		// it only gets one once the first send completes.
		return nil
	}
	for _, s := range sessions {
		if s.SessionID == o.sessionID {
			return nil
		}
	}
	logging.Info().Str("session", o.sessionID).Msg("selected session no longer exists")
	o.selectLocked("")
	return nil
}

// Send submits message for the active session and applies the terminal
// outcome. It blocks for the full submit/poll/cleanup span; the send
// affordance (CanSend) is disabled throughout.
func (o *Orchestrator) Send(ctx context.Context, message string) error {
	message = strings.TrimSpace(message)
	if message == "" {
		return ErrEmptyMessage
	}

	o.mu.Lock()
	if o.sessionID == "" {
		o.mu.Unlock()
		return ErrNoSession
	}
	if o.inFlight {
		o.mu.Unlock()
		return ErrBusy
	}
	o.inFlight = true
	epoch := o.epoch
	sid := o.sessionID
	o.appendLocked(history.RoleUser, message)
	o.mu.Unlock()

	result, err := o.engine.Submit(ctx, sid, message)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.inFlight = false

	if errors.Is(err, api.ErrUnauthorized) {
		// Credential invalidation is global, not session state; it applies
		// even when the result below is discarded.
		o.clearCredentials()
	}

	if epoch != o.epoch {
		// The session changed underneath the submission. The remote task
		// ran regardless, but applying its result now would corrupt the
		// newly active session's transcript and stats.
		logging.Info().Str("session", sid).Msg("discarding result for abandoned session")
		return ErrSuperseded
	}

	if err != nil {
		return o.handleFailureLocked(err)
	}
	o.handleResultLocked(result)
	return nil
}

func (o *Orchestrator) handleFailureLocked(err error) error {
	if errors.Is(err, api.ErrUnauthorized) {
		o.appendLocked(history.RoleError, "Authentication failed. Please enter your credentials again.")
		return err
	}
	o.appendLocked(history.RoleError, "Failed to send message: "+err.Error())
	return err
}

func (o *Orchestrator) handleResultLocked(result *api.TaskResult) {
	if result.IsError {
		o.appendLocked(history.RoleError, result.Result)
		return
	}

	if result.SessionID != "" && result.SessionID != o.sessionID {
		// A "new" submission just received its assigned identity.
		o.sessionID = result.SessionID
		o.bus.PublishSync(event.Event{
			Type: event.SessionChanged,
			Data: event.SessionChangedData{SessionID: o.sessionID},
		})
	}
	if o.sessionID != "" {
		if err := o.kv.Set(LastSessionKey, o.sessionID); err != nil {
			logging.Warn().Err(err).Msg("failed to save last-session marker")
		}
	}

	o.turnCount = result.NumTurns
	o.cost += result.TotalCostUSD
	o.appendLocked(history.RoleAssistant, result.Result)
}

// appendLocked adds one message to the transcript, persists the cache, and
// publishes the append. Callers hold the mutex.
func (o *Orchestrator) appendLocked(role history.Role, content string) {
	msg := history.NewMessage(role, content)
	o.transcript = append(o.transcript, msg)
	if err := o.cache.Save(o.transcript); err != nil {
		logging.Warn().Err(err).Msg("failed to save transcript")
	}
	o.bus.PublishSync(event.Event{
		Type: event.MessageAppended,
		Data: event.MessageAppendedData{ID: msg.ID, Role: string(msg.Role), Content: msg.Content},
	})
}

func (o *Orchestrator) clearCredentials() {
	if err := o.creds.Clear(); err != nil {
		logging.Warn().Err(err).Msg("failed to clear credentials")
	}
}
