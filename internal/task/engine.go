// Package task implements the submit/poll/cleanup protocol for asynchronous
// agent work.
//
// One submission moves through an explicit state machine:
//
//	Idle -> Submitting -> Polling -> {Completed, Failed, TimedOut}
//
// A single derived context is shared by the poll loop and the progress
// ticker, so both stop together; the engine waits for the ticker goroutine to
// exit before reporting a terminal outcome, which guarantees no stale status
// notice is published after the task concluded.
//
// Retry policy: transient poll failures are retried indefinitely on the fixed
// poll interval. The loop ends only on a terminal task status, an
// authentication failure, or the client-side submission deadline.
package task

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/agentportal/portal/internal/api"
	"github.com/agentportal/portal/internal/event"
	"github.com/agentportal/portal/internal/logging"
)

const (
	// DefaultPollInterval is the cadence of task status polls.
	DefaultPollInterval = 5 * time.Second
	// DefaultProgressInterval is the cadence of status notice updates.
	DefaultProgressInterval = 2 * time.Second
	// DefaultSubmitTimeout is the client-side deadline for one submission.
	DefaultSubmitTimeout = 610 * time.Second
	// DefaultComplexAfter is when the status notice escalates to the
	// complex-task wording.
	DefaultComplexAfter = 60 * time.Second
)

// State is the engine's position in the submission lifecycle.
type State int32

const (
	StateIdle State = iota
	StateSubmitting
	StatePolling
	StateCompleted
	StateFailed
	StateTimedOut
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSubmitting:
		return "submitting"
	case StatePolling:
		return "polling"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	default:
		return "unknown"
	}
}

// Backend is the subset of the API client the engine needs.
type Backend interface {
	SubmitChat(ctx context.Context, sessionID, message string) (string, error)
	GetTask(ctx context.Context, sessionID, taskID string) (*api.Task, error)
	DeleteTask(ctx context.Context, sessionID, taskID string) error
}

// Engine runs the three-phase submit/poll/cleanup protocol.
type Engine struct {
	backend Backend
	bus     *event.Bus

	PollInterval     time.Duration
	ProgressInterval time.Duration
	SubmitTimeout    time.Duration
	ComplexAfter     time.Duration

	state   atomic.Int32
	cleanup sync.WaitGroup
}

// NewEngine creates an engine with the reference timing values.
func NewEngine(backend Backend, bus *event.Bus) *Engine {
	return &Engine{
		backend:          backend,
		bus:              bus,
		PollInterval:     DefaultPollInterval,
		ProgressInterval: DefaultProgressInterval,
		SubmitTimeout:    DefaultSubmitTimeout,
		ComplexAfter:     DefaultComplexAfter,
	}
}

// State reports the engine's current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

// errStillProcessing marks a poll that returned "processing"; the retry loop
// treats it like any other retryable outcome.
var errStillProcessing = errors.New("still processing")

// Submit sends message as a unit of remote work for sessionID (which may be
// api.NewSessionID) and blocks until the task reaches a terminal state, the
// submission deadline elapses, or ctx is cancelled.
//
// Preconditions: message must be non-empty after trimming and sessionID must
// be set; both are rejected before any network call.
func (e *Engine) Submit(ctx context.Context, sessionID, message string) (*api.TaskResult, error) {
	if err := validate(sessionID, message); err != nil {
		return nil, err
	}

	log := logging.With().
		Str("submission", uuid.NewString()).
		Str("session", sessionID).
		Logger()

	ctx, cancel := context.WithTimeout(ctx, e.SubmitTimeout)
	start := time.Now()

	// cancel is shared by the poll loop and the progress ticker; finish is
	// the single place both are stopped.
	var wg sync.WaitGroup
	finish := func(s State, taskID string, errText string) {
		cancel()
		wg.Wait()
		e.setState(s)
		e.bus.PublishSync(event.Event{
			Type: event.TaskFinished,
			Data: event.TaskFinishedData{SessionID: sessionID, TaskID: taskID, Err: errText},
		})
	}

	e.setState(StateSubmitting)
	e.publishProgress(sessionID, 0, "AI is thinking...", false)

	wg.Add(1)
	go e.runTicker(ctx, &wg, sessionID, start)

	taskID, err := e.backend.SubmitChat(ctx, sessionID, message)
	if err != nil {
		err = e.mapSubmitError(err)
		finish(failureState(err), "", err.Error())
		log.Warn().Err(err).Msg("submission rejected")
		return nil, err
	}
	log.Debug().Str("task", taskID).Msg("task created")

	e.setState(StatePolling)

	result, err := e.poll(ctx, sessionID, taskID, &log)
	if err != nil {
		err = e.mapPollError(err)
		finish(failureState(err), taskID, err.Error())
		if errors.Is(err, ErrTaskNotFound) {
			// not_found is a terminal status: the task was consumed as far
			// as the backend is concerned, so clean it up too.
			e.deleteTask(sessionID, taskID, &log)
		}
		log.Warn().Err(err).Msg("submission failed")
		return nil, err
	}

	finish(StateCompleted, taskID, "")
	e.deleteTask(sessionID, taskID, &log)

	log.Info().
		Str("task", taskID).
		Int("turns", result.NumTurns).
		Float64("cost_usd", result.TotalCostUSD).
		Bool("is_error", result.IsError).
		Dur("elapsed", time.Since(start)).
		Msg("task completed")

	return result, nil
}

func validate(sessionID, message string) error {
	if strings.TrimSpace(message) == "" {
		return ErrEmptyMessage
	}
	if sessionID == "" {
		return ErrNoSession
	}
	return nil
}

// poll repeats status checks on the fixed interval until a terminal outcome.
// Transient failures (network errors, malformed responses, unknown statuses)
// are logged and swallowed; authentication failures and not_found are
// permanent.
func (e *Engine) poll(ctx context.Context, sessionID, taskID string, log *zerolog.Logger) (*api.TaskResult, error) {
	var result *api.TaskResult

	operation := func() error {
		task, err := e.backend.GetTask(ctx, sessionID, taskID)
		if err != nil {
			if errors.Is(err, api.ErrUnauthorized) {
				return backoff.Permanent(err)
			}
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			log.Debug().Err(err).Msg("transient poll failure")
			return err
		}

		switch task.Status {
		case api.TaskCompleted:
			if task.Result == nil {
				// Malformed terminal response; treat like a transient and
				// poll again rather than dropping the task on the floor.
				log.Debug().Msg("completed status without result")
				return errStillProcessing
			}
			result = task.Result
			return nil
		case api.TaskNotFound:
			return backoff.Permanent(ErrTaskNotFound)
		case api.TaskProcessing:
			return errStillProcessing
		default:
			log.Debug().Str("status", string(task.Status)).Msg("unknown task status")
			return errStillProcessing
		}
	}

	policy := backoff.WithContext(backoff.NewConstantBackOff(e.PollInterval), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return result, nil
}

// runTicker updates the ephemeral status notice until the shared context is
// cancelled. It owns the escalation to the complex-task wording.
func (e *Engine) runTicker(ctx context.Context, wg *sync.WaitGroup, sessionID string, start time.Time) {
	defer wg.Done()

	ticker := time.NewTicker(e.ProgressInterval)
	defer ticker.Stop()

	escalated := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Re-check cancellation so a tick that raced the cancel does
			// not publish a stale notice.
			if ctx.Err() != nil {
				return
			}
			seconds := int(time.Since(start).Seconds())
			switch {
			case !escalated && time.Since(start) >= e.ComplexAfter:
				escalated = true
				e.publishProgress(sessionID, seconds,
					"Complex task detected, this may take several minutes...", true)
			case escalated:
				e.publishProgress(sessionID, seconds,
					fmt.Sprintf("Still processing... (%ds)", seconds), true)
			default:
				e.publishProgress(sessionID, seconds,
					fmt.Sprintf("AI is thinking... (%ds)", seconds), false)
			}
		}
	}
}

func (e *Engine) publishProgress(sessionID string, seconds int, notice string, escalated bool) {
	e.bus.PublishSync(event.Event{
		Type: event.TaskProgress,
		Data: event.TaskProgressData{
			SessionID:      sessionID,
			ElapsedSeconds: seconds,
			Notice:         notice,
			Escalated:      escalated,
		},
	})
}

func (e *Engine) mapSubmitError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, api.ErrUnauthorized) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("failed to submit message: %w", err)
}

func (e *Engine) mapPollError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

func failureState(err error) State {
	if errors.Is(err, ErrTimeout) {
		return StateTimedOut
	}
	return StateFailed
}

// deleteTask performs the fire-and-forget cleanup phase. It never blocks the
// user-visible flow and its failure is only logged.
func (e *Engine) deleteTask(sessionID, taskID string, log *zerolog.Logger) {
	l := log.With().Str("task", taskID).Logger()
	e.cleanup.Add(1)
	go func() {
		defer e.cleanup.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := e.backend.DeleteTask(ctx, sessionID, taskID); err != nil {
			l.Warn().Err(err).Msg("task cleanup failed")
			return
		}
		l.Debug().Msg("task cleaned up")
	}()
}

// Wait blocks until outstanding cleanup requests have been attempted. Called
// on shutdown so a short-lived process does not exit before the DELETE is
// ever issued.
func (e *Engine) Wait() {
	e.cleanup.Wait()
}
