package api

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidStatusChange means the requested edge is not present or not
	// active in the subject's workflow. Never retried automatically; the
	// caller should make a different routing decision.
	ErrInvalidStatusChange = errors.New("invalid status change")

	// ErrStaleState is the optimistic-concurrency conflict: another writer
	// moved the subject between read and write. Recoverable by re-reading
	// and retrying with a fresh target decision. The engine never retries
	// internally.
	ErrStaleState = errors.New("stale subject state")

	// ErrConfiguration means a status node names a handler identifier that
	// is not registered. The engine fails closed rather than silently
	// skipping expected side effects.
	ErrConfiguration = errors.New("handler not registered")

	// ErrSubjectNotFound means the subject id is unknown to the store.
	ErrSubjectNotFound = errors.New("subject not found")

	// ErrWorkflowNotFound means no definition is registered under the name.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrInvalidRequest means the transition request failed field validation.
	ErrInvalidRequest = errors.New("invalid transition request")
)

// HandlerExecutionError reports that a synchronous hook failed. The whole
// transition was rolled back: status, history row, and any writes the hook
// made through the transaction context are all undone.
type HandlerExecutionError struct {
	SubjectID string
	HandlerID string
	StatusOld StatusCode
	StatusNew StatusCode
	Cause     error
}

func (e *HandlerExecutionError) Error() string {
	return fmt.Sprintf("handler %s failed on %s (%d->%d): %v",
		e.HandlerID, e.SubjectID, e.StatusOld, e.StatusNew, e.Cause)
}

func (e *HandlerExecutionError) Unwrap() error { return e.Cause }
