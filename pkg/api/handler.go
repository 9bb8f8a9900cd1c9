package api

import "context"

// Transition is what synchronous hooks receive: the subject as read before
// the write, both sides of the edge, and the audit fields.
type Transition struct {
	Subject   *Subject
	StatusOld StatusCode
	StatusNew StatusCode
	Reason    string
	Note      string
}

// AsyncTransition is the payload handed to asynchronous hooks by the
// dispatcher. HistoryID is the idempotency key: the queue is at-least-once
// and a hook may see the same record twice.
type AsyncTransition struct {
	SubjectID string
	Workflow  string
	StatusOld StatusCode
	StatusNew StatusCode
	HistoryID int64
}

// Handler is the unit of business logic bound to a status. OnEnter runs
// inside the same unit of work as the status write: if it returns an error
// the whole transition rolls back, so it must not touch resources the store
// cannot roll back (uncompensable external calls belong in the async hook).
type Handler interface {
	OnEnter(ctx context.Context, tr *Transition) error
}

// AsyncHandler is a Handler that also declares a post-commit hook. The engine
// detects it by interface upgrade; handlers without it simply schedule
// nothing.
type AsyncHandler interface {
	Handler
	OnEnterAsync(ctx context.Context, tr AsyncTransition) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, tr *Transition) error

func (f HandlerFunc) OnEnter(ctx context.Context, tr *Transition) error { return f(ctx, tr) }

// NoopHandler accepts every transition and does nothing.
type NoopHandler struct{}

func (NoopHandler) OnEnter(ctx context.Context, tr *Transition) error { return nil }
