package api

import "context"

// Engine is the status transition engine surface. Implementations perform no
// business judgment: only graph validation, atomic persistence, and handler
// orchestration. Which target to request is the routing layer's job.
type Engine interface {
	// RegisterWorkflow registers a status graph definition by name.
	RegisterWorkflow(def WorkflowDefinition) error

	// RegisterHandler binds a handler implementation to the identifier used
	// by status nodes. Registering twice for the same id is an error; use a
	// fresh engine per test when swapping handlers.
	RegisterHandler(id string, h Handler) error

	// CreateSubject provisions a subject at its initial status. The initial
	// status is whatever the caller supplies; the engine does not manage it.
	CreateSubject(ctx context.Context, id, workflow string, initial StatusCode) (*Subject, error)

	// RequestTransition validates the requested edge, atomically moves the
	// subject, appends the audit record, runs the bound handler's
	// synchronous hook inside the same unit of work, and schedules the
	// asynchronous hook after commit.
	//
	// Returns ErrInvalidStatusChange, ErrStaleState, ErrConfiguration,
	// ErrSubjectNotFound, ErrInvalidRequest, or *HandlerExecutionError.
	RequestTransition(ctx context.Context, req TransitionRequest) (*TransitionResult, error)

	// IsTransitionAllowed reports whether (from -> to) is an active edge of
	// the named workflow. Unknown workflows fail closed.
	IsTransitionAllowed(workflow string, from, to StatusCode) bool

	// AllowedNextStatuses returns the active outgoing edges from a status.
	// A status with none is terminal; the engine does not special-case
	// terminality beyond "no edge found".
	AllowedNextStatuses(workflow string, from StatusCode) []StatusCode

	// AgentAllowedNextStatuses is AllowedNextStatuses restricted to edges
	// human agents may trigger from a review UI.
	AgentAllowedNextStatuses(workflow string, from StatusCode) []StatusCode

	// GetSubject looks up a subject by id.
	GetSubject(ctx context.Context, id string) (*Subject, error)

	// HistoryFor returns the subject's transition history in append order.
	HistoryFor(ctx context.Context, subjectID string) ([]HistoryRecord, error)
}
