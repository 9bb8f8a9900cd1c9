package api

import "time"

// Subject is the entity whose lifecycle the engine governs (an application or
// a loan, generalized). Its Status field is owned exclusively by the engine:
// no other component may write it directly. Domain payload lives elsewhere.
type Subject struct {
	ID        string
	Workflow  string
	Status    StatusCode
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HistoryRecord is one append-only audit entry: created exactly once per
// successful transition, never mutated or deleted. Folding a subject's
// ordered records from its initial status always reproduces its current
// status.
type HistoryRecord struct {
	ID        int64
	SubjectID string
	StatusOld StatusCode
	StatusNew StatusCode
	Reason    string
	Note      string
	Actor     string
	CreatedAt time.Time
}

// TransitionRequest asks the engine to move a subject to TargetStatus.
type TransitionRequest struct {
	SubjectID    string     `validate:"required"`
	TargetStatus StatusCode `validate:"gte=0"`
	Reason       string
	Note         string
	Actor        string
}

// TransitionResult reports the outcome of a successful RequestTransition.
type TransitionResult struct {
	Success   bool
	StatusOld StatusCode
	StatusNew StatusCode

	// HistoryID is the ledger row created for this transition, zero for the
	// same-status no-op.
	HistoryID int64

	// SideEffects is false for the same-status no-op, where no handler runs
	// and no history is written.
	SideEffects bool

	// AsyncScheduled reports whether the handler's asynchronous hook was
	// enqueued onto the dispatcher after commit.
	AsyncScheduled bool

	// ReasonWarning is set when the supplied reason is absent from a
	// non-empty catalog for the target status. Soft: the transition still
	// committed.
	ReasonWarning bool
}
