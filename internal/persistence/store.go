// Package persistence holds the subject store and the append-only audit
// ledger. Both live behind one Store interface because the transition unit
// of work spans them: the conditional status write, the history insert, and
// the synchronous handler hook commit or roll back together.
package persistence

import (
	"context"

	"github.com/pkg/errors"

	"github.com/sajinavi2006/julomvp-sub065/pkg/api"
)

var (
	// ErrSubjectNotFound is returned when a subject id is unknown.
	ErrSubjectNotFound = errors.New("subject not found")

	// ErrDuplicateSubject is returned when creating a subject whose id
	// already exists.
	ErrDuplicateSubject = errors.New("subject already exists")

	// ErrStaleSubject is the optimistic-concurrency conflict: the
	// conditional update matched zero rows because another writer moved the
	// subject first.
	ErrStaleSubject = errors.New("subject status changed concurrently")
)

// Store persists subjects and their transition history.
//
// History is append-only: records are created only inside ApplyTransition
// and no method updates or deletes them.
type Store interface {
	CreateSubject(ctx context.Context, subject *api.Subject) error
	GetSubject(ctx context.Context, id string) (*api.Subject, error)

	// ApplyTransition atomically, in one unit of work:
	//   1. moves the subject from rec.StatusOld to rec.StatusNew with a
	//      compare-and-set guarded by rec.StatusOld (zero rows matched
	//      aborts everything with ErrStaleSubject),
	//   2. appends rec to the history ledger,
	//   3. runs hook (the handler's synchronous phase) inside the same
	//      transaction; a hook error rolls the whole unit back.
	//
	// The transaction handle is injected into the hook's context so hooks
	// can make same-transaction writes (see WithTx/TxFromContext and the
	// gorm equivalents). Returns the new history record id.
	ApplyTransition(ctx context.Context, rec *api.HistoryRecord, hook func(ctx context.Context) error) (int64, error)

	// HistoryFor returns the subject's records in append order. Folding
	// them from the subject's initial status reproduces its current status.
	HistoryFor(ctx context.Context, subjectID string) ([]api.HistoryRecord, error)
}
