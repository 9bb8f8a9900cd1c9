package taskqueue

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
)

// SQLiteQueue is a persistent task queue backed by SQLite. It uses simple
// FIFO semantics on an auto-incrementing id, with NotBefore gating
// eligibility. Dequeue claims a row by deleting it inside a transaction, so
// a task is delivered to exactly one consumer per delivery.
type SQLiteQueue struct {
	db           *sql.DB
	pollInterval time.Duration
}

// NewSQLiteQueue initializes the tasks table in the given DB and returns a
// new queue.
func NewSQLiteQueue(db *sql.DB) (*SQLiteQueue, error) {
	q := &SQLiteQueue{
		db:           db,
		pollInterval: 20 * time.Millisecond,
	}
	if err := q.initSchema(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *SQLiteQueue) initSchema() error {
	_, err := q.db.Exec(`
		CREATE TABLE IF NOT EXISTS transition_tasks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id TEXT NOT NULL,
			workflow TEXT NOT NULL,
			subject_id TEXT NOT NULL,
			handler_id TEXT NOT NULL,
			status_old INTEGER NOT NULL,
			status_new INTEGER NOT NULL,
			history_id INTEGER NOT NULL,
			enqueued_at INTEGER NOT NULL,
			not_before INTEGER NOT NULL,
			attempts INTEGER NOT NULL
		);
	`)
	return err
}

// Ensure SQLiteQueue implements Queue.
var _ Queue = (*SQLiteQueue)(nil)

func (q *SQLiteQueue) Enqueue(ctx context.Context, t Task) error {
	now := time.Now()
	enqueuedAt := t.EnqueuedAt
	if enqueuedAt.IsZero() {
		enqueuedAt = now
	}
	notBefore := t.NotBefore
	if notBefore.IsZero() {
		notBefore = enqueuedAt
	}

	_, err := q.db.ExecContext(ctx, `
		INSERT INTO transition_tasks (task_id, workflow, subject_id, handler_id, status_old, status_new, history_id, enqueued_at, not_before, attempts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID,
		t.Workflow,
		t.SubjectID,
		t.HandlerID,
		t.StatusOld,
		t.StatusNew,
		t.HistoryID,
		enqueuedAt.UnixNano(),
		notBefore.UnixNano(),
		t.Attempts,
	)
	return errors.Wrap(err, "enqueue transition task")
}

func (q *SQLiteQueue) Dequeue(ctx context.Context) (*Task, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		now := time.Now().UnixNano()

		tx, err := q.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}

		var (
			rowID       int64
			t           Task
			enqueuedInt int64
			notBefore   int64
		)
		row := tx.QueryRowContext(ctx, `
			SELECT id, task_id, workflow, subject_id, handler_id, status_old, status_new, history_id, enqueued_at, not_before, attempts
			FROM transition_tasks
			WHERE not_before <= ?
			ORDER BY not_before, id
			LIMIT 1`, now)
		err = row.Scan(&rowID, &t.ID, &t.Workflow, &t.SubjectID, &t.HandlerID,
			&t.StatusOld, &t.StatusNew, &t.HistoryID, &enqueuedInt, &notBefore, &t.Attempts)
		if err != nil {
			_ = tx.Rollback()
			if errors.Is(err, sql.ErrNoRows) {
				// Nothing eligible: sleep a bit and retry.
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(q.pollInterval):
					continue
				}
			}
			return nil, err
		}

		// Delete the row we just claimed.
		if _, err := tx.ExecContext(ctx, `DELETE FROM transition_tasks WHERE id = ?`, rowID); err != nil {
			_ = tx.Rollback()
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}

		t.EnqueuedAt = time.Unix(0, enqueuedInt)
		t.NotBefore = time.Unix(0, notBefore)
		return &t, nil
	}
}

func (q *SQLiteQueue) Len() int {
	var n int
	if err := q.db.QueryRow(`SELECT COUNT(*) FROM transition_tasks`).Scan(&n); err != nil {
		return 0
	}
	return n
}
