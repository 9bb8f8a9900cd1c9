package persistence

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/sajinavi2006/julomvp-sub065/pkg/api"
)

type txKey struct{}

// WithTx attaches the unit-of-work transaction to a context. The SQL store
// does this before invoking the synchronous hook.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// TxFromContext returns the transaction the current hook is running inside,
// if any. Hooks that write domain state should use it so their writes roll
// back with the transition.
func TxFromContext(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*sql.Tx)
	return tx, ok
}

// SQLStore is a Store backed by SQLite.
//
// It expects an *sql.DB that uses a SQLite driver (for example,
// "modernc.org/sqlite"). The caller is responsible for importing the driver:
//
//	import _ "modernc.org/sqlite"
type SQLStore struct {
	db *sql.DB
}

var _ Store = (*SQLStore)(nil)

// NewSQLStore initializes the subject and history schema in the given
// database and returns a new SQLStore.
func NewSQLStore(db *sql.DB) (*SQLStore, error) {
	s := &SQLStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) initSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS subjects (
			id TEXT PRIMARY KEY,
			workflow TEXT NOT NULL,
			status INTEGER NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS status_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			subject_id TEXT NOT NULL,
			status_old INTEGER NOT NULL,
			status_new INTEGER NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			note TEXT NOT NULL DEFAULT '',
			actor TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_status_history_subject ON status_history(subject_id, id);
	`)
	return err
}

func (s *SQLStore) CreateSubject(ctx context.Context, subject *api.Subject) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO subjects (id, workflow, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)`,
		subject.ID,
		subject.Workflow,
		int(subject.Status),
		now.UnixNano(),
		now.UnixNano(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSubject
		}
		return errors.Wrap(err, "insert subject")
	}
	subject.CreatedAt = now
	subject.UpdatedAt = now
	return nil
}

func (s *SQLStore) GetSubject(ctx context.Context, id string) (*api.Subject, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, workflow, status, created_at, updated_at
		FROM subjects
		WHERE id = ?`, id)
	return scanSubject(row)
}

func (s *SQLStore) ApplyTransition(ctx context.Context, rec *api.HistoryRecord, hook func(ctx context.Context) error) (historyID int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "begin transition")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now()

	// Compare-and-set: the WHERE clause closes the race window between two
	// concurrent requests for the same subject.
	res, err := tx.ExecContext(ctx, `
		UPDATE subjects
		SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		int(rec.StatusNew),
		now.UnixNano(),
		rec.SubjectID,
		int(rec.StatusOld),
	)
	if err != nil {
		return 0, errors.Wrap(err, "update subject status")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if affected == 0 {
		// Zero rows means either an unknown subject or a lost race;
		// distinguish so callers can tell a provisioning bug from a retry.
		var one int
		scanErr := tx.QueryRowContext(ctx,
			`SELECT 1 FROM subjects WHERE id = ?`, rec.SubjectID).Scan(&one)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return 0, ErrSubjectNotFound
		}
		if scanErr != nil {
			return 0, scanErr
		}
		return 0, ErrStaleSubject
	}

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	ins, err := tx.ExecContext(ctx, `
		INSERT INTO status_history (subject_id, status_old, status_new, reason, note, actor, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.SubjectID,
		int(rec.StatusOld),
		int(rec.StatusNew),
		rec.Reason,
		rec.Note,
		rec.Actor,
		createdAt.UnixNano(),
	)
	if err != nil {
		return 0, errors.Wrap(err, "append history")
	}
	historyID, err = ins.LastInsertId()
	if err != nil {
		return 0, err
	}

	if hook != nil {
		if hookErr := hook(WithTx(ctx, tx)); hookErr != nil {
			err = hookErr
			return 0, err
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "commit transition")
	}
	return historyID, nil
}

func (s *SQLStore) HistoryFor(ctx context.Context, subjectID string) ([]api.HistoryRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, subject_id, status_old, status_new, reason, note, actor, created_at
		FROM status_history
		WHERE subject_id = ?
		ORDER BY id ASC`, subjectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []api.HistoryRecord
	for rows.Next() {
		var (
			rec        api.HistoryRecord
			oldN, newN int
			createdAt  int64
		)
		if err := rows.Scan(&rec.ID, &rec.SubjectID, &oldN, &newN, &rec.Reason, &rec.Note, &rec.Actor, &createdAt); err != nil {
			return nil, err
		}
		rec.StatusOld = api.StatusCode(oldN)
		rec.StatusNew = api.StatusCode(newN)
		rec.CreatedAt = time.Unix(0, createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanSubject(row *sql.Row) (*api.Subject, error) {
	var (
		subj      api.Subject
		status    int
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&subj.ID, &subj.Workflow, &status, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSubjectNotFound
		}
		return nil, err
	}
	subj.Status = api.StatusCode(status)
	subj.CreatedAt = time.Unix(0, createdAt)
	subj.UpdatedAt = time.Unix(0, updatedAt)
	return &subj, nil
}

func isUniqueViolation(err error) bool {
	// modernc.org/sqlite reports constraint failures in the error text;
	// there is no portable sentinel across database/sql drivers.
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint") || strings.Contains(msg, "constraint failed")
}
