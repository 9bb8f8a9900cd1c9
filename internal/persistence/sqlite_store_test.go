package persistence

import (
	"context"
	"database/sql"
	"testing"

	"github.com/pkg/errors"

	"github.com/sajinavi2006/julomvp-sub065/pkg/api"

	_ "modernc.org/sqlite"
)

func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	// The in-memory database disappears with its last connection.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		_ = db.Close()
	})

	s, err := NewSQLStore(db)
	if err != nil {
		t.Fatalf("NewSQLStore failed: %v", err)
	}
	return s
}

func TestSQLStore_CreateAndGet(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()

	createTestSubject(t, s, "app-1", 100)

	got, err := s.GetSubject(ctx, "app-1")
	if err != nil {
		t.Fatalf("GetSubject failed: %v", err)
	}
	if got.Status != 100 || got.Workflow != "loan-origination" {
		t.Fatalf("unexpected subject: %+v", got)
	}
}

func TestSQLStore_DuplicateSubject(t *testing.T) {
	s := newTestSQLStore(t)
	createTestSubject(t, s, "app-1", 100)

	err := s.CreateSubject(context.Background(), &api.Subject{ID: "app-1", Workflow: "loan-origination"})
	if !errors.Is(err, ErrDuplicateSubject) {
		t.Fatalf("expected ErrDuplicateSubject, got %v", err)
	}
}

func TestSQLStore_GetUnknownSubject(t *testing.T) {
	s := newTestSQLStore(t)
	_, err := s.GetSubject(context.Background(), "nope")
	if !errors.Is(err, ErrSubjectNotFound) {
		t.Fatalf("expected ErrSubjectNotFound, got %v", err)
	}
}

func TestSQLStore_ApplyTransition(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()
	createTestSubject(t, s, "app-1", 100)

	id, err := s.ApplyTransition(ctx, &api.HistoryRecord{
		SubjectID: "app-1",
		StatusOld: 100,
		StatusNew: 105,
		Reason:    "form_submitted",
		Actor:     "system",
	}, nil)
	if err != nil {
		t.Fatalf("ApplyTransition failed: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected a history id")
	}

	got, err := s.GetSubject(ctx, "app-1")
	if err != nil {
		t.Fatalf("GetSubject failed: %v", err)
	}
	if got.Status != 105 {
		t.Fatalf("expected status 105, got %d", got.Status)
	}

	hist, err := s.HistoryFor(ctx, "app-1")
	if err != nil {
		t.Fatalf("HistoryFor failed: %v", err)
	}
	if len(hist) != 1 {
		t.Fatalf("expected one record, got %d", len(hist))
	}
	rec := hist[0]
	if rec.ID != id || rec.StatusOld != 100 || rec.StatusNew != 105 || rec.Reason != "form_submitted" || rec.Actor != "system" {
		t.Fatalf("unexpected record: %+v", rec)
	}
}

func TestSQLStore_ApplyTransitionStale(t *testing.T) {
	s := newTestSQLStore(t)
	createTestSubject(t, s, "app-1", 105)

	_, err := s.ApplyTransition(context.Background(), &api.HistoryRecord{
		SubjectID: "app-1",
		StatusOld: 100,
		StatusNew: 120,
	}, nil)
	if !errors.Is(err, ErrStaleSubject) {
		t.Fatalf("expected ErrStaleSubject, got %v", err)
	}
}

func TestSQLStore_ApplyTransitionUnknownSubject(t *testing.T) {
	s := newTestSQLStore(t)
	_, err := s.ApplyTransition(context.Background(), &api.HistoryRecord{
		SubjectID: "nope",
		StatusOld: 100,
		StatusNew: 105,
	}, nil)
	if !errors.Is(err, ErrSubjectNotFound) {
		t.Fatalf("expected ErrSubjectNotFound, got %v", err)
	}
}

func TestSQLStore_HookFailureRollsBackEverything(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()
	createTestSubject(t, s, "app-1", 100)

	boom := errors.New("side effect failed")
	_, err := s.ApplyTransition(ctx, &api.HistoryRecord{
		SubjectID: "app-1",
		StatusOld: 100,
		StatusNew: 105,
	}, func(ctx context.Context) error {
		// The hook sees the uncommitted writes through the shared tx.
		tx, ok := TxFromContext(ctx)
		if !ok {
			t.Errorf("expected the unit-of-work transaction in the hook context")
			return boom
		}
		var status int
		if scanErr := tx.QueryRowContext(ctx,
			`SELECT status FROM subjects WHERE id = ?`, "app-1").Scan(&status); scanErr != nil {
			t.Errorf("hook read failed: %v", scanErr)
		} else if status != 105 {
			t.Errorf("hook must see the pending status 105, got %d", status)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected hook error, got %v", err)
	}

	got, _ := s.GetSubject(ctx, "app-1")
	if got.Status != 100 {
		t.Fatalf("status must roll back with the hook, got %d", got.Status)
	}
	hist, _ := s.HistoryFor(ctx, "app-1")
	if len(hist) != 0 {
		t.Fatalf("history must roll back with the hook, got %d records", len(hist))
	}
}

func TestSQLStore_HookWritesCommitWithTransition(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()
	createTestSubject(t, s, "app-1", 100)

	if _, err := s.db.Exec(`CREATE TABLE side_effects (subject_id TEXT NOT NULL)`); err != nil {
		t.Fatalf("create table failed: %v", err)
	}

	_, err := s.ApplyTransition(ctx, &api.HistoryRecord{
		SubjectID: "app-1",
		StatusOld: 100,
		StatusNew: 105,
	}, func(ctx context.Context) error {
		tx, ok := TxFromContext(ctx)
		if !ok {
			return errors.New("missing transaction")
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO side_effects (subject_id) VALUES (?)`, "app-1")
		return err
	})
	if err != nil {
		t.Fatalf("ApplyTransition failed: %v", err)
	}

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM side_effects`).Scan(&n); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected the hook write to commit with the transition, got %d rows", n)
	}
}

func TestSQLStore_HistoryFoldReproducesStatus(t *testing.T) {
	s := newTestSQLStore(t)
	ctx := context.Background()
	createTestSubject(t, s, "app-1", 100)

	steps := []struct{ from, to api.StatusCode }{
		{100, 105},
		{105, 120},
		{120, 105},
		{105, 135},
	}
	for _, step := range steps {
		if _, err := s.ApplyTransition(ctx, &api.HistoryRecord{
			SubjectID: "app-1",
			StatusOld: step.from,
			StatusNew: step.to,
		}, nil); err != nil {
			t.Fatalf("ApplyTransition %d->%d failed: %v", step.from, step.to, err)
		}
	}

	hist, err := s.HistoryFor(ctx, "app-1")
	if err != nil {
		t.Fatalf("HistoryFor failed: %v", err)
	}
	status := api.StatusCode(100)
	for i, rec := range hist {
		if rec.StatusOld != status {
			t.Fatalf("record %d: expected StatusOld %d, got %d", i, status, rec.StatusOld)
		}
		status = rec.StatusNew
	}
	subj, _ := s.GetSubject(ctx, "app-1")
	if status != subj.Status {
		t.Fatalf("folded status %d does not match current status %d", status, subj.Status)
	}
}
