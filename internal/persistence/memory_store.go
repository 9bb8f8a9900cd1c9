package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/sajinavi2006/julomvp-sub065/pkg/api"
)

// MemoryStore is an in-memory Store, non-durable, for tests and embedding.
type MemoryStore struct {
	mu       sync.RWMutex
	subjects map[string]*api.Subject
	history  map[string][]api.HistoryRecord
	nextID   int64
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subjects: make(map[string]*api.Subject),
		history:  make(map[string][]api.HistoryRecord),
	}
}

func (s *MemoryStore) CreateSubject(ctx context.Context, subject *api.Subject) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subjects[subject.ID]; ok {
		return ErrDuplicateSubject
	}
	now := time.Now()
	cp := *subject
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.subjects[subject.ID] = &cp
	subject.CreatedAt = now
	subject.UpdatedAt = now
	return nil
}

func (s *MemoryStore) GetSubject(ctx context.Context, id string) (*api.Subject, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	subj, ok := s.subjects[id]
	if !ok {
		return nil, ErrSubjectNotFound
	}
	cp := *subj
	return &cp, nil
}

// ApplyTransition serializes the whole unit of work under the store lock:
// the precondition check, the hook, and the writes happen atomically, so a
// losing racer's hook never runs and a failing hook leaves nothing behind.
// Hooks must not call back into this store.
func (s *MemoryStore) ApplyTransition(ctx context.Context, rec *api.HistoryRecord, hook func(ctx context.Context) error) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subj, ok := s.subjects[rec.SubjectID]
	if !ok {
		return 0, ErrSubjectNotFound
	}
	if subj.Status != rec.StatusOld {
		return 0, ErrStaleSubject
	}

	if hook != nil {
		if err := hook(ctx); err != nil {
			return 0, err
		}
	}

	now := time.Now()
	subj.Status = rec.StatusNew
	subj.UpdatedAt = now

	s.nextID++
	stored := *rec
	stored.ID = s.nextID
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	s.history[rec.SubjectID] = append(s.history[rec.SubjectID], stored)
	return stored.ID, nil
}

func (s *MemoryStore) HistoryFor(ctx context.Context, subjectID string) ([]api.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.history[subjectID]
	out := make([]api.HistoryRecord, len(recs))
	copy(out, recs)
	return out, nil
}
