package api

import (
	"context"
	"testing"
	"time"
)

type countingObserver struct {
	NoopObserver
	committed int
	rejected  int
}

func (c *countingObserver) OnTransitionCommitted(ctx context.Context, subject *Subject, res *TransitionResult, d time.Duration) {
	c.committed++
}

func (c *countingObserver) OnTransitionRejected(ctx context.Context, subjectID string, target StatusCode, err error) {
	c.rejected++
}

func TestNewCompositeObserver_FiltersNil(t *testing.T) {
	if _, ok := NewCompositeObserver(nil, nil).(NoopObserver); !ok {
		t.Fatalf("all-nil input must collapse to NoopObserver")
	}

	single := &countingObserver{}
	if got := NewCompositeObserver(nil, single, nil); got != Observer(single) {
		t.Fatalf("a single observer must be returned unwrapped")
	}
}

func TestCompositeObserver_FansOut(t *testing.T) {
	a := &countingObserver{}
	b := &countingObserver{}
	obs := NewCompositeObserver(a, b)

	ctx := context.Background()
	subj := &Subject{ID: "app-1", Workflow: "wf", Status: 100}
	obs.OnTransitionCommitted(ctx, subj, &TransitionResult{Success: true}, time.Millisecond)
	obs.OnTransitionRejected(ctx, "app-1", 105, ErrInvalidStatusChange)

	for i, c := range []*countingObserver{a, b} {
		if c.committed != 1 || c.rejected != 1 {
			t.Fatalf("observer %d missed events: committed=%d rejected=%d", i, c.committed, c.rejected)
		}
	}
}

func TestBasicMetrics_Snapshot(t *testing.T) {
	m := &BasicMetrics{}
	ctx := context.Background()
	subj := &Subject{ID: "app-1"}

	m.OnTransitionCommitted(ctx, subj, &TransitionResult{}, 10*time.Millisecond)
	m.OnTransitionCommitted(ctx, subj, &TransitionResult{}, 20*time.Millisecond)
	m.OnTransitionRejected(ctx, "app-1", 105, ErrStaleState)
	m.OnReasonWarning(ctx, "app-1", 135, "felt_like_it")
	m.OnAsyncScheduled(ctx, "app-1", 7)

	snap := m.Snapshot()
	if snap.TransitionsCommitted != 2 {
		t.Fatalf("expected 2 committed, got %d", snap.TransitionsCommitted)
	}
	if snap.TransitionsRejected != 1 {
		t.Fatalf("expected 1 rejected, got %d", snap.TransitionsRejected)
	}
	if snap.ReasonWarnings != 1 || snap.AsyncScheduled != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.AvgDuration != 15*time.Millisecond {
		t.Fatalf("expected 15ms average, got %v", snap.AvgDuration)
	}
}

func TestBasicMetrics_EmptySnapshot(t *testing.T) {
	m := &BasicMetrics{}
	snap := m.Snapshot()
	if snap.AvgDuration != 0 || snap.TransitionsCommitted != 0 {
		t.Fatalf("unexpected zero-state snapshot: %+v", snap)
	}
}

func TestHandlerExecutionError_Unwrap(t *testing.T) {
	cause := ErrConfiguration
	err := &HandlerExecutionError{
		SubjectID: "app-1",
		HandlerID: "h",
		StatusOld: 100,
		StatusNew: 105,
		Cause:     cause,
	}
	if err.Unwrap() != cause {
		t.Fatalf("expected the cause to unwrap")
	}
	if err.Error() == "" {
		t.Fatalf("expected a message")
	}
}
