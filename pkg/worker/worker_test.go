package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/sajinavi2006/julomvp-sub065/internal/registry"
	"github.com/sajinavi2006/julomvp-sub065/internal/taskqueue"
	"github.com/sajinavi2006/julomvp-sub065/pkg/api"
)

// recordingHandler records async deliveries and fails the first `failures`
// of them.
type recordingHandler struct {
	mu        sync.Mutex
	delivered []api.AsyncTransition
	failures  int
}

func (h *recordingHandler) OnEnter(ctx context.Context, tr *api.Transition) error { return nil }

func (h *recordingHandler) OnEnterAsync(ctx context.Context, tr api.AsyncTransition) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.delivered = append(h.delivered, tr)
	if len(h.delivered) <= h.failures {
		return errors.New("downstream unavailable")
	}
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.delivered)
}

func newTestWorker(t *testing.T, h api.Handler, cfg Config) (*Worker, taskqueue.Queue) {
	t.Helper()
	handlers := registry.New()
	if err := handlers.Register("trigger_denied", h); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	q := taskqueue.NewInMemoryQueue(16)
	return NewWithConfig(q, handlers, cfg), q
}

func denialTask() taskqueue.Task {
	return taskqueue.Task{
		ID:        "t1",
		Workflow:  "loan-origination",
		SubjectID: "app-1",
		HandlerID: "trigger_denied",
		StatusOld: 105,
		StatusNew: 135,
		HistoryID: 42,
	}
}

func TestWorker_ProcessOneDelivers(t *testing.T) {
	h := &recordingHandler{}
	w, q := newTestWorker(t, h, Config{MaxAttempts: 1})
	ctx := context.Background()

	if err := q.Enqueue(ctx, denialTask()); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	processed, err := w.ProcessOne(ctx)
	if err != nil {
		t.Fatalf("ProcessOne failed: %v", err)
	}
	if !processed {
		t.Fatalf("expected a task to be processed")
	}
	if h.count() != 1 {
		t.Fatalf("expected one delivery, got %d", h.count())
	}

	tr := h.delivered[0]
	if tr.SubjectID != "app-1" || tr.HistoryID != 42 || tr.StatusOld != 105 || tr.StatusNew != 135 {
		t.Fatalf("unexpected payload: %+v", tr)
	}
}

func TestWorker_ProcessOneNoTask(t *testing.T) {
	h := &recordingHandler{}
	w, _ := newTestWorker(t, h, Config{MaxAttempts: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	processed, err := w.ProcessOne(ctx)
	if processed {
		t.Fatalf("nothing should be processed on an empty queue")
	}
	if err == nil {
		t.Fatalf("expected a context error")
	}
}

func TestWorker_FailureReenqueuedUntilSuccess(t *testing.T) {
	h := &recordingHandler{failures: 2}
	w, q := newTestWorker(t, h, Config{MaxAttempts: 5, Backoff: time.Millisecond})
	ctx := context.Background()

	if err := q.Enqueue(ctx, denialTask()); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	for i := 0; i < 3; i++ {
		processed, err := w.ProcessOne(ctx)
		if err != nil {
			t.Fatalf("attempt %d failed: %v", i+1, err)
		}
		if !processed {
			t.Fatalf("attempt %d processed nothing", i+1)
		}
	}
	if h.count() != 3 {
		t.Fatalf("expected 3 deliveries, got %d", h.count())
	}
	if q.Len() != 0 {
		t.Fatalf("queue must be empty after success, got %d", q.Len())
	}
}

func TestWorker_ExhaustedAttemptsReported(t *testing.T) {
	h := &recordingHandler{failures: 100}
	w, q := newTestWorker(t, h, Config{MaxAttempts: 2, Backoff: time.Millisecond})
	ctx := context.Background()

	if err := q.Enqueue(ctx, denialTask()); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	// First delivery fails and is re-enqueued.
	processed, err := w.ProcessOne(ctx)
	if !processed || err != nil {
		t.Fatalf("first attempt: processed=%v err=%v", processed, err)
	}

	// Second delivery exhausts the attempt limit.
	processed, err = w.ProcessOne(ctx)
	if !processed {
		t.Fatalf("second attempt processed nothing")
	}
	if err == nil {
		t.Fatalf("expected the exhausted failure to surface")
	}
	if q.Len() != 0 {
		t.Fatalf("an exhausted task must not be re-enqueued, got %d", q.Len())
	}
}

func TestWorker_UnknownHandlerDropsTask(t *testing.T) {
	handlers := registry.New()
	q := taskqueue.NewInMemoryQueue(16)
	w := New(q, handlers)
	ctx := context.Background()

	if err := q.Enqueue(ctx, denialTask()); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	processed, err := w.ProcessOne(ctx)
	if !processed {
		t.Fatalf("the task must be consumed")
	}
	if !errors.Is(err, api.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if q.Len() != 0 {
		t.Fatalf("a task without a handler must not loop forever, got %d", q.Len())
	}
}

// syncOnly has no asynchronous phase at all.
type syncOnly struct{}

func (syncOnly) OnEnter(ctx context.Context, tr *api.Transition) error { return nil }

func TestWorker_SyncOnlyHandlerIsAnError(t *testing.T) {
	w, q := newTestWorker(t, syncOnly{}, Config{MaxAttempts: 1})
	ctx := context.Background()

	if err := q.Enqueue(ctx, denialTask()); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	processed, err := w.ProcessOne(ctx)
	if !processed || err == nil {
		t.Fatalf("expected a delivery error for a handler without an async phase, processed=%v err=%v", processed, err)
	}
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	h := &recordingHandler{}
	w, q := newTestWorker(t, h, Config{MaxAttempts: 1})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	if err := q.Enqueue(context.Background(), denialTask()); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	deadline := time.After(time.Second)
	for h.count() == 0 {
		select {
		case <-deadline:
			t.Fatalf("task was never delivered")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("Run must return the context error")
		}
	case <-time.After(time.Second):
		t.Fatalf("Run did not stop after cancellation")
	}
}
