package taskqueue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryQueue_EnqueueDequeueFIFO(t *testing.T) {
	q := NewInMemoryQueue(16)
	ctx := context.Background()

	for i, id := range []string{"t1", "t2", "t3"} {
		task := Task{ID: id, SubjectID: "app-1", HandlerID: "h", HistoryID: int64(i + 1)}
		if err := q.Enqueue(ctx, task); err != nil {
			t.Fatalf("Enqueue %s failed: %v", id, err)
		}
	}
	if q.Len() != 3 {
		t.Fatalf("expected Len 3, got %d", q.Len())
	}

	for _, want := range []string{"t1", "t2", "t3"} {
		got, err := q.Dequeue(ctx)
		if err != nil {
			t.Fatalf("Dequeue failed: %v", err)
		}
		if got.ID != want {
			t.Fatalf("expected task %s, got %s", want, got.ID)
		}
	}
}

func TestInMemoryQueue_DequeueBlocksUntilCancelled(t *testing.T) {
	q := NewInMemoryQueue(1)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := q.Dequeue(ctx)
	if err == nil {
		t.Fatalf("expected a context error on empty queue")
	}
}

func TestInMemoryQueue_NotBeforeDelaysDelivery(t *testing.T) {
	q := NewInMemoryQueue(1)
	ctx := context.Background()

	delay := 40 * time.Millisecond
	task := Task{ID: "delayed", NotBefore: time.Now().Add(delay)}
	if err := q.Enqueue(ctx, task); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	start := time.Now()
	got, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue failed: %v", err)
	}
	if got.ID != "delayed" {
		t.Fatalf("unexpected task %s", got.ID)
	}
	if elapsed := time.Since(start); elapsed < delay {
		t.Fatalf("task delivered %v early", delay-elapsed)
	}
}

func TestInMemoryQueue_CancelDuringDelayKeepsTask(t *testing.T) {
	q := NewInMemoryQueue(1)

	task := Task{ID: "delayed", NotBefore: time.Now().Add(time.Hour)}
	if err := q.Enqueue(context.Background(), task); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := q.Dequeue(ctx); err == nil {
		t.Fatalf("expected a context error")
	}

	if q.Len() != 1 {
		t.Fatalf("task must be returned to the queue on cancellation, Len=%d", q.Len())
	}
}
