// Package taskqueue is the dispatcher substrate the engine hands post-commit
// work to. Delivery is at-least-once; consumers key idempotency off the
// history record id carried in each task.
package taskqueue

import (
	"context"
	"time"
)

// Task asks a worker to run the asynchronous hook for one committed
// transition.
type Task struct {
	// ID is assigned at enqueue time.
	ID string

	Workflow  string
	SubjectID string
	HandlerID string

	StatusOld int
	StatusNew int

	// HistoryID is the idempotency key: redelivery is possible and hooks
	// must treat a repeated id as already done.
	HistoryID int64

	EnqueuedAt time.Time

	// NotBefore is the earliest time this task should be eligible for
	// processing. Zero value means "immediately". Workers use it for
	// backoff on redelivery.
	NotBefore time.Time

	// Attempts counts deliveries so far.
	Attempts int
}

// Queue is a simple async task queue interface.
type Queue interface {
	// Enqueue adds a task to the queue. It should respect ctx for
	// cancellation.
	Enqueue(ctx context.Context, t Task) error

	// Dequeue removes and returns the next eligible task, blocking until
	// one is available or the context is cancelled.
	Dequeue(ctx context.Context) (*Task, error)

	// Len returns the approximate number of tasks queued.
	Len() int
}
