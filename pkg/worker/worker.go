package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/sajinavi2006/julomvp-sub065/internal/registry"
	"github.com/sajinavi2006/julomvp-sub065/internal/taskqueue"
	"github.com/sajinavi2006/julomvp-sub065/pkg/api"
)

// Config controls redelivery behavior for asynchronous hooks.
type Config struct {
	// MaxAttempts is the total number of delivery attempts per task,
	// including the first. Values below 1 are treated as 1.
	MaxAttempts int

	// Backoff is the delay before a failed task becomes visible again.
	// The delay grows linearly with the attempt number.
	Backoff time.Duration
}

// Worker pulls transition tasks from a Queue and delivers them to the
// asynchronous hook of the handler each task names. Handlers must be
// idempotent per history id: delivery is at-least-once.
type Worker struct {
	queue    taskqueue.Queue
	handlers *registry.Registry
	config   Config
	logger   *slog.Logger
}

// New creates a Worker with single-attempt delivery.
func New(queue taskqueue.Queue, handlers *registry.Registry) *Worker {
	return NewWithConfig(queue, handlers, Config{MaxAttempts: 1})
}

// NewWithConfig creates a Worker with the given redelivery configuration.
func NewWithConfig(queue taskqueue.Queue, handlers *registry.Registry, cfg Config) *Worker {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Worker{
		queue:    queue,
		handlers: handlers,
		config:   cfg,
		logger:   slog.Default(),
	}
}

// WithLogger replaces the worker's logger. Returns the worker for chaining.
func (w *Worker) WithLogger(logger *slog.Logger) *Worker {
	if logger != nil {
		w.logger = logger
	}
	return w
}

// ProcessOne pulls a single task from the queue and delivers it.
// Returns (processed, error):
//   - processed == false: no task was obtained (ctx cancelled or dequeue error)
//   - processed == true: a task was delivered; err reports a delivery failure
//     that exhausted its attempts. Failures with attempts remaining are
//     re-enqueued and reported as processed with a nil error.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	task, err := w.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}
	return true, w.deliver(ctx, task)
}

// Run processes tasks until ctx is cancelled. Delivery failures are logged
// and do not stop the loop.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if _, err := w.ProcessOne(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			w.logger.WarnContext(ctx, "async hook delivery failed",
				slog.Any("error", err),
			)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

func (w *Worker) deliver(ctx context.Context, task *taskqueue.Task) error {
	task.Attempts++

	h, err := w.handlers.Resolve(task.HandlerID)
	if err != nil {
		// No handler to retry against; drop the task.
		return errors.Wrapf(err, "task %s for subject %s", task.ID, task.SubjectID)
	}
	async, ok := h.(api.AsyncHandler)
	if !ok {
		return errors.Errorf("handler %s has no asynchronous hook (task %s)", task.HandlerID, task.ID)
	}

	tr := api.AsyncTransition{
		SubjectID: task.SubjectID,
		Workflow:  task.Workflow,
		StatusOld: api.StatusCode(task.StatusOld),
		StatusNew: api.StatusCode(task.StatusNew),
		HistoryID: task.HistoryID,
	}
	if err := async.OnEnterAsync(ctx, tr); err != nil {
		if task.Attempts >= w.config.MaxAttempts {
			return errors.Wrapf(err, "handler %s exhausted %d attempts for subject %s",
				task.HandlerID, task.Attempts, task.SubjectID)
		}
		retry := *task
		retry.NotBefore = time.Now().Add(w.config.Backoff * time.Duration(task.Attempts))
		if qerr := w.queue.Enqueue(ctx, retry); qerr != nil {
			return errors.Wrapf(qerr, "re-enqueue of task %s after handler failure", task.ID)
		}
		w.logger.DebugContext(ctx, "async hook redelivery scheduled",
			slog.String("subject_id", task.SubjectID),
			slog.String("handler_id", task.HandlerID),
			slog.Int("attempt", task.Attempts),
		)
		return nil
	}
	return nil
}
