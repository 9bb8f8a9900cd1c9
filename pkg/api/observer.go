package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the transition engine for logging and
// metrics.
//
// Implementations should be fast and non-blocking; heavy work should be done
// asynchronously so as not to delay transitions.
type Observer interface {
	// OnTransitionStart is called after the subject has been read, before
	// validation.
	OnTransitionStart(ctx context.Context, subject *Subject, target StatusCode)

	// OnTransitionCommitted is called once the unit of work has committed.
	OnTransitionCommitted(ctx context.Context, subject *Subject, res *TransitionResult, duration time.Duration)

	// OnTransitionRejected is called for every failed request: invalid edge,
	// stale state, handler failure, configuration error.
	OnTransitionRejected(ctx context.Context, subjectID string, target StatusCode, err error)

	// OnReasonWarning is called when a supplied reason misses a non-empty
	// catalog for the target status. The transition still proceeds.
	OnReasonWarning(ctx context.Context, subjectID string, target StatusCode, reason string)

	// OnAsyncScheduled is called after the asynchronous hook has been
	// enqueued onto the dispatcher.
	OnAsyncScheduled(ctx context.Context, subjectID string, historyID int64)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnTransitionStart(ctx context.Context, subject *Subject, target StatusCode) {}
func (NoopObserver) OnTransitionCommitted(ctx context.Context, subject *Subject, res *TransitionResult, d time.Duration) {
}
func (NoopObserver) OnTransitionRejected(ctx context.Context, subjectID string, target StatusCode, err error) {
}
func (NoopObserver) OnReasonWarning(ctx context.Context, subjectID string, target StatusCode, reason string) {
}
func (NoopObserver) OnAsyncScheduled(ctx context.Context, subjectID string, historyID int64) {}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnTransitionStart(ctx context.Context, subject *Subject, target StatusCode) {
	for _, o := range c.observers {
		o.OnTransitionStart(ctx, subject, target)
	}
}

func (c *CompositeObserver) OnTransitionCommitted(ctx context.Context, subject *Subject, res *TransitionResult, d time.Duration) {
	for _, o := range c.observers {
		o.OnTransitionCommitted(ctx, subject, res, d)
	}
}

func (c *CompositeObserver) OnTransitionRejected(ctx context.Context, subjectID string, target StatusCode, err error) {
	for _, o := range c.observers {
		o.OnTransitionRejected(ctx, subjectID, target, err)
	}
}

func (c *CompositeObserver) OnReasonWarning(ctx context.Context, subjectID string, target StatusCode, reason string) {
	for _, o := range c.observers {
		o.OnReasonWarning(ctx, subjectID, target, reason)
	}
}

func (c *CompositeObserver) OnAsyncScheduled(ctx context.Context, subjectID string, historyID int64) {
	for _, o := range c.observers {
		o.OnAsyncScheduled(ctx, subjectID, historyID)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs transition lifecycle
// events using the provided slog.Logger. If logger is nil, slog.Default()
// is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnTransitionStart(ctx context.Context, subject *Subject, target StatusCode) {
	o.Logger.DebugContext(ctx, "transition_start",
		slog.String("subject_id", subject.ID),
		slog.String("workflow", subject.Workflow),
		slog.Int("status_current", int(subject.Status)),
		slog.Int("status_target", int(target)),
	)
}

func (o *LoggingObserver) OnTransitionCommitted(ctx context.Context, subject *Subject, res *TransitionResult, d time.Duration) {
	o.Logger.InfoContext(ctx, "transition_committed",
		slog.String("subject_id", subject.ID),
		slog.String("workflow", subject.Workflow),
		slog.Int("status_old", int(res.StatusOld)),
		slog.Int("status_new", int(res.StatusNew)),
		slog.Int64("history_id", res.HistoryID),
		slog.Bool("async_scheduled", res.AsyncScheduled),
		slog.Duration("duration", d),
	)
}

func (o *LoggingObserver) OnTransitionRejected(ctx context.Context, subjectID string, target StatusCode, err error) {
	o.Logger.ErrorContext(ctx, "transition_rejected",
		slog.String("subject_id", subjectID),
		slog.Int("status_target", int(target)),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnReasonWarning(ctx context.Context, subjectID string, target StatusCode, reason string) {
	o.Logger.WarnContext(ctx, "change_reason_unknown",
		slog.String("subject_id", subjectID),
		slog.Int("status_target", int(target)),
		slog.String("reason", reason),
	)
}

func (o *LoggingObserver) OnAsyncScheduled(ctx context.Context, subjectID string, historyID int64) {
	o.Logger.DebugContext(ctx, "async_hook_scheduled",
		slog.String("subject_id", subjectID),
		slog.Int64("history_id", historyID),
	)
}

// BasicMetrics collects simple counters and aggregate transition durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	transitionsCommitted atomic.Int64
	transitionsRejected  atomic.Int64
	reasonWarnings       atomic.Int64
	asyncScheduled       atomic.Int64
	totalDuration        atomic.Int64 // nanoseconds
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	TransitionsCommitted int64
	TransitionsRejected  int64
	ReasonWarnings       int64
	AsyncScheduled       int64
	AvgDuration          time.Duration
}

func (m *BasicMetrics) OnTransitionCommitted(ctx context.Context, subject *Subject, res *TransitionResult, d time.Duration) {
	m.transitionsCommitted.Add(1)
	m.totalDuration.Add(d.Nanoseconds())
}

func (m *BasicMetrics) OnTransitionRejected(ctx context.Context, subjectID string, target StatusCode, err error) {
	m.transitionsRejected.Add(1)
}

func (m *BasicMetrics) OnReasonWarning(ctx context.Context, subjectID string, target StatusCode, reason string) {
	m.reasonWarnings.Add(1)
}

func (m *BasicMetrics) OnAsyncScheduled(ctx context.Context, subjectID string, historyID int64) {
	m.asyncScheduled.Add(1)
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	committed := m.transitionsCommitted.Load()
	totalNs := m.totalDuration.Load()

	var avg time.Duration
	if committed > 0 {
		avg = time.Duration(totalNs / committed)
	}

	return BasicMetricsSnapshot{
		TransitionsCommitted: committed,
		TransitionsRejected:  m.transitionsRejected.Load(),
		ReasonWarnings:       m.reasonWarnings.Load(),
		AsyncScheduled:       m.asyncScheduled.Load(),
		AvgDuration:          avg,
	}
}
