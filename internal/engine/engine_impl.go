// Package engine implements the transition core: edge validation against the
// graph store, the atomic status write + audit append + synchronous hook,
// and post-commit scheduling of asynchronous hooks. It performs no business
// judgment; choosing the target status is the routing layer's job.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/sajinavi2006/julomvp-sub065/internal/graph"
	"github.com/sajinavi2006/julomvp-sub065/internal/persistence"
	"github.com/sajinavi2006/julomvp-sub065/internal/registry"
	"github.com/sajinavi2006/julomvp-sub065/internal/taskqueue"
	"github.com/sajinavi2006/julomvp-sub065/pkg/api"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config describes how to construct an engine. Only used inside this module;
// external callers use the root package constructors.
type Config struct {
	Graph    graph.Store
	Store    persistence.Store
	Handlers *registry.Registry

	// Queue is the dispatcher for asynchronous hooks. Nil disables async
	// scheduling entirely.
	Queue taskqueue.Queue

	Observer api.Observer
}

type engineImpl struct {
	graph    graph.Store
	store    persistence.Store
	handlers *registry.Registry
	queue    taskqueue.Queue
	observer api.Observer
}

// workflowRegistrar is implemented by mutable graph stores; SQL-loaded
// snapshots are provisioned externally and reject registration.
type workflowRegistrar interface {
	Register(def api.WorkflowDefinition) error
}

// New creates an engine from cfg. Graph and Store are required.
func New(cfg Config) (api.Engine, error) {
	if cfg.Graph == nil {
		return nil, errors.New("engine: graph store is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("engine: subject store is required")
	}
	if cfg.Handlers == nil {
		cfg.Handlers = registry.New()
	}
	if cfg.Observer == nil {
		cfg.Observer = api.NoopObserver{}
	}
	return &engineImpl{
		graph:    cfg.Graph,
		store:    cfg.Store,
		handlers: cfg.Handlers,
		queue:    cfg.Queue,
		observer: cfg.Observer,
	}, nil
}

func (e *engineImpl) RegisterWorkflow(def api.WorkflowDefinition) error {
	reg, ok := e.graph.(workflowRegistrar)
	if !ok {
		return errors.New("workflow definitions are provisioned externally for this graph store")
	}
	return reg.Register(def)
}

func (e *engineImpl) RegisterHandler(id string, h api.Handler) error {
	return e.handlers.Register(id, h)
}

func (e *engineImpl) CreateSubject(ctx context.Context, id, workflow string, initial api.StatusCode) (*api.Subject, error) {
	if id == "" {
		return nil, errors.Wrap(api.ErrInvalidRequest, "subject id is required")
	}
	if _, ok := e.graph.Workflow(workflow); !ok {
		return nil, errors.Wrapf(api.ErrWorkflowNotFound, "workflow %s", workflow)
	}
	subj := &api.Subject{
		ID:       id,
		Workflow: workflow,
		Status:   initial,
	}
	if err := e.store.CreateSubject(ctx, subj); err != nil {
		return nil, err
	}
	return subj, nil
}

func (e *engineImpl) RequestTransition(ctx context.Context, req api.TransitionRequest) (*api.TransitionResult, error) {
	start := time.Now()

	if err := validate.Struct(req); err != nil {
		return nil, errors.Wrapf(api.ErrInvalidRequest, "%v", err)
	}

	// Step 1: read the subject. The status read here is the CAS guard that
	// ApplyTransition re-checks atomically at write time.
	subj, err := e.store.GetSubject(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, persistence.ErrSubjectNotFound) {
			err = errors.Wrapf(api.ErrSubjectNotFound, "subject %s", req.SubjectID)
		}
		e.observer.OnTransitionRejected(ctx, req.SubjectID, req.TargetStatus, err)
		return nil, err
	}

	e.observer.OnTransitionStart(ctx, subj, req.TargetStatus)

	// Step 2: same-status requests are an idempotent no-op. No history
	// record, no side effects.
	if req.TargetStatus == subj.Status {
		return &api.TransitionResult{
			Success:     true,
			StatusOld:   subj.Status,
			StatusNew:   subj.Status,
			SideEffects: false,
		}, nil
	}

	// Step 3: edge validation, fail closed on unknown workflow.
	if !e.graph.EdgeLegal(subj.Workflow, subj.Status, req.TargetStatus) {
		err := errors.Wrapf(api.ErrInvalidStatusChange,
			"workflow %s has no active edge %d->%d", subj.Workflow, subj.Status, req.TargetStatus)
		e.observer.OnTransitionRejected(ctx, subj.ID, req.TargetStatus, err)
		return nil, err
	}

	// Step 4: soft reason validation. A miss is recorded for audit quality
	// monitoring, never fatal.
	reasonWarning := !e.graph.ReasonKnown(req.TargetStatus, req.Reason)
	if reasonWarning {
		e.observer.OnReasonWarning(ctx, subj.ID, req.TargetStatus, req.Reason)
	}

	// Resolve the handler before opening the unit of work; a bound but
	// unregistered handler fails closed.
	var (
		handler   api.Handler
		handlerID string
		bound     bool
	)
	handlerID, bound = e.graph.HandlerFor(subj.Workflow, req.TargetStatus)
	if bound {
		handler, err = e.handlers.Resolve(handlerID)
		if err != nil {
			e.observer.OnTransitionRejected(ctx, subj.ID, req.TargetStatus, err)
			return nil, err
		}
	}

	rec := &api.HistoryRecord{
		SubjectID: subj.ID,
		StatusOld: subj.Status,
		StatusNew: req.TargetStatus,
		Reason:    req.Reason,
		Note:      req.Note,
		Actor:     req.Actor,
	}

	var hook func(ctx context.Context) error
	if bound {
		tr := &api.Transition{
			Subject:   subj,
			StatusOld: subj.Status,
			StatusNew: req.TargetStatus,
			Reason:    req.Reason,
			Note:      req.Note,
		}
		hook = func(hctx context.Context) error {
			if herr := handler.OnEnter(hctx, tr); herr != nil {
				return &api.HandlerExecutionError{
					SubjectID: subj.ID,
					HandlerID: handlerID,
					StatusOld: subj.Status,
					StatusNew: req.TargetStatus,
					Cause:     herr,
				}
			}
			return nil
		}
	}

	// Step 5: the atomic unit of work.
	historyID, err := e.store.ApplyTransition(ctx, rec, hook)
	if err != nil {
		switch {
		case errors.Is(err, persistence.ErrStaleSubject):
			err = errors.Wrapf(api.ErrStaleState,
				"subject %s moved past %d", subj.ID, subj.Status)
		case errors.Is(err, persistence.ErrSubjectNotFound):
			err = errors.Wrapf(api.ErrSubjectNotFound, "subject %s", subj.ID)
		}
		e.observer.OnTransitionRejected(ctx, subj.ID, req.TargetStatus, err)
		return nil, err
	}

	res := &api.TransitionResult{
		Success:       true,
		StatusOld:     subj.Status,
		StatusNew:     req.TargetStatus,
		HistoryID:     historyID,
		SideEffects:   true,
		ReasonWarning: reasonWarning,
	}

	// Step 7: post-commit async scheduling. An enqueue failure here is the
	// accepted at-least-once gap closed by reconciliation, never a reason
	// to report the committed transition as failed.
	if bound && e.queue != nil {
		if _, async := handler.(api.AsyncHandler); async {
			task := taskqueue.Task{
				ID:         uuid.NewString(),
				Workflow:   subj.Workflow,
				SubjectID:  subj.ID,
				HandlerID:  handlerID,
				StatusOld:  int(subj.Status),
				StatusNew:  int(req.TargetStatus),
				HistoryID:  historyID,
				EnqueuedAt: time.Now(),
			}
			if qerr := e.queue.Enqueue(ctx, task); qerr != nil {
				slog.WarnContext(ctx, "async hook enqueue failed",
					slog.String("subject_id", subj.ID),
					slog.Int64("history_id", historyID),
					slog.Any("error", qerr),
				)
			} else {
				res.AsyncScheduled = true
				e.observer.OnAsyncScheduled(ctx, subj.ID, historyID)
			}
		}
	}

	e.observer.OnTransitionCommitted(ctx, subj, res, time.Since(start))
	return res, nil
}

func (e *engineImpl) IsTransitionAllowed(workflow string, from, to api.StatusCode) bool {
	return e.graph.EdgeLegal(workflow, from, to)
}

func (e *engineImpl) AllowedNextStatuses(workflow string, from api.StatusCode) []api.StatusCode {
	return e.graph.NextStatuses(workflow, from)
}

func (e *engineImpl) AgentAllowedNextStatuses(workflow string, from api.StatusCode) []api.StatusCode {
	return e.graph.AgentNextStatuses(workflow, from)
}

func (e *engineImpl) GetSubject(ctx context.Context, id string) (*api.Subject, error) {
	subj, err := e.store.GetSubject(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrSubjectNotFound) {
			return nil, errors.Wrapf(api.ErrSubjectNotFound, "subject %s", id)
		}
		return nil, err
	}
	return subj, nil
}

func (e *engineImpl) HistoryFor(ctx context.Context, subjectID string) ([]api.HistoryRecord, error) {
	return e.store.HistoryFor(ctx, subjectID)
}
