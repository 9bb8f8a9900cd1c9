package statusflow

import (
	"context"
	"database/sql"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/sajinavi2006/julomvp-sub065/internal/engine"
	"github.com/sajinavi2006/julomvp-sub065/internal/graph"
	"github.com/sajinavi2006/julomvp-sub065/internal/persistence"
	"github.com/sajinavi2006/julomvp-sub065/internal/routing"
	"github.com/sajinavi2006/julomvp-sub065/internal/taskqueue"
	"github.com/sajinavi2006/julomvp-sub065/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine                = api.Engine
	StatusCode            = api.StatusCode
	PathType              = api.PathType
	StatusDefinition      = api.StatusDefinition
	PathDefinition        = api.PathDefinition
	NodeDefinition        = api.NodeDefinition
	ReasonDefinition      = api.ReasonDefinition
	WorkflowDefinition    = api.WorkflowDefinition
	Subject               = api.Subject
	HistoryRecord         = api.HistoryRecord
	TransitionRequest     = api.TransitionRequest
	TransitionResult      = api.TransitionResult
	Transition            = api.Transition
	AsyncTransition       = api.AsyncTransition
	Handler               = api.Handler
	AsyncHandler          = api.AsyncHandler
	HandlerFunc           = api.HandlerFunc
	NoopHandler           = api.NoopHandler
	HandlerExecutionError = api.HandlerExecutionError
	Observer              = api.Observer
	LoggingObserver       = api.LoggingObserver
	BasicMetrics          = api.BasicMetrics
	BasicMetricsSnapshot  = api.BasicMetricsSnapshot
	CompositeObserver     = api.CompositeObserver
	NoopObserver          = api.NoopObserver
)

// Re-export common observer helpers.

var (
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export path types for convenience.

const (
	PathHappy     = api.PathHappy
	PathUnhappy   = api.PathUnhappy
	PathDetour    = api.PathDetour
	PathGraveyard = api.PathGraveyard
)

// Re-export error sentinels.

var (
	ErrInvalidStatusChange = api.ErrInvalidStatusChange
	ErrStaleState          = api.ErrStaleState
	ErrConfiguration       = api.ErrConfiguration
	ErrSubjectNotFound     = api.ErrSubjectNotFound
	ErrWorkflowNotFound    = api.ErrWorkflowNotFound
	ErrInvalidRequest      = api.ErrInvalidRequest
)

// Engine constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores.
func NewInMemoryEngine() Engine {
	return NewInMemoryEngineWithObserver(nil)
}

// NewInMemoryEngineWithObserver returns an in-memory Engine with the given Observer.
func NewInMemoryEngineWithObserver(obs Observer) Engine {
	eng, err := engine.New(engine.Config{
		Graph:    graph.NewRegistry(),
		Store:    persistence.NewMemoryStore(),
		Observer: obs,
	})
	if err != nil {
		// Unreachable: both required components are supplied above.
		panic(err)
	}
	return eng
}

// NewSQLiteEngine returns an Engine that persists subjects and their history
// in a SQLite database. Workflow graphs are registered in-memory.
func NewSQLiteEngine(db *sql.DB) (Engine, error) {
	return NewSQLiteEngineWithObserver(db, nil)
}

// NewSQLiteEngineWithObserver returns a SQLite-backed Engine with the given Observer.
func NewSQLiteEngineWithObserver(db *sql.DB, obs Observer) (Engine, error) {
	store, err := persistence.NewSQLStore(db)
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Config{
		Graph:    graph.NewRegistry(),
		Store:    store,
		Observer: obs,
	})
}

// NewGormEngine returns an Engine that persists subjects through GORM,
// usable with any dialect GORM supports.
func NewGormEngine(db *gorm.DB) (Engine, error) {
	return NewGormEngineWithObserver(db, nil)
}

// NewGormEngineWithObserver returns a GORM-backed Engine with the given Observer.
func NewGormEngineWithObserver(db *gorm.DB, obs Observer) (Engine, error) {
	store, err := persistence.NewGormStore(db)
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Config{
		Graph:    graph.NewRegistry(),
		Store:    store,
		Observer: obs,
	})
}

// NewSQLiteEngineFromTables returns a SQLite-backed Engine whose workflow
// graphs are loaded from the workflow, status_path, status_node, and
// change_reason tables of graphDB and refreshed every ttl. RegisterWorkflow
// is rejected on such an engine; definitions are provisioned in the tables.
func NewSQLiteEngineFromTables(ctx context.Context, db, graphDB *sql.DB, ttl time.Duration, obs Observer) (Engine, error) {
	cached, err := graph.NewCachedStore(ctx, graph.NewSQLSource(graphDB).Load, ttl)
	if err != nil {
		return nil, err
	}
	store, err := persistence.NewSQLStore(db)
	if err != nil {
		return nil, err
	}
	return engine.New(engine.Config{
		Graph:    cached,
		Store:    store,
		Observer: obs,
	})
}

// Task queue constructors.

// NewInMemoryQueue returns a process-local task queue with the given buffer
// size (<= 0 selects the default).
func NewInMemoryQueue(size int) taskqueue.Queue {
	return taskqueue.NewInMemoryQueue(size)
}

// NewSQLiteQueue returns a durable task queue persisted in the given database.
func NewSQLiteQueue(db *sql.DB) (taskqueue.Queue, error) {
	return taskqueue.NewSQLiteQueue(db)
}

// NewRedisQueue returns a task queue backed by a Redis list. An empty prefix
// selects the default key prefix.
func NewRedisQueue(client *redis.Client, prefix string) taskqueue.Queue {
	return taskqueue.NewRedisQueue(client, prefix)
}

// Routing re-exports. The routing layer decides which target status to
// request; the engine then validates and applies it.

type (
	RoutingRule      = routing.Rule
	RoutingCandidate = routing.Candidate
	RoutingDecision  = routing.Decision
	RoutingPolicy    = routing.Policy
	FlagSnapshot     = routing.Snapshot
	FlagSource       = routing.Source
)

// NewRoutingPolicy builds a policy over the given flag source.
func NewRoutingPolicy(src routing.Source) *routing.Policy {
	return routing.NewPolicy(src)
}

// NewStaticFlagSource returns a flag source serving a fixed snapshot,
// useful for tests and single-process deployments.
func NewStaticFlagSource(version string, flags map[string]string) routing.Source {
	return routing.NewStaticSource(version, flags)
}

// NewRedisFlagSource returns a flag source reading a Redis hash. An empty
// key selects the default.
func NewRedisFlagSource(client *redis.Client, key string) routing.Source {
	return routing.NewRedisSource(client, key)
}

// Convenience helpers that just forward to the underlying Engine.

// RequestTransition asks eng to move a subject to a new status.
func RequestTransition(ctx context.Context, eng Engine, req TransitionRequest) (*TransitionResult, error) {
	return eng.RequestTransition(ctx, req)
}

// HistoryFor fetches a subject's transition history in append order.
func HistoryFor(ctx context.Context, eng Engine, subjectID string) ([]HistoryRecord, error) {
	return eng.HistoryFor(ctx, subjectID)
}
