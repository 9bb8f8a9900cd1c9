package statusflow

import (
	"database/sql"

	"github.com/redis/go-redis/v9"

	"github.com/sajinavi2006/julomvp-sub065/internal/engine"
	"github.com/sajinavi2006/julomvp-sub065/internal/graph"
	"github.com/sajinavi2006/julomvp-sub065/internal/persistence"
	"github.com/sajinavi2006/julomvp-sub065/internal/registry"
	"github.com/sajinavi2006/julomvp-sub065/internal/taskqueue"
	workerpkg "github.com/sajinavi2006/julomvp-sub065/pkg/worker"
)

// WorkerBundle wires together an Engine, a task queue, and a Worker that
// delivers asynchronous hooks from that queue. Engine and Worker share one
// handler registry, so a handler registered via Engine.RegisterHandler is
// resolvable by the Worker.
type WorkerBundle struct {
	Engine Engine
	Worker *workerpkg.Worker

	// queue is kept unexported; it is primarily useful for internal
	// inspection and tests. The public API focuses on Engine and Worker.
	queue taskqueue.Queue
}

// NewInMemoryBundle constructs an Engine + Queue + Worker combo backed
// entirely by process-local storage. Useful for tests and examples.
func NewInMemoryBundle(cfg workerpkg.Config) *WorkerBundle {
	handlers := registry.New()
	q := taskqueue.NewInMemoryQueue(0)
	eng, err := engine.New(engine.Config{
		Graph:    graph.NewRegistry(),
		Store:    persistence.NewMemoryStore(),
		Handlers: handlers,
		Queue:    q,
	})
	if err != nil {
		panic(err)
	}
	return &WorkerBundle{
		Engine: eng,
		Worker: workerpkg.NewWithConfig(q, handlers, cfg),
		queue:  q,
	}
}

// NewSQLiteBundle constructs a durable Engine + Queue + Worker combo sharing
// the same SQLite database. Subjects, history, and queued tasks are
// persisted in the provided *sql.DB.
//
// Typical usage:
//
//	db, _ := sql.Open("sqlite", "file:statusflow.db?_journal=WAL")
//	bundle, err := statusflow.NewSQLiteBundle(db, worker.Config{MaxAttempts: 3})
//	// register workflows and handlers on bundle.Engine
//	// run bundle.Worker in a goroutine
func NewSQLiteBundle(db *sql.DB, cfg workerpkg.Config) (*WorkerBundle, error) {
	q, err := taskqueue.NewSQLiteQueue(db)
	if err != nil {
		return nil, err
	}
	return newDurableBundle(db, q, cfg)
}

// NewSQLiteBundleWithRedisQueue is NewSQLiteBundle with task delivery
// through a Redis list instead of a SQLite table, for deployments where
// workers run in separate processes. An empty prefix selects the default.
func NewSQLiteBundleWithRedisQueue(db *sql.DB, client *redis.Client, prefix string, cfg workerpkg.Config) (*WorkerBundle, error) {
	return newDurableBundle(db, taskqueue.NewRedisQueue(client, prefix), cfg)
}

func newDurableBundle(db *sql.DB, q taskqueue.Queue, cfg workerpkg.Config) (*WorkerBundle, error) {
	store, err := persistence.NewSQLStore(db)
	if err != nil {
		return nil, err
	}
	handlers := registry.New()
	eng, err := engine.New(engine.Config{
		Graph:    graph.NewRegistry(),
		Store:    store,
		Handlers: handlers,
		Queue:    q,
	})
	if err != nil {
		return nil, err
	}
	return &WorkerBundle{
		Engine: eng,
		Worker: workerpkg.NewWithConfig(q, handlers, cfg),
		queue:  q,
	}, nil
}
