// Package statusflow provides an embeddable status transition engine for
// subjects that move through a declared lifecycle graph — loan applications,
// loans, or any entity whose state changes must be validated, audited, and
// followed by side effects.
//
// The engine holds no business judgment of its own. It validates a requested
// transition against a declared graph, applies it atomically under optimistic
// concurrency, appends an immutable audit record, and runs the handler bound
// to the destination status. Which target to request is decided elsewhere,
// typically by the routing layer this package also provides.
//
// # Core Concepts
//
// The programming model is intentionally small:
//
//  1. Engine
//  2. WorkflowBuilder
//  3. Handler
//  4. Worker
//  5. RoutingPolicy
//
// # Engine
//
// The Engine stores subjects and their transition history, validates edges
// against workflow definitions, and provides APIs to:
//   - create subjects
//   - request transitions
//   - query allowed next statuses
//   - read subjects and their history
//
// Engines can be backed by different storage systems:
//
//   - In-memory (non-durable, best for tests)
//   - SQLite via database/sql (embedded durability)
//   - Any GORM dialect
//
// A transition is one atomic unit of work: the conditional status update,
// the history append, and the destination handler's synchronous hook commit
// or roll back together. Two writers racing for the same subject are
// resolved by a compare-and-swap on the current status; the loser observes
// ErrStaleState and its hook never runs.
//
// # WorkflowBuilder
//
// WorkflowBuilder provides the declarative API used to define status graphs:
// statuses, edges with path types, handler bindings, and change reason
// catalogs.
//
// Example:
//
//	statusflow.New("loan-origination", "1").
//	    Status(100, "FORM_CREATED").
//	    Status(105, "FORM_PARTIAL").
//	    Path(100, 105, statusflow.PathHappy).
//	    Node(105, "trigger_form_partial")
//
// Graphs can also be loaded from relational tables with TTL-based refresh;
// see NewSQLiteEngineFromTables.
//
// # Handler
//
// A Handler is the side-effect hook bound to a destination status. Its
// synchronous part runs inside the transition's unit of work; handlers that
// also implement AsyncHandler get their asynchronous part scheduled on a
// task queue after commit.
//
// # Worker
//
// A Worker pulls transition tasks from a queue and delivers asynchronous
// hooks with at-least-once semantics and bounded redelivery. Workers run as
// background goroutines or separate processes; see the worker package and
// the WorkerBundle helpers here.
//
// # RoutingPolicy
//
// RoutingPolicy selects a target status from flag-gated rules with
// deterministic hash bucketing, so the same subject always resolves the same
// way for a given flag snapshot. The policy only proposes; the engine still
// validates whatever target it is asked for.
//
// # Observability
//
// Transition lifecycle events are exposed through the Observer interface,
// with ready-made logging (log/slog) and in-process metrics implementations.
//
// See the examples and the pkg/api documentation for details.
package statusflow
