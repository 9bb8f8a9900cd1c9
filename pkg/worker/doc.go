// Package worker provides the background worker that delivers asynchronous
// transition hooks.
//
// The engine commits a transition and then enqueues a task naming the
// subject, the handler, and the history record that the transition produced.
// Workers consume those tasks from a task queue and invoke the handler's
// asynchronous hook with that context.
//
// # Delivery Semantics
//
// Delivery is at-least-once. A crash between a hook's side effect and the
// task's removal from the queue results in redelivery, so hooks must be
// idempotent keyed by the history id they receive. Failed deliveries are
// re-enqueued with a linear backoff until the configured attempt limit is
// exhausted.
//
// # Scaling
//
// Workers are decoupled from any particular queue backend. Multiple workers
// can safely consume from the same queue; each task is claimed by exactly
// one worker per delivery.
//
// Most applications construct workers via helper functions in the statusflow
// package, which wire engines, queues, and handler registries together.
package worker
