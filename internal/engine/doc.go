// Package engine implements the transactional fact store.
//
// An Engine owns an ordered fact table, a registry of computed facts, a
// change notification bus, and optional undo/redo history and persistence.
// Queries go through Check, which evaluates a condition string against the
// current table.
//
// ARCHITECTURE:
//
// Synchronous, Single-Goroutine:
// Every operation runs to completion on the caller's goroutine. Nothing
// suspends and nothing is deferred to a background worker. An Engine must
// not be mutated from more than one goroutine at a time.
//
// Re-entrancy:
// Listeners, compute functions, and batch bodies may call back into the
// engine. Listener delivery iterates a snapshot of the subscriber list and
// skips entries unsubscribed mid-cycle; batches flatten, so nested Batch
// calls share one rollback snapshot and one event queue.
//
// Mutation Flow (outside a batch):
// 1. Validate key and value; reject computed keys
// 2. Open a transaction (tx ID + logical seq)
// 3. Push a history snapshot and clear redo
// 4. Apply the change, recompute dependent computed facts
// 5. Deliver change events, auto-save if configured
//
// Inside a batch, step 5 is deferred: each changed key is delivered once
// when the outermost batch returns, followed by a single aggregate event
// to global listeners (key AggregateKey, nil values).
//
// Failure Policy:
// Validation, type, and syntax errors return to the caller with state
// unchanged. Listener panics, compute failures, and persistence failures
// are logged and swallowed.
package engine
