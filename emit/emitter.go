package emit

import "context"

// Emitter receives and processes observability events from scheduler
// execution.
//
// Emitters enable pluggable observability backends: logging, distributed
// tracing, metrics, in-memory capture for tests.
//
// Implementations should be:
//   - Non-blocking: the dispatcher emits from its single event-loop
//     goroutine, so a slow Emit stalls all execution.
//   - Thread-safe: worker threads may also emit.
//   - Resilient: an emitter failure must never crash the scheduler; Emit
//     must not panic.
type Emitter interface {
	// Emit sends an observability event to the configured backend. Errors
	// are handled internally; Emit never reports them to the caller.
	Emit(event Event)

	// EmitBatch sends multiple events in a single operation, preserving
	// their order. It returns an error only on catastrophic failures;
	// individual event failures are logged and skipped.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush ensures all buffered events reach the backend. Call it before
	// shutdown to prevent event loss, and in tests to make emission
	// visible. Implementations must respect ctx cancellation and be safe
	// to call multiple times.
	Flush(ctx context.Context) error
}
