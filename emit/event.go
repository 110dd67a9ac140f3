// Package emit provides event emission and observability for scheduler
// execution.
package emit

// Event represents an observability event emitted during scheduler
// execution.
//
// Events provide detailed insight into dispatcher behavior:
//   - Frontier creation and exhaustion
//   - Node execution start/complete
//   - Task submission, completion, and cancellation
//   - Timer arming and firing
//   - Session lifecycle (open, drop)
//   - Errors and panics
//
// Events are emitted to an Emitter which can log them, convert them to
// OpenTelemetry spans, buffer them for inspection in tests, or discard
// them entirely.
type Event struct {
	// Frontier identifies the ingress traversal that emitted this event.
	// Zero for dispatcher-level events (startup, shutdown, session
	// lifecycle).
	Frontier uint64

	// Node identifies which graph node the event concerns, or -1 for
	// events not tied to a node.
	Node int

	// Msg is a short machine-matchable description of the event, e.g.
	// "node_execute", "task_cancel", "timer_fire".
	Msg string

	// Meta contains additional structured data specific to this event.
	// Common keys:
	//   - "duration_ms": execution duration in milliseconds
	//   - "error": error details
	//   - "session": session id for session lifecycle events
	//   - "outputs": number of outputs an execution produced
	Meta map[string]interface{}
}
