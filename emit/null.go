package emit

import "context"

// NullEmitter implements Emitter by discarding all events.
//
// Use it when observability overhead is unwanted, or in tests that do not
// inspect events. It is safe for concurrent use and has no state.
type NullEmitter struct{}

// NewNullEmitter creates a NullEmitter.
func NewNullEmitter() *NullEmitter {
	return &NullEmitter{}
}

// Emit discards the event.
func (n *NullEmitter) Emit(Event) {}

// EmitBatch discards the events.
func (n *NullEmitter) EmitBatch(context.Context, []Event) error { return nil }

// Flush does nothing; there is never anything buffered.
func (n *NullEmitter) Flush(context.Context) error { return nil }
