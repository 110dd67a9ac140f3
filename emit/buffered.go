package emit

import (
	"context"
	"sync"
)

// BufferedEmitter implements Emitter by storing events in memory, grouped
// by frontier, with query support for execution-history analysis.
//
// It is intended for tests, debugging, and development; every event is
// retained until cleared, so long-running production dispatchers should
// prefer LogEmitter or OTelEmitter.
type BufferedEmitter struct {
	mu     sync.RWMutex
	events map[uint64][]Event // frontier -> events, in emission order
	all    []Event            // global emission order across frontiers
}

// HistoryFilter selects a subset of a frontier's events. All fields are
// optional and combine with AND logic.
type HistoryFilter struct {
	// Node filters by graph node; nil means no node filter. Use a pointer
	// so node 0 remains filterable.
	Node *int
	// Msg filters by exact event message; empty means no filter.
	Msg string
}

// NewBufferedEmitter creates an empty BufferedEmitter.
func NewBufferedEmitter() *BufferedEmitter {
	return &BufferedEmitter{events: make(map[uint64][]Event)}
}

// Emit stores the event.
func (b *BufferedEmitter) Emit(event Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events[event.Frontier] = append(b.events[event.Frontier], event)
	b.all = append(b.all, event)
}

// EmitBatch stores the events in order.
func (b *BufferedEmitter) EmitBatch(_ context.Context, events []Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, event := range events {
		b.events[event.Frontier] = append(b.events[event.Frontier], event)
		b.all = append(b.all, event)
	}
	return nil
}

// Flush is a no-op: events are already stored when Emit returns.
func (b *BufferedEmitter) Flush(context.Context) error { return nil }

// History returns a copy of the events emitted for frontier, in emission
// order.
func (b *BufferedEmitter) History(frontier uint64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Event(nil), b.events[frontier]...)
}

// All returns a copy of every stored event, across frontiers, in global
// emission order.
func (b *BufferedEmitter) All() []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Event(nil), b.all...)
}

// Filter returns the stored events matching filter, across all frontiers,
// in global emission order.
func (b *BufferedEmitter) Filter(filter HistoryFilter) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []Event
	for _, event := range b.all {
		if filter.Node != nil && event.Node != *filter.Node {
			continue
		}
		if filter.Msg != "" && event.Msg != filter.Msg {
			continue
		}
		out = append(out, event)
	}
	return out
}

// Clear discards the events stored for frontier.
func (b *BufferedEmitter) Clear(frontier uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.events, frontier)
	kept := b.all[:0]
	for _, event := range b.all {
		if event.Frontier != frontier {
			kept = append(kept, event)
		}
	}
	b.all = kept
}

// ClearAll discards every stored event.
func (b *BufferedEmitter) ClearAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = make(map[uint64][]Event)
	b.all = nil
}
