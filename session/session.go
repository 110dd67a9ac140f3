package session

import (
	"sync"

	"github.com/tetrascale/dflow/action"
	"github.com/tetrascale/dflow/value"
)

// Session is a typed handle for submitting items into the graph. Every
// insertion and removal travels the connector to the dispatcher, which
// fans it out to the source nodes matching T's descriptor.
//
// A Session must be closed when the caller is done with it; Close delivers
// the drop notification interested actions rely on, and releasing the last
// session is what lets the dispatcher terminate once in-flight work
// drains. Close is idempotent.
//
// Type parameter I is the item identifier type shared by the whole graph;
// T is the data type this session submits.
type Session[I, T any] struct {
	id        uint64
	connector *Connector[I]
	closeOnce sync.Once
}

// Open registers a new session of type T with the given collection and
// connector. It fails with ErrType when no source accepts T, and with
// action.ErrDisconnected when the connector has already shut down.
func Open[T, I any](sessions *Sessions, connector *Connector[I]) (*Session[I, T], error) {
	id, _, err := sessions.Insert(TypeDescriptorOf[T]())
	if err != nil {
		return nil, err
	}
	if err := connector.retain(); err != nil {
		sessions.Remove(id)
		return nil, err
	}
	s := &Session[I, T]{id: id, connector: connector}
	if err := connector.send(Message[I]{Kind: MessageOpen, Session: id}); err != nil {
		sessions.Remove(id)
		connector.release()
		return nil, err
	}
	return s, nil
}

// ID returns the session's identifier.
func (s *Session[I, T]) ID() uint64 {
	return s.id
}

// Insert submits an insertion (or update) of data under id.
func (s *Session[I, T]) Insert(id I, data T) error {
	return s.connector.send(Message[I]{
		Kind:    MessageItem,
		Session: s.id,
		Item:    action.NewItem(id, value.Of(data)),
	})
}

// Remove submits a deletion of id.
func (s *Session[I, T]) Remove(id I) error {
	return s.connector.send(Message[I]{
		Kind:    MessageItem,
		Session: s.id,
		Item:    action.NewDeletion[I](id),
	})
}

// Close releases the session, notifying the dispatcher so it can fan out a
// drop signal to interested actions. Safe to call multiple times; only the
// first call has any effect.
func (s *Session[I, T]) Close() {
	s.closeOnce.Do(func() {
		// Ignore a disconnected connector here: if the dispatcher is
		// already gone there is nobody left to notify.
		_ = s.connector.send(Message[I]{Kind: MessageDrop, Session: s.id})
		s.connector.release()
	})
}
