package session

import (
	"sync"

	"github.com/tetrascale/dflow/action"
)

// DefaultCapacity is the connector channel's buffer size unless overridden:
// producers submitting faster than the dispatcher drains block once this
// many messages are queued, applying back-pressure at the ingress boundary.
const DefaultCapacity = 1024

// MessageKind discriminates the connector's message variants.
type MessageKind int

const (
	// MessageItem carries an item submitted through a session.
	MessageItem MessageKind = iota
	// MessageOpen announces that a session was opened.
	MessageOpen
	// MessageDrop announces that a session handle was released.
	MessageDrop
)

// Message is one unit of ingress traffic: an item submission or a session
// lifecycle notification, tagged with the session it belongs to.
type Message[I any] struct {
	Kind    MessageKind
	Session uint64
	Item    action.Item[I]
}

// Connector is the bounded multi-producer single-consumer channel between
// session handles and the dispatcher. Sends block when the buffer is full.
// The channel closes when the last open session handle is released, which
// is the dispatcher's cue that no further ingress can arrive.
type Connector[I any] struct {
	mu      sync.RWMutex
	ch      chan Message[I]
	handles int
	closed  bool
}

// NewConnector creates a connector with the given buffer capacity; zero or
// negative means DefaultCapacity.
func NewConnector[I any](capacity int) *Connector[I] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Connector[I]{ch: make(chan Message[I], capacity)}
}

// Receive returns the dispatcher-side channel of ingress messages. The
// channel is closed once every session handle has been released.
func (c *Connector[I]) Receive() <-chan Message[I] {
	return c.ch
}

// Depth reports how many messages are currently buffered.
func (c *Connector[I]) Depth() int {
	return len(c.ch)
}

// Capacity reports the buffer size. Depth == Capacity means producers are
// blocked on the channel right now.
func (c *Connector[I]) Capacity() int {
	return cap(c.ch)
}

// send delivers msg, blocking while the buffer is full. It returns
// action.ErrDisconnected if the connector has already closed.
func (c *Connector[I]) send(msg Message[I]) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return action.ErrDisconnected
	}
	c.ch <- msg
	return nil
}

// retain records a newly opened session handle. It returns
// action.ErrDisconnected if the connector has already closed, since a
// closed connector can never carry the new session's traffic.
func (c *Connector[I]) retain() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return action.ErrDisconnected
	}
	c.handles++
	return nil
}

// release records a session handle going away. When the last handle is
// released the channel closes, after which Receive's channel drains its
// buffered messages and then reports closure to the dispatcher.
func (c *Connector[I]) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.handles--
	if c.handles <= 0 {
		c.closed = true
		close(c.ch)
	}
}
