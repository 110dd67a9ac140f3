// Package session implements the scheduler's ingress layer: typed session
// handles submitting items over a bounded connector channel, and the
// collection mapping each open session to the source nodes its items fan
// out to.
package session

import "reflect"

// TypeDescriptor is a runtime identifier for the data type a source node
// accepts. Sessions are type-parameterised and match sources by exact
// descriptor equality, so a session of type A can never feed items into a
// source registered for type B.
type TypeDescriptor struct {
	rtype reflect.Type
}

// TypeDescriptorOf returns the descriptor for T.
func TypeDescriptorOf[T any]() TypeDescriptor {
	return TypeDescriptor{rtype: reflect.TypeOf((*T)(nil)).Elem()}
}

// Name returns a human-readable name for the described type, for error
// messages and observability events.
func (d TypeDescriptor) Name() string {
	if d.rtype == nil {
		return "<none>"
	}
	return d.rtype.String()
}

// Zero reports whether the descriptor describes no type at all, the state
// of a zero-value TypeDescriptor.
func (d TypeDescriptor) Zero() bool {
	return d.rtype == nil
}
