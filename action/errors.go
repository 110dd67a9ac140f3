package action

import (
	"errors"
	"fmt"
)

// ErrDisconnected indicates a session's connector has been closed, because
// every session handle sharing it was released, so no further message can
// be sent through it.
var ErrDisconnected = errors.New("action: session is disconnected")

// ErrType indicates a value did not match the type an action expected when
// decoding its input view.
var ErrType = errors.New("action: value did not match the expected type")

// ErrSignal indicates an action received a Signal it declared no interest
// in, which signals a dispatcher bug rather than caller error.
var ErrSignal = errors.New("action: received an unexpected signal")

// ErrIO wraps a failure in an external resource an action depends on (a
// network call, a filesystem operation). Actions are expected to wrap their
// own I/O errors with ErrIO via fmt.Errorf("...: %w", action.ErrIO) so
// dispatcher-level diagnostics can classify them.
var ErrIO = errors.New("action: I/O failure")

// ErrOther is a catch-all for action failures that do not fit the other
// categories.
var ErrOther = errors.New("action: execution failed")

// ErrSourceUnreachable is the panic value raised if a Source marker action
// is ever actually executed. Source nodes exist only to seed a frontier's
// traversal; the dispatcher must never call Execute on one.
var ErrSourceUnreachable = errors.New("action: source action must never be executed")

// SubmitError reports that a Task could not be enqueued to the worker pool,
// typically because its queue is full or already shutting down.
type SubmitError[I any] struct {
	Task Task[I]
	Err  error
}

func (e *SubmitError[I]) Error() string {
	return fmt.Sprintf("action: failed to submit task: %v", e.Err)
}

func (e *SubmitError[I]) Unwrap() error {
	return e.Err
}

// PanicError reports that an action's execution panicked. The dispatcher
// recovers the panic, wraps it in a PanicError, and continues running
// rather than taking the whole process down.
type PanicError struct {
	NodeID    int
	Recovered any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("action: node %d panicked: %v", e.NodeID, e.Recovered)
}
