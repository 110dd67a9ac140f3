package action

// Task wraps a unit of work meant to run off the dispatcher goroutine, on a
// worker pool. A Task executes exactly once and reports its outputs back to
// the dispatcher when done; panics inside a Task are recovered by the
// worker pool and surfaced as a *PanicError, not propagated to the caller.
type Task[I any] struct {
	run func() (Outputs[I], error)
}

// NewTask creates a Task from a function that performs work and returns the
// outputs to emit once it completes.
func NewTask[I any](f func() (Outputs[I], error)) Task[I] {
	return Task[I]{run: f}
}

// Run executes the task's function. It is called by a worker pool, never
// directly by application code.
func (t Task[I]) Run() (Outputs[I], error) {
	if t.run == nil {
		return nil, nil
	}
	return t.run()
}
