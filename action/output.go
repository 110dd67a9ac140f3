package action

import "github.com/tetrascale/dflow/value"

// OutputKind discriminates the three effects an action may emit.
type OutputKind int

const (
	// OutputItem emits an item, to be delivered to successor nodes.
	OutputItem OutputKind = iota
	// OutputTask defers work to the worker pool.
	OutputTask
	// OutputTimer schedules or cancels deferred work.
	OutputTimer
)

// Output is a single effect returned from an action's execution.
type Output[I any] struct {
	Kind  OutputKind
	Item  Item[I]
	Task  Task[I]
	Timer Timer[I]
}

// ItemOutput wraps an item as an Output.
func ItemOutput[I any](item Item[I]) Output[I] {
	return Output[I]{Kind: OutputItem, Item: item}
}

// TaskOutput wraps a task as an Output.
func TaskOutput[I any](task Task[I]) Output[I] {
	return Output[I]{Kind: OutputTask, Task: task}
}

// TimerOutput wraps a timer as an Output.
func TimerOutput[I any](timer Timer[I]) Output[I] {
	return Output[I]{Kind: OutputTimer, Timer: timer}
}

// Outputs is the collection of effects returned by a single action
// execution. The zero value is an empty collection, equivalent to an
// action that produced nothing.
type Outputs[I any] []Output[I]

// Item appends an item output carrying data and returns the updated
// collection, for convenient chaining.
func (o Outputs[I]) Item(id I, data value.Value) Outputs[I] {
	return append(o, ItemOutput(NewItem(id, data)))
}

// Delete appends an item output representing a deletion of id.
func (o Outputs[I]) Delete(id I) Outputs[I] {
	return append(o, ItemOutput(NewDeletion[I](id)))
}

// IntoOutputs converts a single effect into an Outputs collection of one.
func IntoOutputs[I any](o Output[I]) Outputs[I] {
	return Outputs[I]{o}
}
