package action

import "github.com/tetrascale/dflow/value"

// InputKind discriminates the two shapes an Input can take.
type InputKind int

const (
	// InputKindItem carries an identifier and a view over predecessor
	// values.
	InputKindItem InputKind = iota
	// InputKindSignal carries a Signal instead of item data.
	InputKindSignal
)

// Input is the argument passed to Action.Execute. Kind selects which fields
// are meaningful: ID and View for an item, Signal for a signal.
type Input[I any] struct {
	Kind   InputKind
	ID     I
	View   value.View
	Signal Signal
}

// NewItemInput creates an Input wrapping an item view.
func NewItemInput[I any](id I, view value.View) Input[I] {
	return Input[I]{Kind: InputKindItem, ID: id, View: view}
}

// NewSignalInput creates an Input wrapping a signal.
func NewSignalInput[I any](signal Signal) Input[I] {
	return Input[I]{Kind: InputKindSignal, Signal: signal}
}
