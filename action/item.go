package action

import "github.com/tetrascale/dflow/value"

// Item is the fundamental unit of data flowing through a frontier: an
// identifier paired with optional data. A present Data field means the item
// carries a value; an absent one means the item represents a deletion of
// whatever was previously associated with ID.
type Item[I any] struct {
	ID   I
	Data value.Value
}

// NewItem creates an item carrying data.
func NewItem[I any](id I, data value.Value) Item[I] {
	return Item[I]{ID: id, Data: data}
}

// NewDeletion creates an item representing the deletion of id.
func NewDeletion[I any](id I) Item[I] {
	return Item[I]{ID: id}
}

// Present reports whether the item carries data, as opposed to representing
// a deletion.
func (it Item[I]) Present() bool {
	return it.Data != nil
}
