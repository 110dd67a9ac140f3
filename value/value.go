// Package value implements the type-erased value plane that flows between
// actions in the scheduler graph. Values are produced by one action and
// consumed by zero or more downstream actions; they exist only for the
// lifetime of a single frontier traversal and are never persisted.
package value

// Value is an opaque, runtime-typed payload passed between actions. It is
// produced by wrapping a concrete Go value with Of, and recovered on the
// consuming side with Downcast.
//
// Value intentionally exposes no methods of its own — all access goes
// through the free functions below, since Go has no generic methods and a
// method-based downcast API (as in the source this package is modeled on)
// cannot be expressed directly.
type Value interface {
	isValue()
}

type boxed[T any] struct {
	data T
}

func (boxed[T]) isValue() {}

// Of wraps v as a Value, recoverable later via Downcast[T].
func Of[T any](v T) Value {
	return boxed[T]{data: v}
}

// Downcast attempts to recover a T from v. It reports false if v is nil or
// holds a value of a different concrete type.
func Downcast[T any](v Value) (T, bool) {
	var zero T
	if v == nil {
		return zero, false
	}
	b, ok := v.(boxed[T])
	if !ok {
		return zero, false
	}
	return b.data, true
}

// MustDowncast recovers a T from v, panicking if the downcast fails. It is
// intended for use inside operator decoders where a mismatch indicates a
// programming error already caught by the decode helpers' own type checks, not a
// condition callers need to branch on.
func MustDowncast[T any](v Value) T {
	out, ok := Downcast[T](v)
	if !ok {
		panic("value: downcast failed")
	}
	return out
}
