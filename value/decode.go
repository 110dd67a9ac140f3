package value

import "fmt"

// Presence declares which predecessors of a join must carry data for a
// decode to succeed. It is consulted only by the decode helpers in this
// package — the core scheduler never inspects it.
type Presence int

const (
	// All requires every predecessor in the view to be present.
	All Presence = iota
	// First requires only the first predecessor to be present; the rest
	// are optional.
	First
	// Any requires at least one predecessor to be present.
	Any
)

// DecodeError is returned by the decode helpers (One, Two, Three, Four and
// Uniform) when a view
// cannot be decoded into the operator's declared argument type.
type DecodeError struct {
	// Kind classifies the failure.
	Kind DecodeErrorKind
	// Index is the predecessor position that triggered the error, or -1
	// when the error concerns the view as a whole (e.g. arity mismatch).
	Index int
}

// DecodeErrorKind enumerates the ways a view can fail to decode.
type DecodeErrorKind int

const (
	// ErrKindMismatch indicates the view's arity does not match the
	// operator's declared predecessor count.
	ErrKindMismatch DecodeErrorKind = iota
	// ErrKindPresence indicates a required predecessor value was absent.
	ErrKindPresence
	// ErrKindDowncast indicates a present value did not match the
	// operator's declared type.
	ErrKindDowncast
)

func (e *DecodeError) Error() string {
	switch e.Kind {
	case ErrKindMismatch:
		return "value: arity mismatch decoding view"
	case ErrKindPresence:
		return fmt.Sprintf("value: required predecessor %d is absent", e.Index)
	case ErrKindDowncast:
		return fmt.Sprintf("value: predecessor %d did not downcast to the declared type", e.Index)
	default:
		return "value: decode error"
	}
}

func mismatch() error { return &DecodeError{Kind: ErrKindMismatch, Index: -1} }

func presence(i int) error { return &DecodeError{Kind: ErrKindPresence, Index: i} }

func downcast(i int) error { return &DecodeError{Kind: ErrKindDowncast, Index: i} }

// decodeOne resolves a single predecessor entry under the given presence
// policy, reporting whether a required value is missing.
func decodeOne[T any](view View, i int, required bool) (*T, error) {
	entry := view.Get(i)
	if !entry.Present {
		if required {
			return nil, presence(i)
		}
		return nil, nil
	}
	out, ok := Downcast[T](entry.Value)
	if !ok {
		return nil, downcast(i)
	}
	return &out, nil
}

// One decodes a single-predecessor view into an optional reference to T.
// Under All and Any, the value must be present; under First, it may be
// absent.
func One[A any](view View, presence Presence) (*A, error) {
	if view.Len() != 1 {
		return nil, mismatch()
	}
	required := presence != First
	return decodeOne[A](view, 0, required)
}

// Two decodes a two-predecessor view into optional references to A and B.
// Under All, both must be present; under First, only the first must be
// present; under Any, at least one of the two must be present.
func Two[A, B any](view View, presence Presence) (*A, *B, error) {
	if view.Len() != 2 {
		return nil, nil, mismatch()
	}
	switch presence {
	case All:
		a, err := decodeOne[A](view, 0, true)
		if err != nil {
			return nil, nil, err
		}
		b, err := decodeOne[B](view, 1, true)
		if err != nil {
			return nil, nil, err
		}
		return a, b, nil
	case First:
		a, err := decodeOne[A](view, 0, true)
		if err != nil {
			return nil, nil, err
		}
		b, err := decodeOne[B](view, 1, false)
		if err != nil {
			return nil, nil, err
		}
		return a, b, nil
	default: // Any
		a, errA := decodeOne[A](view, 0, false)
		b, errB := decodeOne[B](view, 1, false)
		if a == nil && b == nil {
			if errA != nil {
				return nil, nil, errA
			}
			if errB != nil {
				return nil, nil, errB
			}
			return nil, nil, ErrAnyNonePresent
		}
		if errA != nil && view.Get(0).Present {
			return nil, nil, errA
		}
		if errB != nil && view.Get(1).Present {
			return nil, nil, errB
		}
		return a, b, nil
	}
}

// Three decodes a three-predecessor view into optional references to A, B
// and C. Under All, every predecessor must be present; under First, only
// the first; under Any, at least one of the three.
func Three[A, B, C any](view View, presence Presence) (*A, *B, *C, error) {
	if view.Len() != 3 {
		return nil, nil, nil, mismatch()
	}
	required := presence == All
	a, err := decodeOne[A](view, 0, required || presence == First)
	if err != nil {
		return nil, nil, nil, err
	}
	b, err := decodeOne[B](view, 1, required)
	if err != nil {
		return nil, nil, nil, err
	}
	c, err := decodeOne[C](view, 2, required)
	if err != nil {
		return nil, nil, nil, err
	}
	if presence == Any && a == nil && b == nil && c == nil {
		return nil, nil, nil, ErrAnyNonePresent
	}
	return a, b, c, nil
}

// ErrAnyNonePresent is returned by Two, Three, Four and Uniform under the
// Any presence policy when none of the predecessors carried a value.
var ErrAnyNonePresent = &DecodeError{Kind: ErrKindPresence, Index: -1}

// Four decodes a four-predecessor view into optional references to A, B, C
// and D. Under All, every predecessor must be present; under First, only
// the first; under Any, at least one of the four.
func Four[A, B, C, D any](view View, presence Presence) (*A, *B, *C, *D, error) {
	if view.Len() != 4 {
		return nil, nil, nil, nil, mismatch()
	}
	required := presence == All
	a, err := decodeOne[A](view, 0, required || presence == First)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	b, err := decodeOne[B](view, 1, required)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	c, err := decodeOne[C](view, 2, required)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	d, err := decodeOne[D](view, 3, required)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if presence == Any && a == nil && b == nil && c == nil && d == nil {
		return nil, nil, nil, nil, ErrAnyNonePresent
	}
	return a, b, c, d, nil
}

// Uniform decodes a view of any arity into a slice of optional references
// to a single element type, one entry per predecessor in canonical order.
// It serves joins of any arity whose predecessors all carry the same type;
// every present value must downcast to T. Under All every predecessor is required; under
// First only the first; under Any at least one must be present.
func Uniform[T any](view View, presence Presence) ([]*T, error) {
	out := make([]*T, view.Len())
	anyPresent := false
	for i := range out {
		required := presence == All || (presence == First && i == 0)
		v, err := decodeOne[T](view, i, required)
		if err != nil {
			return nil, err
		}
		if v != nil {
			anyPresent = true
		}
		out[i] = v
	}
	if presence == Any && !anyPresent {
		return nil, ErrAnyNonePresent
	}
	return out, nil
}
