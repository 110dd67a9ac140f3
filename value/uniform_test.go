package value

import (
	"errors"
	"testing"
)

func uniformView(vals ...*int) View {
	view := make(View, len(vals))
	for i, v := range vals {
		if v != nil {
			view[i] = Entry{Value: Of(*v), Present: true}
		}
	}
	return view
}

func ints(vals ...int) []*int {
	out := make([]*int, len(vals))
	for i := range vals {
		out[i] = &vals[i]
	}
	return out
}

func TestUniformAllRequiresEveryEntry(t *testing.T) {
	vs := ints(1, 2, 3, 4, 5)
	got, err := Uniform[int](uniformView(vs...), All)
	if err != nil {
		t.Fatalf("Uniform(All) failed: %v", err)
	}
	for i, v := range got {
		if *v != i+1 {
			t.Fatalf("got[%d] = %d, want %d", i, *v, i+1)
		}
	}

	vs[2] = nil
	var decodeErr *DecodeError
	if _, err := Uniform[int](uniformView(vs...), All); !errors.As(err, &decodeErr) || decodeErr.Kind != ErrKindPresence {
		t.Fatalf("Uniform(All) with a gap = %v, want presence error", err)
	}
}

func TestUniformFirstOnlyRequiresHead(t *testing.T) {
	vs := ints(1, 2)
	vs = append(vs, nil)
	got, err := Uniform[int](uniformView(vs...), First)
	if err != nil {
		t.Fatalf("Uniform(First) failed: %v", err)
	}
	if got[2] != nil {
		t.Fatal("absent tail entry should decode to nil")
	}

	vs[0] = nil
	if _, err := Uniform[int](uniformView(vs...), First); err == nil {
		t.Fatal("Uniform(First) must require the head entry")
	}
}

func TestUniformAnyNeedsAtLeastOne(t *testing.T) {
	if _, err := Uniform[int](uniformView(nil, nil, nil), Any); err == nil {
		t.Fatal("Uniform(Any) over an all-absent view must fail")
	}
	got, err := Uniform[int](uniformView(nil, ints(7)[0], nil), Any)
	if err != nil {
		t.Fatalf("Uniform(Any) failed: %v", err)
	}
	if got[1] == nil || *got[1] != 7 {
		t.Fatalf("got = %v, want index 1 == 7", got)
	}
}

func TestUniformDowncastMismatch(t *testing.T) {
	view := View{{Value: Of("text"), Present: true}}
	var decodeErr *DecodeError
	if _, err := Uniform[int](view, All); !errors.As(err, &decodeErr) || decodeErr.Kind != ErrKindDowncast {
		t.Fatalf("Uniform over a mistyped view = %v, want downcast error", err)
	}
}
