package value

import "testing"

func TestOfDowncastRoundTrip(t *testing.T) {
	v := Of(42)
	out, ok := Downcast[int](v)
	if !ok || out != 42 {
		t.Fatalf("Downcast[int] = (%v, %v), want (42, true)", out, ok)
	}
}

func TestDowncastWrongType(t *testing.T) {
	v := Of("hello")
	if _, ok := Downcast[int](v); ok {
		t.Fatal("Downcast[int] on a string value should fail")
	}
}

func TestDowncastNil(t *testing.T) {
	if _, ok := Downcast[int](nil); ok {
		t.Fatal("Downcast on a nil Value should fail")
	}
}

func TestMustDowncastPanicsOnMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected MustDowncast to panic on a type mismatch")
		}
	}()
	MustDowncast[int](Of("hello"))
}

func TestDistinctTypesDoNotAlias(t *testing.T) {
	type A struct{ X int }
	type B struct{ X int }
	v := Of(A{X: 1})
	if _, ok := Downcast[B](v); ok {
		t.Fatal("structurally identical but distinct types must not downcast into one another")
	}
}
