package action

import (
	"context"
	"testing"

	"github.com/tetrascale/dflow/value"
)

func TestActionFuncDescriptorDefault(t *testing.T) {
	var f ActionFunc[string] = func(ctx context.Context, in Input[string]) (Outputs[string], error) {
		return nil, nil
	}
	d := f.Descriptor()
	if d.Has(Pure) || d.Has(Stable) || d.Has(Flush) {
		t.Fatal("default descriptor should assume no properties")
	}
	if d.Concurrency() != 1 {
		t.Fatalf("default concurrency = %d, want 1", d.Concurrency())
	}
}

func TestNewFuncCarriesDescriptor(t *testing.T) {
	desc := NewDescriptor(WithProperty(Pure), WithConcurrency(4))
	act := NewFunc(desc, func(ctx context.Context, in Input[string]) (Outputs[string], error) {
		return nil, nil
	})
	got := act.Descriptor()
	if !got.Has(Pure) {
		t.Fatal("expected Pure property to survive NewFunc")
	}
	if got.Concurrency() != 4 {
		t.Fatalf("Concurrency() = %d, want 4", got.Concurrency())
	}
}

func TestSourcePanicsOnExecute(t *testing.T) {
	src := NewSource[string]()
	defer func() {
		r := recover()
		if r != ErrSourceUnreachable {
			t.Fatalf("recover() = %v, want ErrSourceUnreachable", r)
		}
	}()
	_, _ = src.Execute(context.Background(), NewItemInput[string]("id", nil))
}

func TestOutputsChaining(t *testing.T) {
	var out Outputs[string]
	out = out.Item("a", value.Of(1)).Delete("b")
	if len(out) != 2 {
		t.Fatalf("len(out) = %d, want 2", len(out))
	}
	if out[0].Kind != OutputItem || !out[0].Item.Present() {
		t.Fatal("first output should be a present item")
	}
	if out[1].Kind != OutputItem || out[1].Item.Present() {
		t.Fatal("second output should be a deletion")
	}
}

func TestItemPresence(t *testing.T) {
	present := NewItem("id", value.Of(1))
	if !present.Present() {
		t.Fatal("item with data should report Present")
	}
	deleted := NewDeletion[string]("id")
	if deleted.Present() {
		t.Fatal("deletion item should not report Present")
	}
}

func TestDescriptorConcurrencyClamped(t *testing.T) {
	d := NewDescriptor(WithConcurrency(0))
	if d.Concurrency() != 1 {
		t.Fatalf("Concurrency() = %d, want clamped to 1", d.Concurrency())
	}
}
