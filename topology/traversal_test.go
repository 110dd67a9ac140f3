package topology

import "testing"

func TestTraversalDiamondOrder(t *testing.T) {
	topo, a, bb, c, d := buildDiamond(t)
	tr := NewTraversal(topo, []int{a})

	if tr.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", tr.Len())
	}

	node, ok := tr.Take()
	if !ok || node != a {
		t.Fatalf("first Take() = (%d, %v), want (%d, true)", node, ok, a)
	}
	if _, ok := tr.Take(); ok {
		t.Fatal("expected no node visitable until a completes")
	}
	must(t, tr.Complete(a))

	// b and c both become ready; ascending index breaks the tie.
	first, ok := tr.Take()
	if !ok {
		t.Fatal("expected b or c to be visitable after a completes")
	}
	second, ok := tr.Take()
	if !ok {
		t.Fatal("expected the other of b/c to be visitable")
	}
	if first > second {
		t.Fatalf("tie-break not ascending: got %d before %d", first, second)
	}
	wantFirst, wantSecond := bb, c
	if wantFirst > wantSecond {
		wantFirst, wantSecond = wantSecond, wantFirst
	}
	if first != wantFirst || second != wantSecond {
		t.Fatalf("got (%d, %d), want (%d, %d)", first, second, wantFirst, wantSecond)
	}

	if _, ok := tr.Take(); ok {
		t.Fatal("d should not be visitable until both b and c complete")
	}
	must(t, tr.Complete(first))
	if _, ok := tr.Take(); ok {
		t.Fatal("d should still not be visitable with only one predecessor complete")
	}
	must(t, tr.Complete(second))

	node, ok = tr.Take()
	if !ok || node != d {
		t.Fatalf("final Take() = (%d, %v), want (%d, true)", node, ok, d)
	}
	must(t, tr.Complete(d))

	if tr.Len() != 0 {
		t.Fatalf("Len() after full traversal = %d, want 0", tr.Len())
	}
}

func TestTraversalRootedAtInternalNode(t *testing.T) {
	topo, _, bb, _, d := buildDiamond(t)
	tr := NewTraversal(topo, []int{bb})

	// Only b, d are reachable from b (c is not reachable from b).
	if tr.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tr.Len())
	}
	node, ok := tr.Take()
	if !ok || node != bb {
		t.Fatalf("Take() = (%d, %v), want (%d, true)", node, ok, bb)
	}
	must(t, tr.Complete(node))

	node, ok = tr.Take()
	if !ok || node != d {
		t.Fatalf("Take() = (%d, %v), want (%d, true)", node, ok, d)
	}
	must(t, tr.Complete(node))

	if _, ok := tr.Take(); ok {
		t.Fatal("c should never become visitable from a traversal rooted at b")
	}
}

func TestTraversalCompleteNotOwned(t *testing.T) {
	topo, a, _, _, _ := buildDiamond(t)
	tr := NewTraversal(topo, []int{a})
	if err := tr.Complete(a); err != ErrNotOwned {
		t.Fatalf("Complete before Take: got %v, want ErrNotOwned", err)
	}

	node, ok := tr.Take()
	if !ok || node != a {
		t.Fatalf("Take() = (%d, %v)", node, ok)
	}
	must(t, tr.Complete(node))
	if err := tr.Complete(node); err != ErrNotOwned {
		t.Fatalf("double Complete: got %v, want ErrNotOwned", err)
	}
}
