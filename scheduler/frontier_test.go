package scheduler

import (
	"testing"

	"github.com/tetrascale/dflow/topology"
	"github.com/tetrascale/dflow/value"
)

// diamond builds a → {b, c} → d and returns the topology plus the node
// indices in that order.
func diamond(t *testing.T) (*topology.Topology, int, int, int, int) {
	t.Helper()
	b := topology.NewBuilder()
	a, nb, nc, nd := b.AddNode(), b.AddNode(), b.AddNode(), b.AddNode()
	for _, edge := range [][2]int{{a, nb}, {a, nc}, {nb, nd}, {nc, nd}} {
		if err := b.AddEdge(edge[0], edge[1]); err != nil {
			t.Fatalf("AddEdge(%v) failed: %v", edge, err)
		}
	}
	topo, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}
	return topo, a, nb, nc, nd
}

func present(v int) emission {
	return emission{data: value.Of(v), present: true}
}

func TestFrontierDiamondReleasesStorageEagerly(t *testing.T) {
	topo, a, b, c, d := diamond(t)
	f := newFrontier(1, topo, "x", []int{a}, map[int]emission{a: present(1)})

	node, ok := f.take()
	if !ok || node != a {
		t.Fatalf("first take = (%d, %v), want a=%d", node, ok, a)
	}
	if err := f.complete(a, present(1)); err != nil {
		t.Fatalf("complete(a) failed: %v", err)
	}
	if _, stored := f.storage[a]; !stored {
		t.Fatal("a's output must be stored while b and c still depend on it")
	}

	// b and c become visitable together; both see a's value.
	for i := 0; i < 2; i++ {
		node, ok := f.take()
		if !ok {
			t.Fatalf("take %d returned nothing", i)
		}
		view := f.view(node)
		if view.Len() != 1 || !view.Get(0).Present {
			t.Fatalf("node %d view = %+v, want a's value present", node, view)
		}
		if err := f.complete(node, present(10+node)); err != nil {
			t.Fatalf("complete(%d) failed: %v", node, err)
		}
	}

	// Both dependents of a completed: its storage entry must be gone.
	if f.dependents[a] != 0 {
		t.Fatalf("dependents[a] = %d, want 0", f.dependents[a])
	}
	if _, stored := f.storage[a]; stored {
		t.Fatal("a's output must be released once its last dependent completes")
	}

	node, ok = f.take()
	if !ok || node != d {
		t.Fatalf("final take = (%d, %v), want d=%d", node, ok, d)
	}
	view := f.view(d)
	if view.Len() != 2 || !view.Get(0).Present || !view.Get(1).Present {
		t.Fatalf("d's view = %+v, want both predecessors present", view)
	}
	got0, _ := value.Downcast[int](view.Get(0).Value)
	got1, _ := value.Downcast[int](view.Get(1).Value)
	if got0 != 10+b || got1 != 10+c {
		t.Fatalf("d's inputs = (%d, %d), want (%d, %d)", got0, got1, 10+b, 10+c)
	}
	if err := f.complete(d, emission{}); err != nil {
		t.Fatalf("complete(d) failed: %v", err)
	}
	if !f.done() {
		t.Fatalf("frontier not done, len = %d", f.len())
	}
	if len(f.storage) != 0 {
		t.Fatalf("storage not empty at exhaustion: %v", f.storage)
	}
}

func TestFrontierTopologicalOrder(t *testing.T) {
	topo, a, b, c, d := diamond(t)
	f := newFrontier(1, topo, "x", []int{a}, nil)

	seen := make(map[int]bool)
	for {
		node, ok := f.take()
		if !ok {
			break
		}
		for _, pred := range topo.Incoming()[node] {
			if f.reachable(topo.Distance(), []int{a}, pred) && !seen[pred] {
				t.Fatalf("node %d taken before its predecessor %d completed", node, pred)
			}
		}
		seen[node] = true
		if err := f.complete(node, emission{}); err != nil {
			t.Fatalf("complete(%d) failed: %v", node, err)
		}
	}
	for _, node := range []int{a, b, c, d} {
		if !seen[node] {
			t.Fatalf("node %d never taken", node)
		}
	}
}

// Two disconnected chains; traversing one must leave the other untouched
// and never underflow its dependents counts.
func TestFrontierReachabilityFilter(t *testing.T) {
	b := topology.NewBuilder()
	// chain one: 0 → 1 → 2; chain two: 3 → 4
	n0, n1, n2, n3, n4 := b.AddNode(), b.AddNode(), b.AddNode(), b.AddNode(), b.AddNode()
	for _, edge := range [][2]int{{n0, n1}, {n1, n2}, {n3, n4}} {
		if err := b.AddEdge(edge[0], edge[1]); err != nil {
			t.Fatalf("AddEdge(%v) failed: %v", edge, err)
		}
	}
	topo, err := b.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	f := newFrontier(1, topo, "x", []int{n0}, map[int]emission{n0: present(1)})

	var visited []int
	for {
		node, ok := f.take()
		if !ok {
			break
		}
		if err := f.complete(node, present(node)); err != nil {
			t.Fatalf("complete(%d) failed: %v", node, err)
		}
		visited = append(visited, node)
	}

	if len(visited) != 3 {
		t.Fatalf("visited = %v, want the three nodes of chain one", visited)
	}
	for _, node := range visited {
		if node == n3 || node == n4 {
			t.Fatalf("node %d of the disconnected chain executed", node)
		}
	}
	// The filter already discounted chain two's internal edge; nothing
	// underflowed (dependents is unsigned, underflow would show as 255).
	if f.dependents[n3] != 0 {
		t.Fatalf("dependents[n3] = %d, want 0", f.dependents[n3])
	}
	if !f.done() {
		t.Fatalf("frontier not done, len = %d", f.len())
	}
}

// Dependents must never retain storage after reaching zero, whatever the
// completion order of the dependents.
func TestFrontierStorageInvariant(t *testing.T) {
	topo, a, _, _, _ := diamond(t)
	f := newFrontier(1, topo, "x", []int{a}, map[int]emission{a: present(7)})

	for {
		node, ok := f.take()
		if !ok {
			break
		}
		if err := f.complete(node, present(node)); err != nil {
			t.Fatalf("complete(%d) failed: %v", node, err)
		}
		for n, count := range f.dependents {
			if count != 0 {
				continue
			}
			if _, stored := f.storage[n]; stored {
				t.Fatalf("node %d retained in storage with zero dependents", n)
			}
		}
	}
}

func TestDerivedFrontierSeedsOriginOutput(t *testing.T) {
	topo, a, b, c, d := diamond(t)
	f := newDerivedFrontier(2, topo, "tick", a, present(42))
	if f == nil {
		t.Fatal("derived frontier over a node with successors must not be nil")
	}

	// a itself is not traversed; b and c start visitable with a's value
	// already in storage.
	if _, stored := f.storage[a]; !stored {
		t.Fatal("origin output must be pre-seeded")
	}
	var order []int
	for {
		node, ok := f.take()
		if !ok {
			break
		}
		if node == b || node == c {
			view := f.view(node)
			got, _ := value.Downcast[int](view.Get(0).Value)
			if got != 42 {
				t.Fatalf("node %d saw %d, want seeded 42", node, got)
			}
		}
		if err := f.complete(node, present(node)); err != nil {
			t.Fatalf("complete(%d) failed: %v", node, err)
		}
		order = append(order, node)
	}
	if len(order) != 3 || order[len(order)-1] != d {
		t.Fatalf("traversal order = %v, want b and c then d", order)
	}
	if _, stored := f.storage[a]; stored {
		t.Fatal("seeded origin output must be evicted once consumed")
	}
}

func TestDerivedFrontierNilForSink(t *testing.T) {
	topo, _, _, _, d := diamond(t)
	if f := newDerivedFrontier(3, topo, "x", d, present(1)); f != nil {
		t.Fatal("derived frontier below a sink must be nil")
	}
}

func TestFrontierEmptyInitialSet(t *testing.T) {
	topo, _, _, _, _ := diamond(t)
	f := newFrontier(4, topo, "x", nil, nil)
	if !f.done() {
		t.Fatalf("empty initial set should produce an exhausted frontier, len = %d", f.len())
	}
	if _, ok := f.take(); ok {
		t.Fatal("take on an empty frontier returned a node")
	}
}
