package scheduler

import (
	"github.com/tetrascale/dflow/topology"
	"github.com/tetrascale/dflow/value"
)

// emission is a node's produced output within one frontier: data plus a
// presence flag. An absent emission stands for a deletion or a node that
// produced nothing; downstream views render it as a missing entry either
// way.
type emission struct {
	data    value.Value
	present bool
}

// frontier is the per-ingress traversal context. It owns the intermediate
// outputs of nodes whose descendants have not all run yet, hands borrowed
// views of them to downstream actions, and evicts each entry the moment
// its last dependent completes.
//
// A frontier lives entirely on the dispatcher goroutine; nothing here
// needs locking.
type frontier[I any] struct {
	id     uint64
	itemID I

	topo      *topology.Topology
	traversal *topology.Traversal

	// dependents[n] counts how many descendants still need n's output.
	// Initialised from out-degree minus edges into nodes unreachable from
	// the initial set; decremented as each successor completes.
	dependents []uint8

	// storage holds the outputs of nodes with live dependents.
	storage map[int]value.Value

	// seeds carries injected outputs for nodes whose execution is
	// bypassed: source nodes complete with their session item instead of
	// running their marker action.
	seeds map[int]emission

	// visitable counts nodes handed out by take but not yet completed.
	visitable int
}

// newFrontier creates a frontier rooted at initial. Each node in seeds
// completes with the seeded emission instead of executing its action.
func newFrontier[I any](id uint64, topo *topology.Topology, itemID I, initial []int, seeds map[int]emission) *frontier[I] {
	f := &frontier[I]{
		id:        id,
		itemID:    itemID,
		topo:      topo,
		traversal: topology.NewTraversal(topo, initial),
		storage:   make(map[int]value.Value),
		seeds:     seeds,
	}
	f.initDependents(initial)
	return f
}

// newDerivedFrontier creates a frontier re-entering the graph below
// origin: its initial set is origin's successors, and origin's output is
// pre-seeded into storage so those successors can select it as a
// predecessor value. Used for timer firings and for emissions whose
// identifier differs from the frontier that produced them.
//
// Returns nil when origin has no successors; such an emission has nowhere
// to go.
func newDerivedFrontier[I any](id uint64, topo *topology.Topology, itemID I, origin int, em emission) *frontier[I] {
	initial := topo.Outgoing()[origin]
	if len(initial) == 0 {
		return nil
	}
	f := &frontier[I]{
		id:        id,
		itemID:    itemID,
		topo:      topo,
		traversal: topology.NewTraversal(topo, initial),
		storage:   make(map[int]value.Value),
	}
	f.initDependents(initial)
	if em.present && f.dependents[origin] > 0 {
		f.storage[origin] = em.data
	}
	return f
}

// initDependents sets dependents[n] to out-degree(n), then walks every
// node unreachable from the initial set and decrements its predecessors'
// counts: a node that will never execute will never consume its
// predecessors' values, and waiting for it would pin storage forever.
func (f *frontier[I]) initDependents(initial []int) {
	outgoing := f.topo.Outgoing()
	f.dependents = outgoing.Degrees()

	distance := f.topo.Distance()
	n := f.topo.NumNodes()
	incoming := f.topo.Incoming()
	for node := 0; node < n; node++ {
		if f.reachable(distance, initial, node) {
			continue
		}
		for _, pred := range incoming[node] {
			if f.dependents[pred] > 0 {
				f.dependents[pred]--
			}
		}
	}
}

func (f *frontier[I]) reachable(distance topology.Distance, initial []int, node int) bool {
	for _, start := range initial {
		if distance[start][node] < topology.Unreachable {
			return true
		}
	}
	return false
}

// take pops the next visitable node in topological order.
func (f *frontier[I]) take() (int, bool) {
	node, ok := f.traversal.Take()
	if ok {
		f.visitable++
	}
	return node, ok
}

// seed returns the injected emission for node, if node's execution is
// bypassed.
func (f *frontier[I]) seed(node int) (emission, bool) {
	em, ok := f.seeds[node]
	return em, ok
}

// complete marks node done with the given emission: the emission is stored
// while any dependent still needs it, and each predecessor's dependents
// count is decremented, evicting predecessors that reach zero. Returns
// topology.ErrNotOwned when node was not taken from this frontier.
func (f *frontier[I]) complete(node int, em emission) error {
	if err := f.traversal.Complete(node); err != nil {
		return err
	}
	f.visitable--
	if f.dependents[node] > 0 && em.present {
		f.storage[node] = em.data
	}
	for _, pred := range f.topo.Incoming()[node] {
		if f.dependents[pred] == 0 {
			continue
		}
		f.dependents[pred]--
		if f.dependents[pred] == 0 {
			delete(f.storage, pred)
		}
	}
	return nil
}

// view builds the ordered borrow over node's predecessor outputs, in
// canonical argument order. Entries are absent for predecessors that
// produced deletions, produced nothing, or never ran.
func (f *frontier[I]) view(node int) value.View {
	preds := f.topo.Incoming()[node]
	view := make(value.View, len(preds))
	for i, pred := range preds {
		if data, ok := f.storage[pred]; ok {
			view[i] = value.Entry{Value: data, Present: true}
		}
	}
	return view
}

// len reports the number of reachable nodes not yet completed, in-flight
// ones included.
func (f *frontier[I]) len() int {
	return f.traversal.Len()
}

// done reports whether the traversal is exhausted.
func (f *frontier[I]) done() bool {
	return f.traversal.Len() == 0
}
