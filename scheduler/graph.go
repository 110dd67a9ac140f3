// Package scheduler drives a DAG of actions: it owns the dispatcher event
// loop, the per-ingress frontiers that carry intermediate values through
// the graph, and the graph builder that wires sources and actions into an
// immutable topology.
package scheduler

import (
	"errors"
	"fmt"

	"github.com/tetrascale/dflow/action"
	"github.com/tetrascale/dflow/session"
	"github.com/tetrascale/dflow/topology"
)

// ErrUnknownNode is returned by Builder.AddAction when a predecessor index
// does not name a node added earlier.
var ErrUnknownNode = errors.New("scheduler: predecessor index does not name an existing node")

// Builder collects sources and actions and wires them into a Graph. Nodes
// are assigned dense indices in insertion order; the order of the `from`
// arguments to AddAction is the canonical argument order the action's view
// decodes in.
type Builder[I any] struct {
	topo    *topology.Builder
	actions []action.Action[I]
	sources []session.Source
}

// NewBuilder creates an empty graph builder.
func NewBuilder[I any]() *Builder[I] {
	return &Builder[I]{topo: topology.NewBuilder()}
}

// AddSource registers a typed ingress node accepting items of type T. The
// node carries a marker action that is never executed; sessions of type T
// submit items that enter the graph as if this node had emitted them.
//
// AddSource is a free function because Go methods cannot introduce their
// own type parameters.
func AddSource[T any, I any](b *Builder[I]) int {
	node := b.topo.AddNode()
	b.actions = append(b.actions, action.NewSource[I]())
	b.sources = append(b.sources, session.Source{
		Node:       node,
		Descriptor: session.TypeDescriptorOf[T](),
	})
	return node
}

// AddAction adds act as a new node consuming the outputs of the `from`
// nodes, in the given order. It fails with ErrUnknownNode for an
// out-of-range predecessor and topology.ErrCycle if an edge would close a
// cycle (impossible here since the new node has no successors yet, but the
// topology builder checks regardless).
func (b *Builder[I]) AddAction(act action.Action[I], from ...int) (int, error) {
	for _, pred := range from {
		if pred < 0 || pred >= len(b.actions) {
			return 0, fmt.Errorf("%w: %d", ErrUnknownNode, pred)
		}
	}
	node := b.topo.AddNode()
	b.actions = append(b.actions, act)
	for _, pred := range from {
		if err := b.topo.AddEdge(pred, node); err != nil {
			return 0, err
		}
	}
	return node, nil
}

// Build finalizes the graph. It fails with topology.ErrGraphTooLarge when
// the node count exceeds what the distance matrix can represent.
func (b *Builder[I]) Build() (*Graph[I], error) {
	topo, err := b.topo.Build()
	if err != nil {
		return nil, err
	}
	return &Graph[I]{
		topo:    topo,
		actions: b.actions,
		sources: b.sources,
	}, nil
}

// Graph is the immutable wiring a dispatcher runs: the topology, the
// action at each node, and the typed source registrations sessions match
// against.
type Graph[I any] struct {
	topo    *topology.Topology
	actions []action.Action[I]
	sources []session.Source
}

// Topology returns the graph's shape.
func (g *Graph[I]) Topology() *topology.Topology { return g.topo }

// Action returns the action occupying node.
func (g *Graph[I]) Action(node int) action.Action[I] { return g.actions[node] }

// NumNodes returns the number of nodes in the graph.
func (g *Graph[I]) NumNodes() int { return len(g.actions) }

// Sources returns the typed ingress registrations.
func (g *Graph[I]) Sources() []session.Source { return g.sources }
