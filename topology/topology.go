// Package topology implements the scheduler's immutable graph shape: the
// adjacency lists, the all-pairs distance matrix, and a stateful traversal
// cursor used to drive nodes in topologically correct order.
package topology

import (
	"errors"
	"sync"
)

// ErrCycle is returned by Builder.AddEdge when the edge would close a cycle.
var ErrCycle = errors.New("topology: edge would introduce a cycle")

// ErrGraphTooLarge is returned by Builder.Build when the node count exceeds
// what the uint8 distance matrix can represent: the matrix saturates at
// 255, so graphs with 255+ nodes would see indistinguishable "unreachable"
// and "254 hops away" entries. Rather than silently misrepresenting
// reachability, construction fails fast.
var ErrGraphTooLarge = errors.New("topology: graph exceeds 254 nodes, the maximum the distance matrix can represent")

// maxNodes is the largest node count the uint8 distance matrix supports
// (254 real distances plus the 255 unreachable sentinel).
const maxNodes = 254

// Unreachable is the distance-matrix sentinel value meaning "no path".
const Unreachable = 255

// Adjacency is an ordered, per-node list of neighbor indices. For
// Topology.Outgoing, order is insertion order of AddEdge calls from a given
// source. For Topology.Incoming, order is the canonical argument order used
// to decode an action's predecessor values.
type Adjacency [][]int

// Degrees returns the number of neighbors for each node, i.e. out-degree
// when called on Outgoing, in-degree when called on Incoming.
func (a Adjacency) Degrees() []uint8 {
	out := make([]uint8, len(a))
	for i, neighbors := range a {
		out[i] = uint8(len(neighbors))
	}
	return out
}

// Distance is a row-major all-pairs shortest-path matrix. Distance[i][j] is
// the number of edges on the shortest path from i to j, 0 on the diagonal,
// and Unreachable when j cannot be reached from i.
type Distance [][]uint8

// Topology is the immutable shape of a directed acyclic graph: which nodes
// exist, how they connect, and (lazily) how far apart they are. A Topology
// is safe to share by reference across any number of concurrent frontiers
// once built, since it is never mutated after Build returns.
type Topology struct {
	outgoing Adjacency
	incoming Adjacency

	distanceOnce sync.Once
	distance     Distance
}

// Outgoing returns the graph's successor adjacency list.
func (t *Topology) Outgoing() Adjacency { return t.outgoing }

// Incoming returns the graph's predecessor adjacency list, in canonical
// argument order for operator input decoding.
func (t *Topology) Incoming() Adjacency { return t.incoming }

// Distance returns the all-pairs shortest-path matrix, computing it via
// Floyd–Warshall on first access. The computation is amortized across the
// life of the Topology: subsequent calls return the cached matrix.
func (t *Topology) Distance() Distance {
	t.distanceOnce.Do(func() {
		t.distance = floydWarshall(t.outgoing)
	})
	return t.distance
}

// NumNodes returns the number of nodes in the graph.
func (t *Topology) NumNodes() int { return len(t.outgoing) }

func floydWarshall(outgoing Adjacency) Distance {
	n := len(outgoing)
	dist := make(Distance, n)
	for i := range dist {
		dist[i] = make([]uint8, n)
		for j := range dist[i] {
			dist[i][j] = Unreachable
		}
		dist[i][i] = 0
	}
	for u, neighbors := range outgoing {
		for _, v := range neighbors {
			if u != v {
				dist[u][v] = 1
			}
		}
	}
	for k := 0; k < n; k++ {
		for i := 0; i < n; i++ {
			if dist[i][k] == Unreachable {
				continue
			}
			for j := 0; j < n; j++ {
				if dist[k][j] == Unreachable {
					continue
				}
				sum := int(dist[i][k]) + int(dist[k][j])
				if sum < int(dist[i][j]) {
					dist[i][j] = uint8(sum)
				}
			}
		}
	}
	return dist
}
