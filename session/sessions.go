package session

import (
	"errors"
	"fmt"
	"sync"
)

// ErrType is returned when a session is opened for a type no registered
// source node accepts.
var ErrType = errors.New("session: no source accepts the session's type")

// Source pairs a source node index with the type descriptor it accepts.
// Sources are registered once, at graph construction, before any session
// opens.
type Source struct {
	Node       int
	Descriptor TypeDescriptor
}

// Sessions maps each open session to the source nodes its items fan out
// to. Multiple sources may share a descriptor, in which case one session
// feeds all of them. The collection is guarded by a lock because sessions
// open and close from arbitrary goroutines while the dispatcher reads the
// mapping from its own.
type Sessions struct {
	mu      sync.RWMutex
	sources []Source
	open    map[uint64][]int
	nextID  uint64
}

// NewSessions creates a session collection over the given registered
// sources.
func NewSessions(sources []Source) *Sessions {
	return &Sessions{
		sources: sources,
		open:    make(map[uint64][]int),
	}
}

// Insert opens a new session for the given descriptor, returning its
// freshly minted id and the source nodes it feeds. It fails with ErrType
// when no registered source matches.
func (s *Sessions) Insert(descriptor TypeDescriptor) (uint64, []int, error) {
	var nodes []int
	for _, src := range s.sources {
		if src.Descriptor == descriptor {
			nodes = append(nodes, src.Node)
		}
	}
	if len(nodes) == 0 {
		return 0, nil, fmt.Errorf("%w: %s", ErrType, descriptor.Name())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := s.nextID
	s.open[id] = nodes
	return id, nodes, nil
}

// SourceNodes returns the source nodes session id feeds, or nil if the
// session is not open.
func (s *Sessions) SourceNodes(id uint64) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.open[id]
}

// Remove closes session id, returning the source nodes it fed so the
// caller can fan out a drop notification to their dependents.
func (s *Sessions) Remove(id uint64) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	nodes := s.open[id]
	delete(s.open, id)
	return nodes
}

// Len reports the number of currently open sessions.
func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.open)
}
