package engine

import (
	"sync"
	"time"

	"github.com/dshills/nodetick/pkg/graph"
)

// StatusKey identifies one status entry. For nodes at the top level of a
// graph it is the node's stable ID; for nodes inside a group it is prefixed
// with the instantiation path, so each distinct instantiation context of a
// reusable sub-graph accumulates statistics independently.
type StatusKey string

// KeyFor composes a status key from an instantiation path and a node ID.
// An empty path yields the plain node ID.
func KeyFor(path string, id graph.NodeID) StatusKey {
	if path == "" {
		return StatusKey(id)
	}
	return StatusKey(path + "/" + id.String())
}

// childPath extends an instantiation path with a group node's ID.
func childPath(path string, id graph.NodeID) string {
	if path == "" {
		return id.String()
	}
	return path + "/" + id.String()
}

// Status is the last recorded execution outcome of one node: the error it
// raised, or how long its successful run took.
type Status struct {
	Err        error
	UpdateTime time.Duration
}

// StatusStore maps node identity to last execution outcome. It lives
// independently of any single snapshot: entries are created lazily on first
// write and survive snapshot rebuilds until an explicit Reset.
//
// The scheduling model is single-writer, but UI-facing queries may read
// between ticks from other goroutines, so access is serialized with a lock.
type StatusStore struct {
	mu      sync.RWMutex
	entries map[StatusKey]Status
}

// NewStatusStore creates an empty status store.
func NewStatusStore() *StatusStore {
	return &StatusStore{entries: make(map[StatusKey]Status)}
}

// Get returns the last recorded outcome for a node, if any.
func (s *StatusStore) Get(key StatusKey) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.entries[key]
	return st, ok
}

// Set records the outcome of a node run.
func (s *StatusStore) Set(key StatusKey, st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = st
}

// Len returns the number of recorded entries.
func (s *StatusStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Reset drops every entry. Must be called when the host loads a new document
// or performs an undo crossing a structural boundary, because entries refer
// to node identities of a document state that may no longer exist.
func (s *StatusStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[StatusKey]Status)
}
