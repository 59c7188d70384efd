package graph

import (
	"errors"

	"github.com/google/uuid"
)

// Common graph errors
var (
	// ErrGraphNotFound is returned when a graph cannot be found
	ErrGraphNotFound = errors.New("graph not found")
	// ErrNodeNotFound is returned when a node cannot be resolved in a snapshot
	ErrNodeNotFound = errors.New("node not found")
)

// GraphID is a stable identifier for one logical dataflow graph. It survives
// rebuilds of the graph's structural snapshot; distinct graphs never share one.
type GraphID string

// String returns the string representation of the GraphID
func (g GraphID) String() string {
	return string(g)
}

// NewGraphID generates a new unique GraphID
func NewGraphID() GraphID {
	return GraphID(uuid.New().String())
}

// NodeID is a stable identifier for a node, independent of any single
// snapshot's lifetime. It is the key under which execution outcomes are
// recorded.
type NodeID string

// String returns the string representation of the NodeID
func (n NodeID) String() string {
	return string(n)
}

// NewNodeID generates a new unique NodeID
func NewNodeID() NodeID {
	return NodeID(uuid.New().String())
}
