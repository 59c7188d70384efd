package graph

import "context"

// Doc is the contract the host document layer satisfies for one graph.
// Snapshots are rebuilt from a Doc on demand; the Doc itself stays owned by
// the host and may change between rebuilds.
type Doc interface {
	// GraphID returns the stable identity of this graph.
	GraphID() GraphID
	// GraphName returns a display name for diagnostics.
	GraphName() string
	// Nodes enumerates the graph's nodes in the host's iteration order.
	Nodes() []DocNode
	// Links enumerates the current edges of the graph.
	Links() []Link
	// OutputNodes names the designated output nodes the walk is rooted at.
	OutputNodes() []string
}

// DocNode is one externally-owned node object mirrored by a snapshot Node.
type DocNode interface {
	// Name is unique within the graph and stable across rebuilds; it is used
	// to carry execution state forward from the previous snapshot.
	Name() string
	// NodeID is the stable identity execution outcomes are recorded under.
	NodeID() NodeID
}

// Processor is the capability of a leaf/computational node: Process performs
// the node's external computation. The context is cancelled when the walk is
// cancelled; a Process that returns the context's error is treated as
// cancellation, not failure.
type Processor interface {
	Process(ctx context.Context) error
}

// Group is the capability of a composite node wrapping a nested sub-graph.
// Its evaluation is delegated to a nested walk over the inner document.
type Group interface {
	Inner() Doc
}
