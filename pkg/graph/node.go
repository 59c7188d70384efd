package graph

// StepKind is the closed set of node step variants. It is resolved once when
// a snapshot is built, from the capabilities of the node's document object.
type StepKind int

const (
	// KindPassThrough is a routing/organizational node with no computation.
	KindPassThrough StepKind = iota
	// KindProcess is a leaf node that exposes a recompute capability.
	KindProcess
	// KindGroup is a composite node wrapping a nested sub-graph.
	KindGroup
)

// String returns a readable name for the step kind.
func (k StepKind) String() string {
	switch k {
	case KindProcess:
		return "process"
	case KindGroup:
		return "group"
	default:
		return "pass-through"
	}
}

// Node is the snapshot-local execution state of one document node.
//
// The three booleans encode whether the node needs recomputation and whether
// its last run changed anything observable downstream:
//   - Updated: the node's cached output is currently valid.
//   - InputChanged: an upstream output changed since the node last ran, or a
//     structural change implies it might have.
//   - OutputChanged: the most recent run produced a different output. Set only
//     as a result of actually running.
//
// A fresh Node starts not-updated with InputChanged true; rebuilds carry the
// flags forward for nodes whose name persists.
type Node struct {
	Name string
	ID   NodeID
	Kind StepKind

	// Source is the externally-owned document object this node mirrors.
	Source DocNode
	// Proc is set when Kind is KindProcess.
	Proc Processor
	// Grp is set when Kind is KindGroup.
	Grp Group

	// LastNodes are the node's upstream dependencies, in link order.
	LastNodes []*Node

	Updated       bool
	InputChanged  bool
	OutputChanged bool
}

// newNode wraps a document node, resolving its step kind from capabilities.
func newNode(src DocNode) *Node {
	n := &Node{
		Name:         src.Name(),
		ID:           src.NodeID(),
		Source:       src,
		InputChanged: true,
	}
	switch p := src.(type) {
	case Group:
		n.Kind = KindGroup
		n.Grp = p
	case Processor:
		n.Kind = KindProcess
		n.Proc = p
	default:
		n.Kind = KindPassThrough
	}
	return n
}
