package graph

import (
	"errors"
	"fmt"
)

// Snapshot is the immutable-per-version structural model of one graph: its
// nodes, links, and the topological walk order rooted at the graph's output
// nodes. A snapshot is rebuilt wholesale from the host document whenever
// topology changes are suspected; per-node execution flags are the only
// mutable state it carries.
type Snapshot struct {
	id      GraphID
	name    string
	nodes   map[string]*Node
	order   []*Node // walk order: reachable from outputs, dependencies first
	doc     []*Node // all nodes in document iteration order
	outputs []*Node
	links   LinkSet
}

// Build constructs a snapshot from the host document. Node names must be
// unique and links may only reference nodes present in the document; the
// reachable part of the graph must be acyclic.
func Build(doc Doc) (*Snapshot, error) {
	s := &Snapshot{
		id:    doc.GraphID(),
		name:  doc.GraphName(),
		nodes: make(map[string]*Node),
	}

	for _, src := range doc.Nodes() {
		if _, exists := s.nodes[src.Name()]; exists {
			return nil, fmt.Errorf("graph %s: duplicate node name %q", s.name, src.Name())
		}
		n := newNode(src)
		s.nodes[n.Name] = n
		s.doc = append(s.doc, n)
	}

	s.links = make(LinkSet)
	for _, l := range doc.Links() {
		if err := l.Validate(); err != nil {
			return nil, fmt.Errorf("graph %s: %w", s.name, err)
		}
		if _, ok := s.nodes[l.FromNode]; !ok {
			return nil, fmt.Errorf("graph %s: link %s: %w", s.name, l, ErrNodeNotFound)
		}
		to, ok := s.nodes[l.ToNode]
		if !ok {
			return nil, fmt.Errorf("graph %s: link %s: %w", s.name, l, ErrNodeNotFound)
		}
		if !s.links.Contains(l) {
			to.appendLast(s.nodes[l.FromNode])
		}
		s.links.Add(l)
	}

	for _, name := range doc.OutputNodes() {
		out, ok := s.nodes[name]
		if !ok {
			return nil, fmt.Errorf("graph %s: output node %q: %w", s.name, name, ErrNodeNotFound)
		}
		s.outputs = append(s.outputs, out)
	}

	order, err := s.sortedWalk()
	if err != nil {
		return nil, fmt.Errorf("graph %s: %w", s.name, err)
	}
	s.order = order
	return s, nil
}

// appendLast records an upstream dependency, keeping link order and skipping
// duplicates from parallel links between the same node pair.
func (n *Node) appendLast(up *Node) {
	for _, existing := range n.LastNodes {
		if existing == up {
			return
		}
	}
	n.LastNodes = append(n.LastNodes, up)
}

// GraphID returns the graph identity this snapshot was built for.
func (s *Snapshot) GraphID() GraphID { return s.id }

// GraphName returns the graph's display name.
func (s *Snapshot) GraphName() string { return s.name }

// NodeByName resolves a node by its document name.
func (s *Snapshot) NodeByName(name string) (*Node, bool) {
	n, ok := s.nodes[name]
	return n, ok
}

// Order returns the walk order: exactly the nodes reachable upstream from the
// designated output nodes, dependencies before dependents.
func (s *Snapshot) Order() []*Node { return s.order }

// Nodes returns all nodes in document iteration order.
func (s *Snapshot) Nodes() []*Node { return s.doc }

// Links returns the snapshot's link set.
func (s *Snapshot) Links() LinkSet { return s.links }

// sortedWalk computes the topological order over the subgraph reachable
// upstream from the output nodes, using Kahn's algorithm seeded in document
// order so the walk is deterministic.
func (s *Snapshot) sortedWalk() ([]*Node, error) {
	// collect ancestors of the outputs, outputs included
	reachable := make(map[*Node]bool)
	stack := make([]*Node, 0, len(s.outputs))
	for _, out := range s.outputs {
		if !reachable[out] {
			reachable[out] = true
			stack = append(stack, out)
		}
	}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, up := range n.LastNodes {
			if !reachable[up] {
				reachable[up] = true
				stack = append(stack, up)
			}
		}
	}

	inDegree := make(map[*Node]int, len(reachable))
	for n := range reachable {
		inDegree[n] = len(n.LastNodes)
	}

	queue := make([]*Node, 0, len(reachable))
	for _, n := range s.doc {
		if reachable[n] && inDegree[n] == 0 {
			queue = append(queue, n)
		}
	}

	downstream := make(map[*Node][]*Node)
	for _, n := range s.doc {
		if !reachable[n] {
			continue
		}
		for _, up := range n.LastNodes {
			downstream[up] = append(downstream[up], n)
		}
	}

	order := make([]*Node, 0, len(reachable))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		order = append(order, n)
		for _, next := range downstream[n] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}

	if len(order) != len(reachable) {
		return nil, errors.New("graph contains a cycle (circular dependency)")
	}
	return order, nil
}
