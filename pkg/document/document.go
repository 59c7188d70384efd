// Package document is a reference implementation of the host document layer
// the evaluation core treats as an external collaborator: it owns the node
// objects, their parameter values, and the computational payload of each
// node kind. The engine only ever sees it through the graph.Doc contract.
package document

import (
	"context"
	"fmt"

	"github.com/expr-lang/expr/vm"
	"github.com/tidwall/gjson"

	"github.com/dshills/nodetick/pkg/graph"
)

// Node kinds supported by the reference document layer.
const (
	KindValue   = "value"   // literal parameter value
	KindExpr    = "expr"    // expression over upstream values
	KindPick    = "pick"    // JSON path extraction from an upstream value
	KindReroute = "reroute" // routing node, no computation
	KindGroup   = "group"   // nested sub-graph
)

// Input binds one input socket of a node to an upstream node's output.
type Input struct {
	Socket string
	From   string
}

// Document is one graph of the host document. It satisfies graph.Doc.
type Document struct {
	id      graph.GraphID
	name    string
	nodes   []docNode
	byName  map[string]docNode
	links   []graph.Link
	outputs []string
}

// docNode is the document-side view of a node shared by all kinds.
type docNode interface {
	graph.DocNode
	base() *baseNode
}

// GraphID returns the graph's stable identity.
func (d *Document) GraphID() graph.GraphID { return d.id }

// GraphName returns the graph's name.
func (d *Document) GraphName() string { return d.name }

// Nodes enumerates the document's nodes in declaration order.
func (d *Document) Nodes() []graph.DocNode {
	out := make([]graph.DocNode, len(d.nodes))
	for i, n := range d.nodes {
		out[i] = n
	}
	return out
}

// Links returns the current edges of the graph.
func (d *Document) Links() []graph.Link {
	out := make([]graph.Link, len(d.links))
	copy(out, d.links)
	return out
}

// OutputNodes names the designated output nodes.
func (d *Document) OutputNodes() []string {
	out := make([]string, len(d.outputs))
	copy(out, d.outputs)
	return out
}

// Value resolves a node's current output value, following reroute chains and
// descending into groups. The second return is false when the node is
// unknown or has not produced a value yet.
func (d *Document) Value(name string) (interface{}, bool) {
	return d.valueOf(name, 0)
}

const maxResolveDepth = 64

func (d *Document) valueOf(name string, depth int) (interface{}, bool) {
	if depth > maxResolveDepth {
		return nil, false
	}
	n, ok := d.byName[name]
	if !ok {
		return nil, false
	}
	switch node := n.(type) {
	case *procNode:
		return node.out, node.hasOut
	case *groupNode:
		inner := node.inner
		if len(inner.outputs) == 0 {
			return nil, false
		}
		return inner.valueOf(inner.outputs[0], depth+1)
	case *baseNode:
		// reroute: mirror the first input's value
		if len(node.inputs) == 0 {
			return nil, false
		}
		return d.valueOf(node.inputs[0].From, depth+1)
	}
	return nil, false
}

// SetValue updates a value node's literal. The host is expected to follow up
// with a NodesInvalidated event for the node.
func (d *Document) SetValue(name string, v interface{}) error {
	n, ok := d.byName[name]
	if !ok {
		return fmt.Errorf("document %s: %w: %s", d.name, graph.ErrNodeNotFound, name)
	}
	p, ok := n.(*procNode)
	if !ok || p.kind != KindValue {
		return fmt.Errorf("document %s: node %q is not a value node", d.name, name)
	}
	p.literal = v
	return nil
}

// AddLink appends an edge. The host is expected to follow up with a
// TopologyChanged event.
func (d *Document) AddLink(l graph.Link) {
	for _, existing := range d.links {
		if existing == l {
			return
		}
	}
	d.links = append(d.links, l)
}

// RemoveLink deletes an edge if present. The host is expected to follow up
// with a TopologyChanged event.
func (d *Document) RemoveLink(l graph.Link) {
	for i, existing := range d.links {
		if existing == l {
			d.links = append(d.links[:i], d.links[i+1:]...)
			return
		}
	}
}

// baseNode carries the identity and wiring every node kind shares. On its
// own it is a pass-through node (reroute).
type baseNode struct {
	doc    *Document
	name   string
	id     graph.NodeID
	inputs []Input
}

// Name returns the node's unique name within the graph.
func (n *baseNode) Name() string { return n.name }

// NodeID returns the node's stable identity.
func (n *baseNode) NodeID() graph.NodeID { return n.id }

func (n *baseNode) base() *baseNode { return n }

// procNode is a leaf computational node: value, expr, or pick.
type procNode struct {
	baseNode
	kind string

	literal interface{} // value nodes
	exprSrc string      // expr nodes
	program *vm.Program // compiled expr program
	path    string      // pick nodes: gjson path

	out    interface{}
	hasOut bool
}

// Process recomputes the node's output from its upstream values.
func (n *procNode) Process(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch n.kind {
	case KindValue:
		n.out = n.literal
		n.hasOut = true
		return nil

	case KindExpr:
		env := make(map[string]interface{}, len(n.inputs))
		for _, in := range n.inputs {
			v, ok := n.doc.valueOf(in.From, 0)
			if !ok {
				return fmt.Errorf("expr node %q: input %q has no value", n.name, in.Socket)
			}
			env[in.Socket] = v
		}
		result, err := vm.Run(n.program, env)
		if err != nil {
			return fmt.Errorf("expr node %q: %w", n.name, err)
		}
		n.out = result
		n.hasOut = true
		return nil

	case KindPick:
		if len(n.inputs) == 0 {
			return fmt.Errorf("pick node %q: no input connected", n.name)
		}
		v, ok := n.doc.valueOf(n.inputs[0].From, 0)
		if !ok {
			return fmt.Errorf("pick node %q: input has no value", n.name)
		}
		doc, ok := v.(string)
		if !ok {
			return fmt.Errorf("pick node %q: input is not a JSON string (got %T)", n.name, v)
		}
		if !gjson.Valid(doc) {
			return fmt.Errorf("pick node %q: input is not valid JSON", n.name)
		}
		result := gjson.Get(doc, n.path)
		if !result.Exists() {
			return fmt.Errorf("pick node %q: path %q not found", n.name, n.path)
		}
		n.out = result.Value()
		n.hasOut = true
		return nil
	}
	return fmt.Errorf("node %q: unsupported kind %q", n.name, n.kind)
}

// groupNode is a composite node wrapping a nested document.
type groupNode struct {
	baseNode
	inner *Document
}

// Inner returns the nested sub-graph's document.
func (n *groupNode) Inner() graph.Doc { return n.inner }
