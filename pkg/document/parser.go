package document

import (
	"fmt"
	"os"
	"sort"

	"github.com/expr-lang/expr"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/dshills/nodetick/pkg/graph"
)

// DefaultSocket is the output socket name every node kind publishes on, and
// the implicit socket for input sugar entries.
const DefaultSocket = "value"

// yamlFile is the YAML structure before conversion to document objects
type yamlFile struct {
	Version string      `yaml:"version"`
	Graphs  []yamlGraph `yaml:"graphs"`
}

type yamlGraph struct {
	Name    string     `yaml:"name"`
	ID      string     `yaml:"id,omitempty"`
	Outputs []string   `yaml:"outputs"`
	Nodes   []yamlNode `yaml:"nodes"`
	Links   []yamlLink `yaml:"links,omitempty"`
}

type yamlNode struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"`

	// value nodes
	Value interface{} `yaml:"value,omitempty"`

	// expr nodes
	Expr string `yaml:"expr,omitempty"`

	// pick nodes
	Path string `yaml:"path,omitempty"`

	// input socket -> upstream node name (sugar for links)
	Inputs map[string]string `yaml:"inputs,omitempty"`

	// group nodes
	Graph *yamlGraph `yaml:"graph,omitempty"`
}

type yamlLink struct {
	From       string `yaml:"from"`
	FromSocket string `yaml:"from_socket,omitempty"`
	To         string `yaml:"to"`
	ToSocket   string `yaml:"to_socket,omitempty"`
}

// Load reads and parses a document file.
func Load(path string) ([]*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document file: %w", err)
	}
	return Parse(data)
}

// Parse converts YAML bytes into documents, one per graph. Node payloads are
// resolved here: expression programs are compiled once at parse time.
func Parse(data []byte) ([]*Document, error) {
	var file yamlFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse document YAML: %w", err)
	}
	if file.Version == "" {
		return nil, fmt.Errorf("document: missing version")
	}
	if len(file.Graphs) == 0 {
		return nil, fmt.Errorf("document: no graphs defined")
	}

	docs := make([]*Document, 0, len(file.Graphs))
	for i := range file.Graphs {
		doc, err := buildGraph(&file.Graphs[i])
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// buildGraph converts one yamlGraph into a Document.
func buildGraph(yg *yamlGraph) (*Document, error) {
	if yg.Name == "" {
		return nil, fmt.Errorf("document: graph with empty name")
	}

	d := &Document{
		name:    yg.Name,
		outputs: yg.Outputs,
		byName:  make(map[string]docNode),
	}
	if yg.ID != "" {
		d.id = graph.GraphID(yg.ID)
	} else {
		d.id = graph.GraphID(uuid.New().String())
	}

	for i := range yg.Nodes {
		node, err := buildNode(d, &yg.Nodes[i])
		if err != nil {
			return nil, fmt.Errorf("graph %s: %w", yg.Name, err)
		}
		if _, exists := d.byName[node.base().name]; exists {
			return nil, fmt.Errorf("graph %s: duplicate node name %q", yg.Name, node.base().name)
		}
		d.nodes = append(d.nodes, node)
		d.byName[node.base().name] = node
	}

	// derive links from input sugar, then append explicit links
	for _, n := range d.nodes {
		for _, in := range n.base().inputs {
			d.AddLink(graph.Link{
				FromNode:   in.From,
				FromSocket: DefaultSocket,
				ToNode:     n.base().name,
				ToSocket:   in.Socket,
			})
		}
	}
	for _, yl := range yg.Links {
		l := graph.Link{
			FromNode:   yl.From,
			FromSocket: yl.FromSocket,
			ToNode:     yl.To,
			ToSocket:   yl.ToSocket,
		}
		if l.FromSocket == "" {
			l.FromSocket = DefaultSocket
		}
		if l.ToSocket == "" {
			l.ToSocket = DefaultSocket
		}
		d.AddLink(l)
	}

	return d, nil
}

// buildNode converts one yamlNode, compiling its payload.
func buildNode(d *Document, yn *yamlNode) (docNode, error) {
	if yn.Name == "" {
		return nil, fmt.Errorf("node with empty name")
	}

	base := baseNode{
		doc:    d,
		name:   yn.Name,
		id:     graph.NodeID(uuid.New().String()),
		inputs: sortedInputs(yn.Inputs),
	}

	switch yn.Kind {
	case KindReroute:
		return &base, nil

	case KindValue:
		return &procNode{baseNode: base, kind: KindValue, literal: yn.Value}, nil

	case KindExpr:
		if yn.Expr == "" {
			return nil, fmt.Errorf("expr node %q: missing expression", yn.Name)
		}
		program, err := expr.Compile(yn.Expr)
		if err != nil {
			return nil, fmt.Errorf("expr node %q: %w", yn.Name, err)
		}
		return &procNode{baseNode: base, kind: KindExpr, exprSrc: yn.Expr, program: program}, nil

	case KindPick:
		if yn.Path == "" {
			return nil, fmt.Errorf("pick node %q: missing path", yn.Name)
		}
		return &procNode{baseNode: base, kind: KindPick, path: yn.Path}, nil

	case KindGroup:
		if yn.Graph == nil {
			return nil, fmt.Errorf("group node %q: missing inner graph", yn.Name)
		}
		inner, err := buildGraph(yn.Graph)
		if err != nil {
			return nil, fmt.Errorf("group node %q: %w", yn.Name, err)
		}
		return &groupNode{baseNode: base, inner: inner}, nil

	default:
		return nil, fmt.Errorf("node %q: unknown kind %q", yn.Name, yn.Kind)
	}
}

// sortedInputs converts the input map into a deterministic slice, ordered by
// socket name so link derivation is stable across parses.
func sortedInputs(in map[string]string) []Input {
	if len(in) == 0 {
		return nil
	}
	sockets := make([]string, 0, len(in))
	for s := range in {
		sockets = append(sockets, s)
	}
	sort.Strings(sockets)
	inputs := make([]Input, 0, len(in))
	for _, s := range sockets {
		inputs = append(inputs, Input{Socket: s, From: in[s]})
	}
	return inputs
}
