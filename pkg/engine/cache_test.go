package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/nodetick/pkg/graph"
)

func TestCacheCarriesFlagsAcrossRebuild(t *testing.T) {
	doc, _ := chainDoc("g1", "A", "B")
	cache := newSnapshotCache()

	snap, err := cache.resolve(doc)
	require.NoError(t, err)
	a, _ := snap.NodeByName("A")
	a.Updated = true
	a.InputChanged = false
	b, _ := snap.NodeByName("B")
	b.Updated = true
	b.InputChanged = false

	// no structural change; rebuild must preserve the flags
	cache.markTopologyChanged("g1")
	rebuilt, err := cache.resolve(doc)
	require.NoError(t, err)
	require.NotSame(t, snap, rebuilt)

	a2, _ := rebuilt.NodeByName("A")
	assert.True(t, a2.Updated)
	assert.False(t, a2.InputChanged)
	b2, _ := rebuilt.NodeByName("B")
	assert.True(t, b2.Updated)
	assert.False(t, b2.InputChanged)
}

// A link added from an output socket that already had consumers marks only
// the destination: the source's output is known-good and unchanged.
func TestDiffAddedLinkKnownSocketMarksDestination(t *testing.T) {
	doc, _ := chainDoc("g1", "A", "B")
	c := newProc("C", nil)
	doc.nodes = append(doc.nodes, c)
	doc.outputs = []string{"B", "C"}

	cache := newSnapshotCache()
	snap, err := cache.resolve(doc)
	require.NoError(t, err)
	markClean(snap)

	doc.addLink(newLink("A", "C"))
	cache.markTopologyChanged("g1")
	rebuilt, err := cache.resolve(doc)
	require.NoError(t, err)

	a, _ := rebuilt.NodeByName("A")
	assert.False(t, a.InputChanged)
	b, _ := rebuilt.NodeByName("B")
	assert.False(t, b.InputChanged)
	cNode, _ := rebuilt.NodeByName("C")
	assert.True(t, cNode.InputChanged)
}

// A link added from a previously-unconnected output socket marks the source:
// some node kinds compute an output only while that socket is connected.
func TestDiffAddedLinkNewSocketMarksSource(t *testing.T) {
	a := newProc("A", nil)
	b := newProc("B", nil)
	doc := &fakeDoc{
		id: "g1", name: "socket",
		nodes:   []graph.DocNode{a, b},
		outputs: []string{"A", "B"},
	}

	cache := newSnapshotCache()
	snap, err := cache.resolve(doc)
	require.NoError(t, err)
	markClean(snap)

	doc.addLink(newLink("A", "B"))
	cache.markTopologyChanged("g1")
	rebuilt, err := cache.resolve(doc)
	require.NoError(t, err)

	aNode, _ := rebuilt.NodeByName("A")
	assert.True(t, aNode.InputChanged)
	bNode, _ := rebuilt.NodeByName("B")
	assert.False(t, bNode.InputChanged)
}

// A removed link marks the destination, which lost an input.
func TestDiffRemovedLinkMarksDestination(t *testing.T) {
	doc, _ := chainDoc("g1", "A", "B", "C")
	cache := newSnapshotCache()
	snap, err := cache.resolve(doc)
	require.NoError(t, err)
	markClean(snap)

	doc.removeLink(newLink("A", "B"))
	cache.markTopologyChanged("g1")
	rebuilt, err := cache.resolve(doc)
	require.NoError(t, err)

	a, _ := rebuilt.NodeByName("A")
	assert.False(t, a.InputChanged)
	b, _ := rebuilt.NodeByName("B")
	assert.True(t, b.InputChanged)
	c, _ := rebuilt.NodeByName("C")
	assert.False(t, c.InputChanged)
}

// Removing a link and re-adding the identical 4-tuple before the rebuild
// nets to no change: the added and removed sets cancel in the difference.
func TestDiffRemoveReAddNetsToNoChange(t *testing.T) {
	doc, _ := chainDoc("g1", "A", "B")
	cache := newSnapshotCache()
	snap, err := cache.resolve(doc)
	require.NoError(t, err)
	markClean(snap)

	l := newLink("A", "B")
	doc.removeLink(l)
	doc.addLink(l)
	cache.markTopologyChanged("g1")
	rebuilt, err := cache.resolve(doc)
	require.NoError(t, err)

	a, _ := rebuilt.NodeByName("A")
	assert.False(t, a.InputChanged)
	b, _ := rebuilt.NodeByName("B")
	assert.False(t, b.InputChanged)
}

// A node added by the rebuild starts fresh: not updated, input changed.
func TestDiffNewNodeStartsDirty(t *testing.T) {
	doc, _ := chainDoc("g1", "A", "B")
	cache := newSnapshotCache()
	snap, err := cache.resolve(doc)
	require.NoError(t, err)
	markClean(snap)

	c := newProc("C", nil)
	doc.nodes = append(doc.nodes, c)
	doc.addLink(newLink("B", "C"))
	doc.outputs = []string{"C"}
	cache.markTopologyChanged("g1")
	rebuilt, err := cache.resolve(doc)
	require.NoError(t, err)

	cNode, _ := rebuilt.NodeByName("C")
	assert.False(t, cNode.Updated)
	assert.True(t, cNode.InputChanged)
	a, _ := rebuilt.NodeByName("A")
	assert.True(t, a.Updated)
}

func TestMarkNodesOutdated(t *testing.T) {
	doc, _ := chainDoc("g1", "A", "B")
	cache := newSnapshotCache()
	snap, err := cache.resolve(doc)
	require.NoError(t, err)
	markClean(snap)

	cache.markNodesOutdated("g1", []string{"B"})
	b, _ := snap.NodeByName("B")
	assert.False(t, b.Updated)
	a, _ := snap.NodeByName("A")
	assert.True(t, a.Updated)
}

// A name that cannot be resolved downgrades the graph to a topology rebuild
// instead of surfacing an error.
func TestMarkNodesOutdatedUnknownNodeFallsBack(t *testing.T) {
	doc, _ := chainDoc("g1", "A", "B")
	cache := newSnapshotCache()
	snap, err := cache.resolve(doc)
	require.NoError(t, err)
	markClean(snap)

	cache.markNodesOutdated("g1", []string{"ghost"})
	rebuilt, err := cache.resolve(doc)
	require.NoError(t, err)
	assert.NotSame(t, snap, rebuilt, "unknown node must force a rebuild")
}

func TestCacheReset(t *testing.T) {
	doc, _ := chainDoc("g1", "A")
	cache := newSnapshotCache()
	snap, err := cache.resolve(doc)
	require.NoError(t, err)

	cache.reset()
	rebuilt, err := cache.resolve(doc)
	require.NoError(t, err)
	assert.NotSame(t, snap, rebuilt)

	a, _ := rebuilt.NodeByName("A")
	assert.False(t, a.Updated, "reset must not carry flags forward")
}

// markClean simulates a settled graph: everything updated, nothing pending.
func markClean(snap *graph.Snapshot) {
	for _, n := range snap.Nodes() {
		n.Updated = true
		n.InputChanged = false
		n.OutputChanged = false
	}
}
