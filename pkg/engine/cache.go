package engine

import (
	"fmt"

	"github.com/dshills/nodetick/pkg/graph"
)

// snapshotCache keeps the current snapshot per graph identity, rebuilding
// from the host document when topology changes have been reported and
// carrying per-node execution flags across rebuilds.
//
// It is an explicitly owned object: the engine constructs one and is its sole
// writer during ticks.
type snapshotCache struct {
	snaps map[graph.GraphID]*graph.Snapshot
	stale map[graph.GraphID]bool
}

func newSnapshotCache() *snapshotCache {
	return &snapshotCache{
		snaps: make(map[graph.GraphID]*graph.Snapshot),
		stale: make(map[graph.GraphID]bool),
	}
}

// resolve returns the cached snapshot for the document's graph, building a
// fresh one for an unseen graph or rebuilding and diffing when topology was
// marked outdated.
func (c *snapshotCache) resolve(doc graph.Doc) (*graph.Snapshot, error) {
	id := doc.GraphID()
	old, ok := c.snaps[id]
	if !ok {
		snap, err := graph.Build(doc)
		if err != nil {
			return nil, fmt.Errorf("building snapshot: %w", err)
		}
		c.snaps[id] = snap
		return snap, nil
	}
	if !c.stale[id] {
		return old, nil
	}

	snap, err := graph.Build(doc)
	if err != nil {
		return nil, fmt.Errorf("rebuilding snapshot: %w", err)
	}
	carryState(old, snap)
	applyTopologyDiff(old, snap)
	c.snaps[id] = snap
	delete(c.stale, id)
	return snap, nil
}

// markTopologyChanged invalidates the cached snapshot; the next resolve
// rebuilds and diffs it.
func (c *snapshotCache) markTopologyChanged(id graph.GraphID) {
	if _, ok := c.snaps[id]; ok {
		c.stale[id] = true
	}
}

// markNodesOutdated marks named nodes as needing recomputation. A name that
// cannot be resolved against the cached snapshot downgrades the whole graph
// to a topology rebuild, which makes every unresolved node fresh (and dirty)
// either way.
func (c *snapshotCache) markNodesOutdated(id graph.GraphID, names []string) {
	snap, ok := c.snaps[id]
	if !ok {
		return // nothing cached; the first build starts all-dirty anyway
	}
	for _, name := range names {
		node, found := snap.NodeByName(name)
		if !found {
			c.stale[id] = true
			continue
		}
		node.Updated = false
	}
}

// reset drops all cached snapshots. Required on document reset: snapshots
// hold back-references into a document state that may no longer exist.
func (c *snapshotCache) reset() {
	c.snaps = make(map[graph.GraphID]*graph.Snapshot)
	c.stale = make(map[graph.GraphID]bool)
}

// carryState copies execution flags from the previous snapshot onto nodes
// whose name persists. Nodes absent from the old snapshot keep their fresh
// construction state (not updated, input changed).
func carryState(old, fresh *graph.Snapshot) {
	for _, n := range fresh.Nodes() {
		prev, ok := old.NodeByName(n.Name)
		if !ok {
			continue
		}
		n.Updated = prev.Updated
		n.InputChanged = prev.InputChanged
	}
}

// applyTopologyDiff converts structural deltas between two snapshots of the
// same graph into input-changed markings on the new snapshot.
//
// For an added link the destination is marked only when the source node
// already existed and its specific output socket already had at least one
// outgoing link; otherwise the source itself is marked, because some node
// kinds compute an output only while that socket is connected at all, so
// newly connecting a previously-unconnected socket can change what the
// source produces. This is a documented conservative approximation, not a
// proven minimal-dirty-set rule.
//
// For a removed link the destination, if it still exists, lost an input and
// must treat that as a change.
func applyTopologyDiff(old, fresh *graph.Snapshot) {
	for _, l := range fresh.Links().Difference(old.Links()) {
		sourceKnown := false
		if _, ok := old.NodeByName(l.FromNode); ok {
			sourceKnown = old.Links().HasFrom(l.FromNode, l.FromSocket)
		}
		if sourceKnown {
			if n, ok := fresh.NodeByName(l.ToNode); ok {
				n.InputChanged = true
			}
		} else {
			if n, ok := fresh.NodeByName(l.FromNode); ok {
				n.InputChanged = true
			}
		}
	}

	for _, l := range old.Links().Difference(fresh.Links()) {
		if n, ok := fresh.NodeByName(l.ToNode); ok {
			n.InputChanged = true
		}
	}
}
