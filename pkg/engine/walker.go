package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/dshills/nodetick/pkg/graph"
)

// Walker produces node steps for exactly the nodes that are reachable and
// computable, in the snapshot's topological order. It is an explicit
// resumable state machine standing in for generator semantics: Next returns
// the node about to be processed ("yield") and the pending step's work is
// performed at the start of the following Next call, which is the sole
// suspension point the scheduler uses for time-slicing and cancellation.
type Walker struct {
	ctx      context.Context
	cache    *snapshotCache
	statuses *StatusStore
	logger   *Logger

	snap *graph.Snapshot
	// path is the instantiation context for status keys; empty at top level,
	// extended with the group node's ID for each nested walk.
	path string

	idx     int
	pending *graph.Node
	// pendingShould carries a group step's dispatch decision across the yield.
	pendingShould bool
	nested        *nestedRun

	done      bool
	cancelled bool

	// aggregates reported to an enclosing group step
	outputChanged bool
	failed        error
}

// nestedRun tracks a group node whose inner walk is being forwarded.
type nestedRun struct {
	walker  *Walker
	node    *graph.Node
	started time.Time
}

// newWalker creates a walker over one snapshot.
func newWalker(ctx context.Context, snap *graph.Snapshot, cache *snapshotCache, statuses *StatusStore, logger *Logger, path string) *Walker {
	return &Walker{
		ctx:      ctx,
		cache:    cache,
		statuses: statuses,
		logger:   logger,
		snap:     snap,
		path:     path,
	}
}

// Next runs the step yielded by the previous call, if any, then advances to
// the next node that needs work and yields it before touching it. It returns
// false when the walk is exhausted or cancelled.
func (w *Walker) Next() (*graph.Node, bool) {
	if w.done {
		return nil, false
	}
	w.runPending()

	for !w.done {
		// forward a nested group walk transparently so the outer scheduler
		// can time-slice through nested work
		if w.nested != nil {
			if n, ok := w.nested.walker.Next(); ok {
				return n, true
			}
			w.finishNested()
			continue
		}

		if w.idx >= len(w.snap.Order()) {
			w.done = true
			break
		}
		node := w.snap.Order()[w.idx]
		w.idx++

		// a node is only dispatched when every upstream ended updated; a
		// failed, cancelled, or blocked upstream forces this node down
		// without dispatch, propagating the blockage along the chain while
		// leaving independent sibling branches untouched
		if !upstreamReady(node) {
			node.Updated = false
			node.OutputChanged = false
			continue
		}

		switch node.Kind {
		case graph.KindPassThrough:
			should := shouldRun(node)
			node.InputChanged = false
			node.Updated = true
			node.OutputChanged = should
			if should {
				w.outputChanged = true
			}

		case graph.KindProcess:
			should := shouldRun(node)
			node.OutputChanged = false
			node.InputChanged = false
			if !should {
				continue
			}
			w.pending = node
			return node, true

		case graph.KindGroup:
			// the group step always yields itself once, even when its inner
			// walk turns out to have nothing to do
			w.pendingShould = shouldRun(node)
			w.pending = node
			return node, true
		}
	}
	return nil, false
}

// Cancel routes the cancellation signal into the walk at its current
// suspension point: the pending step takes the cancellation branch (left
// not-updated, no error recorded) and the walk is discarded.
func (w *Walker) Cancel() {
	if w.done && w.pending == nil {
		return
	}
	w.cancelled = true
	if w.nested != nil {
		w.nested.walker.Cancel()
		w.nested.node.Updated = false
		w.nested.node.OutputChanged = false
		w.nested = nil
	}
	if w.pending != nil {
		w.pending.Updated = false
		w.pending.OutputChanged = false
		w.pending = nil
	}
	w.done = true
}

// Cancelled reports whether the walk was aborted by a cancellation signal.
func (w *Walker) Cancelled() bool { return w.cancelled }

// runPending performs the work of the step yielded by the previous Next call.
func (w *Walker) runPending() {
	node := w.pending
	if node == nil {
		return
	}
	w.pending = nil

	if w.cancelled || w.ctx.Err() != nil {
		node.Updated = false
		node.OutputChanged = false
		w.cancelled = true
		w.done = true
		return
	}

	switch node.Kind {
	case graph.KindProcess:
		w.runProcess(node)
	case graph.KindGroup:
		w.startNested(node)
	}
}

// runProcess executes a leaf node's external computation and records the
// outcome. Failures are captured at this boundary and never unwind past the
// walker; cancellation aborts the whole walk without attributing an error to
// the interrupted node.
func (w *Walker) runProcess(node *graph.Node) {
	start := time.Now()
	err := node.Proc.Process(w.ctx)
	elapsed := time.Since(start)

	switch {
	case err == nil:
		node.Updated = true
		node.OutputChanged = true
		w.outputChanged = true
		w.record(node, Status{UpdateTime: elapsed})
	case isCancel(err):
		node.Updated = false
		w.cancelled = true
		w.done = true
	default:
		node.Updated = false
		w.failed = err
		w.record(node, Status{Err: err})
	}
}

// startNested begins the delegated walk of a composite node's inner graph.
// When the group's own inputs changed, the inner source nodes are marked so
// the change propagates into the sub-graph.
func (w *Walker) startNested(node *graph.Node) {
	inner := node.Grp.Inner()
	snap, err := w.cache.resolve(inner)
	if err != nil {
		err = fmt.Errorf("group %q: %w", node.Name, err)
		node.Updated = false
		node.OutputChanged = false
		w.failed = err
		w.record(node, Status{Err: err})
		return
	}
	if w.pendingShould {
		for _, n := range snap.Order() {
			if len(n.LastNodes) == 0 {
				n.InputChanged = true
			}
		}
	}
	nw := newWalker(w.ctx, snap, w.cache, w.statuses, w.logger, childPath(w.path, node.ID))
	w.nested = &nestedRun{walker: nw, node: node, started: time.Now()}
}

// finishNested derives the group node's own flags from the completed inner
// walk instead of computing them locally.
func (w *Walker) finishNested() {
	nr := w.nested
	w.nested = nil

	if nr.walker.Cancelled() {
		nr.node.Updated = false
		nr.node.OutputChanged = false
		w.cancelled = true
		w.done = true
		return
	}

	node := nr.node
	err := nr.walker.failed
	changed := nr.walker.outputChanged
	if err != nil {
		// the inner failure is this walk's failure too, so a group enclosing
		// this one derives not-updated the same way
		w.failed = err
	}

	node.InputChanged = false
	node.Updated = err == nil
	node.OutputChanged = changed
	if changed {
		w.outputChanged = true
	}
	if changed || err != nil {
		st := Status{Err: err}
		if err == nil {
			st.UpdateTime = time.Since(nr.started)
		}
		w.record(node, st)
	}
}

// record writes a node outcome to the status store and the logger.
func (w *Walker) record(node *graph.Node, st Status) {
	key := KeyFor(w.path, node.ID)
	w.statuses.Set(key, st)
	w.logger.LogNodeRun(w.snap.GraphID(), key, node.Name, st)
}

// shouldRun is the recomputation gate: a node runs when its cached output is
// invalid, its inputs were structurally changed, or any upstream produced a
// different output this walk.
func shouldRun(node *graph.Node) bool {
	if !node.Updated || node.InputChanged {
		return true
	}
	for _, up := range node.LastNodes {
		if up.OutputChanged {
			return true
		}
	}
	return false
}

// upstreamReady reports whether every upstream node ended its own step with a
// valid output.
func upstreamReady(node *graph.Node) bool {
	for _, up := range node.LastNodes {
		if !up.Updated {
			return false
		}
	}
	return true
}
