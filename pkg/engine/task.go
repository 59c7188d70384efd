package engine

import (
	"context"
	"log"
	"time"

	"github.com/dshills/nodetick/pkg/graph"
)

// Task is one outstanding "evaluate this graph" request wrapping a suspended
// walker. Tasks are identified by graph identity, so duplicate requests for
// the same graph collapse to the one already queued or running.
type Task struct {
	id  graph.GraphID
	doc graph.Doc

	// start defers walker construction to the first run, so the snapshot is
	// resolved only after all markings from the triggering event are applied.
	start func(ctx context.Context) (*Walker, error)

	walker    *Walker
	cancel    context.CancelFunc
	exhausted bool
	lastNode  *graph.Node
	startedAt time.Time
}

// GraphID returns the identity of the graph this task evaluates.
func (t *Task) GraphID() graph.GraphID { return t.id }

// Exhausted reports whether the task's walker has been run to completion or
// discarded by cancellation.
func (t *Task) Exhausted() bool { return t.exhausted }

// LastNode returns the node most recently yielded by the walker, for
// progress display.
func (t *Task) LastNode() *graph.Node { return t.lastNode }

// Run advances the task's walker, pulling node steps until the walker is
// exhausted or the elapsed time reaches maxDuration. It returns how long it
// actually ran; the walk can overshoot by at most one node's own duration
// because a step in flight is never interrupted.
func (t *Task) Run(maxDuration time.Duration) time.Duration {
	begin := time.Now()

	if t.walker == nil {
		ctx, cancel := context.WithCancel(context.Background())
		t.cancel = cancel
		t.startedAt = begin
		w, err := t.start(ctx)
		if err != nil {
			log.Printf("task for graph %s: %v", t.id, err)
			t.exhausted = true
			return time.Since(begin)
		}
		t.walker = w
	}

	for time.Since(begin) < maxDuration {
		node, ok := t.walker.Next()
		if !ok {
			t.exhausted = true
			break
		}
		t.lastNode = node
	}
	return time.Since(begin)
}

// Cancel injects the cancellation signal at the walker's current suspension
// point and discards the remaining walk.
func (t *Task) Cancel() {
	if t.cancel != nil {
		t.cancel()
	}
	if t.walker != nil {
		t.walker.Cancel()
	}
	t.exhausted = true
}

// Elapsed returns the total wall time since the task first ran.
func (t *Task) Elapsed() time.Duration {
	if t.startedAt.IsZero() {
		return 0
	}
	return time.Since(t.startedAt)
}
