package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	opererrors "github.com/dshills/nodetick/pkg/errors"
	"github.com/dshills/nodetick/pkg/graph"
)

// EventKind categorizes the inbound events the engine accepts from the
// editor/document layer.
type EventKind string

const (
	// EventTopologyChanged invalidates the cached snapshot for a graph; the
	// next walk rebuilds and diffs it.
	EventTopologyChanged EventKind = "topology.changed"
	// EventNodesInvalidated marks specific nodes as needing recomputation.
	EventNodesInvalidated EventKind = "nodes.invalidated"
	// EventForceRefresh invalidates the snapshot and every node in the graph.
	EventForceRefresh EventKind = "force.refresh"
	// EventDocumentReset clears all cached snapshots and the entire status
	// store; sent when a new file is loaded or an undo crosses a structural
	// boundary.
	EventDocumentReset EventKind = "document.reset"
)

// Event is one inbound notification from the host.
type Event struct {
	Kind EventKind
	// Doc is the affected graph's document; nil for EventDocumentReset.
	Doc graph.Doc
	// Nodes names the invalidated nodes for EventNodesInvalidated.
	Nodes []string
}

// Timing is one entry of the Timings query: the last recorded duration of a
// node run, or Valid false when the node has no recorded run.
type Timing struct {
	Valid    bool
	Duration time.Duration
}

// Engine is the incremental re-evaluation core: it owns the snapshot cache,
// the status store, and the scheduler, and translates host events into dirty
// markings and queued tasks.
//
// The scheduling model is strictly single-threaded and cooperative; the
// mutex exists only so UI-facing queries may be called between ticks from
// another goroutine without breaking the single-writer invariant.
type Engine struct {
	mu       sync.Mutex
	cache    *snapshotCache
	statuses *StatusStore
	sched    *Scheduler
	logger   *Logger
	budget   time.Duration
	// evalErrs holds per-graph errors from tasks whose walk could not even
	// start, e.g. a document edit that no longer builds into a valid snapshot.
	evalErrs map[graph.GraphID]error
}

// New creates an engine. A nil logger disables run-history recording but
// keeps diagnostics.
func New(logger *Logger) *Engine {
	if logger == nil {
		logger = NewLogger(nil)
	}
	return &Engine{
		cache:    newSnapshotCache(),
		statuses: NewStatusStore(),
		sched:    NewScheduler(logger),
		logger:   logger,
		budget:   DefaultBudget,
		evalErrs: make(map[graph.GraphID]error),
	}
}

// SetBudget overrides the per-tick time budget.
func (e *Engine) SetBudget(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.budget = d
}

// OnTaskDone registers a completion hook on the scheduler.
func (e *Engine) OnTaskDone(fn func(graph.GraphID, time.Duration)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sched.OnTaskDone(fn)
}

// Send translates a host event into dirty markings and, if any node may need
// recomputation, enqueues a task for the affected graph. An unknown event
// kind is a programmer error and is returned, never swallowed.
func (e *Engine) Send(ev Event) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ev.Kind == EventDocumentReset {
		e.sched.Cancel()
		e.cache.reset()
		e.statuses.Reset()
		e.evalErrs = make(map[graph.GraphID]error)
		return nil
	}

	if ev.Doc == nil {
		return fmt.Errorf("event %q carries no document", ev.Kind)
	}
	id := ev.Doc.GraphID()

	// a walk in flight for this graph would keep using a snapshot the event
	// just outdated; abort it first, the markings below re-queue the work
	if cur, ok := e.sched.CurrentGraph(); ok && cur == id {
		e.sched.CancelGraph(id)
	}

	switch ev.Kind {
	case EventTopologyChanged:
		e.cache.markTopologyChanged(id)
	case EventNodesInvalidated:
		e.cache.markNodesOutdated(id, ev.Nodes)
	case EventForceRefresh:
		e.cache.markTopologyChanged(id)
		all := make([]string, 0, len(ev.Doc.Nodes()))
		for _, n := range ev.Doc.Nodes() {
			all = append(all, n.Name())
		}
		e.cache.markNodesOutdated(id, all)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Kind)
	}

	e.enqueue(ev.Doc)
	return nil
}

// enqueue queues an evaluation task for the document's graph. Duplicate
// requests collapse on graph identity.
func (e *Engine) enqueue(doc graph.Doc) {
	t := &Task{
		id:  doc.GraphID(),
		doc: doc,
		// the closure runs inside Tick, under the engine lock
		start: func(ctx context.Context) (*Walker, error) {
			snap, err := e.cache.resolve(doc)
			if err != nil {
				werr := opererrors.NewOperationalErrorWithAttrs("resolving snapshot", doc.GraphID(), "", err,
					map[string]interface{}{"graph_name": doc.GraphName()})
				e.evalErrs[doc.GraphID()] = werr
				return nil, werr
			}
			delete(e.evalErrs, doc.GraphID())
			return newWalker(ctx, snap, e.cache, e.statuses, e.logger, ""), nil
		},
	}
	e.sched.Enqueue(t)
}

// Tick advances the scheduler for one default-budget time slice. Anything
// escaping a node step is caught here so a single malformed tick can never
// wedge the host's periodic driver.
func (e *Engine) Tick() {
	e.TickFor(e.budget)
}

// TickFor advances the scheduler with an explicit time budget.
func (e *Engine) TickFor(budget time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("tick aborted: %v", r)
		}
	}()
	e.sched.Tick(budget)
}

// Cancel clears all pending tasks and aborts the running walk at its current
// suspension point.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.sched.Cancel()
}

// HasWork reports whether any evaluation is queued or in flight.
func (e *Engine) HasWork() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sched.HasWork()
}

// Progress returns the progress text for an active walk, or an empty string
// when idle.
func (e *Engine) Progress() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sched.Progress()
}

// LastError returns the evaluation-level error of the graph's most recent
// task when its walk could not start at all, nil otherwise. Per-node failures
// inside a completed walk are reported through Errors, not here.
func (e *Engine) LastError(id graph.GraphID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.evalErrs[id]
}

// Errors returns, for each node of the document in iteration order, the last
// recorded error or nil.
func (e *Engine) Errors(doc graph.Doc) []error {
	e.mu.Lock()
	defer e.mu.Unlock()
	nodes := doc.Nodes()
	errs := make([]error, len(nodes))
	for i, n := range nodes {
		if st, ok := e.statuses.Get(KeyFor("", n.NodeID())); ok {
			errs[i] = st.Err
		}
	}
	return errs
}

// Timings returns, for each node of the document in iteration order, the
// last recorded execution duration or an invalid Timing when the node never
// ran (or last ran into an error).
func (e *Engine) Timings(doc graph.Doc) []Timing {
	e.mu.Lock()
	defer e.mu.Unlock()
	nodes := doc.Nodes()
	timings := make([]Timing, len(nodes))
	for i, n := range nodes {
		if st, ok := e.statuses.Get(KeyFor("", n.NodeID())); ok && st.Err == nil {
			timings[i] = Timing{Valid: true, Duration: st.UpdateTime}
		}
	}
	return timings
}

// Statuses exposes the process-wide status store for host integrations that
// need per-instantiation-context lookups (group nodes).
func (e *Engine) Statuses() *StatusStore {
	return e.statuses
}
