package engine

import (
	"fmt"
	"time"

	"github.com/dshills/nodetick/pkg/graph"
)

// DefaultBudget is the default time slice for one tick. 150ms is the
// practical ceiling for a responsive host tick.
const DefaultBudget = 150 * time.Millisecond

// CancelKey is the hotkey named in the progress message the host displays
// while a walk is in flight.
const CancelKey = "ESC"

// Scheduler holds pending tasks, one per distinct graph identity, and drives
// the current task's walker in bounded time slices on each external tick.
// At most one task is ever active, which serializes all mutation of the
// shared snapshot cache and status store.
type Scheduler struct {
	pending map[graph.GraphID]*Task
	current *Task
	logger  *Logger

	progress string
	// onDone, when set, is invoked after a task finalizes so the host can
	// e.g. suppress a redundant re-trigger of the same graph.
	onDone func(graph.GraphID, time.Duration)
}

// NewScheduler creates an empty scheduler.
func NewScheduler(logger *Logger) *Scheduler {
	return &Scheduler{
		pending: make(map[graph.GraphID]*Task),
		logger:  logger,
	}
}

// OnTaskDone registers a completion hook called with the graph identity and
// total wall time each time a task finalizes.
func (s *Scheduler) OnTaskDone(fn func(graph.GraphID, time.Duration)) {
	s.onDone = fn
}

// Enqueue inserts a task unless one already exists for the same graph
// identity. Duplicate requests for an in-flight graph are no-ops; Enqueue
// reports whether the task was accepted.
func (s *Scheduler) Enqueue(t *Task) bool {
	if s.current != nil && s.current.GraphID() == t.GraphID() {
		return false
	}
	if _, ok := s.pending[t.GraphID()]; ok {
		return false
	}
	s.pending[t.GraphID()] = t
	return true
}

// HasWork reports whether any task is queued or running.
func (s *Scheduler) HasWork() bool {
	return s.current != nil || len(s.pending) > 0
}

// CurrentGraph returns the identity of the graph being walked, if any.
func (s *Scheduler) CurrentGraph() (graph.GraphID, bool) {
	if s.current == nil {
		return "", false
	}
	return s.current.GraphID(), true
}

// Progress returns a human-readable description of the node currently being
// processed and the cancellation hotkey, or an empty string when idle.
func (s *Scheduler) Progress() string {
	return s.progress
}

// Tick advances the current task within the given time budget, switching to
// the next pending task when one is exhausted and time remains. Order among
// distinct pending graphs is unspecified.
func (s *Scheduler) Tick(budget time.Duration) {
	var spent time.Duration
	for {
		t := s.currentTask()
		if t == nil {
			return
		}
		if spent >= budget {
			return
		}
		spent += t.Run(budget - spent)
		if last := t.LastNode(); last != nil {
			s.progress = fmt.Sprintf("Press %q to abort, updating node %q", CancelKey, last.Name)
		}
		if t.Exhausted() {
			s.finalize(t)
		}
	}
}

// Cancel clears all pending tasks and, if a task is running, routes the
// cancellation signal into it and finalizes immediately.
func (s *Scheduler) Cancel() {
	s.pending = make(map[graph.GraphID]*Task)
	if s.current != nil {
		t := s.current
		t.Cancel()
		s.finalize(t)
	}
}

// CancelGraph aborts a single graph's task, pending or running, leaving the
// rest of the queue untouched.
func (s *Scheduler) CancelGraph(id graph.GraphID) {
	delete(s.pending, id)
	if s.current != nil && s.current.GraphID() == id {
		t := s.current
		t.Cancel()
		s.finalize(t)
	}
}

// currentTask returns the running task, popping one from the pending set
// when none is active.
func (s *Scheduler) currentTask() *Task {
	if s.current != nil {
		return s.current
	}
	for id, t := range s.pending {
		delete(s.pending, id)
		s.current = t
		return t
	}
	return nil
}

// finalize clears transient progress state, reports the task's total elapsed
// wall time, and signals completion to the host.
func (s *Scheduler) finalize(t *Task) {
	s.progress = ""
	s.current = nil
	total := t.Elapsed()
	s.logger.LogWalkComplete(t.GraphID(), total)
	if t.cancel != nil {
		t.cancel()
	}
	if s.onDone != nil {
		s.onDone(t.GraphID(), total)
	}
}
