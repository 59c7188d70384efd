package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/nodetick/pkg/graph"
)

// newTestTask wires a task over its own cache and the given status store,
// the same shape the engine builds.
func newTestTask(doc graph.Doc, statuses *StatusStore) *Task {
	cache := newSnapshotCache()
	return &Task{
		id:  doc.GraphID(),
		doc: doc,
		start: func(ctx context.Context) (*Walker, error) {
			snap, err := cache.resolve(doc)
			if err != nil {
				return nil, err
			}
			return newWalker(ctx, snap, cache, statuses, NewLogger(nil), ""), nil
		},
	}
}

func TestSchedulerEnqueueDedup(t *testing.T) {
	s := NewScheduler(NewLogger(nil))
	doc, _ := chainDoc("g1", "A")
	statuses := NewStatusStore()

	assert.True(t, s.Enqueue(newTestTask(doc, statuses)))
	assert.False(t, s.Enqueue(newTestTask(doc, statuses)), "same graph must collapse")
	assert.True(t, s.HasWork())

	other, _ := chainDoc("g2", "X")
	assert.True(t, s.Enqueue(newTestTask(other, statuses)))
}

func TestSchedulerTickCompletesTask(t *testing.T) {
	s := NewScheduler(NewLogger(nil))
	doc, procs := chainDoc("g1", "A", "B")
	statuses := NewStatusStore()
	require.True(t, s.Enqueue(newTestTask(doc, statuses)))

	s.Tick(DefaultBudget)

	assert.False(t, s.HasWork())
	assert.Equal(t, 1, procs["A"].runs)
	assert.Equal(t, 1, procs["B"].runs)
	assert.Empty(t, s.Progress(), "progress clears when idle")
}

func TestSchedulerDrainsMultipleTasksInOneTick(t *testing.T) {
	s := NewScheduler(NewLogger(nil))
	statuses := NewStatusStore()
	d1, p1 := chainDoc("g1", "A")
	d2, p2 := chainDoc("g2", "B")
	require.True(t, s.Enqueue(newTestTask(d1, statuses)))
	require.True(t, s.Enqueue(newTestTask(d2, statuses)))

	s.Tick(DefaultBudget)

	assert.False(t, s.HasWork())
	assert.Equal(t, 1, p1["A"].runs)
	assert.Equal(t, 1, p2["B"].runs)
}

func TestSchedulerBudgetSuspendsWalk(t *testing.T) {
	s := NewScheduler(NewLogger(nil))
	statuses := NewStatusStore()

	slow := func(ctx context.Context) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	}
	a := newProc("A", slow)
	b := newProc("B", slow)
	c := newProc("C", slow)
	doc := &fakeDoc{
		id: "g1", name: "slow",
		nodes:   []graph.DocNode{a, b, c},
		links:   []graph.Link{newLink("A", "B"), newLink("B", "C")},
		outputs: []string{"C"},
	}
	require.True(t, s.Enqueue(newTestTask(doc, statuses)))

	s.Tick(time.Millisecond)
	require.True(t, s.HasWork(), "budget must suspend, not finish")
	id, ok := s.CurrentGraph()
	require.True(t, ok)
	assert.Equal(t, graph.GraphID("g1"), id)

	for i := 0; s.HasWork() && i < 100; i++ {
		s.Tick(10 * time.Millisecond)
	}
	assert.False(t, s.HasWork())
	assert.Equal(t, 1, c.runs)
}

func TestSchedulerProgressNamesCurrentNode(t *testing.T) {
	s := NewScheduler(NewLogger(nil))
	statuses := NewStatusStore()
	a := newProc("Alpha", func(ctx context.Context) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	b := newProc("Beta", nil)
	doc := &fakeDoc{
		id: "g1", name: "progress",
		nodes:   []graph.DocNode{a, b},
		links:   []graph.Link{newLink("Alpha", "Beta")},
		outputs: []string{"Beta"},
	}
	require.True(t, s.Enqueue(newTestTask(doc, statuses)))

	s.Tick(time.Millisecond)
	require.True(t, s.HasWork())
	got := s.Progress()
	assert.Contains(t, got, `Press "ESC" to abort, updating node `)
	assert.Regexp(t, `"(Alpha|Beta)"$`, got)
}

func TestSchedulerCancelClearsEverything(t *testing.T) {
	s := NewScheduler(NewLogger(nil))
	statuses := NewStatusStore()

	slow := newProc("A", func(ctx context.Context) error {
		time.Sleep(5 * time.Millisecond)
		return nil
	})
	tail := newProc("B", nil)
	doc := &fakeDoc{
		id: "g1", name: "cancel",
		nodes:   []graph.DocNode{slow, tail},
		links:   []graph.Link{newLink("A", "B")},
		outputs: []string{"B"},
	}
	require.True(t, s.Enqueue(newTestTask(doc, statuses)))
	s.Tick(time.Millisecond) // suspends mid-walk

	other, otherProcs := chainDoc("g2", "X")
	require.True(t, s.Enqueue(newTestTask(other, statuses)))
	s.Cancel()

	assert.False(t, s.HasWork())
	assert.Empty(t, s.Progress())
	// neither the suspended walk's tail nor the never-started task may run
	assert.Equal(t, 0, tail.runs+otherProcs["X"].runs)
}

func TestSchedulerCancelGraphLeavesOthersQueued(t *testing.T) {
	s := NewScheduler(NewLogger(nil))
	statuses := NewStatusStore()
	d1, p1 := chainDoc("g1", "A")
	d2, p2 := chainDoc("g2", "B")
	require.True(t, s.Enqueue(newTestTask(d1, statuses)))
	require.True(t, s.Enqueue(newTestTask(d2, statuses)))

	s.CancelGraph("g1")
	require.True(t, s.HasWork())
	s.Tick(DefaultBudget)

	assert.Equal(t, 0, p1["A"].runs)
	assert.Equal(t, 1, p2["B"].runs)
}

func TestSchedulerOnTaskDone(t *testing.T) {
	s := NewScheduler(NewLogger(nil))
	statuses := NewStatusStore()
	var done []graph.GraphID
	s.OnTaskDone(func(id graph.GraphID, _ time.Duration) {
		done = append(done, id)
	})

	doc, _ := chainDoc("g1", "A")
	require.True(t, s.Enqueue(newTestTask(doc, statuses)))
	s.Tick(DefaultBudget)

	assert.Equal(t, []graph.GraphID{"g1"}, done)
}
