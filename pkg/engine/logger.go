package engine

import (
	"log"
	"time"

	"github.com/dshills/nodetick/pkg/graph"
	"github.com/dshills/nodetick/pkg/storage"
)

// Logger emits node-run diagnostics and, when a history repository is
// configured, mirrors them to persistent storage. It degrades to plain log
// output when the repository is nil.
type Logger struct {
	repository *storage.HistoryRepository
}

// NewLogger creates a new engine logger.
func NewLogger(repo *storage.HistoryRepository) *Logger {
	return &Logger{repository: repo}
}

// LogNodeRun logs the outcome of one node step and appends it to the history
// repository if one is configured.
func (l *Logger) LogNodeRun(graphID graph.GraphID, key StatusKey, name string, st Status) {
	if st.Err != nil {
		log.Printf("node %q failed: %v", name, st.Err)
	} else {
		log.Printf("node %q updated in %dms", name, st.UpdateTime.Milliseconds())
	}

	if l.repository == nil {
		return
	}
	run := storage.NodeRun{
		GraphID:    graphID.String(),
		NodeKey:    string(key),
		NodeName:   name,
		DurationMS: st.UpdateTime.Milliseconds(),
		StartedAt:  time.Now(),
	}
	if st.Err != nil {
		run.Error = st.Err.Error()
	}
	if err := l.repository.Record(run); err != nil {
		// History is best effort; never fail the walk over it.
		log.Printf("Warning: failed to record node run: %v", err)
	}
}

// LogWalkComplete logs the total wall time of one finished task.
func (l *Logger) LogWalkComplete(graphID graph.GraphID, total time.Duration) {
	log.Printf("graph update - %dms", total.Milliseconds())
}
