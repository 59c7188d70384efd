// Package errors carries the contextual error type that evaluation failures
// are reported with once they cross the engine boundary.
package errors

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/dshills/nodetick/pkg/graph"
)

// OperationalError attaches evaluation context to an error: which operation
// failed, on which graph, and, when one is attributable, which node. Hosts
// render it directly; errors.Is/As reach the underlying cause.
type OperationalError struct {
	Operation  string
	GraphID    graph.GraphID
	NodeID     graph.NodeID
	Timestamp  time.Time
	Attributes map[string]interface{}
	Cause      error
}

// NewOperationalError wraps a cause with evaluation context. Returns nil when
// the cause is nil, so it can be applied unconditionally on return paths.
func NewOperationalError(operation string, graphID graph.GraphID, nodeID graph.NodeID, cause error) *OperationalError {
	return NewOperationalErrorWithAttrs(operation, graphID, nodeID, cause, nil)
}

// NewOperationalErrorWithAttrs wraps a cause with evaluation context plus
// free-form diagnostic attributes. Returns nil when the cause is nil.
func NewOperationalErrorWithAttrs(operation string, graphID graph.GraphID, nodeID graph.NodeID, cause error, attrs map[string]interface{}) *OperationalError {
	if cause == nil {
		return nil
	}
	return &OperationalError{
		Operation:  operation,
		GraphID:    graphID,
		NodeID:     nodeID,
		Timestamp:  time.Now(),
		Attributes: attrs,
		Cause:      cause,
	}
}

// Error renders "[timestamp] operation: graph=<id> node=<id> k=v ...: cause".
// The node segment is omitted when no node is attributable; attributes are
// rendered in sorted key order so messages are stable.
func (e *OperationalError) Error() string {
	if e == nil {
		return "<nil>"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s: graph=%s", e.Timestamp.Format(time.RFC3339), e.Operation, e.GraphID)
	if e.NodeID != "" {
		fmt.Fprintf(&b, " node=%s", e.NodeID)
	}

	keys := make([]string, 0, len(e.Attributes))
	for k := range e.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Attributes[k])
	}

	fmt.Fprintf(&b, ": %v", e.Cause)
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *OperationalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}
