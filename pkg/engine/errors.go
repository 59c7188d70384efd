package engine

import (
	"context"
	"errors"
)

// ErrCancelled is the distinguished cancellation signal. It aborts the
// current task entirely and is never recorded against the node that was
// executing when the walk was cancelled.
var ErrCancelled = errors.New("graph evaluation cancelled")

// ErrUnknownEvent is returned when an event of an unrecognized kind is sent
// to the engine. This is a programmer error and is never silently swallowed.
var ErrUnknownEvent = errors.New("unknown event kind")

// isCancel reports whether a node step failed because the walk was cancelled
// rather than because the node's own computation failed.
func isCancel(err error) bool {
	return errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled)
}
