package plugscan

import (
	"errors"
	"fmt"
)

// ErrSequenceConsumed is yielded when a discovery sequence is ranged over a
// second time.
var ErrSequenceConsumed = errors.New("discovery sequence already consumed")

// UnknownCapabilityError reports a discovery capability that is not
// registered. It is returned before any unit is loaded.
type UnknownCapabilityError struct {
	Name string
}

func (e *UnknownCapabilityError) Error() string {
	return fmt.Sprintf("unknown capability %q", e.Name)
}

// UnknownTypeError reports a predicate argument that is not registered.
type UnknownTypeError struct {
	Name string
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown type %q", e.Name)
}

// OutputSideEffectError reports a unit that wrote output or changed the
// output nesting depth while loading. It aborts the whole discovery call.
type OutputSideEffectError struct {
	Path    string
	Pattern string
	Before  Checkpoint
	After   Checkpoint
}

func (e *OutputSideEffectError) Error() string {
	return fmt.Sprintf("unit %s (matched by %q) produced output while loading (bytes %d -> %d, depth %d -> %d)",
		e.Path, e.Pattern, e.Before.Bytes, e.After.Bytes, e.Before.Depth, e.After.Depth)
}
