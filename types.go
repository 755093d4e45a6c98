package plugscan

import (
	"github.com/jward/plugscan/internal/output"
	"github.com/jward/plugscan/internal/registry"
)

// Public type aliases for internal types used in the Engine and QueryBuilder
// API. These are Go type aliases (=), so no conversion is needed.

type Registry = registry.Registry
type Descriptor = registry.Descriptor
type Declaration = registry.Declaration
type Snapshot = registry.Snapshot
type LoadedUnit = registry.LoadedUnit
type Capture = output.Capture
type Checkpoint = output.Checkpoint

// Load failures reported by the registry. Discovery absorbs them; they reach
// callers that drive a ModuleLoader directly.
type RedefinitionError = registry.RedefinitionError
type UnresolvedReferenceError = registry.UnresolvedReferenceError
type DefinitionError = registry.DefinitionError
type IncompleteTypeError = registry.IncompleteTypeError

// Diff returns the names registered in after but not in before, in
// registration order.
func Diff(before, after Snapshot) []string {
	return registry.Diff(before, after)
}
