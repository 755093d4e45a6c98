package registry

import (
	"fmt"
	"strings"
)

// RedefinitionError reports a type id that is already registered or
// declared twice in the same unit.
type RedefinitionError struct {
	Name         string
	DefiningPath string // "" when the existing type is builtin or in the same unit
}

func (e *RedefinitionError) Error() string {
	if e.DefiningPath != "" {
		return fmt.Sprintf("type %q already defined in %s", e.Name, e.DefiningPath)
	}
	return fmt.Sprintf("type %q already defined", e.Name)
}

// UnresolvedReferenceError reports a reference to a type that is neither
// registered nor declared in the same unit.
type UnresolvedReferenceError struct {
	Type      string
	Reference string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("type %q references unknown type %q", e.Type, e.Reference)
}

// DefinitionError reports a declaration that breaks a kind rule or forms an
// inheritance cycle.
type DefinitionError struct {
	Type   string
	Reason string
}

func (e *DefinitionError) Error() string {
	return fmt.Sprintf("invalid definition of %q: %s", e.Type, e.Reason)
}

// IncompleteTypeError reports a concrete type missing methods required by
// the interfaces in its capability closure.
type IncompleteTypeError struct {
	Type    string
	Missing []string
}

func (e *IncompleteTypeError) Error() string {
	return fmt.Sprintf("type %q does not implement required methods: %s", e.Type, strings.Join(e.Missing, ", "))
}
