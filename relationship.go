package plugscan

import (
	"fmt"
	"strings"
)

// Relationship selects the predicate that gates discovery results.
type Relationship int

const (
	// RelImplements holds when the capability is in the type's capability closure.
	RelImplements Relationship = iota
	// RelExtends holds when the capability is a strict ancestor of the type.
	RelExtends
	// RelInheritsOrEquals holds when the type is the capability, extends it,
	// or implements it.
	RelInheritsOrEquals
)

func (r Relationship) String() string {
	switch r {
	case RelImplements:
		return "implements"
	case RelExtends:
		return "extends"
	case RelInheritsOrEquals:
		return "inherits"
	default:
		return fmt.Sprintf("Relationship(%d)", int(r))
	}
}

func (r Relationship) valid() bool {
	return r >= RelImplements && r <= RelInheritsOrEquals
}

// ParseRelationship parses the names produced by String. "inherits-or-equals"
// is accepted as well.
func ParseRelationship(s string) (Relationship, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "implements":
		return RelImplements, nil
	case "extends":
		return RelExtends, nil
	case "inherits", "inherits-or-equals":
		return RelInheritsOrEquals, nil
	default:
		return 0, fmt.Errorf("unknown relationship %q (want implements, extends or inherits)", s)
	}
}
