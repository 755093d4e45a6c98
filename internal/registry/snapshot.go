package registry

import "fmt"

// Snapshot is the set of type names registered at one point in time.
type Snapshot struct {
	names []string
	set   map[string]struct{}
}

// Snapshot captures the names of every registered type, in registration order.
func (r *Registry) Snapshot() (Snapshot, error) {
	names, err := r.store.TypeNames()
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return Snapshot{names: names, set: set}, nil
}

// Has reports whether name was registered when s was taken.
func (s Snapshot) Has(name string) bool {
	_, ok := s.set[name]
	return ok
}

// Len returns the number of names in s.
func (s Snapshot) Len() int { return len(s.names) }

// Names returns the names in s in registration order.
func (s Snapshot) Names() []string { return s.names }

// Diff returns the names in after that are absent from before, in
// registration order.
func Diff(before, after Snapshot) []string {
	var added []string
	for _, n := range after.names {
		if !before.Has(n) {
			added = append(added, n)
		}
	}
	return added
}
