package plugscan

import "fmt"

// TypeHierarchy describes the neighbourhood of one type: its own descriptor,
// the types that directly extend it, and the types whose capability closure
// contains it.
type TypeHierarchy struct {
	Type         *Descriptor   `json:"type"`
	Subtypes     []*Descriptor `json:"subtypes,omitempty"`
	Implementers []*Descriptor `json:"implementers,omitempty"`
}

// Hierarchy returns the hierarchy of a registered type, or nil if unknown.
func (q *QueryBuilder) Hierarchy(name string) (*TypeHierarchy, error) {
	d, err := q.reg.Lookup(name)
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: %w", err)
	}
	if d == nil {
		return nil, nil
	}
	h := &TypeHierarchy{Type: d}

	children, err := q.store.TypesWithParent(name)
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: subtypes: %w", err)
	}
	for _, t := range children {
		sd, err := q.reg.Describe(t)
		if err != nil {
			return nil, fmt.Errorf("type hierarchy: %w", err)
		}
		h.Subtypes = append(h.Subtypes, sd)
	}

	implementers, err := q.store.TypesWithCapability(name)
	if err != nil {
		return nil, fmt.Errorf("type hierarchy: implementers: %w", err)
	}
	for _, t := range implementers {
		id, err := q.reg.Describe(t)
		if err != nil {
			return nil, fmt.Errorf("type hierarchy: %w", err)
		}
		h.Implementers = append(h.Implementers, id)
	}
	return h, nil
}
