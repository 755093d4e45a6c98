package registry

import (
	"fmt"
	"time"
)

// LoadedUnit summarizes one registered unit and the types it defined.
type LoadedUnit struct {
	Path     string
	Language string
	Hash     string
	LoadedAt time.Time
	Types    []string
}

// Units returns every registered unit in registration order.
func (r *Registry) Units() ([]LoadedUnit, error) {
	units, err := r.store.Units()
	if err != nil {
		return nil, err
	}
	out := make([]LoadedUnit, 0, len(units))
	for _, u := range units {
		types, err := r.store.TypesByUnit(u.ID)
		if err != nil {
			return nil, fmt.Errorf("units: %w", err)
		}
		lu := LoadedUnit{
			Path:     u.Path,
			Language: u.Language,
			Hash:     u.Hash,
			LoadedAt: u.LoadedAt,
			Types:    make([]string, len(types)),
		}
		for i, t := range types {
			lu.Types[i] = t.Name
		}
		out = append(out, lu)
	}
	return out, nil
}
