package plugscan

import (
	"fmt"
	"iter"

	"github.com/jward/plugscan/internal/registry"
	"github.com/jward/plugscan/internal/store"
)

// QueryBuilder answers relationship predicates and listings over a registry.
// Every lookup is a read of precomputed closures.
type QueryBuilder struct {
	reg   *registry.Registry
	store *store.Store
}

// NewQueryBuilder returns a QueryBuilder over reg.
func NewQueryBuilder(reg *Registry) *QueryBuilder {
	return &QueryBuilder{reg: reg, store: reg.Store()}
}

// lookup returns the stored row of a registered type or an UnknownTypeError.
func (q *QueryBuilder) lookup(name string) (*store.Type, error) {
	t, err := q.store.TypeByName(name)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", name, err)
	}
	if t == nil {
		return nil, &UnknownTypeError{Name: name}
	}
	return t, nil
}

// holds evaluates rel between two registered types.
func (q *QueryBuilder) holds(rel Relationship, typ, target string) (bool, error) {
	t, err := q.lookup(typ)
	if err != nil {
		return false, err
	}
	if _, err := q.lookup(target); err != nil {
		return false, err
	}
	return satisfies(q.reg, t, rel, target)
}

// Implements reports whether iface is in the capability closure of typ.
// A type never implements itself.
func (q *QueryBuilder) Implements(typ, iface string) (bool, error) {
	return q.holds(RelImplements, typ, iface)
}

// Extends reports whether parent is a strict ancestor of typ.
func (q *QueryBuilder) Extends(typ, parent string) (bool, error) {
	return q.holds(RelExtends, typ, parent)
}

// InheritsOrEquals reports whether typ is target, extends it, or implements it.
func (q *QueryBuilder) InheritsOrEquals(typ, target string) (bool, error) {
	return q.holds(RelInheritsOrEquals, typ, target)
}

// SelectImplements filters types down to those implementing iface.
func (q *QueryBuilder) SelectImplements(types iter.Seq[string], iface string) iter.Seq2[string, error] {
	return q.selectWhere(RelImplements, types, iface)
}

// SelectExtends filters types down to those extending parent.
func (q *QueryBuilder) SelectExtends(types iter.Seq[string], parent string) iter.Seq2[string, error] {
	return q.selectWhere(RelExtends, types, parent)
}

// SelectInherits filters types down to those that inherit from or equal target.
func (q *QueryBuilder) SelectInherits(types iter.Seq[string], target string) iter.Seq2[string, error] {
	return q.selectWhere(RelInheritsOrEquals, types, target)
}

// selectWhere lazily yields the members of types for which rel holds. An
// unknown type or target is yielded as an error and ends the sequence.
func (q *QueryBuilder) selectWhere(rel Relationship, types iter.Seq[string], target string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if _, err := q.lookup(target); err != nil {
			yield("", err)
			return
		}
		for name := range types {
			t, err := q.lookup(name)
			if err != nil {
				yield("", err)
				return
			}
			ok, err := satisfies(q.reg, t, rel, target)
			if err != nil {
				yield("", err)
				return
			}
			if ok && !yield(name, nil) {
				return
			}
		}
	}
}
