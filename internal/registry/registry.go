// Package registry is the process-wide type registry: it validates the
// declarations of a loaded unit, computes ancestor chains and capability
// closures once, and commits them to the store atomically.
package registry

import (
	"fmt"
	"sync"
	"time"

	"github.com/jward/plugscan/internal/store"
)

// Registry is append-only. All mutation goes through Define and
// DefineBuiltins, which are serialized by mu.
type Registry struct {
	mu    sync.Mutex
	store *store.Store
	now   func() time.Time
}

// New returns a Registry backed by s. The store must already be migrated.
func New(s *store.Store) *Registry {
	return &Registry{store: s, now: time.Now}
}

// Store returns the backing store for read-only queries.
func (r *Registry) Store() *store.Store {
	return r.store
}

// Define validates and registers every declaration of u. Registering a path
// that is already registered is a no-op returning the unit's type names.
// On error nothing from u is registered.
func (r *Registry) Define(u Unit) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if names, ok, err := r.unitTypes(u.Path); err != nil || ok {
		return names, err
	}

	recs, err := newBuilder(r.store, u.Path).build(u.Decls)
	if err != nil {
		return nil, err
	}
	unit := &store.Unit{
		Path:     u.Path,
		Language: u.Language,
		Hash:     u.Hash,
		LoadedAt: r.now().UTC(),
	}
	if err := r.store.CommitUnit(unit, recs); err != nil {
		return nil, fmt.Errorf("define %s: %w", u.Path, err)
	}

	names := make([]string, len(recs))
	for i := range recs {
		names[i] = recs[i].Type.Name
	}
	return names, nil
}

// DefineBuiltins registers declarations that belong to no unit. Declarations
// whose name is already registered are skipped, so repeated calls are safe.
func (r *Registry) DefineBuiltins(decls []Declaration) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, len(decls))
	for i, d := range decls {
		names[i] = d.Name
	}
	existing, err := r.store.TypesByNames(names)
	if err != nil {
		return fmt.Errorf("define builtins: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, t := range existing {
		known[t.Name] = true
	}
	var pending []Declaration
	for _, d := range decls {
		if !known[d.Name] {
			pending = append(pending, d)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	recs, err := newBuilder(r.store, "").build(pending)
	if err != nil {
		return fmt.Errorf("define builtins: %w", err)
	}
	if err := r.store.CommitUnit(nil, recs); err != nil {
		return fmt.Errorf("define builtins: %w", err)
	}
	return nil
}

// UnitTypes returns the names of the types defined by the unit at path, and
// whether that unit is registered at all.
func (r *Registry) UnitTypes(path string) ([]string, bool, error) {
	return r.unitTypes(path)
}

func (r *Registry) unitTypes(path string) ([]string, bool, error) {
	u, err := r.store.UnitByPath(path)
	if err != nil {
		return nil, false, fmt.Errorf("unit types: %w", err)
	}
	if u == nil {
		return nil, false, nil
	}
	types, err := r.store.TypesByUnit(u.ID)
	if err != nil {
		return nil, false, fmt.Errorf("unit types: %w", err)
	}
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name
	}
	return names, true, nil
}

// Has reports whether a type with the given id is registered.
func (r *Registry) Has(name string) (bool, error) {
	t, err := r.store.TypeByName(name)
	if err != nil {
		return false, err
	}
	return t != nil, nil
}

// Lookup returns the descriptor of a type, or nil if it is not registered.
func (r *Registry) Lookup(name string) (*Descriptor, error) {
	t, err := r.store.TypeByName(name)
	if err != nil {
		return nil, fmt.Errorf("lookup %q: %w", name, err)
	}
	if t == nil {
		return nil, nil
	}
	return r.Describe(t)
}

// Describe expands a stored type row into a full descriptor.
func (r *Registry) Describe(t *store.Type) (*Descriptor, error) {
	d := &Descriptor{
		ID:           t.ID,
		Name:         t.Name,
		Kind:         t.Kind,
		Abstract:     t.Abstract,
		Instantiable: t.Instantiable,
		Parent:       t.Parent,
		DefiningPath: t.UnitPath,
		Language:     t.Language,
	}

	ancestors, err := r.store.Ancestors(t.ID)
	if err != nil {
		return nil, fmt.Errorf("describe %q: %w", t.Name, err)
	}
	for _, a := range ancestors {
		d.Ancestors = append(d.Ancestors, a.Name)
	}

	caps, err := r.store.Capabilities(t.ID)
	if err != nil {
		return nil, fmt.Errorf("describe %q: %w", t.Name, err)
	}
	for _, c := range caps {
		d.Capabilities = append(d.Capabilities, c.Name)
	}

	if d.Methods, err = r.store.Methods(t.ID, store.MethodProvided); err != nil {
		return nil, fmt.Errorf("describe %q: %w", t.Name, err)
	}
	if d.RequiredMethods, err = r.store.Methods(t.ID, store.MethodRequired); err != nil {
		return nil, fmt.Errorf("describe %q: %w", t.Name, err)
	}
	return d, nil
}

// MaxTypeID returns the id of the most recently registered type.
func (r *Registry) MaxTypeID() (int64, error) {
	return r.store.MaxTypeID()
}

// TypesAfter returns a page of types registered after afterID, bounded by uptoID.
func (r *Registry) TypesAfter(afterID, uptoID int64, limit int) ([]*store.Type, error) {
	return r.store.TypesAfter(afterID, uptoID, limit)
}

// HasCapability reports whether capability is in the closure of type typeID.
func (r *Registry) HasCapability(typeID int64, capability string) (bool, error) {
	return r.store.HasCapability(typeID, capability)
}

// HasAncestor reports whether ancestor is in the ancestor chain of type typeID.
func (r *Registry) HasAncestor(typeID int64, ancestor string) (bool, error) {
	return r.store.HasAncestor(typeID, ancestor)
}

// Descriptor is the registry view of one type.
type Descriptor struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Kind            string   `json:"kind"`
	Abstract        bool     `json:"abstract"`
	Instantiable    bool     `json:"instantiable"`
	Parent          string   `json:"parent,omitempty"`
	Ancestors       []string `json:"ancestors,omitempty"`    // nearest first
	Capabilities    []string `json:"capabilities,omitempty"` // full closure, sorted
	Methods         []string `json:"methods,omitempty"`
	RequiredMethods []string `json:"required_methods,omitempty"`
	DefiningPath    string   `json:"defining_path,omitempty"` // "" for builtins
	Language        string   `json:"language,omitempty"`
}
