package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jward/plugscan/internal/store"
)

// typeInfo is the computed shape of one type: declared locally in the unit
// being registered, or read back from the store.
type typeInfo struct {
	kind      string
	ancestors []string          // nearest first
	caps      map[string]bool   // capability -> direct
	provided  map[string]string // lower-cased method -> method
	required  map[string]string // lower-cased method -> method
}

func newTypeInfo(kind string) *typeInfo {
	return &typeInfo{
		kind:     kind,
		caps:     map[string]bool{},
		provided: map[string]string{},
		required: map[string]string{},
	}
}

func (ti *typeInfo) addCapability(name string, direct bool) {
	ti.caps[name] = ti.caps[name] || direct
}

func (ti *typeInfo) inheritCapabilities(from *typeInfo) {
	for c := range from.caps {
		ti.addCapability(c, false)
	}
}

func mergeMethods(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}

func addMethods(dst map[string]string, names []string) {
	for _, m := range names {
		dst[strings.ToLower(m)] = m
	}
}

// builder validates the declarations of one unit and turns them into store
// records. It is used once and discarded.
type builder struct {
	store    *store.Store
	path     string
	local    map[string]*Declaration
	infos    map[string]*typeInfo
	visiting map[string]bool
}

func newBuilder(s *store.Store, path string) *builder {
	return &builder{
		store:    s,
		path:     path,
		local:    map[string]*Declaration{},
		infos:    map[string]*typeInfo{},
		visiting: map[string]bool{},
	}
}

func (b *builder) build(decls []Declaration) ([]store.TypeRecord, error) {
	for i := range decls {
		d := &decls[i]
		if _, dup := b.local[d.Name]; dup {
			return nil, &RedefinitionError{Name: d.Name}
		}
		existing, err := b.store.TypeByName(d.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, &RedefinitionError{Name: d.Name, DefiningPath: existing.UnitPath}
		}
		b.local[d.Name] = d
	}

	for i := range decls {
		if err := b.checkKinds(&decls[i]); err != nil {
			return nil, err
		}
	}

	recs := make([]store.TypeRecord, 0, len(decls))
	for i := range decls {
		d := &decls[i]
		ti, err := b.info(d.Name)
		if err != nil {
			return nil, err
		}
		if (d.Kind == KindClass && !d.Abstract) || d.Kind == KindEnum {
			if missing := missingMethods(ti); len(missing) > 0 {
				return nil, &IncompleteTypeError{Type: d.Name, Missing: missing}
			}
		}
		recs = append(recs, record(d, ti))
	}
	return recs, nil
}

// kindOf resolves a reference to its kind, or fails when it is unknown.
func (b *builder) kindOf(from, ref string) (string, error) {
	if d, ok := b.local[ref]; ok {
		return d.Kind, nil
	}
	t, err := b.store.TypeByName(ref)
	if err != nil {
		return "", err
	}
	if t == nil {
		return "", &UnresolvedReferenceError{Type: from, Reference: ref}
	}
	return t.Kind, nil
}

// expectKinds checks that every reference resolves to a type of kind want.
func (b *builder) expectKinds(d *Declaration, verb string, refs []string, want string) error {
	for _, ref := range refs {
		kind, err := b.kindOf(d.Name, ref)
		if err != nil {
			return err
		}
		if kind != want {
			return &DefinitionError{
				Type:   d.Name,
				Reason: fmt.Sprintf("%s cannot %s %s %q", d.Kind, verb, kind, ref),
			}
		}
	}
	return nil
}

func (b *builder) checkKinds(d *Declaration) error {
	// Resolve everything first so unknown references win over kind errors.
	for _, refs := range [][]string{d.Extends, d.Implements, d.Uses} {
		for _, ref := range refs {
			if _, err := b.kindOf(d.Name, ref); err != nil {
				return err
			}
		}
	}

	switch d.Kind {
	case KindClass:
		if len(d.Extends) > 1 {
			return &DefinitionError{Type: d.Name, Reason: "a class extends at most one class"}
		}
		if err := b.expectKinds(d, "extend", d.Extends, KindClass); err != nil {
			return err
		}
	case KindInterface:
		if len(d.Implements) > 0 || len(d.Uses) > 0 {
			return &DefinitionError{Type: d.Name, Reason: "an interface can only extend interfaces"}
		}
		return b.expectKinds(d, "extend", d.Extends, KindInterface)
	case KindTrait:
		if len(d.Extends) > 0 || len(d.Implements) > 0 {
			return &DefinitionError{Type: d.Name, Reason: "a trait cannot extend or implement types"}
		}
		return b.expectKinds(d, "use", d.Uses, KindTrait)
	case KindEnum:
		if len(d.Extends) > 0 {
			return &DefinitionError{Type: d.Name, Reason: "an enum cannot extend types"}
		}
	default:
		return &DefinitionError{Type: d.Name, Reason: fmt.Sprintf("unknown kind %q", d.Kind)}
	}

	if err := b.expectKinds(d, "implement", d.Implements, KindInterface); err != nil {
		return err
	}
	return b.expectKinds(d, "use", d.Uses, KindTrait)
}

// info returns the computed shape of name, computing local declarations
// depth first and detecting inheritance cycles among them.
func (b *builder) info(name string) (*typeInfo, error) {
	if ti, ok := b.infos[name]; ok {
		return ti, nil
	}
	d, ok := b.local[name]
	if !ok {
		ti, err := b.load(name)
		if err != nil {
			return nil, err
		}
		b.infos[name] = ti
		return ti, nil
	}
	if b.visiting[name] {
		return nil, &DefinitionError{Type: name, Reason: "inheritance cycle"}
	}
	b.visiting[name] = true
	defer delete(b.visiting, name)

	ti := newTypeInfo(d.Kind)
	switch d.Kind {
	case KindClass:
		for _, parent := range d.Extends {
			pi, err := b.info(parent)
			if err != nil {
				return nil, err
			}
			ti.ancestors = append([]string{parent}, pi.ancestors...)
			ti.inheritCapabilities(pi)
			mergeMethods(ti.provided, pi.provided)
			mergeMethods(ti.required, pi.required)
		}
	case KindInterface:
		for _, ext := range d.Extends {
			ei, err := b.info(ext)
			if err != nil {
				return nil, err
			}
			ti.addCapability(ext, true)
			ti.inheritCapabilities(ei)
			mergeMethods(ti.required, ei.required)
		}
		addMethods(ti.required, d.Methods)
	}

	for _, iface := range d.Implements {
		ii, err := b.info(iface)
		if err != nil {
			return nil, err
		}
		ti.addCapability(iface, true)
		ti.inheritCapabilities(ii)
		mergeMethods(ti.required, ii.required)
	}
	for _, trait := range d.Uses {
		tri, err := b.info(trait)
		if err != nil {
			return nil, err
		}
		mergeMethods(ti.provided, tri.provided)
	}
	if d.Kind != KindInterface {
		addMethods(ti.provided, d.Methods)
	}

	b.infos[name] = ti
	return ti, nil
}

// load reads the shape of an already registered type from the store.
func (b *builder) load(name string) (*typeInfo, error) {
	t, err := b.store.TypeByName(name)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, &UnresolvedReferenceError{Type: name, Reference: name}
	}
	ti := newTypeInfo(t.Kind)

	ancestors, err := b.store.Ancestors(t.ID)
	if err != nil {
		return nil, err
	}
	for _, a := range ancestors {
		ti.ancestors = append(ti.ancestors, a.Name)
	}
	caps, err := b.store.Capabilities(t.ID)
	if err != nil {
		return nil, err
	}
	for _, c := range caps {
		ti.caps[c.Name] = c.Direct
	}
	provided, err := b.store.Methods(t.ID, store.MethodProvided)
	if err != nil {
		return nil, err
	}
	addMethods(ti.provided, provided)
	required, err := b.store.Methods(t.ID, store.MethodRequired)
	if err != nil {
		return nil, err
	}
	addMethods(ti.required, required)
	return ti, nil
}

func missingMethods(ti *typeInfo) []string {
	var missing []string
	for key, name := range ti.required {
		if _, ok := ti.provided[key]; !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}

func record(d *Declaration, ti *typeInfo) store.TypeRecord {
	rec := store.TypeRecord{
		Type: store.Type{
			Name:         d.Name,
			Kind:         d.Kind,
			Abstract:     d.Abstract,
			Instantiable: d.Instantiable(),
		},
		Provided: sortedValues(ti.provided),
		Required: sortedValues(ti.required),
	}
	if d.Kind == KindClass && len(d.Extends) == 1 {
		rec.Type.Parent = d.Extends[0]
	}
	for i, a := range ti.ancestors {
		rec.Ancestors = append(rec.Ancestors, store.Ancestor{Name: a, Depth: i + 1})
	}
	caps := make([]string, 0, len(ti.caps))
	for c := range ti.caps {
		caps = append(caps, c)
	}
	sort.Strings(caps)
	for _, c := range caps {
		rec.Capabilities = append(rec.Capabilities, store.Capability{Name: c, Direct: ti.caps[c]})
	}
	return rec
}

func sortedValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
