package loader

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/plugscan/internal/registry"
)

var javaDeclKinds = map[string]string{
	"class_declaration":     registry.KindClass,
	"record_declaration":    registry.KindClass,
	"interface_declaration": registry.KindInterface,
	"enum_declaration":      registry.KindEnum,
}

// javaUnit collects the top-level declarations of one Java compilation unit.
type javaUnit struct {
	src      []byte
	pkg      string
	imports  map[string]string // simple name -> fully qualified name
	declared map[string]bool   // fully qualified names declared in this unit
	decls    []registry.Declaration
	known    func(string) bool
}

func (l *Loader) parseJava(ctx context.Context, u *unit) ([]registry.Declaration, error) {
	tree, err := parseTree(ctx, u)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	j := &javaUnit{
		src:      u.content,
		imports:  map[string]string{},
		declared: map[string]bool{},
		known: func(name string) bool {
			ok, err := l.reg.Has(name)
			return err == nil && ok
		},
	}
	top := children(tree.RootNode())

	// Package, imports and declared names first, so references resolve
	// regardless of declaration order.
	var typeNodes []*sitter.Node
	for _, n := range top {
		switch n.Type() {
		case "package_declaration":
			j.pkg = text(childOfType(n, "scoped_identifier", "identifier"), j.src)
		case "import_declaration":
			j.addImport(n)
		default:
			if _, ok := javaDeclKinds[n.Type()]; ok {
				typeNodes = append(typeNodes, n)
			}
		}
	}
	for _, n := range typeNodes {
		j.declared[j.qualify(nameOf(n, j.src))] = true
	}
	for _, n := range typeNodes {
		j.declare(n, javaDeclKinds[n.Type()])
	}
	return j.decls, nil
}

// addImport records a single-type import. Static and on-demand imports are ignored.
func (j *javaUnit) addImport(n *sitter.Node) {
	if hasChildOfType(n, "static") || hasChildOfType(n, "asterisk") {
		return
	}
	fqn := text(childOfType(n, "scoped_identifier", "identifier"), j.src)
	if fqn == "" {
		return
	}
	j.imports[fqn[strings.LastIndex(fqn, ".")+1:]] = fqn
}

func (j *javaUnit) qualify(name string) string {
	if j.pkg == "" {
		return name
	}
	return j.pkg + "." + name
}

// resolve maps a type reference to a type id: qualified names as written,
// then single-type imports, then the unit's package, then the name as written.
func (j *javaUnit) resolve(name string) string {
	if strings.Contains(name, ".") {
		return name
	}
	if fqn, ok := j.imports[name]; ok {
		return fqn
	}
	if j.pkg != "" {
		if fqn := j.qualify(name); j.declared[fqn] || j.known(fqn) {
			return fqn
		}
	}
	return name
}

// typeName returns the referenced type of a type node, without type arguments.
func (j *javaUnit) typeName(n *sitter.Node) string {
	if n.Type() == "generic_type" {
		if inner := childOfType(n, "type_identifier", "scoped_type_identifier"); inner != nil {
			n = inner
		}
	}
	return j.resolve(strings.Join(strings.Fields(text(n, j.src)), ""))
}

// types resolves every type in a superclass, super_interfaces or
// extends_interfaces clause.
func (j *javaUnit) types(clause *sitter.Node) []string {
	if clause == nil {
		return nil
	}
	if list := childOfType(clause, "type_list"); list != nil {
		clause = list
	}
	var out []string
	for _, n := range childrenOfType(clause, "type_identifier", "scoped_type_identifier", "generic_type") {
		out = append(out, j.typeName(n))
	}
	return out
}

func (j *javaUnit) declare(n *sitter.Node, kind string) {
	d := registry.Declaration{
		Name:     j.qualify(nameOf(n, j.src)),
		Kind:     kind,
		Abstract: hasModifier(n, "abstract", j.src),
	}
	for _, c := range children(n) {
		switch c.Type() {
		case "superclass", "extends_interfaces":
			d.Extends = j.types(c)
		case "super_interfaces":
			d.Implements = j.types(c)
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		return
	}
	members := children(body)
	if decls := childOfType(body, "enum_body_declarations"); decls != nil {
		members = append(members, children(decls)...)
	}

	var ctors, privateCtors int
	for _, m := range members {
		switch m.Type() {
		case "constructor_declaration":
			ctors++
			if hasModifier(m, "private", j.src) {
				privateCtors++
			}
		case "method_declaration":
			j.method(&d, m)
		}
	}
	d.PrivateConstructor = ctors > 0 && ctors == privateCtors
	j.decls = append(j.decls, d)
}

func (j *javaUnit) method(d *registry.Declaration, m *sitter.Node) {
	name := nameOf(m, j.src)
	if name == "" {
		return
	}
	hasBody := m.ChildByFieldName("body") != nil
	if d.Kind == registry.KindInterface {
		if !hasBody && !hasModifier(m, "static", j.src) {
			d.Methods = append(d.Methods, name)
		}
		return
	}
	if hasBody && !hasModifier(m, "abstract", j.src) {
		d.Methods = append(d.Methods, name)
	}
}

// hasModifier reports whether the modifiers node of n contains keyword.
func hasModifier(n *sitter.Node, keyword string, src []byte) bool {
	mods := childOfType(n, "modifiers")
	if mods == nil {
		return false
	}
	for _, c := range children(mods) {
		if c.Type() == keyword || text(c, src) == keyword {
			return true
		}
	}
	return false
}
