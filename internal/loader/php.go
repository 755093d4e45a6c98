package loader

import (
	"bytes"
	"context"
	"io"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/plugscan/internal/registry"
)

var phpDeclKinds = map[string]string{
	"class_declaration":     registry.KindClass,
	"interface_declaration": registry.KindInterface,
	"trait_declaration":     registry.KindTrait,
	"enum_declaration":      registry.KindEnum,
}

// phpUnit walks the top level of one PHP file. Inline text and top-level
// echo/print statements are written to out as they are reached.
type phpUnit struct {
	src       []byte
	out       io.Writer
	namespace string
	aliases   map[string]string // lower-cased alias -> fully qualified name
	decls     []registry.Declaration
}

func (l *Loader) parsePHP(ctx context.Context, u *unit) ([]registry.Declaration, error) {
	tree, err := parseTree(ctx, u)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	p := &phpUnit{src: u.content, out: l.out, aliases: map[string]string{}}
	root := tree.RootNode()
	if err := p.leadingText(root); err != nil {
		return nil, err
	}
	if err := p.statements(children(root)); err != nil {
		return nil, err
	}
	return p.decls, nil
}

func (p *phpUnit) statements(nodes []*sitter.Node) error {
	for _, n := range nodes {
		switch n.Type() {
		case "text_interpolation":
			if err := p.interpolatedText(n); err != nil {
				return err
			}
		case "namespace_definition":
			p.namespace = text(n.ChildByFieldName("name"), p.src)
			p.aliases = map[string]string{}
			if body := n.ChildByFieldName("body"); body != nil {
				if err := p.statements(children(body)); err != nil {
					return err
				}
				p.namespace = ""
				p.aliases = map[string]string{}
			}
		case "namespace_use_declaration":
			p.use(n)
		case "echo_statement":
			if err := p.echo(n); err != nil {
				return err
			}
		case "expression_statement":
			if pr := childOfType(n, "print_intrinsic"); pr != nil {
				if err := p.echo(pr); err != nil {
					return err
				}
			}
		default:
			if kind, ok := phpDeclKinds[n.Type()]; ok {
				p.declare(n, kind)
			}
		}
	}
	return nil
}

// echo writes the arguments of an echo statement or print expression.
func (p *phpUnit) echo(n *sitter.Node) error {
	for _, arg := range children(n) {
		if !arg.IsNamed() {
			continue
		}
		if arg.Type() == "sequence_expression" {
			if err := p.echo(arg); err != nil {
				return err
			}
			continue
		}
		if _, err := io.WriteString(p.out, phpLiteral(arg, p.src)); err != nil {
			return err
		}
	}
	return nil
}

// phpLiteral returns the value of a string literal, or the source text of
// any other expression.
func phpLiteral(n *sitter.Node, src []byte) string {
	s := n.Content(src)
	switch n.Type() {
	case "string", "encapsed_string":
		if len(s) >= 2 {
			return s[1 : len(s)-1]
		}
	}
	return s
}

// use records the aliases of a namespace use declaration. Function and
// constant imports are ignored.
func (p *phpUnit) use(n *sitter.Node) {
	if hasChildOfType(n, "function") || hasChildOfType(n, "const") {
		return
	}
	if group := childOfType(n, "namespace_use_group"); group != nil {
		prefix := strings.TrimPrefix(text(childOfType(n, "namespace_name"), p.src), `\`)
		for _, c := range childrenOfType(group, "namespace_use_group_clause", "namespace_use_clause") {
			p.useClause(c, prefix)
		}
		return
	}
	for _, c := range childrenOfType(n, "namespace_use_clause") {
		p.useClause(c, "")
	}
}

func (p *phpUnit) useClause(c *sitter.Node, prefix string) {
	target := strings.TrimPrefix(text(childOfType(c, "qualified_name", "name", "namespace_name"), p.src), `\`)
	if target == "" {
		return
	}
	if prefix != "" {
		target = prefix + `\` + target
	}

	alias := text(c.ChildByFieldName("alias"), p.src)
	if alias == "" {
		if ac := childOfType(c, "namespace_aliasing_clause"); ac != nil {
			alias = text(childOfType(ac, "name"), p.src)
		}
	}
	if alias == "" {
		alias = target[strings.LastIndex(target, `\`)+1:]
	}
	p.aliases[strings.ToLower(alias)] = target
}

// Inline text is taken from byte ranges rather than text nodes: the grammar
// treats whitespace between tags as extras, so it never reaches a node.

// leadingText writes the inline text before the first open tag, or the whole
// file when there is none.
func (p *phpUnit) leadingText(root *sitter.Node) error {
	end := uint32(len(p.src))
	if tag := childOfType(root, "php_tag"); tag != nil {
		end = tag.StartByte()
	}
	return p.inline(p.src[:end])
}

// interpolatedText writes the inline text between a closing tag and the next
// open tag or the end of the file. A single newline right after the closing
// tag belongs to the tag.
func (p *phpUnit) interpolatedText(n *sitter.Node) error {
	closing := childOfType(n, "?>")
	if closing == nil {
		return nil
	}
	end := uint32(len(p.src))
	if tag := childOfType(n, "php_tag"); tag != nil {
		end = tag.StartByte()
	}
	content := p.src[closing.EndByte():end]
	if rest, ok := bytes.CutPrefix(content, []byte("\r\n")); ok {
		content = rest
	} else {
		content = bytes.TrimPrefix(content, []byte("\n"))
	}
	return p.inline(content)
}

func (p *phpUnit) inline(content []byte) error {
	if len(content) == 0 {
		return nil
	}
	_, err := p.out.Write(content)
	return err
}

// qualify returns the fully qualified id of a name declared in the current namespace.
func (p *phpUnit) qualify(name string) string {
	if p.namespace == "" {
		return name
	}
	return p.namespace + `\` + name
}

// resolve turns a class reference into a fully qualified id: leading
// backslash means fully qualified, then use aliases, then the current namespace.
func (p *phpUnit) resolve(name string) string {
	if strings.HasPrefix(name, `\`) {
		return name[1:]
	}
	first, rest, nested := strings.Cut(name, `\`)
	if strings.EqualFold(first, "namespace") && nested {
		return p.qualify(rest)
	}
	if fqn, ok := p.aliases[strings.ToLower(first)]; ok {
		if nested {
			return fqn + `\` + rest
		}
		return fqn
	}
	return p.qualify(name)
}

// names resolves every class name listed in a base or interface clause.
func (p *phpUnit) names(clause *sitter.Node) []string {
	if clause == nil {
		return nil
	}
	var out []string
	for _, n := range childrenOfType(clause, "name", "qualified_name") {
		out = append(out, p.resolve(text(n, p.src)))
	}
	return out
}

func (p *phpUnit) declare(n *sitter.Node, kind string) {
	d := registry.Declaration{
		Name: p.qualify(nameOf(n, p.src)),
		Kind: kind,
	}
	for _, c := range children(n) {
		switch c.Type() {
		case "abstract_modifier":
			d.Abstract = true
		case "class_modifier":
			d.Abstract = d.Abstract || text(c, p.src) == "abstract"
		case "base_clause":
			d.Extends = p.names(c)
		case "class_interface_clause":
			d.Implements = p.names(c)
		}
	}

	body := n.ChildByFieldName("body")
	if body == nil {
		body = childOfType(n, "declaration_list", "enum_declaration_list")
	}
	if body != nil {
		for _, m := range children(body) {
			switch m.Type() {
			case "use_declaration":
				for _, t := range childrenOfType(m, "name", "qualified_name") {
					d.Uses = append(d.Uses, p.resolve(text(t, p.src)))
				}
			case "method_declaration":
				p.method(&d, m)
			}
		}
	}
	p.decls = append(p.decls, d)
}

func (p *phpUnit) method(d *registry.Declaration, m *sitter.Node) {
	name := nameOf(m, p.src)
	if name == "" {
		return
	}
	if d.Kind == registry.KindInterface {
		d.Methods = append(d.Methods, name)
		return
	}
	if strings.EqualFold(name, "__construct") {
		switch text(childOfType(m, "visibility_modifier"), p.src) {
		case "private", "protected":
			d.PrivateConstructor = true
		}
	}
	if hasChildOfType(m, "abstract_modifier") || m.ChildByFieldName("body") == nil {
		return
	}
	d.Methods = append(d.Methods, name)
}
