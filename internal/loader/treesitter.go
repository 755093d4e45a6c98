package loader

import (
	"context"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// parseTree parses u with the tree-sitter grammar of its language. A tree
// containing error or missing nodes is a syntax error.
func parseTree(ctx context.Context, u *unit) (*sitter.Tree, error) {
	lang, ok := ParserForLanguage(u.lang)
	if !ok {
		return nil, u.syntaxError("no grammar for %s", u.lang)
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, u.content)
	if err != nil {
		return nil, u.syntaxError("tree-sitter parse failed: %v", err)
	}
	if tree.RootNode().HasError() {
		tree.Close()
		return nil, u.syntaxError("syntax error")
	}
	return tree, nil
}

// children returns the direct children of n (named and anonymous).
func children(n *sitter.Node) []*sitter.Node {
	count := int(n.ChildCount())
	out := make([]*sitter.Node, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, n.Child(i))
	}
	return out
}

// childOfType returns the first direct child of n with one of the given types.
func childOfType(n *sitter.Node, types ...string) *sitter.Node {
	for _, c := range children(n) {
		for _, t := range types {
			if c.Type() == t {
				return c
			}
		}
	}
	return nil
}

// childrenOfType returns every direct child of n with one of the given types.
func childrenOfType(n *sitter.Node, types ...string) []*sitter.Node {
	var out []*sitter.Node
	for _, c := range children(n) {
		for _, t := range types {
			if c.Type() == t {
				out = append(out, c)
				break
			}
		}
	}
	return out
}

// hasChildOfType reports whether n has a direct child of the given type.
func hasChildOfType(n *sitter.Node, typ string) bool {
	return childOfType(n, typ) != nil
}

// text returns the source text of n with surrounding whitespace removed.
func text(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(n.Content(src))
}

// nameOf returns the text of n's "name" field.
func nameOf(n *sitter.Node, src []byte) string {
	return text(n.ChildByFieldName("name"), src)
}
