package templates

import (
	"strings"
	"text/template/parse"
)

// References reports whether template name mentions field, e.g. ".Index",
// either directly or in any template it includes with {{template}}.
func (r *Renderer) References(name, field string) bool {
	if !r.Has(name) {
		return false
	}
	html := isHTML(name)
	seen := map[string]bool{}
	queue := []string{name}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if seen[n] {
			continue
		}
		seen[n] = true
		tree := r.tree(html, n)
		if tree == nil || tree.Root == nil {
			continue
		}
		if strings.Contains(tree.Root.String(), field) {
			return true
		}
		queue = append(queue, includes(tree.Root)...)
	}
	return false
}

func (r *Renderer) tree(html bool, name string) *parse.Tree {
	if html {
		if t := r.html.Lookup(name); t != nil {
			return t.Tree
		}
		return nil
	}
	if t := r.text.Lookup(name); t != nil {
		return t.Tree
	}
	return nil
}

// includes returns the names of templates invoked under n.
func includes(n parse.Node) []string {
	var out []string
	var walk func(parse.Node)
	branch := func(b *parse.BranchNode) {
		walk(b.List)
		if b.ElseList != nil {
			walk(b.ElseList)
		}
	}
	walk = func(n parse.Node) {
		switch n := n.(type) {
		case *parse.ListNode:
			if n == nil {
				return
			}
			for _, c := range n.Nodes {
				walk(c)
			}
		case *parse.IfNode:
			branch(&n.BranchNode)
		case *parse.RangeNode:
			branch(&n.BranchNode)
		case *parse.WithNode:
			branch(&n.BranchNode)
		case *parse.TemplateNode:
			out = append(out, n.Name)
		}
	}
	walk(n)
	return out
}
