// Package typetree collects every type definition reachable from a root
// message into a tree that mirrors qualified names: "a.b.C" lives at
// root → a → b → C. Segments that name no definition of their own
// (packages, typically) become container nodes.
package typetree

import (
	"strings"

	"github.com/wes-public-apps/protobuf-db/internal/schema"
)

// Node is one segment of a qualified name. At most one of Message and Enum
// is set; a node with neither is a container.
type Node struct {
	Name     string
	Message  *schema.Message
	Enum     *schema.Enum
	Children []*Node

	index map[string]*Node
}

// IsContainer reports whether the node carries no definition.
func (n *Node) IsContainer() bool { return n.Message == nil && n.Enum == nil }

// Child returns the direct child called name, or nil.
func (n *Node) Child(name string) *Node { return n.index[name] }

// Lookup walks a dotted qualified name from n.
func (n *Node) Lookup(fullName string) *Node {
	cur := n
	for _, seg := range strings.Split(fullName, ".") {
		if cur = cur.Child(seg); cur == nil {
			return nil
		}
	}
	return cur
}

func (n *Node) child(name string) *Node {
	if c, ok := n.index[name]; ok {
		return c
	}
	if n.index == nil {
		n.index = map[string]*Node{}
	}
	c := &Node{Name: name}
	n.index[name] = c
	n.Children = append(n.Children, c)
	return c
}

// Build returns an unnamed container whose subtree holds root and every
// message and enum it reaches through nesting or field references. Each
// qualified name appears exactly once; children keep first-insertion order.
func Build(root *schema.Message) *Node {
	b := &builder{tree: &Node{}, visited: map[string]bool{}}
	b.message(root)
	return b.tree
}

type builder struct {
	tree    *Node
	visited map[string]bool
}

// insert places a definition at its qualified name, creating containers on
// the way. Inserting the same name again only refreshes the definition, so
// children gathered meanwhile are kept.
func (b *builder) insert(fullName string, m *schema.Message, e *schema.Enum) {
	cur := b.tree
	for _, seg := range strings.Split(fullName, ".") {
		cur = cur.child(seg)
	}
	if m != nil {
		cur.Message = m
	}
	if e != nil {
		cur.Enum = e
	}
}

func (b *builder) message(m *schema.Message) {
	if m == nil || b.visited[m.FullName] {
		return
	}
	b.visited[m.FullName] = true

	b.insert(m.FullName, m, nil)
	for _, e := range m.NestedEnums {
		b.insert(e.FullName, nil, e)
	}
	for _, nm := range m.NestedMessages {
		b.message(nm)
	}
	for _, f := range m.Fields {
		switch f.Kind {
		case schema.KindMessage:
			b.message(f.Message)
		case schema.KindEnum:
			if f.Enum != nil {
				b.insert(f.Enum.FullName, nil, f.Enum)
			}
		}
	}
}

// Walk visits n and its descendants depth first, parents before children.
// The path holds the segment names from the tree root to the visited node.
func Walk(n *Node, fn func(path []string, n *Node)) {
	var rec func(path []string, n *Node)
	rec = func(path []string, n *Node) {
		fn(path, n)
		for _, c := range n.Children {
			rec(append(path[:len(path):len(path)], c.Name), c)
		}
	}
	rec(nil, n)
}
