package dom

import (
	"fmt"
	"iter"
	"strings"
)

// Matcher reports whether a node satisfies a condition. Implementations must
// be pure: the same node always gives the same answer.
type Matcher interface {
	Matches(Node) bool
}

// MatchFunc adapts a function to Matcher.
type MatchFunc func(Node) bool

func (f MatchFunc) Matches(n Node) bool { return f(n) }

// Node is a lightweight handle on one node of a Document. Two Nodes are equal
// when they reference the same Document and the same NodeID. The zero Node is
// not valid; using it panics.
type Node struct {
	doc *Document
	id  NodeID
}

func (n Node) rec() *record {
	if n.doc == nil {
		panic("dom: use of zero Node")
	}
	return n.doc.get(n.id)
}

// IsValid reports whether n refers to a node.
func (n Node) IsValid() bool { return n.doc != nil }

// ID returns the node's index in its Document.
func (n Node) ID() NodeID { return n.id }

// Document returns the owning Document.
func (n Node) Document() *Document { return n.doc }

// Kind returns the node type.
func (n Node) Kind() Kind { return n.rec().kind }

// Name returns the tag name of an element.
func (n Node) Name() (string, bool) {
	r := n.rec()
	if r.kind != ElementNode {
		return "", false
	}
	return r.name, true
}

// Namespace returns the element namespace: "" for HTML, "svg" or "math" for
// foreign content.
func (n Node) Namespace() string { return n.rec().namespace }

// Attr looks up an attribute by exact key.
func (n Node) Attr(key string) (string, bool) {
	r := n.rec()
	if r.kind != ElementNode {
		return "", false
	}
	for _, a := range r.attrs {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// Attrs returns the element's attributes in source order. The slice is
// shared with the Document and must not be modified.
func (n Node) Attrs() []Attribute { return n.rec().attrs }

// Parent returns the parent node; roots have none.
func (n Node) Parent() (Node, bool) { return n.doc.node(n.rec().parent) }

// Prev returns the previous sibling.
func (n Node) Prev() (Node, bool) { return n.doc.node(n.rec().prev) }

// Next returns the next sibling.
func (n Node) Next() (Node, bool) { return n.doc.node(n.rec().next) }

// FirstChild returns the first child.
func (n Node) FirstChild() (Node, bool) { return n.doc.node(n.rec().first) }

// LastChild returns the last child.
func (n Node) LastChild() (Node, bool) { return n.doc.node(n.rec().last) }

// Children returns the direct children in source order.
func (n Node) Children() []Node {
	var out []Node
	for c := range n.ChildSeq() {
		out = append(out, c)
	}
	return out
}

// ChildSeq yields the direct children in source order.
func (n Node) ChildSeq() iter.Seq[Node] {
	first := n.rec().first
	return func(yield func(Node) bool) {
		for id := first; id != none; id = n.doc.nodes[id].next {
			if !yield(Node{doc: n.doc, id: id}) {
				return
			}
		}
	}
}

// Descendants yields every strict descendant in document order.
func (n Node) Descendants() iter.Seq[Node] {
	end := n.rec().end
	return func(yield func(Node) bool) {
		for id := n.id + 1; id < end; id++ {
			if !yield(Node{doc: n.doc, id: id}) {
				return
			}
		}
	}
}

// Ancestors yields the parent, grandparent and so on up to the root.
func (n Node) Ancestors() iter.Seq[Node] {
	parent := n.rec().parent
	return func(yield func(Node) bool) {
		for id := parent; id != none; id = n.doc.nodes[id].parent {
			if !yield(Node{doc: n.doc, id: id}) {
				return
			}
		}
	}
}

// Contains reports whether other is a strict descendant of n.
func (n Node) Contains(other Node) bool {
	return other.doc == n.doc && other.id > n.id && other.id < n.rec().end
}

// AsText returns the content of a text node.
func (n Node) AsText() (string, bool) {
	r := n.rec()
	if r.kind != TextNode {
		return "", false
	}
	return r.data, true
}

// AsComment returns the content of a comment node.
func (n Node) AsComment() (string, bool) {
	r := n.rec()
	if r.kind != CommentNode {
		return "", false
	}
	return r.data, true
}

// Text concatenates the content of every text node in the subtree, n
// included, in document order. Comments and markup are skipped.
func (n Node) Text() string {
	end := n.rec().end
	var sb strings.Builder
	for id := n.id; id < end; id++ {
		if r := &n.doc.nodes[id]; r.kind == TextNode {
			sb.WriteString(r.data)
		}
	}
	return sb.String()
}

// Is reports whether m matches n. A nil Matcher matches every node.
func (n Node) Is(m Matcher) bool { return m == nil || m.Matches(n) }

// Find selects the strict descendants of n that m matches, in document order.
// A nil Matcher selects them all. The walk is lazy: it runs each time the
// Selection is iterated.
func (n Node) Find(m Matcher) Selection {
	from, to := n.id+1, n.rec().end
	return Selection{doc: n.doc, seq: func(yield func(NodeID) bool) {
		n.doc.scan(from, to, m, yield)
	}}
}

func (n Node) String() string {
	if n.doc == nil {
		return "dom.Node(invalid)"
	}
	r := n.rec()
	switch r.kind {
	case ElementNode:
		return fmt.Sprintf("dom.Node(%d <%s>)", n.id, r.name)
	default:
		return fmt.Sprintf("dom.Node(%d %s %q)", n.id, r.kind, r.data)
	}
}
