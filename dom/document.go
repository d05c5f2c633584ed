// Package dom is a read-only, queryable view of a parsed HTML document.
//
// A Document is built once from markup (tokenized by golang.org/x/net/html)
// and indexed into a flat slice of node records. Records are stored in
// document order: a node comes before its children, children left to right.
// Every subtree is therefore a contiguous range of NodeIDs, which is what
// Text, Find and the serializer walk.
//
// Nothing mutates a Document after Parse returns, so a Document and the Node
// and Selection values derived from it can be shared between goroutines
// without locking.
//
// Usage:
//
//	doc := dom.ParseString(`<ul><li class="x">a</li><li>b</li></ul>`)
//	for li := range doc.Find(predicate.Class("x")).All() {
//		fmt.Println(li.Text())
//	}
package dom

import (
	"fmt"
	"io"
	"iter"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// NodeID identifies a node within the Document that produced it.
type NodeID int

const none NodeID = -1

// Kind is the type of a stored node.
type Kind uint8

const (
	ElementNode Kind = iota + 1
	TextNode
	CommentNode
)

func (k Kind) String() string {
	switch k {
	case ElementNode:
		return "element"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Attribute is one element attribute, in source order.
// Namespace is set for foreign attributes such as xlink:href.
type Attribute struct {
	Namespace string
	Key       string
	Val       string
}

// record holds one node and its structural links.
type record struct {
	kind      Kind
	name      string
	atom      atom.Atom
	namespace string
	attrs     []Attribute
	data      string

	parent NodeID
	prev   NodeID
	next   NodeID
	first  NodeID
	last   NodeID
	end    NodeID // one past the last id of this subtree
}

// Document owns every node record of one parsed document.
type Document struct {
	nodes []record
	roots []NodeID
}

// Parse reads markup from r and builds a Document. Malformed markup never
// fails: the HTML5 algorithm always yields a tree, with implied elements
// added where needed. Only errors from r are returned.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return FromNode(root), nil
}

// ParseString builds a Document from an in-memory markup string.
func ParseString(markup string) *Document {
	doc, err := Parse(strings.NewReader(markup))
	if err != nil {
		// strings.Reader only ever returns io.EOF, which the tokenizer consumes.
		panic(err)
	}
	return doc
}

// FromNode indexes an already-built x/net/html tree. When n is the document
// node, its children become the roots; otherwise n itself is the only root.
// Doctype nodes are not stored.
func FromNode(n *html.Node) *Document {
	d := &Document{nodes: make([]record, 0, estimateSize(n))}
	if n.Type == html.DocumentNode {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			d.add(c, none)
		}
	} else {
		d.add(n, none)
	}
	return d
}

func estimateSize(n *html.Node) int {
	count := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		count++
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return count
}

// add appends n and its subtree, linking it under parent.
func (d *Document) add(n *html.Node, parent NodeID) {
	rec := record{parent: parent, prev: none, next: none, first: none, last: none}
	switch n.Type {
	case html.ElementNode:
		rec.kind = ElementNode
		rec.name = n.Data
		rec.atom = n.DataAtom
		rec.namespace = n.Namespace
		if len(n.Attr) > 0 {
			rec.attrs = make([]Attribute, len(n.Attr))
			for i, a := range n.Attr {
				rec.attrs[i] = Attribute{Namespace: a.Namespace, Key: a.Key, Val: a.Val}
			}
		}
	case html.TextNode, html.RawNode:
		rec.kind = TextNode
		rec.data = n.Data
	case html.CommentNode:
		rec.kind = CommentNode
		rec.data = n.Data
	default:
		return
	}

	id := NodeID(len(d.nodes))
	d.nodes = append(d.nodes, rec)
	if parent == none {
		if k := len(d.roots); k > 0 {
			d.linkSiblings(d.roots[k-1], id)
		}
		d.roots = append(d.roots, id)
	} else {
		p := &d.nodes[parent]
		if p.last == none {
			p.first = id
		} else {
			d.linkSiblings(p.last, id)
		}
		p.last = id
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		d.add(c, id)
	}
	d.nodes[id].end = NodeID(len(d.nodes))
}

func (d *Document) linkSiblings(prev, next NodeID) {
	d.nodes[prev].next = next
	d.nodes[next].prev = prev
}

// get returns the record for id. Out-of-range ids are a programming error.
func (d *Document) get(id NodeID) *record {
	if id < 0 || int(id) >= len(d.nodes) {
		panic(fmt.Sprintf("dom: node id %d out of range [0,%d)", id, len(d.nodes)))
	}
	return &d.nodes[id]
}

func (d *Document) node(id NodeID) (Node, bool) {
	if id == none {
		return Node{}, false
	}
	return Node{doc: d, id: id}, true
}

// Node returns the view for id. It panics if id was not produced by d.
func (d *Document) Node(id NodeID) Node {
	d.get(id)
	return Node{doc: d, id: id}
}

// Len returns the number of stored nodes.
func (d *Document) Len() int { return len(d.nodes) }

// Nth returns the i-th node in document order.
func (d *Document) Nth(i int) (Node, bool) {
	if i < 0 || i >= len(d.nodes) {
		return Node{}, false
	}
	return Node{doc: d, id: NodeID(i)}, true
}

// Root returns the first element root, normally <html>. Comments before it
// are skipped; a document holding only comments returns its first comment.
func (d *Document) Root() (Node, bool) {
	if len(d.roots) == 0 {
		return Node{}, false
	}
	for _, id := range d.roots {
		if d.nodes[id].kind == ElementNode {
			return Node{doc: d, id: id}, true
		}
	}
	return Node{doc: d, id: d.roots[0]}, true
}

// Roots yields every node without a parent, in document order.
// Comments placed before or after <html> are roots next to it.
func (d *Document) Roots() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for _, id := range d.roots {
			if !yield(Node{doc: d, id: id}) {
				return
			}
		}
	}
}

// Nodes yields every node in document order.
func (d *Document) Nodes() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		for i := range d.nodes {
			if !yield(Node{doc: d, id: NodeID(i)}) {
				return
			}
		}
	}
}

// Find selects every node of the document, roots included, that m matches.
func (d *Document) Find(m Matcher) Selection {
	return Selection{doc: d, seq: func(yield func(NodeID) bool) {
		d.scan(0, NodeID(len(d.nodes)), m, yield)
	}}
}

// scan tests ids in [from, to) against m and yields the matches.
func (d *Document) scan(from, to NodeID, m Matcher, yield func(NodeID) bool) bool {
	for id := from; id < to; id++ {
		if m == nil || m.Matches(Node{doc: d, id: id}) {
			if !yield(id) {
				return false
			}
		}
	}
	return true
}
