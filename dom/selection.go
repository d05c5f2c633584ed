package dom

import (
	"iter"
	"strings"
)

// Selection is a lazy, ordered set of nodes. It stores only how to produce
// its members; every iteration walks the document again. A Selection always
// yields nodes in document order, each at most once.
//
// The zero Selection is empty.
type Selection struct {
	doc *Document
	seq func(yield func(NodeID) bool)
}

// All yields the selected nodes. Stopping early stops the walk.
func (s Selection) All() iter.Seq[Node] {
	return func(yield func(Node) bool) {
		if s.seq == nil {
			return
		}
		s.seq(func(id NodeID) bool {
			return yield(Node{doc: s.doc, id: id})
		})
	}
}

// First returns the first selected node.
func (s Selection) First() (Node, bool) {
	for n := range s.All() {
		return n, true
	}
	return Node{}, false
}

// Len counts the selected nodes. It walks the whole selection.
func (s Selection) Len() int {
	count := 0
	for range s.All() {
		count++
	}
	return count
}

// Slice materializes the selection.
func (s Selection) Slice() []Node {
	var out []Node
	for n := range s.All() {
		out = append(out, n)
	}
	return out
}

// Is reports whether any selected node matches m.
func (s Selection) Is(m Matcher) bool {
	for n := range s.All() {
		if n.Is(m) {
			return true
		}
	}
	return false
}

// Text concatenates Text of every selected node.
func (s Selection) Text() string {
	var sb strings.Builder
	for n := range s.All() {
		sb.WriteString(n.Text())
	}
	return sb.String()
}

// Filter keeps the selected nodes that m matches.
func (s Selection) Filter(m Matcher) Selection {
	if s.seq == nil {
		return s
	}
	return Selection{doc: s.doc, seq: func(yield func(NodeID) bool) {
		s.seq(func(id NodeID) bool {
			if m == nil || m.Matches(Node{doc: s.doc, id: id}) {
				return yield(id)
			}
			return true
		})
	}}
}

// Find selects the strict descendants of the selected nodes that m matches.
// Nested members are searched once, so the result stays ordered and free of
// duplicates.
func (s Selection) Find(m Matcher) Selection {
	if s.seq == nil {
		return s
	}
	d := s.doc
	return Selection{doc: d, seq: func(yield func(NodeID) bool) {
		covered := NodeID(0)
		s.seq(func(id NodeID) bool {
			from, to := max(id+1, covered), d.nodes[id].end
			if from >= to {
				return true
			}
			covered = to
			return d.scan(from, to, m, yield)
		})
	}}
}

// Children selects the direct children of the selected nodes that m
// matches. A nil Matcher keeps every child.
func (s Selection) Children(m Matcher) Selection {
	return s.relate(func(d *Document, id NodeID, emit func(NodeID)) {
		for c := d.nodes[id].first; c != none; c = d.nodes[c].next {
			if m == nil || m.Matches(Node{doc: d, id: c}) {
				emit(c)
			}
		}
	})
}

// Parents selects the parents of the selected nodes.
func (s Selection) Parents() Selection {
	return s.relate(func(d *Document, id NodeID, emit func(NodeID)) {
		if p := d.nodes[id].parent; p != none {
			emit(p)
		}
	})
}

// Next selects the next sibling of each selected node.
func (s Selection) Next() Selection {
	return s.relate(func(d *Document, id NodeID, emit func(NodeID)) {
		if n := d.nodes[id].next; n != none {
			emit(n)
		}
	})
}

// Prev selects the previous sibling of each selected node.
func (s Selection) Prev() Selection {
	return s.relate(func(d *Document, id NodeID, emit func(NodeID)) {
		if p := d.nodes[id].prev; p != none {
			emit(p)
		}
	})
}

// relate maps every member through rel, then yields the union in document
// order. The source is consumed fully before the first result.
func (s Selection) relate(rel func(d *Document, id NodeID, emit func(NodeID))) Selection {
	if s.seq == nil {
		return s
	}
	d := s.doc
	return Selection{doc: d, seq: func(yield func(NodeID) bool) {
		set := newIDSet(len(d.nodes))
		s.seq(func(id NodeID) bool {
			rel(d, id, set.add)
			return true
		})
		set.each(yield)
	}}
}

// idSet is a bitset over the ids of one Document.
type idSet []uint64

func newIDSet(n int) idSet { return make(idSet, (n+63)/64) }

func (s idSet) add(id NodeID) { s[id/64] |= 1 << (uint(id) % 64) }

func (s idSet) each(yield func(NodeID) bool) {
	for w, bits := range s {
		for b := 0; bits != 0; b++ {
			if bits&1 != 0 {
				if !yield(NodeID(w*64 + b)) {
					return
				}
			}
			bits >>= 1
		}
	}
}
