package predicate

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/domselect/dom"
)

type not struct{ p dom.Matcher }

// Not negates p.
func Not(p dom.Matcher) dom.Matcher { return not{p} }

func (m not) Matches(n dom.Node) bool { return !m.p.Matches(n) }
func (m not) String() string          { return fmt.Sprintf(":not(%v)", m.p) }

type and []dom.Matcher

// And matches when every operand matches, testing left to right and stopping
// at the first miss. And() with no operands matches every node.
func And(ps ...dom.Matcher) dom.Matcher { return and(ps) }

func (m and) Matches(n dom.Node) bool {
	for _, p := range m {
		if !p.Matches(n) {
			return false
		}
	}
	return true
}

func (m and) String() string {
	parts := make([]string, len(m))
	for i, p := range m {
		parts[i] = operand(p, true)
	}
	return strings.Join(parts, "")
}

type or []dom.Matcher

// Or matches when any operand matches, stopping at the first hit.
// Or() with no operands matches nothing.
func Or(ps ...dom.Matcher) dom.Matcher { return or(ps) }

func (m or) Matches(n dom.Node) bool {
	for _, p := range m {
		if p.Matches(n) {
			return true
		}
	}
	return false
}

func (m or) String() string { return join(m, ", ") }

type child struct{ parent, node dom.Matcher }

// Child matches a node that matches node and whose parent matches parent.
// Only the immediate parent is tested.
func Child(parent, node dom.Matcher) dom.Matcher { return child{parent, node} }

func (m child) Matches(n dom.Node) bool {
	if !m.node.Matches(n) {
		return false
	}
	p, ok := n.Parent()
	return ok && m.parent.Matches(p)
}

func (m child) String() string {
	return operand(m.parent, false) + " > " + operand(m.node, true)
}

type descendant struct{ ancestor, node dom.Matcher }

// Descendant matches a node that matches node and has an ancestor, at any
// distance, that matches ancestor.
func Descendant(ancestor, node dom.Matcher) dom.Matcher {
	return descendant{ancestor, node}
}

func (m descendant) Matches(n dom.Node) bool {
	if !m.node.Matches(n) {
		return false
	}
	for a := range n.Ancestors() {
		if m.ancestor.Matches(a) {
			return true
		}
	}
	return false
}

func (m descendant) String() string {
	return operand(m.ancestor, false) + " " + operand(m.node, true)
}

// operand renders p for use inside another selector. Groups are always
// wrapped in :is(); combinator chains only when compound is set, since a
// chain reads left to right and is only safe on the left of a combinator.
func operand(p dom.Matcher, compound bool) string {
	switch m := p.(type) {
	case or:
		if len(m) > 1 {
			return ":is(" + m.String() + ")"
		}
	case child, descendant:
		if compound {
			return ":is(" + fmt.Sprint(p) + ")"
		}
	}
	return fmt.Sprint(p)
}

func join(ps []dom.Matcher, sep string) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, sep)
}
