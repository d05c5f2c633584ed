// Package predicate provides the matchers used to select nodes from a
// dom.Document: leaf tests on a single node and combinators that compose
// them, including the structural Child and Descendant relations.
//
// Every matcher is a pure function of the node it is given, so one value can
// be reused across selections and goroutines.
//
//	sel := doc.Find(predicate.Descendant(
//		predicate.Attr{Key: "id", Value: "main"},
//		predicate.And(predicate.Name("a"), predicate.HasAttr("href")),
//	))
package predicate

import (
	"fmt"
	"strings"

	"github.com/hazyhaar/domselect/dom"
)

// Any matches every node.
var Any dom.Matcher = anyNode{}

type anyNode struct{}

func (anyNode) Matches(dom.Node) bool { return true }
func (anyNode) String() string        { return "*" }

// Kind matches nodes of one dom.Kind.
type Kind dom.Kind

var (
	Element = Kind(dom.ElementNode)
	Text    = Kind(dom.TextNode)
	Comment = Kind(dom.CommentNode)
)

func (k Kind) Matches(n dom.Node) bool { return n.Kind() == dom.Kind(k) }
func (k Kind) String() string          { return dom.Kind(k).String() + "()" }

// Name matches elements with this exact tag name. The tokenizer lower-cases
// HTML tag names.
type Name string

func (t Name) Matches(n dom.Node) bool {
	name, ok := n.Name()
	return ok && name == string(t)
}

func (t Name) String() string { return string(t) }

// Tag matches elements by tag name ignoring ASCII case, so "clippath"
// finds the camel-cased SVG <clipPath>.
type Tag string

func (t Tag) Matches(n dom.Node) bool {
	name, ok := n.Name()
	return ok && strings.EqualFold(name, string(t))
}

func (t Tag) String() string { return string(t) }

// Attr matches elements whose attribute Key has exactly Value.
type Attr struct {
	Key   string
	Value string
}

func (a Attr) Matches(n dom.Node) bool {
	v, ok := n.Attr(a.Key)
	return ok && v == a.Value
}

func (a Attr) String() string { return fmt.Sprintf("[%s=%q]", a.Key, a.Value) }

// HasAttr matches elements carrying the attribute, whatever its value.
type HasAttr string

func (k HasAttr) Matches(n dom.Node) bool {
	_, ok := n.Attr(string(k))
	return ok
}

func (k HasAttr) String() string { return "[" + string(k) + "]" }

// Class matches elements whose class attribute lists this token.
type Class string

func (c Class) Matches(n dom.Node) bool {
	v, ok := n.Attr("class")
	if !ok {
		return false
	}
	for _, token := range strings.Fields(v) {
		if token == string(c) {
			return true
		}
	}
	return false
}

func (c Class) String() string { return "." + string(c) }

// ID matches the element with this id attribute.
type ID string

func (id ID) Matches(n dom.Node) bool {
	v, ok := n.Attr("id")
	return ok && v == string(id)
}

func (id ID) String() string { return "#" + string(id) }

// Func adapts a function to dom.Matcher. The function must be pure.
func Func(f func(dom.Node) bool) dom.Matcher { return dom.MatchFunc(f) }
