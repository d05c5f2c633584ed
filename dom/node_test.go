package dom

import (
	"strings"
	"testing"
)

const nodeFixture = `<html><head></head><body id=something>foo<bar>baz<quux class=another-thing><!--comment-->`

type fixture struct {
	doc *Document

	html, head, body, foo, bar, baz, quux, comment Node
}

func loadFixture(t *testing.T) fixture {
	t.Helper()
	doc := ParseString(nodeFixture)
	if doc.Len() != 8 {
		t.Fatalf("Len: got %d, want 8", doc.Len())
	}
	nth := func(i int) Node {
		n, ok := doc.Nth(i)
		if !ok {
			t.Fatalf("Nth(%d): missing", i)
		}
		return n
	}
	return fixture{
		doc:  doc,
		html: nth(0), head: nth(1), body: nth(2), foo: nth(3),
		bar: nth(4), baz: nth(5), quux: nth(6), comment: nth(7),
	}
}

func nameIs(tag string) Matcher {
	return MatchFunc(func(n Node) bool {
		name, ok := n.Name()
		return ok && name == tag
	})
}

func TestNode_Name(t *testing.T) {
	f := loadFixture(t)
	tests := []struct {
		node   Node
		name   string
		wantOK bool
	}{
		{f.html, "html", true},
		{f.head, "head", true},
		{f.body, "body", true},
		{f.foo, "", false},
		{f.bar, "bar", true},
		{f.baz, "", false},
		{f.quux, "quux", true},
		{f.comment, "", false},
	}
	for _, tt := range tests {
		name, ok := tt.node.Name()
		if name != tt.name || ok != tt.wantOK {
			t.Errorf("%v Name: got (%q, %v), want (%q, %v)", tt.node, name, ok, tt.name, tt.wantOK)
		}
	}
}

func TestNode_Attr(t *testing.T) {
	f := loadFixture(t)
	if _, ok := f.html.Attr("id"); ok {
		t.Error("html should have no id")
	}
	if v, ok := f.body.Attr("id"); !ok || v != "something" {
		t.Errorf("body id: got (%q, %v)", v, ok)
	}
	if _, ok := f.body.Attr("class"); ok {
		t.Error("body should have no class")
	}
	if _, ok := f.foo.Attr("id"); ok {
		t.Error("text node should have no attributes")
	}
	if v, ok := f.quux.Attr("class"); !ok || v != "another-thing" {
		t.Errorf("quux class: got (%q, %v)", v, ok)
	}
	if _, ok := f.quux.Attr("CLASS"); ok {
		t.Error("attribute lookup must be case-sensitive")
	}
}

func TestNode_Parent(t *testing.T) {
	f := loadFixture(t)
	if p, ok := f.html.Parent(); ok {
		t.Errorf("html parent: got %v", p)
	}
	tests := []struct{ child, parent Node }{
		{f.head, f.html},
		{f.body, f.html},
		{f.foo, f.body},
		{f.bar, f.body},
		{f.baz, f.bar},
		{f.quux, f.bar},
		{f.comment, f.quux},
	}
	for _, tt := range tests {
		p, ok := tt.child.Parent()
		if !ok || p != tt.parent {
			t.Errorf("%v parent: got (%v, %v), want %v", tt.child, p, ok, tt.parent)
		}
	}
}

func TestNode_PrevNext(t *testing.T) {
	f := loadFixture(t)
	check := func(name string, got Node, ok bool, want Node, wantOK bool) {
		t.Helper()
		if ok != wantOK || (ok && got != want) {
			t.Errorf("%s: got (%v, %v), want (%v, %v)", name, got, ok, want, wantOK)
		}
	}
	n, ok := f.html.Prev()
	check("html.Prev", n, ok, Node{}, false)
	n, ok = f.html.Next()
	check("html.Next", n, ok, Node{}, false)
	n, ok = f.head.Prev()
	check("head.Prev", n, ok, Node{}, false)
	n, ok = f.head.Next()
	check("head.Next", n, ok, f.body, true)
	n, ok = f.body.Prev()
	check("body.Prev", n, ok, f.head, true)
	n, ok = f.body.Next()
	check("body.Next", n, ok, Node{}, false)
	n, ok = f.foo.Next()
	check("foo.Next", n, ok, f.bar, true)
	n, ok = f.bar.Prev()
	check("bar.Prev", n, ok, f.foo, true)
	n, ok = f.baz.Next()
	check("baz.Next", n, ok, f.quux, true)
	n, ok = f.quux.Prev()
	check("quux.Prev", n, ok, f.baz, true)
	n, ok = f.quux.Next()
	check("quux.Next", n, ok, Node{}, false)
}

func TestNode_Text(t *testing.T) {
	f := loadFixture(t)
	tests := []struct {
		node Node
		want string
	}{
		{f.html, "foobaz"},
		{f.head, ""},
		{f.body, "foobaz"},
		{f.foo, "foo"},
		{f.bar, "baz"},
		{f.baz, "baz"},
		{f.quux, ""},
		{f.comment, ""},
	}
	for _, tt := range tests {
		if got := tt.node.Text(); got != tt.want {
			t.Errorf("%v Text: got %q, want %q", tt.node, got, tt.want)
		}
	}
}

func TestNode_AsTextAsComment(t *testing.T) {
	f := loadFixture(t)
	if v, ok := f.foo.AsText(); !ok || v != "foo" {
		t.Errorf("foo AsText: got (%q, %v)", v, ok)
	}
	if _, ok := f.bar.AsText(); ok {
		t.Error("bar AsText should be absent")
	}
	if v, ok := f.baz.AsText(); !ok || v != "baz" {
		t.Errorf("baz AsText: got (%q, %v)", v, ok)
	}
	if _, ok := f.foo.AsComment(); ok {
		t.Error("foo AsComment should be absent")
	}
	if v, ok := f.comment.AsComment(); !ok || v != "comment" {
		t.Errorf("comment AsComment: got (%q, %v)", v, ok)
	}
}

func TestNode_Children(t *testing.T) {
	f := loadFixture(t)
	children := f.html.Children()
	if len(children) != 2 || children[0] != f.head || children[1] != f.body {
		t.Fatalf("html children: got %v", children)
	}
	if got := len(f.body.Children()); got != 2 {
		t.Errorf("body children: got %d, want 2", got)
	}
	if got := len(f.baz.Children()); got != 0 {
		t.Errorf("baz children: got %d, want 0", got)
	}
	if got := len(f.quux.Children()); got != 1 {
		t.Errorf("quux children: got %d, want 1", got)
	}
	if first, ok := f.bar.FirstChild(); !ok || first != f.baz {
		t.Errorf("bar FirstChild: got %v", first)
	}
	if last, ok := f.bar.LastChild(); !ok || last != f.quux {
		t.Errorf("bar LastChild: got %v", last)
	}
}

func TestNode_Ancestors(t *testing.T) {
	f := loadFixture(t)
	var got []Node
	for a := range f.comment.Ancestors() {
		got = append(got, a)
	}
	want := []Node{f.quux, f.bar, f.body, f.html}
	if len(got) != len(want) {
		t.Fatalf("ancestors: got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ancestors[%d]: got %v, want %v", i, got[i], want[i])
		}
	}
	if !f.body.Contains(f.comment) {
		t.Error("body should contain comment")
	}
	if f.body.Contains(f.body) {
		t.Error("a node does not contain itself")
	}
	if f.head.Contains(f.foo) {
		t.Error("head should not contain foo")
	}
}

func TestNode_Structure(t *testing.T) {
	doc := ParseString(`<!DOCTYPE html><html><head><title>t</title></head><body>
<ul><li>a<li>b<li>c</ul><p>one<b>two</b>three</p><table><tr><td>x</td></tr></table></body></html>`)

	for n := range doc.Nodes() {
		_, isElem := n.Name()
		if isElem != (n.Kind() == ElementNode) {
			t.Errorf("%v: Name presence disagrees with Kind %s", n, n.Kind())
		}

		children := n.Children()
		count := 0
		for range n.ChildSeq() {
			count++
		}
		if count != len(children) {
			t.Errorf("%v: ChildSeq %d != Children %d", n, count, len(children))
		}
		for i, c := range children {
			p, ok := c.Parent()
			if !ok || p != n {
				t.Errorf("%v: child %v has parent %v", n, c, p)
			}
			if i > 0 {
				prev, ok := c.Prev()
				if !ok || prev != children[i-1] {
					t.Errorf("%v: Prev got %v, want %v", c, prev, children[i-1])
				}
				next, ok := children[i-1].Next()
				if !ok || next != c {
					t.Errorf("%v: Next got %v, want %v", children[i-1], next, c)
				}
			}
		}
	}
}

func TestDocument_Roots(t *testing.T) {
	doc := ParseString(`<!--before--><html><body>x</body></html><!--after-->`)
	var roots []Node
	for r := range doc.Roots() {
		roots = append(roots, r)
	}
	if len(roots) != 3 {
		t.Fatalf("roots: got %v", roots)
	}
	if v, ok := roots[0].AsComment(); !ok || v != "before" {
		t.Errorf("first root: got %v", roots[0])
	}
	if name, _ := roots[1].Name(); name != "html" {
		t.Errorf("second root: got %v", roots[1])
	}
	if next, ok := roots[1].Next(); !ok || next != roots[2] {
		t.Errorf("html.Next: got %v", next)
	}
	if root, ok := doc.Root(); !ok || root != roots[1] {
		t.Errorf("Root: got %v, want the html element", root)
	}
	if _, ok := doc.Nth(doc.Len()); ok {
		t.Error("Nth past the end should be absent")
	}
}

func TestDocument_InvalidIDPanics(t *testing.T) {
	doc := ParseString(`<p>x</p>`)
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic")
		}
		if msg, _ := r.(string); !strings.HasPrefix(msg, "dom:") {
			t.Errorf("panic: got %v", r)
		}
	}()
	doc.Node(NodeID(doc.Len()))
}

func TestNode_ZeroPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic")
		}
	}()
	var n Node
	if n.IsValid() {
		t.Fatal("zero Node should be invalid")
	}
	n.Name()
}

func TestNode_Is(t *testing.T) {
	f := loadFixture(t)
	if !f.bar.Is(nameIs("bar")) {
		t.Error("bar should match its name")
	}
	if f.bar.Is(nameIs("quux")) {
		t.Error("bar should not match quux")
	}
	if !f.foo.Is(nil) {
		t.Error("nil matcher matches every node")
	}
}
