package dom

import (
	"bytes"
	"maps"
	"strings"
	"testing"
)

func TestNode_HTML(t *testing.T) {
	f := loadFixture(t)
	tests := []struct {
		node Node
		want string
	}{
		{f.html, `<html><head></head><body id="something">foo<bar>baz<quux class="another-thing"><!--comment--></quux></bar></body></html>`},
		{f.head, `<head></head>`},
		{f.foo, `foo`},
		{f.quux, `<quux class="another-thing"><!--comment--></quux>`},
		{f.comment, `<!--comment-->`},
	}
	for _, tt := range tests {
		if got := tt.node.HTML(); got != tt.want {
			t.Errorf("%v HTML:\n got %s\nwant %s", tt.node, got, tt.want)
		}
	}
}

func TestNode_HTMLAttributeOrder(t *testing.T) {
	doc := ParseString(`<div a=b c=d e=f g=h i=j>`)
	div, ok := doc.Nth(3)
	if !ok {
		t.Fatal("Nth(3) missing")
	}
	if name, _ := div.Name(); name != "div" {
		t.Fatalf("Nth(3): got %v, want div", div)
	}
	want := `<div a="b" c="d" e="f" g="h" i="j"></div>`
	if got := div.HTML(); got != want {
		t.Errorf("HTML: got %s, want %s", got, want)
	}
}

func TestNode_InnerHTML(t *testing.T) {
	f := loadFixture(t)
	tests := []struct {
		node Node
		want string
	}{
		{f.html, `<head></head><body id="something">foo<bar>baz<quux class="another-thing"><!--comment--></quux></bar></body>`},
		{f.head, ``},
		{f.foo, ``},
		{f.quux, `<!--comment-->`},
		{f.comment, ``},
	}
	for _, tt := range tests {
		if got := tt.node.InnerHTML(); got != tt.want {
			t.Errorf("%v InnerHTML:\n got %s\nwant %s", tt.node, got, tt.want)
		}
	}

	for n := range f.doc.Nodes() {
		var sb strings.Builder
		for _, c := range n.Children() {
			sb.WriteString(c.HTML())
		}
		if got := n.InnerHTML(); got != sb.String() {
			t.Errorf("%v InnerHTML %q != concatenated children %q", n, got, sb.String())
		}
	}
}

func TestRender_Escaping(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		tag    string
		want   string
	}{
		{
			name:   "attribute quotes and ampersand",
			markup: `<p title='say "hi" &amp; go'>x</p>`,
			tag:    "p",
			want:   `<p title="say &quot;hi&quot; &amp; go">x</p>`,
		},
		{
			name:   "text angle brackets",
			markup: `<p>a &lt; b &amp;&amp; c &gt; d</p>`,
			tag:    "p",
			want:   `<p>a &lt; b &amp;&amp; c &gt; d</p>`,
		},
		{
			name:   "non-breaking space",
			markup: `<p title="a&nbsp;b">c&nbsp;d</p>`,
			tag:    "p",
			want:   `<p title="a&nbsp;b">c&nbsp;d</p>`,
		},
		{
			name:   "script is raw text",
			markup: `<script>if (a < b && c) {}</script>`,
			tag:    "script",
			want:   `<script>if (a < b && c) {}</script>`,
		},
		{
			name:   "void elements",
			markup: `<p>a<br>b<img src=x.png alt=""></p>`,
			tag:    "p",
			want:   `<p>a<br>b<img src="x.png" alt=""></p>`,
		},
		{
			name:   "pre keeps leading newline",
			markup: "<pre>\n\nindented</pre>",
			tag:    "pre",
			want:   "<pre>\n\nindented</pre>",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := ParseString(tt.markup)
			n, ok := doc.Find(nameIs(tt.tag)).First()
			if !ok {
				t.Fatalf("no <%s> in %q", tt.tag, tt.markup)
			}
			if got := n.HTML(); got != tt.want {
				t.Errorf("HTML: got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRender_RoundTrip(t *testing.T) {
	markup := `<html><body>
<div id="main" class="a b" data-x='1 "2" &amp; 3'>
  <p>Hello <b>bold</b> &amp; <i>it&lt;al&gt;ic</i>!</p>
  <!-- note -->
  <ul><li>one<li>two<br><li>three</ul>
  <script>var s = "<b>";</script>
  <svg viewBox="0 0 1 1"><circle r="1"></circle></svg>
</div>
</body></html>`

	doc := ParseString(markup)
	for n := range doc.Find(MatchFunc(func(n Node) bool { return n.Kind() == ElementNode })).All() {
		name, _ := n.Name()
		if name == "html" || name == "head" || name == "body" {
			continue
		}
		again := ParseString(n.HTML())
		m, ok := again.Find(nameIs(name)).First()
		if !ok {
			t.Errorf("%v: re-parsed markup %q lost <%s>", n, n.HTML(), name)
			continue
		}
		if got, want := attrMap(m), attrMap(n); !maps.Equal(got, want) {
			t.Errorf("%v: attributes got %v, want %v", n, got, want)
		}
		if got, want := m.Text(), n.Text(); got != want {
			t.Errorf("%v: text got %q, want %q", n, got, want)
		}
	}
}

func attrMap(n Node) map[string]string {
	m := make(map[string]string)
	for _, a := range n.Attrs() {
		m[a.Key] = a.Val
	}
	return m
}

func TestNode_Render(t *testing.T) {
	f := loadFixture(t)
	var buf bytes.Buffer
	if err := f.body.Render(&buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got, want := buf.String(), f.body.HTML(); got != want {
		t.Errorf("Render: got %q, want %q", got, want)
	}
}

func TestIsVoid(t *testing.T) {
	for _, name := range []string{"br", "img", "input", "meta", "wbr"} {
		if !IsVoid(name) {
			t.Errorf("IsVoid(%q) = false", name)
		}
	}
	for _, name := range []string{"div", "p", "quux", ""} {
		if IsVoid(name) {
			t.Errorf("IsVoid(%q) = true", name)
		}
	}
}
