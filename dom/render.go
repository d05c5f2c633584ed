package dom

import (
	"bufio"
	"io"
	"strings"

	"golang.org/x/net/html/atom"
)

// Void elements never have children or a closing tag.
var voidElements = map[atom.Atom]bool{
	atom.Area:   true,
	atom.Base:   true,
	atom.Br:     true,
	atom.Col:    true,
	atom.Embed:  true,
	atom.Hr:     true,
	atom.Img:    true,
	atom.Input:  true,
	atom.Keygen: true,
	atom.Link:   true,
	atom.Meta:   true,
	atom.Param:  true,
	atom.Source: true,
	atom.Track:  true,
	atom.Wbr:    true,
}

// Text inside these elements is emitted verbatim.
var rawTextElements = map[atom.Atom]bool{
	atom.Iframe:    true,
	atom.Noembed:   true,
	atom.Noframes:  true,
	atom.Noscript:  true,
	atom.Plaintext: true,
	atom.Script:    true,
	atom.Style:     true,
	atom.Xmp:       true,
}

// IsVoid reports whether an HTML element with this tag name is void.
func IsVoid(name string) bool { return voidElements[atom.Lookup([]byte(name))] }

var (
	attrEscaper = strings.NewReplacer(`&`, "&amp;", `"`, "&quot;", "\u00a0", "&nbsp;")
	textEscaper = strings.NewReplacer(`&`, "&amp;", `<`, "&lt;", `>`, "&gt;", "\u00a0", "&nbsp;")
)

type writer interface {
	io.Writer
	io.ByteWriter
	WriteString(string) (int, error)
}

// HTML serializes n and its subtree.
func (n Node) HTML() string {
	n.rec()
	var sb strings.Builder
	n.doc.render(&sb, n.id)
	return sb.String()
}

// InnerHTML serializes the children of n. It is empty for text and comment
// nodes.
func (n Node) InnerHTML() string {
	var sb strings.Builder
	for c := n.rec().first; c != none; c = n.doc.nodes[c].next {
		n.doc.render(&sb, c)
	}
	return sb.String()
}

// Render writes the same markup as HTML to w.
func (n Node) Render(w io.Writer) error {
	n.rec()
	if bw, ok := w.(writer); ok {
		return n.doc.render(bw, n.id)
	}
	bw := bufio.NewWriter(w)
	if err := n.doc.render(bw, n.id); err != nil {
		return err
	}
	return bw.Flush()
}

func (d *Document) render(w writer, id NodeID) error {
	r := &d.nodes[id]
	switch r.kind {
	case TextNode:
		if p := r.parent; p != none && d.nodes[p].namespace == "" && rawTextElements[d.nodes[p].atom] {
			_, err := w.WriteString(r.data)
			return err
		}
		_, err := textEscaper.WriteString(w, r.data)
		return err
	case CommentNode:
		if _, err := w.WriteString("<!--"); err != nil {
			return err
		}
		if _, err := w.WriteString(r.data); err != nil {
			return err
		}
		_, err := w.WriteString("-->")
		return err
	}

	if err := w.WriteByte('<'); err != nil {
		return err
	}
	if _, err := w.WriteString(r.name); err != nil {
		return err
	}
	for _, a := range r.attrs {
		if err := w.WriteByte(' '); err != nil {
			return err
		}
		if a.Namespace != "" {
			if _, err := w.WriteString(a.Namespace); err != nil {
				return err
			}
			if err := w.WriteByte(':'); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(a.Key); err != nil {
			return err
		}
		if _, err := w.WriteString(`="`); err != nil {
			return err
		}
		if _, err := attrEscaper.WriteString(w, a.Val); err != nil {
			return err
		}
		if err := w.WriteByte('"'); err != nil {
			return err
		}
	}
	if err := w.WriteByte('>'); err != nil {
		return err
	}
	if r.namespace == "" && voidElements[r.atom] {
		return nil
	}

	// The parser drops one leading newline after these start tags.
	switch r.atom {
	case atom.Pre, atom.Listing, atom.Textarea:
		if c := r.first; c != none && d.nodes[c].kind == TextNode && strings.HasPrefix(d.nodes[c].data, "\n") {
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
		}
	}

	for c := r.first; c != none; c = d.nodes[c].next {
		if err := d.render(w, c); err != nil {
			return err
		}
	}

	if _, err := w.WriteString("</"); err != nil {
		return err
	}
	if _, err := w.WriteString(r.name); err != nil {
		return err
	}
	return w.WriteByte('>')
}
