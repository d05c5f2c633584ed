// Package selector compiles a practical subset of CSS selectors into
// dom.Matcher values built from package predicate.
//
// Supported syntax:
//   - tag: "article", "div", "*"
//   - .class: ".content"
//   - #id: "#main"
//   - [attr], [attr=val], [attr="val"], [attr='val']
//   - compounds: "div.content#main[role=main]"
//   - descendant combinator (whitespace): "main p"
//   - child combinator: "ul > li"
//   - groups: "h1, h2"
//   - :is(list), :not(list): "article :is(h1, h2)", "a:not([href])"
//
// Tag names match ignoring case, which also finds camel-cased SVG and
// MathML elements. Attribute names are lower-cased to match the tokenizer;
// attribute values and class names are compared exactly.
package selector

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/hazyhaar/domselect/dom"
	"github.com/hazyhaar/domselect/predicate"
)

// ErrSyntax is returned for selectors that cannot be compiled.
var ErrSyntax = errors.New("selector: syntax error")

// Compile parses a selector string into a Matcher.
func Compile(sel string) (dom.Matcher, error) {
	p := &parser{src: sel}
	return p.parseGroups(false)
}

// MustCompile is like Compile but panics on error.
func MustCompile(sel string) dom.Matcher {
	m, err := Compile(sel)
	if err != nil {
		panic(err)
	}
	return m
}

type parser struct {
	src string
	pos int
}

func (p *parser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: %s at offset %d in %q", ErrSyntax, fmt.Sprintf(format, args...), p.pos, p.src)
}

func (p *parser) eof() bool { return p.pos >= len(p.src) }

func (p *parser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.src[p.pos]
}

// skipSpace consumes whitespace and reports whether any was found.
func (p *parser) skipSpace() bool {
	start := p.pos
	for !p.eof() && isSpace(p.src[p.pos]) {
		p.pos++
	}
	return p.pos > start
}

// parseGroups reads a comma-separated selector list. A nested list, inside
// :is() or :not(), ends at ')' which is left for the caller.
func (p *parser) parseGroups(nested bool) (dom.Matcher, error) {
	var groups []dom.Matcher
	for {
		p.skipSpace()
		g, err := p.parseChain()
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
		p.skipSpace()
		if p.eof() {
			if nested {
				return nil, p.errorf("expected ')'")
			}
			break
		}
		if nested && p.peek() == ')' {
			break
		}
		if p.peek() != ',' {
			return nil, p.errorf("unexpected %q", p.peek())
		}
		p.pos++
	}
	if len(groups) == 1 {
		return groups[0], nil
	}
	return predicate.Or(groups...), nil
}

// parseChain reads compound selectors joined by combinators.
func (p *parser) parseChain() (dom.Matcher, error) {
	m, err := p.parseCompound()
	if err != nil {
		return nil, err
	}
	for {
		spaced := p.skipSpace()
		if p.eof() || p.peek() == ',' || p.peek() == ')' {
			return m, nil
		}
		child := false
		if p.peek() == '>' {
			child = true
			p.pos++
			p.skipSpace()
		} else if !spaced {
			return nil, p.errorf("unexpected %q", p.peek())
		}
		next, err := p.parseCompound()
		if err != nil {
			return nil, err
		}
		if child {
			m = predicate.Child(m, next)
		} else {
			m = predicate.Descendant(m, next)
		}
	}
}

func (p *parser) parseCompound() (dom.Matcher, error) {
	var parts []dom.Matcher
	switch c := p.peek(); {
	case c == '*':
		p.pos++
		parts = append(parts, predicate.Element)
	case isNameStart(c):
		parts = append(parts, predicate.Tag(p.ident()))
	}

	for !p.eof() {
		switch p.peek() {
		case '.':
			p.pos++
			name := p.ident()
			if name == "" {
				return nil, p.errorf("expected class name")
			}
			parts = append(parts, predicate.Class(name))
		case '#':
			p.pos++
			id := p.ident()
			if id == "" {
				return nil, p.errorf("expected id")
			}
			parts = append(parts, predicate.ID(id))
		case '[':
			m, err := p.parseAttr()
			if err != nil {
				return nil, err
			}
			parts = append(parts, m)
		case ':':
			m, err := p.parsePseudo()
			if err != nil {
				return nil, err
			}
			parts = append(parts, m)
		default:
			return compound(parts, p)
		}
	}
	return compound(parts, p)
}

func compound(parts []dom.Matcher, p *parser) (dom.Matcher, error) {
	switch len(parts) {
	case 0:
		if p.eof() {
			return nil, p.errorf("expected selector")
		}
		return nil, p.errorf("unexpected %q", p.peek())
	case 1:
		return parts[0], nil
	default:
		return predicate.And(parts...), nil
	}
}

// parsePseudo reads :is(list) or :not(list).
func (p *parser) parsePseudo() (dom.Matcher, error) {
	p.pos++ // :
	name := strings.ToLower(p.ident())
	if name != "is" && name != "not" {
		return nil, p.errorf("unsupported pseudo-class %q", name)
	}
	if p.peek() != '(' {
		return nil, p.errorf("expected '(' after :%s", name)
	}
	p.pos++
	inner, err := p.parseGroups(true)
	if err != nil {
		return nil, err
	}
	if p.peek() != ')' {
		return nil, p.errorf("expected ')'")
	}
	p.pos++
	if name == "not" {
		return predicate.Not(inner), nil
	}
	return inner, nil
}

// parseAttr reads [key], [key=value] with optional quotes around value.
func (p *parser) parseAttr() (dom.Matcher, error) {
	p.pos++ // [
	p.skipSpace()
	key := strings.ToLower(p.ident())
	if key == "" {
		return nil, p.errorf("expected attribute name")
	}
	p.skipSpace()
	switch p.peek() {
	case ']':
		p.pos++
		return predicate.HasAttr(key), nil
	case '=':
		p.pos++
	default:
		return nil, p.errorf("expected ']' or '='")
	}
	p.skipSpace()

	var val string
	if q := p.peek(); q == '"' || q == '\'' {
		end := strings.IndexByte(p.src[p.pos+1:], q)
		if end < 0 {
			return nil, p.errorf("unterminated string")
		}
		val = p.src[p.pos+1 : p.pos+1+end]
		p.pos += end + 2
	} else {
		val = p.ident()
		if val == "" {
			return nil, p.errorf("expected attribute value")
		}
	}
	p.skipSpace()
	if p.peek() != ']' {
		return nil, p.errorf("expected ']'")
	}
	p.pos++
	return predicate.Attr{Key: key, Value: val}, nil
}

// ident reads a run of name characters.
func (p *parser) ident() string {
	start := p.pos
	for !p.eof() {
		c := p.src[p.pos]
		if c >= utf8.RuneSelf || isNameStart(c) || c == '-' || (c >= '0' && c <= '9') {
			p.pos++
			continue
		}
		if c == '\\' && p.pos+1 < len(p.src) {
			p.pos += 2
			continue
		}
		break
	}
	return unescape(p.src[start:p.pos])
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}

func isNameStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= utf8.RuneSelf
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
