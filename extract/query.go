package extract

import (
	"context"

	"github.com/hazyhaar/domselect/dom"
	"github.com/hazyhaar/domselect/selector"
)

// Match is one node selected by Query.
type Match struct {
	Index int               `json:"index"` // arena position in document order
	Name  string            `json:"name"`
	Attrs map[string]string `json:"attrs,omitempty"` // foreign attributes keyed "ns:key"
	Text  string            `json:"text"`
	HTML  string            `json:"html"`
}

// Query parses raw HTML and returns up to limit elements matching sel in
// document order. A limit <= 0 returns every match.
func (e *Extractor) Query(ctx context.Context, raw []byte, sel string, limit int) ([]Match, error) {
	m, err := selector.Compile(sel)
	if err != nil {
		return nil, err
	}
	doc, err := e.Parse(raw)
	if err != nil {
		return nil, err
	}

	var out []Match
	for n := range doc.Find(m).All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out = append(out, newMatch(n))
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	e.logger.DebugContext(ctx, "extract: query", "selector", sel, "matches", len(out), "nodes", doc.Len())
	return out, nil
}

func newMatch(n dom.Node) Match {
	m := Match{
		Index: int(n.ID()),
		Text:  CleanText(n.Text()),
		HTML:  n.HTML(),
	}
	m.Name, _ = n.Name()
	if attrs := n.Attrs(); len(attrs) > 0 {
		m.Attrs = make(map[string]string, len(attrs))
		for _, a := range attrs {
			key := a.Key
			if a.Namespace != "" {
				key = a.Namespace + ":" + key
			}
			m.Attrs[key] = a.Val
		}
	}
	return m
}
