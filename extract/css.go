package extract

import (
	"github.com/hazyhaar/domselect/dom"
	"github.com/hazyhaar/domselect/predicate"
	"github.com/hazyhaar/domselect/selector"
)

// selectRegions returns the elements matching any of the selectors whose
// visible text reaches minLen, in document order. A match nested inside an
// already accepted region is dropped so no text is reported twice.
func selectRegions(doc *dom.Document, selectors []string, skip dom.Matcher, minLen int) ([]dom.Node, error) {
	m, err := compileAll(selectors)
	if err != nil {
		return nil, err
	}
	var regions []dom.Node
	for n := range doc.Find(m).All() {
		if len(regions) > 0 && regions[len(regions)-1].Contains(n) {
			continue
		}
		if len(collectText(n, skip)) >= minLen {
			regions = append(regions, n)
		}
	}
	return regions, nil
}

// compileAll compiles selectors into a single element-only matcher.
func compileAll(selectors []string) (dom.Matcher, error) {
	ms := make([]dom.Matcher, 0, len(selectors))
	for _, s := range selectors {
		m, err := selector.Compile(s)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return predicate.And(predicate.Element, predicate.Or(ms...)), nil
}

// landmarks are the semantic HTML5 containers tried before density scoring.
var landmarks = []dom.Matcher{predicate.Name("main"), predicate.Name("article")}

// findContentByLandmarks returns the elements of the first landmark kind
// present in the document.
func findContentByLandmarks(doc *dom.Document) []dom.Node {
	for _, m := range landmarks {
		if nodes := doc.Find(m).Slice(); len(nodes) > 0 {
			return nodes
		}
	}
	return nil
}
