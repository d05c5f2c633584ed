package extract

import (
	"strings"

	"github.com/hazyhaar/domselect/dom"
	"github.com/hazyhaar/domselect/predicate"
)

// densityRegions picks content regions by text density. Semantic landmarks
// win when they hold enough text; otherwise the element with the best
// text-to-markup score under <body> is used, and the body itself is the
// last resort. Nil means the page has no region with minLen text.
func densityRegions(doc *dom.Document, minLen int) []dom.Node {
	var regions []dom.Node
	for _, n := range findContentByLandmarks(doc) {
		if n.Is(boilerplate) {
			continue
		}
		if len(collectText(n, invisible)) >= minLen {
			regions = append(regions, n)
		}
	}
	if len(regions) > 0 {
		return regions
	}

	body, ok := doc.Find(predicate.Name("body")).First()
	if !ok {
		body, ok = doc.Root()
		if !ok {
			return nil
		}
	}
	if best, ok := findDensestNode(body, minLen); ok {
		return []dom.Node{best}
	}
	if len(collectText(body, cleanSkip)) < minLen {
		return nil
	}
	return []dom.Node{body}
}

// nodeScore holds density analysis for a subtree.
type nodeScore struct {
	node     dom.Node
	textLen  int
	density  float64
	linkDens float64 // fraction of text inside <a> tags
}

// findDensestNode walks the tree under root and returns the content element
// with the highest composite score.
func findDensestNode(root dom.Node, minLen int) (dom.Node, bool) {
	var candidates []nodeScore

	var walk func(dom.Node)
	walk = func(n dom.Node) {
		if n.Kind() != dom.ElementNode || n.Is(boilerplate) {
			return
		}
		if n.Is(contentTag) || n == root {
			text := collectText(n, invisible)
			if len(text) >= minLen {
				markupLen := max(len(n.HTML()), 1)
				candidates = append(candidates, nodeScore{
					node:     n,
					textLen:  len(text),
					density:  float64(len(text)) / float64(markupLen),
					linkDens: float64(len(collectLinkText(n))) / float64(len(text)),
				})
			}
		}
		for c := range n.ChildSeq() {
			walk(c)
		}
	}
	walk(root)

	var best *nodeScore
	var bestScore float64
	for i := range candidates {
		c := &candidates[i]
		if c.linkDens > 0.5 {
			continue // mostly links, probably navigation
		}
		score := c.density * logScale(c.textLen) * (1 - c.linkDens)
		if score > bestScore {
			bestScore = score
			best = c
		}
	}
	if best == nil {
		return dom.Node{}, false
	}
	return best.node, true
}

// logScale returns a log-based scale factor for text length.
func logScale(n int) float64 {
	if n <= 0 {
		return 0
	}
	scale := 1.0
	for v := n; v > 100; v /= 2 {
		scale++
	}
	return scale
}

// collectLinkText extracts text only from <a> elements.
func collectLinkText(n dom.Node) string {
	var sb strings.Builder
	for a := range n.Find(predicate.Name("a")).All() {
		for t := range a.Find(predicate.Text).All() {
			v, _ := t.AsText()
			sb.WriteString(strings.TrimSpace(v))
		}
	}
	if a, ok := n.Name(); ok && a == "a" {
		sb.WriteString(strings.TrimSpace(n.Text()))
	}
	return sb.String()
}

var contentTag = predicate.Or(
	predicate.Name("main"), predicate.Name("article"), predicate.Name("section"),
	predicate.Name("div"), predicate.Name("p"),
	predicate.Name("h1"), predicate.Name("h2"), predicate.Name("h3"),
	predicate.Name("h4"), predicate.Name("h5"), predicate.Name("h6"),
	predicate.Name("blockquote"), predicate.Name("pre"), predicate.Name("ul"),
	predicate.Name("ol"), predicate.Name("li"), predicate.Name("table"),
	predicate.Name("td"), predicate.Name("th"), predicate.Name("dl"),
	predicate.Name("dd"), predicate.Name("dt"), predicate.Name("figure"),
	predicate.Name("figcaption"), predicate.Name("details"), predicate.Name("summary"),
)

var boilerplatePatterns = []string{
	"sidebar", "footer", "header", "nav", "menu", "breadcrumb",
	"cookie", "banner", "advert", "social", "share", "comment",
	"related", "widget", "popup", "modal",
}

// boilerplate matches elements that are likely navigation, chrome or ads.
var boilerplate = predicate.And(predicate.Element, predicate.Func(isBoilerplate))

// cleanSkip drops both invisible and boilerplate regions from text.
var cleanSkip = predicate.Or(invisible, boilerplate)

var boilerplateTags = predicate.Or(predicate.Name("nav"), predicate.Name("footer"),
	predicate.Name("header"), predicate.Name("aside"))

func isBoilerplate(n dom.Node) bool {
	if n.Is(boilerplateTags) {
		return true
	}
	for _, key := range []string{"class", "id"} {
		v, ok := n.Attr(key)
		if !ok {
			continue
		}
		lower := strings.ToLower(v)
		for _, pattern := range boilerplatePatterns {
			if strings.Contains(lower, pattern) {
				return true
			}
		}
	}
	switch role, _ := n.Attr("role"); role {
	case "navigation", "banner", "contentinfo", "complementary":
		return true
	}
	return false
}
