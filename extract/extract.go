// Package extract implements rule-driven content extraction on top of the
// dom query engine.
//
// It supports multiple extraction modes:
//   - css:     Extract content matching CSS selectors
//   - density: Extract content based on text-to-markup density analysis
//   - auto:    Try CSS selectors first, fall back to density
//   - rule:    Apply a named rule from the configuration
//
// The pipeline: raw HTML → dom.Document → select regions → collect text →
// optional sanitized HTML and Markdown renditions.
//
// Usage:
//
//	ex := extract.New(extract.Config{})
//	res, err := ex.Extract(ctx, raw, extract.Options{Mode: "css", Selectors: []string{"article"}})
//	ex.RegisterMCP(mcpServer)
//	http.Handle("/", ex.Handler())
package extract

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hazyhaar/domselect/dom"
	"github.com/hazyhaar/domselect/fetch"
	"github.com/hazyhaar/domselect/idgen"
	"github.com/hazyhaar/domselect/predicate"
	"github.com/hazyhaar/domselect/selector"
	"github.com/hazyhaar/domselect/store"
)

var (
	// ErrNoMatch is returned when no region passes the selectors and length threshold.
	ErrNoMatch = errors.New("extract: no content matched")

	// ErrUnknownMode is returned for an unsupported Options.Mode.
	ErrUnknownMode = errors.New("extract: unknown mode")

	// ErrRuleNotFound is returned when Options.Rule names no configured rule.
	ErrRuleNotFound = errors.New("extract: rule not found")

	// ErrTooLarge is returned when markup exceeds Config.MaxDocumentSize.
	ErrTooLarge = errors.New("extract: document too large")

	// ErrNoFetcher is returned for URL requests on an Extractor built
	// without WithFetcher.
	ErrNoFetcher = errors.New("extract: no fetcher configured")

	// ErrNoStore is returned for history requests on an Extractor built
	// without WithStore.
	ErrNoStore = errors.New("extract: no history store configured")
)

// Result is the output of content extraction.
type Result struct {
	ID       string `json:"id"`
	Title    string `json:"title"`              // page title if found
	Text     string `json:"text"`               // clean extracted text
	HTML     string `json:"html"`               // markup of the matched regions
	SafeHTML string `json:"safe_html,omitempty"` // HTML after sanitizing
	Markdown string `json:"markdown,omitempty"`
	Hash     string `json:"hash"` // SHA-256 of the normalised Text
	Matches  int    `json:"matches"`

	// Seen reports that the history already held this content for the
	// same source. ID is then the stored record's ID.
	Seen bool `json:"seen,omitempty"`
}

// Options controls one extraction.
type Options struct {
	Mode       string   `json:"mode"`      // "css", "density", "auto", "rule"
	Selectors  []string `json:"selectors"` // CSS selectors for css/auto
	Rule       string   `json:"rule"`      // rule name for Mode "rule"
	MinTextLen int      `json:"min_text_len"`
	Markdown   bool     `json:"markdown"`
	Sanitize   bool     `json:"sanitize"`

	// Source labels the document in the history, usually its URL.
	// Empty means "inline".
	Source string `json:"source,omitempty"`

	exclude []string
}

// Extractor runs extractions. It is safe for concurrent use.
type Extractor struct {
	cfg    Config
	logger *slog.Logger
	newID  idgen.Generator
	md     *converter.Converter
	policy *bluemonday.Policy
	fetch  fetch.Fetcher
	store  *store.Store
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithIDGenerator sets the generator for Result IDs.
func WithIDGenerator(gen idgen.Generator) Option {
	return func(e *Extractor) { e.newID = gen }
}

// WithFetcher enables URL inputs, loaded through f.
func WithFetcher(f fetch.Fetcher) Option {
	return func(e *Extractor) { e.fetch = f }
}

// WithStore records every extraction in s.
func WithStore(s *store.Store) Option {
	return func(e *Extractor) { e.store = s }
}

// New creates an Extractor with the given configuration.
func New(cfg Config, opts ...Option) *Extractor {
	cfg.defaults()
	e := &Extractor{
		cfg:    cfg,
		logger: cfg.Logger,
		newID:  idgen.Prefixed("ext_", idgen.Default),
		md: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
		policy: bluemonday.UGCPolicy(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Rules returns the configured rules.
func (e *Extractor) Rules() []Rule { return e.cfg.Rules }

// Parse builds a Document from raw markup, enforcing MaxDocumentSize.
func (e *Extractor) Parse(raw []byte) (*dom.Document, error) {
	if int64(len(raw)) > e.cfg.MaxDocumentSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, len(raw), e.cfg.MaxDocumentSize)
	}
	return dom.Parse(bytes.NewReader(raw))
}

// Extract parses raw HTML and runs the extraction pipeline on it.
func (e *Extractor) Extract(ctx context.Context, raw []byte, opts Options) (*Result, error) {
	doc, err := e.Parse(raw)
	if err != nil {
		return nil, err
	}
	return e.ExtractDocument(ctx, doc, opts)
}

// ExtractURL fetches a page and runs the extraction pipeline on it.
func (e *Extractor) ExtractURL(ctx context.Context, rawURL string, opts Options) (*Result, error) {
	raw, err := e.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if opts.Source == "" {
		opts.Source = rawURL
	}
	return e.Extract(ctx, raw, opts)
}

// Fetch loads a page through the configured fetcher.
func (e *Extractor) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if e.fetch == nil {
		return nil, ErrNoFetcher
	}
	return e.fetch.Fetch(ctx, rawURL)
}

// ExtractDocument runs the extraction pipeline on an already parsed document.
func (e *Extractor) ExtractDocument(ctx context.Context, doc *dom.Document, opts Options) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if opts.Mode == "" {
		opts.Mode = "auto"
	}
	if opts.Mode == "rule" {
		rule, ok := e.cfg.Rule(opts.Rule)
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrRuleNotFound, opts.Rule)
		}
		opts = rule.options(opts)
	}
	if opts.MinTextLen <= 0 {
		opts.MinTextLen = e.cfg.MinTextLen
	}

	skip, err := skipMatcher(opts.exclude)
	if err != nil {
		return nil, err
	}

	var regions []dom.Node
	switch opts.Mode {
	case "css":
		regions, err = selectRegions(doc, opts.Selectors, skip, opts.MinTextLen)
	case "density":
		regions = densityRegions(doc, opts.MinTextLen)
	case "auto":
		if len(opts.Selectors) > 0 {
			regions, err = selectRegions(doc, opts.Selectors, skip, opts.MinTextLen)
		}
		if err == nil && len(regions) == 0 {
			regions = densityRegions(doc, opts.MinTextLen)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, opts.Mode)
	}
	if err != nil {
		return nil, err
	}
	if len(regions) == 0 && opts.Mode != "density" {
		return nil, fmt.Errorf("%w: %v", ErrNoMatch, opts.Selectors)
	}

	res := e.assemble(doc, regions, skip, opts)
	e.record(ctx, res, opts)
	e.logger.DebugContext(ctx, "extract: done",
		"id", res.ID, "mode", opts.Mode, "matches", res.Matches, "text_len", len(res.Text))
	return res, nil
}

// record saves res in the history. Failures are logged; the extraction
// itself still succeeds.
func (e *Extractor) record(ctx context.Context, res *Result, opts Options) {
	if e.store == nil {
		return
	}
	source := opts.Source
	if source == "" {
		source = "inline"
	}
	rec := &store.Record{
		ID:       res.ID,
		Source:   source,
		Mode:     opts.Mode,
		Title:    res.Title,
		Hash:     res.Hash,
		Text:     res.Text,
		Markdown: res.Markdown,
		Matches:  res.Matches,
	}
	seen, err := e.store.Save(ctx, rec)
	if err != nil {
		e.logger.WarnContext(ctx, "extract: history save failed", "id", res.ID, "error", err)
		return
	}
	res.ID, res.Seen = rec.ID, seen
}

// History returns recorded extractions, newest first. It returns
// ErrNoStore when the Extractor was built without WithStore.
func (e *Extractor) History(ctx context.Context, source string, limit int) ([]store.Record, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	return e.store.List(ctx, source, limit)
}

// HistoryRecord returns one recorded extraction by ID.
func (e *Extractor) HistoryRecord(ctx context.Context, id string) (*store.Record, error) {
	if e.store == nil {
		return nil, ErrNoStore
	}
	return e.store.Get(ctx, id)
}

// options merges a rule over per-call options.
func (r Rule) options(o Options) Options {
	o.Selectors = r.Selectors
	o.exclude = r.Exclude
	o.Mode = "css"
	if r.MinTextLen > 0 {
		o.MinTextLen = r.MinTextLen
	}
	o.Markdown = o.Markdown || r.Markdown
	o.Sanitize = o.Sanitize || r.Sanitize
	return o
}

func (e *Extractor) assemble(doc *dom.Document, regions []dom.Node, skip dom.Matcher, opts Options) *Result {
	var texts, htmls []string
	for _, n := range regions {
		texts = append(texts, CleanText(collectText(n, skip)))
		htmls = append(htmls, n.HTML())
	}
	text := strings.Join(texts, "\n\n")
	markup := strings.Join(htmls, "\n")

	res := &Result{
		ID:      e.newID(),
		Title:   findTitle(doc),
		Text:    text,
		HTML:    markup,
		Hash:    hashText(NormaliseForHash(text)),
		Matches: len(regions),
	}
	if opts.Sanitize {
		res.SafeHTML = e.policy.Sanitize(markup)
	}
	if opts.Markdown {
		res.Markdown = e.htmlToMarkdown(markup, text)
	}
	return res
}

// htmlToMarkdown converts HTML to structured markdown.
// If conversion fails or produces empty output, returns the fallback plain text.
func (e *Extractor) htmlToMarkdown(markup, fallback string) string {
	if markup == "" {
		return fallback
	}
	result, err := e.md.ConvertString(markup)
	if err != nil || strings.TrimSpace(result) == "" {
		e.logger.Debug("extract: markdown conversion fell back to text", "error", err)
		return fallback
	}
	return strings.TrimSpace(result)
}

var titleMatcher = predicate.Name("title")

// findTitle extracts the page <title> text.
func findTitle(doc *dom.Document) string {
	if n, ok := doc.Find(titleMatcher).First(); ok {
		return strings.TrimSpace(n.Text())
	}
	return ""
}

// hashText returns the SHA-256 hex digest of text.
func hashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%x", h)
}

// invisible regions never contribute text.
var invisible = predicate.Or(predicate.Name("script"), predicate.Name("style"), predicate.Name("noscript"))

func skipMatcher(exclude []string) (dom.Matcher, error) {
	if len(exclude) == 0 {
		return invisible, nil
	}
	ms := []dom.Matcher{invisible}
	for _, s := range exclude {
		m, err := selector.Compile(s)
		if err != nil {
			return nil, err
		}
		ms = append(ms, m)
	}
	return predicate.Or(ms...), nil
}

// collectText extracts the visible text of a subtree: text nodes trimmed and
// joined by single spaces, subtrees matching skip left out.
func collectText(n dom.Node, skip dom.Matcher) string {
	var sb strings.Builder
	var walk func(dom.Node)
	walk = func(n dom.Node) {
		if v, ok := n.AsText(); ok {
			if v = strings.TrimSpace(v); v != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(v)
			}
			return
		}
		if n.Kind() == dom.ElementNode && n.Is(skip) {
			return
		}
		for c := range n.ChildSeq() {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
