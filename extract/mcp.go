package extract

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domselect/kit"
	"github.com/hazyhaar/domselect/store"
)

// ErrEmptyInput is returned when a request carries neither markup nor URL.
var ErrEmptyInput = errors.New("extract: html or url is required")

// RegisterMCP registers domselect tools on an MCP server.
func (e *Extractor) RegisterMCP(srv *mcp.Server) {
	e.registerQueryTool(srv)
	e.registerExtractTool(srv)
	e.registerRulesTool(srv)
	e.registerHistoryTool(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	s := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func (e *Extractor) endpoint(name string, ep kit.Endpoint) kit.Endpoint {
	return kit.Logging(e.logger, name)(ep)
}

// input returns inline markup, or fetches url when markup is empty.
func (e *Extractor) input(ctx context.Context, html, url string) ([]byte, error) {
	switch {
	case html != "":
		return []byte(html), nil
	case url != "":
		return e.Fetch(ctx, url)
	default:
		return nil, ErrEmptyInput
	}
}

// --- query ---

// QueryRequest is the payload of domselect_query and POST /query.
type QueryRequest struct {
	HTML     string `json:"html,omitempty"`
	URL      string `json:"url,omitempty"`
	Selector string `json:"selector"`
	Limit    int    `json:"limit,omitempty"`
}

// QueryResponse lists the matches of a query.
type QueryResponse struct {
	Count   int     `json:"count"`
	Matches []Match `json:"matches"`
}

func (e *Extractor) queryEndpoint(ctx context.Context, req any) (any, error) {
	r := req.(*QueryRequest)
	raw, err := e.input(ctx, r.HTML, r.URL)
	if err != nil {
		return nil, err
	}
	matches, err := e.Query(ctx, raw, r.Selector, r.Limit)
	if err != nil {
		return nil, err
	}
	return &QueryResponse{Count: len(matches), Matches: matches}, nil
}

func (e *Extractor) registerQueryTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domselect_query",
		Description: "Select elements from an HTML document with a CSS selector (tag, .class, #id, [attr=val], descendant, child, groups).",
		InputSchema: inputSchema(map[string]any{
			"html":     map[string]any{"type": "string", "description": "HTML markup to query"},
			"url":      map[string]any{"type": "string", "description": "Page to fetch when html is empty"},
			"selector": map[string]any{"type": "string", "description": "CSS selector"},
			"limit":    map[string]any{"type": "integer", "description": "Maximum number of matches (0 = all)"},
		}, []string{"selector"}),
	}
	kit.RegisterMCPTool(srv, tool, e.endpoint("domselect_query", e.queryEndpoint), kit.DecodeJSON[QueryRequest]())
}

// --- extract ---

// ExtractRequest is the payload of domselect_extract and POST /extract.
type ExtractRequest struct {
	HTML string `json:"html,omitempty"`
	URL  string `json:"url,omitempty"`
	Options
}

func (e *Extractor) extractEndpoint(ctx context.Context, req any) (any, error) {
	r := req.(*ExtractRequest)
	raw, err := e.input(ctx, r.HTML, r.URL)
	if err != nil {
		return nil, err
	}
	if r.Source == "" && r.HTML == "" {
		r.Source = r.URL
	}
	return e.Extract(ctx, raw, r.Options)
}

func (e *Extractor) registerExtractTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domselect_extract",
		Description: "Extract the main content of an HTML document as clean text, with optional sanitized HTML and Markdown.",
		InputSchema: inputSchema(map[string]any{
			"html":         map[string]any{"type": "string", "description": "HTML markup"},
			"url":          map[string]any{"type": "string", "description": "Page to fetch when html is empty"},
			"mode":         map[string]any{"type": "string", "enum": []string{"auto", "css", "density", "rule"}},
			"selectors":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"rule":         map[string]any{"type": "string", "description": "Configured rule name for mode=rule"},
			"min_text_len": map[string]any{"type": "integer"},
			"markdown":     map[string]any{"type": "boolean"},
			"sanitize":     map[string]any{"type": "boolean"},
		}, nil),
	}
	kit.RegisterMCPTool(srv, tool, e.endpoint("domselect_extract", e.extractEndpoint), kit.DecodeJSON[ExtractRequest]())
}

// --- rules ---

func (e *Extractor) rulesEndpoint(_ context.Context, _ any) (any, error) {
	rules := e.Rules()
	if rules == nil {
		rules = []Rule{}
	}
	return map[string]any{"rules": rules}, nil
}

func (e *Extractor) registerRulesTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domselect_rules",
		Description: "List the configured extraction rules.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}
	decode := func(_ *mcp.CallToolRequest) (*kit.MCPDecodeResult, error) {
		return &kit.MCPDecodeResult{Request: nil}, nil
	}
	kit.RegisterMCPTool(srv, tool, e.endpoint("domselect_rules", e.rulesEndpoint), decode)
}

// --- history ---

// HistoryRequest is the payload of domselect_history and GET /history.
type HistoryRequest struct {
	ID     string `json:"id,omitempty"`
	Source string `json:"source,omitempty"`
	Limit  int    `json:"limit,omitempty"`
}

// HistoryResponse lists recorded extractions.
type HistoryResponse struct {
	Count   int            `json:"count"`
	Records []store.Record `json:"records"`
}

func (e *Extractor) historyEndpoint(ctx context.Context, req any) (any, error) {
	r := req.(*HistoryRequest)
	if r.ID != "" {
		rec, err := e.HistoryRecord(ctx, r.ID)
		if err != nil {
			return nil, err
		}
		return &HistoryResponse{Count: 1, Records: []store.Record{*rec}}, nil
	}
	recs, err := e.History(ctx, r.Source, r.Limit)
	if err != nil {
		return nil, err
	}
	return &HistoryResponse{Count: len(recs), Records: recs}, nil
}

func (e *Extractor) registerHistoryTool(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "domselect_history",
		Description: "List past extractions, newest first, or fetch one by id.",
		InputSchema: inputSchema(map[string]any{
			"id":     map[string]any{"type": "string", "description": "Record ID"},
			"source": map[string]any{"type": "string", "description": "Only records for this source"},
			"limit":  map[string]any{"type": "integer", "description": "Maximum number of records (default 50)"},
		}, nil),
	}
	kit.RegisterMCPTool(srv, tool, e.endpoint("domselect_history", e.historyEndpoint), kit.DecodeJSON[HistoryRequest]())
}
