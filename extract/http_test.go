package extract

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hazyhaar/domselect/fetch"
)

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHTTP_Health(t *testing.T) {
	h := newTestExtractor(Config{}).Handler()
	w := doJSON(t, h, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"ok"`) {
		t.Errorf("body: %s", w.Body)
	}
	for k, v := range apiHeaders {
		if got := w.Header().Get(k); got != v {
			t.Errorf("header %s: got %q, want %q", k, got, v)
		}
	}
}

func TestHTTP_Query(t *testing.T) {
	h := newTestExtractor(Config{}).Handler()
	w := doJSON(t, h, http.MethodPost, "/query", QueryRequest{HTML: string(testHTML), Selector: "article p", Limit: 1})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", w.Code, w.Body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: %q", ct)
	}
	var resp QueryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || !strings.HasPrefix(resp.Matches[0].Text, "This is the main content") {
		t.Errorf("response: %+v", resp)
	}
}

func TestHTTP_LogsRequestContext(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	h := newTestExtractor(Config{Logger: logger}).Handler()

	w := doJSON(t, h, http.MethodPost, "/query", QueryRequest{HTML: "<p>x</p>", Selector: "p"})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", w.Code, w.Body)
	}
	out := buf.String()
	// httptest requests come from 192.0.2.1:1234.
	for _, want := range []string{"endpoint=query", "transport=http", "remote_addr=192.0.2.1:1234", "request_id="} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q: %s", want, out)
		}
	}
}

func TestHTTP_Extract(t *testing.T) {
	h := newTestExtractor(Config{}).Handler()
	w := doJSON(t, h, http.MethodPost, "/extract", map[string]any{
		"html":      string(testHTML),
		"mode":      "css",
		"selectors": []string{"main"},
		"sanitize":  true,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", w.Code, w.Body)
	}
	var res Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.SafeHTML == "" || !strings.Contains(res.Text, "Second paragraph") {
		t.Errorf("result: %+v", res)
	}
}

func TestHTTP_Rules(t *testing.T) {
	h := newTestExtractor(Config{}).Handler()
	w := doJSON(t, h, http.MethodGet, "/rules", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d", w.Code)
	}
	if got := strings.TrimSpace(w.Body.String()); got != `{"rules":[]}` {
		t.Errorf("body: %s", got)
	}
}

func TestHTTP_Errors(t *testing.T) {
	h := newTestExtractor(Config{MaxDocumentSize: 1024}).Handler()
	tests := []struct {
		name string
		path string
		body any
		want int
	}{
		{"bad json", "/query", "not an object", http.StatusBadRequest},
		{"empty html", "/query", QueryRequest{Selector: "p"}, http.StatusBadRequest},
		{"bad selector", "/query", QueryRequest{HTML: "<p>x</p>", Selector: "[x"}, http.StatusBadRequest},
		{"unknown mode", "/extract", map[string]any{"html": "<p>x</p>", "mode": "magic"}, http.StatusBadRequest},
		{"no match", "/extract", map[string]any{"html": "<p>x</p>", "mode": "css", "selectors": []string{"article"}}, http.StatusNotFound},
		{"unknown rule", "/extract", map[string]any{"html": "<p>x</p>", "mode": "rule", "rule": "x"}, http.StatusNotFound},
		{"too large", "/extract", map[string]any{"html": strings.Repeat("a", 2048)}, http.StatusRequestEntityTooLarge},
		{"body too large", "/extract", map[string]any{"html": strings.Repeat("a", 128*1024)}, http.StatusRequestEntityTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doJSON(t, h, http.MethodPost, tt.path, tt.body)
			if w.Code != tt.want {
				t.Errorf("status: got %d, want %d: %s", w.Code, tt.want, w.Body)
			}
			var body map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil || body["error"] == "" {
				t.Errorf("error body: %s", w.Body)
			}
		})
	}
}

func TestHTTP_MethodNotAllowed(t *testing.T) {
	h := newTestExtractor(Config{}).Handler()
	w := doJSON(t, h, http.MethodGet, "/extract", nil)
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status: got %d", w.Code)
	}
}

func TestHTTP_ExtractURL(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/post" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write(testHTML)
	}))
	defer page.Close()

	h := New(Config{}, WithFetcher(fetch.NewHTTP(fetch.HTTPConfig{}))).Handler()

	w := doJSON(t, h, http.MethodPost, "/extract", map[string]any{
		"url":       page.URL + "/post",
		"mode":      "css",
		"selectors": []string{"article"},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status: got %d: %s", w.Code, w.Body)
	}
	var res Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	if res.Title != "Test Page" || !strings.Contains(res.Text, "Important Article") {
		t.Errorf("result: %+v", res)
	}

	w = doJSON(t, h, http.MethodPost, "/query", QueryRequest{URL: page.URL + "/gone", Selector: "p"})
	if w.Code != http.StatusBadGateway {
		t.Errorf("upstream 404: got %d", w.Code)
	}
	w = doJSON(t, h, http.MethodPost, "/query", QueryRequest{URL: "ftp://x", Selector: "p"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("bad scheme: got %d", w.Code)
	}
}
