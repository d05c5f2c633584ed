package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/hazyhaar/domselect/fetch"
	"github.com/hazyhaar/domselect/kit"
	"github.com/hazyhaar/domselect/selector"
	"github.com/hazyhaar/domselect/store"
)

// Handler returns an HTTP handler exposing the same endpoints as the MCP
// tools:
//
//	POST /query    QueryRequest   -> QueryResponse
//	POST /extract  ExtractRequest -> Result
//	GET  /rules                   -> {"rules": [...]}
//	GET  /history?source=&limit=  -> HistoryResponse
//	GET  /history/{id}            -> HistoryResponse
//	GET  /health
func (e *Extractor) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := kit.WithTransport(r.Context(), "http")
			ctx = kit.WithRequestID(ctx, middleware.GetReqID(r.Context()))
			ctx = kit.WithRemoteAddr(ctx, r.RemoteAddr)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Post("/query", e.serve("query", e.queryEndpoint, func() any { return &QueryRequest{} }))
	r.Post("/extract", e.serve("extract", e.extractEndpoint, func() any { return &ExtractRequest{} }))
	r.Get("/rules", e.serve("rules", e.rulesEndpoint, nil))

	history := e.endpoint("history", e.historyEndpoint)
	r.Get("/history", func(w http.ResponseWriter, r *http.Request) {
		req := &HistoryRequest{Source: r.URL.Query().Get("source")}
		if l := r.URL.Query().Get("limit"); l != "" {
			n, err := strconv.Atoi(l)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", l))
				return
			}
			req.Limit = n
		}
		respond(w, r, history, req)
	})
	r.Get("/history/{id}", func(w http.ResponseWriter, r *http.Request) {
		respond(w, r, history, &HistoryRequest{ID: chi.URLParam(r, "id")})
	})
	return r
}

// serve adapts an endpoint to HTTP. newReq allocates the JSON body target;
// nil means the endpoint takes no body.
func (e *Extractor) serve(name string, ep kit.Endpoint, newReq func() any) http.HandlerFunc {
	ep = e.endpoint(name, ep)
	return func(w http.ResponseWriter, r *http.Request) {
		var req any
		if newReq != nil {
			req = newReq()
			body := http.MaxBytesReader(w, r.Body, e.cfg.MaxDocumentSize+64*1024)
			if err := json.NewDecoder(body).Decode(req); err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					writeError(w, http.StatusRequestEntityTooLarge, ErrTooLarge)
					return
				}
				writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
				return
			}
		}
		respond(w, r, ep, req)
	}
}

func respond(w http.ResponseWriter, r *http.Request, ep kit.Endpoint, req any) {
	resp, err := ep(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// apiHeaders are set on every response. The API only serves JSON, so the
// content policy allows nothing.
var apiHeaders = map[string]string{
	"X-Content-Type-Options":  "nosniff",
	"X-Frame-Options":         "DENY",
	"Referrer-Policy":         "no-referrer",
	"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for k, v := range apiHeaders {
			w.Header().Set(k, v)
		}
		next.ServeHTTP(w, r)
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrEmptyInput), errors.Is(err, selector.ErrSyntax), errors.Is(err, ErrUnknownMode),
		errors.Is(err, ErrNoFetcher), errors.Is(err, fetch.ErrScheme), errors.Is(err, ErrNoStore):
		return http.StatusBadRequest
	case errors.Is(err, fetch.ErrPrivate):
		return http.StatusForbidden
	case errors.Is(err, fetch.ErrStatus), errors.Is(err, fetch.ErrNotHTML), errors.Is(err, fetch.ErrTooLarge):
		return http.StatusBadGateway
	case errors.Is(err, ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrNoMatch), errors.Is(err, ErrRuleNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
