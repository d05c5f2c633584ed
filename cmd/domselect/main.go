// Command domselect queries and extracts content from HTML documents.
//
// Usage:
//
//	domselect -file page.html -select "article p"          # print matches and exit
//	domselect -file page.html -mode auto -markdown         # extract main content
//	domselect -url https://example.com -browser -select h1 # render with Chrome, then query
//	domselect -config rules.yaml -file - -rule blog        # apply a named rule to stdin
//	domselect -config rules.yaml -http :8080 -db hist.db   # serve the HTTP API with history
//	domselect -mcp                                         # serve MCP over stdio
//	domselect -mcp-quic :9444                              # serve MCP over QUIC
package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hazyhaar/domselect/extract"
	"github.com/hazyhaar/domselect/fetch"
	"github.com/hazyhaar/domselect/mcpquic"
	"github.com/hazyhaar/domselect/store"
)

var errUsage = errors.New("no input or server mode given")

type options struct {
	configPath string
	file       string
	url        string
	browser    bool
	chromeURL  string
	selector   string
	limit      int
	mode       string
	selectors  string
	rule       string
	markdown   bool
	sanitize   bool
	stdioMCP   bool
	quicAddr   string
	tlsCert    string
	tlsKey     string
	httpAddr   string
	dbPath     string
	allowPriv  bool
}

func main() {
	var o options
	flag.StringVar(&o.configPath, "config", "", "path to YAML config with extraction rules")
	flag.StringVar(&o.file, "file", "", "HTML file to read (- for stdin)")
	flag.StringVar(&o.url, "url", "", "page to fetch instead of -file")
	flag.BoolVar(&o.browser, "browser", false, "fetch pages with headless Chrome (stealth)")
	flag.StringVar(&o.chromeURL, "chrome-url", "", "DevTools WebSocket URL of a running Chrome for -browser")
	flag.StringVar(&o.selector, "select", "", "CSS selector to query (prints matches)")
	flag.IntVar(&o.limit, "limit", 0, "max query matches (0 = all)")
	flag.StringVar(&o.mode, "mode", "auto", "extraction mode: auto, css, density")
	flag.StringVar(&o.selectors, "selectors", "", "comma-separated selectors for css/auto extraction")
	flag.StringVar(&o.rule, "rule", "", "named rule from -config")
	flag.BoolVar(&o.markdown, "markdown", false, "include Markdown in extraction output")
	flag.BoolVar(&o.sanitize, "sanitize", false, "include sanitized HTML in extraction output")
	flag.BoolVar(&o.stdioMCP, "mcp", false, "serve MCP over stdio")
	flag.StringVar(&o.quicAddr, "mcp-quic", "", "serve MCP over QUIC on this address")
	flag.StringVar(&o.tlsCert, "tls-cert", "", "TLS certificate for -mcp-quic (self-signed if empty)")
	flag.StringVar(&o.tlsKey, "tls-key", "", "TLS key for -mcp-quic")
	flag.StringVar(&o.httpAddr, "http", "", "serve the HTTP API on this address")
	flag.StringVar(&o.dbPath, "db", "", "SQLite file recording extraction history")
	flag.BoolVar(&o.allowPriv, "allow-private", false, "allow fetching loopback and private addresses")
	logLevel := flag.String("log-level", "info", "log level: debug, info, warn, error")
	flag.Parse()

	var level slog.Level
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, logger, o)
	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stderr, "usage: domselect -file <path> | -url <url> [-select <css>] | -mcp | -mcp-quic <addr> | -http <addr>")
		os.Exit(2)
	}
	if err != nil {
		logger.Error("domselect: fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *slog.Logger, o options) error {
	cfg := &extract.Config{}
	if o.configPath != "" {
		var err error
		if cfg, err = extract.LoadConfigFile(o.configPath); err != nil {
			return err
		}
	}
	cfg.Logger = logger

	var fetcher fetch.Fetcher = fetch.NewHTTP(fetch.HTTPConfig{
		MaxBytes:     cfg.MaxDocumentSize,
		BlockPrivate: !o.allowPriv,
		Logger:       logger,
	})
	if o.browser {
		b := fetch.NewBrowser(fetch.BrowserConfig{
			RemoteURL:        o.chromeURL,
			Stealth:          true,
			ResourceBlocking: []string{"images", "fonts", "media"},
			BlockPrivate:     !o.allowPriv,
			Logger:           logger,
		})
		defer b.Close()
		fetcher = b
	}
	exOpts := []extract.Option{extract.WithFetcher(fetcher)}
	if o.dbPath != "" {
		st, err := store.Open(o.dbPath, store.Config{Logger: logger})
		if err != nil {
			return err
		}
		defer st.Close()
		exOpts = append(exOpts, extract.WithStore(st))
	}
	ex := extract.New(*cfg, exOpts...)

	// One-shot: query or extract a file or URL.
	if o.file != "" || o.url != "" {
		raw, err := readInput(ctx, ex, o)
		if err != nil {
			return err
		}
		if o.selector != "" {
			matches, err := ex.Query(ctx, raw, o.selector, o.limit)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			return printJSON(matches)
		}
		opts := extractOptions(o)
		opts.Source = o.url
		res, err := ex.Extract(ctx, raw, opts)
		if err != nil {
			return fmt.Errorf("extract: %w", err)
		}
		return printJSON(res)
	}

	if o.stdioMCP {
		srv := newMCPServer(ex)
		logger.Info("domselect: serving MCP on stdio")
		return srv.Run(ctx, &mcp.StdioTransport{})
	}

	if o.httpAddr == "" && o.quicAddr == "" {
		return errUsage
	}

	errc := make(chan error, 2)
	if o.quicAddr != "" {
		l, err := listenQUIC(o, newMCPServer(ex), logger)
		if err != nil {
			return err
		}
		defer l.Close()
		go func() { errc <- l.Serve(ctx) }()
	}

	var srv *http.Server
	if o.httpAddr != "" {
		srv = &http.Server{
			Addr:              o.httpAddr,
			Handler:           ex.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("domselect: HTTP listening", "addr", o.httpAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-errc:
		if err != nil && ctx.Err() == nil {
			return err
		}
	}
	logger.Info("domselect: shutting down")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("domselect: shutdown", "error", err)
		}
	}
	return nil
}

func newMCPServer(ex *extract.Extractor) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "domselect", Version: "1.0.0"}, nil)
	ex.RegisterMCP(srv)
	return srv
}

func listenQUIC(o options, srv *mcp.Server, logger *slog.Logger) (*mcpquic.Listener, error) {
	var (
		tlsCfg *tls.Config
		err    error
	)
	if o.tlsCert != "" && o.tlsKey != "" {
		tlsCfg, err = mcpquic.ServerTLSConfig(o.tlsCert, o.tlsKey)
	} else {
		tlsCfg, err = mcpquic.SelfSignedTLSConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("mcp quic tls: %w", err)
	}
	return mcpquic.NewListener(o.quicAddr, tlsCfg, srv, logger)
}

func extractOptions(o options) extract.Options {
	opts := extract.Options{
		Mode:     o.mode,
		Markdown: o.markdown,
		Sanitize: o.sanitize,
	}
	if o.rule != "" {
		opts.Mode = "rule"
		opts.Rule = o.rule
	}
	for _, s := range strings.Split(o.selectors, ",") {
		if s = strings.TrimSpace(s); s != "" {
			opts.Selectors = append(opts.Selectors, s)
		}
	}
	return opts
}

func readInput(ctx context.Context, ex *extract.Extractor, o options) ([]byte, error) {
	switch {
	case o.url != "":
		return ex.Fetch(ctx, o.url)
	case o.file == "-":
		return io.ReadAll(os.Stdin)
	default:
		return os.ReadFile(o.file)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
