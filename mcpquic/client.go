package mcpquic

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/quic-go/quic-go"
)

// ErrToolFailed wraps the message of a tool result flagged as an error.
var ErrToolFailed = errors.New("mcpquic: tool failed")

const handshakeTimeout = 10 * time.Second

// Client talks MCP to a domselect server over a single QUIC stream.
// It is not safe for concurrent Connect/Close; calls on a connected
// client may run concurrently.
type Client struct {
	addr   string
	tlsCfg *tls.Config

	conn    *quic.Conn
	stream  *quic.Stream
	session *mcp.ClientSession
	closed  bool
}

// NewClient returns an unconnected client. A nil tlsCfg verifies the server
// certificate.
func NewClient(addr string, tlsCfg *tls.Config) *Client {
	if tlsCfg == nil {
		tlsCfg = ClientTLSConfig(false)
	}
	return &Client{addr: addr, tlsCfg: tlsCfg}
}

// Connect opens the QUIC stream and runs the MCP initialize handshake.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed {
		return ErrConnectionClosed
	}
	if err := c.openStream(ctx); err != nil {
		return err
	}

	impl := &mcp.Implementation{Name: "domselect-quic-client", Version: "1.0.0"}
	transport := &mcp.IOTransport{
		Reader: io.NopCloser(c.stream),
		Writer: streamWriteCloser{c.stream},
	}
	hctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()
	session, err := mcp.NewClient(impl, nil).Connect(hctx, transport, nil)
	if err != nil {
		c.closeTransport()
		return fmt.Errorf("mcp connect: %w", err)
	}
	c.session = session
	return nil
}

// openStream dials addr, checks the negotiated ALPN and announces the MCP
// protocol with the magic bytes.
func (c *Client) openStream(ctx context.Context) error {
	conn, err := quic.DialAddr(ctx, c.addr, c.tlsCfg, ProductionQUICConfig())
	if err != nil {
		return fmt.Errorf("quic dial %s: %w", c.addr, err)
	}
	fail := func(code quic.ApplicationErrorCode, msg string, err error) error {
		conn.CloseWithError(code, msg)
		return err
	}

	if alpn := conn.ConnectionState().TLS.NegotiatedProtocol; alpn != ALPNProtocolMCP {
		return fail(ConnErrorUnsupportedALPN, "bad ALPN", fmt.Errorf("%w: got %q", ErrUnsupportedALPN, alpn))
	}
	stream, err := conn.OpenStreamSync(ctx)
	if err != nil {
		return fail(ConnErrorProtocolViolation, "stream open failed", fmt.Errorf("open stream: %w", err))
	}
	if err := SendMagicBytes(stream); err != nil {
		stream.Close()
		return fail(ConnErrorProtocolViolation, "magic bytes failed", err)
	}
	c.conn, c.stream = conn, stream
	return nil
}

func (c *Client) sessionOrErr() (*mcp.ClientSession, error) {
	if c.closed {
		return nil, ErrConnectionClosed
	}
	if c.session == nil {
		return nil, ErrNotConnected
	}
	return c.session, nil
}

func (c *Client) ListTools(ctx context.Context) (*mcp.ListToolsResult, error) {
	s, err := c.sessionOrErr()
	if err != nil {
		return nil, err
	}
	return s.ListTools(ctx, nil)
}

func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (*mcp.CallToolResult, error) {
	s, err := c.sessionOrErr()
	if err != nil {
		return nil, err
	}
	return s.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
}

// CallJSON calls the tool with req encoded as its arguments and decodes the
// JSON text of the result into out. A result flagged as an error is
// returned as ErrToolFailed carrying the tool's message.
//
//	var resp extract.QueryResponse
//	err := c.CallJSON(ctx, "domselect_query", extract.QueryRequest{HTML: page, Selector: "h1"}, &resp)
func (c *Client) CallJSON(ctx context.Context, name string, req, out any) error {
	var args map[string]any
	if req != nil {
		raw, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("encode %s args: %w", name, err)
		}
		if err := json.Unmarshal(raw, &args); err != nil {
			return fmt.Errorf("encode %s args: %w", name, err)
		}
	}
	res, err := c.CallTool(ctx, name, args)
	if err != nil {
		return err
	}
	text := resultText(res)
	if res.IsError {
		return fmt.Errorf("%w: %s: %s", ErrToolFailed, name, text)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(text), out); err != nil {
		return fmt.Errorf("decode %s result: %w", name, err)
	}
	return nil
}

func resultText(res *mcp.CallToolResult) string {
	var b strings.Builder
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return b.String()
}

func (c *Client) Ping(ctx context.Context) error {
	s, err := c.sessionOrErr()
	if err != nil {
		return err
	}
	return s.Ping(ctx, nil)
}

// Close ends the session and the connection. It is idempotent.
func (c *Client) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	var errs []error
	if c.session != nil {
		errs = append(errs, c.session.Close())
	}
	errs = append(errs, c.closeTransport())
	return errors.Join(errs...)
}

func (c *Client) closeTransport() error {
	if c.stream != nil {
		c.stream.Close()
	}
	if c.conn == nil {
		return nil
	}
	return c.conn.CloseWithError(ConnErrorNoError, "client closing")
}
