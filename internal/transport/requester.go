package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/nao1215/reqprof/internal/log"
	"github.com/nao1215/reqprof/internal/model"
)

const (
	// DefaultTimeout bounds one request from dial to the last byte.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResponseSize is the largest response Do reads (100 MiB).
	DefaultMaxResponseSize int64 = 100 << 20
)

// Dialer opens network connections. *net.Dialer and *tor.Client implement it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// Requester issues raw GET requests. It is safe for concurrent use; every
// call to Do opens and closes its own connection.
type Requester struct {
	dialer          Dialer
	tlsConfig       *tls.Config
	timeout         time.Duration
	maxResponseSize int64
	headerNames     []string
	headers         map[string]string
	logger          *slog.Logger
}

// Option configures a Requester.
type Option func(*Requester)

// WithDialer sets the dialer used for every connection.
func WithDialer(d Dialer) Option {
	return func(r *Requester) {
		if d != nil {
			r.dialer = d
		}
	}
}

// WithTLSConfig sets the TLS configuration template. ServerName is always
// overwritten with the target hostname.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(r *Requester) {
		if cfg != nil {
			r.tlsConfig = cfg
		}
	}
}

// WithTimeout sets the per-request timeout. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(r *Requester) {
		if timeout > 0 {
			r.timeout = timeout
		}
	}
}

// WithMaxResponseSize limits how many bytes Do reads. Non-positive values
// are ignored.
func WithMaxResponseSize(size int64) Option {
	return func(r *Requester) {
		if size > 0 {
			r.maxResponseSize = size
		}
	}
}

// WithHeaders adds request headers, written in name order after Host.
// Host and Connection cannot be overridden and are skipped.
func WithHeaders(headers map[string]string) Option {
	return func(r *Requester) {
		for name, value := range headers {
			switch strings.ToLower(name) {
			case "host", "connection":
				continue
			}
			r.headers[name] = value
		}
		r.headerNames = r.headerNames[:0]
		for name := range r.headers {
			r.headerNames = append(r.headerNames, name)
		}
		slices.Sort(r.headerNames)
	}
}

// WithLogger sets the logger for per-request debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Requester) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRequester creates a Requester that dials directly with a net.Dialer
// unless WithDialer says otherwise.
func NewRequester(opts ...Option) *Requester {
	r := &Requester{
		dialer:          &net.Dialer{},
		tlsConfig:       &tls.Config{MinVersion: tls.VersionTLS12},
		timeout:         DefaultTimeout,
		maxResponseSize: DefaultMaxResponseSize,
		headers:         make(map[string]string),
		logger:          log.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Timeout returns the per-request timeout.
func (r *Requester) Timeout() time.Duration {
	return r.timeout
}

// Do sends one GET request for u and returns the full response.
//
// A response is returned for any well-formed status line, including non-200
// codes. Connection failures wrap ErrConnect, an unparsable status line
// wraps ErrMalformedResponse and a missed deadline wraps ErrTimeout.
func (r *Requester) Do(ctx context.Context, u model.CanonicalURL) (*model.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	conn, err := r.connect(ctx, u)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// Unblock reads and writes when ctx is cancelled before the deadline.
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrConnect, u.Address(), err)
		}
	}

	request := r.buildRequest(u)
	r.logger.Debug("sending request",
		slog.String("address", u.Address()),
		slog.Bool("secure", u.IsSecure),
		slog.String("path", u.Path),
		log.HeadersAttr(r.headers),
	)

	if _, err := io.WriteString(conn, request); err != nil {
		return nil, r.ioError(ctx, "write request", err)
	}

	raw, err := r.readAll(conn)
	if err != nil {
		return nil, r.ioError(ctx, "read response", err)
	}

	code, err := ParseStatusLine(raw)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("received response",
		slog.String("address", u.Address()),
		slog.Int("status", int(code)),
		slog.Int("bytes", len(raw)),
	)
	return &model.Response{StatusCode: code, Raw: raw}, nil
}

// connect dials the target and performs the TLS handshake for secure URLs.
func (r *Requester) connect(ctx context.Context, u model.CanonicalURL) (net.Conn, error) {
	conn, err := r.dialer.DialContext(ctx, "tcp", u.Address())
	if err != nil {
		return nil, r.ioError(ctx, "dial "+u.Address(), err)
	}
	if !u.IsSecure {
		return conn, nil
	}

	cfg := r.tlsConfig.Clone()
	cfg.ServerName = u.Hostname
	tlsConn := tls.Client(conn, cfg)
	if err := tlsConn.HandshakeContext(ctx); err != nil {
		conn.Close()
		return nil, r.ioError(ctx, "TLS handshake with "+u.Hostname, err)
	}
	return tlsConn, nil
}

// buildRequest renders the request bytes. Host carries the hostname only.
func (r *Requester) buildRequest(u model.CanonicalURL) string {
	var b strings.Builder
	b.WriteString("GET ")
	b.WriteString(u.Path)
	b.WriteString(" HTTP/1.1\r\nHost: ")
	b.WriteString(u.Hostname)
	b.WriteString("\r\n")
	for _, name := range r.headerNames {
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(r.headers[name])
		b.WriteString("\r\n")
	}
	b.WriteString("Connection: close\r\n\r\n")
	return b.String()
}

// readAll reads until EOF or until more than maxResponseSize bytes arrived.
func (r *Requester) readAll(conn net.Conn) ([]byte, error) {
	raw, err := io.ReadAll(io.LimitReader(conn, r.maxResponseSize+1))
	if err != nil {
		// Peers that close a TLS stream without close_notify still
		// delivered a complete response.
		if !errors.Is(err, io.ErrUnexpectedEOF) || len(raw) == 0 {
			return nil, err
		}
	}
	if int64(len(raw)) > r.maxResponseSize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrResponseTooLarge, r.maxResponseSize)
	}
	return raw, nil
}

func (r *Requester) ioError(ctx context.Context, op string, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%s: %w", op, context.Canceled)
	}
	if ctx.Err() != nil || errors.Is(err, os.ErrDeadlineExceeded) {
		return fmt.Errorf("%w: %s: %w", ErrTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %w", ErrConnect, op, err)
}

// httpVersionPrefix starts every valid status line.
var httpVersionPrefix = []byte("HTTP/")

// ParseStatusLine extracts the status code from the first line of raw.
// The line must look like "HTTP/<version> <three digits>[ reason]".
func ParseStatusLine(raw []byte) (uint16, error) {
	line, _, _ := bytes.Cut(raw, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))

	if !bytes.HasPrefix(line, httpVersionPrefix) {
		return 0, fmt.Errorf("%w: missing HTTP version in %q", ErrMalformedResponse, truncate(line))
	}
	_, rest, found := bytes.Cut(line, []byte(" "))
	if !found || len(rest) < 3 || (len(rest) > 3 && rest[3] != ' ') {
		return 0, fmt.Errorf("%w: no status code in %q", ErrMalformedResponse, truncate(line))
	}

	var code uint16
	for _, c := range rest[:3] {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: no status code in %q", ErrMalformedResponse, truncate(line))
		}
		code = code*10 + uint16(c-'0')
	}
	return code, nil
}

// truncate shortens b for use in error messages.
func truncate(b []byte) []byte {
	const limit = 64
	if len(b) > limit {
		return b[:limit]
	}
	return b
}
