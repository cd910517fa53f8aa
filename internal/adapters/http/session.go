// Package http implements the query transport over HTTP/2.
//
// A query is a POST of the encoded message to {base}/v1/query/{endpoint}.
// The response body carries the replies as a sequence of frames, each
// written and flushed as soon as the responder produces it.
package http

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/net/http2"

	"github.com/bft-labs/tickquery/internal/domain"
	"github.com/bft-labs/tickquery/internal/ports"
)

const (
	queryPath   = "/v1/query/"
	contentType = "application/x-protobuf"
	replyType   = "application/x-tickquery-replies"
)

// ErrClosed is returned when querying through a closed session.
var ErrClosed = errors.New("http: session closed")

// NewClient returns an HTTP/2 client for baseURL. Plain http:// URLs use
// prior-knowledge h2c; https:// URLs negotiate HTTP/2 over TLS.
func NewClient(baseURL string) (*http.Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse service url: %w", err)
	}

	switch u.Scheme {
	case "https":
		return &http.Client{Transport: &http2.Transport{
			TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		}}, nil
	case "http":
		return &http.Client{Transport: &http2.Transport{
			AllowHTTP: true,
			DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, network, addr)
			},
		}}, nil
	default:
		return nil, fmt.Errorf("unsupported service url scheme %q", u.Scheme)
	}
}

// Session implements ports.Session against one service URL.
type Session struct {
	baseURL string
	client  ports.HTTPClient
	logger  ports.Logger

	mu     sync.Mutex
	closed bool
}

// NewSession creates a session. A nil client uses NewClient(baseURL).
func NewSession(baseURL string, client ports.HTTPClient, logger ports.Logger) (*Session, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("service url is required")
	}
	if client == nil {
		c, err := NewClient(baseURL)
		if err != nil {
			return nil, err
		}
		client = c
	}

	return &Session{
		baseURL: baseURL,
		client:  client,
		logger:  logger,
	}, nil
}

// Querier binds a querier to endpoint.
func (s *Session) Querier(_ context.Context, endpoint string) (ports.Querier, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("http: endpoint is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	return &querier{
		session:  s,
		endpoint: endpoint,
		url:      s.baseURL + queryPath + url.PathEscape(endpoint),
	}, nil
}

// Close releases idle connections. Streams already open keep working.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if c, ok := s.client.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
	return nil
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type querier struct {
	session  *Session
	endpoint string
	url      string
}

func (q *querier) Endpoint() string { return q.endpoint }

func (q *querier) Close() error { return nil }

// Query posts payload and returns the streamed replies.
// The stream stays bound to ctx for as long as it is read.
func (q *querier) Query(ctx context.Context, payload []byte) (ports.ReplyStream, error) {
	if q.session.isClosed() {
		return nil, ErrClosed
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", replyType)

	resp, err := q.session.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}

	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	q.session.logger.Debug("reply stream opened",
		ports.String("endpoint", q.endpoint),
		ports.String("proto", resp.Proto),
	)

	return &stream{body: resp.Body, reader: bufio.NewReader(resp.Body)}, nil
}

type stream struct {
	body   io.ReadCloser
	reader *bufio.Reader

	once sync.Once
	err  error
}

func (s *stream) Next(ctx context.Context) (domain.Reply, error) {
	if err := ctx.Err(); err != nil {
		return domain.Reply{}, err
	}
	return readFrame(s.reader)
}

func (s *stream) Close() error {
	s.once.Do(func() {
		s.err = s.body.Close()
	})
	return s.err
}
