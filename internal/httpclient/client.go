// Package httpclient fetches remote feed documents with a bounded body size
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pvpmeta/pvpmeta-server/internal/versions"
)

const (
	// DefaultTimeout bounds a whole request, body included
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize is the largest accepted body, enough for a full
	// game master export
	DefaultMaxBodySize int64 = 100 << 20
)

// ErrBodyTooLarge is returned when a body exceeds the configured limit
var ErrBodyTooLarge = errors.New("response body too large")

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks -source=client.go Client

// Client reads feed documents
type Client interface {
	// Get returns the body and headers of a 200 response
	Get(ctx context.Context, url string) (*Response, error)

	// Head returns the headers of a 200 response
	Head(ctx context.Context, url string) (http.Header, error)
}

// Response is a fully read 200 response
type Response struct {
	Body   []byte
	Header http.Header
}

// StatusError reports a response other than 200 OK
type StatusError struct {
	StatusCode int
	Status     string
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Status)
}

// HTTPClient implements Client on net/http
type HTTPClient struct {
	client      *http.Client
	maxBodySize int64
	userAgent   string
}

// Option configures an HTTPClient
type Option func(*HTTPClient)

// WithTimeout sets the per-request timeout. Zero keeps DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithMaxBodySize sets the body limit. Values below one keep the default.
func WithMaxBodySize(n int64) Option {
	return func(c *HTTPClient) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithTransport replaces the round tripper
func WithTransport(rt http.RoundTripper) Option {
	return func(c *HTTPClient) {
		c.client.Transport = rt
	}
}

// New creates an HTTPClient
func New(opts ...Option) *HTTPClient {
	c := &HTTPClient{
		client:      &http.Client{Timeout: DefaultTimeout},
		maxBodySize: DefaultMaxBodySize,
		userAgent:   "pvpmeta-server/" + versions.GetVersionInfo().Version,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserAgent returns the User-Agent header sent with every request
func (c *HTTPClient) UserAgent() string {
	return c.userAgent
}

func (c *HTTPClient) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, &StatusError{StatusCode: resp.StatusCode, Status: resp.Status, URL: url}
	}
	return resp, nil
}

// Head performs an HTTP HEAD request
func (c *HTTPClient) Head(ctx context.Context, url string) (http.Header, error) {
	resp, err := c.do(ctx, http.MethodHead, url)
	if err != nil {
		return nil, err
	}
	_ = resp.Body.Close()
	return resp.Header, nil
}

// Get performs an HTTP GET request and reads the whole body
func (c *HTTPClient) Get(ctx context.Context, url string) (*Response, error) {
	resp, err := c.do(ctx, http.MethodGet, url)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.ContentLength > c.maxBodySize {
		return nil, fmt.Errorf("%w: %d bytes announced, limit is %d", ErrBodyTooLarge, resp.ContentLength, c.maxBodySize)
	}

	// one extra byte tells an exact fit from an overflow
	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBodySize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > c.maxBodySize {
		return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, c.maxBodySize)
	}

	return &Response{Body: body, Header: resp.Header}, nil
}
