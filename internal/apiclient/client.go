// Package apiclient talks to the marketplace REST API on behalf of one
// browser session.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseBytes = 4 << 20

type Option func(*Client)

// WithTransport sets the RoundTripper underneath the bearer layer.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.base = rt }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client is safe for concurrent use.
type Client struct {
	baseURL string
	timeout time.Duration
	base    http.RoundTripper
	http    *http.Client
	public  *http.Client
	logger  *slog.Logger
}

// New returns an unauthenticated client. Every call is bounded by timeout.
func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		base:    http.DefaultTransport,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = &http.Client{Transport: c.base, Timeout: timeout}
	c.public = c.http
	return c
}

// WithAuth returns a copy of c whose requests carry the token from tokens.
// onUnauthorized runs before the call returns whenever the API answers 401
// to a request that carried a token. Login and Register never carry one.
func (c *Client) WithAuth(tokens TokenSource, onUnauthorized UnauthorizedFunc) *Client {
	cp := *c
	cp.http = &http.Client{
		Transport: &bearerTransport{base: c.base, tokens: tokens, onUnauthorized: onUnauthorized},
		Timeout:   c.timeout,
	}
	return &cp
}

func (c *Client) url(path string, query url.Values) string {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	return c.send(ctx, c.http, method, path, query, in, out)
}

// doPublic is do without the bearer layer.
func (c *Client) doPublic(ctx context.Context, method, path string, in, out any) error {
	return c.send(ctx, c.public, method, path, nil, in, out)
}

// send issues a JSON request and decodes a JSON response into out. Non-2xx
// responses become *APIError; failures to get a response at all match
// ErrUnavailable.
func (c *Client) send(ctx context.Context, hc *http.Client, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", path, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path, query), body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		c.logger.Warn("api request failed", "method", method, "path", path, "error", err)
		return &transportError{op: method + " " + path, err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return &transportError{op: method + " " + path, err: err}
	}

	c.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode >= 400 {
		return newAPIError(resp.StatusCode, data)
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", path, err)
	}
	return nil
}

// Forward relays a request to path under the API base URL and returns the
// raw response. The caller must close the body. Only transport failures
// are returned as errors; API error statuses are left in the response.
func (c *Client) Forward(ctx context.Context, method, path, rawQuery string, header http.Header, body io.Reader) (*http.Response, error) {
	u := c.baseURL + path
	if rawQuery != "" {
		u += "?" + rawQuery
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	for _, h := range []string{"Accept", "Content-Type"} {
		if v := header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("api forward failed", "method", method, "path", path, "error", err)
		return nil, &transportError{op: method + " " + path, err: err}
	}
	return resp, nil
}
