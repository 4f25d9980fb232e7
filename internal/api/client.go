// Package api is the REST client for the billing backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/ycf/billing-portal/internal/errs"
)

const (
	// DefaultTimeout bounds a single request.
	DefaultTimeout = 10 * time.Second

	maxJSONBody   = 4 << 20
	maxBinaryBody = 64 << 20
)

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	msg := e.Message()
	if msg == "" {
		return fmt.Sprintf("http error: status=%d", e.StatusCode)
	}
	return fmt.Sprintf("http error: status=%d msg=%s", e.StatusCode, msg)
}

// Message extracts the server's message field, falling back to the raw body.
func (e *HTTPError) Message() string {
	if gjson.Valid(e.Body) {
		for _, k := range []string{"message", "error", "msg"} {
			if r := gjson.Get(e.Body, k); r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
	}
	return e.Body
}

// Is maps status codes onto the shared sentinels.
func (e *HTTPError) Is(target error) bool {
	switch target {
	case errs.ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case errs.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// Client talks to the billing API. It is safe for concurrent use; the bearer
// token can be swapped at any time with SetAuthToken.
type Client struct {
	http    *http.Client
	baseURL string
	log     *zap.Logger

	mu    sync.RWMutex
	token string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client (e.g. for tests).
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// New returns a client for baseURL.
func New(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	u, err := url.ParseRequestURI(strings.TrimSpace(baseURL))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", baseURL)
	}
	c := &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(u.String(), "/"),
		log:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// BaseURL returns the API origin.
func (c *Client) BaseURL() string { return c.baseURL }

// SetAuthToken sets the bearer token; an empty token removes the header.
func (c *Client) SetAuthToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
}

// AuthToken returns the current bearer token.
func (c *Client) AuthToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// do sends one request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, in any, accept string, limit int64) ([]byte, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("api: marshal json: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("api: new request: %w", err)
	}
	req.Header.Set("Accept", accept)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	reqID := uuid.Must(uuid.NewV4()).String()
	req.Header.Set("X-Request-ID", reqID)
	if tok := c.AuthToken(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("api request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", reqID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	c.log.Debug("api",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("dur", time.Since(start)),
		zap.String("request_id", reqID),
	)
	if err != nil {
		return nil, fmt.Errorf("api: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return raw, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	raw, err := c.do(ctx, method, path, in, "application/json", maxJSONBody)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("api: unmarshal %s %s: %w", method, path, err)
	}
	return nil
}

// unwrap returns the object stored under key when the response wraps the
// record ({"pet": {...}}), or the whole body otherwise.
func unwrap(raw []byte, key string) []byte {
	if r := gjson.GetBytes(raw, key); r.IsObject() {
		return []byte(r.Raw)
	}
	return raw
}

var errEmptyToken = errors.New("api: login response has no token")
