// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gemini is a typed client for the File Search REST API of the
// Gemini generative language service: stores, documents, ingestion
// operations and generateContent.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/gemini-file-search-tool/internal/httputil"
)

// DefaultBaseURL is the API root. Tests point clients at an httptest server
// with WithBaseURL instead.
const DefaultBaseURL = "https://generativelanguage.googleapis.com"

const apiVersion = "v1beta"

var (
	// ErrMissingCredentials is returned by NewClient when no API key is given.
	ErrMissingCredentials = errors.New("gemini: API key is required")

	// ErrNotFound matches any APIError with HTTP status 404.
	ErrNotFound = errors.New("gemini: not found")
)

// APIError is a non-2xx response from the service.
type APIError struct {
	Status  int
	Code    string
	Message string
	Method  string
	Path    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s: HTTP %d: %s", e.Method, e.Path, e.Status, msg)
}

// Is makes errors.Is(err, ErrNotFound) true for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// Client talks to the File Search API. Construct one with NewClient and
// pass it to the components that need it; call Close when done.
type Client struct {
	baseURL    string
	apiKey     string
	http       *http.Client
	log        *zap.Logger
	maxRetries int
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root. An empty value keeps the default.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithLogger sets the logger used for request traces.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMaxRetries sets the retry budget for transient failures.
func WithMaxRetries(n int) Option {
	return func(c *Client) { c.maxRetries = n }
}

// WithTimeout bounds each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// NewClient returns a client authenticated with apiKey.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrMissingCredentials
	}
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{},
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases idle connections held by the client.
func (c *Client) Close() {
	c.http.CloseIdleConnections()
}

// resourceURL builds the URL of an API resource path such as
// "fileSearchStores/abc" or "models/gemini-2.5-flash:generateContent".
func (c *Client) resourceURL(path string, query url.Values) string {
	u := c.baseURL + "/" + apiVersion + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// newJSONRequest builds a request whose body is the JSON encoding of body.
func (c *Client) newJSONRequest(ctx context.Context, method, rawURL string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, r)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// do sends req with retries and decodes a 2xx JSON response into out
// (which may be nil). Non-2xx responses become *APIError.
func (c *Client) do(ctx context.Context, req *http.Request, out any) error {
	req.Header.Set("x-goog-api-key", c.apiKey)

	start := time.Now()
	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.maxRetries, c.log)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("api request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(req, resp)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
		return fmt.Errorf("parsing %s response: %w", req.URL.Path, err)
	}
	return nil
}

func decodeAPIError(req *http.Request, resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Method: req.Method, Path: req.URL.Path}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var envelope struct {
		Error struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &envelope) == nil && envelope.Error.Message != "" {
		apiErr.Message = envelope.Error.Message
		apiErr.Code = envelope.Error.Status
	} else {
		apiErr.Message = strings.TrimSpace(string(data))
	}
	return apiErr
}

// int64String decodes int64 fields that the API encodes as JSON strings.
type int64String int64

func (n *int64String) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("parsing int64 %s: %w", b, err)
	}
	*n = int64String(v)
	return nil
}
