// Package transport executes JSON requests against the backend API and
// classifies every failure into an apierror.Error.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"tasktrack/internal/apierror"
	"tasktrack/internal/logging"
)

// DefaultTimeout bounds every call unless overridden with WithTimeout.
const DefaultTimeout = 30 * time.Second

// maxBody caps how much of a response body is read.
const maxBody = 4 << 20

// Request describes one call. Body, when non-nil, is sent as JSON.
type Request struct {
	Method  string
	Body    any
	Headers map[string]string
	Query   url.Values
}

// Client performs calls against a base URL.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  oauth2.TokenSource
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTokenSource sets where the bearer credential is borrowed from. A token
// with an empty AccessToken means no credential and no Authorization header.
func WithTokenSource(ts oauth2.TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger sets the logger for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = logging.OrDiscard(l) }
}

// New creates a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the URL calls are made against.
func (c *Client) BaseURL() string { return c.baseURL }

// Call executes req against endpoint and returns the raw JSON body. A 204
// response yields a nil body.
func (c *Client) Call(ctx context.Context, endpoint string, req Request) (json.RawMessage, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	op := method + " " + endpoint

	target := c.baseURL + endpoint
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)

	if c.tokens != nil {
		tok, err := c.tokens.Token()
		if err != nil {
			return nil, fmt.Errorf("%s: read credential: %w", op, err)
		}
		if tok != nil && tok.AccessToken != "" {
			tok.SetAuthHeader(httpReq)
		}
	}

	start := time.Now()
	c.logger.Debug("http request", "method", method, "url", target, "request_id", requestID)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, classifyDoError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, classifyDoError(op, err)
	}

	c.logger.Debug("http response",
		"method", method,
		"url", target,
		"status", resp.StatusCode,
		"duration", time.Since(start),
		"request_id", requestID,
	)

	return decode(op, resp.StatusCode, raw)
}

func decode(op string, status int, raw []byte) (json.RawMessage, error) {
	text := bytes.TrimSpace(raw)

	if status < 200 || status > 299 {
		return nil, &apierror.Error{
			Kind:    apierror.HTTPStatus,
			Op:      op,
			Status:  status,
			Message: serverMessage(text),
			Body:    string(text),
		}
	}

	if len(text) == 0 {
		return nil, nil
	}
	if !json.Valid(text) {
		return nil, &apierror.Error{Kind: apierror.MalformedResponse, Op: op, Body: string(text)}
	}
	return json.RawMessage(text), nil
}

// serverMessage extracts the "error" or "message" field of a JSON error body.
func serverMessage(body []byte) string {
	var fields struct {
		Error   any    `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &fields); err != nil {
		return ""
	}
	if s, ok := fields.Error.(string); ok && s != "" {
		return s
	}
	return fields.Message
}

func classifyDoError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &apierror.Error{Kind: apierror.Timeout, Op: op, Err: err}
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &apierror.Error{Kind: apierror.Timeout, Op: op, Err: err}
	}
	return &apierror.Error{Kind: apierror.Network, Op: op, Err: err}
}
