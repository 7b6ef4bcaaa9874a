package qdrant

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

	"go.uber.org/zap"
)

// maxErrorBody caps how much of a failed response is kept in the error.
const maxErrorBody = 512

// Target addresses one Qdrant deployment.
type Target struct {
	Endpoint string
	APIKey   string
}

func (t Target) url(segments ...string) string {
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	return strings.TrimRight(t.Endpoint, "/") + "/" + strings.Join(escaped, "/")
}

// Client talks to the Qdrant REST API. The endpoint and key travel with each call.
type Client struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithLogger sets the client logger.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// New creates a Qdrant REST client.
func New(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// errNoResult marks a 2xx response without a "result" field.
var errNoResult = errors.New("response has no result")

// envelope is the common Qdrant response wrapper.
type envelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

// do sends a JSON request and decodes the "result" field of the response into out.
func (c *Client) do(ctx context.Context, op string, t Target, method, rawURL string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &Error{Op: op, Err: fmt.Errorf("marshal request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return &Error{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.APIKey != "" {
		req.Header.Set("api-key", t.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &Error{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Debug("qdrant request failed",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
		)
		if resp.StatusCode == http.StatusNotFound {
			return &Error{Op: op, Status: resp.StatusCode, Err: ErrCollectionNotFound}
		}
		return &Error{Op: op, Status: resp.StatusCode, Err: errors.New(errorDetail(respBody))}
	}

	if out == nil {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	if len(env.Result) == 0 {
		return &Error{Op: op, Status: resp.StatusCode, Err: errNoResult}
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return &Error{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode result: %w", err)}
	}
	return nil
}

// errorDetail extracts status.error from a Qdrant error body, falling back to the raw text.
func errorDetail(body []byte) string {
	var parsed struct {
		Status struct {
			Error string `json:"error"`
		} `json:"status"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Status.Error != "" {
		return parsed.Status.Error
	}
	text := strings.TrimSpace(string(body))
	if len(text) > maxErrorBody {
		text = text[:maxErrorBody]
	}
	if text == "" {
		return "empty response body"
	}
	return text
}
