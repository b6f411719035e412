// Package assistant talks to the configuration chat service and applies
// the configuration changes it suggests.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/Mohsinsiddi/avagen/internal/confstore"
)

// DefaultTimeout bounds a single question round-trip.
const DefaultTimeout = 30 * time.Second

const maxResponseBytes = 4 << 20

var (
	// ErrRequestAbandoned means the call timed out or was cancelled.
	ErrRequestAbandoned = errors.New("chat request abandoned")
	// ErrServer means the service answered with a non-2xx status.
	ErrServer = errors.New("chat service error")
	// ErrMalformedResponse means the reply body could not be decoded.
	ErrMalformedResponse = errors.New("malformed chat response")
)

// Request is the payload sent for each question.
type Request struct {
	ChatHistory string          `json:"chat_history"`
	UserConfig  *confstore.Node `json:"user_config"`
	Question    string          `json:"question"`
}

// Response is the service's answer. Update is nil when no change is
// suggested; Step, when positive, is the wizard step the reply refers to.
type Response struct {
	Reply  string
	Update *confstore.Node
	Step   int
}

// UnmarshalJSON accepts "update" or its alias "updates", either as an object
// or as a JSON-encoded string.
func (r *Response) UnmarshalJSON(data []byte) error {
	var raw struct {
		Reply   *string         `json:"reply"`
		Update  json.RawMessage `json:"update"`
		Updates json.RawMessage `json:"updates"`
		Step    int             `json:"step"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Reply == nil {
		return fmt.Errorf("missing reply")
	}
	update := raw.Update
	if isEmptyJSON(update) {
		update = raw.Updates
	}
	patch, err := decodeUpdate(update)
	if err != nil {
		return err
	}
	*r = Response{Reply: *raw.Reply, Update: patch, Step: raw.Step}
	return nil
}

func isEmptyJSON(b json.RawMessage) bool {
	s := strings.TrimSpace(string(b))
	return s == "" || s == "null"
}

func decodeUpdate(b json.RawMessage) (*confstore.Node, error) {
	if isEmptyJSON(b) {
		return nil, nil
	}
	if strings.HasPrefix(strings.TrimSpace(string(b)), `"`) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return nil, err
		}
		if strings.TrimSpace(s) == "" {
			return nil, nil
		}
		b = json.RawMessage(s)
	}
	n, err := confstore.FromJSON(b)
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}
	if n.Kind() != confstore.KindObject {
		return nil, fmt.Errorf("update must be an object, got %s", n.Kind())
	}
	if n.Len() == 0 {
		return nil, nil
	}
	return n, nil
}

// Client posts questions to the chat endpoint.
type Client struct {
	client   *http.Client
	endpoint string
	token    string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithToken sends token as a bearer credential.
func WithToken(token string) Option {
	return func(c *Client) { c.token = strings.TrimSpace(token) }
}

// NewClient creates a client for the given chat endpoint URL.
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		client:   &http.Client{Timeout: 2 * DefaultTimeout},
		endpoint: endpoint,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Endpoint returns the chat URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Ask sends one question and decodes the answer.
func (c *Client) Ask(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding chat request: %w", err)
	}
	hr, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building chat request: %w", err)
	}
	hr.Header.Set("Content-Type", "application/json")
	hr.Header.Set("Accept", "application/json")
	if c.token != "" {
		hr.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(hr)
	if err != nil {
		return nil, transportError(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(ctx, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: %s", ErrServer, resp.Status, snippet(data))
	}

	var out Response
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return &out, nil
}

func transportError(ctx context.Context, err error) error {
	var ne net.Error
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) ||
		(errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %v", ErrRequestAbandoned, err)
	}
	return fmt.Errorf("sending chat request: %w", err)
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
