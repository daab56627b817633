// Package client provides a typed HTTP client for a parley server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/TFMV/parley/pkg/models"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("parley: %s (status %d)", e.Message, e.Status)
}

// Option configures a Client.
type Option func(*Client)

// WithToken sends the bearer token on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithTimeout sets the per-request timeout on the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// Client talks to a parley server over its JSON API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// AskResult pairs the payload with the session id so callers that started
// without one can continue the conversation.
type AskResult struct {
	SessionID string                `json:"session_id"`
	Payload   *models.OutputPayload `json:"payload"`
}

// Ask submits an utterance. An empty sessionID starts a new session; the
// allocated id comes back in the result.
func (c *Client) Ask(ctx context.Context, sessionID, utterance string) (*AskResult, error) {
	body := map[string]string{"utterance": utterance}
	if sessionID != "" {
		body["session_id"] = sessionID
	}

	var out AskResult
	if err := c.post(ctx, "/v1/ask", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Pending returns the action awaiting approval, or nil when there is none.
func (c *Client) Pending(ctx context.Context, sessionID string) (*models.PendingAction, error) {
	var out struct {
		Pending *models.PendingAction `json:"pending"`
	}
	query := url.Values{"session_id": {sessionID}}
	if err := c.get(ctx, "/v1/pending", query, &out); err != nil {
		return nil, err
	}
	return out.Pending, nil
}

// Approve executes the pending action in the session.
func (c *Client) Approve(ctx context.Context, sessionID string) (*models.OutputPayload, error) {
	return c.resolve(ctx, "/v1/approve", sessionID)
}

// Deny discards the pending action in the session.
func (c *Client) Deny(ctx context.Context, sessionID string) (*models.OutputPayload, error) {
	return c.resolve(ctx, "/v1/deny", sessionID)
}

func (c *Client) resolve(ctx context.Context, path, sessionID string) (*models.OutputPayload, error) {
	var out struct {
		Payload *models.OutputPayload `json:"payload"`
	}
	if err := c.post(ctx, path, map[string]string{"session_id": sessionID}, &out); err != nil {
		return nil, err
	}
	return out.Payload, nil
}

// Clear resets the session conversation.
func (c *Client) Clear(ctx context.Context, sessionID string) error {
	var out struct {
		Cleared bool `json:"cleared"`
	}
	return c.post(ctx, "/v1/clear", map[string]string{"session_id": sessionID}, &out)
}

// Health reports whether the server can reach its database.
func (c *Client) Health(ctx context.Context) error {
	return c.get(ctx, "/healthz", nil, &struct{}{})
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// decodeError turns an error response into an APIError, falling back to the
// raw body when it is not the usual JSON shape.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var body struct {
		Error  string `json:"error"`
		Status string `json:"status"`
	}
	message := ""
	if err := json.Unmarshal(raw, &body); err == nil {
		message = body.Error
		if message == "" {
			message = body.Status
		}
	}
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return &APIError{Status: resp.StatusCode, Message: message}
}
