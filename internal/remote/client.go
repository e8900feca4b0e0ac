// Package remote is the HTTP client for the ticket service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/h1v3-io/inbox/pkg/protocol"
)

const (
	DefaultBaseURL = "http://localhost:8080/api"
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 4 << 10
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Op      string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: HTTP %d %s", e.Op, e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("%s: HTTP %d: %s", e.Op, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// Client talks to the ticket service REST API.
type Client struct {
	client    *http.Client
	baseURL   string
	apiKey    string
	userAgent string
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the API root, e.g. https://desk.example.com/api.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithAPIKey sends the key as a Bearer token.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a client for the ticket service.
func New(opts ...Option) *Client {
	c := &Client{
		client:    &http.Client{Timeout: defaultTimeout},
		baseURL:   DefaultBaseURL,
		userAgent: "inbox/1",
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string { return c.baseURL }

// ListTickets fetches every ticket, in service order.
func (c *Client) ListTickets(ctx context.Context) ([]protocol.Ticket, error) {
	var tickets []protocol.Ticket
	if err := c.do(ctx, "list tickets", http.MethodGet, "/tickets", nil, &tickets); err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []protocol.Ticket{}
	}
	return tickets, nil
}

// GetTicket fetches one ticket including its conversation.
func (c *Client) GetTicket(ctx context.Context, id protocol.ID) (*protocol.Ticket, error) {
	var t protocol.Ticket
	if err := c.do(ctx, "get ticket", http.MethodGet, ticketPath(id), nil, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// FetchConversation returns the ordered messages of a ticket. A missing
// messages field is an empty conversation.
func (c *Client) FetchConversation(ctx context.Context, id protocol.ID) ([]protocol.Message, error) {
	t, err := c.GetTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	if t.Messages == nil {
		return []protocol.Message{}, nil
	}
	return t.Messages, nil
}

// SendReply posts an agent reply and returns the created message.
func (c *Client) SendReply(ctx context.Context, id protocol.ID, text string) (*protocol.Message, error) {
	body := protocol.ReplyRequest{Sender: protocol.SenderAgent, Message: text}
	var m protocol.Message
	if err := c.do(ctx, "send reply", http.MethodPost, ticketPath(id)+"/reply", body, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// UpdateStatus moves a ticket to another status bucket.
func (c *Client) UpdateStatus(ctx context.Context, id protocol.ID, status protocol.TicketStatus) (*protocol.Ticket, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("update status: invalid status %q", status)
	}
	var t protocol.Ticket
	if err := c.do(ctx, "update status", http.MethodPut, ticketPath(id)+"/status", protocol.StatusRequest{Status: status}, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// Health checks GET /health.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, "health", http.MethodGet, "/health", nil, nil)
}

func ticketPath(id protocol.ID) string {
	return "/tickets/" + url.PathEscape(string(id))
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: marshal request: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("ticket service request failed", "op", op, "error", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()
	c.logger.Debug("ticket service request", "op", op, "method", method, "path", path,
		"status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Op: op, Code: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} from an error body, falling back
// to the trimmed raw text.
func errorMessage(raw []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &e) == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(raw))
}
