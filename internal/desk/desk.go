// Package desk wires the ticket store, the conversation cache and the
// ticket service client into the operations an agent performs: loading
// the inbox, selecting a ticket, reading its conversation and replying.
package desk

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/h1v3-io/inbox/internal/conversation"
	"github.com/h1v3-io/inbox/internal/inbox"
	"github.com/h1v3-io/inbox/internal/view"
	"github.com/h1v3-io/inbox/pkg/protocol"
)

var (
	ErrEmptyMessage = errors.New("desk: message is empty")
	ErrNoSelection  = errors.New("desk: no ticket selected")
	ErrSendInFlight = errors.New("desk: a reply is already being sent")
)

// SendError is a rejected reply. Text is what the agent wrote, so it can
// be resubmitted unchanged.
type SendError struct {
	TicketID protocol.ID
	Text     string
	Err      error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("send reply to ticket %s: %v", e.TicketID, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// Service is the subset of the ticket service client the desk uses.
type Service interface {
	inbox.Loader
	conversation.Fetcher
	SendReply(ctx context.Context, id protocol.ID, text string) (*protocol.Message, error)
	UpdateStatus(ctx context.Context, id protocol.ID, status protocol.TicketStatus) (*protocol.Ticket, error)
}

// Desk is the agent's working surface.
type Desk struct {
	svc      Service
	store    *inbox.Store
	cache    *conversation.Cache
	grouping view.Grouping
	logger   *slog.Logger

	cacheOpts []conversation.Option

	mu          sync.Mutex
	draft       string
	sending     bool
	lastSendErr *SendError
}

// Option configures a Desk.
type Option func(*Desk)

func WithLogger(l *slog.Logger) Option {
	return func(d *Desk) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithGrouping sets how conversation messages are bucketed for display.
func WithGrouping(g view.Grouping) Option {
	return func(d *Desk) { d.grouping = g }
}

// WithCacheOptions passes options through to the conversation cache.
func WithCacheOptions(opts ...conversation.Option) Option {
	return func(d *Desk) { d.cacheOpts = append(d.cacheOpts, opts...) }
}

// New creates a desk backed by svc. The conversation cache follows the
// store's selection and send events.
func New(svc Service, opts ...Option) *Desk {
	d := &Desk{
		svc:      svc,
		grouping: view.DefaultGrouping(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.store = inbox.NewStore(d.logger)
	d.cache = conversation.New(svc, append([]conversation.Option{conversation.WithLogger(d.logger)}, d.cacheOpts...)...)
	d.store.Subscribe(d.cache.HandleEvent)
	return d
}

func (d *Desk) Store() *inbox.Store { return d.store }

func (d *Desk) Cache() *conversation.Cache { return d.cache }

// Refresh reloads the ticket list, replacing the collection wholesale. On
// failure the previous collection is kept and the error is recorded on
// the store.
func (d *Desk) Refresh(ctx context.Context) error {
	return d.store.Load(ctx, d.svc)
}

// Select makes id the selected ticket. The conversation starts loading
// in the background.
func (d *Desk) Select(id protocol.ID) error {
	return d.store.SelectTicket(id)
}

func (d *Desk) ClearSelection() {
	d.store.ClearSelection()
}

// List filters and paginates the current collection.
func (d *Desk) List(ls view.ListState) view.Page {
	return view.Paginate(d.store.Tickets(), ls.Criteria())
}

func (d *Desk) Counts() protocol.StatusCounts {
	return d.store.Counts()
}

// SetDraft replaces the composer text.
func (d *Desk) SetDraft(text string) {
	d.mu.Lock()
	d.draft = text
	d.mu.Unlock()
}

func (d *Desk) Draft() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draft
}

// Sending reports whether a composer send is in flight.
func (d *Desk) Sending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sending
}

// LastSendErr returns the most recent composer send failure, or nil once
// a later send succeeded.
func (d *Desk) LastSendErr() *SendError {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSendErr
}

// Send submits the composer draft to the selected ticket. On failure the
// draft and the cached conversation are left untouched and a *SendError is
// returned. On success the draft is cleared, unless it was edited while
// the request was in flight, and the conversation is refetched.
func (d *Desk) Send(ctx context.Context) error {
	d.mu.Lock()
	text := strings.TrimSpace(d.draft)
	if text == "" {
		d.mu.Unlock()
		return ErrEmptyMessage
	}
	id := d.store.SelectedID()
	if id == "" {
		d.mu.Unlock()
		return ErrNoSelection
	}
	if d.sending {
		d.mu.Unlock()
		return ErrSendInFlight
	}
	d.sending = true
	submitted := d.draft
	d.mu.Unlock()

	_, err := d.svc.SendReply(ctx, id, text)

	d.mu.Lock()
	d.sending = false
	if err != nil {
		se := &SendError{TicketID: id, Text: text, Err: err}
		d.lastSendErr = se
		d.mu.Unlock()
		d.logger.Warn("reply failed", "ticket", id, "error", err)
		return se
	}
	if d.draft == submitted {
		d.draft = ""
	}
	d.lastSendErr = nil
	d.mu.Unlock()

	d.logger.Info("reply sent", "ticket", id, "length", len(text))
	d.store.Publish(inbox.Event{Kind: inbox.EventSendSucceeded, TicketID: id})
	return nil
}

// SendMessage posts text to ticket id without going through the composer.
func (d *Desk) SendMessage(ctx context.Context, id protocol.ID, text string) (*protocol.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if id == "" {
		return nil, ErrNoSelection
	}
	msg, err := d.svc.SendReply(ctx, id, text)
	if err != nil {
		d.logger.Warn("reply failed", "ticket", id, "error", err)
		return nil, &SendError{TicketID: id, Text: text, Err: err}
	}
	d.store.Publish(inbox.Event{Kind: inbox.EventSendSucceeded, TicketID: id})
	return msg, nil
}

// UpdateStatus moves ticket id to status and applies the service's copy of
// the ticket to the store.
func (d *Desk) UpdateStatus(ctx context.Context, id protocol.ID, status protocol.TicketStatus) (*protocol.Ticket, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("desk: update status: invalid status %q", status)
	}
	t, err := d.svc.UpdateStatus(ctx, id, status)
	if err != nil {
		d.logger.Warn("status update failed", "ticket", id, "status", status, "error", err)
		return nil, fmt.Errorf("desk: update status: %w", err)
	}
	d.store.ApplyTicket(*t)
	d.logger.Info("ticket status updated", "ticket", id, "status", t.Status)
	return t, nil
}

// Retry re-runs whatever failed for the current view: the list load if it
// failed, otherwise the selected ticket's conversation fetch.
func (d *Desk) Retry(ctx context.Context) error {
	if d.store.LoadErr() != nil {
		return d.Refresh(ctx)
	}
	id := d.store.SelectedID()
	if id == "" {
		return nil
	}
	if snap := d.cache.Peek(id); snap.State == conversation.StateFailed || needsFetch(snap) {
		d.cache.Get(id)
	}
	return nil
}
