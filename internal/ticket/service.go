package ticket

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/h1v3-io/inbox/internal/metrics"
	"github.com/h1v3-io/inbox/pkg/protocol"
)

// Service implements the ticket service operations on top of a Store.
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a service over store.
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// ListTickets returns the tickets matching filter, without messages.
func (s *Service) ListTickets(filter Filter) ([]protocol.Ticket, error) {
	list, err := s.store.List(filter)
	if err != nil {
		return nil, err
	}
	out := make([]protocol.Ticket, 0, len(list))
	for _, t := range list {
		out = append(out, *t)
	}
	return out, nil
}

// GetTicket returns one ticket with its conversation.
func (s *Service) GetTicket(id protocol.ID) (*protocol.Ticket, error) {
	return s.store.Get(id)
}

// Counts returns the per-status ticket counts.
func (s *Service) Counts() (protocol.StatusCounts, error) {
	var c protocol.StatusCounts
	for _, st := range protocol.Statuses {
		n, err := s.store.Count(Filter{Status: &st})
		if err != nil {
			return c, err
		}
		switch st {
		case protocol.TicketOpen:
			c.Open = n
		case protocol.TicketPending:
			c.Pending = n
		case protocol.TicketClosed:
			c.Closed = n
		}
	}
	return c, nil
}

// Reply appends a message from sender to ticket id and returns it. The
// text is trimmed; blank text is rejected.
func (s *Service) Reply(id protocol.ID, sender protocol.Sender, text string) (*protocol.Message, error) {
	req := protocol.ReplyRequest{Sender: sender, Message: strings.TrimSpace(text)}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	now := s.now().UTC()
	msg := protocol.Message{
		ID:        protocol.ID(ulid.Make().String()),
		TicketID:  id,
		Body:      req.Message,
		Sender:    req.Sender,
		Timestamp: now,
	}
	if err := s.store.AppendMessage(id, msg); err != nil {
		return nil, err
	}

	metrics.RepliesTotal.WithLabelValues(string(sender)).Inc()
	s.logger.Info("reply appended", "ticket", id, "sender", sender, "message_id", msg.ID)
	return &msg, nil
}

// UpdateStatus moves ticket id to status and returns the updated ticket.
func (s *Service) UpdateStatus(id protocol.ID, status protocol.TicketStatus) (*protocol.Ticket, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: invalid status %q", ErrInvalid, status)
	}
	if err := s.store.UpdateStatus(id, status, s.now()); err != nil {
		return nil, err
	}
	metrics.StatusUpdatesTotal.WithLabelValues(string(status)).Inc()
	s.logger.Info("ticket status updated", "ticket", id, "status", status)
	return s.store.Get(id)
}

// Seed loads the sample tickets into an empty store.
func (s *Service) Seed() (int, error) {
	n, err := s.store.Seed(SampleTickets(s.now()))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("seeded sample tickets", "count", n)
	}
	return n, nil
}
