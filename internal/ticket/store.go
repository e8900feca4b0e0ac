package ticket

import (
	"errors"
	"time"

	"github.com/h1v3-io/inbox/pkg/protocol"
)

var (
	// ErrNotFound is returned for unknown ticket ids.
	ErrNotFound = errors.New("ticket not found")
	// ErrInvalid marks a request the service refuses to apply.
	ErrInvalid = errors.New("invalid request")
)

// Store is the persistence interface for tickets and their messages.
type Store interface {
	// Save creates or updates a ticket. Messages are not written.
	Save(ticket *protocol.Ticket) error
	// Get retrieves a ticket by ID, including its messages in
	// timestamp order (insertion order for equal timestamps).
	Get(id protocol.ID) (*protocol.Ticket, error)
	// List returns tickets matching the filter, most recent first, without messages.
	List(filter Filter) ([]*protocol.Ticket, error)
	// Count returns the number of tickets matching the filter.
	Count(filter Filter) (int, error)
	// AppendMessage adds a message to a ticket and moves the ticket's
	// timestamp forward to the message's.
	AppendMessage(ticketID protocol.ID, msg protocol.Message) error
	// UpdateStatus changes a ticket's status and stamps it with at.
	UpdateStatus(ticketID protocol.ID, status protocol.TicketStatus, at time.Time) error
	// Seed inserts tickets and their messages into an empty store and
	// reports how many were written. A non-empty store is left alone.
	Seed(tickets []protocol.Ticket) (int, error)
}

// Filter constrains ticket list queries.
type Filter struct {
	Status *protocol.TicketStatus
	Query  string // case-insensitive match on customer name and subject
	Limit  int    // 0 = no limit
}
