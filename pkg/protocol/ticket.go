package protocol

import (
	"fmt"
	"strings"
	"time"
)

// TicketStatus represents the lifecycle bucket of a ticket.
type TicketStatus string

const (
	TicketOpen    TicketStatus = "open"
	TicketPending TicketStatus = "pending"
	TicketClosed  TicketStatus = "closed"
)

// Statuses lists every status bucket in display order.
var Statuses = []TicketStatus{TicketOpen, TicketPending, TicketClosed}

// Valid reports whether s is one of the three status buckets.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketOpen, TicketPending, TicketClosed:
		return true
	}
	return false
}

// ParseStatus converts user input into a TicketStatus. Matching is
// case-insensitive and ignores surrounding whitespace.
func ParseStatus(s string) (TicketStatus, error) {
	status := TicketStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("invalid ticket status %q (want open, pending or closed)", s)
	}
	return status, nil
}

// Ticket is a customer support case.
type Ticket struct {
	ID           ID           `json:"id"`
	CustomerName string       `json:"customer_name"`
	Subject      string       `json:"subject"`
	Status       TicketStatus `json:"status"`
	Timestamp    time.Time    `json:"timestamp"`
	Messages     []Message    `json:"messages,omitempty"`
}

// Validate checks the ticket invariants: a non-empty id and a known status.
func (t *Ticket) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("ticket id is required")
	}
	if !t.Status.Valid() {
		return fmt.Errorf("ticket %s: invalid status %q", t.ID, t.Status)
	}
	return nil
}

// StatusCounts holds the number of tickets in each status bucket.
// It is always derived from a ticket collection, never stored on its own.
type StatusCounts struct {
	Open    int `json:"open"`
	Pending int `json:"pending"`
	Closed  int `json:"closed"`
}

// CountStatuses derives StatusCounts for a ticket collection.
func CountStatuses(tickets []Ticket) StatusCounts {
	var c StatusCounts
	for _, t := range tickets {
		switch t.Status {
		case TicketOpen:
			c.Open++
		case TicketPending:
			c.Pending++
		case TicketClosed:
			c.Closed++
		}
	}
	return c
}

// Get returns the count for one bucket.
func (c StatusCounts) Get(s TicketStatus) int {
	switch s {
	case TicketOpen:
		return c.Open
	case TicketPending:
		return c.Pending
	case TicketClosed:
		return c.Closed
	}
	return 0
}

// Total returns the sum of all buckets.
func (c StatusCounts) Total() int {
	return c.Open + c.Pending + c.Closed
}

// StatusRequest is the body of PUT /tickets/{id}/status.
type StatusRequest struct {
	Status TicketStatus `json:"status"`
}
