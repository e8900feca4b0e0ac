// Package view holds the pure derivations the inbox renders from: the
// filtered and paginated ticket list, the pagination strip, and the
// date-bucketed conversation.
package view

import (
	"strings"

	"github.com/h1v3-io/inbox/pkg/protocol"
)

// DefaultPageSize is used when a non-positive page size is requested.
const DefaultPageSize = 10

// PageSizes are the page sizes offered to the agent.
var PageSizes = []int{10, 20, 50}

// ValidPageSize reports whether n is one of PageSizes.
func ValidPageSize(n int) bool {
	for _, s := range PageSizes {
		if s == n {
			return true
		}
	}
	return false
}

// Criteria selects one page of tickets.
type Criteria struct {
	Status   protocol.TicketStatus
	Query    string
	Page     int // 1-based
	PageSize int
}

// Page is the visible slice of matching tickets plus pagination metadata.
type Page struct {
	Items      []protocol.Ticket
	Matching   int
	TotalPages int
	Page       int
	PageSize   int
}

func (p Page) HasPrev() bool { return p.Page > 1 }
func (p Page) HasNext() bool { return p.Page < p.TotalPages }

// Matches reports whether t is in the status bucket and, for a non-empty
// query, contains it case-insensitively in the customer name or subject.
func Matches(t protocol.Ticket, status protocol.TicketStatus, query string) bool {
	if t.Status != status {
		return false
	}
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(t.CustomerName), q) ||
		strings.Contains(strings.ToLower(t.Subject), q)
}

// Filter returns the matching tickets in source order.
func Filter(tickets []protocol.Ticket, status protocol.TicketStatus, query string) []protocol.Ticket {
	var out []protocol.Ticket
	for _, t := range tickets {
		if Matches(t, status, query) {
			out = append(out, t)
		}
	}
	return out
}

// Paginate filters tickets by c and returns the requested page. A page
// outside 1..TotalPages yields no items; clamping is the caller's job
// (see ListState.Clamp).
func Paginate(tickets []protocol.Ticket, c Criteria) Page {
	size := c.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	matching := Filter(tickets, c.Status, c.Query)
	total := (len(matching) + size - 1) / size

	p := Page{
		Matching:   len(matching),
		TotalPages: total,
		Page:       c.Page,
		PageSize:   size,
	}
	if c.Page < 1 || c.Page > total {
		return p
	}
	start := (c.Page - 1) * size
	end := start + size
	if end > len(matching) {
		end = len(matching)
	}
	p.Items = matching[start:end]
	return p
}
