package view

import "github.com/h1v3-io/inbox/pkg/protocol"

// ListState holds the caller-side list criteria. Every change to the
// filter criteria renormalizes the page to 1 so an out-of-range empty
// page is never rendered.
type ListState struct {
	Status   protocol.TicketStatus
	Query    string
	Page     int
	PageSize int
}

// NewListState starts on page 1 of the open bucket.
func NewListState(pageSize int) ListState {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return ListState{Status: protocol.TicketOpen, Page: 1, PageSize: pageSize}
}

func (s *ListState) SetStatus(status protocol.TicketStatus) {
	s.Status = status
	s.Page = 1
}

func (s *ListState) SetQuery(q string) {
	s.Query = q
	s.Page = 1
}

func (s *ListState) SetPageSize(n int) {
	if n <= 0 {
		n = DefaultPageSize
	}
	s.PageSize = n
	s.Page = 1
}

// GoTo moves to page if it lies within 1..totalPages and reports whether
// it moved. Out-of-range targets are ignored.
func (s *ListState) GoTo(page, totalPages int) bool {
	if page < 1 || page > totalPages {
		return false
	}
	s.Page = page
	return true
}

// Clamp pulls the page back into 1..totalPages after the matching set shrank.
func (s *ListState) Clamp(totalPages int) {
	if s.Page > totalPages {
		s.Page = totalPages
	}
	if s.Page < 1 {
		s.Page = 1
	}
}

// Criteria converts the state to Paginate input.
func (s ListState) Criteria() Criteria {
	return Criteria{Status: s.Status, Query: s.Query, Page: s.Page, PageSize: s.PageSize}
}
