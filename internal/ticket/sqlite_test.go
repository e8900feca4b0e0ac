package ticket

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/h1v3-io/inbox/pkg/protocol"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

var t0 = time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)

	ticket := &protocol.Ticket{
		ID:           "1",
		CustomerName: "John Smith",
		Subject:      "Unable to reset password",
		Status:       protocol.TicketOpen,
		Timestamp:    t0,
	}
	if err := s.Save(ticket); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Get("1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.CustomerName != "John Smith" {
		t.Errorf("expected customer 'John Smith', got %q", got.CustomerName)
	}
	if got.Status != protocol.TicketOpen {
		t.Errorf("expected status open, got %q", got.Status)
	}
	if !got.Timestamp.Equal(t0) {
		t.Errorf("expected timestamp %v, got %v", t0, got.Timestamp)
	}
	if got.Messages == nil || len(got.Messages) != 0 {
		t.Errorf("expected empty messages, got %v", got.Messages)
	}
}

func TestSave_Upsert(t *testing.T) {
	s := newTestStore(t)

	ticket := &protocol.Ticket{ID: "2", CustomerName: "A", Subject: "Original", Status: protocol.TicketOpen, Timestamp: t0}
	s.Save(ticket)

	ticket.Subject = "Updated"
	s.Save(ticket)

	got, _ := s.Get("2")
	if got.Subject != "Updated" {
		t.Errorf("expected 'Updated', got %q", got.Subject)
	}
}

func TestSave_Invalid(t *testing.T) {
	s := newTestStore(t)
	err := s.Save(&protocol.Ticket{ID: "3", Status: "archived", Timestamp: t0})
	if !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendMessage(t *testing.T) {
	s := newTestStore(t)
	s.Save(&protocol.Ticket{ID: "3", CustomerName: "A", Subject: "S", Status: protocol.TicketOpen, Timestamp: t0})

	msg := protocol.Message{
		ID:        "m-001",
		TicketID:  "3",
		Body:      "Hello",
		Sender:    protocol.SenderAgent,
		Timestamp: t0.Add(time.Hour),
	}
	if err := s.AppendMessage("3", msg); err != nil {
		t.Fatalf("append: %v", err)
	}

	got, _ := s.Get("3")
	if len(got.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got.Messages))
	}
	if got.Messages[0].Body != "Hello" {
		t.Errorf("expected 'Hello', got %q", got.Messages[0].Body)
	}
	if got.Messages[0].Sender != protocol.SenderAgent {
		t.Errorf("expected sender agent, got %q", got.Messages[0].Sender)
	}
	if got.Messages[0].TicketID != "3" {
		t.Errorf("expected ticketId 3, got %q", got.Messages[0].TicketID)
	}
	if !got.Timestamp.Equal(t0.Add(time.Hour)) {
		t.Errorf("ticket timestamp not advanced: %v", got.Timestamp)
	}
}

func TestAppendMessage_OlderDoesNotRewindTicket(t *testing.T) {
	s := newTestStore(t)
	s.Save(&protocol.Ticket{ID: "4", CustomerName: "A", Subject: "S", Status: protocol.TicketOpen, Timestamp: t0})
	s.AppendMessage("4", protocol.Message{ID: "old", Body: "x", Sender: protocol.SenderCustomer, Timestamp: t0.Add(-time.Hour)})

	got, _ := s.Get("4")
	if !got.Timestamp.Equal(t0) {
		t.Errorf("ticket timestamp = %v, want %v", got.Timestamp, t0)
	}
}

func TestAppendMessage_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.AppendMessage("missing", protocol.Message{ID: "m", Body: "x", Sender: protocol.SenderAgent, Timestamp: t0})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMessageOrder(t *testing.T) {
	s := newTestStore(t)
	s.Save(&protocol.Ticket{ID: "5", CustomerName: "A", Subject: "S", Status: protocol.TicketOpen, Timestamp: t0})

	// Same timestamp for b and c: insertion order wins. a is older but
	// inserted last.
	s.AppendMessage("5", protocol.Message{ID: "b", Body: "b", Sender: protocol.SenderCustomer, Timestamp: t0})
	s.AppendMessage("5", protocol.Message{ID: "c", Body: "c", Sender: protocol.SenderAgent, Timestamp: t0})
	s.AppendMessage("5", protocol.Message{ID: "a", Body: "a", Sender: protocol.SenderCustomer, Timestamp: t0.Add(-time.Minute)})

	got, _ := s.Get("5")
	var order string
	for _, m := range got.Messages {
		order += m.Body
	}
	if order != "abc" {
		t.Errorf("message order = %q, want abc", order)
	}
}

func TestUpdateStatus(t *testing.T) {
	s := newTestStore(t)
	s.Save(&protocol.Ticket{ID: "6", CustomerName: "A", Subject: "S", Status: protocol.TicketOpen, Timestamp: t0})

	at := t0.Add(2 * time.Hour)
	if err := s.UpdateStatus("6", protocol.TicketClosed, at); err != nil {
		t.Fatalf("update status: %v", err)
	}

	got, _ := s.Get("6")
	if got.Status != protocol.TicketClosed {
		t.Errorf("expected closed, got %q", got.Status)
	}
	if !got.Timestamp.Equal(at) {
		t.Errorf("expected timestamp %v, got %v", at, got.Timestamp)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	s := newTestStore(t)
	err := s.UpdateStatus("nonexistent", protocol.TicketClosed, t0)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateStatus_Invalid(t *testing.T) {
	s := newTestStore(t)
	s.Save(&protocol.Ticket{ID: "7", CustomerName: "A", Subject: "S", Status: protocol.TicketOpen, Timestamp: t0})
	if err := s.UpdateStatus("7", "archived", t0); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestList_All(t *testing.T) {
	s := newTestStore(t)

	for i := range 3 {
		s.Save(&protocol.Ticket{
			ID: protocol.ID(fmt.Sprint(i + 1)), CustomerName: "A", Subject: fmt.Sprintf("T%d", i),
			Status: protocol.TicketOpen, Timestamp: t0.Add(time.Duration(-i) * time.Minute),
		})
	}

	tickets, err := s.List(Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tickets) != 3 {
		t.Fatalf("expected 3 tickets, got %d", len(tickets))
	}
	if tickets[0].ID != "1" || tickets[2].ID != "3" {
		t.Errorf("expected most recent first, got %s..%s", tickets[0].ID, tickets[2].ID)
	}
	if tickets[0].Messages != nil {
		t.Error("list should not load messages")
	}
}

func TestList_FilterByStatus(t *testing.T) {
	s := newTestStore(t)
	s.Save(&protocol.Ticket{ID: "1", CustomerName: "A", Subject: "Open", Status: protocol.TicketOpen, Timestamp: t0})
	s.Save(&protocol.Ticket{ID: "2", CustomerName: "A", Subject: "Closed", Status: protocol.TicketClosed, Timestamp: t0})

	open := protocol.TicketOpen
	tickets, _ := s.List(Filter{Status: &open})
	if len(tickets) != 1 {
		t.Errorf("expected 1 open ticket, got %d", len(tickets))
	}
	n, _ := s.Count(Filter{Status: &open})
	if n != 1 {
		t.Errorf("expected count 1, got %d", n)
	}
}

func TestList_Query(t *testing.T) {
	s := newTestStore(t)
	s.Save(&protocol.Ticket{ID: "1", CustomerName: "John Smith", Subject: "Password", Status: protocol.TicketOpen, Timestamp: t0})
	s.Save(&protocol.Ticket{ID: "2", CustomerName: "Emily", Subject: "Payment failed", Status: protocol.TicketOpen, Timestamp: t0})
	s.Save(&protocol.Ticket{ID: "3", CustomerName: "Sarah", Subject: "Order", Status: protocol.TicketPending, Timestamp: t0})

	tickets, _ := s.List(Filter{Query: "pa"})
	if len(tickets) != 2 {
		t.Errorf("expected 2 matches for 'pa', got %d", len(tickets))
	}
	tickets, _ = s.List(Filter{Query: "SMITH"})
	if len(tickets) != 1 || tickets[0].ID != "1" {
		t.Errorf("expected case-insensitive name match, got %v", tickets)
	}
	n, _ := s.Count(Filter{Query: "zzz"})
	if n != 0 {
		t.Errorf("expected 0, got %d", n)
	}
}

func TestList_QueryWildcardsAreLiteral(t *testing.T) {
	s := newTestStore(t)
	s.Save(&protocol.Ticket{ID: "1", CustomerName: "Ann", Subject: "50% refund", Status: protocol.TicketOpen, Timestamp: t0})
	s.Save(&protocol.Ticket{ID: "2", CustomerName: "Bo", Subject: "500 error", Status: protocol.TicketOpen, Timestamp: t0})
	s.Save(&protocol.Ticket{ID: "3", CustomerName: "Cy", Subject: "user_id missing", Status: protocol.TicketOpen, Timestamp: t0})
	s.Save(&protocol.Ticket{ID: "4", CustomerName: "Di", Subject: "userXid", Status: protocol.TicketOpen, Timestamp: t0})
	s.Save(&protocol.Ticket{ID: "5", CustomerName: "Ed", Subject: `path C:\temp`, Status: protocol.TicketOpen, Timestamp: t0})

	tests := []struct {
		query string
		want  []protocol.ID
	}{
		{"50%", []protocol.ID{"1"}},
		{"%", []protocol.ID{"1"}},
		{"user_id", []protocol.ID{"3"}},
		{"_", []protocol.ID{"3"}},
		{`C:\`, []protocol.ID{"5"}},
	}
	for _, tt := range tests {
		tickets, err := s.List(Filter{Query: tt.query})
		if err != nil {
			t.Fatalf("list %q: %v", tt.query, err)
		}
		var got []protocol.ID
		for _, tk := range tickets {
			got = append(got, tk.ID)
		}
		if fmt.Sprint(got) != fmt.Sprint(tt.want) {
			t.Errorf("query %q matched %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestList_Limit(t *testing.T) {
	s := newTestStore(t)
	for i := range 5 {
		s.Save(&protocol.Ticket{ID: protocol.ID(fmt.Sprint(i)), CustomerName: "A", Subject: "T", Status: protocol.TicketOpen, Timestamp: t0})
	}

	tickets, _ := s.List(Filter{Limit: 2})
	if len(tickets) != 2 {
		t.Errorf("expected 2 tickets, got %d", len(tickets))
	}
}

func TestSeed(t *testing.T) {
	s := newTestStore(t)

	n, err := s.Seed(SampleTickets(t0))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if n != 15 {
		t.Errorf("expected 15 seeded, got %d", n)
	}

	got, _ := s.Get("1")
	if len(got.Messages) != 5 {
		t.Errorf("expected 5 messages on ticket 1, got %d", len(got.Messages))
	}

	// A second seed is a no-op.
	n, err = s.Seed(SampleTickets(t0))
	if err != nil || n != 0 {
		t.Errorf("second seed = %d, %v", n, err)
	}
	total, _ := s.Count(Filter{})
	if total != 15 {
		t.Errorf("expected 15 tickets, got %d", total)
	}
}
