package ticket

import (
	"errors"
	"testing"
	"time"

	"github.com/h1v3-io/inbox/pkg/protocol"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(newTestStore(t), nil)
	svc.now = func() time.Time { return t0 }
	if _, err := svc.Seed(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return svc
}

func TestServiceCounts(t *testing.T) {
	svc := newTestService(t)
	c, err := svc.Counts()
	if err != nil {
		t.Fatalf("counts: %v", err)
	}
	if c.Open != 5 || c.Pending != 4 || c.Closed != 6 {
		t.Errorf("counts = %+v, want 5/4/6", c)
	}
}

func TestServiceReply(t *testing.T) {
	svc := newTestService(t)
	svc.now = func() time.Time { return t0.Add(time.Minute) }

	msg, err := svc.Reply("2", protocol.SenderAgent, "  On it.  ")
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if msg.Body != "On it." {
		t.Errorf("body = %q, want trimmed", msg.Body)
	}
	if len(msg.ID) != 26 {
		t.Errorf("id = %q, want a ULID", msg.ID)
	}

	got, _ := svc.GetTicket("2")
	if len(got.Messages) != 1 || got.Messages[0].ID != msg.ID {
		t.Errorf("messages = %+v", got.Messages)
	}
	if !got.Timestamp.Equal(t0.Add(time.Minute)) {
		t.Errorf("ticket timestamp = %v", got.Timestamp)
	}
}

func TestServiceReplyErrors(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Reply("2", protocol.SenderAgent, "   "); !errors.Is(err, ErrInvalid) {
		t.Errorf("blank text: %v", err)
	}
	if _, err := svc.Reply("2", "bot", "hi"); !errors.Is(err, ErrInvalid) {
		t.Errorf("bad sender: %v", err)
	}
	if _, err := svc.Reply("99", protocol.SenderAgent, "hi"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown ticket: %v", err)
	}
}

func TestServiceUpdateStatus(t *testing.T) {
	svc := newTestService(t)

	got, err := svc.UpdateStatus("1", protocol.TicketPending)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Status != protocol.TicketPending {
		t.Errorf("status = %q", got.Status)
	}
	if len(got.Messages) != 5 {
		t.Errorf("expected conversation with updated ticket, got %d messages", len(got.Messages))
	}

	if _, err := svc.UpdateStatus("1", "archived"); !errors.Is(err, ErrInvalid) {
		t.Errorf("invalid status: %v", err)
	}
	if _, err := svc.UpdateStatus("99", protocol.TicketOpen); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown ticket: %v", err)
	}
}

func TestServiceListTickets(t *testing.T) {
	svc := newTestService(t)
	pending := protocol.TicketPending
	list, err := svc.ListTickets(Filter{Status: &pending})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 4 {
		t.Errorf("got %d pending, want 4", len(list))
	}
	// Most recently updated pending ticket first.
	if list[0].CustomerName != "Patricia Moore" {
		t.Errorf("first = %q", list[0].CustomerName)
	}
}

func TestSampleTickets(t *testing.T) {
	tickets := SampleTickets(t0)
	if len(tickets) != 15 {
		t.Fatalf("got %d tickets", len(tickets))
	}
	c := protocol.CountStatuses(tickets)
	if c.Total() != 15 {
		t.Errorf("total = %d", c.Total())
	}
	if tickets[0].ID != "1" || tickets[14].ID != "15" {
		t.Errorf("ids = %s..%s", tickets[0].ID, tickets[14].ID)
	}
	for i := 1; i < len(tickets[0].Messages); i++ {
		if tickets[0].Messages[i].Timestamp.Before(tickets[0].Messages[i-1].Timestamp) {
			t.Errorf("conversation not chronological at %d", i)
		}
	}
}
