package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/h1v3-io/inbox/pkg/protocol"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(WithBaseURL(srv.URL+"/api/"), WithAPIKey("secret"))
}

func TestListTickets(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/api/tickets" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`[
			{"id": 1, "customer_name": "John Doe", "subject": "Login", "status": "open", "timestamp": "2024-03-15T10:00:00Z"},
			{"id": "2", "customer_name": "Jane", "subject": "Billing", "status": "pending", "timestamp": "2024-03-15T09:00:00Z"}
		]`))
	})

	tickets, err := c.ListTickets(context.Background())
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("got %d tickets, want 2", len(tickets))
	}
	if tickets[0].ID != "1" || tickets[0].CustomerName != "John Doe" {
		t.Errorf("tickets[0] = %+v", tickets[0])
	}
	if tickets[1].Status != protocol.TicketPending {
		t.Errorf("tickets[1].Status = %q", tickets[1].Status)
	}
}

func TestListTicketsNull(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	})
	tickets, err := c.ListTickets(context.Background())
	if err != nil {
		t.Fatalf("ListTickets: %v", err)
	}
	if tickets == nil || len(tickets) != 0 {
		t.Errorf("tickets = %v, want empty non-nil", tickets)
	}
}

func TestFetchConversation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tickets/42" {
			t.Errorf("path = %q", r.URL.Path)
		}
		w.Write([]byte(`{"id": 42, "customer_name": "A", "subject": "S", "status": "open",
			"timestamp": "2024-03-15T10:00:00Z",
			"messages": [
				{"id": "m1", "ticketId": 42, "message": "Hi", "sender": "customer", "timestamp": "2024-03-15T10:00:00Z"},
				{"id": "m2", "ticketId": 42, "message": "Hello", "sender": "agent", "timestamp": "2024-03-15T10:05:00Z"}
			]}`))
	})

	msgs, err := c.FetchConversation(context.Background(), "42")
	if err != nil {
		t.Fatalf("FetchConversation: %v", err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[1].Body != "Hello" || msgs[1].Sender != protocol.SenderAgent || msgs[1].TicketID != "42" {
		t.Errorf("msgs[1] = %+v", msgs[1])
	}
}

func TestFetchConversationMissingMessages(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id": 7, "customer_name": "A", "subject": "S", "status": "closed", "timestamp": "2024-03-15T10:00:00Z"}`))
	})
	msgs, err := c.FetchConversation(context.Background(), "7")
	if err != nil {
		t.Fatalf("FetchConversation: %v", err)
	}
	if msgs == nil || len(msgs) != 0 {
		t.Errorf("msgs = %v, want empty", msgs)
	}
}

func TestSendReply(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/tickets/42/reply" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var req protocol.ReplyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.Sender != protocol.SenderAgent || req.Message != "Hello" {
			t.Errorf("body = %+v", req)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id": "m9", "ticketId": "42", "message": "Hello", "sender": "agent", "timestamp": "2024-03-15T10:00:00Z"}`))
	})

	m, err := c.SendReply(context.Background(), "42", "Hello")
	if err != nil {
		t.Fatalf("SendReply: %v", err)
	}
	if m.ID != "m9" {
		t.Errorf("ID = %q", m.ID)
	}
}

func TestUpdateStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/tickets/3/status" {
			t.Errorf("request = %s %s", r.Method, r.URL.Path)
		}
		var req protocol.StatusRequest
		json.NewDecoder(r.Body).Decode(&req)
		w.Write([]byte(`{"id": 3, "customer_name": "A", "subject": "S", "status": "` + string(req.Status) + `", "timestamp": "2024-03-15T10:00:00Z"}`))
	})

	tk, err := c.UpdateStatus(context.Background(), "3", protocol.TicketClosed)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if tk.Status != protocol.TicketClosed {
		t.Errorf("Status = %q", tk.Status)
	}

	if _, err := c.UpdateStatus(context.Background(), "3", "archived"); err == nil {
		t.Error("expected error for invalid status")
	}
}

func TestStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error": "ticket not found"}`))
	})

	_, err := c.GetTicket(context.Background(), "99")
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsNotFound(err) {
		t.Errorf("IsNotFound(%v) = false", err)
	}
	want := "get ticket: HTTP 404: ticket not found"
	if err.Error() != want {
		t.Errorf("error = %q, want %q", err.Error(), want)
	}
}

func TestServerErrorIsNotNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	_, err := c.SendReply(context.Background(), "1", "x")
	if err == nil {
		t.Fatal("expected error")
	}
	if IsNotFound(err) {
		t.Error("500 should not be reported as not found")
	}
	se, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("error type = %T", err)
	}
	if se.Code != 500 || se.Message != "boom" {
		t.Errorf("StatusError = %+v", se)
	}
}

func TestCanceledContext(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := c.ListTickets(ctx); err == nil {
		t.Error("expected error on canceled context")
	}
}

func TestDefaults(t *testing.T) {
	c := New()
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL = %q", c.BaseURL())
	}
}
