package view

import (
	"testing"
	"time"

	"github.com/h1v3-io/inbox/pkg/protocol"
)

func TestInitials(t *testing.T) {
	cases := map[string]string{
		"John Smith":         "JS",
		"jennifer  martinez": "JM",
		"Cher":               "C",
		"":                   "",
	}
	for in, want := range cases {
		if got := Initials(in); got != want {
			t.Errorf("Initials(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)
	if got := RelativeTime(now.Add(-2*time.Hour), now); got != "2 hours ago" {
		t.Errorf("RelativeTime = %q", got)
	}
	if got := RelativeTime(time.Time{}, now); got != "" {
		t.Errorf("zero time = %q", got)
	}
}

func TestStatusLabel(t *testing.T) {
	if got := StatusLabel(protocol.TicketPending); got != "Pending" {
		t.Errorf("StatusLabel = %q", got)
	}
}
