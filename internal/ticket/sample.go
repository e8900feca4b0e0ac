package ticket

import (
	"strconv"
	"time"

	"github.com/h1v3-io/inbox/pkg/protocol"
)

type sample struct {
	name, subject string
	status        protocol.TicketStatus
	updated       time.Duration // before now
}

var samples = []sample{
	{"John Smith", "Unable to reset password", protocol.TicketOpen, 30 * time.Minute},
	{"Emily Johnson", "Payment failed on checkout", protocol.TicketOpen, 2 * time.Hour},
	{"Michael Brown", "Cannot access premium features", protocol.TicketOpen, 4 * time.Hour},
	{"Sarah Wilson", "Missing order confirmation", protocol.TicketPending, 12 * time.Hour},
	{"David Lee", "Subscription renewal issue", protocol.TicketPending, 18 * time.Hour},
	{"Jennifer Martinez", "App crashes on startup", protocol.TicketClosed, 24 * time.Hour},
	{"Robert Taylor", "Feature request: dark mode", protocol.TicketClosed, 48 * time.Hour},
	{"Lisa Anderson", "Billing address update", protocol.TicketClosed, 72 * time.Hour},
	{"James Wilson", "Login issues after update", protocol.TicketOpen, 1 * time.Hour},
	{"Patricia Moore", "Cannot download invoice", protocol.TicketPending, 6 * time.Hour},
	{"Thomas Jackson", "Product not as described", protocol.TicketOpen, 8 * time.Hour},
	{"Jessica White", "Refund not processed", protocol.TicketPending, 10 * time.Hour},
	{"Daniel Harris", "Account locked out", protocol.TicketClosed, 96 * time.Hour},
	{"Nancy Clark", "Missing attachment in email", protocol.TicketClosed, 120 * time.Hour},
	{"Christopher Lewis", "Website navigation issues", protocol.TicketClosed, 144 * time.Hour},
}

type sampleMessage struct {
	sender protocol.Sender
	ago    time.Duration
	body   string
}

var passwordResetConversation = []sampleMessage{
	{protocol.SenderCustomer, 2 * time.Hour, "I'm trying to reset my password but I'm not receiving the reset email. Can you help?"},
	{protocol.SenderAgent, 90 * time.Minute, "I'd be happy to help you with that. Could you please confirm the email address you're using for your account?"},
	{protocol.SenderCustomer, 1 * time.Hour, "It's john.smith@example.com. I've checked my spam folder too, but there's nothing there."},
	{protocol.SenderAgent, 45 * time.Minute, "Thank you for confirming. I've manually triggered a password reset email to john.smith@example.com. Please check your inbox in the next few minutes. If you still don't receive it, we can try an alternative method."},
	{protocol.SenderCustomer, 30 * time.Minute, "I got the email this time, but when I enter the code, it says 'invalid code'. I've tried multiple times."},
}

// SampleTickets returns the demo data set relative to now: fifteen tickets
// (five open, four pending, six closed) with ids "1".."15", and a
// conversation for ticket "1".
func SampleTickets(now time.Time) []protocol.Ticket {
	now = now.UTC()
	out := make([]protocol.Ticket, len(samples))
	for i, s := range samples {
		out[i] = protocol.Ticket{
			ID:           protocol.ID(strconv.Itoa(i + 1)),
			CustomerName: s.name,
			Subject:      s.subject,
			Status:       s.status,
			Timestamp:    now.Add(-s.updated),
		}
	}
	msgs := make([]protocol.Message, len(passwordResetConversation))
	for i, m := range passwordResetConversation {
		msgs[i] = protocol.Message{
			ID:        protocol.ID("1-" + strconv.Itoa(i+1)),
			TicketID:  "1",
			Body:      m.body,
			Sender:    m.sender,
			Timestamp: now.Add(-m.ago),
		}
	}
	out[0].Messages = msgs
	return out
}
