package protocol

import (
	"fmt"
	"time"
)

// Sender identifies which side of the conversation wrote a message.
type Sender string

const (
	SenderCustomer Sender = "customer"
	SenderAgent    Sender = "agent"
)

// Valid reports whether s is a known sender role.
func (s Sender) Valid() bool {
	return s == SenderCustomer || s == SenderAgent
}

// Message is one utterance in a ticket's conversation.
type Message struct {
	ID        ID        `json:"id"`
	TicketID  ID        `json:"ticketId"`
	Body      string    `json:"message"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// ReplyRequest is the body of POST /tickets/{id}/reply.
type ReplyRequest struct {
	Sender  Sender `json:"sender"`
	Message string `json:"message"`
}

// Validate checks that the reply carries text and a known sender.
func (r *ReplyRequest) Validate() error {
	if r.Message == "" {
		return fmt.Errorf("message is required")
	}
	if !r.Sender.Valid() {
		return fmt.Errorf("invalid sender %q", r.Sender)
	}
	return nil
}
