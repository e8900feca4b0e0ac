package inbox

import "github.com/h1v3-io/inbox/pkg/protocol"

// EventKind classifies a state change published by the Store.
type EventKind int

const (
	// EventTicketsLoaded follows a successful wholesale replace of the collection.
	EventTicketsLoaded EventKind = iota + 1
	// EventSelectionChanged fires only when the selected id actually changes.
	EventSelectionChanged
	// EventFilterChanged fires when the active status bucket changes.
	EventFilterChanged
	// EventTicketUpdated follows ApplyTicket.
	EventTicketUpdated
	// EventSendSucceeded is published after a reply was accepted by the service.
	EventSendSucceeded
	// EventLoadFailed follows a failed list load.
	EventLoadFailed
)

func (k EventKind) String() string {
	switch k {
	case EventTicketsLoaded:
		return "tickets_loaded"
	case EventSelectionChanged:
		return "selection_changed"
	case EventFilterChanged:
		return "filter_changed"
	case EventTicketUpdated:
		return "ticket_updated"
	case EventSendSucceeded:
		return "send_succeeded"
	case EventLoadFailed:
		return "load_failed"
	}
	return "unknown"
}

// Event describes one state transition. TicketID is the subject of the
// event (the newly selected id for EventSelectionChanged, empty when the
// selection was cleared); Previous is the id that was selected before.
type Event struct {
	Kind     EventKind
	TicketID protocol.ID
	Previous protocol.ID
	Status   protocol.TicketStatus
}

// Listener receives events. Listeners run synchronously on the goroutine
// that performed the mutation, after the Store lock has been released.
type Listener func(Event)
