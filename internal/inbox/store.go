package inbox

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/h1v3-io/inbox/pkg/protocol"
)

// Loader fetches the full ticket collection from the remote service.
type Loader interface {
	ListTickets(ctx context.Context) ([]protocol.Ticket, error)
}

// LoadError records a failed list load. The previous collection stays in
// place; calling Load again is the retry.
type LoadError struct {
	Err error
	At  time.Time
}

func (e *LoadError) Error() string { return fmt.Sprintf("load tickets: %v", e.Err) }
func (e *LoadError) Unwrap() error { return e.Err }

// Store holds the ticket collection, the selection and the active status
// bucket. It is the single source of truth for ticket identity and status.
type Store struct {
	mu        sync.RWMutex
	tickets   []protocol.Ticket
	index     map[protocol.ID]int
	counts    protocol.StatusCounts
	selected  *protocol.Ticket
	active    protocol.TicketStatus
	loaded    bool
	loadErr   *LoadError
	listeners []Listener
	logger    *slog.Logger
	now       func() time.Time
}

// NewStore creates an empty store with the "open" bucket active.
func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		index:  make(map[protocol.ID]int),
		active: protocol.TicketOpen,
		logger: logger,
		now:    time.Now,
	}
}

// Subscribe registers a listener for every subsequent event.
func (s *Store) Subscribe(l Listener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, l)
	s.mu.Unlock()
}

// Publish dispatches an event to all listeners. The Store publishes its own
// events; collaborators use this for events the Store cannot observe
// (a successful send).
func (s *Store) Publish(ev Event) {
	s.mu.RLock()
	listeners := make([]Listener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.RUnlock()

	for _, l := range listeners {
		l(ev)
	}
}

// Load fetches the collection through loader and replaces the current one.
// On failure the previous collection is kept and the error is recorded.
func (s *Store) Load(ctx context.Context, loader Loader) error {
	tickets, err := loader.ListTickets(ctx)
	if err != nil {
		loadErr := &LoadError{Err: err, At: s.now()}
		s.mu.Lock()
		s.loadErr = loadErr
		s.mu.Unlock()
		s.logger.Warn("ticket list load failed", "error", err)
		s.Publish(Event{Kind: EventLoadFailed})
		return loadErr
	}
	s.LoadTickets(tickets)
	return nil
}

// LoadTickets replaces the entire collection. Tickets failing validation or
// repeating an earlier id are dropped with a warning so the identity and
// status invariants hold for everything the store exposes.
func (s *Store) LoadTickets(list []protocol.Ticket) {
	tickets := make([]protocol.Ticket, 0, len(list))
	index := make(map[protocol.ID]int, len(list))
	for _, t := range list {
		if err := t.Validate(); err != nil {
			s.logger.Warn("dropping invalid ticket", "error", err)
			continue
		}
		if _, dup := index[t.ID]; dup {
			s.logger.Warn("dropping duplicate ticket", "ticket", t.ID)
			continue
		}
		index[t.ID] = len(tickets)
		tickets = append(tickets, t)
	}

	s.mu.Lock()
	s.tickets = tickets
	s.index = index
	s.counts = protocol.CountStatuses(tickets)
	s.loaded = true
	s.loadErr = nil
	if s.selected != nil {
		if i, ok := index[s.selected.ID]; ok {
			t := tickets[i]
			s.selected = &t
		}
	}
	s.mu.Unlock()

	s.logger.Debug("tickets loaded", "count", len(tickets))
	s.Publish(Event{Kind: EventTicketsLoaded})
}

// SetActiveStatus changes the filter bucket. Selection is untouched.
func (s *Store) SetActiveStatus(status protocol.TicketStatus) error {
	if !status.Valid() {
		return fmt.Errorf("inbox: invalid status %q", status)
	}
	s.mu.Lock()
	changed := s.active != status
	s.active = status
	s.mu.Unlock()

	if changed {
		s.Publish(Event{Kind: EventFilterChanged, Status: status})
	}
	return nil
}

// SelectTicket selects the ticket with the given id. An empty id clears the
// selection. Selecting the already selected ticket is a no-op and publishes
// nothing, so re-renders never trigger refetches.
func (s *Store) SelectTicket(id protocol.ID) error {
	s.mu.Lock()
	var next *protocol.Ticket
	if id != "" {
		i, ok := s.index[id]
		if !ok {
			s.mu.Unlock()
			return fmt.Errorf("inbox: ticket %q not found", id)
		}
		t := s.tickets[i]
		next = &t
	}

	var prev protocol.ID
	if s.selected != nil {
		prev = s.selected.ID
	}
	s.selected = next
	s.mu.Unlock()

	if prev == id {
		return nil
	}
	s.Publish(Event{Kind: EventSelectionChanged, TicketID: id, Previous: prev})
	return nil
}

// ClearSelection is SelectTicket("").
func (s *Store) ClearSelection() {
	s.SelectTicket("")
}

// ApplyTicket replaces one ticket in place, keeping collection order, and
// recomputes the counts. It reports false when the id is unknown.
func (s *Store) ApplyTicket(t protocol.Ticket) bool {
	if err := t.Validate(); err != nil {
		s.logger.Warn("ignoring invalid ticket update", "error", err)
		return false
	}

	s.mu.Lock()
	i, ok := s.index[t.ID]
	if !ok {
		s.mu.Unlock()
		return false
	}
	// Updates from the status endpoint carry no conversation.
	if t.Messages == nil {
		t.Messages = s.tickets[i].Messages
	}
	tickets := make([]protocol.Ticket, len(s.tickets))
	copy(tickets, s.tickets)
	tickets[i] = t
	s.tickets = tickets
	s.counts = protocol.CountStatuses(tickets)
	if s.selected != nil && s.selected.ID == t.ID {
		sel := t
		s.selected = &sel
	}
	s.mu.Unlock()

	s.Publish(Event{Kind: EventTicketUpdated, TicketID: t.ID, Status: t.Status})
	return true
}

// Tickets returns the collection in source order. The slice must not be modified.
func (s *Store) Tickets() []protocol.Ticket {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tickets
}

// Ticket looks up one ticket by id.
func (s *Store) Ticket(id protocol.ID) (protocol.Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return protocol.Ticket{}, false
	}
	return s.tickets[i], true
}

// Selected returns the selected ticket, or false when nothing is selected.
func (s *Store) Selected() (protocol.Ticket, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return protocol.Ticket{}, false
	}
	return *s.selected, true
}

// SelectedID returns the selected id, empty when nothing is selected.
func (s *Store) SelectedID() protocol.ID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return ""
	}
	return s.selected.ID
}

func (s *Store) ActiveStatus() protocol.TicketStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

func (s *Store) Counts() protocol.StatusCounts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts
}

// LoadErr returns the last list-load failure, nil after a successful load.
func (s *Store) LoadErr() *LoadError {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadErr
}

// Loaded reports whether at least one load has succeeded.
func (s *Store) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}
