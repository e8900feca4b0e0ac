package desk

import (
	"github.com/h1v3-io/inbox/internal/conversation"
	"github.com/h1v3-io/inbox/internal/view"
	"github.com/h1v3-io/inbox/pkg/protocol"
)

// PanelState is the conversation panel lifecycle.
type PanelState int

const (
	PanelNoSelection PanelState = iota
	PanelLoading
	PanelLoaded
	PanelFailed
)

func (s PanelState) String() string {
	switch s {
	case PanelNoSelection:
		return "no_selection"
	case PanelLoading:
		return "loading"
	case PanelLoaded:
		return "loaded"
	case PanelFailed:
		return "failed"
	}
	return "unknown"
}

// PanelView is what the conversation panel renders. Groups may hold the
// previous conversation while a refetch is loading.
type PanelView struct {
	State  PanelState
	Ticket protocol.Ticket
	Groups []view.Group
	Err    error
}

// Panel returns the conversation panel for the selected ticket. It never
// shows a conversation belonging to another ticket.
func (d *Desk) Panel() PanelView {
	t, ok := d.store.Selected()
	if !ok {
		return PanelView{State: PanelNoSelection}
	}

	snap := d.cache.Peek(t.ID)
	if needsFetch(snap) {
		snap = d.cache.Get(t.ID)
	}

	pv := PanelView{Ticket: t}
	if snap.Messages != nil {
		// Same order as deskctl tickets show: ascending by timestamp.
		msgs := append([]protocol.Message(nil), snap.Messages...)
		view.SortMessages(msgs)
		pv.Groups = view.GroupMessages(msgs, d.grouping)
	}
	switch snap.State {
	case conversation.StateLoaded:
		pv.State = PanelLoaded
	case conversation.StateFailed:
		pv.State = PanelFailed
		pv.Err = snap.Err
	default:
		pv.State = PanelLoading
	}
	return pv
}

// needsFetch reports whether the panel should start a fetch: nothing has
// been requested yet, or a loaded conversation was invalidated without a
// refetch following it.
func needsFetch(snap conversation.Snapshot) bool {
	return snap.State == conversation.StateIdle ||
		(snap.State == conversation.StateLoaded && snap.Stale)
}
