// Package tui is the interactive inbox: status tabs, a paginated ticket
// list, the selected ticket's conversation and a reply composer.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/h1v3-io/inbox/internal/conversation"
	"github.com/h1v3-io/inbox/internal/desk"
	"github.com/h1v3-io/inbox/internal/inbox"
	"github.com/h1v3-io/inbox/internal/logbuf"
	"github.com/h1v3-io/inbox/internal/view"
	"github.com/h1v3-io/inbox/pkg/protocol"
)

// noticeFadeDelay is how long a status-line notice stays visible.
const noticeFadeDelay = 5 * time.Second

type focus int

const (
	focusList focus = iota
	focusSearch
	focusCompose
)

// Messages delivered to Update. The bridge ones only trigger a re-render:
// the view always reads current state from the desk.
type (
	refreshedMsg     struct{ err error }
	sentMsg          struct{ err error }
	statusUpdatedMsg struct {
		ticket *protocol.Ticket
		err    error
	}
	storeEventMsg   struct{ ev inbox.Event }
	conversationMsg struct{ snap conversation.Snapshot }
	logEntryMsg     struct{ entry logbuf.Entry }
	noticeFadeMsg   struct{ seq int }
)

// Model is the bubbletea model of the inbox.
type Model struct {
	desk   *desk.Desk
	keys   KeyMap
	styles Styles
	ctx    context.Context
	now    func() time.Time
	logs   *logbuf.Buffer
	bridge *bridge

	list     view.ListState
	cursor   int
	focus    focus
	search   textinput.Model
	composer textinput.Model

	notice      string
	noticeLevel slog.Level
	noticeSeq   int

	width  int
	height int
}

// Option configures a Model.
type Option func(*Model)

func WithKeyMap(k KeyMap) Option {
	return func(m *Model) { m.keys = k }
}

func WithStyles(s Styles) Option {
	return func(m *Model) { m.styles = s }
}

// WithPageSize sets the initial page size. Sizes other than 10, 20 or 50
// fall back to the default.
func WithPageSize(n int) Option {
	return func(m *Model) {
		if view.ValidPageSize(n) {
			m.list.SetPageSize(n)
		}
	}
}

// WithLogBuffer shows warn+ records written to buf in the status line.
func WithLogBuffer(buf *logbuf.Buffer) Option {
	return func(m *Model) { m.logs = buf }
}

// New creates the inbox model. ctx bounds every service call the model
// makes.
func New(ctx context.Context, d *desk.Desk, opts ...Option) *Model {
	search := textinput.New()
	search.Prompt = "/ "
	search.Placeholder = "search customer or subject"
	search.CharLimit = 128

	composer := textinput.New()
	composer.Prompt = "> "
	composer.Placeholder = "write a reply"
	composer.CharLimit = 4096

	m := &Model{
		desk:     d,
		keys:     DefaultKeyMap,
		styles:   DefaultStyles(),
		ctx:      ctx,
		now:      time.Now,
		bridge:   &bridge{},
		list:     view.NewListState(view.DefaultPageSize),
		search:   search,
		composer: composer,
		width:    100,
		height:   30,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.desk.Store().SetActiveStatus(m.list.Status)
	return m
}

func (m *Model) Init() tea.Cmd {
	return m.refreshCmd()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case refreshedMsg:
		if msg.err != nil {
			return m, m.setNotice("Could not load tickets: "+errorText(msg.err), slog.LevelError)
		}
		m.clamp()
		return m, nil

	case sentMsg:
		if msg.err != nil {
			// The composer keeps what the agent wrote.
			if errors.Is(msg.err, desk.ErrEmptyMessage) {
				return m, nil
			}
			return m, m.setNotice("Reply not sent: "+errorText(msg.err), slog.LevelError)
		}
		m.composer.SetValue(m.desk.Draft())
		return m, m.setNotice("Reply sent", slog.LevelInfo)

	case statusUpdatedMsg:
		if msg.err != nil {
			return m, m.setNotice("Status not changed: "+errorText(msg.err), slog.LevelError)
		}
		m.clamp()
		return m, m.setNotice("Ticket #"+msg.ticket.ID.String()+" is now "+view.StatusLabel(msg.ticket.Status), slog.LevelInfo)

	case storeEventMsg:
		switch msg.ev.Kind {
		case inbox.EventTicketsLoaded, inbox.EventTicketUpdated:
			m.clamp()
		}
		return m, nil

	case conversationMsg:
		return m, nil

	case logEntryMsg:
		return m, m.setNotice(msg.entry.Message, logbuf.ParseLevel(msg.entry.Level))

	case noticeFadeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m, tea.Quit
	}
	switch m.focus {
	case focusSearch:
		return m.handleSearchKey(msg)
	case focusCompose:
		return m.handleComposeKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.TabOpen):
		m.setStatus(protocol.TicketOpen)
	case key.Matches(msg, m.keys.TabPending):
		m.setStatus(protocol.TicketPending)
	case key.Matches(msg, m.keys.TabClosed):
		m.setStatus(protocol.TicketClosed)
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.page().Items)-1 {
			m.cursor++
		}
	case key.Matches(msg, m.keys.PrevPage):
		if m.list.GoTo(m.list.Page-1, m.page().TotalPages) {
			m.cursor = 0
		}
	case key.Matches(msg, m.keys.NextPage):
		if m.list.GoTo(m.list.Page+1, m.page().TotalPages) {
			m.cursor = 0
		}
	case key.Matches(msg, m.keys.PageSize):
		m.list.SetPageSize(nextPageSize(m.list.PageSize))
		m.cursor = 0
	case key.Matches(msg, m.keys.Search):
		m.focus = focusSearch
		return m, m.search.Focus()
	case key.Matches(msg, m.keys.Select):
		items := m.page().Items
		if m.cursor < len(items) {
			if err := m.desk.Select(items[m.cursor].ID); err != nil {
				return m, m.setNotice(errorText(err), slog.LevelWarn)
			}
		}
	case key.Matches(msg, m.keys.Compose):
		if m.desk.Store().SelectedID() == "" {
			return m, m.setNotice("Select a ticket first", slog.LevelWarn)
		}
		m.focus = focusCompose
		return m, m.composer.Focus()
	case key.Matches(msg, m.keys.Cancel):
		m.desk.ClearSelection()
	case key.Matches(msg, m.keys.Status):
		if t, ok := m.desk.Store().Selected(); ok {
			return m, m.updateStatusCmd(t.ID, nextStatus(t.Status))
		}
	case key.Matches(msg, m.keys.Retry):
		return m, m.retryCmd()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshCmd()
	}
	return m, nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.search.SetValue("")
		m.list.SetQuery("")
		m.cursor = 0
		m.search.Blur()
		m.focus = focusList
		return m, nil
	case key.Matches(msg, m.keys.Select):
		m.search.Blur()
		m.focus = focusList
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if q := m.search.Value(); q != m.list.Query {
		m.list.SetQuery(q)
		m.cursor = 0
	}
	return m, cmd
}

func (m *Model) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		m.composer.Blur()
		m.focus = focusList
		return m, nil
	case key.Matches(msg, m.keys.Send):
		if strings.TrimSpace(m.composer.Value()) == "" || m.desk.Sending() {
			return m, nil
		}
		m.desk.SetDraft(m.composer.Value())
		return m, m.sendCmd()
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	m.desk.SetDraft(m.composer.Value())
	return m, cmd
}

func (m *Model) setStatus(s protocol.TicketStatus) {
	m.list.SetStatus(s)
	m.desk.Store().SetActiveStatus(s)
	m.cursor = 0
}

func (m *Model) page() view.Page {
	return m.desk.List(m.list)
}

// clamp keeps the page and cursor inside the matching set after the
// collection changed underneath them.
func (m *Model) clamp() {
	p := m.page()
	if m.list.Page > p.TotalPages {
		m.list.Clamp(p.TotalPages)
		p = m.page()
	}
	if m.cursor >= len(p.Items) {
		m.cursor = max(0, len(p.Items)-1)
	}
}

func (m *Model) setNotice(text string, level slog.Level) tea.Cmd {
	m.notice = text
	m.noticeLevel = level
	m.noticeSeq++
	seq := m.noticeSeq
	return tea.Tick(noticeFadeDelay, func(time.Time) tea.Msg {
		return noticeFadeMsg{seq: seq}
	})
}

func (m *Model) refreshCmd() tea.Cmd {
	d, ctx := m.desk, m.ctx
	return func() tea.Msg {
		return refreshedMsg{err: d.Refresh(ctx)}
	}
}

func (m *Model) retryCmd() tea.Cmd {
	d, ctx := m.desk, m.ctx
	return func() tea.Msg {
		return refreshedMsg{err: d.Retry(ctx)}
	}
}

func (m *Model) sendCmd() tea.Cmd {
	d, ctx := m.desk, m.ctx
	return func() tea.Msg {
		return sentMsg{err: d.Send(ctx)}
	}
}

func (m *Model) updateStatusCmd(id protocol.ID, status protocol.TicketStatus) tea.Cmd {
	d, ctx := m.desk, m.ctx
	return func() tea.Msg {
		t, err := d.UpdateStatus(ctx, id, status)
		return statusUpdatedMsg{ticket: t, err: err}
	}
}

func nextPageSize(cur int) int {
	for i, n := range view.PageSizes {
		if n == cur {
			return view.PageSizes[(i+1)%len(view.PageSizes)]
		}
	}
	return view.PageSizes[0]
}

func nextStatus(s protocol.TicketStatus) protocol.TicketStatus {
	for i, st := range protocol.Statuses {
		if st == s {
			return protocol.Statuses[(i+1)%len(protocol.Statuses)]
		}
	}
	return protocol.TicketOpen
}

// errorText drops the wrapping prefixes that mean nothing to an agent.
func errorText(err error) string {
	var se *desk.SendError
	if errors.As(err, &se) {
		err = se.Err
	}
	var le *inbox.LoadError
	if errors.As(err, &le) {
		err = le.Err
	}
	return err.Error()
}
