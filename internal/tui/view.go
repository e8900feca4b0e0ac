package tui

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/h1v3-io/inbox/internal/desk"
	"github.com/h1v3-io/inbox/internal/view"
	"github.com/h1v3-io/inbox/pkg/protocol"
)

// View renders the tab bar, the list and conversation panes and the
// status line.
func (m *Model) View() string {
	store := m.desk.Store()
	if !store.Loaded() {
		if err := store.LoadErr(); err != nil {
			return m.styles.Error.Render("Could not load tickets: "+errorText(err)) +
				"\n" + m.styles.Help.Render("R retry  q quit")
		}
		return "Loading tickets..."
	}

	page := m.page()
	sections := []string{
		m.renderTabs(),
		lipgloss.JoinHorizontal(lipgloss.Top, m.renderList(page), m.renderConversation()),
		m.renderPager(page),
		m.renderStatusLine(),
	}
	return strings.Join(sections, "\n")
}

func (m *Model) listWidth() int {
	return max(30, m.width*2/5)
}

func (m *Model) paneWidth() int {
	return max(30, m.width-m.listWidth()-1)
}

// bodyHeight is the rows left for the panes after the tab bar, pager and
// status line.
func (m *Model) bodyHeight() int {
	return max(5, m.height-4)
}

func (m *Model) renderTabs() string {
	counts := m.desk.Counts()
	var tabs []string
	for i, s := range protocol.Statuses {
		label := fmt.Sprintf("%d %s (%d)", i+1, view.StatusLabel(s), counts.Get(s))
		if s == m.list.Status {
			tabs = append(tabs, m.styles.ActiveTab.Render(label))
		} else {
			tabs = append(tabs, m.styles.Tab.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) renderList(page view.Page) string {
	width := m.listWidth()
	style := lipgloss.NewStyle().Width(width).Height(m.bodyHeight())

	if len(page.Items) == 0 {
		empty := "No " + string(m.list.Status) + " tickets"
		if m.list.Query != "" {
			empty = fmt.Sprintf("No %s tickets match %q", m.list.Status, m.list.Query)
		}
		return style.Render(m.styles.Faint.Render(empty))
	}

	selected := m.desk.Store().SelectedID()
	now := m.now()
	rows := make([]string, 0, len(page.Items))
	for i, t := range page.Items {
		initials := m.styles.Initials.Render(ansi.Truncate(view.Initials(t.CustomerName), 2, ""))
		when := view.RelativeTime(t.Timestamp, now)
		textWidth := max(8, width-lipgloss.Width(initials)-lipgloss.Width(when)-3)
		line := fmt.Sprintf("%s %s %s",
			initials,
			ansi.Truncate(t.CustomerName+": "+t.Subject, textWidth, "…"),
			m.styles.Faint.Render(when))

		rowStyle := m.styles.Row
		switch {
		case t.ID == selected:
			rowStyle = m.styles.SelectedRow
		case i == m.cursor && m.focus == focusList:
			rowStyle = m.styles.CursorRow
		}
		rows = append(rows, rowStyle.Width(width).Render(line))
	}
	return style.Render(strings.Join(rows, "\n"))
}

func (m *Model) renderPager(page view.Page) string {
	if page.TotalPages == 0 {
		return m.styles.Faint.Render(fmt.Sprintf("0 tickets  %d per page", page.PageSize))
	}
	var parts []string
	for _, n := range view.PageNumbers(page.Page, page.TotalPages, 3) {
		switch n {
		case view.Ellipsis:
			parts = append(parts, m.styles.Pager.Render("…"))
		case page.Page:
			parts = append(parts, m.styles.PagerActive.Render(strconv.Itoa(n)))
		default:
			parts = append(parts, m.styles.Pager.Render(strconv.Itoa(n)))
		}
	}
	summary := m.styles.Faint.Render(fmt.Sprintf("  %d tickets  %d per page", page.Matching, page.PageSize))
	pager := lipgloss.JoinHorizontal(lipgloss.Top, parts...) + summary
	if m.focus == focusSearch || m.list.Query != "" {
		pager += "  " + m.search.View()
	}
	return pager
}

func (m *Model) renderConversation() string {
	width := m.paneWidth()
	inner := width - 4
	pane := m.styles.Pane.Width(width - 2).Height(m.bodyHeight() - 2)

	pv := m.desk.Panel()
	if pv.State == desk.PanelNoSelection {
		return pane.Render(m.styles.Faint.Render("Select a ticket to view the conversation."))
	}

	t := pv.Ticket
	lines := []string{
		m.styles.PaneTitle.Render(ansi.Truncate("#"+t.ID.String()+" "+t.Subject, inner, "…")),
		m.styles.Faint.Render(t.CustomerName + " · " + view.StatusLabel(t.Status)),
		"",
	}

	switch {
	case pv.State == desk.PanelFailed:
		lines = append(lines, m.styles.Error.Render("Could not load conversation: "+errorText(pv.Err)),
			m.styles.Help.Render("R retry"))
	case pv.State == desk.PanelLoading && len(pv.Groups) == 0:
		lines = append(lines, m.styles.Faint.Render("Loading conversation..."))
	case pv.State == desk.PanelLoaded && len(pv.Groups) == 0:
		lines = append(lines, m.styles.Faint.Render("No messages yet."))
	default:
		body := lipgloss.NewStyle().Width(inner)
		for _, g := range pv.Groups {
			lines = append(lines, m.styles.GroupHeader.Render(g.Key))
			for _, msg := range g.Messages {
				if msg.Sender == protocol.SenderAgent {
					lines = append(lines, m.styles.Agent.Render("You"), body.Render(msg.Body))
				} else {
					lines = append(lines, m.styles.Customer.Bold(true).Render(t.CustomerName), body.Render(msg.Body))
				}
			}
			lines = append(lines, "")
		}
		if pv.State == desk.PanelLoading {
			lines = append(lines, m.styles.Faint.Render("Refreshing..."))
		}
	}

	// Keep the newest messages in view.
	avail := m.bodyHeight() - 4
	content := strings.Split(strings.Join(lines, "\n"), "\n")
	if len(content) > avail && avail > 3 {
		content = append(content[:3], content[len(content)-(avail-3):]...)
	}

	composer := m.composer.View()
	if m.desk.Sending() {
		composer = m.styles.Faint.Render("Sending...")
	}
	return pane.Render(strings.Join(content, "\n") + "\n" + composer)
}

func (m *Model) renderStatusLine() string {
	if m.notice != "" {
		switch {
		case m.noticeLevel >= slog.LevelError:
			return m.styles.Error.Render(m.notice)
		case m.noticeLevel >= slog.LevelWarn:
			return m.styles.Warn.Render(m.notice)
		default:
			return m.styles.Faint.Render(m.notice)
		}
	}
	return m.styles.Help.Render(m.helpText())
}

func (m *Model) helpText() string {
	k := m.keys
	var bindings []string
	switch m.focus {
	case focusSearch:
		bindings = []string{help(k.Select), "Esc clear"}
	case focusCompose:
		bindings = []string{help(k.Send), help(k.Cancel)}
	default:
		bindings = []string{
			"1/2/3 tabs", help(k.Up), help(k.Down), help(k.Select), help(k.Compose),
			help(k.Search), "[/] page", help(k.PageSize), help(k.Status),
			help(k.Retry), "Esc close", help(k.Quit),
		}
	}
	return strings.Join(bindings, "  ")
}

func help(b key.Binding) string {
	h := b.Help()
	return h.Key + " " + h.Desc
}
