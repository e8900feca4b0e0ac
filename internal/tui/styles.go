package tui

import "github.com/charmbracelet/lipgloss"

// Styles is the TUI color scheme.
type Styles struct {
	Tab         lipgloss.Style
	ActiveTab   lipgloss.Style
	Row         lipgloss.Style
	CursorRow   lipgloss.Style
	SelectedRow lipgloss.Style
	Initials    lipgloss.Style
	Faint       lipgloss.Style
	Pager       lipgloss.Style
	PagerActive lipgloss.Style
	Pane        lipgloss.Style
	PaneTitle   lipgloss.Style
	GroupHeader lipgloss.Style
	Customer    lipgloss.Style
	Agent       lipgloss.Style
	Error       lipgloss.Style
	Warn        lipgloss.Style
	Help        lipgloss.Style
}

// DefaultStyles is tuned for dark terminals.
func DefaultStyles() Styles {
	accent := lipgloss.Color("39")
	faint := lipgloss.Color("244")
	return Styles{
		Tab:         lipgloss.NewStyle().Padding(0, 1).Foreground(faint),
		ActiveTab:   lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(accent).Underline(true),
		Row:         lipgloss.NewStyle(),
		CursorRow:   lipgloss.NewStyle().Background(lipgloss.Color("236")),
		SelectedRow: lipgloss.NewStyle().Background(lipgloss.Color("24")).Bold(true),
		Initials:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(accent).Padding(0, 1),
		Faint:       lipgloss.NewStyle().Foreground(faint),
		Pager:       lipgloss.NewStyle().Foreground(faint).Padding(0, 1),
		PagerActive: lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1),
		Pane:        lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("238")).Padding(0, 1),
		PaneTitle:   lipgloss.NewStyle().Bold(true),
		GroupHeader: lipgloss.NewStyle().Foreground(faint).Italic(true),
		Customer:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		Agent:       lipgloss.NewStyle().Foreground(accent),
		Error:       lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		Warn:        lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		Help:        lipgloss.NewStyle().Foreground(faint),
	}
}
