package tui

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/h1v3-io/inbox/internal/conversation"
	"github.com/h1v3-io/inbox/internal/desk"
	"github.com/h1v3-io/inbox/internal/inbox"
	"github.com/h1v3-io/inbox/internal/logbuf"
)

// bridge forwards store, cache and log notifications into the program.
// Notifications can fire from inside Update (a selection change starts a
// fetch synchronously), so Send always runs on its own goroutine.
type bridge struct {
	program atomic.Pointer[tea.Program]
}

func (b *bridge) send(msg tea.Msg) {
	if p := b.program.Load(); p != nil {
		go p.Send(msg)
	}
}

// Run starts the inbox TUI and blocks until the agent quits or ctx ends.
func Run(ctx context.Context, d *desk.Desk, opts ...Option) error {
	m := New(ctx, d, opts...)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	m.bridge.program.Store(p)

	d.Store().Subscribe(func(ev inbox.Event) {
		m.bridge.send(storeEventMsg{ev: ev})
	})
	d.Cache().OnUpdate(func(s conversation.Snapshot) {
		m.bridge.send(conversationMsg{snap: s})
	})
	if m.logs != nil {
		m.logs.Subscribe(slog.LevelWarn, func(e logbuf.Entry) {
			m.bridge.send(logEntryMsg{entry: e})
		})
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
