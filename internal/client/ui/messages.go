package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/yourusername/duelnet/internal/client"
)

// sessionEventMsg wraps events from the session
type sessionEventMsg struct {
	event client.Event
}

// tickMsg is sent periodically to redraw from the latest snapshot
type tickMsg time.Time

// idleMsg ends an attack started at the given sequence number
type idleMsg struct {
	seq int
}

const (
	frameInterval = 100 * time.Millisecond
	attackLength  = 300 * time.Millisecond
)

// listenForEventsCmd waits for the next session event
func listenForEventsCmd(events <-chan client.Event) tea.Cmd {
	return func() tea.Msg {
		event, ok := <-events
		if !ok {
			return nil
		}
		return sessionEventMsg{event: event}
	}
}

// tickCmd returns a command that sends tick messages for redraws
func tickCmd() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func idleCmd(seq int) tea.Cmd {
	return tea.Tick(attackLength, func(time.Time) tea.Msg {
		return idleMsg{seq: seq}
	})
}
