package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/yourusername/duelnet/internal/client"
	"github.com/yourusername/duelnet/internal/game"
	"github.com/yourusername/duelnet/internal/protocol"
)

// ViewState represents the current view in the TUI
type ViewState int

const (
	ViewWaiting ViewState = iota // connected, opponent not in yet
	ViewFight
	ViewOver
)

// Model is the main Bubble Tea model
type Model struct {
	viewState ViewState
	link      client.Link
	eventChan chan client.Event // Channel for session events
	logger    *zap.Logger

	snapshot  protocol.GameState
	width     int
	height    int
	frame     int // spinner
	attackSeq int
	notice    string
	err       error
}

// NewModel creates a model driving link. Events from the link are pushed to
// a channel the model listens on.
func NewModel(link client.Link, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	eventChan := make(chan client.Event, 64)

	// snapshots are also pulled every tick, so a full channel only delays the view
	link.OnEvent(func(event client.Event) {
		select {
		case eventChan <- event:
		default:
		}
	})

	m := Model{
		viewState: ViewWaiting,
		link:      link,
		eventChan: eventChan,
		logger:    logger,
		snapshot:  link.Snapshot(),
		width:     80,
		height:    24,
	}
	if link.Started() {
		m.viewState = ViewFight
	}
	return m
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		listenForEventsCmd(m.eventChan),
	)
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.updateKey(msg)

	case idleMsg:
		if msg.seq == m.attackSeq && m.viewState == ViewFight {
			m.link.Send(client.Idle())
		}
		return m, nil

	case tickMsg:
		m.frame++
		m.refresh(m.link.Snapshot())
		return m, tickCmd()

	case sessionEventMsg:
		m.handleSessionEvent(msg.event)
		return m, listenForEventsCmd(m.eventChan)
	}

	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc", "q":
		return m, tea.Quit
	}

	if m.viewState != ViewFight {
		return m, nil
	}
	in, ok := client.Controls(m.link.PlayerID(), msg.String())
	if !ok {
		return m, nil
	}
	m.link.Send(in)
	if in.Attacking != nil && *in.Attacking {
		m.attackSeq++
		return m, idleCmd(m.attackSeq)
	}
	return m, nil
}

// refresh adopts a new snapshot and moves between views
func (m *Model) refresh(gs protocol.GameState) {
	m.snapshot = gs
	if m.viewState == ViewWaiting && (gs.Started || m.link.Started()) {
		m.viewState = ViewFight
	}
	if m.viewState == ViewFight {
		if winner, ok := game.Winner(gs); ok {
			m.logger.Info("match over", zap.Stringer("winner", winner))
			m.viewState = ViewOver
		}
	}
}

func (m *Model) handleSessionEvent(event client.Event) {
	switch e := event.(type) {
	case client.ReadyEvent:
		m.refresh(e.State)

	case client.StateEvent:
		m.refresh(e.State)

	case client.GameStartEvent:
		m.notice = ""
		if m.viewState == ViewWaiting {
			m.viewState = ViewFight
		}

	case client.PlayerDisconnectedEvent:
		m.notice = e.PlayerID.String() + " left the match"

	case client.ServerErrorEvent:
		m.notice = "server: " + e.Message

	case client.DisconnectedEvent:
		m.err = e.Error
		if m.err == nil {
			m.notice = "disconnected"
		}
	}
}

// View renders the current view
func (m Model) View() string {
	switch m.viewState {
	case ViewWaiting:
		return m.viewWaiting()
	default:
		return m.viewFight()
	}
}
