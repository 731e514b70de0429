package client

import "github.com/yourusername/duelnet/internal/protocol"

// Event represents events from a session
type Event interface {
	isEvent()
}

// ReadyEvent is sent once the server has assigned a slot
type ReadyEvent struct {
	PlayerID protocol.PlayerID
	State    protocol.GameState
}

func (ReadyEvent) isEvent() {}

// StateEvent carries a new authoritative snapshot
type StateEvent struct {
	State protocol.GameState
}

func (StateEvent) isEvent() {}

// GameStartEvent is sent when both players are in
type GameStartEvent struct{}

func (GameStartEvent) isEvent() {}

// PlayerDisconnectedEvent names the slot that left
type PlayerDisconnectedEvent struct {
	PlayerID protocol.PlayerID
}

func (PlayerDisconnectedEvent) isEvent() {}

// ServerErrorEvent is sent when the server reports an error
type ServerErrorEvent struct {
	Message string
}

func (ServerErrorEvent) isEvent() {}

// DisconnectedEvent is sent when connection is lost. Error is nil after Close.
type DisconnectedEvent struct {
	Error error
}

func (DisconnectedEvent) isEvent() {}
