package client

import (
	"sync"

	"github.com/yourusername/duelnet/internal/protocol"
)

// state is the client's last known view of the match
type state struct {
	mu        sync.RWMutex
	current   protocol.GameState
	playerID  protocol.PlayerID
	started   bool
	connected bool
}

func newState() *state {
	return &state{current: protocol.NewGameState()}
}

func (s *state) assign(id protocol.PlayerID, gs protocol.GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.playerID = id
	s.current = gs
	s.started = s.started || gs.Started
}

func (s *state) update(gs protocol.GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = gs
	s.started = s.started || gs.Started
}

func (s *state) markStarted() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = true
	s.current.Started = true
}

func (s *state) setConnected(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = v
}

// snapshot returns a copy safe to hand to the render loop
func (s *state) snapshot() protocol.GameState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

func (s *state) player() protocol.PlayerID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.playerID
}

func (s *state) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func (s *state) isConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}
