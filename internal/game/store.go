// Package game owns the authoritative match state.
package game

import (
	"fmt"
	"sync"

	"github.com/yourusername/duelnet/internal/protocol"
)

// Store serializes every read and write of the match state behind one lock.
// Callers only ever see copies; the lock is never held across I/O.
type Store struct {
	mu    sync.Mutex
	state protocol.GameState
}

// NewStore creates a store with both fighters at their spawn points
func NewStore() *Store {
	return &Store{state: protocol.NewGameState()}
}

// ApplyInput merges the present fields of in into the player's state and
// returns a snapshot of the whole match.
func (s *Store) ApplyInput(id protocol.PlayerID, in protocol.Input) (protocol.GameState, error) {
	if !id.Valid() {
		return protocol.GameState{}, fmt.Errorf("apply input: unknown player %q", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.Players[id] = in.Apply(s.state.Players[id])
	return s.state.Clone(), nil
}

// Snapshot returns a copy of the current state
func (s *Store) Snapshot() protocol.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// MarkStarted flips the started flag. changed is true only the first time.
func (s *Store) MarkStarted() (changed bool, snapshot protocol.GameState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed = !s.state.Started
	s.state.Started = true
	return changed, s.state.Clone()
}

// Eliminate drops a player's health to zero. Used when its connection closes.
func (s *Store) Eliminate(id protocol.PlayerID) (protocol.GameState, error) {
	return s.ApplyInput(id, protocol.Input{Health: protocol.Ptr(protocol.MinHealth)})
}

// Winner inspects a snapshot: a player wins when its opponent's health is
// zero and its own is not.
func Winner(gs protocol.GameState) (protocol.PlayerID, bool) {
	for _, id := range protocol.PlayerIDs {
		self, ok := gs.Players[id]
		other, ok2 := gs.Players[id.Opponent()]
		if ok && ok2 && self.Health > 0 && other.Health <= 0 {
			return id, true
		}
	}
	return "", false
}
