package game

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/duelnet/internal/protocol"
)

func TestApplyInputSparseMerge(t *testing.T) {
	s := NewStore()
	_, err := s.ApplyInput(protocol.Player1, protocol.Input{
		Move:   protocol.Ptr(-190),
		Action: protocol.Ptr(protocol.ActionPunch),
	})
	require.NoError(t, err)

	snap, err := s.ApplyInput(protocol.Player1, protocol.Input{Health: protocol.Ptr(40)})
	require.NoError(t, err)

	p := snap.Players[protocol.Player1]
	assert.Equal(t, 10.0, p.X)
	assert.Equal(t, protocol.ActionPunch, p.Action)
	assert.Equal(t, 40, p.Health)
	assert.True(t, p.FacingRight)

	assert.Equal(t, protocol.NewGameState().Players[protocol.Player2], snap.Players[protocol.Player2])
}

func TestApplyInputClampsHealthFloor(t *testing.T) {
	s := NewStore()
	snap, err := s.ApplyInput(protocol.Player2, protocol.Input{Health: protocol.Ptr(-20)})
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Players[protocol.Player2].Health)
}

// Only the floor is clamped. Over-100 values are stored as received; this
// pins the current contract rather than endorsing it.
func TestApplyInputHealthAboveMaxPassesThrough(t *testing.T) {
	s := NewStore()
	snap, err := s.ApplyInput(protocol.Player1, protocol.Input{Health: protocol.Ptr(999)})
	require.NoError(t, err)
	assert.Equal(t, 999, snap.Players[protocol.Player1].Health)
}

func TestApplyInputUnknownPlayer(t *testing.T) {
	s := NewStore()
	_, err := s.ApplyInput("player3", protocol.Input{Move: protocol.Ptr(1)})
	assert.Error(t, err)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore()
	snap := s.Snapshot()
	p := snap.Players[protocol.Player1]
	p.X = -1
	snap.Players[protocol.Player1] = p

	assert.Equal(t, 200.0, s.Snapshot().Players[protocol.Player1].X)
}

func TestMarkStartedOnlyOnce(t *testing.T) {
	s := NewStore()

	changed, snap := s.MarkStarted()
	assert.True(t, changed)
	assert.True(t, snap.Started)

	changed, snap = s.MarkStarted()
	assert.False(t, changed)
	assert.True(t, snap.Started)
}

func TestEliminateAndWinner(t *testing.T) {
	s := NewStore()
	_, ok := Winner(s.Snapshot())
	assert.False(t, ok)

	snap, err := s.Eliminate(protocol.Player1)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Players[protocol.Player1].Health)

	w, ok := Winner(snap)
	require.True(t, ok)
	assert.Equal(t, protocol.Player2, w)
}

func TestApplyInputConcurrentDeltas(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.ApplyInput(protocol.Player1, protocol.Input{Move: protocol.Ptr(5)})
		}()
		go func() {
			defer wg.Done()
			_, _ = s.ApplyInput(protocol.Player1, protocol.Input{Move: protocol.Ptr(-5)})
		}()
	}
	wg.Wait()
	assert.Equal(t, 200.0, s.Snapshot().Players[protocol.Player1].X)
}
