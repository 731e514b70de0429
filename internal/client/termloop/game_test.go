package termloop

import (
	"testing"

	tl "github.com/JoelOtter/termloop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yourusername/duelnet/internal/client"
	"github.com/yourusername/duelnet/internal/protocol"
)

func TestKeyName(t *testing.T) {
	assert.Equal(t, "left", keyName(tl.Event{Type: tl.EventKey, Key: tl.KeyArrowLeft}))
	assert.Equal(t, "right", keyName(tl.Event{Type: tl.EventKey, Key: tl.KeyArrowRight}))
	assert.Equal(t, "f", keyName(tl.Event{Type: tl.EventKey, Ch: 'f'}))
	assert.Equal(t, "", keyName(tl.Event{Type: tl.EventKey, Key: tl.KeyEnter}))
}

func TestArenaSendsOfflineInput(t *testing.T) {
	link := client.NewOfflineSession(zap.NewNop())
	a := newArena(link, zap.NewNop())

	a.Tick(tl.Event{Type: tl.EventKey, Ch: 'a'})
	a.Tick(tl.Event{Type: tl.EventKey, Ch: 'a'})
	a.Tick(tl.Event{Type: tl.EventKey, Key: tl.KeyArrowRight}) // player2's key

	p1 := link.Snapshot().Players[protocol.Player1]
	assert.Equal(t, 190.0, p1.X)
	assert.False(t, p1.FacingRight)

	a.Tick(tl.Event{Type: tl.EventKey, Ch: 'g'})
	require.False(t, a.attackAt.IsZero())
	assert.Equal(t, protocol.ActionKick, link.Snapshot().Players[protocol.Player1].Action)
}

func TestStatusLine(t *testing.T) {
	assert.Equal(t, "Offline practice", statusLine(client.NewOfflineSession(nil)))
}
