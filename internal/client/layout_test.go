package client

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yourusername/duelnet/internal/protocol"
)

func TestColumn(t *testing.T) {
	assert.Equal(t, 0, Column(-50, 10))
	assert.Equal(t, 9, Column(5000, 10))
	assert.Equal(t, 5, Column(500, 10))
	assert.Equal(t, 16, Column(200, 80))
	assert.Equal(t, 0, Column(700, 1))
}

func TestHealthBar(t *testing.T) {
	assert.Equal(t, "█████░░░░░", HealthBar(50, 10))
	assert.Equal(t, "░░░░░░░░░░", HealthBar(0, 10))
	assert.Equal(t, "██████████", HealthBar(250, 10))
	assert.Equal(t, "██░░", HealthBar(50, 4))
}

func TestFighterGlyph(t *testing.T) {
	assert.Equal(t, '<', FighterGlyph(protocol.PlayerState{}))
	assert.Equal(t, '>', FighterGlyph(protocol.PlayerState{FacingRight: true}))
	assert.Equal(t, '⊲', FighterGlyph(protocol.PlayerState{Attacking: true}))
	assert.Equal(t, '⊳', FighterGlyph(protocol.PlayerState{Attacking: true, FacingRight: true}))
}

func TestHealthLabel(t *testing.T) {
	assert.Equal(t, "player1  80", HealthLabel(protocol.Player1, protocol.PlayerState{Health: 80}))
}
