package client

import (
	"fmt"
	"strings"

	"github.com/yourusername/duelnet/internal/protocol"
)

// WorldWidth is the span of x coordinates drawn across the arena row
const WorldWidth = 1000.0

// Column maps a world x coordinate onto one of cols terminal columns
func Column(x float64, cols int) int {
	if cols <= 1 {
		return 0
	}
	c := int(x / WorldWidth * float64(cols))
	return min(max(c, 0), cols-1)
}

// FighterGlyph shows which way a fighter faces, and whether it is mid-attack
func FighterGlyph(p protocol.PlayerState) rune {
	switch {
	case p.Attacking && p.FacingRight:
		return '⊳'
	case p.Attacking:
		return '⊲'
	case p.FacingRight:
		return '>'
	default:
		return '<'
	}
}

// HealthBar renders health as a bar of width cells. Health above MaxHealth
// fills the bar.
func HealthBar(health, width int) string {
	filled := health * width / protocol.MaxHealth
	filled = min(max(filled, 0), width)
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func HealthLabel(id protocol.PlayerID, p protocol.PlayerState) string {
	return fmt.Sprintf("%s %3d", id, p.Health)
}
