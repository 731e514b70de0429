package ui

import (
	"strings"

	"github.com/yourusername/duelnet/internal/client"
	"github.com/yourusername/duelnet/internal/protocol"
)

// renderArena draws the ground row with both fighters on it. When both land
// on the same column player2 is drawn one column over.
func renderArena(gs protocol.GameState, cols int) string {
	if cols < 2 {
		cols = 2
	}
	row := []rune(strings.Repeat("_", cols))

	taken := -1
	for _, id := range protocol.PlayerIDs {
		p, ok := gs.Players[id]
		if !ok {
			continue
		}
		c := client.Column(p.X, cols)
		if c == taken {
			if c+1 < cols {
				c++
			} else {
				c--
			}
		}
		row[c] = client.FighterGlyph(p)
		taken = c
	}
	return string(row)
}
