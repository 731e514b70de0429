package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/yourusername/duelnet/internal/client"
	"github.com/yourusername/duelnet/internal/game"
	"github.com/yourusername/duelnet/internal/protocol"
)

const healthBarWidth = 20

// viewFight renders health bars, the arena and the connection status
func (m Model) viewFight() string {
	local := m.link.PlayerID()

	bars := make([]string, 0, len(protocol.PlayerIDs))
	for _, id := range protocol.PlayerIDs {
		p := m.snapshot.Players[id]
		style := healthFullStyle
		if p.Health <= protocol.MaxHealth/4 {
			style = healthLowStyle
		}
		label := mutedStyle.Render(client.HealthLabel(id, p))
		if id == local {
			label = localFighterStyle.Render(client.HealthLabel(id, p))
		}
		bars = append(bars, label+" "+style.Render(client.HealthBar(p.Health, healthBarWidth)))
	}
	header := lipgloss.JoinHorizontal(lipgloss.Top, bars[0], "    ", bars[1])

	arenaCols := max(m.width-6, 10)
	arena := arenaStyle.Render(opponentFighterStyle.Render(renderArena(m.snapshot, arenaCols)))

	var banner string
	if m.viewState == ViewOver {
		if winner, ok := game.Winner(m.snapshot); ok {
			text := winner.String() + " wins"
			if winner == local {
				text = "You win"
			}
			banner = bannerStyle.Render(text)
		}
	}

	mainContent := lipgloss.JoinVertical(lipgloss.Center, header, arena, banner)

	instructions := instructionStyle.Render(m.status() + "  •  " + mutedStyle.Render(client.HelpText(local)))

	centeredMain := lipgloss.Place(m.width, m.height-5, lipgloss.Center, lipgloss.Center, mainContent)
	bottomInstructions := lipgloss.Place(m.width, 3, lipgloss.Center, lipgloss.Bottom, instructions)

	return centeredMain + "\n" + bottomInstructions
}

func (m Model) status() string {
	var s string
	switch {
	case m.err != nil:
		s = errorStyle.Render("Disconnected: " + m.err.Error())
	case m.link.Connected():
		s = highlightStyle.Render("Connected as " + m.link.PlayerID().String())
	case m.notice == "disconnected":
		s = errorStyle.Render("Disconnected")
	default:
		s = mutedStyle.Render("Offline practice")
	}
	if m.notice != "" && m.notice != "disconnected" {
		s += "  " + mutedStyle.Render(m.notice)
	}
	return s
}
