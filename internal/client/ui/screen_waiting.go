package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// viewWaiting renders the screen shown until the second player joins
func (m Model) viewWaiting() string {
	title := titleStyle.Render("DUELNET")
	subtitle := subtitleStyle.Render("Joined as " + m.link.PlayerID().String())

	dots := strings.Repeat(".", m.frame%4)
	spinner := spinnerStyle.Render(string([]rune("◐◓◑◒")[m.frame%4]))
	waiting := lipgloss.NewStyle().
		Foreground(mutedColor).
		Render("Waiting for an opponent" + dots)

	var errorMsg string
	if m.err != nil {
		errorMsg = errorStyle.Render("\n\n✗ Connection lost: " + m.err.Error())
	} else if m.notice != "" {
		errorMsg = mutedStyle.Render("\n\n" + m.notice)
	}

	mainContent := lipgloss.JoinVertical(
		lipgloss.Center,
		title,
		subtitle,
		"\n",
		spinner+" "+waiting,
		errorMsg,
	)

	instructions := instructionStyle.Render(mutedStyle.Render("ESC to quit"))

	centeredMain := lipgloss.Place(m.width, m.height-5, lipgloss.Center, lipgloss.Center, mainContent)
	bottomInstructions := lipgloss.Place(m.width, 3, lipgloss.Center, lipgloss.Bottom, instructions)

	return centeredMain + "\n" + bottomInstructions
}
