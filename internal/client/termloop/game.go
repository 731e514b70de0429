// Package termloop is the full-screen termloop front-end for a session.
package termloop

import (
	"time"

	tl "github.com/JoelOtter/termloop"
	"go.uber.org/zap"

	"github.com/yourusername/duelnet/internal/client"
	"github.com/yourusername/duelnet/internal/game"
	"github.com/yourusername/duelnet/internal/protocol"
)

const (
	fps          = 30
	attackLength = 300 * time.Millisecond
	groundRow    = 6
)

// Game manages the termloop game instance
type Game struct {
	game   *tl.Game
	level  *tl.BaseLevel
	link   client.Link
	logger *zap.Logger
}

// New creates a termloop game driving link. Esc quits.
func New(link client.Link, logger *zap.Logger) *Game {
	if logger == nil {
		logger = zap.NewNop()
	}

	g := tl.NewGame()
	g.Screen().SetFps(fps)
	g.SetEndKey(tl.KeyEsc)

	level := tl.NewBaseLevel(tl.Cell{
		Bg: tl.ColorBlack,
		Fg: tl.ColorWhite,
		Ch: ' ',
	})
	g.Screen().SetLevel(level)

	tg := &Game{game: g, level: level, link: link, logger: logger}
	level.AddEntity(newArena(link, logger))
	return tg
}

// Run blocks until the player quits
func (g *Game) Run() {
	g.game.Start()
}

// arena draws the match from the latest snapshot and turns key presses into
// inputs for the local slot.
type arena struct {
	link     client.Link
	logger   *zap.Logger
	attackAt time.Time
	over     bool
}

func newArena(link client.Link, logger *zap.Logger) *arena {
	return &arena{link: link, logger: logger}
}

// Tick handles input for the local player
func (a *arena) Tick(event tl.Event) {
	if event.Type != tl.EventKey || a.over || !a.link.Started() {
		return
	}
	in, ok := client.Controls(a.link.PlayerID(), keyName(event))
	if !ok {
		return
	}
	a.link.Send(in)
	if in.Attacking != nil && *in.Attacking {
		a.attackAt = time.Now()
	}
}

// Draw renders the frame and ends a finished attack
func (a *arena) Draw(screen *tl.Screen) {
	if !a.attackAt.IsZero() && time.Since(a.attackAt) >= attackLength {
		a.attackAt = time.Time{}
		a.link.Send(client.Idle())
	}

	gs := a.link.Snapshot()
	width, _ := screen.Size()
	local := a.link.PlayerID()

	drawText(screen, 0, 0, statusLine(a.link), tl.ColorWhite)

	for i, id := range protocol.PlayerIDs {
		p := gs.Players[id]
		color := tl.ColorCyan
		if id == local {
			color = tl.ColorGreen
		}
		drawText(screen, 0, 2+i, client.HealthLabel(id, p)+" "+client.HealthBar(p.Health, 20), color)
	}

	for x := 0; x < width; x++ {
		screen.RenderCell(x, groundRow+1, &tl.Cell{Fg: tl.ColorYellow, Ch: '▀'})
	}
	if !gs.Started && !a.link.Started() {
		drawText(screen, 0, groundRow, "waiting for an opponent...", tl.ColorWhite)
	} else {
		for _, id := range protocol.PlayerIDs {
			p := gs.Players[id]
			color := tl.ColorCyan
			if id == local {
				color = tl.ColorGreen
			}
			if p.Attacking {
				color = tl.ColorRed
			}
			screen.RenderCell(client.Column(p.X, width), groundRow, &tl.Cell{Fg: color, Ch: client.FighterGlyph(p)})
		}
	}

	if winner, ok := game.Winner(gs); ok {
		if !a.over {
			a.logger.Info("match over", zap.Stringer("winner", winner))
		}
		a.over = true
		drawText(screen, 0, groundRow+3, winner.String()+" wins - esc to quit", tl.ColorYellow)
	} else {
		drawText(screen, 0, groundRow+3, client.HelpText(local), tl.ColorWhite)
	}
}

func statusLine(link client.Link) string {
	if _, offline := link.(*client.OfflineSession); offline {
		return "Offline practice"
	}
	if link.Connected() {
		return "Connected as " + link.PlayerID().String()
	}
	return "Disconnected"
}

func drawText(screen *tl.Screen, x, y int, text string, fg tl.Attr) {
	for i, ch := range []rune(text) {
		screen.RenderCell(x+i, y, &tl.Cell{Fg: fg, Ch: ch})
	}
}

// keyName spells a termloop key event the way Controls expects
func keyName(event tl.Event) string {
	switch event.Key {
	case tl.KeyArrowLeft:
		return "left"
	case tl.KeyArrowRight:
		return "right"
	}
	if event.Ch != 0 {
		return string(event.Ch)
	}
	return ""
}
