package client

import "github.com/yourusername/duelnet/internal/protocol"

// MoveStep is how far one key press moves a fighter
const MoveStep = 5

type keymap struct {
	left, right, punch, kick string
}

// player1 plays on the left of the keyboard, player2 on the arrows
var keymaps = map[protocol.PlayerID]keymap{
	protocol.Player1: {left: "a", right: "d", punch: "f", kick: "g"},
	protocol.Player2: {left: "left", right: "right", punch: "l", kick: "k"},
}

// Controls maps a key name, as bubbletea spells it, to the input it produces
// for slot id. ok is false for keys that do nothing.
func Controls(id protocol.PlayerID, key string) (in protocol.Input, ok bool) {
	km, found := keymaps[id]
	if !found {
		return protocol.Input{}, false
	}

	switch key {
	case km.left:
		return protocol.Input{Move: protocol.Ptr(-MoveStep), FacingRight: protocol.Ptr(false)}, true
	case km.right:
		return protocol.Input{Move: protocol.Ptr(MoveStep), FacingRight: protocol.Ptr(true)}, true
	case km.punch:
		return protocol.Input{Action: protocol.Ptr(protocol.ActionPunch), Attacking: protocol.Ptr(true)}, true
	case km.kick:
		return protocol.Input{Action: protocol.Ptr(protocol.ActionKick), Attacking: protocol.Ptr(true)}, true
	}
	return protocol.Input{}, false
}

// Idle ends an attack. Terminals report no key releases, so front-ends send
// it a short while after an attack key.
func Idle() protocol.Input {
	return protocol.Input{Action: protocol.Ptr(protocol.ActionIdle), Attacking: protocol.Ptr(false)}
}

// HelpText describes the keys for slot id
func HelpText(id protocol.PlayerID) string {
	km := keymaps[id]
	if km.left == "" {
		return ""
	}
	return "move " + km.left + "/" + km.right + "  punch " + km.punch + "  kick " + km.kick + "  quit esc"
}
