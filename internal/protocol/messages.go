package protocol //handles communication protocol between client and server
// Wire message types and payloads
import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType defines the type of a server -> client message
type MessageType string

const (
	// Server -> Client
	MsgInit               MessageType = "init" // slot assignment + first snapshot
	MsgGameState          MessageType = "game_state"
	MsgGameStart          MessageType = "game_start"
	MsgPlayerDisconnected MessageType = "player_disconnected"
	MsgError              MessageType = "error"

	// Client -> Server frames carry no type, they are bare Input objects.
)

// ErrUnknownMessage is returned when a frame names a type this side does not know.
var ErrUnknownMessage = errors.New("unknown message type")

// PlayerID names one of the two fixed slots
type PlayerID string

const (
	Player1 PlayerID = "player1"
	Player2 PlayerID = "player2"
)

// PlayerIDs lists the slots in assignment order.
var PlayerIDs = [2]PlayerID{Player1, Player2}

// Valid reports whether id is one of the two slots.
func (id PlayerID) Valid() bool {
	return id == Player1 || id == Player2
}

// Opponent returns the other slot.
func (id PlayerID) Opponent() PlayerID {
	if id == Player1 {
		return Player2
	}
	return Player1
}

func (id PlayerID) String() string { return string(id) }

// Action is what a fighter is currently doing
type Action string

const (
	ActionIdle  Action = "idle"
	ActionPunch Action = "punch"
	ActionKick  Action = "kick"
)

// UnmarshalText rejects anything outside the three known actions.
func (a *Action) UnmarshalText(b []byte) error {
	switch v := Action(b); v {
	case ActionIdle, ActionPunch, ActionKick:
		*a = v
		return nil
	default:
		return fmt.Errorf("invalid action %q", string(b))
	}
}

const (
	MaxHealth = 100
	MinHealth = 0
)

// PlayerState is one fighter as seen by both clients
type PlayerState struct {
	X              float64 `json:"x"`
	Y              float64 `json:"y"`
	Health         int     `json:"health"`
	FacingRight    bool    `json:"facing_right"`
	Action         Action  `json:"action"`
	Attacking      bool    `json:"is_attacking"`
	AnimationFrame int     `json:"animation_frame"`
}

// GameState represents the shared state of the match
type GameState struct {
	Players map[PlayerID]PlayerState `json:"players"`
	Started bool                     `json:"game_started"`
}

// NewGameState returns the state both fighters spawn into.
func NewGameState() GameState {
	return GameState{
		Players: map[PlayerID]PlayerState{
			Player1: {X: 200, Y: 0, Health: MaxHealth, FacingRight: true, Action: ActionIdle},
			Player2: {X: 800, Y: 0, Health: MaxHealth, FacingRight: false, Action: ActionIdle},
		},
	}
}

// Clone returns a deep copy safe to hand to another goroutine.
func (g GameState) Clone() GameState {
	out := GameState{
		Players: make(map[PlayerID]PlayerState, len(g.Players)),
		Started: g.Started,
	}
	for id, p := range g.Players {
		out.Players[id] = p
	}
	return out
}

// Input is a sparse update sent by a client. Nil fields leave the
// corresponding PlayerState field untouched.
type Input struct {
	Move           *int    `json:"move,omitempty"` // delta applied to x
	Action         *Action `json:"action,omitempty"`
	FacingRight    *bool   `json:"facing_right,omitempty"`
	AnimationFrame *int    `json:"animation_frame,omitempty"`
	Health         *int    `json:"health,omitempty"`
	Attacking      *bool   `json:"is_attacking,omitempty"`
}

// Apply merges the present fields of in into p. Health is floored at zero;
// there is no upper clamp.
func (in Input) Apply(p PlayerState) PlayerState {
	if in.Move != nil {
		p.X += float64(*in.Move)
	}
	if in.Action != nil {
		p.Action = *in.Action
	}
	if in.FacingRight != nil {
		p.FacingRight = *in.FacingRight
	}
	if in.AnimationFrame != nil {
		p.AnimationFrame = *in.AnimationFrame
	}
	if in.Health != nil {
		p.Health = max(MinHealth, *in.Health)
	}
	if in.Attacking != nil {
		p.Attacking = *in.Attacking
	}
	return p
}

// Ptr is a helper for building Inputs in literals.
func Ptr[T any](v T) *T { return &v }

// ServerMessage is the closed set of messages a server sends.
type ServerMessage interface {
	Type() MessageType
	wire() wireMessage
}

// Init is the first frame on every admitted connection
type Init struct {
	PlayerID  PlayerID
	GameState GameState
}

// StateUpdate carries a full snapshot after every applied mutation
type StateUpdate struct {
	GameState GameState
}

// GameStart is sent once, when the second slot fills
type GameStart struct{}

// PlayerDisconnected names the slot whose connection closed
type PlayerDisconnected struct {
	PlayerID PlayerID
}

// ErrorMessage is fatal to the connection it is sent on
type ErrorMessage struct {
	Message string
}

func (Init) Type() MessageType               { return MsgInit }
func (StateUpdate) Type() MessageType        { return MsgGameState }
func (GameStart) Type() MessageType          { return MsgGameStart }
func (PlayerDisconnected) Type() MessageType { return MsgPlayerDisconnected }
func (ErrorMessage) Type() MessageType       { return MsgError }

// wireMessage is the flat JSON shape every server message shares.
type wireMessage struct {
	Type      MessageType `json:"type"`
	PlayerID  PlayerID    `json:"player_id,omitempty"`
	GameState *GameState  `json:"game_state,omitempty"`
	Message   string      `json:"message,omitempty"`
}

func (m Init) wire() wireMessage {
	return wireMessage{Type: MsgInit, PlayerID: m.PlayerID, GameState: &m.GameState}
}

func (m StateUpdate) wire() wireMessage {
	return wireMessage{Type: MsgGameState, GameState: &m.GameState}
}

func (GameStart) wire() wireMessage { return wireMessage{Type: MsgGameStart} }

func (m PlayerDisconnected) wire() wireMessage {
	return wireMessage{Type: MsgPlayerDisconnected, PlayerID: m.PlayerID}
}

func (m ErrorMessage) wire() wireMessage {
	return wireMessage{Type: MsgError, Message: m.Message}
}

// EncodeMessage encodes a server message as one newline-terminated frame
func EncodeMessage(msg ServerMessage) ([]byte, error) {
	return Encode(msg.wire())
}

// DecodeMessage decodes one frame into a server message
func DecodeMessage(frame []byte) (ServerMessage, error) {
	var w wireMessage
	if err := json.Unmarshal(frame, &w); err != nil {
		return nil, newProtocolError(frame, err)
	}

	switch w.Type {
	case MsgInit:
		if !w.PlayerID.Valid() || w.GameState == nil {
			return nil, newProtocolError(frame, errors.New("init without player_id or game_state"))
		}
		return Init{PlayerID: w.PlayerID, GameState: *w.GameState}, nil
	case MsgGameState:
		if w.GameState == nil {
			return nil, newProtocolError(frame, errors.New("game_state without payload"))
		}
		return StateUpdate{GameState: *w.GameState}, nil
	case MsgGameStart:
		return GameStart{}, nil
	case MsgPlayerDisconnected:
		return PlayerDisconnected{PlayerID: w.PlayerID}, nil
	case MsgError:
		return ErrorMessage{Message: w.Message}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMessage, w.Type)
	}
}

// DecodeInput decodes one client frame. Anything that is not a JSON object
// with correctly typed fields is a ProtocolError.
func DecodeInput(frame []byte) (Input, error) {
	var in Input
	if err := json.Unmarshal(frame, &in); err != nil {
		return Input{}, newProtocolError(frame, err)
	}
	return in, nil
}

// EncodeInput encodes a client input frame
func EncodeInput(in Input) ([]byte, error) {
	return Encode(in)
}
