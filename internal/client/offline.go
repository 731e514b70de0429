package client

import (
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/duelnet/internal/game"
	"github.com/yourusername/duelnet/internal/protocol"
)

// Link is what a front-end drives: a live Session or an OfflineSession.
type Link interface {
	PlayerID() protocol.PlayerID
	Snapshot() protocol.GameState
	Send(in protocol.Input)
	Connected() bool
	Started() bool
	OnEvent(callback func(Event))
	Close() error
}

var (
	_ Link = (*Session)(nil)
	_ Link = (*OfflineSession)(nil)
)

// OfflineSession is a local practice match used when no server answers.
// The player controls player1; the opponent stands still at its spawn.
type OfflineSession struct {
	store  *game.Store
	logger *zap.Logger

	mu            sync.RWMutex
	eventCallback func(Event)
}

func NewOfflineSession(logger *zap.Logger) *OfflineSession {
	if logger == nil {
		logger = zap.NewNop()
	}
	store := game.NewStore()
	store.MarkStarted()
	return &OfflineSession{store: store, logger: logger}
}

func (o *OfflineSession) PlayerID() protocol.PlayerID { return protocol.Player1 }

func (o *OfflineSession) Snapshot() protocol.GameState { return o.store.Snapshot() }

// Send applies in locally and reports the new state like a server would.
func (o *OfflineSession) Send(in protocol.Input) {
	gs, err := o.store.ApplyInput(protocol.Player1, in)
	if err != nil {
		o.logger.Error("failed to apply input", zap.Error(err))
		return
	}
	o.sendEvent(StateEvent{State: gs})
}

func (o *OfflineSession) Connected() bool { return false }

func (o *OfflineSession) Started() bool { return true }

func (o *OfflineSession) OnEvent(callback func(Event)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.eventCallback = callback
}

func (o *OfflineSession) Close() error { return nil }

func (o *OfflineSession) sendEvent(event Event) {
	o.mu.RLock()
	callback := o.eventCallback
	o.mu.RUnlock()

	if callback != nil {
		callback(event)
	}
}
