package server

import (
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/yourusername/duelnet/internal/game"
	"github.com/yourusername/duelnet/internal/metrics"
	"github.com/yourusername/duelnet/internal/protocol"
)

var (
	// ErrCapacity is returned when both slots are already held.
	ErrCapacity = errors.New("server is full")

	// ErrNotActive is returned when input arrives on a connection that no
	// longer holds its slot.
	ErrNotActive = errors.New("connection is not active")

	// ErrShuttingDown is returned for peers that arrive after closeAll.
	ErrShuttingDown = errors.New("server is shutting down")
)

// Broadcaster owns the slot table and fans snapshots out to every active
// connection. Its mutex also serializes each "mutate, then fan out" step so
// broadcasts leave in the same order inputs were applied. Only non-blocking
// queue sends happen under it; the store lock is held just for the merge.
type Broadcaster struct {
	mu      sync.Mutex
	slots   map[protocol.PlayerID]*Conn
	store   *game.Store
	metrics *metrics.Metrics
	logger  *zap.Logger
	closed  bool
}

// NewBroadcaster creates a broadcaster over store
func NewBroadcaster(store *game.Store, m *metrics.Metrics, logger *zap.Logger) *Broadcaster {
	return &Broadcaster{
		slots:   make(map[protocol.PlayerID]*Conn, len(protocol.PlayerIDs)),
		store:   store,
		metrics: m,
		logger:  logger,
	}
}

// FanOut sends msg to every active connection
func (b *Broadcaster) FanOut(msg protocol.ServerMessage) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fanOutLocked(msg)
}

// fanOutLocked encodes msg once and queues it on every slot. A connection
// whose queue is full is closed; its handler tears it down. Delivery to the
// other slot continues regardless.
func (b *Broadcaster) fanOutLocked(msg protocol.ServerMessage) {
	frame, err := protocol.EncodeMessage(msg)
	if err != nil {
		b.logger.Error("failed to encode broadcast", zap.String("type", string(msg.Type())), zap.Error(err))
		return
	}

	for _, id := range protocol.PlayerIDs {
		c, ok := b.slots[id]
		if !ok {
			continue
		}
		if c.enqueue(frame) {
			b.metrics.FramesBroadcast.WithLabelValues(string(msg.Type())).Inc()
			continue
		}
		if !c.Closed() {
			b.metrics.SlowConsumers.Inc()
			c.logger.Warn("send queue full, dropping connection", zap.Stringer("player", id))
		}
		_ = c.Close()
	}
}

// claim binds c to the lowest free slot and queues its init frame. When this
// fills the second slot the match starts: game_started flips (once) and
// game_start goes to both players.
func (b *Broadcaster) claim(c *Conn) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return ErrShuttingDown
	}

	var slot protocol.PlayerID
	for _, id := range protocol.PlayerIDs {
		if _, taken := b.slots[id]; !taken {
			slot = id
			break
		}
	}
	if slot == "" {
		return ErrCapacity
	}

	c.Slot = slot
	c.logger = c.logger.With(zap.Stringer("player", slot))
	b.slots[slot] = c
	b.metrics.ActiveConnections.Inc()
	b.metrics.ConnectionsAccepted.WithLabelValues(c.Kind).Inc()

	frame, err := protocol.EncodeMessage(protocol.Init{PlayerID: slot, GameState: b.store.Snapshot()})
	if err != nil {
		delete(b.slots, slot)
		b.metrics.ActiveConnections.Dec()
		return err
	}
	c.enqueue(frame)

	if len(b.slots) == len(protocol.PlayerIDs) {
		if changed, _ := b.store.MarkStarted(); changed {
			b.logger.Info("both players connected, starting match")
			b.fanOutLocked(protocol.GameStart{})
		}
	}
	return nil
}

// apply merges in for c's slot and broadcasts the resulting snapshot.
func (b *Broadcaster) apply(c *Conn, in protocol.Input) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.slots[c.Slot] != c || c.State() != StateActive {
		return ErrNotActive
	}

	snapshot, err := b.store.ApplyInput(c.Slot, in)
	if err != nil {
		return err
	}
	b.metrics.InputsApplied.WithLabelValues(string(c.Slot)).Inc()
	b.fanOutLocked(protocol.StateUpdate{GameState: snapshot})
	return nil
}

// release frees c's slot, eliminates its player and tells the remaining
// peer. It reports false when c did not hold a slot.
func (b *Broadcaster) release(c *Conn) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.slots[c.Slot] != c {
		return false
	}
	delete(b.slots, c.Slot)
	b.metrics.ActiveConnections.Dec()

	snapshot, err := b.store.Eliminate(c.Slot)
	if err != nil {
		b.logger.Error("failed to eliminate player", zap.Stringer("player", c.Slot), zap.Error(err))
		return true
	}
	b.fanOutLocked(protocol.PlayerDisconnected{PlayerID: c.Slot})
	b.fanOutLocked(protocol.StateUpdate{GameState: snapshot})
	return true
}

// Active lists the slots currently held, in slot order
func (b *Broadcaster) Active() []protocol.PlayerID {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []protocol.PlayerID
	for _, id := range protocol.PlayerIDs {
		if _, ok := b.slots[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// closeAll closes every active connection and refuses later claims.
// Handlers run their own teardown.
func (b *Broadcaster) closeAll() {
	b.mu.Lock()
	b.closed = true
	conns := make([]*Conn, 0, len(b.slots))
	for _, c := range b.slots {
		conns = append(conns, c)
	}
	b.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}
