package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yourusername/duelnet/internal/protocol"
	"github.com/yourusername/duelnet/internal/transport"
)

// ConnState is where a connection is in its lifecycle
type ConnState int32

const (
	StateHandshake ConnState = iota // slot claimed, init queued, no input accepted
	StateActive                     // reading and applying input
	StateClosed                     // terminal
)

func (s ConnState) String() string {
	switch s {
	case StateHandshake:
		return "handshake"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Conn is one admitted peer bound to a player slot
type Conn struct {
	ID   string
	Slot protocol.PlayerID
	Kind string // transport.KindTCP or transport.KindWebSocket

	transport    transport.Transport
	send         chan []byte
	writeTimeout time.Duration
	state        atomic.Int32

	closeOnce sync.Once
	closed    chan struct{}

	logger *zap.Logger
}

func newConn(t transport.Transport, kind string, sendBuffer int, writeTimeout time.Duration, logger *zap.Logger) *Conn {
	id := uuid.New().String()
	c := &Conn{
		ID:           id,
		Kind:         kind,
		transport:    t,
		send:         make(chan []byte, sendBuffer),
		writeTimeout: writeTimeout,
		closed:       make(chan struct{}),
		logger: logger.With(
			zap.String("conn", id),
			zap.String("transport", kind),
			zap.Stringer("remote", t.RemoteAddr()),
		),
	}
	c.state.Store(int32(StateHandshake))
	return c
}

// State returns the current lifecycle state
func (c *Conn) State() ConnState {
	return ConnState(c.state.Load())
}

func (c *Conn) setState(s ConnState) {
	c.state.Store(int32(s))
}

// activate moves a handshaking connection to Active. It fails when the
// connection was closed first.
func (c *Conn) activate() bool {
	return c.state.CompareAndSwap(int32(StateHandshake), int32(StateActive))
}

// enqueue hands a frame to the write pump without blocking. It returns false
// when the queue is full or the connection is already closed.
func (c *Conn) enqueue(frame []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close closes the transport. The owning handler sees the failed read and
// runs teardown.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.setState(StateClosed)
		close(c.closed)
		err = c.transport.Close()
	})
	return err
}

// Closed reports whether Close has been called
func (c *Conn) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// writePump pumps queued frames to the transport
func (c *Conn) writePump() {
	for {
		select {
		case <-c.closed:
			return

		case frame := <-c.send:
			if c.writeTimeout > 0 {
				_ = c.transport.SetWriteDeadline(time.Now().Add(c.writeTimeout))
			}
			if _, err := c.transport.Write(frame); err != nil {
				if !c.Closed() {
					c.logger.Warn("write failed, dropping connection", zap.Error(err))
				}
				_ = c.Close()
				return
			}
		}
	}
}
