// Package client connects a player to a match server and keeps a local copy
// of the authoritative state for the render loop.
package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/yourusername/duelnet/internal/config"
	"github.com/yourusername/duelnet/internal/protocol"
	"github.com/yourusername/duelnet/internal/transport"
)

// ErrTimeout is returned by Connect when the server never sent init.
var ErrTimeout = errors.New("timed out waiting for init")

// ConnectionError reports a failed connection attempt
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// RemoteError is an error frame sent by the server
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return "server: " + e.Message }

type options struct {
	dialTimeout  time.Duration
	initTimeout  time.Duration
	writeTimeout time.Duration
	sendBuffer   int
	logger       *zap.Logger
	onEvent      func(Event)
}

// Option configures Connect
type Option func(*options)

func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = d }
}

// WithInitTimeout bounds the wait for the server's init frame
func WithInitTimeout(d time.Duration) Option {
	return func(o *options) { o.initTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(o *options) { o.writeTimeout = d }
}

// WithSendBuffer sets how many inputs may wait for the writer before Send
// starts dropping them.
func WithSendBuffer(n int) Option {
	return func(o *options) { o.sendBuffer = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithEventHandler registers fn before the receive loop starts, so it also
// sees the ReadyEvent.
func WithEventHandler(fn func(Event)) Option {
	return func(o *options) { o.onEvent = fn }
}

// FromConfig maps client settings onto options
func FromConfig(cfg config.Client) []Option {
	return []Option{
		WithDialTimeout(cfg.DialTimeout),
		WithInitTimeout(cfg.InitTimeout),
		WithWriteTimeout(cfg.WriteTimeout),
		WithSendBuffer(cfg.SendBuffer),
	}
}

func newOptions(opts []Option) options {
	o := options{
		dialTimeout:  5 * time.Second,
		initTimeout:  config.DefaultInitTimeout,
		writeTimeout: 2 * time.Second,
		sendBuffer:   16,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.sendBuffer < 1 {
		o.sendBuffer = 1
	}
	return o
}

// Session is a live connection to a match server
type Session struct {
	addr      string
	transport transport.Transport
	state     *state
	opts      options
	logger    *zap.Logger

	mu            sync.RWMutex
	eventCallback func(Event)

	send chan []byte

	ready     chan struct{}
	readyOnce sync.Once
	initErr   error // set before ready closes when init never arrived

	closeOnce sync.Once
	closing   chan struct{}
	done      chan struct{} // receive loop exited
	written   chan struct{} // write pump exited
}

// Connect dials host:port over TCP and waits for the server to assign a slot.
// It returns a *ConnectionError when the server is unreachable or refuses
// the connection, and ErrTimeout when no init arrives in time.
func Connect(ctx context.Context, host string, port int, opts ...Option) (*Session, error) {
	o := newOptions(opts)
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	d := net.Dialer{Timeout: o.dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, &ConnectionError{Addr: addr, Err: err}
	}
	transport.TuneTCP(conn)

	return start(ctx, addr, conn, o)
}

// ConnectWebSocket is Connect over the server's WebSocket bridge.
func ConnectWebSocket(ctx context.Context, url string, opts ...Option) (*Session, error) {
	o := newOptions(opts)

	dialer := websocket.Dialer{
		HandshakeTimeout: o.dialTimeout,
	}
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, &ConnectionError{Addr: url, Err: err}
	}

	return start(ctx, url, transport.WebSocket(conn), o)
}

func start(ctx context.Context, addr string, t transport.Transport, o options) (*Session, error) {
	s := &Session{
		addr:          addr,
		transport:     t,
		state:         newState(),
		opts:          o,
		logger:        o.logger.With(zap.String("server", addr)),
		eventCallback: o.onEvent,
		send:          make(chan []byte, o.sendBuffer),
		ready:         make(chan struct{}),
		closing:       make(chan struct{}),
		done:          make(chan struct{}),
		written:       make(chan struct{}),
	}
	s.state.setConnected(true)
	go s.receiveLoop()
	go s.writePump()

	timer := time.NewTimer(o.initTimeout)
	defer timer.Stop()

	select {
	case <-s.ready:
		if s.initErr != nil {
			_ = s.Close()
			return nil, s.initErr
		}
		s.logger.Info("joined match", zap.Stringer("player", s.PlayerID()))
		return s, nil
	case <-timer.C:
		_ = s.Close()
		return nil, ErrTimeout
	case <-ctx.Done():
		_ = s.Close()
		return nil, ctx.Err()
	}
}

// OnEvent sets the callback for events
func (s *Session) OnEvent(callback func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eventCallback = callback
}

// Snapshot returns a copy of the last state received
func (s *Session) Snapshot() protocol.GameState { return s.state.snapshot() }

// PlayerID is the slot the server assigned
func (s *Session) PlayerID() protocol.PlayerID { return s.state.player() }

// Connected reports whether the connection is still up
func (s *Session) Connected() bool { return s.state.isConnected() }

// Started reports whether game_start (or a started snapshot) was seen
func (s *Session) Started() bool { return s.state.isStarted() }

// Send queues in for the server and never blocks. Delivery is best effort:
// inputs are dropped while the queue is full or the session is down, and a
// failed write marks the session disconnected.
func (s *Session) Send(in protocol.Input) {
	if !s.Connected() {
		return
	}

	frame, err := protocol.EncodeInput(in)
	if err != nil {
		s.logger.Error("failed to encode input", zap.Error(err))
		return
	}

	select {
	case s.send <- frame:
	default:
		s.logger.Debug("send queue full, dropping input")
	}
}

// Close closes the connection and waits for the receive loop and the writer
// to exit. It must not be called from an event callback.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closing)
		s.state.setConnected(false)
		err = s.transport.Close()
	})
	<-s.done
	<-s.written
	return err
}

// writePump drains the send queue until the session goes down
func (s *Session) writePump() {
	defer close(s.written)
	for {
		select {
		case <-s.closing:
			return
		case <-s.done:
			return

		case frame := <-s.send:
			if s.opts.writeTimeout > 0 {
				_ = s.transport.SetWriteDeadline(time.Now().Add(s.opts.writeTimeout))
			}
			if _, err := s.transport.Write(frame); err != nil {
				if !s.closedLocally() {
					s.logger.Warn("send failed, disconnecting", zap.Error(err))
				}
				s.state.setConnected(false)
				_ = s.transport.Close()
				return
			}
		}
	}
}

func (s *Session) receiveLoop() {
	var readErr error
	defer func() {
		s.state.setConnected(false)
		_ = s.transport.Close()
		s.markReady(&ConnectionError{Addr: s.addr, Err: disconnectCause(readErr)})
		if s.closedLocally() {
			readErr = nil
		}
		s.sendEvent(DisconnectedEvent{Error: readErr})
		close(s.done)
	}()

	fr := protocol.NewFrameReader(s.transport)
	for {
		frames, err := fr.Next()
		for _, f := range frames {
			s.handleFrame(f)
		}
		if err != nil {
			readErr = err
			if !transport.IsClosed(err) && !s.closedLocally() {
				s.logger.Warn("connection lost", zap.Error(err))
			}
			return
		}
	}
}

func (s *Session) handleFrame(f protocol.Frame) {
	if f.Err != nil {
		s.logger.Debug("dropping malformed frame", zap.Error(f.Err))
		return
	}

	msg, err := protocol.DecodeMessage(f.Data)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownMessage) {
			s.logger.Debug("ignoring message", zap.Error(err))
		} else {
			s.logger.Warn("dropping undecodable message", zap.Error(err))
		}
		return
	}

	switch m := msg.(type) {
	case protocol.Init:
		s.state.assign(m.PlayerID, m.GameState)
		s.markReady(nil)
		s.sendEvent(ReadyEvent{PlayerID: m.PlayerID, State: m.GameState.Clone()})

	case protocol.StateUpdate:
		s.state.update(m.GameState)
		s.sendEvent(StateEvent{State: m.GameState.Clone()})

	case protocol.GameStart:
		s.state.markStarted()
		s.sendEvent(GameStartEvent{})

	case protocol.PlayerDisconnected:
		s.logger.Info("opponent disconnected", zap.Stringer("player", m.PlayerID))
		s.sendEvent(PlayerDisconnectedEvent{PlayerID: m.PlayerID})

	case protocol.ErrorMessage:
		s.logger.Warn("server error", zap.String("message", m.Message))
		s.markReady(&ConnectionError{Addr: s.addr, Err: &RemoteError{Message: m.Message}})
		s.sendEvent(ServerErrorEvent{Message: m.Message})
	}
}

// markReady releases Connect. Only the first call has any effect.
func (s *Session) markReady(err error) {
	s.readyOnce.Do(func() {
		s.initErr = err
		close(s.ready)
	})
}

func (s *Session) closedLocally() bool {
	select {
	case <-s.closing:
		return true
	default:
		return false
	}
}

// sendEvent sends an event to the callback if set
func (s *Session) sendEvent(event Event) {
	s.mu.RLock()
	callback := s.eventCallback
	s.mu.RUnlock()

	if callback != nil {
		callback(event)
	}
}

func disconnectCause(err error) error {
	if err == nil || transport.IsClosed(err) {
		return errors.New("connection closed before init")
	}
	return err
}
