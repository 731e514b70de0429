// Package transport adapts the stream connections the server and client
// speak newline-delimited frames over.
package transport

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is a byte stream to one peer
type Transport interface {
	io.ReadWriteCloser
	SetWriteDeadline(t time.Time) error
	RemoteAddr() net.Addr
}

const (
	KindTCP       = "tcp"
	KindWebSocket = "ws"
)

// TuneTCP turns off send coalescing so small input frames go out immediately.
func TuneTCP(c net.Conn) {
	if tc, ok := c.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
}

// WebSocket wraps a WebSocket connection as a byte stream. Each Write is sent
// as one text message; reads concatenate incoming messages, so frames may be
// split or batched across messages exactly as on a TCP stream.
func WebSocket(conn *websocket.Conn) Transport {
	return &wsStream{conn: conn}
}

type wsStream struct {
	conn    *websocket.Conn
	reader  io.Reader
	writeMu sync.Mutex
}

func (s *wsStream) Read(p []byte) (int, error) {
	for {
		if s.reader == nil {
			_, r, err := s.conn.NextReader()
			if err != nil {
				return 0, normalizeCloseError(err)
			}
			s.reader = r
		}

		n, err := s.reader.Read(p)
		if errors.Is(err, io.EOF) {
			s.reader = nil
			if n > 0 {
				return n, nil
			}
			continue
		}
		return n, err
	}
}

func (s *wsStream) Write(p []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.conn.WriteMessage(websocket.TextMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close may run concurrently with a blocked Write; WriteControl and Close
// are safe to call alongside other methods.
func (s *wsStream) Close() error {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return s.conn.Close()
}

func (s *wsStream) SetWriteDeadline(t time.Time) error { return s.conn.SetWriteDeadline(t) }

func (s *wsStream) RemoteAddr() net.Addr { return s.conn.RemoteAddr() }

// normalizeCloseError maps an orderly WebSocket close onto io.EOF so callers
// can treat both transports alike.
func normalizeCloseError(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
		return io.EOF
	}
	return err
}

// IsClosed reports whether err means the peer went away or the stream was closed locally.
func IsClosed(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe)
}
