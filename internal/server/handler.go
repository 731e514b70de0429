package server

import (
	"go.uber.org/zap"

	"github.com/yourusername/duelnet/internal/protocol"
	"github.com/yourusername/duelnet/internal/transport"
)

// handle runs the read loop for an admitted connection and tears it down when
// the peer goes away. Malformed frames are dropped; the connection stays up.
func (s *Server) handle(c *Conn) {
	defer s.teardown(c)

	if !c.activate() {
		return
	}
	c.logger.Info("player connected")

	fr := protocol.NewFrameReader(c.transport)
	for {
		frames, err := fr.Next()
		for _, f := range frames {
			if !s.dispatch(c, f) {
				return
			}
		}
		if err != nil {
			if transport.IsClosed(err) || c.Closed() {
				c.logger.Info("peer closed connection")
			} else {
				c.logger.Warn("read failed", zap.Error(err))
			}
			return
		}
	}
}

// dispatch applies one inbound frame. It returns false once the connection
// no longer holds its slot.
func (s *Server) dispatch(c *Conn, f protocol.Frame) bool {
	if f.Err != nil {
		s.dropFrame(c, f.Err)
		return true
	}

	in, err := protocol.DecodeInput(f.Data)
	if err != nil {
		s.dropFrame(c, err)
		return true
	}

	if err := s.broadcaster.apply(c, in); err != nil {
		c.logger.Debug("input ignored", zap.Error(err))
		return false
	}
	return true
}

func (s *Server) dropFrame(c *Conn, err error) {
	s.metrics.FramesDropped.WithLabelValues(string(c.Slot)).Inc()
	c.logger.Warn("dropping malformed frame", zap.Error(err))
}

func (s *Server) teardown(c *Conn) {
	released := s.broadcaster.release(c)
	_ = c.Close()
	if released {
		c.logger.Info("player disconnected")
	}
}
