package server

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"

	"github.com/yourusername/duelnet/internal/protocol"
	"github.com/yourusername/duelnet/internal/transport"
)

// rejectTimeout bounds the write of the "server is full" notice
const rejectTimeout = time.Second

// Serve accepts TCP connections on ln until ctx is cancelled or ln fails.
// Each connection gets its own goroutine.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	s.logger.Info("listening", zap.Stringer("addr", ln.Addr()))

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				s.logger.Warn("accept timeout", zap.Error(err))
				continue
			}
			return err
		}

		transport.TuneTCP(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.Admit(conn, transport.KindTCP)
		}()
	}
}

// Admit binds t to a free slot and runs its read loop until it disconnects.
// When both slots are taken the peer gets an error frame and is closed.
func (s *Server) Admit(t transport.Transport, kind string) {
	c := newConn(t, kind, s.cfg.SendBuffer, s.cfg.WriteTimeout, s.logger)
	if err := s.broadcaster.claim(c); err != nil {
		s.reject(c, err)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		c.writePump()
	}()
	s.handle(c)
}

func (s *Server) reject(c *Conn, reason error) {
	switch {
	case errors.Is(reason, ErrCapacity):
		s.metrics.ConnectionsRejected.Inc()
		c.logger.Info("rejecting connection", zap.Error(reason))
	case errors.Is(reason, ErrShuttingDown):
		c.logger.Info("rejecting connection", zap.Error(reason))
	default:
		c.logger.Error("failed to admit connection", zap.Error(reason))
	}

	frame, err := protocol.EncodeMessage(protocol.ErrorMessage{Message: reason.Error()})
	if err == nil {
		_ = c.transport.SetWriteDeadline(time.Now().Add(rejectTimeout))
		_, _ = c.transport.Write(frame)
	}
	_ = c.Close()
}
