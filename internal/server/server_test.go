package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/yourusername/duelnet/internal/config"
	"github.com/yourusername/duelnet/internal/protocol"
	"github.com/yourusername/duelnet/internal/transport"
)

const waitFor = 2 * time.Second

func startServer(t *testing.T) (*Server, string) {
	t.Helper()

	cfg := config.DefaultServer()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	s := New(cfg, zaptest.NewLogger(t))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
		sctx, stop := context.WithTimeout(context.Background(), waitFor)
		defer stop()
		require.NoError(t, s.Shutdown(sctx))
	})
	return s, ln.Addr().String()
}

// peer is a raw protocol client used to drive the server
type peer struct {
	t       *testing.T
	conn    transport.Transport
	fr      *protocol.FrameReader
	pending []protocol.Frame
}

func dialPeer(t *testing.T, addr string) *peer {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &peer{t: t, conn: conn, fr: protocol.NewFrameReader(conn)}
}

func (p *peer) send(raw string) {
	p.t.Helper()
	_, err := p.conn.Write([]byte(raw))
	require.NoError(p.t, err)
}

func (p *peer) next() protocol.ServerMessage {
	p.t.Helper()
	for len(p.pending) == 0 {
		if nc, ok := p.conn.(net.Conn); ok {
			_ = nc.SetReadDeadline(time.Now().Add(waitFor))
		}
		frames, err := p.fr.Next()
		p.pending = append(p.pending, frames...)
		if err != nil && len(p.pending) == 0 {
			require.NoError(p.t, err, "waiting for a frame")
		}
	}
	f := p.pending[0]
	p.pending = p.pending[1:]
	require.NoError(p.t, f.Err)
	msg, err := protocol.DecodeMessage(f.Data)
	require.NoError(p.t, err)
	return msg
}

func (p *peer) expectInit(want protocol.PlayerID) protocol.Init {
	p.t.Helper()
	msg := p.next()
	welcome, ok := msg.(protocol.Init)
	require.True(p.t, ok, "expected init, got %T", msg)
	require.Equal(p.t, want, welcome.PlayerID)
	return welcome
}

func (p *peer) expectState() protocol.GameState {
	p.t.Helper()
	msg := p.next()
	update, ok := msg.(protocol.StateUpdate)
	require.True(p.t, ok, "expected game_state, got %T", msg)
	return update.GameState
}

// joinBoth connects two peers and consumes their init and game_start frames
func joinBoth(t *testing.T, addr string) (*peer, *peer) {
	p1 := dialPeer(t, addr)
	p1.expectInit(protocol.Player1)
	p2 := dialPeer(t, addr)
	p2.expectInit(protocol.Player2)
	assert.Equal(t, protocol.GameStart{}, p1.next())
	assert.Equal(t, protocol.GameStart{}, p2.next())
	return p1, p2
}

func TestFirstPeerGetsSpawnSnapshot(t *testing.T) {
	_, addr := startServer(t)

	p1 := dialPeer(t, addr)
	welcome := p1.expectInit(protocol.Player1)

	assert.False(t, welcome.GameState.Started)
	require.Len(t, welcome.GameState.Players, 2)
	assert.Equal(t, 200.0, welcome.GameState.Players[protocol.Player1].X)
	assert.Equal(t, 800.0, welcome.GameState.Players[protocol.Player2].X)
	assert.Equal(t, protocol.MaxHealth, welcome.GameState.Players[protocol.Player1].Health)
}

func TestSecondPeerStartsMatch(t *testing.T) {
	s, addr := startServer(t)

	joinBoth(t, addr)

	assert.True(t, s.Store().Snapshot().Started)
	assert.Equal(t, []protocol.PlayerID{protocol.Player1, protocol.Player2}, s.Active())
	assert.Equal(t, 2.0, testutil.ToFloat64(s.Metrics().ActiveConnections))
}

func TestThirdPeerIsRejected(t *testing.T) {
	s, addr := startServer(t)
	joinBoth(t, addr)

	p3 := dialPeer(t, addr)
	msg := p3.next()
	assert.Equal(t, protocol.ErrorMessage{Message: "server is full"}, msg)

	_ = p3.conn.(net.Conn).SetReadDeadline(time.Now().Add(waitFor))
	_, err := p3.conn.Read(make([]byte, 16))
	assert.ErrorIs(t, err, io.EOF)

	assert.Len(t, s.Active(), 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.Metrics().ConnectionsRejected))
}

func TestSplitFramesApplyInOrder(t *testing.T) {
	_, addr := startServer(t)
	p1, p2 := joinBoth(t, addr)

	p1.send(`{"mo`)
	time.Sleep(20 * time.Millisecond)
	p1.send("ve\":5}\n{\"move\":-5}\n")

	for _, p := range []*peer{p1, p2} {
		first := p.expectState()
		second := p.expectState()
		assert.Equal(t, 205.0, first.Players[protocol.Player1].X)
		assert.Equal(t, 200.0, second.Players[protocol.Player1].X)
	}
}

func TestMalformedFrameIsDropped(t *testing.T) {
	s, addr := startServer(t)
	p1, p2 := joinBoth(t, addr)

	p1.send("not json\n{\"action\":\"dance\"}\n{\"move\":1,\"action\":\"punch\"}\n")

	for _, p := range []*peer{p1, p2} {
		gs := p.expectState()
		assert.Equal(t, 201.0, gs.Players[protocol.Player1].X)
		assert.Equal(t, protocol.ActionPunch, gs.Players[protocol.Player1].Action)
	}
	assert.Equal(t, 2.0, testutil.ToFloat64(s.Metrics().FramesDropped.WithLabelValues("player1")))
	assert.Len(t, s.Active(), 2)
}

func TestHealthUpdateReachesOpponent(t *testing.T) {
	_, addr := startServer(t)
	p1, p2 := joinBoth(t, addr)

	p2.send("{\"health\":-30}\n")

	gs := p1.expectState()
	assert.Equal(t, protocol.MinHealth, gs.Players[protocol.Player2].Health)
	assert.Equal(t, protocol.MaxHealth, gs.Players[protocol.Player1].Health)
	p2.expectState()
}

func TestDisconnectIsBroadcast(t *testing.T) {
	s, addr := startServer(t)
	p1, p2 := joinBoth(t, addr)

	require.NoError(t, p2.conn.Close())

	assert.Equal(t, protocol.PlayerDisconnected{PlayerID: protocol.Player2}, p1.next())
	gs := p1.expectState()
	assert.Equal(t, 0, gs.Players[protocol.Player2].Health)

	require.Eventually(t, func() bool {
		return len(s.Active()) == 1
	}, waitFor, 10*time.Millisecond)
	assert.Equal(t, []protocol.PlayerID{protocol.Player1}, s.Active())

	// the freed slot is reused without resetting the match
	p3 := dialPeer(t, addr)
	welcome := p3.expectInit(protocol.Player2)
	assert.True(t, welcome.GameState.Started)
	assert.Equal(t, 0, welcome.GameState.Players[protocol.Player2].Health)
}

func TestRouter(t *testing.T) {
	s, _ := startServer(t)
	hs := httptest.NewServer(s.Router())
	defer hs.Close()

	resp, err := http.Get(hs.URL + "/healthz")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok 0/2\n", string(body))

	url := "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	ws := &peer{t: t, conn: transport.WebSocket(conn)}
	ws.fr = protocol.NewFrameReader(ws.conn)
	defer ws.conn.Close()

	ws.expectInit(protocol.Player1)
	ws.send("{\"move\":-10}\n")
	assert.Equal(t, 190.0, ws.expectState().Players[protocol.Player1].X)

	resp, err = http.Get(hs.URL + "/metrics")
	require.NoError(t, err)
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Contains(t, string(body), `duelnet_connections_accepted_total{transport="ws"} 1`)
	assert.Contains(t, string(body), `duelnet_inputs_applied_total{player="player1"} 1`)
}

func TestConnClosedBeforeActivationStaysClosed(t *testing.T) {
	s := New(config.DefaultServer(), zaptest.NewLogger(t))
	c := newConn(newFakeTransport(), transport.KindTCP, 8, 0, s.logger)
	require.NoError(t, s.broadcaster.claim(c))
	require.NoError(t, c.Close())

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.handle(c)
	}()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("handle did not return for a closed connection")
	}

	assert.Equal(t, StateClosed, c.State())
	assert.Empty(t, s.Active())
}

func TestAdmitAfterShutdownIsRejected(t *testing.T) {
	s := New(config.DefaultServer(), zaptest.NewLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))

	ft := newFakeTransport()
	s.Admit(ft, transport.KindTCP)

	select {
	case <-ft.closed:
	default:
		t.Fatal("late peer was not closed")
	}
	assert.Empty(t, s.Active())
}

func TestListenAndServeReturnsOnCancel(t *testing.T) {
	cfg := config.DefaultServer()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	s := New(cfg, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("ListenAndServe did not return after cancel")
	}
}
