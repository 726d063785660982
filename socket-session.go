package publicchat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

type sessionEventType int

const (
	sessionClosed sessionEventType = iota - 1
	sessionAlive
	sessionOpened
	sessionFrame
)

type sessionEvent struct {
	peer    Peer
	typ     sessionEventType
	payload []byte
}

// Peer is one live connection as the hub sees it. *Session implements it;
// tests substitute fakes.
type Peer interface {
	SessionID() string
	Identity() string
	Send(payload []byte)
	Terminate()
}

// Session owns one websocket connection: a frame read loop and a buffered
// write loop with a heartbeat ticker.
type Session struct {
	conn     net.Conn
	id       string
	identity string

	send    chan []byte
	events  chan<- sessionEvent
	hubDone <-chan struct{}

	maxFrame  int64
	heartbeat time.Duration

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	Slogger *slog.Logger
}

func newSession(conn net.Conn, id, identity string, hub *Hub) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		conn:      conn,
		id:        id,
		identity:  identity,
		send:      make(chan []byte, 255),
		events:    hub.events,
		hubDone:   hub.ctx.Done(),
		maxFrame:  hub.maxFrame,
		heartbeat: hub.heartbeat,
		ctx:       ctx,
		cancel:    cancel,
		Slogger:   hub.Slogger.With("session", id, "identity", identity),
	}
	return s
}

// start launches the loops. The caller queues the opened event first so the
// hub observes open before any inbound frame.
func (s *Session) start() {
	s.wg.Add(1)
	go func() {
		s.ReadLoop()
		s.wg.Done()
	}()
	s.wg.Add(1)
	go func() {
		s.WriteLoop()
		s.wg.Done()
	}()
}

func (s *Session) SessionID() string { return s.id }

func (s *Session) Identity() string { return s.identity }

// Send queues an outbound frame. A peer whose buffer is full is terminated
// rather than allowed to stall the fan-out loop.
func (s *Session) Send(payload []byte) {
	select {
	case s.send <- payload:
	default:
		s.Slogger.Warn("send buffer full, terminating")
		s.Terminate()
	}
}

// Terminate tears the connection down without waiting for the loops. The
// read loop's exit delivers the closed event to the hub.
func (s *Session) Terminate() {
	s.cancel()
	s.conn.Close()
}

// Close terminates and waits for both loops. Only for use outside the hub
// loop.
func (s *Session) Close() {
	s.Terminate()
	s.wg.Wait()
}

func (s *Session) ReadLoop() {
	sl := s.Slogger.With("func", "session.ReadLoop")
	sl.Debug("starting")
	defer func() {
		s.conn.Close()
		s.cancel()
		s.emit(sessionEvent{peer: s, typ: sessionClosed})
		sl.Debug("ReadLoop exited")
	}()

	controlHandler := wsutil.ControlFrameHandler(s.conn, ws.StateServerSide)
	rd := wsutil.NewReader(s.conn, ws.StateServerSide)
	for {
		hdr, err := rd.NextFrame()
		if err != nil {
			var closed wsutil.ClosedError
			if errors.As(err, &closed) {
				sl.Debug("ReadLoop closing", "reason", closed.Reason)
			} else if s.ctx.Err() == nil {
				sl.Error("ReadLoop error", "err", err)
			}
			return
		}
		if hdr.Length > s.maxFrame {
			sl.Warn("frame exceeds limit, closing", "length", hdr.Length)
			return
		}
		if hdr.OpCode.IsControl() {
			if hdr.OpCode == ws.OpPong {
				s.emit(sessionEvent{peer: s, typ: sessionAlive})
			}
			if err := controlHandler(hdr, rd); err != nil {
				var closed wsutil.ClosedError
				if errors.As(err, &closed) {
					sl.Debug("ReadLoop closing", "reason", closed.Reason)
				}
				return
			}
			continue
		}
		payload, err := io.ReadAll(rd)
		if err != nil {
			sl.Error("ReadLoop payload error", "err", err)
			return
		}
		s.emit(sessionEvent{peer: s, typ: sessionFrame, payload: payload})
	}
}

func (s *Session) WriteLoop() {
	sl := s.Slogger.With("func", "session.WriteLoop")
	sl.Debug("starting")
	ticker := time.NewTicker(s.heartbeat)
	defer func() {
		ticker.Stop()
		s.conn.Close()
		s.cancel()
		sl.Debug("WriteLoop exited")
	}()
	for {
		select {
		case payload, ok := <-s.send:
			if !ok {
				return
			}
			if err := wsutil.WriteServerText(s.conn, payload); err != nil {
				sl.Debug("write failed", "err", err)
				return
			}
		case <-ticker.C:
			if err := wsutil.WriteServerMessage(s.conn, ws.OpPing, nil); err != nil {
				sl.Debug("ping failed", "err", err)
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// emit hands an event to the hub loop unless the hub is already shutting
// down.
func (s *Session) emit(ev sessionEvent) {
	select {
	case s.events <- ev:
	case <-s.hubDone:
	}
}
