package client

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"

	publicchat "github.com/isolophiliabusiness/Public-Chat"
)

// Conn maintains one logical connection to the chat server across transport
// losses: dial, announce room membership, reload recent history, reconcile
// the stream, and reconnect with backoff when the transport drops.
type Conn struct {
	URL     string
	Room    string
	View    *View
	Pager   *Pager
	Backoff Backoff
	Slogger *slog.Logger

	mu   sync.Mutex
	conn net.Conn

	// OnReject, when set, observes server-side rejections of this
	// client's submissions.
	OnReject func(ev publicchat.RejectEvent)
	// OnOnline, when set, observes changes to the online identity count.
	OnOnline func(count int)
}

// Run dials and reads until ctx ends. Every reopened connection re-joins the
// room and re-requests history from the newest page; the view's
// deduplication absorbs the overlap.
func (c *Conn) Run(ctx context.Context) error {
	sl := c.Slogger
	if sl == nil {
		sl = slog.Default()
	}
	sl = sl.With("func", "conn.Run")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		conn, _, _, err := ws.Dial(ctx, c.URL)
		if err != nil {
			sl.Debug("dial failed", "err", err)
			if !c.wait(ctx) {
				return ctx.Err()
			}
			continue
		}
		sl.Info("connected")
		c.Backoff.Reset()
		c.Pager.Reset()
		c.setConn(conn)

		c.sendJoin()
		c.RequestHistory(time.Now())

		for {
			data, err := wsutil.ReadServerText(conn)
			if err != nil {
				var closed wsutil.ClosedError
				if errors.As(err, &closed) {
					sl.Debug("connection closed", "reason", closed.Reason)
				} else {
					sl.Debug("read failed", "err", err)
				}
				break
			}
			c.handle(data)
		}
		c.setConn(nil)
		conn.Close()
		if !c.wait(ctx) {
			return ctx.Err()
		}
	}
}

func (c *Conn) wait(ctx context.Context) bool {
	select {
	case <-time.After(c.Backoff.Next()):
		return true
	case <-ctx.Done():
		return false
	}
}

func (c *Conn) setConn(conn net.Conn) {
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
}

// send writes one frame. The mutex is held across the write so concurrent
// callers cannot interleave partial frames on the wire.
func (c *Conn) send(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return
	}
	if err := wsutil.WriteClientText(c.conn, payload); err != nil && c.Slogger != nil {
		c.Slogger.Debug("write failed", "err", err)
	}
}

func (c *Conn) sendJoin() {
	c.send(struct {
		Type string `json:"type"`
		Room string `json:"room"`
	}{publicchat.EventJoin, c.Room})
}

// SendChat submits a message for the current room.
func (c *Conn) SendChat(text string) {
	c.send(struct {
		Type string `json:"type"`
		Room string `json:"room"`
		Text string `json:"text"`
	}{publicchat.EventChat, c.Room, text})
}

// SendReact toggles the identity's reaction on a message.
func (c *Conn) SendReact(msgID, emoji string) {
	c.send(struct {
		Type  string `json:"type"`
		Room  string `json:"room"`
		MsgID string `json:"msgId"`
		Emoji string `json:"emoji"`
	}{publicchat.EventReact, c.Room, msgID, emoji})
}

// SendSeen reports that a message has been read.
func (c *Conn) SendSeen(msgID string) {
	c.send(struct {
		Type  string `json:"type"`
		Room  string `json:"room"`
		MsgID string `json:"msgId"`
	}{publicchat.EventSeen, c.Room, msgID})
}

// RequestHistory asks for the next older page if the pager allows one now.
func (c *Conn) RequestHistory(now time.Time) {
	beforeID, ok := c.Pager.TryRequest(0, now)
	if !ok {
		return
	}
	c.send(struct {
		Type     string `json:"type"`
		Room     string `json:"room"`
		BeforeID string `json:"beforeId"`
	}{publicchat.EventHistory, c.Room, beforeID})
}

// OnScroll feeds viewport scroll changes into pagination and unseen
// tracking.
func (c *Conn) OnScroll(scrollTop int, atBottom bool, now time.Time) {
	if atBottom {
		c.View.OnScrolledToBottom()
	}
	beforeID, ok := c.Pager.TryRequest(scrollTop, now)
	if !ok {
		return
	}
	c.send(struct {
		Type     string `json:"type"`
		Room     string `json:"room"`
		BeforeID string `json:"beforeId"`
	}{publicchat.EventHistory, c.Room, beforeID})
}

func (c *Conn) handle(data []byte) {
	ev, err := publicchat.DecodeServerEvent(data)
	if err != nil {
		if c.Slogger != nil {
			c.Slogger.Debug("dropping frame", "err", err)
		}
		return
	}
	switch ev := ev.(type) {
	case *publicchat.MeEvent:
		c.View.SetIdentity(ev.Identity)
	case *publicchat.OnlineUsersEvent:
		if c.OnOnline != nil {
			c.OnOnline(ev.Count)
		}
	case *publicchat.HistoryPageEvent:
		c.Pager.ApplyPage(ev.Messages)
		c.View.ApplyHistory(ev.Messages)
	case *publicchat.ChatBroadcastEvent:
		if ev.Type == publicchat.EventChatUpdate {
			c.View.ApplyUpdate(ev.Msg)
		} else {
			c.View.ApplyLive(ev.Msg)
		}
	case *publicchat.StatusUpdateEvent:
		c.View.ApplyStatus(ev.MsgID, ev.State)
	case *publicchat.RejectEvent:
		if c.OnReject != nil {
			c.OnReject(*ev)
		}
	}
}
