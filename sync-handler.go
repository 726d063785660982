package publicchat

import (
	"errors"
)

// handleFrame decodes one inbound frame and dispatches it. Malformed frames
// are discarded without closing the connection; unknown event types get an
// explicit reject so clients notice protocol drift.
func (h *Hub) handleFrame(peer Peer, payload []byte) {
	st, ok := h.sessions[peer]
	if !ok {
		return
	}
	st.lastSeen = h.now()

	ev, err := DecodeClientEvent(payload)
	if err != nil {
		var unknown *ErrUnknownEvent
		if errors.As(err, &unknown) {
			peer.Send(encodeReject(unknown.Type, "unknown-type"))
		}
		h.Slogger.Debug("dropping frame", "session", peer.SessionID(), "err", err)
		return
	}

	switch ev := ev.(type) {
	case *JoinEvent:
		h.handleJoin(st, ev)
	case *ChatEvent:
		h.handleChat(peer, st, ev)
	case *HistoryEvent:
		h.handleHistory(peer, st, ev)
	case *ReactEvent:
		h.handleReact(st, ev)
	case *SeenEvent:
		h.handleSeen(st, ev)
	}
}

func (h *Hub) handleJoin(st *sessionState, ev *JoinEvent) {
	room := ev.Room
	if room == "" {
		room = h.defaultRoom
	}
	st.room = room
}

// handleChat runs the ingestion pipeline: rate limit, sanitize, persist,
// fan out, then advance the message to delivered for the author only.
func (h *Hub) handleChat(peer Peer, st *sessionState, ev *ChatEvent) {
	now := h.now()
	if !h.limiter.Allow(st.identity, now) {
		h.metrics.MessagesRejected.WithLabelValues("rate-limited").Inc()
		peer.Send(encodeReject(EventChat, "rate-limited"))
		return
	}

	msg, err := h.store.Append(h.ctx, st.room, st.identity, Sanitize(ev.Text), now.UnixMilli())
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			h.metrics.MessagesRejected.WithLabelValues("invalid").Inc()
			peer.Send(encodeReject(EventChat, verr.Reason))
			return
		}
		h.Slogger.Error("append failed", "room", st.room, "err", err)
		return
	}
	h.metrics.MessagesIngested.Inc()
	h.cacheInsert(msg)

	h.broadcastRoom(st.room, encodeChat(st.room, msg))

	msg.AdvanceStatus(StatusDelivered)
	if err := h.store.Update(h.ctx, msg); err != nil {
		h.Slogger.Error("delivered transition failed", "msg", msg.ID, "err", err)
		return
	}
	h.cacheUpdate(msg)
	peer.Send(encodeStatusUpdate(msg.ID, StatusDelivered))
}

func (h *Hub) handleHistory(peer Peer, st *sessionState, ev *HistoryEvent) {
	if ev.BeforeID == "" && h.cache != nil {
		msgs, err := h.cache.ListRecent(h.ctx, st.room, h.pageSize)
		if err != nil {
			h.Slogger.Debug("cache miss", "room", st.room, "err", err)
		} else if len(msgs) == h.pageSize {
			// Only a full cached page is authoritative; anything less
			// could hide older store entries.
			peer.Send(encodeHistoryPage(st.room, msgs))
			h.metrics.HistoryPages.Inc()
			return
		}
	}

	msgs, err := h.store.Page(h.ctx, st.room, ev.BeforeID, h.pageSize)
	if err != nil {
		h.Slogger.Error("page failed", "room", st.room, "err", err)
		return
	}
	peer.Send(encodeHistoryPage(st.room, msgs))
	h.metrics.HistoryPages.Inc()
}

func (h *Hub) handleReact(st *sessionState, ev *ReactEvent) {
	msg, err := h.store.Find(h.ctx, ev.MsgID)
	if err != nil || msg.Room != st.room {
		// Unknown or out-of-room message: ignore.
		h.Slogger.Debug("react ignored", "msg", ev.MsgID, "room", st.room)
		return
	}

	msg.Reactions.Toggle(ev.Emoji, st.identity)
	if err := h.store.Update(h.ctx, msg); err != nil {
		h.Slogger.Error("reaction update failed", "msg", msg.ID, "err", err)
		return
	}
	h.cacheUpdate(msg)
	h.broadcastRoom(st.room, encodeChatUpdate(st.room, msg))
}

func (h *Hub) handleSeen(st *sessionState, ev *SeenEvent) {
	msg, err := h.store.Find(h.ctx, ev.MsgID)
	if err != nil || msg.Room != st.room {
		return
	}
	if SameIdentity(msg.Author, st.identity) {
		// Authors do not mark their own messages seen.
		return
	}
	if !msg.AdvanceStatus(StatusSeen) {
		return
	}
	if err := h.store.Update(h.ctx, msg); err != nil {
		h.Slogger.Error("seen transition failed", "msg", msg.ID, "err", err)
		return
	}
	h.cacheUpdate(msg)
	h.broadcastRoom(st.room, encodeStatusUpdate(msg.ID, StatusSeen))
}

func (h *Hub) cacheInsert(msg Message) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InsertMessage(h.ctx, msg); err != nil {
		h.Slogger.Error("could not cache message", "msg", msg.ID, "err", err)
	}
}

func (h *Hub) cacheUpdate(msg Message) {
	if h.cache == nil {
		return
	}
	if err := h.cache.UpdateMessage(h.ctx, msg); err != nil {
		h.Slogger.Error("could not refresh cached message", "msg", msg.ID, "err", err)
	}
}
