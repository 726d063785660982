package publicchat

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/isolophiliabusiness/Public-Chat/metrics"
)

// Options tunes a Hub. Zero values fall back to the defaults below, which
// match the production deployment.
type Options struct {
	DefaultRoom     string
	PageSize        int
	RateInterval    time.Duration
	Heartbeat       time.Duration
	LivenessTimeout time.Duration
	MaxFrameBytes   int64

	Cache   Cache
	Metrics *metrics.Metrics
	Slogger *slog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

const (
	defaultRoom            = "public"
	defaultPageSize        = 500
	defaultRateInterval    = time.Second
	defaultHeartbeat       = 30 * time.Second
	defaultLivenessTimeout = 65 * time.Second
	defaultMaxFrameBytes   = 8 * 1024
)

// sessionState is the hub-side record of one live connection: its identity,
// current room and last observed activity. Only the hub loop touches it.
type sessionState struct {
	identity string
	room     string
	lastSeen time.Time
}

// Hub owns every live session and runs the single event loop that serializes
// all store mutations and room fan-out.
type Hub struct {
	store    Store
	cache    Cache
	limiter  *RateLimiter
	presence *PresenceRegistry
	metrics  *metrics.Metrics

	defaultRoom     string
	pageSize        int
	heartbeat       time.Duration
	livenessTimeout time.Duration
	maxFrame        int64
	now             func() time.Time

	sessions map[Peer]*sessionState
	events   chan sessionEvent

	ctx    context.Context
	cancel context.CancelFunc

	Slogger *slog.Logger
}

func NewHub(parentCtx context.Context, store Store, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parentCtx)
	h := &Hub{
		store:           store,
		cache:           opts.Cache,
		metrics:         opts.Metrics,
		defaultRoom:     opts.DefaultRoom,
		pageSize:        opts.PageSize,
		heartbeat:       opts.Heartbeat,
		livenessTimeout: opts.LivenessTimeout,
		maxFrame:        opts.MaxFrameBytes,
		now:             opts.Now,
		presence:        NewPresenceRegistry(),
		sessions:        make(map[Peer]*sessionState),
		events:          make(chan sessionEvent, 255),
		ctx:             ctx,
		cancel:          cancel,
	}
	if h.defaultRoom == "" {
		h.defaultRoom = defaultRoom
	}
	if h.pageSize == 0 {
		h.pageSize = defaultPageSize
	}
	if h.heartbeat == 0 {
		h.heartbeat = defaultHeartbeat
	}
	if h.livenessTimeout == 0 {
		h.livenessTimeout = defaultLivenessTimeout
	}
	if h.maxFrame == 0 {
		h.maxFrame = defaultMaxFrameBytes
	}
	if h.now == nil {
		h.now = time.Now
	}
	rateInterval := opts.RateInterval
	if rateInterval == 0 {
		rateInterval = defaultRateInterval
	}
	h.limiter = NewRateLimiter(rateInterval)
	if h.metrics == nil {
		h.metrics = metrics.New(prometheus.NewRegistry())
	}
	if opts.Slogger != nil {
		h.Slogger = opts.Slogger.With("component", "hub")
	} else {
		h.Slogger = slog.Default().With("component", "hub")
	}
	return h
}

// Start runs the event loop until Stop or the parent context ends. Every
// mutation of session and message state happens on this goroutine.
func (h *Hub) Start() {
	sl := h.Slogger.With("func", "hub.Start")
	sl.Debug("starting")
	ticker := time.NewTicker(h.livenessTimeout / 2)
	defer func() {
		ticker.Stop()
		sl.Info("stopped")
	}()
	for {
		select {
		case <-ticker.C:
			h.sweepIdle()
		case <-h.ctx.Done():
			sl.Debug("stopping")
			h.closeAll()
			return
		case ev := <-h.events:
			switch ev.typ {
			case sessionOpened:
				h.handleOpen(ev.peer)
			case sessionAlive:
				h.handleAlive(ev.peer)
			case sessionFrame:
				h.handleFrame(ev.peer, ev.payload)
			case sessionClosed:
				h.handleClosed(ev.peer)
			}
		}
	}
}

func (h *Hub) Stop() {
	h.cancel()
}

func (h *Hub) handleOpen(peer Peer) {
	h.sessions[peer] = &sessionState{
		identity: peer.Identity(),
		room:     h.defaultRoom,
		lastSeen: h.now(),
	}
	h.metrics.Connections.Inc()

	peer.Send(encodeMe(peer.Identity()))
	if h.presence.Join(peer.Identity()) {
		h.broadcastAll(encodeOnlineUsers(h.presence.Count()))
	}
	h.metrics.OnlineIdentities.Set(float64(h.presence.Count()))
	h.Slogger.Info("session opened", "session", peer.SessionID(), "identity", peer.Identity())
}

func (h *Hub) handleAlive(peer Peer) {
	if st, ok := h.sessions[peer]; ok {
		st.lastSeen = h.now()
	}
}

func (h *Hub) handleClosed(peer Peer) {
	st, ok := h.sessions[peer]
	if !ok {
		return
	}
	delete(h.sessions, peer)
	h.metrics.Connections.Dec()

	if h.presence.Leave(st.identity) {
		// Last session for this identity: release its rate-limit entry
		// and tell everyone the online count changed.
		h.limiter.Forget(st.identity)
		h.broadcastAll(encodeOnlineUsers(h.presence.Count()))
	}
	h.metrics.OnlineIdentities.Set(float64(h.presence.Count()))
	h.Slogger.Info("session closed", "session", peer.SessionID(), "identity", st.identity)
}

// sweepIdle terminates sessions that have been silent past the liveness
// timeout. The transport close surfaces as a closed event.
func (h *Hub) sweepIdle() {
	deadline := h.now().Add(-h.livenessTimeout)
	for peer, st := range h.sessions {
		if st.lastSeen.Before(deadline) {
			h.Slogger.Info("terminating unresponsive session", "session", peer.SessionID())
			peer.Terminate()
		}
	}
}

func (h *Hub) closeAll() {
	for peer := range h.sessions {
		peer.Terminate()
	}
}

// broadcastRoom fans a payload out to the sessions joined to room at this
// moment; sessions arriving later do not receive it.
func (h *Hub) broadcastRoom(room string, payload []byte) {
	for peer, st := range h.sessions {
		if st.room == room {
			peer.Send(payload)
		}
	}
	h.metrics.Broadcasts.Inc()
}

func (h *Hub) broadcastAll(payload []byte) {
	for peer := range h.sessions {
		peer.Send(payload)
	}
	h.metrics.Broadcasts.Inc()
}
