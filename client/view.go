// Package client keeps a scrolling chat view consistent with an
// asynchronously arriving event stream: deduplication, scroll anchoring
// across history prepends, unseen-message counting and reconnect backoff.
package client

import (
	publicchat "github.com/isolophiliabusiness/Public-Chat"
)

// BottomThreshold is how close (in pixels) to the bottom the viewport must
// be for a live message to auto-scroll instead of raising the unseen count.
const BottomThreshold = 20

// Viewport is the rendered chat surface. The view drives it and reads its
// scroll geometry; tests substitute a fake with synthetic heights.
type Viewport interface {
	AppendMessage(msg publicchat.Message)
	PrependMessage(msg publicchat.Message)
	UpdateMessage(msg publicchat.Message)
	SetStatus(msgID string, status publicchat.Status)

	ScrollTop() int
	SetScrollTop(top int)
	ScrollHeight() int
	ClientHeight() int
	ScrollToBottom()
}

// View reconciles inbound history and live events with the viewport. A
// message identifier is rendered at most once, across reconnects and
// duplicate broadcasts.
type View struct {
	identity string
	vp       Viewport

	rendered map[string]struct{}
	statuses map[string]publicchat.Status
	self     map[string]struct{}

	unseen        int
	historyLoaded bool
}

func NewView(identity string, vp Viewport) *View {
	return &View{
		identity: identity,
		vp:       vp,
		rendered: make(map[string]struct{}),
		statuses: make(map[string]publicchat.Status),
		self:     make(map[string]struct{}),
	}
}

// SetIdentity records the identity announced by the server's me event.
func (v *View) SetIdentity(identity string) {
	v.identity = identity
}

// IsSelf classifies a message author against the local identity,
// case-insensitively and ignoring stray whitespace.
func (v *View) IsSelf(author string) bool {
	return publicchat.SameIdentity(author, v.identity)
}

// ApplyHistory inserts a page (oldest-first) above existing content while
// keeping the previously-topmost content at the same pixel offset. The first
// page ever rendered scrolls to the bottom instead.
func (v *View) ApplyHistory(msgs []publicchat.Message) {
	prevHeight := v.vp.ScrollHeight()
	prevTop := v.vp.ScrollTop()

	inserted := false
	for i := len(msgs) - 1; i >= 0; i-- {
		msg := msgs[i]
		if !v.mark(msg) {
			continue
		}
		v.vp.PrependMessage(msg)
		inserted = true
	}

	if !v.historyLoaded {
		v.vp.ScrollToBottom()
		v.historyLoaded = true
		return
	}
	if inserted {
		v.vp.SetScrollTop(prevTop + v.vp.ScrollHeight() - prevHeight)
	}
}

// ApplyLive appends a broadcast message. If the viewport was near the bottom
// it follows the conversation; otherwise the unseen count grows.
func (v *View) ApplyLive(msg publicchat.Message) {
	if !v.mark(msg) {
		return
	}
	wasAtBottom := v.atBottom()
	v.vp.AppendMessage(msg)
	if wasAtBottom {
		v.vp.ScrollToBottom()
		return
	}
	v.unseen++
}

// ApplyUpdate re-renders a mutated message (reaction changes).
func (v *View) ApplyUpdate(msg publicchat.Message) {
	if _, ok := v.rendered[msg.ID]; !ok {
		return
	}
	v.vp.UpdateMessage(msg)
	v.applyStatus(msg.ID, msg.Status)
}

// ApplyStatus advances a message's delivery ticks. Regressions are ignored
// and only self-authored messages render status.
func (v *View) ApplyStatus(msgID string, status publicchat.Status) {
	if _, ok := v.rendered[msgID]; !ok {
		return
	}
	v.applyStatus(msgID, status)
}

func (v *View) applyStatus(msgID string, status publicchat.Status) {
	if status <= v.statuses[msgID] {
		return
	}
	v.statuses[msgID] = status
	if _, ok := v.self[msgID]; ok {
		v.vp.SetStatus(msgID, status)
	}
}

// JumpToLatest scrolls to the bottom and clears the unseen count, as when
// the "new messages" affordance is clicked.
func (v *View) JumpToLatest() {
	v.vp.ScrollToBottom()
	v.unseen = 0
}

// OnScrolledToBottom clears the unseen count after a manual scroll.
func (v *View) OnScrolledToBottom() {
	v.unseen = 0
}

func (v *View) Unseen() int { return v.unseen }

func (v *View) HistoryLoaded() bool { return v.historyLoaded }

// mark records the message id, reporting false for duplicates.
func (v *View) mark(msg publicchat.Message) bool {
	if _, ok := v.rendered[msg.ID]; ok {
		return false
	}
	v.rendered[msg.ID] = struct{}{}
	v.statuses[msg.ID] = msg.Status
	if v.IsSelf(msg.Author) {
		v.self[msg.ID] = struct{}{}
	}
	return true
}

func (v *View) atBottom() bool {
	return v.vp.ScrollHeight()-v.vp.ScrollTop() <= v.vp.ClientHeight()+BottomThreshold
}
