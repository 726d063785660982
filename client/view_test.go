package client

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"

	publicchat "github.com/isolophiliabusiness/Public-Chat"
)

const lineHeight = 10

// fakeViewport simulates scroll geometry: every message is one line of fixed
// height and the visible window is clientHeight pixels tall.
type fakeViewport struct {
	order    []string
	updates  []string
	statuses map[string]publicchat.Status

	scrollTop    int
	clientHeight int
}

func newFakeViewport(clientHeight int) *fakeViewport {
	return &fakeViewport{
		statuses:     make(map[string]publicchat.Status),
		clientHeight: clientHeight,
	}
}

func (vp *fakeViewport) AppendMessage(msg publicchat.Message) {
	vp.order = append(vp.order, msg.ID)
}

func (vp *fakeViewport) PrependMessage(msg publicchat.Message) {
	vp.order = append([]string{msg.ID}, vp.order...)
}

func (vp *fakeViewport) UpdateMessage(msg publicchat.Message) {
	vp.updates = append(vp.updates, msg.ID)
}

func (vp *fakeViewport) SetStatus(msgID string, status publicchat.Status) {
	vp.statuses[msgID] = status
}

func (vp *fakeViewport) ScrollTop() int { return vp.scrollTop }

func (vp *fakeViewport) SetScrollTop(top int) { vp.scrollTop = top }

func (vp *fakeViewport) ScrollHeight() int { return len(vp.order) * lineHeight }

func (vp *fakeViewport) ClientHeight() int { return vp.clientHeight }

func (vp *fakeViewport) ScrollToBottom() {
	vp.scrollTop = vp.ScrollHeight() - vp.clientHeight
	if vp.scrollTop < 0 {
		vp.scrollTop = 0
	}
}

func msg(id, author string) publicchat.Message {
	return publicchat.Message{ID: id, Author: author, Text: "text-" + id}
}

func page(n int, prefix string) []publicchat.Message {
	out := make([]publicchat.Message, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, msg(fmt.Sprintf("%s-%d", prefix, i), "other"))
	}
	return out
}

func TestView_ApplyHistory(t *testing.T) {
	t.Run("should scroll the first page to the bottom", func(t *testing.T) {
		vp := newFakeViewport(50)
		v := NewView("alice", vp)

		v.ApplyHistory(page(10, "a"))

		if !v.HistoryLoaded() {
			t.Fatal("expected history to be marked loaded")
		}
		if vp.scrollTop != 50 {
			t.Fatalf("expected scrollTop 50, got %d", vp.scrollTop)
		}
	})
	t.Run("should keep the anchor when prepending older pages", func(t *testing.T) {
		vp := newFakeViewport(50)
		v := NewView("alice", vp)
		v.ApplyHistory(page(10, "new"))

		// Reader scrolled to the very top, which triggered the older page.
		vp.scrollTop = 0
		v.ApplyHistory(page(5, "old"))

		// Five prepended lines of 10px each: the old content sits 50px
		// lower, and so must the scroll position.
		if vp.scrollTop != 50 {
			t.Fatalf("expected scrollTop 50, got %d", vp.scrollTop)
		}
		if vp.order[0] != "old-0" || vp.order[5] != "new-0" {
			t.Fatalf("unexpected order: %v", vp.order)
		}
	})
	t.Run("should render pages oldest at the top", func(t *testing.T) {
		vp := newFakeViewport(50)
		v := NewView("alice", vp)

		v.ApplyHistory(page(3, "p"))

		want := []string{"p-0", "p-1", "p-2"}
		if diff := cmp.Diff(want, vp.order); diff != "" {
			t.Fatalf("unexpected order (-want +got):\n%s", diff)
		}
	})
	t.Run("should skip already-rendered messages after a reconnect", func(t *testing.T) {
		vp := newFakeViewport(50)
		v := NewView("alice", vp)
		first := page(5, "a")
		v.ApplyHistory(first)
		vp.scrollTop = 0

		// The reconnect reload overlaps entirely with what is on screen.
		v.ApplyHistory(first)

		if len(vp.order) != 5 {
			t.Fatalf("expected 5 rendered messages, got %d", len(vp.order))
		}
		if vp.scrollTop != 0 {
			t.Fatalf("expected scroll untouched, got %d", vp.scrollTop)
		}
	})
}

func TestView_ApplyLive(t *testing.T) {
	t.Run("should follow the conversation at the bottom", func(t *testing.T) {
		vp := newFakeViewport(50)
		v := NewView("alice", vp)
		v.ApplyHistory(page(10, "a"))

		v.ApplyLive(msg("live-1", "bob"))

		if vp.scrollTop != 60 {
			t.Fatalf("expected scrollTop 60, got %d", vp.scrollTop)
		}
		if v.Unseen() != 0 {
			t.Fatalf("expected no unseen messages, got %d", v.Unseen())
		}
	})
	t.Run("should count unseen messages while scrolled up", func(t *testing.T) {
		vp := newFakeViewport(50)
		v := NewView("alice", vp)
		v.ApplyHistory(page(10, "a"))
		vp.scrollTop = 0

		v.ApplyLive(msg("live-1", "bob"))
		v.ApplyLive(msg("live-2", "bob"))

		if vp.scrollTop != 0 {
			t.Fatalf("expected scroll untouched, got %d", vp.scrollTop)
		}
		if v.Unseen() != 2 {
			t.Fatalf("expected 2 unseen, got %d", v.Unseen())
		}
	})
	t.Run("should treat the threshold as at-bottom", func(t *testing.T) {
		vp := newFakeViewport(50)
		v := NewView("alice", vp)
		v.ApplyHistory(page(10, "a"))
		// 15px above the true bottom, inside the 20px threshold.
		vp.scrollTop = 35

		v.ApplyLive(msg("live-1", "bob"))

		if v.Unseen() != 0 {
			t.Fatalf("expected auto-scroll inside threshold, got %d unseen", v.Unseen())
		}
	})
	t.Run("should drop duplicate broadcasts", func(t *testing.T) {
		vp := newFakeViewport(50)
		v := NewView("alice", vp)

		m := msg("live-1", "bob")
		v.ApplyLive(m)
		v.ApplyLive(m)

		if len(vp.order) != 1 {
			t.Fatalf("expected 1 rendered message, got %d", len(vp.order))
		}
	})
	t.Run("should clear unseen on jump to latest", func(t *testing.T) {
		vp := newFakeViewport(50)
		v := NewView("alice", vp)
		v.ApplyHistory(page(10, "a"))
		vp.scrollTop = 0
		v.ApplyLive(msg("live-1", "bob"))

		v.JumpToLatest()

		if v.Unseen() != 0 {
			t.Fatalf("expected unseen cleared, got %d", v.Unseen())
		}
		if vp.scrollTop != vp.ScrollHeight()-vp.clientHeight {
			t.Fatal("expected viewport at the bottom")
		}
	})
	t.Run("should clear unseen after a manual scroll to the bottom", func(t *testing.T) {
		vp := newFakeViewport(50)
		v := NewView("alice", vp)
		v.ApplyHistory(page(10, "a"))
		vp.scrollTop = 0
		v.ApplyLive(msg("live-1", "bob"))

		v.OnScrolledToBottom()

		if v.Unseen() != 0 {
			t.Fatalf("expected unseen cleared, got %d", v.Unseen())
		}
	})
}

func TestView_ApplyStatus(t *testing.T) {
	t.Run("should render status for own messages only", func(t *testing.T) {
		vp := newFakeViewport(50)
		v := NewView("alice", vp)
		v.ApplyLive(msg("mine", "alice"))
		v.ApplyLive(msg("theirs", "bob"))

		v.ApplyStatus("mine", publicchat.StatusDelivered)
		v.ApplyStatus("theirs", publicchat.StatusDelivered)

		if vp.statuses["mine"] != publicchat.StatusDelivered {
			t.Fatal("expected own message status to render")
		}
		if _, ok := vp.statuses["theirs"]; ok {
			t.Fatal("expected no status rendering for other authors")
		}
	})
	t.Run("should classify self case-insensitively", func(t *testing.T) {
		vp := newFakeViewport(50)
		v := NewView("alice", vp)
		v.ApplyLive(msg("mine", " Alice "))

		v.ApplyStatus("mine", publicchat.StatusSeen)

		if vp.statuses["mine"] != publicchat.StatusSeen {
			t.Fatal("expected status to render for a case variant of self")
		}
	})
	t.Run("should ignore regressions", func(t *testing.T) {
		vp := newFakeViewport(50)
		v := NewView("alice", vp)
		v.ApplyLive(msg("mine", "alice"))
		v.ApplyStatus("mine", publicchat.StatusSeen)

		v.ApplyStatus("mine", publicchat.StatusDelivered)

		if vp.statuses["mine"] != publicchat.StatusSeen {
			t.Fatalf("expected seen to stick, got %s", vp.statuses["mine"])
		}
	})
	t.Run("should ignore status for unrendered messages", func(t *testing.T) {
		vp := newFakeViewport(50)
		v := NewView("alice", vp)

		v.ApplyStatus("ghost", publicchat.StatusSeen)

		if len(vp.statuses) != 0 {
			t.Fatal("expected no status rendering")
		}
	})
}

func TestView_ApplyUpdate(t *testing.T) {
	t.Run("should re-render mutated messages", func(t *testing.T) {
		vp := newFakeViewport(50)
		v := NewView("alice", vp)
		m := msg("m1", "bob")
		v.ApplyLive(m)

		m.Reactions = publicchat.Reactions{"👍": {"alice"}}
		v.ApplyUpdate(m)

		if len(vp.updates) != 1 || vp.updates[0] != "m1" {
			t.Fatalf("expected one update for m1, got %v", vp.updates)
		}
	})
	t.Run("should ignore updates for unrendered messages", func(t *testing.T) {
		vp := newFakeViewport(50)
		v := NewView("alice", vp)

		v.ApplyUpdate(msg("ghost", "bob"))

		if len(vp.updates) != 0 {
			t.Fatal("expected no updates")
		}
	})
}
