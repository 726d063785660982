package client

import (
	"time"

	publicchat "github.com/isolophiliabusiness/Public-Chat"
)

// DefaultCooldown is how long after issuing a page request the pager refuses
// to issue another, independent of whether the response arrived.
const DefaultCooldown = time.Second

// Pager is the client-side history pagination state machine.
type Pager struct {
	pageSize int
	cooldown time.Duration

	readyAt    time.Time
	endReached bool
	loaded     bool
	oldestID   string
}

func NewPager(pageSize int, cooldown time.Duration) *Pager {
	if cooldown == 0 {
		cooldown = DefaultCooldown
	}
	return &Pager{
		pageSize: pageSize,
		cooldown: cooldown,
	}
}

// TryRequest decides whether a page request should go out for the given
// scroll position. It returns the cursor to use (empty for the initial
// page) and arms the cool-down window when a request is due.
func (p *Pager) TryRequest(scrollTop int, now time.Time) (string, bool) {
	if scrollTop > 0 && p.loaded {
		return "", false
	}
	if p.endReached {
		return "", false
	}
	if now.Before(p.readyAt) {
		return "", false
	}
	p.readyAt = now.Add(p.cooldown)
	return p.oldestID, true
}

// ApplyPage records a history response. A short page marks the end of
// history; a page of exactly pageSize does not, even when it happens to be
// the last one.
func (p *Pager) ApplyPage(msgs []publicchat.Message) {
	if len(msgs) > 0 {
		p.oldestID = msgs[0].ID
	}
	if len(msgs) < p.pageSize {
		p.endReached = true
	}
	p.loaded = true
}

// Reset clears the cursor state for a fresh connection, which reloads
// history from the newest page.
func (p *Pager) Reset() {
	p.readyAt = time.Time{}
	p.endReached = false
	p.loaded = false
	p.oldestID = ""
}

func (p *Pager) EndReached() bool { return p.endReached }

func (p *Pager) Loaded() bool { return p.loaded }

func (p *Pager) Cursor() string { return p.oldestID }
