package publicchat

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Status is the delivery state of a message. It only ever advances
// Server -> Delivered -> Seen.
type Status int8

const (
	StatusServer Status = iota
	StatusDelivered
	StatusSeen
)

func (s Status) String() string {
	switch s {
	case StatusServer:
		return "server"
	case StatusDelivered:
		return "delivered"
	case StatusSeen:
		return "seen"
	default:
		return "unknown"
	}
}

func ParseStatus(s string) (Status, error) {
	switch s {
	case "server":
		return StatusServer, nil
	case "delivered":
		return StatusDelivered, nil
	case "seen":
		return StatusSeen, nil
	default:
		return StatusServer, fmt.Errorf("unknown status %q", s)
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Reactions maps an emoji to the identities that reacted with it. Membership
// is stored per identity (not counts) so toggling stays idempotent.
type Reactions map[string][]string

// Toggle applies the exclusive reaction rule: an identity holds at most one
// emoji per message. Reacting with the emoji it already holds clears it;
// reacting with a different one moves it.
func (r Reactions) Toggle(emoji, identity string) {
	hadSame := false
	for key, users := range r {
		kept := users[:0]
		for _, u := range users {
			if u == identity {
				if key == emoji {
					hadSame = true
				}
				continue
			}
			kept = append(kept, u)
		}
		if len(kept) == 0 {
			delete(r, key)
		} else {
			r[key] = kept
		}
	}
	if !hadSame {
		r[emoji] = append(r[emoji], identity)
	}
}

// Has reports whether identity currently reacts to the message with emoji.
func (r Reactions) Has(emoji, identity string) bool {
	for _, u := range r[emoji] {
		if u == identity {
			return true
		}
	}
	return false
}

func (r Reactions) clone() Reactions {
	if r == nil {
		return nil
	}
	out := make(Reactions, len(r))
	for k, users := range r {
		out[k] = append([]string(nil), users...)
	}
	return out
}

// Message is one entry of a room's ordered log. Time (milliseconds since
// epoch) is the sort and pagination key; ties are broken by the
// store-assigned insertion sequence.
type Message struct {
	ID        string    `json:"id"`
	Room      string    `json:"room"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	Time      int64     `json:"time"`
	Reactions Reactions `json:"reactions"`
	Status    Status    `json:"status"`
}

// AdvanceStatus moves the message status forward, never backwards. It reports
// whether the message changed.
func (m *Message) AdvanceStatus(to Status) bool {
	if to <= m.Status {
		return false
	}
	m.Status = to
	return true
}

// SameIdentity compares two identity strings the way the client classifies
// self-authored messages: case-insensitive and ignoring surrounding
// whitespace.
func SameIdentity(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
