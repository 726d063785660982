package publicchat

import "sync"

// PresenceRegistry tracks how many live sessions each identity owns. An
// identity is online while it owns at least one. Broadcast decisions key off
// the distinct-identity count, not the raw connection count.
type PresenceRegistry struct {
	mu       sync.Mutex
	sessions map[string]int
}

func NewPresenceRegistry() *PresenceRegistry {
	return &PresenceRegistry{sessions: make(map[string]int)}
}

// Join records a new session and reports whether the identity just came
// online (a later session for an already-online identity returns false).
func (p *PresenceRegistry) Join(identity string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sessions[identity]++
	return p.sessions[identity] == 1
}

// Leave records a closed session and reports whether the identity just went
// offline.
func (p *PresenceRegistry) Leave(identity string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	n, ok := p.sessions[identity]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(p.sessions, identity)
		return true
	}
	p.sessions[identity] = n - 1
	return false
}

// Online reports whether identity owns at least one live session.
func (p *PresenceRegistry) Online(identity string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sessions[identity] > 0
}

// Count returns the number of distinct online identities.
func (p *PresenceRegistry) Count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sessions)
}
