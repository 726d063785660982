package publicchat

import "testing"

func TestPresenceRegistry(t *testing.T) {
	t.Run("should report online transitions", func(t *testing.T) {
		p := NewPresenceRegistry()
		if !p.Join("alice") {
			t.Fatal("expected first join to bring alice online")
		}
		if p.Join("alice") {
			t.Fatal("expected second join to report no transition")
		}
		if p.Count() != 1 {
			t.Fatalf("expected 1 distinct identity, got %d", p.Count())
		}
	})
	t.Run("should report offline transitions", func(t *testing.T) {
		p := NewPresenceRegistry()
		p.Join("alice")
		p.Join("alice")
		if p.Leave("alice") {
			t.Fatal("expected first leave to report no transition")
		}
		if !p.Leave("alice") {
			t.Fatal("expected last leave to take alice offline")
		}
		if p.Online("alice") {
			t.Fatal("expected alice to be offline")
		}
	})
	t.Run("should count distinct identities", func(t *testing.T) {
		p := NewPresenceRegistry()
		p.Join("alice")
		p.Join("alice")
		p.Join("bob")
		if p.Count() != 2 {
			t.Fatalf("expected 2, got %d", p.Count())
		}
	})
	t.Run("should ignore leave for an unknown identity", func(t *testing.T) {
		p := NewPresenceRegistry()
		if p.Leave("ghost") {
			t.Fatal("expected no transition")
		}
	})
}
