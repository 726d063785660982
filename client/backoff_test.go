package client

import (
	"testing"
	"time"
)

func TestBackoff(t *testing.T) {
	t.Run("should grow geometrically up to the cap", func(t *testing.T) {
		b := Backoff{}
		want := []time.Duration{
			2 * time.Second,
			3 * time.Second,
			4500 * time.Millisecond,
			6750 * time.Millisecond,
			10 * time.Second,
			10 * time.Second,
		}
		for i, w := range want {
			if got := b.Next(); got != w {
				t.Fatalf("attempt %d: expected %s, got %s", i, w, got)
			}
		}
	})
	t.Run("should restart from the base after reset", func(t *testing.T) {
		b := Backoff{}
		b.Next()
		b.Next()
		b.Reset()
		if got := b.Next(); got != 2*time.Second {
			t.Fatalf("expected base delay after reset, got %s", got)
		}
	})
	t.Run("should honor custom parameters", func(t *testing.T) {
		b := Backoff{Base: time.Second, Cap: 2 * time.Second, Factor: 2}
		if got := b.Next(); got != time.Second {
			t.Fatalf("expected 1s, got %s", got)
		}
		if got := b.Next(); got != 2*time.Second {
			t.Fatalf("expected 2s, got %s", got)
		}
		if got := b.Next(); got != 2*time.Second {
			t.Fatalf("expected the cap, got %s", got)
		}
	})
}
