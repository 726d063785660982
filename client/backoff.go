package client

import "time"

const (
	defaultBackoffBase   = 2 * time.Second
	defaultBackoffCap    = 10 * time.Second
	defaultBackoffFactor = 1.5
)

// Backoff produces reconnection delays: base interval, multiplied per
// attempt up to a ceiling, reset on every successful open.
type Backoff struct {
	Base   time.Duration
	Cap    time.Duration
	Factor float64

	next time.Duration
}

// Next returns the delay to wait before the upcoming attempt and advances
// the schedule.
func (b *Backoff) Next() time.Duration {
	if b.Base == 0 {
		b.Base = defaultBackoffBase
	}
	if b.Cap == 0 {
		b.Cap = defaultBackoffCap
	}
	if b.Factor == 0 {
		b.Factor = defaultBackoffFactor
	}
	if b.next == 0 {
		b.next = b.Base
	}
	d := b.next
	grown := time.Duration(float64(b.next) * b.Factor)
	if grown > b.Cap {
		grown = b.Cap
	}
	b.next = grown
	return d
}

// Reset returns the schedule to the base delay.
func (b *Backoff) Reset() {
	b.next = 0
}
