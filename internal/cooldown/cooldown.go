// Package cooldown implements the sleep-interval tracker used between
// request retries: a multiplicatively growing interval with optional stagger
// randomization to avoid synchronized retries across independent clients.
package cooldown

import (
	"math/rand"
	"time"
)

// Tracker carries the cooldown state for one logical request. It is not safe
// for concurrent use; each call owns its own tracker.
type Tracker struct {
	current time.Duration
	base    float64
	stagger float64
	rand    func() float64
}

// New creates a tracker starting at initial. Each advance multiplies the
// interval by base, adjusted by a random factor in [1, 1+stagger) when
// stagger is nonzero.
func New(initial time.Duration, base, stagger float64) *Tracker {
	if base <= 0 {
		base = 2
	}
	if stagger < 0 {
		stagger = 0
	}
	return &Tracker{
		current: initial,
		base:    base,
		stagger: stagger,
		rand:    rand.Float64,
	}
}

// Next advances the tracker and returns the interval to sleep before the
// next attempt.
func (t *Tracker) Next() time.Duration {
	factor := t.base * (1 + t.stagger*t.rand())
	t.current = time.Duration(float64(t.current) * factor)
	return t.current
}

// Current returns the interval without advancing.
func (t *Tracker) Current() time.Duration {
	return t.current
}
