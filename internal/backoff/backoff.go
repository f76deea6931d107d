// Package backoff tracks per-domain failure streaks and computes the delay
// owed before the next attempt against that domain. Failures are
// domain-scoped because the signal (rate limiting) reflects the remote
// resource's state, not any single request's.
package backoff

import (
	"context"
	"sync"
	"time"
)

const (
	// DefaultBase is the window after the first failure.
	DefaultBase = time.Second
	// DefaultCap bounds the window regardless of streak length.
	DefaultCap = 30 * time.Second
)

// DomainState is a read-only view of one domain's failure bookkeeping.
type DomainState struct {
	Domain              string    `json:"domain"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	LastFailure         time.Time `json:"last_failure"`
	LastCategory        string    `json:"last_error_category"`
}

type entry struct {
	failures int
	last     time.Time
	category string
}

// Tracker holds in-memory, process-scoped backoff state. Lost on restart;
// with multiple replicas each tracks independently.
type Tracker struct {
	base time.Duration
	cap  time.Duration

	mu      sync.Mutex
	domains map[string]*entry
	now     func() time.Time
}

// New creates a tracker. Non-positive base or cap fall back to the defaults.
func New(base, cap time.Duration) *Tracker {
	if base <= 0 {
		base = DefaultBase
	}
	if cap <= 0 {
		cap = DefaultCap
	}
	return &Tracker{
		base:    base,
		cap:     cap,
		domains: make(map[string]*entry),
		now:     time.Now,
	}
}

// DelayFor returns the remaining wait owed for domain, zero when no failure
// is recorded or the window has already elapsed.
func (t *Tracker) DelayFor(domain string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.domains[domain]
	if !ok {
		return 0
	}
	window := t.window(e.failures)
	remaining := window - t.now().Sub(e.last)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordFailure extends the domain's streak.
func (t *Tracker) RecordFailure(domain, category string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.domains[domain]
	if !ok {
		e = &entry{}
		t.domains[domain] = e
	}
	e.failures++
	e.last = t.now()
	e.category = category
}

// RecordSuccess clears the domain's entry entirely.
func (t *Tracker) RecordSuccess(domain string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.domains, domain)
}

// Apply sleeps for the delay owed to domain, returning early if ctx is
// cancelled. A zero delay returns immediately.
func (t *Tracker) Apply(ctx context.Context, domain string) error {
	delay := t.DelayFor(domain)
	if delay <= 0 {
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Snapshot returns the current state of every tracked domain.
func (t *Tracker) Snapshot() []DomainState {
	t.mu.Lock()
	defer t.mu.Unlock()

	states := make([]DomainState, 0, len(t.domains))
	for domain, e := range t.domains {
		states = append(states, DomainState{
			Domain:              domain,
			ConsecutiveFailures: e.failures,
			LastFailure:         e.last,
			LastCategory:        e.category,
		})
	}
	return states
}

// window computes min(base * 2^(n-1), cap) for a streak of n failures.
func (t *Tracker) window(failures int) time.Duration {
	if failures <= 0 {
		return 0
	}
	w := t.base
	for i := 1; i < failures; i++ {
		w *= 2
		if w >= t.cap {
			return t.cap
		}
	}
	if w > t.cap {
		return t.cap
	}
	return w
}
