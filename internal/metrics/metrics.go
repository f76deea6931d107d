// Package metrics keeps cumulative resolve counters behind a mutex and
// exposes them as read-only snapshots.
package metrics

import "sync"

// StrategyCounts tracks one strategy's attempt bookkeeping.
type StrategyCounts struct {
	Attempts    uint64  `json:"attempts"`
	Successes   uint64  `json:"successes"`
	Failures    uint64  `json:"failures"`
	SuccessRate float64 `json:"success_rate"`
}

// Snapshot is a point-in-time copy of all counters with derived ratios.
type Snapshot struct {
	TotalRequests uint64                    `json:"total_requests"`
	CacheHits     uint64                    `json:"cache_hits"`
	Successes     uint64                    `json:"successes"`
	Failures      uint64                    `json:"failures"`
	CacheHitRate  float64                   `json:"cache_hit_rate"`
	SuccessRate   float64                   `json:"success_rate"`
	Strategies    map[string]StrategyCounts `json:"strategies"`
}

// Collector accumulates counters. Safe for concurrent use.
type Collector struct {
	mu         sync.Mutex
	total      uint64
	cacheHits  uint64
	successes  uint64
	failures   uint64
	strategies map[string]*StrategyCounts
}

// New creates an empty collector.
func New() *Collector {
	return &Collector{strategies: make(map[string]*StrategyCounts)}
}

// Request counts one inbound resolve call.
func (c *Collector) Request() {
	c.mu.Lock()
	c.total++
	c.mu.Unlock()
}

// CacheHit counts a resolve served from cache.
func (c *Collector) CacheHit() {
	c.mu.Lock()
	c.cacheHits++
	c.mu.Unlock()
}

// Success counts a resolve that produced a download URL.
func (c *Collector) Success() {
	c.mu.Lock()
	c.successes++
	c.mu.Unlock()
}

// Failure counts a resolve that exhausted every tool or failed validation.
func (c *Collector) Failure() {
	c.mu.Lock()
	c.failures++
	c.mu.Unlock()
}

// Strategy records one strategy attempt. name is "tool/strategy".
func (c *Collector) Strategy(name string, success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.strategies[name]
	if !ok {
		s = &StrategyCounts{}
		c.strategies[name] = s
	}
	s.Attempts++
	if success {
		s.Successes++
	} else {
		s.Failures++
	}
}

// Snapshot returns a copy of all counters.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		TotalRequests: c.total,
		CacheHits:     c.cacheHits,
		Successes:     c.successes,
		Failures:      c.failures,
		Strategies:    make(map[string]StrategyCounts, len(c.strategies)),
	}
	if c.total > 0 {
		snap.CacheHitRate = float64(c.cacheHits) / float64(c.total)
		snap.SuccessRate = float64(c.successes) / float64(c.total)
	}
	for name, s := range c.strategies {
		copied := *s
		if s.Attempts > 0 {
			copied.SuccessRate = float64(s.Successes) / float64(s.Attempts)
		}
		snap.Strategies[name] = copied
	}
	return snap
}

// Reset clears all counters. Intended for test isolation.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total, c.cacheHits, c.successes, c.failures = 0, 0, 0, 0
	c.strategies = make(map[string]*StrategyCounts)
}
