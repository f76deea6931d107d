package backoff

import (
	"context"
	"testing"
	"time"
)

func newFrozen(base, cap time.Duration) (*Tracker, *time.Time) {
	t := New(base, cap)
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)
	t.now = func() time.Time { return now }
	return t, &now
}

func TestDelayForUnknownDomain(t *testing.T) {
	tr := New(0, 0)
	if d := tr.DelayFor("instagram.com"); d != 0 {
		t.Errorf("DelayFor(unknown) = %v, want 0", d)
	}
}

// After k consecutive failures the delay is non-decreasing in k up to the
// cap, and a success resets it to zero.
func TestBackoffMonotonicity(t *testing.T) {
	tr, _ := newFrozen(time.Second, 30*time.Second)

	var prev time.Duration
	for k := 1; k <= 10; k++ {
		tr.RecordFailure("instagram.com", "rate_limit")
		d := tr.DelayFor("instagram.com")
		if d < prev {
			t.Errorf("delay decreased at k=%d: %v < %v", k, d, prev)
		}
		if d > 30*time.Second {
			t.Errorf("delay exceeded cap at k=%d: %v", k, d)
		}
		prev = d
	}
	if prev != 30*time.Second {
		t.Errorf("delay after 10 failures = %v, want cap", prev)
	}

	tr.RecordSuccess("instagram.com")
	if d := tr.DelayFor("instagram.com"); d != 0 {
		t.Errorf("DelayFor after success = %v, want 0", d)
	}
}

func TestWindowDoubling(t *testing.T) {
	tr, _ := newFrozen(time.Second, 30*time.Second)

	tests := []struct {
		failures int
		want     time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 16 * time.Second},
		{6, 30 * time.Second},
		{20, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := tr.window(tt.failures); got != tt.want {
			t.Errorf("window(%d) = %v, want %v", tt.failures, got, tt.want)
		}
	}
}

func TestDelayShrinksAsTimePasses(t *testing.T) {
	tr, now := newFrozen(time.Second, 30*time.Second)

	tr.RecordFailure("instagram.com", "rate_limit")
	tr.RecordFailure("instagram.com", "rate_limit")
	if d := tr.DelayFor("instagram.com"); d != 2*time.Second {
		t.Fatalf("DelayFor = %v, want 2s", d)
	}

	*now = now.Add(1500 * time.Millisecond)
	if d := tr.DelayFor("instagram.com"); d != 500*time.Millisecond {
		t.Errorf("DelayFor after 1.5s = %v, want 500ms", d)
	}

	*now = now.Add(time.Second)
	if d := tr.DelayFor("instagram.com"); d != 0 {
		t.Errorf("DelayFor after window elapsed = %v, want 0", d)
	}
}

func TestDomainsAreIndependent(t *testing.T) {
	tr, _ := newFrozen(time.Second, 30*time.Second)

	tr.RecordFailure("instagram.com", "rate_limit")
	if d := tr.DelayFor("instagr.am"); d != 0 {
		t.Errorf("unrelated domain owes delay %v", d)
	}
}

func TestApplyZeroDelay(t *testing.T) {
	tr := New(time.Second, 30*time.Second)
	start := time.Now()
	if err := tr.Apply(context.Background(), "instagram.com"); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Error("Apply with no backoff owed should return immediately")
	}
}

func TestApplyCancellation(t *testing.T) {
	tr := New(10*time.Second, 30*time.Second)
	tr.RecordFailure("instagram.com", "rate_limit")

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := tr.Apply(ctx, "instagram.com")
	if err == nil {
		t.Fatal("Apply should return ctx error when cancelled mid-wait")
	}
	if time.Since(start) > time.Second {
		t.Error("Apply did not honor cancellation promptly")
	}
}

func TestSnapshot(t *testing.T) {
	tr, _ := newFrozen(time.Second, 30*time.Second)
	tr.RecordFailure("instagram.com", "rate_limit")
	tr.RecordFailure("instagram.com", "rate_limit")

	snap := tr.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("Snapshot returned %d entries, want 1", len(snap))
	}
	s := snap[0]
	if s.Domain != "instagram.com" || s.ConsecutiveFailures != 2 || s.LastCategory != "rate_limit" {
		t.Errorf("unexpected snapshot: %+v", s)
	}
}
