package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(t *testing.T, clock *fakeClock, policies ...Policy) *Limiter {
	t.Helper()

	store := NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	opts := []Option{WithClock(clock.Now)}
	for _, p := range policies {
		opts = append(opts, WithPolicy(p))
	}

	return New(store, opts...)
}

func TestCheckBoundary(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	l := newTestLimiter(t, clock, Policy{Name: "analyze", Window: time.Minute, MaxRequests: 3})

	ctx := context.Background()

	// N checks within the window are all allowed, and Remaining counts
	// down to zero on the last admitted one.
	for i := 0; i < 3; i++ {
		d, err := l.Check(ctx, "analyze", "u1")
		if err != nil {
			t.Fatalf("check %d: %v", i, err)
		}
		if !d.Allowed {
			t.Fatalf("check %d: expected allowed", i)
		}
		if want := 2 - i; d.Remaining != want {
			t.Errorf("check %d: remaining: got %d, want %d", i, d.Remaining, want)
		}
		clock.Advance(time.Second)
	}

	// The (N+1)-th within the window is rejected.
	d, err := l.Check(ctx, "analyze", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("4th check within window should be rejected")
	}
	if d.Remaining != 0 {
		t.Errorf("remaining: got %d, want 0", d.Remaining)
	}

	// After the window elapses from the oldest timestamp, allowed again.
	clock.now = d.ResetAt
	d, err = l.Check(ctx, "analyze", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Fatal("check after window elapsed should be allowed")
	}
}

func TestResetAtIsOldestPlusWindow(t *testing.T) {
	start := time.UnixMilli(1_700_000_000_000)
	clock := &fakeClock{now: start}
	l := newTestLimiter(t, clock, Policy{Name: "analyze", Window: 60_000 * time.Millisecond, MaxRequests: 3})

	ctx := context.Background()

	// 3 checks for "u1" spread over 10s, all allowed.
	for i := 0; i < 3; i++ {
		d, err := l.Check(ctx, "analyze", "u1")
		if err != nil {
			t.Fatal(err)
		}
		if !d.Allowed {
			t.Fatalf("check %d should be allowed", i)
		}
		clock.Advance(5 * time.Second)
	}

	// 4th within the same 60s window is rejected with resetAt equal to
	// the first timestamp plus the window.
	d, err := l.Check(ctx, "analyze", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed {
		t.Fatal("4th check should be rejected")
	}
	want := start.Add(60_000 * time.Millisecond)
	if !d.ResetAt.Equal(want) {
		t.Errorf("resetAt: got %v, want %v", d.ResetAt, want)
	}
	if d.RetryAfter != d.ResetAt.Sub(clock.now) {
		t.Errorf("retryAfter: got %v, want %v", d.RetryAfter, d.ResetAt.Sub(clock.now))
	}
}

func TestRejectedCheckConsumesNoQuota(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	l := newTestLimiter(t, clock, Policy{Name: "credits", Window: time.Minute, MaxRequests: 1})

	ctx := context.Background()

	first, err := l.Check(ctx, "credits", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !first.Allowed {
		t.Fatal("first check should be allowed")
	}

	// Hammer the limiter while rejected; none of these may push resetAt out.
	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		d, err := l.Check(ctx, "credits", "u1")
		if err != nil {
			t.Fatal(err)
		}
		if d.Allowed {
			t.Fatal("check within window should be rejected")
		}
		if !d.ResetAt.Equal(first.ResetAt) {
			t.Fatalf("rejected check moved resetAt: %v != %v", d.ResetAt, first.ResetAt)
		}
	}

	// The original window still drains on schedule.
	clock.now = first.ResetAt
	d, err := l.Check(ctx, "credits", "u1")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Fatal("check after original window should be allowed")
	}
}

func TestIdentifiersAreIndependent(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	l := newTestLimiter(t, clock, Policy{Name: "analyze", Window: time.Minute, MaxRequests: 1})

	ctx := context.Background()

	if d, _ := l.Check(ctx, "analyze", "u1"); !d.Allowed {
		t.Fatal("u1 first check should be allowed")
	}
	if d, _ := l.Check(ctx, "analyze", "u2"); !d.Allowed {
		t.Fatal("u2 should not share u1's window")
	}
	if d, _ := l.Check(ctx, "analyze", "u1"); d.Allowed {
		t.Fatal("u1 second check should be rejected")
	}
}

func TestPoliciesAreIndependent(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	l := newTestLimiter(t, clock,
		Policy{Name: "analyze", Window: time.Minute, MaxRequests: 1},
		Policy{Name: "credits", Window: time.Minute, MaxRequests: 1},
	)

	ctx := context.Background()

	if d, _ := l.Check(ctx, "analyze", "u1"); !d.Allowed {
		t.Fatal("analyze check should be allowed")
	}
	if d, _ := l.Check(ctx, "credits", "u1"); !d.Allowed {
		t.Fatal("credits policy should not share the analyze window")
	}
}

func TestUnknownPolicy(t *testing.T) {
	clock := &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
	l := newTestLimiter(t, clock)

	_, err := l.Check(context.Background(), "nope", "u1")
	if !errors.Is(err, ErrUnknownPolicy) {
		t.Fatalf("expected ErrUnknownPolicy, got %v", err)
	}
}

func TestEvictIdle(t *testing.T) {
	store := NewMemoryStore()
	t.Cleanup(func() { _ = store.Close() })

	now := time.UnixMilli(1_700_000_000_000)
	if _, err := store.Take(context.Background(), "analyze:u1", time.Minute, 3, now); err != nil {
		t.Fatal(err)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 bucket, got %d", store.Len())
	}

	store.evictIdle(now.Add(2 * time.Minute))
	if store.Len() != 0 {
		t.Fatalf("expected idle bucket evicted, got %d", store.Len())
	}
}
