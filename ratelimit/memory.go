package ratelimit

import (
	"context"
	"sync"
	"time"
)

// compile-time interface check
var _ Store = (*MemoryStore)(nil)

// MemoryStore keeps sliding windows in process memory. State is shared
// only within one running instance and is lost on restart; that is an
// accepted weakening for single-instance deployments.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]*window

	stopChan chan struct{}
	stopOnce sync.Once
}

type window struct {
	stamps []time.Time
	// span is the window length last used for this bucket; the janitor
	// uses it to recognize buckets with nothing left to prune.
	span time.Duration
}

// NewMemoryStore creates a MemoryStore and starts a background janitor
// that evicts idle buckets.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		windows:  make(map[string]*window),
		stopChan: make(chan struct{}),
	}

	go s.janitor()

	return s
}

// Take implements Store. Entries older than now-window are discarded;
// if fewer than limit remain, now is recorded and the request admitted.
// At exactly limit outstanding entries the request is rejected and
// nothing is recorded.
func (s *MemoryStore) Take(_ context.Context, bucket string, span time.Duration, limit int, now time.Time) (Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[bucket]
	if !ok {
		w = &window{}
		s.windows[bucket] = w
	}
	w.span = span
	w.stamps = prune(w.stamps, now.Add(-span))

	count := len(w.stamps)
	if count >= limit {
		resetAt := w.stamps[0].Add(span)
		return Decision{
			Allowed:    false,
			Limit:      limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: resetAt.Sub(now),
		}, nil
	}

	w.stamps = append(w.stamps, now)

	return Decision{
		Allowed:   true,
		Limit:     limit,
		Remaining: limit - count - 1,
		ResetAt:   w.stamps[0].Add(span),
	}, nil
}

// Close stops the janitor.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	return nil
}

// Len returns the number of tracked buckets.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.windows)
}

func (s *MemoryStore) janitor() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case now := <-ticker.C:
			s.evictIdle(now)
		}
	}
}

func (s *MemoryStore) evictIdle(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for bucket, w := range s.windows {
		w.stamps = prune(w.stamps, now.Add(-w.span))
		if len(w.stamps) == 0 {
			delete(s.windows, bucket)
		}
	}
}

// prune drops timestamps at or before the cutoff. Stamps are appended in
// order, so the first survivor ends the scan.
func prune(stamps []time.Time, cutoff time.Time) []time.Time {
	i := 0
	for i < len(stamps) && !stamps[i].After(cutoff) {
		i++
	}
	if i == 0 {
		return stamps
	}
	return append(stamps[:0], stamps[i:]...)
}
