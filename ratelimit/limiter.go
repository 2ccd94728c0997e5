// Package ratelimit provides sliding-window admission control for the
// balance-mutating endpoints.
//
// A Limiter holds named policies (window length plus request ceiling) and
// checks identifiers against them through a pluggable window store. The
// bundled MemoryStore keeps windows in process memory; deployments that
// need cross-instance limiting can supply a shared Store implementation.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ErrUnknownPolicy is returned when a check names a policy that was
// never registered.
var ErrUnknownPolicy = errors.New("ratelimit: unknown policy")

// Policy selects a window length and request ceiling by name.
type Policy struct {
	Name        string        `json:"name"`
	Window      time.Duration `json:"window"`
	MaxRequests int           `json:"max_requests"`
}

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool          `json:"allowed"`
	Limit     int           `json:"limit"`
	Remaining int           `json:"remaining"`
	ResetAt   time.Time     `json:"reset_at"`
	// RetryAfter is how long to wait before the next attempt can succeed.
	// Meaningful only when the check was denied.
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Store holds request windows keyed by bucket. Take must atomically
// prune entries older than now-window, decide, and record now only when
// the request is allowed — a rejected check consumes no quota.
type Store interface {
	Take(ctx context.Context, bucket string, window time.Duration, limit int, now time.Time) (Decision, error)
	Close() error
}

// Limiter checks identifiers against named policies.
type Limiter struct {
	store    Store
	policies map[string]Policy
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Limiter) { l.logger = logger }
}

// WithPolicy registers a named policy. Registering the same name twice
// replaces the earlier policy.
func WithPolicy(p Policy) Option {
	return func(l *Limiter) { l.policies[p.Name] = p }
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter over the given window store.
func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{
		store:    store,
		policies: make(map[string]Policy),
		logger:   slog.Default(),
		now:      time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Check decides whether a request by identifier is admitted under the
// named policy. The identifier is any stable string: a user id, an API
// key, a client address.
func (l *Limiter) Check(ctx context.Context, policyName, identifier string) (Decision, error) {
	p, ok := l.policies[policyName]
	if !ok {
		return Decision{}, fmt.Errorf("%w: %q", ErrUnknownPolicy, policyName)
	}

	bucket := p.Name + ":" + identifier
	d, err := l.store.Take(ctx, bucket, p.Window, p.MaxRequests, l.now())
	if err != nil {
		return Decision{}, fmt.Errorf("ratelimit: take %q: %w", bucket, err)
	}

	if !d.Allowed {
		l.logger.Debug("rate limit exceeded",
			"policy", p.Name,
			"identifier", identifier,
			"reset_at", d.ResetAt,
		)
	}

	return d, nil
}

// Policy returns the registered policy by name.
func (l *Limiter) Policy(name string) (Policy, bool) {
	p, ok := l.policies[name]
	return p, ok
}

// Close releases the underlying store.
func (l *Limiter) Close() error {
	return l.store.Close()
}
