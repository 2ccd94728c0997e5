// Package plugin provides an extensible plugin system for Replay.
// Plugins can hook into various lifecycle events to extend functionality.
package plugin

import (
	"context"
	"time"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the plugin is initialized.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the plugin is shutting down.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Account lifecycle hooks
// ──────────────────────────────────────────────────

// OnAccountCreated is called when a new account is created.
type OnAccountCreated interface {
	Plugin
	OnAccountCreated(ctx context.Context, acct interface{}) error
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnPointsDebited is called after points are withdrawn from an account.
type OnPointsDebited interface {
	Plugin
	OnPointsDebited(ctx context.Context, userID string, points, balance int64) error
}

// OnPointsCredited is called after points are deposited into an account.
type OnPointsCredited interface {
	Plugin
	OnPointsCredited(ctx context.Context, userID string, points, balance int64) error
}

// OnPointsRefunded is called after a compensating refund lands.
type OnPointsRefunded interface {
	Plugin
	OnPointsRefunded(ctx context.Context, userID string, points, balance int64) error
}

// OnInsufficientFunds is called when a debit is rejected for lack of balance.
type OnInsufficientFunds interface {
	Plugin
	OnInsufficientFunds(ctx context.Context, userID string, required, current int64) error
}

// ──────────────────────────────────────────────────
// Analysis hooks
// ──────────────────────────────────────────────────

// OnCacheHit is called when an analysis request is served from cache.
type OnCacheHit interface {
	Plugin
	OnCacheHit(ctx context.Context, fingerprint string) error
}

// OnCacheMiss is called when an analysis request misses the cache.
type OnCacheMiss interface {
	Plugin
	OnCacheMiss(ctx context.Context, fingerprint string) error
}

// OnAnalysisCompleted is called after a fresh analysis is cached.
type OnAnalysisCompleted interface {
	Plugin
	OnAnalysisCompleted(ctx context.Context, fingerprint string, pointsUsed int64, elapsed time.Duration) error
}

// OnAnalysisFailed is called when the analyzer errors or times out.
type OnAnalysisFailed interface {
	Plugin
	OnAnalysisFailed(ctx context.Context, fingerprint string, err error) error
}

// ──────────────────────────────────────────────────
// Rate limit hooks
// ──────────────────────────────────────────────────

// OnRateLimited is called when a request is rejected by the limiter.
type OnRateLimited interface {
	Plugin
	OnRateLimited(ctx context.Context, policy, identifier string) error
}

// ──────────────────────────────────────────────────
// Journal hooks
// ──────────────────────────────────────────────────

// OnJournalFlushed is called when buffered transactions are flushed to the store.
type OnJournalFlushed interface {
	Plugin
	OnJournalFlushed(ctx context.Context, count int, elapsed time.Duration) error
}

// ──────────────────────────────────────────────────
// Statement hooks
// ──────────────────────────────────────────────────

// OnStatementGenerated is called when a usage statement is generated.
type OnStatementGenerated interface {
	Plugin
	OnStatementGenerated(ctx context.Context, stmt interface{}) error
}

// ──────────────────────────────────────────────────
// Analyzer providers
// ──────────────────────────────────────────────────

// AnalyzerPlugin provides an analyzer backend implementation.
type AnalyzerPlugin interface {
	Plugin
	Analyzer() interface{} // Returns analysis.Analyzer
}

// ──────────────────────────────────────────────────
// Cost estimators
// ──────────────────────────────────────────────────

// CostEstimator provides custom analysis pricing.
type CostEstimator interface {
	Plugin
	EstimatorName() string
	Estimate(tier string, durationSeconds int64) (int64, bool)
}
