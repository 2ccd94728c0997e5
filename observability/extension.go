// Package observability provides a metrics extension for Replay that records
// lifecycle event counts via go-utils MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/replay/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnAccountCreated     = (*MetricsExtension)(nil)
	_ plugin.OnPointsCredited     = (*MetricsExtension)(nil)
	_ plugin.OnPointsDebited      = (*MetricsExtension)(nil)
	_ plugin.OnPointsRefunded     = (*MetricsExtension)(nil)
	_ plugin.OnInsufficientFunds  = (*MetricsExtension)(nil)
	_ plugin.OnCacheHit           = (*MetricsExtension)(nil)
	_ plugin.OnCacheMiss          = (*MetricsExtension)(nil)
	_ plugin.OnAnalysisCompleted  = (*MetricsExtension)(nil)
	_ plugin.OnAnalysisFailed     = (*MetricsExtension)(nil)
	_ plugin.OnRateLimited        = (*MetricsExtension)(nil)
	_ plugin.OnJournalFlushed     = (*MetricsExtension)(nil)
	_ plugin.OnStatementGenerated = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as a Replay plugin to automatically track pipeline metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Account metrics
	AccountsCreated Counter

	// Balance metrics
	PointsCredited    Counter
	PointsDebited     Counter
	PointsRefunded    Counter
	InsufficientFunds Counter
	CreditAmount      Histogram
	DebitAmount       Histogram

	// Cache metrics
	CacheHits   Counter
	CacheMisses Counter

	// Analysis metrics
	AnalysesCompleted Counter
	AnalysesFailed    Counter
	AnalysisCost      Histogram
	AnalysisLatency   Histogram

	// Rate limit metrics
	RequestsLimited Counter

	// Journal metrics
	JournalBatchSize    Histogram
	JournalFlushLatency Histogram

	// Statement metrics
	StatementsGenerated Counter

	// Error metrics
	StoreErrors  Counter
	PluginErrors Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		// Account metrics
		AccountsCreated: factory.Counter("replay.account.created"),

		// Balance metrics
		PointsCredited:    factory.Counter("replay.points.credited"),
		PointsDebited:     factory.Counter("replay.points.debited"),
		PointsRefunded:    factory.Counter("replay.points.refunded"),
		InsufficientFunds: factory.Counter("replay.points.insufficient"),
		CreditAmount:      factory.Histogram("replay.points.credit_amount"),
		DebitAmount:       factory.Histogram("replay.points.debit_amount"),

		// Cache metrics
		CacheHits:   factory.Counter("replay.cache.hits"),
		CacheMisses: factory.Counter("replay.cache.misses"),

		// Analysis metrics
		AnalysesCompleted: factory.Counter("replay.analysis.completed"),
		AnalysesFailed:    factory.Counter("replay.analysis.failed"),
		AnalysisCost:      factory.Histogram("replay.analysis.cost_points"),
		AnalysisLatency:   factory.Histogram("replay.analysis.latency_ms"),

		// Rate limit metrics
		RequestsLimited: factory.Counter("replay.ratelimit.rejected"),

		// Journal metrics
		JournalBatchSize:    factory.Histogram("replay.journal.batch.size"),
		JournalFlushLatency: factory.Histogram("replay.journal.flush.latency_ms"),

		// Statement metrics
		StatementsGenerated: factory.Counter("replay.statement.generated"),

		// Error metrics
		StoreErrors:  factory.Counter("replay.store.errors"),
		PluginErrors: factory.Counter("replay.plugin.errors"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ interface{}) error {
	// No initialization needed
	return nil
}

// ──────────────────────────────────────────────────
// Account lifecycle hooks
// ──────────────────────────────────────────────────

// OnAccountCreated implements plugin.OnAccountCreated.
func (m *MetricsExtension) OnAccountCreated(_ context.Context, _ interface{}) error {
	m.AccountsCreated.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnPointsCredited implements plugin.OnPointsCredited.
func (m *MetricsExtension) OnPointsCredited(_ context.Context, _ string, points, _ int64) error {
	m.PointsCredited.Inc()
	m.CreditAmount.Observe(float64(points))
	return nil
}

// OnPointsDebited implements plugin.OnPointsDebited.
func (m *MetricsExtension) OnPointsDebited(_ context.Context, _ string, points, _ int64) error {
	m.PointsDebited.Inc()
	m.DebitAmount.Observe(float64(points))
	return nil
}

// OnPointsRefunded implements plugin.OnPointsRefunded.
func (m *MetricsExtension) OnPointsRefunded(_ context.Context, _ string, _, _ int64) error {
	m.PointsRefunded.Inc()
	return nil
}

// OnInsufficientFunds implements plugin.OnInsufficientFunds.
func (m *MetricsExtension) OnInsufficientFunds(_ context.Context, _ string, _, _ int64) error {
	m.InsufficientFunds.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Cache hooks
// ──────────────────────────────────────────────────

// OnCacheHit implements plugin.OnCacheHit.
func (m *MetricsExtension) OnCacheHit(_ context.Context, _ string) error {
	m.CacheHits.Inc()
	return nil
}

// OnCacheMiss implements plugin.OnCacheMiss.
func (m *MetricsExtension) OnCacheMiss(_ context.Context, _ string) error {
	m.CacheMisses.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Analysis hooks
// ──────────────────────────────────────────────────

// OnAnalysisCompleted implements plugin.OnAnalysisCompleted.
func (m *MetricsExtension) OnAnalysisCompleted(_ context.Context, _ string, pointsUsed int64, elapsed time.Duration) error {
	m.AnalysesCompleted.Inc()
	m.AnalysisCost.Observe(float64(pointsUsed))
	m.AnalysisLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// OnAnalysisFailed implements plugin.OnAnalysisFailed.
func (m *MetricsExtension) OnAnalysisFailed(_ context.Context, _ string, _ error) error {
	m.AnalysesFailed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Rate limit hooks
// ──────────────────────────────────────────────────

// OnRateLimited implements plugin.OnRateLimited.
func (m *MetricsExtension) OnRateLimited(_ context.Context, _, _ string) error {
	m.RequestsLimited.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Journal hooks
// ──────────────────────────────────────────────────

// OnJournalFlushed implements plugin.OnJournalFlushed.
func (m *MetricsExtension) OnJournalFlushed(_ context.Context, count int, elapsed time.Duration) error {
	m.JournalBatchSize.Observe(float64(count))
	m.JournalFlushLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}

// ──────────────────────────────────────────────────
// Statement hooks
// ──────────────────────────────────────────────────

// OnStatementGenerated implements plugin.OnStatementGenerated.
func (m *MetricsExtension) OnStatementGenerated(_ context.Context, _ interface{}) error {
	m.StatementsGenerated.Inc()
	return nil
}
