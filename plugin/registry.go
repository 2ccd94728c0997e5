package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"
)

// Registry manages all registered plugins and provides efficient dispatch.
// It uses type-cached discovery for O(1) dispatch performance.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger

	// Type-cached plugin lists for efficient dispatch
	onInit               []OnInit
	onShutdown           []OnShutdown
	onAccountCreated     []OnAccountCreated
	onPointsDebited      []OnPointsDebited
	onPointsCredited     []OnPointsCredited
	onPointsRefunded     []OnPointsRefunded
	onInsufficientFunds  []OnInsufficientFunds
	onCacheHit           []OnCacheHit
	onCacheMiss          []OnCacheMiss
	onAnalysisCompleted  []OnAnalysisCompleted
	onAnalysisFailed     []OnAnalysisFailed
	onRateLimited        []OnRateLimited
	onJournalFlushed     []OnJournalFlushed
	onStatementGenerated []OnStatementGenerated
	analyzers            []AnalyzerPlugin
	costEstimators       map[string]CostEstimator
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:         slog.Default(),
		costEstimators: make(map[string]CostEstimator),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a plugin to the registry and caches its interfaces.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Check for duplicate
	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}

	r.plugins = append(r.plugins, p)

	// Type-switch to cache interfaces
	if v, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := p.(OnAccountCreated); ok {
		r.onAccountCreated = append(r.onAccountCreated, v)
	}
	if v, ok := p.(OnPointsDebited); ok {
		r.onPointsDebited = append(r.onPointsDebited, v)
	}
	if v, ok := p.(OnPointsCredited); ok {
		r.onPointsCredited = append(r.onPointsCredited, v)
	}
	if v, ok := p.(OnPointsRefunded); ok {
		r.onPointsRefunded = append(r.onPointsRefunded, v)
	}
	if v, ok := p.(OnInsufficientFunds); ok {
		r.onInsufficientFunds = append(r.onInsufficientFunds, v)
	}
	if v, ok := p.(OnCacheHit); ok {
		r.onCacheHit = append(r.onCacheHit, v)
	}
	if v, ok := p.(OnCacheMiss); ok {
		r.onCacheMiss = append(r.onCacheMiss, v)
	}
	if v, ok := p.(OnAnalysisCompleted); ok {
		r.onAnalysisCompleted = append(r.onAnalysisCompleted, v)
	}
	if v, ok := p.(OnAnalysisFailed); ok {
		r.onAnalysisFailed = append(r.onAnalysisFailed, v)
	}
	if v, ok := p.(OnRateLimited); ok {
		r.onRateLimited = append(r.onRateLimited, v)
	}
	if v, ok := p.(OnJournalFlushed); ok {
		r.onJournalFlushed = append(r.onJournalFlushed, v)
	}
	if v, ok := p.(OnStatementGenerated); ok {
		r.onStatementGenerated = append(r.onStatementGenerated, v)
	}
	if v, ok := p.(AnalyzerPlugin); ok {
		r.analyzers = append(r.analyzers, v)
	}
	if v, ok := p.(CostEstimator); ok {
		r.costEstimators[v.EstimatorName()] = v
	}

	r.logger.Info("plugin registered",
		"name", p.Name(),
		"interfaces", r.getImplementedInterfaces(p),
	)

	return nil
}

// getImplementedInterfaces returns a list of interfaces implemented by the plugin.
func (r *Registry) getImplementedInterfaces(p Plugin) []string {
	var interfaces []string
	v := reflect.TypeOf(p)

	// Check each interface
	checkInterface := func(iface reflect.Type, name string) {
		if v.Implements(iface) {
			interfaces = append(interfaces, name)
		}
	}

	// List all interfaces to check
	checkInterface(reflect.TypeOf((*OnInit)(nil)).Elem(), "OnInit")
	checkInterface(reflect.TypeOf((*OnShutdown)(nil)).Elem(), "OnShutdown")
	checkInterface(reflect.TypeOf((*OnAccountCreated)(nil)).Elem(), "OnAccountCreated")
	checkInterface(reflect.TypeOf((*OnPointsDebited)(nil)).Elem(), "OnPointsDebited")
	checkInterface(reflect.TypeOf((*OnCacheHit)(nil)).Elem(), "OnCacheHit")
	checkInterface(reflect.TypeOf((*OnAnalysisCompleted)(nil)).Elem(), "OnAnalysisCompleted")
	checkInterface(reflect.TypeOf((*OnRateLimited)(nil)).Elem(), "OnRateLimited")
	checkInterface(reflect.TypeOf((*AnalyzerPlugin)(nil)).Elem(), "AnalyzerPlugin")
	checkInterface(reflect.TypeOf((*CostEstimator)(nil)).Elem(), "CostEstimator")

	return interfaces
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAccountCreated emits an account created event.
func (r *Registry) EmitAccountCreated(ctx context.Context, acct interface{}) {
	r.mu.RLock()
	plugins := r.onAccountCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAccountCreated(ctx, acct)
		}); err != nil {
			r.logger.Warn("plugin OnAccountCreated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPointsDebited emits a points debited event.
func (r *Registry) EmitPointsDebited(ctx context.Context, userID string, points, balance int64) {
	r.mu.RLock()
	plugins := r.onPointsDebited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPointsDebited(ctx, userID, points, balance)
		}); err != nil {
			r.logger.Warn("plugin OnPointsDebited failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPointsCredited emits a points credited event.
func (r *Registry) EmitPointsCredited(ctx context.Context, userID string, points, balance int64) {
	r.mu.RLock()
	plugins := r.onPointsCredited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPointsCredited(ctx, userID, points, balance)
		}); err != nil {
			r.logger.Warn("plugin OnPointsCredited failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitPointsRefunded emits a points refunded event.
func (r *Registry) EmitPointsRefunded(ctx context.Context, userID string, points, balance int64) {
	r.mu.RLock()
	plugins := r.onPointsRefunded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnPointsRefunded(ctx, userID, points, balance)
		}); err != nil {
			r.logger.Warn("plugin OnPointsRefunded failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitInsufficientFunds emits an insufficient funds event.
func (r *Registry) EmitInsufficientFunds(ctx context.Context, userID string, required, current int64) {
	r.mu.RLock()
	plugins := r.onInsufficientFunds
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnInsufficientFunds(ctx, userID, required, current)
		}); err != nil {
			r.logger.Warn("plugin OnInsufficientFunds failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCacheHit emits a cache hit event.
func (r *Registry) EmitCacheHit(ctx context.Context, fingerprint string) {
	r.mu.RLock()
	plugins := r.onCacheHit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCacheHit(ctx, fingerprint)
		}); err != nil {
			r.logger.Warn("plugin OnCacheHit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitCacheMiss emits a cache miss event.
func (r *Registry) EmitCacheMiss(ctx context.Context, fingerprint string) {
	r.mu.RLock()
	plugins := r.onCacheMiss
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnCacheMiss(ctx, fingerprint)
		}); err != nil {
			r.logger.Warn("plugin OnCacheMiss failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAnalysisCompleted emits an analysis completed event.
func (r *Registry) EmitAnalysisCompleted(ctx context.Context, fingerprint string, pointsUsed int64, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onAnalysisCompleted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAnalysisCompleted(ctx, fingerprint, pointsUsed, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnAnalysisCompleted failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitAnalysisFailed emits an analysis failed event.
func (r *Registry) EmitAnalysisFailed(ctx context.Context, fingerprint string, failure error) {
	r.mu.RLock()
	plugins := r.onAnalysisFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnAnalysisFailed(ctx, fingerprint, failure)
		}); err != nil {
			r.logger.Warn("plugin OnAnalysisFailed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitRateLimited emits a rate limited event.
func (r *Registry) EmitRateLimited(ctx context.Context, policy, identifier string) {
	r.mu.RLock()
	plugins := r.onRateLimited
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnRateLimited(ctx, policy, identifier)
		}); err != nil {
			r.logger.Warn("plugin OnRateLimited failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitJournalFlushed emits a journal flushed event.
func (r *Registry) EmitJournalFlushed(ctx context.Context, count int, elapsed time.Duration) {
	r.mu.RLock()
	plugins := r.onJournalFlushed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnJournalFlushed(ctx, count, elapsed)
		}); err != nil {
			r.logger.Warn("plugin OnJournalFlushed failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitStatementGenerated emits a statement generated event.
func (r *Registry) EmitStatementGenerated(ctx context.Context, stmt interface{}) {
	r.mu.RLock()
	plugins := r.onStatementGenerated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func() error {
			return p.OnStatementGenerated(ctx, stmt)
		}); err != nil {
			r.logger.Warn("plugin OnStatementGenerated failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// GetAnalyzers returns all registered analyzer plugins.
func (r *Registry) GetAnalyzers() []AnalyzerPlugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]AnalyzerPlugin, len(r.analyzers))
	copy(result, r.analyzers)
	return result
}

// GetCostEstimator returns a cost estimator by name.
func (r *Registry) GetCostEstimator(name string) CostEstimator {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.costEstimators[name]
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the analysis pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		return fmt.Errorf("plugin timeout: %s", pluginName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
