package extension

import (
	"time"

	"github.com/xraph/replay"
	"github.com/xraph/replay/analysis"
	"github.com/xraph/replay/plugin"
	"github.com/xraph/replay/store"
)

// Option configures the Replay Forge extension.
type Option func(*Extension)

// WithStore sets the store for the replay engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a replay.Option through to the underlying engine.
func WithEngineOption(opt replay.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers a replay plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, replay.WithPlugin(p))
	}
}

// WithAnalyzer sets the analyzer backend for the engine.
func WithAnalyzer(a analysis.Analyzer) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, replay.WithAnalyzer(a))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes prevents HTTP route registration.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for replay routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithJournalBatchSize sets the number of transactions to buffer before flushing.
func WithJournalBatchSize(size int) Option {
	return func(e *Extension) { e.config.JournalBatchSize = size }
}

// WithJournalFlushInterval sets how frequently the journal buffer is flushed.
func WithJournalFlushInterval(d time.Duration) Option {
	return func(e *Extension) { e.config.JournalFlushInterval = d }
}

// WithAnalysisTimeout bounds each external analyzer call.
func WithAnalysisTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.AnalysisTimeout = d }
}
