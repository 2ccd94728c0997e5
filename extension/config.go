package extension

import "time"

// Config holds the Replay extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.replay" or "replay" keys).
type Config struct {
	// DisableRoutes prevents HTTP route registration.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for replay routes (default: "/replay").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// JournalBatchSize is the number of transactions to buffer before
	// flushing to the store (default: 100).
	JournalBatchSize int `json:"journal_batch_size" mapstructure:"journal_batch_size" yaml:"journal_batch_size"`

	// JournalFlushInterval is how frequently the journal buffer is flushed
	// even if the batch size has not been reached (default: 5s).
	JournalFlushInterval time.Duration `json:"journal_flush_interval" mapstructure:"journal_flush_interval" yaml:"journal_flush_interval"`

	// AnalysisTimeout bounds each external analyzer call (default: 2m).
	// Calls that exceed it fail and are refunded in full.
	AnalysisTimeout time.Duration `json:"analysis_timeout" mapstructure:"analysis_timeout" yaml:"analysis_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		JournalBatchSize:     100,
		JournalFlushInterval: 5 * time.Second,
		AnalysisTimeout:      2 * time.Minute,
	}
}
