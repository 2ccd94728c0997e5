// Package extension provides the Forge extension adapter for Replay.
//
// It implements the forge.Extension interface to integrate Replay
// into a Forge application with automatic dependency discovery,
// DI registration, and lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.replay" or "replay" keys.
package extension

import (
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/replay"
	"github.com/xraph/replay/store"
	"github.com/xraph/replay/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "replay"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Credit-gated, cache-first video analysis engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts Replay as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *replay.Engine
	store      store.Store
	engineOpts []replay.Option
}

// New creates a new Replay Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying Replay engine.
// This is nil until Register is called.
func (e *Extension) Engine() *replay.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the replay engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	// Use memory store if no store was provided programmatically.
	if e.store == nil {
		e.store = memory.New()
	}

	// Build engine options from resolved config.
	opts := e.buildEngineOpts()

	e.engine = replay.New(e.store, opts...)

	return vessel.Provide(fapp.Container(), func() (*replay.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("replay: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("replay: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs replay.Option values from the resolved config.
func (e *Extension) buildEngineOpts() []replay.Option {
	opts := make([]replay.Option, 0, len(e.engineOpts)+2)

	// Apply config-derived options.
	if e.config.JournalBatchSize > 0 || e.config.JournalFlushInterval > 0 {
		batchSize := e.config.JournalBatchSize
		flushInterval := e.config.JournalFlushInterval
		defaults := DefaultConfig()
		if batchSize == 0 {
			batchSize = defaults.JournalBatchSize
		}
		if flushInterval == 0 {
			flushInterval = defaults.JournalFlushInterval
		}
		opts = append(opts, replay.WithJournalConfig(batchSize, flushInterval))
	}

	if e.config.AnalysisTimeout > 0 {
		opts = append(opts, replay.WithAnalysisTimeout(e.config.AnalysisTimeout))
	}

	// Append any pass-through engine options.
	opts = append(opts, e.engineOpts...)

	return opts
}

// --- Config Loading (mirrors grove/shield extension pattern) ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	// Try loading from config file.
	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("replay: configuration is required but not found in config files; " +
				"ensure 'extensions.replay' or 'replay' key exists in your config")
		}

		// Use programmatic config merged with defaults.
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		// Config loaded from YAML -- merge with programmatic options.
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("replay: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("journal_batch_size", e.config.JournalBatchSize),
		forge.F("journal_flush_interval", e.config.JournalFlushInterval),
		forge.F("analysis_timeout", e.config.AnalysisTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()
	var cfg Config

	// Try "extensions.replay" first (namespaced pattern).
	if cm.IsSet("extensions.replay") {
		if err := cm.Bind("extensions.replay", &cfg); err == nil {
			e.Logger().Debug("replay: loaded config from file",
				forge.F("key", "extensions.replay"),
			)
			return cfg, true
		}
		e.Logger().Warn("replay: failed to bind extensions.replay config",
			forge.F("error", "bind failed"),
		)
	}

	// Try legacy "replay" key.
	if cm.IsSet("replay") {
		if err := cm.Bind("replay", &cfg); err == nil {
			e.Logger().Debug("replay: loaded config from file",
				forge.F("key", "replay"),
			)
			return cfg, true
		}
		e.Logger().Warn("replay: failed to bind replay config",
			forge.F("error", "bind failed"),
		)
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.JournalBatchSize == 0 {
		cfg.JournalBatchSize = defaults.JournalBatchSize
	}
	if cfg.JournalFlushInterval == 0 {
		cfg.JournalFlushInterval = defaults.JournalFlushInterval
	}
	if cfg.AnalysisTimeout == 0 {
		cfg.AnalysisTimeout = defaults.AnalysisTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence for most fields; programmatic bool flags fill gaps.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	// Programmatic bool flags override when true.
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	// String fields: YAML takes precedence.
	if yamlConfig.BasePath == "" && programmaticConfig.BasePath != "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}

	// Duration/int fields: YAML takes precedence, programmatic fills gaps.
	if yamlConfig.JournalBatchSize == 0 && programmaticConfig.JournalBatchSize != 0 {
		yamlConfig.JournalBatchSize = programmaticConfig.JournalBatchSize
	}
	if yamlConfig.JournalFlushInterval == 0 && programmaticConfig.JournalFlushInterval != 0 {
		yamlConfig.JournalFlushInterval = programmaticConfig.JournalFlushInterval
	}
	if yamlConfig.AnalysisTimeout == 0 && programmaticConfig.AnalysisTimeout != 0 {
		yamlConfig.AnalysisTimeout = programmaticConfig.AnalysisTimeout
	}

	// Fill remaining zeros with defaults.
	return e.mergeWithDefaults(yamlConfig)
}
