// Package extension provides the Forge extension adapter for medquote.
//
// It implements the forge.Extension interface to integrate the quote
// engine into a Forge application with DI registration and lifecycle
// management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.medquote" or "medquote" keys.
package extension

import (
	"cmp"
	"context"
	"errors"

	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/medquote"
	"github.com/xraph/medquote/config"
	"github.com/xraph/medquote/store"
	"github.com/xraph/medquote/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "medquote"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Medical transport quote allocation and commission engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the medquote engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *medquote.Engine
	store      store.Store
	engineOpts []medquote.Option
}

// New creates a new medquote Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine.
// This is nil until Register is called.
func (e *Extension) Engine() *medquote.Engine { return e.engine }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
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

	e.engine = medquote.New(e.store, e.buildEngineOpts()...)

	return vessel.Provide(fapp.Container(), func() (*medquote.Engine, error) {
		return e.engine, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("medquote: extension not initialized")
	}

	if err := e.engine.Start(ctx); err != nil {
		return err
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
		return errors.New("medquote: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs engine options from the resolved config.
func (e *Extension) buildEngineOpts() []medquote.Option {
	opts := e.config.EngineOptions()
	if e.config.DisableMigrate {
		opts = append(opts, medquote.WithoutMigrate())
	}
	return append(opts, e.engineOpts...)
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("medquote: configuration is required but not found in config files; " +
				"ensure 'extensions.medquote' or 'medquote' key exists in your config")
		}
		e.config = mergeWithDefaults(programmaticConfig)
	} else {
		e.config = mergeConfigurations(fileConfig, programmaticConfig)
	}

	if err := e.config.Validate(); err != nil {
		return err
	}

	e.Logger().Debug("medquote: configuration loaded",
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("quote_ttl", e.config.Quote.TTL),
		forge.F("initial_visible", e.config.Quote.InitialVisible),
		forge.F("expiry_sweep", e.config.Quote.ExpirySweep),
		forge.F("invoice_interval", e.config.Invoice.Interval),
		forge.F("closed_weeks_only", e.config.Invoice.ClosedWeeksOnly),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.medquote", "medquote"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("medquote: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("medquote: loaded config from file", forge.F("key", key))
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func mergeWithDefaults(cfg Config) Config {
	cfg.Config = fill(cfg.Config, config.DefaultConfig())
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps and
// programmatic bool flags override when true.
func mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}
	yamlConfig.RequireConfig = programmaticConfig.RequireConfig
	yamlConfig.Config = fill(yamlConfig.Config, programmaticConfig.Config)
	return mergeWithDefaults(yamlConfig)
}

// fill returns dst with every zero field taken from src.
func fill(dst, src config.Config) config.Config {
	dst.Quote.TTL = cmp.Or(dst.Quote.TTL, src.Quote.TTL)
	dst.Quote.InitialVisible = cmp.Or(dst.Quote.InitialVisible, src.Quote.InitialVisible)
	dst.Quote.VisibleStep = cmp.Or(dst.Quote.VisibleStep, src.Quote.VisibleStep)
	dst.Quote.ExpirySweep = cmp.Or(dst.Quote.ExpirySweep, src.Quote.ExpirySweep)

	dst.Allocator.HighResponderCutoff = cmp.Or(dst.Allocator.HighResponderCutoff, src.Allocator.HighResponderCutoff)
	dst.Allocator.UrgencyMultiplier = cmp.Or(dst.Allocator.UrgencyMultiplier, src.Allocator.UrgencyMultiplier)
	dst.Allocator.SubscriberMultiplier = cmp.Or(dst.Allocator.SubscriberMultiplier, src.Allocator.SubscriberMultiplier)
	dst.Allocator.MinETAHours = cmp.Or(dst.Allocator.MinETAHours, src.Allocator.MinETAHours)
	dst.Allocator.MaxETAHours = cmp.Or(dst.Allocator.MaxETAHours, src.Allocator.MaxETAHours)

	dst.Commission.ThresholdDollars = cmp.Or(dst.Commission.ThresholdDollars, src.Commission.ThresholdDollars)
	dst.Commission.DiscountedRate = cmp.Or(dst.Commission.DiscountedRate, src.Commission.DiscountedRate)
	dst.Commission.StandardRate = cmp.Or(dst.Commission.StandardRate, src.Commission.StandardRate)
	dst.Commission.RecoupRate = cmp.Or(dst.Commission.RecoupRate, src.Commission.RecoupRate)
	dst.Commission.RecoupRetries = cmp.Or(dst.Commission.RecoupRetries, src.Commission.RecoupRetries)

	dst.Invoice.Interval = cmp.Or(dst.Invoice.Interval, src.Invoice.Interval)
	dst.Invoice.ClosedWeeksOnly = dst.Invoice.ClosedWeeksOnly || src.Invoice.ClosedWeeksOnly

	dst.Training.Limit = cmp.Or(dst.Training.Limit, src.Training.Limit)
	dst.Training.Retention = cmp.Or(dst.Training.Retention, src.Training.Retention)
	return dst
}
