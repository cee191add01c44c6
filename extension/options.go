package extension

import (
	"github.com/xraph/medquote"
	"github.com/xraph/medquote/config"
	"github.com/xraph/medquote/plugin"
	"github.com/xraph/medquote/store"
)

// Option configures the medquote Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a medquote.Option through to the underlying engine.
// Pass-through options are applied after config-derived ones.
func WithEngineOption(opt medquote.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an engine plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, medquote.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithEngineConfig sets only the engine settings.
func WithEngineConfig(cfg config.Config) Option {
	return func(e *Extension) { e.config.Config = cfg }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}
