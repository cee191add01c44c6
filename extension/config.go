package extension

import "github.com/xraph/medquote/config"

// Config holds the medquote extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.medquote" or "medquote" keys).
type Config struct {
	config.Config `mapstructure:",squash" yaml:",inline"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with the engine defaults.
func DefaultConfig() Config {
	return Config{Config: config.DefaultConfig()}
}
