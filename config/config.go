// Package config loads engine settings from YAML, a .env file and the
// process environment.
//
// Precedence, lowest first: DefaultConfig, the YAML file, variables loaded
// from .env, then MEDQUOTE_* variables already present in the environment.
// Keys map to variables by upper-casing and replacing dots with
// underscores, so "commission.standard_rate" reads MEDQUOTE_COMMISSION_STANDARD_RATE.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/xraph/medquote"
	"github.com/xraph/medquote/allocator"
	"github.com/xraph/medquote/commission"
	"github.com/xraph/medquote/quote"
	"github.com/xraph/medquote/types"
)

// EnvPrefix is prepended to every environment override.
const EnvPrefix = "MEDQUOTE"

// Config is the serialisable form of the engine options.
type Config struct {
	Quote      QuoteConfig      `json:"quote" mapstructure:"quote" yaml:"quote"`
	Allocator  AllocatorConfig  `json:"allocator" mapstructure:"allocator" yaml:"allocator"`
	Commission CommissionConfig `json:"commission" mapstructure:"commission" yaml:"commission"`
	Invoice    InvoiceConfig    `json:"invoice" mapstructure:"invoice" yaml:"invoice"`
	Training   TrainingConfig   `json:"training" mapstructure:"training" yaml:"training"`
}

// QuoteConfig controls request expiry and progressive disclosure.
type QuoteConfig struct {
	TTL            time.Duration `json:"ttl" mapstructure:"ttl" yaml:"ttl"`
	InitialVisible int           `json:"initial_visible" mapstructure:"initial_visible" yaml:"initial_visible"`
	VisibleStep    int           `json:"visible_step" mapstructure:"visible_step" yaml:"visible_step"`
	ExpirySweep    time.Duration `json:"expiry_sweep" mapstructure:"expiry_sweep" yaml:"expiry_sweep"`
}

// AllocatorConfig mirrors allocator.Config without the surcharge table.
type AllocatorConfig struct {
	HighResponderCutoff  float64 `json:"high_responder_cutoff" mapstructure:"high_responder_cutoff" yaml:"high_responder_cutoff"`
	UrgencyMultiplier    string  `json:"urgency_multiplier" mapstructure:"urgency_multiplier" yaml:"urgency_multiplier"`
	SubscriberMultiplier string  `json:"subscriber_multiplier" mapstructure:"subscriber_multiplier" yaml:"subscriber_multiplier"`
	MinETAHours          int     `json:"min_eta_hours" mapstructure:"min_eta_hours" yaml:"min_eta_hours"`
	MaxETAHours          int     `json:"max_eta_hours" mapstructure:"max_eta_hours" yaml:"max_eta_hours"`
}

// CommissionConfig holds the tiered policy. Rates are basis points and the
// threshold is in whole dollars.
type CommissionConfig struct {
	ThresholdDollars int64 `json:"threshold_dollars" mapstructure:"threshold_dollars" yaml:"threshold_dollars"`
	DiscountedRate   int64 `json:"discounted_rate" mapstructure:"discounted_rate" yaml:"discounted_rate"`
	StandardRate     int64 `json:"standard_rate" mapstructure:"standard_rate" yaml:"standard_rate"`
	RecoupRate       int64 `json:"recoup_rate" mapstructure:"recoup_rate" yaml:"recoup_rate"`
	RecoupRetries    int   `json:"recoup_retries" mapstructure:"recoup_retries" yaml:"recoup_retries"`
}

// InvoiceConfig controls the weekly consolidation job.
type InvoiceConfig struct {
	Interval        time.Duration `json:"interval" mapstructure:"interval" yaml:"interval"`
	ClosedWeeksOnly bool          `json:"closed_weeks_only" mapstructure:"closed_weeks_only" yaml:"closed_weeks_only"`
}

// TrainingConfig bounds free training requests.
type TrainingConfig struct {
	Limit     int           `json:"limit" mapstructure:"limit" yaml:"limit"`
	Retention time.Duration `json:"retention" mapstructure:"retention" yaml:"retention"`
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	alloc := allocator.DefaultConfig()
	policy := commission.DefaultPolicy()
	return Config{
		Quote: QuoteConfig{
			TTL:            quote.DefaultTTL,
			InitialVisible: quote.DefaultVisibleCount,
			VisibleStep:    quote.DefaultVisibleStep,
		},
		Allocator: AllocatorConfig{
			HighResponderCutoff:  alloc.HighResponderCutoff,
			UrgencyMultiplier:    alloc.UrgencyMultiplier.String(),
			SubscriberMultiplier: alloc.SubscriberMultiplier.String(),
			MinETAHours:          alloc.MinETAHours,
			MaxETAHours:          alloc.MaxETAHours,
		},
		Commission: CommissionConfig{
			ThresholdDollars: policy.Threshold.Amount / 100,
			DiscountedRate:   int64(policy.DiscountedRate),
			StandardRate:     int64(policy.StandardRate),
			RecoupRate:       int64(policy.RecoupRate),
		},
		Training: TrainingConfig{
			Limit:     medquote.DefaultTrainingLimit,
			Retention: medquote.DefaultTrainingRetention,
		},
	}
}

// Load reads the YAML file at path, if any, and applies environment
// overrides. A missing .env or config file is not an error.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("quote.ttl", d.Quote.TTL)
	v.SetDefault("quote.initial_visible", d.Quote.InitialVisible)
	v.SetDefault("quote.visible_step", d.Quote.VisibleStep)
	v.SetDefault("quote.expiry_sweep", d.Quote.ExpirySweep)

	v.SetDefault("allocator.high_responder_cutoff", d.Allocator.HighResponderCutoff)
	v.SetDefault("allocator.urgency_multiplier", d.Allocator.UrgencyMultiplier)
	v.SetDefault("allocator.subscriber_multiplier", d.Allocator.SubscriberMultiplier)
	v.SetDefault("allocator.min_eta_hours", d.Allocator.MinETAHours)
	v.SetDefault("allocator.max_eta_hours", d.Allocator.MaxETAHours)

	v.SetDefault("commission.threshold_dollars", d.Commission.ThresholdDollars)
	v.SetDefault("commission.discounted_rate", d.Commission.DiscountedRate)
	v.SetDefault("commission.standard_rate", d.Commission.StandardRate)
	v.SetDefault("commission.recoup_rate", d.Commission.RecoupRate)
	v.SetDefault("commission.recoup_retries", d.Commission.RecoupRetries)

	v.SetDefault("invoice.interval", d.Invoice.Interval)
	v.SetDefault("invoice.closed_weeks_only", d.Invoice.ClosedWeeksOnly)

	v.SetDefault("training.limit", d.Training.Limit)
	v.SetDefault("training.retention", d.Training.Retention)
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Quote.TTL <= 0:
		return errors.New("config: quote.ttl must be positive")
	case c.Quote.InitialVisible < 1:
		return errors.New("config: quote.initial_visible must be at least 1")
	case c.Quote.VisibleStep < 1:
		return errors.New("config: quote.visible_step must be at least 1")
	case c.Allocator.MinETAHours > c.Allocator.MaxETAHours:
		return errors.New("config: allocator.min_eta_hours exceeds max_eta_hours")
	case c.Commission.ThresholdDollars < 0:
		return errors.New("config: commission.threshold_dollars must not be negative")
	case c.Commission.RecoupRate > c.Commission.DiscountedRate:
		return errors.New("config: commission.recoup_rate exceeds discounted_rate")
	}
	if _, err := decimal.NewFromString(c.Allocator.UrgencyMultiplier); err != nil {
		return fmt.Errorf("config: allocator.urgency_multiplier: %w", err)
	}
	if _, err := decimal.NewFromString(c.Allocator.SubscriberMultiplier); err != nil {
		return fmt.Errorf("config: allocator.subscriber_multiplier: %w", err)
	}
	return nil
}

// AllocatorConfig converts the settings into an allocator.Config using the
// default surcharge table.
func (c Config) AllocatorConfig() allocator.Config {
	out := allocator.DefaultConfig()
	out.HighResponderCutoff = c.Allocator.HighResponderCutoff
	if d, err := decimal.NewFromString(c.Allocator.UrgencyMultiplier); err == nil {
		out.UrgencyMultiplier = d
	}
	if d, err := decimal.NewFromString(c.Allocator.SubscriberMultiplier); err == nil {
		out.SubscriberMultiplier = d
	}
	out.MinETAHours = c.Allocator.MinETAHours
	out.MaxETAHours = c.Allocator.MaxETAHours
	return out
}

// Policy converts the commission settings.
func (c Config) Policy() commission.Policy {
	return commission.Policy{
		Threshold:      types.Dollars(c.Commission.ThresholdDollars),
		DiscountedRate: commission.Rate(c.Commission.DiscountedRate),
		StandardRate:   commission.Rate(c.Commission.StandardRate),
		RecoupRate:     commission.Rate(c.Commission.RecoupRate),
	}
}

// EngineOptions translates the config into medquote engine options.
// Zero intervals leave the corresponding background job disabled.
func (c Config) EngineOptions() []medquote.Option {
	opts := []medquote.Option{
		medquote.WithQuoteTTL(c.Quote.TTL),
		medquote.WithVisibility(c.Quote.InitialVisible, c.Quote.VisibleStep),
		medquote.WithAllocatorConfig(c.AllocatorConfig()),
		medquote.WithCommissionPolicy(c.Policy()),
		medquote.WithTraining(c.Training.Limit, c.Training.Retention),
	}
	if c.Commission.RecoupRetries > 0 {
		opts = append(opts, medquote.WithRecoupRetries(c.Commission.RecoupRetries))
	}
	if c.Quote.ExpirySweep > 0 {
		opts = append(opts, medquote.WithExpirySweep(c.Quote.ExpirySweep))
	}
	if c.Invoice.Interval > 0 {
		opts = append(opts, medquote.WithInvoiceSchedule(c.Invoice.Interval))
	}
	if c.Invoice.ClosedWeeksOnly {
		opts = append(opts, medquote.WithClosedWeeksOnly())
	}
	return opts
}
