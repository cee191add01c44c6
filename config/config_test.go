package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/xraph/medquote/commission"
	"github.com/xraph/medquote/config"
	"github.com/xraph/medquote/types"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "medquote.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := config.DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if got := cfg.Policy(); got != commission.DefaultPolicy() {
		t.Fatalf("Policy() = %+v, want default policy", got)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Quote.TTL != config.DefaultConfig().Quote.TTL {
		t.Fatalf("TTL = %v, want default", cfg.Quote.TTL)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeYAML(t, `
quote:
  ttl: 12h
  initial_visible: 3
  visible_step: 2
commission:
  threshold_dollars: 10000
  standard_rate: 600
invoice:
  interval: 1h
  closed_weeks_only: true
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Quote.TTL != 12*time.Hour {
		t.Errorf("TTL = %v, want 12h", cfg.Quote.TTL)
	}
	if cfg.Quote.InitialVisible != 3 || cfg.Quote.VisibleStep != 2 {
		t.Errorf("visibility = %d/%d, want 3/2", cfg.Quote.InitialVisible, cfg.Quote.VisibleStep)
	}
	if !cfg.Invoice.ClosedWeeksOnly {
		t.Error("ClosedWeeksOnly = false, want true")
	}

	p := cfg.Policy()
	if p.Threshold != types.Dollars(10000) {
		t.Errorf("Threshold = %v, want 10000 USD", p.Threshold)
	}
	if p.StandardRate != 600 {
		t.Errorf("StandardRate = %d, want 600", p.StandardRate)
	}
	// Unset keys keep their defaults.
	if p.DiscountedRate != commission.DefaultPolicy().DiscountedRate {
		t.Errorf("DiscountedRate = %d, want default", p.DiscountedRate)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeYAML(t, "quote:\n  ttl: 12h\n")
	t.Setenv("MEDQUOTE_QUOTE_TTL", "30m")
	t.Setenv("MEDQUOTE_TRAINING_LIMIT", "5")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Quote.TTL != 30*time.Minute {
		t.Errorf("TTL = %v, want 30m", cfg.Quote.TTL)
	}
	if cfg.Training.Limit != 5 {
		t.Errorf("Training.Limit = %d, want 5", cfg.Training.Limit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"zero ttl", func(c *config.Config) { c.Quote.TTL = 0 }},
		{"zero initial visible", func(c *config.Config) { c.Quote.InitialVisible = 0 }},
		{"zero step", func(c *config.Config) { c.Quote.VisibleStep = 0 }},
		{"eta inverted", func(c *config.Config) { c.Allocator.MinETAHours = 10; c.Allocator.MaxETAHours = 2 }},
		{"negative threshold", func(c *config.Config) { c.Commission.ThresholdDollars = -1 }},
		{"recoup above discounted", func(c *config.Config) { c.Commission.RecoupRate = 500 }},
		{"bad multiplier", func(c *config.Config) { c.Allocator.UrgencyMultiplier = "fast" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestEngineOptionsOptionalJobs(t *testing.T) {
	cfg := config.DefaultConfig()
	base := len(cfg.EngineOptions())

	cfg.Quote.ExpirySweep = time.Minute
	cfg.Invoice.Interval = time.Hour
	cfg.Invoice.ClosedWeeksOnly = true
	cfg.Commission.RecoupRetries = 3

	if got := len(cfg.EngineOptions()); got != base+4 {
		t.Fatalf("EngineOptions() len = %d, want %d", got, base+4)
	}
}

func TestAllocatorConfigMultipliers(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Allocator.UrgencyMultiplier = "1.5"
	got := cfg.AllocatorConfig()
	if got.UrgencyMultiplier.String() != "1.5" {
		t.Fatalf("UrgencyMultiplier = %s, want 1.5", got.UrgencyMultiplier)
	}
	if len(got.Surcharges) == 0 {
		t.Fatal("surcharge table dropped")
	}
}
