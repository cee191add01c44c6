package extension

import (
	"testing"
	"time"

	"github.com/xraph/medquote/config"
)

func TestMergeWithDefaults(t *testing.T) {
	cfg := mergeWithDefaults(Config{})
	if cfg.Config != config.DefaultConfig() {
		t.Fatalf("empty config merged to %+v, want defaults", cfg.Config)
	}
}

func TestMergeConfigurations(t *testing.T) {
	yamlCfg := Config{}
	yamlCfg.Quote.TTL = 6 * time.Hour

	prog := Config{DisableMigrate: true}
	prog.Quote.TTL = time.Hour
	prog.Invoice.Interval = 15 * time.Minute

	got := mergeConfigurations(yamlCfg, prog)

	if got.Quote.TTL != 6*time.Hour {
		t.Errorf("TTL = %v, want YAML value 6h", got.Quote.TTL)
	}
	if got.Invoice.Interval != 15*time.Minute {
		t.Errorf("Invoice.Interval = %v, want programmatic 15m", got.Invoice.Interval)
	}
	if !got.DisableMigrate {
		t.Error("DisableMigrate lost in merge")
	}
	if got.Quote.InitialVisible != config.DefaultConfig().Quote.InitialVisible {
		t.Errorf("InitialVisible = %d, want default", got.Quote.InitialVisible)
	}
}

func TestBuildEngineOpts(t *testing.T) {
	e := New(WithDisableMigrate(), WithEngineConfig(config.DefaultConfig()))
	e.config = mergeWithDefaults(e.config)

	base := len(e.config.EngineOptions())
	if got := len(e.buildEngineOpts()); got != base+1 {
		t.Fatalf("buildEngineOpts() len = %d, want %d", got, base+1)
	}
}
