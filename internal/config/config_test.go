package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults failed validation: %v", err)
	}
	if cfg.Trading.Enabled {
		t.Fatal("trading enabled by default, want simulation mode")
	}
	if cfg.Trading.MinProfitPct != 0.5 {
		t.Fatalf("MinProfitPct=%v want 0.5", cfg.Trading.MinProfitPct)
	}
	if cfg.Trading.PollInterval.Duration != 5*time.Second {
		t.Fatalf("PollInterval=%v want 5s", cfg.Trading.PollInterval.Duration)
	}
}

func TestLoadTOMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
log_level = "debug"

[trading]
min_profit_pct = 1.5
poll_interval = "10s"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("ARBOT_TRADING_MAX_POSITION", "250")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel=%q want debug", cfg.LogLevel)
	}
	if cfg.Trading.MinProfitPct != 1.5 {
		t.Fatalf("MinProfitPct=%v want 1.5", cfg.Trading.MinProfitPct)
	}
	if cfg.Trading.PollInterval.Duration != 10*time.Second {
		t.Fatalf("PollInterval=%v want 10s", cfg.Trading.PollInterval.Duration)
	}
	if cfg.Trading.MaxPosition != 250 {
		t.Fatalf("MaxPosition=%v want 250 from env override", cfg.Trading.MaxPosition)
	}
	// Untouched fields keep their defaults.
	if cfg.Trading.MaxConcurrent != 5 {
		t.Fatalf("MaxConcurrent=%v want 5", cfg.Trading.MaxConcurrent)
	}
}

func TestValidateLiveTradingNeedsKey(t *testing.T) {
	cfg := Defaults()
	cfg.Trading.Enabled = true

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate passed with trading enabled and no wallet key")
	}
	if !strings.Contains(err.Error(), "wallet") {
		t.Fatalf("err=%v want wallet complaint", err)
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "loud"
	cfg.Trading.MaxPosition = -1
	cfg.Trading.MaxConcurrent = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate passed an invalid config")
	}
	for _, want := range []string{"log_level", "max_position", "max_concurrent"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("err=%v missing %q", err, want)
		}
	}
}

func TestValidateRevalidationNeedsRedis(t *testing.T) {
	cfg := Defaults()
	cfg.Trading.RevalidateQuotes = true

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "redis") {
		t.Fatalf("err=%v want redis requirement", err)
	}
}
