package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "derivbot-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.Deriv.AppID != 1089 {
		t.Fatalf("unexpected Deriv.AppID: %d", cfg.Deriv.AppID)
	}
	if cfg.Deriv.RequestTimeout() != 5*time.Second {
		t.Fatalf("unexpected request timeout: %s", cfg.Deriv.RequestTimeout())
	}
	if cfg.Trade.Symbol != "R_50" || cfg.Trade.Stake != 1.5 || cfg.Trade.DurationUnit != "t" {
		t.Fatalf("unexpected trade section: %+v", cfg.Trade)
	}
	if len(cfg.Signal.Granularities) != 3 || cfg.Signal.Granularities[2] != 900 {
		t.Fatalf("unexpected granularities: %+v", cfg.Signal.Granularities)
	}
	if d := cfg.Signal.GranularityDurations(); d[0] != time.Minute || d[1] != 5*time.Minute {
		t.Fatalf("unexpected granularity durations: %v", d)
	}
	if cfg.Signal.VolumeMode != "ratio" || cfg.Signal.RatioThreshold != 0.8 || cfg.Signal.Comparison != "gte" {
		t.Fatalf("unexpected signal section: %+v", cfg.Signal)
	}
	if cfg.Ticks.MaxTicks != 20 || cfg.Ticks.Timeout() != 15*time.Second || !cfg.Ticks.RequireTicks {
		t.Fatalf("unexpected ticks section: %+v", cfg.Ticks)
	}
	if cfg.Schedule.Mode != ModeContinuous || cfg.Schedule.PollInterval() != 30*time.Second || cfg.Schedule.Gate() != 10*time.Minute {
		t.Fatalf("unexpected schedule section: %+v", cfg.Schedule)
	}
	if cfg.Schedule.LedgerSize != 256 {
		t.Fatalf("expected default ledger size to survive decode, got %d", cfg.Schedule.LedgerSize)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected fixture to validate, got %v", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSaveRoundTripsThroughLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := Default()
	cfg.Trade.Stake = 2
	if err := Save(path, &cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded.Trade.Stake != 2 {
		t.Fatalf("expected saved stake, got %.2f", loaded.Trade.Stake)
	}
	if err := Save(path, nil); err == nil {
		t.Fatalf("expected error saving nil config")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := Default()
	t.Setenv("DERIV_TOKEN", "env-token")
	t.Setenv("BOT_SYMBOL", "R_75")
	t.Setenv("BOT_STAKE", "0.5")
	t.Setenv("BOT_GRANULARITY", "60")
	t.Setenv("BOT_TICKS_TIMEOUT_SECS", "12")
	t.Setenv("BOT_MODE", ModeContinuous)

	if err := ApplyEnv(&cfg, filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("ApplyEnv returned error: %v", err)
	}
	if cfg.Deriv.Token != "env-token" || cfg.Trade.Symbol != "R_75" || cfg.Trade.Stake != 0.5 {
		t.Fatalf("env not applied: %+v %+v", cfg.Deriv, cfg.Trade)
	}
	if len(cfg.Signal.Granularities) != 1 || cfg.Signal.Granularities[0] != 60 {
		t.Fatalf("unexpected granularities: %v", cfg.Signal.Granularities)
	}
	if cfg.Ticks.TimeoutMs != 12000 {
		t.Fatalf("unexpected timeout: %d", cfg.Ticks.TimeoutMs)
	}
	if cfg.Schedule.Mode != ModeContinuous {
		t.Fatalf("unexpected mode: %s", cfg.Schedule.Mode)
	}
}

func TestApplyEnvDotFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("BOT_MAX_TICKS=4\n"), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("BOT_MAX_TICKS", "")
	os.Unsetenv("BOT_MAX_TICKS")

	cfg := Default()
	if err := ApplyEnv(&cfg, path); err != nil {
		t.Fatalf("ApplyEnv returned error: %v", err)
	}
	if cfg.Ticks.MaxTicks != 4 {
		t.Fatalf("expected max ticks from .env, got %d", cfg.Ticks.MaxTicks)
	}
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	cfg := Default()
	t.Setenv("BOT_STAKE", "lots")
	if err := ApplyEnv(&cfg, filepath.Join(t.TempDir(), "absent.env")); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "deriv.token") {
		t.Fatalf("expected missing token error, got %v", err)
	}

	cfg.Deriv.Token = "x"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected defaults plus token to validate, got %v", err)
	}

	cfg.Signal.Comparison = "lt"
	cfg.Trade.DurationUnit = "w"
	cfg.Schedule.Mode = "forever"
	err = cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	for _, want := range []string{"signal.comparison", "trade.duration_unit", "schedule.mode"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %s in %v", want, err)
		}
	}
}

func TestPathFromEnv(t *testing.T) {
	t.Setenv("BOT_CONFIG", "")
	if got := PathFromEnv(); got != DefaultPath {
		t.Fatalf("expected default path, got %s", got)
	}
	t.Setenv("BOT_CONFIG", "/etc/derivbot.yaml")
	if got := PathFromEnv(); got != "/etc/derivbot.yaml" {
		t.Fatalf("expected override, got %s", got)
	}
}
