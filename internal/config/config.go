// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	Tracing     bool   `yaml:"tracing"`
}

// Deriv describes the websocket endpoint and credentials of the trading account.
type Deriv struct {
	Endpoint         string `yaml:"endpoint"`
	AppID            int    `yaml:"app_id"`
	Token            string `yaml:"token"`
	RequestTimeoutMs int    `yaml:"request_timeout_ms"`
}

// Trade fixes the contract every order is built from.
type Trade struct {
	Symbol       string  `yaml:"symbol"`
	Stake        float64 `yaml:"stake"`
	Currency     string  `yaml:"currency"`
	Duration     int     `yaml:"duration"`
	DurationUnit string  `yaml:"duration_unit"`
	MaxStake     float64 `yaml:"max_stake"`
}

// Signal groups tunable knobs for trend and volume evaluation.
type Signal struct {
	Granularities   []int   `yaml:"granularities"`
	HistoryCount    int     `yaml:"history_count"`
	VolumeMode      string  `yaml:"volume_mode"`
	VolumeThreshold float64 `yaml:"volume_threshold"`
	RatioThreshold  float64 `yaml:"ratio_threshold"`
	Comparison      string  `yaml:"comparison"`
}

// Ticks configures the live collection window.
type Ticks struct {
	MaxTicks     int  `yaml:"max_ticks"`
	TimeoutMs    int  `yaml:"timeout_ms"`
	RequireTicks bool `yaml:"require_ticks"`
}

// Schedule selects single-shot or continuous operation.
type Schedule struct {
	Mode           string `yaml:"mode"`
	PollIntervalMs int    `yaml:"poll_interval_ms"`
	GateMs         int    `yaml:"gate_ms"`
	LedgerSize     int    `yaml:"ledger_size"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Deriv    Deriv    `yaml:"deriv"`
	Trade    Trade    `yaml:"trade"`
	Signal   Signal   `yaml:"signal"`
	Ticks    Ticks    `yaml:"ticks"`
	Schedule Schedule `yaml:"schedule"`
}

const (
	ModeSingle     = "single"
	ModeContinuous = "continuous"
)

// Default returns the baseline configuration the bot runs with when a field is left empty.
func Default() Config {
	return Config{
		App: App{
			Name:        "derivbot",
			Env:         "demo",
			MetricsAddr: ":9102",
			LogLevel:    "info",
			LogFormat:   "console",
		},
		Deriv: Deriv{
			Endpoint:         "wss://ws.derivws.com/websockets/v3",
			AppID:            71130,
			RequestTimeoutMs: 10_000,
		},
		Trade: Trade{
			Symbol:       "R_100",
			Stake:        0.35,
			Currency:     "USD",
			Duration:     3,
			DurationUnit: "m",
		},
		Signal: Signal{
			Granularities:   []int{300},
			HistoryCount:    1,
			VolumeMode:      "count",
			VolumeThreshold: 7,
			RatioThreshold:  1,
			Comparison:      "gt",
		},
		Ticks: Ticks{
			MaxTicks:  10,
			TimeoutMs: 30_000,
		},
		Schedule: Schedule{
			Mode:           ModeSingle,
			PollIntervalMs: 60_000,
			GateMs:         3_600_000,
			LedgerSize:     256,
		},
	}
}

// Load reads a YAML file from disk and hydrates a Config struct on top of Default.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	config := Default()
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// RequestTimeout bounds every request/response round trip.
func (d Deriv) RequestTimeout() time.Duration {
	return time.Duration(d.RequestTimeoutMs) * time.Millisecond
}

// Timeout is the collection window length.
func (t Ticks) Timeout() time.Duration {
	return time.Duration(t.TimeoutMs) * time.Millisecond
}

// PollInterval is the pause between continuous cycles.
func (s Schedule) PollInterval() time.Duration {
	return time.Duration(s.PollIntervalMs) * time.Millisecond
}

// Gate is the accumulation period after which a continuous run evaluates a decision.
func (s Schedule) Gate() time.Duration {
	return time.Duration(s.GateMs) * time.Millisecond
}

// GranularityDurations converts the configured candle widths from seconds.
func (s Signal) GranularityDurations() []time.Duration {
	out := make([]time.Duration, len(s.Granularities))
	for i, g := range s.Granularities {
		out[i] = time.Duration(g) * time.Second
	}
	return out
}
