package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ApplyEnv overlays environment variables on cfg. A .env file at envPath (or the working directory
// when empty) is loaded first, without overriding variables that are already set.
func ApplyEnv(cfg *Config, envPath string) error {
	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	setString(&cfg.Deriv.Token, "DERIV_TOKEN")
	setString(&cfg.Deriv.Endpoint, "DERIV_ENDPOINT")
	setString(&cfg.Trade.Symbol, "BOT_SYMBOL")
	setString(&cfg.Trade.Currency, "BOT_CURRENCY")
	setString(&cfg.Trade.DurationUnit, "BOT_DURATION_UNIT")
	setString(&cfg.Schedule.Mode, "BOT_MODE")
	setString(&cfg.App.LogLevel, "BOT_LOG_LEVEL")

	if err := setInt(&cfg.Deriv.AppID, "DERIV_APP_ID"); err != nil {
		return err
	}
	if err := setInt(&cfg.Trade.Duration, "BOT_DURATION"); err != nil {
		return err
	}
	if err := setInt(&cfg.Ticks.MaxTicks, "BOT_MAX_TICKS"); err != nil {
		return err
	}
	if err := setFloat(&cfg.Trade.Stake, "BOT_STAKE"); err != nil {
		return err
	}
	if err := setFloat(&cfg.Signal.VolumeThreshold, "BOT_VOLUME_THRESHOLD"); err != nil {
		return err
	}

	var secs int
	if err := setInt(&secs, "BOT_TICKS_TIMEOUT_SECS"); err != nil {
		return err
	}
	if secs > 0 {
		cfg.Ticks.TimeoutMs = secs * 1000
	}

	var granularity int
	if err := setInt(&granularity, "BOT_GRANULARITY"); err != nil {
		return err
	}
	if granularity > 0 {
		cfg.Signal.Granularities = []int{granularity}
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("env %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setFloat(dst *float64, key string) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("env %s: %w", key, err)
	}
	*dst = f
	return nil
}

// DefaultPath is the YAML file read when BOT_CONFIG is unset.
const DefaultPath = "internal/config/config.yaml"

// PathFromEnv returns the config file location, honouring BOT_CONFIG.
func PathFromEnv() string {
	if p := strings.TrimSpace(os.Getenv("BOT_CONFIG")); p != "" {
		return p
	}
	return DefaultPath
}
