package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate rejects configurations the bot cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Deriv.Token) == "" {
		errs = append(errs, errors.New("deriv.token is required"))
	}
	if c.Deriv.Endpoint == "" {
		errs = append(errs, errors.New("deriv.endpoint is required"))
	}
	if c.Deriv.AppID <= 0 {
		errs = append(errs, fmt.Errorf("deriv.app_id must be positive, got %d", c.Deriv.AppID))
	}
	if c.Deriv.RequestTimeoutMs <= 0 {
		errs = append(errs, errors.New("deriv.request_timeout_ms must be positive"))
	}
	if strings.TrimSpace(c.Trade.Symbol) == "" {
		errs = append(errs, errors.New("trade.symbol is required"))
	}
	if c.Trade.Stake <= 0 {
		errs = append(errs, fmt.Errorf("trade.stake must be positive, got %.2f", c.Trade.Stake))
	}
	if c.Trade.MaxStake > 0 && c.Trade.Stake > c.Trade.MaxStake {
		errs = append(errs, fmt.Errorf("trade.stake %.2f exceeds trade.max_stake %.2f", c.Trade.Stake, c.Trade.MaxStake))
	}
	if c.Trade.Currency == "" {
		errs = append(errs, errors.New("trade.currency is required"))
	}
	if c.Trade.Duration <= 0 {
		errs = append(errs, errors.New("trade.duration must be positive"))
	}
	switch c.Trade.DurationUnit {
	case "t", "s", "m", "h", "d":
	default:
		errs = append(errs, fmt.Errorf("trade.duration_unit %q must be one of t,s,m,h,d", c.Trade.DurationUnit))
	}
	if len(c.Signal.Granularities) == 0 {
		errs = append(errs, errors.New("signal.granularities must not be empty"))
	}
	for _, g := range c.Signal.Granularities {
		if g <= 0 {
			errs = append(errs, fmt.Errorf("signal.granularities contains non-positive %d", g))
		}
	}
	if c.Signal.HistoryCount <= 0 {
		errs = append(errs, errors.New("signal.history_count must be positive"))
	}
	switch strings.ToLower(c.Signal.VolumeMode) {
	case "", "count", "ratio":
	default:
		errs = append(errs, fmt.Errorf("signal.volume_mode %q must be count or ratio", c.Signal.VolumeMode))
	}
	switch strings.ToLower(c.Signal.Comparison) {
	case "", "gt", ">", "gte", ">=":
	default:
		errs = append(errs, fmt.Errorf("signal.comparison %q must be gt or gte", c.Signal.Comparison))
	}
	if c.Ticks.MaxTicks <= 0 {
		errs = append(errs, errors.New("ticks.max_ticks must be positive"))
	}
	if c.Ticks.TimeoutMs <= 0 {
		errs = append(errs, errors.New("ticks.timeout_ms must be positive"))
	}
	switch c.Schedule.Mode {
	case ModeSingle:
	case ModeContinuous:
		if c.Schedule.PollIntervalMs <= 0 {
			errs = append(errs, errors.New("schedule.poll_interval_ms must be positive in continuous mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("schedule.mode %q must be single or continuous", c.Schedule.Mode))
	}
	return errors.Join(errs...)
}
