// Package scheduler drives session cycles once or continuously behind an elapsed-time gate.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"derivbot-go/internal/config"
	"derivbot-go/internal/exchange"
	"derivbot-go/internal/execution"
	"derivbot-go/internal/risk"
	"derivbot-go/internal/strategy"
	"derivbot-go/internal/util"
)

// Scheduler repeats cycles according to its mode.
type Scheduler struct {
	log       zerolog.Logger
	runner    *Runner
	mode      string
	interval  time.Duration
	gate      time.Duration
	maxCycles int
	clock     util.Clock
	ledger    *Ledger
	window    Accumulator
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMode selects config.ModeSingle or config.ModeContinuous.
func WithMode(mode string) Option {
	return func(s *Scheduler) { s.mode = mode }
}

// WithPollInterval sets the pause between continuous cycles.
func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.interval = d }
}

// WithGate sets how long samples accumulate before a decision. Zero decides every cycle.
func WithGate(d time.Duration) Option {
	return func(s *Scheduler) { s.gate = d }
}

// WithMaxCycles stops a continuous run after n cycles. Zero runs until cancelled.
func WithMaxCycles(n int) Option {
	return func(s *Scheduler) { s.maxCycles = n }
}

// WithClock replaces wall time.
func WithClock(c util.Clock) Option {
	return func(s *Scheduler) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithLedger records every report into l.
func WithLedger(l *Ledger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.ledger = l
		}
	}
}

// New builds a scheduler around runner.
func New(log zerolog.Logger, runner *Runner, opts ...Option) *Scheduler {
	s := &Scheduler{
		log:      log.With().Str("component", "scheduler").Logger(),
		runner:   runner,
		mode:     config.ModeSingle,
		interval: time.Minute,
		clock:    util.RealClock{},
		ledger:   NewLedger(256),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// FromConfig assembles the runner and the scheduler described by cfg.
func FromConfig(cfg *config.Config, log zerolog.Logger, clock util.Clock, session []exchange.Option, opts ...Option) (*Scheduler, error) {
	if clock == nil {
		clock = util.RealClock{}
	}
	engine, err := strategy.Build(strategy.Params{
		Timeframes:      len(cfg.Signal.Granularities),
		VolumeMode:      cfg.Signal.VolumeMode,
		VolumeThreshold: cfg.Signal.VolumeThreshold,
		RatioThreshold:  cfg.Signal.RatioThreshold,
		Comparison:      cfg.Signal.Comparison,
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}
	executor := execution.NewExecutor(log, execution.OrderSpec{
		Symbol:       cfg.Trade.Symbol,
		Stake:        cfg.Trade.Stake,
		Currency:     cfg.Trade.Currency,
		Duration:     cfg.Trade.Duration,
		DurationUnit: cfg.Trade.DurationUnit,
	}, risk.Limits{MaxStake: cfg.Trade.MaxStake})

	if timeout := cfg.Deriv.RequestTimeout(); timeout > 0 {
		session = append([]exchange.Option{exchange.WithRequestTimeout(timeout)}, session...)
	}
	runner := NewRunner(log, Target{
		Endpoint:      cfg.Deriv.Endpoint,
		AppID:         cfg.Deriv.AppID,
		Token:         cfg.Deriv.Token,
		Symbol:        cfg.Trade.Symbol,
		Granularities: cfg.Signal.GranularityDurations(),
		HistoryCount:  cfg.Signal.HistoryCount,
		Window:        exchange.TickWindow{MaxSize: cfg.Ticks.MaxTicks, Timeout: cfg.Ticks.Timeout()},
		RequireTicks:  cfg.Ticks.RequireTicks,
	}, engine, executor, clock, session...)

	base := []Option{
		WithMode(cfg.Schedule.Mode),
		WithPollInterval(cfg.Schedule.PollInterval()),
		WithGate(cfg.Schedule.Gate()),
		WithClock(clock),
		WithLedger(NewLedger(cfg.Schedule.LedgerSize)),
	}
	return New(log, runner, append(base, opts...)...), nil
}

// Ledger exposes the recorded reports.
func (s *Scheduler) Ledger() *Ledger { return s.ledger }

// RunOnce performs a single deciding cycle.
func (s *Scheduler) RunOnce(ctx context.Context) Report {
	rep := s.runner.Run(ctx, 1, true)
	s.ledger.Record(rep)
	return rep
}

// Run executes the configured mode. Single mode returns after one cycle. Continuous mode returns
// only when ctx is done or the cycle limit is reached; failed cycles never stop it.
func (s *Scheduler) Run(ctx context.Context) error {
	if s.mode != config.ModeContinuous {
		s.RunOnce(ctx)
		return ctx.Err()
	}

	s.window.Start(s.clock.Now())
	s.log.Info().Dur("interval", s.interval).Dur("gate", s.gate).Msg("continuous run started")
	for n := 1; ; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		decide := s.window.Elapsed(s.clock.Now()) >= s.gate
		rep := s.runner.Run(ctx, n, decide)
		s.ledger.Record(rep)
		if rep.Outcome != OutcomeCanceled {
			s.window.Add(Sample{At: rep.Finished, Candles: rep.Candles, Ticks: rep.Ticks})
		}

		if decide {
			s.log.Info().Int("samples", s.window.Len()).Str("outcome", string(rep.Outcome)).
				Str("action", string(rep.Signal.Action)).Msg("gate evaluated")
			s.window.Start(s.clock.Now())
		}

		if s.maxCycles != 0 && n == s.maxCycles {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.clock.After(s.interval):
		}
	}
}
