package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"derivbot-go/internal/exchange"
	"derivbot-go/internal/execution"
	"derivbot-go/internal/metrics"
	"derivbot-go/internal/signal"
	"derivbot-go/internal/strategy"
	"derivbot-go/internal/trace"
	"derivbot-go/internal/util"
)

// Outcome classifies how a cycle ended.
type Outcome string

const (
	OutcomeTraded          Outcome = "traded"
	OutcomeNoSignal        Outcome = "no_signal"
	OutcomeNoTicks         Outcome = "no_ticks"
	OutcomeSampled         Outcome = "sampled"
	OutcomeTradeRejected   Outcome = "trade_rejected"
	OutcomeRiskRejected    Outcome = "risk_rejected"
	OutcomeAuthFailed      Outcome = "auth_failed"
	OutcomeDataUnavailable Outcome = "data_unavailable"
	OutcomeInterrupted     Outcome = "connection_interrupted"
	OutcomeTimeout         Outcome = "timeout"
	OutcomeCanceled        Outcome = "canceled"
	OutcomeFailed          Outcome = "failed"
)

// Report is everything one cycle observed.
type Report struct {
	Cycle    int
	Started  time.Time
	Finished time.Time
	Outcome  Outcome
	Candles  []signal.Candle
	Ticks    []signal.Tick
	Signal   signal.Signal
	Result   execution.Result
	Err      error
}

// Target describes what a cycle reads.
type Target struct {
	Endpoint      string
	AppID         int
	Token         string
	Symbol        string
	Granularities []time.Duration
	HistoryCount  int
	Window        exchange.TickWindow
	RequireTicks  bool
}

// Runner executes one session cycle: authorize, candles, ticks, decision and at most one trade.
type Runner struct {
	base     zerolog.Logger
	log      zerolog.Logger
	target   Target
	engine   *strategy.Engine
	executor *execution.Executor
	clock    util.Clock
	session  []exchange.Option
}

// NewRunner wires a cycle runner. A nil clock means wall time.
func NewRunner(log zerolog.Logger, target Target, engine *strategy.Engine, executor *execution.Executor, clock util.Clock, session ...exchange.Option) *Runner {
	if clock == nil {
		clock = util.RealClock{}
	}
	return &Runner{
		base:     log,
		log:      log.With().Str("component", "cycle").Logger(),
		target:   target,
		engine:   engine,
		executor: executor,
		clock:    clock,
		session:  session,
	}
}

// Run performs cycle n. When decide is false the cycle only samples market data.
// Errors never escape; they are folded into the report outcome.
func (r *Runner) Run(ctx context.Context, n int, decide bool) (rep Report) {
	rep = Report{Cycle: n, Started: r.clock.Now()}
	log := r.log.With().Int("cycle", n).Logger()

	ctx, span := trace.StartSpan(ctx, "cycle",
		attribute.Int("cycle", n), attribute.String("symbol", r.target.Symbol), attribute.Bool("decide", decide))
	defer func() {
		rep.Finished = r.clock.Now()
		metrics.CyclesTotal.WithLabelValues(string(rep.Outcome)).Inc()
		trace.End(span, rep.Err)
		ev := log.Info()
		if rep.Err != nil {
			ev = log.Warn().Err(rep.Err)
		}
		ev.Str("outcome", string(rep.Outcome)).Int("ticks", len(rep.Ticks)).Msg("cycle done")
	}()

	client, err := exchange.Dial(ctx, r.target.Endpoint, r.target.AppID, r.base.With().Int("cycle", n).Logger(), r.session...)
	if err != nil {
		return rep.fail(err)
	}
	defer client.Close()

	if err := client.Authorize(ctx, r.target.Token); err != nil {
		return rep.fail(err)
	}

	for _, g := range r.target.Granularities {
		candle, err := client.History(ctx, r.target.Symbol, g, r.target.HistoryCount)
		if err != nil {
			return rep.fail(err)
		}
		rep.Candles = append(rep.Candles, candle)
	}

	sub, err := client.SubscribeTicks(ctx, r.target.Symbol)
	if err != nil {
		return rep.fail(err)
	}
	rep.Ticks, err = r.target.Window.Collect(ctx, sub)
	if err != nil {
		return rep.fail(err)
	}
	if err := client.Unsubscribe(ctx, sub); err != nil {
		return rep.fail(err)
	}

	if !decide {
		rep.Outcome = OutcomeSampled
		return rep
	}
	if r.target.RequireTicks && len(rep.Ticks) == 0 {
		log.Info().Msg("no ticks received, skipping decision")
		rep.Outcome = OutcomeNoTicks
		return rep
	}

	rep.Signal = r.engine.Evaluate(rep.Candles, len(rep.Ticks), r.clock.Now())
	metrics.SignalsTotal.WithLabelValues(string(rep.Signal.Action)).Inc()
	log.Info().Str("action", string(rep.Signal.Action)).Float64("strength", rep.Signal.Strength.Value).
		Float64("threshold", rep.Signal.Strength.Threshold).Str("reason", rep.Signal.Reason).Msg("signal")
	if !rep.Signal.Actionable() {
		log.Info().Msg("no clear signal")
		rep.Outcome = OutcomeNoSignal
		return rep
	}

	rep.Result, err = r.executor.Submit(ctx, client, rep.Signal)
	switch {
	case err != nil:
		return rep.fail(err)
	case rep.Result.OK():
		rep.Outcome = OutcomeTraded
	default:
		rep.Outcome = OutcomeTradeRejected
		rep.Err = errors.New(rep.Result.Failure)
	}
	return rep
}

func (rep Report) fail(err error) Report {
	rep.Err = err
	rep.Outcome = classify(err)
	return rep
}

func classify(err error) Outcome {
	switch {
	case errors.Is(err, exchange.ErrAuth):
		return OutcomeAuthFailed
	case errors.Is(err, exchange.ErrDataUnavailable):
		return OutcomeDataUnavailable
	case errors.Is(err, exchange.ErrConnectionInterrupted):
		return OutcomeInterrupted
	case errors.Is(err, exchange.ErrRequestTimeout):
		return OutcomeTimeout
	case errors.Is(err, exchange.ErrTrade):
		return OutcomeTradeRejected
	case errors.Is(err, execution.ErrStakeRejected):
		return OutcomeRiskRejected
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeFailed
	}
}
