// Package strategy turns candles and tick windows into trade signals.
package strategy

import (
	"fmt"
	"strings"
	"time"

	"derivbot-go/internal/signal"
)

// Engine applies the trend/reversal table once every configured timeframe agrees on a direction.
type Engine struct {
	timeframes int
	scorer     VolumeScorer
}

// NewEngine builds an engine that requires timeframes aligned directions. Values below one mean one.
func NewEngine(timeframes int, scorer VolumeScorer) *Engine {
	if timeframes < 1 {
		timeframes = 1
	}
	return &Engine{timeframes: timeframes, scorer: scorer}
}

// Name returns the identifier for logging.
func (e *Engine) Name() string { return fmt.Sprintf("TrendVolume/%dtf", e.timeframes) }

// Timeframes reports how many directions must align.
func (e *Engine) Timeframes() int { return e.timeframes }

// Scorer exposes the volume scorer the engine was built with.
func (e *Engine) Scorer() VolumeScorer { return e.scorer }

// Decide maps aligned directions and the volume flag to an action.
// Strong volume follows the trend, weak volume trades the reversal.
func (e *Engine) Decide(directions []signal.Direction, strong bool) signal.Action {
	agreed, ok := e.align(directions)
	if !ok {
		return signal.None
	}
	switch agreed {
	case signal.Bullish:
		if strong {
			return signal.Buy
		}
		return signal.Sell
	case signal.Bearish:
		if strong {
			return signal.Sell
		}
		return signal.Buy
	default:
		return signal.None
	}
}

func (e *Engine) align(directions []signal.Direction) (signal.Direction, bool) {
	if len(directions) == 0 || len(directions) != e.timeframes {
		return signal.Neutral, false
	}
	first := directions[0]
	for _, d := range directions[1:] {
		if d != first {
			return signal.Neutral, false
		}
	}
	return first, true
}

// Evaluate classifies the candles, scores the tick window and produces the cycle signal.
// The transaction count for ratio scoring comes from the first candle.
func (e *Engine) Evaluate(candles []signal.Candle, ticks int, now time.Time) signal.Signal {
	directions := ClassifyAll(candles)
	transactions := 0
	symbol := ""
	if len(candles) > 0 {
		transactions = candles[0].Samples
		symbol = candles[0].Symbol
	}
	strength := e.scorer.Score(ticks, transactions)
	action := e.Decide(directions, strength.Strong)

	names := make([]string, len(directions))
	for i, d := range directions {
		names[i] = d.String()
	}
	reason := fmt.Sprintf("trend=%s volume=%.2f/%.2f strong=%t",
		strings.Join(names, ","), strength.Value, strength.Threshold, strength.Strong)

	return signal.Signal{
		Symbol:     symbol,
		Action:     action,
		Strength:   strength,
		Directions: directions,
		Reason:     reason,
		Ts:         now,
	}
}
