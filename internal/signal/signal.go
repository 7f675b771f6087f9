// Package signal standardizes payloads shared between data ingestion and strategy layers.
package signal

import "time"

// Tick models a single streamed price quote.
type Tick struct {
	Symbol     string
	Quote      float64
	Epoch      int64
	ReceivedAt time.Time
}

// Candle is the open/close view of one history window. Samples counts the prices the venue returned for it.
type Candle struct {
	Symbol      string
	Open        float64
	Close       float64
	Granularity time.Duration
	Samples     int
}

// Direction is the trend read from a single candle.
type Direction int

const (
	Neutral Direction = iota
	Bullish
	Bearish
)

func (d Direction) String() string {
	switch d {
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return "neutral"
	}
}

// Action is the trade bias produced for one cycle.
type Action string

const (
	None Action = "NONE"
	Buy  Action = "BUY"
	Sell Action = "SELL"
)

// Strength is the volume metric of a tick window and whether it cleared the configured threshold.
type Strength struct {
	Value     float64
	Threshold float64
	Strong    bool
}

// Signal expresses the decision for one cycle.
type Signal struct {
	Symbol     string
	Action     Action
	Strength   Strength
	Directions []Direction
	Reason     string
	Ts         time.Time
}

// Actionable reports whether the signal should produce an order.
func (s Signal) Actionable() bool { return s.Action == Buy || s.Action == Sell }
