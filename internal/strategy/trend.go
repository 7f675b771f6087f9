package strategy

import "derivbot-go/internal/signal"

// Classify reads the direction of a candle from its open and close.
func Classify(c signal.Candle) signal.Direction {
	switch {
	case c.Close > c.Open:
		return signal.Bullish
	case c.Close < c.Open:
		return signal.Bearish
	default:
		return signal.Neutral
	}
}

// ClassifyAll classifies every candle in order.
func ClassifyAll(candles []signal.Candle) []signal.Direction {
	out := make([]signal.Direction, len(candles))
	for i, c := range candles {
		out[i] = Classify(c)
	}
	return out
}
