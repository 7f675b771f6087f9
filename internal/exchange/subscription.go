package exchange

import (
	"context"
	"sync/atomic"
	"time"

	"derivbot-go/internal/metrics"
	"derivbot-go/internal/signal"
)

// Subscription is the handle of a live tick stream.
type Subscription struct {
	client   *Client
	symbol   string
	reqID    int64
	id       string
	released atomic.Bool
}

// Symbol returns the subscribed asset.
func (s *Subscription) Symbol() string { return s.symbol }

// ID returns the venue subscription id once the first tick arrived.
func (s *Subscription) ID() string { return s.id }

// Released reports whether forget_all has been confirmed for this handle.
func (s *Subscription) Released() bool { return s.released.Load() }

// Next blocks until the following tick of this stream, ctx is done or the connection fails.
func (s *Subscription) Next(ctx context.Context) (signal.Tick, error) {
	c := s.client
	for {
		if s.Released() || c.State() == Closed {
			return signal.Tick{}, ErrClosed
		}
		msg, err := c.next(ctx)
		if err != nil {
			return signal.Tick{}, err
		}
		if id := msg.RequestID(); id != 0 && id != s.reqID {
			continue
		}
		switch m := msg.(type) {
		case *TickMessage:
			if m.SubscriptionID != "" {
				s.id = m.SubscriptionID
			}
			sym := m.Symbol
			if sym == "" {
				sym = s.symbol
			}
			metrics.TicksTotal.WithLabelValues(sym).Inc()
			c.log.Debug().Str("symbol", sym).Float64("quote", m.Quote).Msg("tick")
			return signal.Tick{Symbol: sym, Quote: m.Quote, Epoch: m.Epoch, ReceivedAt: time.Now()}, nil
		case *ErrorMessage:
			if m.RequestID() == s.reqID || m.Op == opTicks {
				return signal.Tick{}, m.asError(opTicks)
			}
		}
		c.log.Debug().Str("kind", string(msg.Kind())).Msg("skip non-tick message")
	}
}
