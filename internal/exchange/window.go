package exchange

import (
	"context"
	"errors"
	"time"

	"derivbot-go/internal/signal"
)

// TickSource yields streamed ticks one at a time.
type TickSource interface {
	Next(ctx context.Context) (signal.Tick, error)
}

// TickWindow bounds a collection by size and by time.
type TickWindow struct {
	MaxSize int
	Timeout time.Duration
}

// Collect reads from src until MaxSize ticks arrived or Timeout elapsed. Hitting the timeout is not
// an error: whatever accumulated, possibly nothing, is returned. Any other failure returns the
// ticks read so far together with the error. A zero Timeout leaves only ctx as the bound.
func (w TickWindow) Collect(ctx context.Context, src TickSource) ([]signal.Tick, error) {
	if w.MaxSize <= 0 {
		return nil, nil
	}
	ticks := make([]signal.Tick, 0, w.MaxSize)

	wctx, cancel := ctx, context.CancelFunc(func() {})
	if w.Timeout > 0 {
		wctx, cancel = context.WithTimeout(ctx, w.Timeout)
	}
	defer cancel()

	for len(ticks) < w.MaxSize {
		tk, err := src.Next(wctx)
		if err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return ticks, nil
			}
			return ticks, err
		}
		ticks = append(ticks, tk)
	}
	return ticks, nil
}
