package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"derivbot-go/internal/signal"
)

// scriptedSource yields n ticks spaced by gap, then blocks until ctx is done.
type scriptedSource struct {
	n    int
	gap  time.Duration
	sent int
	err  error
}

func (s *scriptedSource) Next(ctx context.Context) (signal.Tick, error) {
	if s.sent >= s.n {
		if s.err != nil {
			return signal.Tick{}, s.err
		}
		<-ctx.Done()
		return signal.Tick{}, ctx.Err()
	}
	select {
	case <-time.After(s.gap):
	case <-ctx.Done():
		return signal.Tick{}, ctx.Err()
	}
	s.sent++
	return signal.Tick{Symbol: "R_100", Quote: float64(s.sent), ReceivedAt: time.Now()}, nil
}

func TestCollectStopsAtMaxSize(t *testing.T) {
	src := &scriptedSource{n: 100, gap: time.Millisecond}
	ticks, err := TickWindow{MaxSize: 5, Timeout: time.Second}.Collect(context.Background(), src)
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if len(ticks) != 5 || src.sent != 5 {
		t.Fatalf("expected exactly 5 ticks, got %d (sent %d)", len(ticks), src.sent)
	}
}

func TestCollectTimeoutReturnsPartialWindow(t *testing.T) {
	src := &scriptedSource{n: 4, gap: time.Millisecond}
	timeout := 150 * time.Millisecond
	start := time.Now()
	ticks, err := TickWindow{MaxSize: 10, Timeout: timeout}.Collect(context.Background(), src)
	elapsed := time.Since(start)
	if err != nil {
		t.Fatalf("timeout must not be an error, got %v", err)
	}
	if len(ticks) != 4 {
		t.Fatalf("expected 4 ticks, got %d", len(ticks))
	}
	if elapsed < timeout || elapsed > timeout+500*time.Millisecond {
		t.Fatalf("expected return shortly after %s, took %s", timeout, elapsed)
	}
}

func TestCollectEmptyWindow(t *testing.T) {
	ticks, err := TickWindow{MaxSize: 10, Timeout: 50 * time.Millisecond}.Collect(context.Background(), &scriptedSource{})
	if err != nil {
		t.Fatalf("Collect returned error: %v", err)
	}
	if len(ticks) != 0 {
		t.Fatalf("expected empty window, got %d", len(ticks))
	}
}

func TestCollectPropagatesSourceError(t *testing.T) {
	src := &scriptedSource{n: 2, gap: time.Millisecond, err: ErrConnectionInterrupted}
	ticks, err := TickWindow{MaxSize: 10, Timeout: time.Second}.Collect(context.Background(), src)
	if !errors.Is(err, ErrConnectionInterrupted) {
		t.Fatalf("expected connection error, got %v", err)
	}
	if len(ticks) != 2 {
		t.Fatalf("expected ticks read before the failure, got %d", len(ticks))
	}
}

func TestCollectParentCancellationIsAnError(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := TickWindow{MaxSize: 10, Timeout: time.Second}.Collect(ctx, &scriptedSource{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected parent deadline to surface, got %v", err)
	}
}
