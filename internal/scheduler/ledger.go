package scheduler

import (
	"sync"
	"time"

	"derivbot-go/internal/signal"
)

// Ledger keeps the most recent cycle reports in memory for quick inspection.
type Ledger struct {
	mu      sync.Mutex
	limit   int
	reports []Report
}

// NewLedger creates an empty ledger holding at most limit reports; limit <= 0 keeps everything.
func NewLedger(limit int) *Ledger {
	if limit < 0 {
		limit = 0
	}
	return &Ledger{limit: limit, reports: make([]Report, 0, min(limit, 64))}
}

// Record appends a report, evicting the oldest once full.
func (l *Ledger) Record(rep Report) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.limit > 0 && len(l.reports) == l.limit {
		copy(l.reports, l.reports[1:])
		l.reports = l.reports[:len(l.reports)-1]
	}
	l.reports = append(l.reports, rep)
}

// Snapshot returns a copy of the recorded reports, oldest first.
func (l *Ledger) Snapshot() []Report {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Report, len(l.reports))
	copy(out, l.reports)
	return out
}

// Counts tallies the recorded reports by outcome.
func (l *Ledger) Counts() map[Outcome]int {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make(map[Outcome]int)
	for _, r := range l.reports {
		out[r.Outcome]++
	}
	return out
}

// Reset clears all stored reports.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.reports = l.reports[:0]
	l.mu.Unlock()
}

// Sample is the market data one cycle fetched.
type Sample struct {
	At      time.Time
	Candles []signal.Candle
	Ticks   []signal.Tick
}

// Accumulator gathers samples between two gate evaluations.
// Only the latest sample feeds a decision; the rest are kept for inspection.
type Accumulator struct {
	started time.Time
	samples []Sample
}

// Start opens a new window at now.
func (a *Accumulator) Start(now time.Time) {
	a.started = now
	a.samples = a.samples[:0]
}

// Add stores a sample.
func (a *Accumulator) Add(s Sample) { a.samples = append(a.samples, s) }

// Len is the number of samples in the open window.
func (a *Accumulator) Len() int { return len(a.samples) }

// Latest returns the most recently added sample.
func (a *Accumulator) Latest() (Sample, bool) {
	if len(a.samples) == 0 {
		return Sample{}, false
	}
	return a.samples[len(a.samples)-1], true
}

// Elapsed is the age of the open window.
func (a *Accumulator) Elapsed(now time.Time) time.Duration { return now.Sub(a.started) }
