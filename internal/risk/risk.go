// Package risk holds the guard applied before an order reaches the venue.
package risk

type Limits struct {
	MaxStake float64
}

// Allow reports whether stake fits under the ceiling. A zero ceiling allows any positive stake.
func (l Limits) Allow(stake float64) bool {
	if stake <= 0 {
		return false
	}
	return l.MaxStake <= 0 || stake <= l.MaxStake
}
