package exchange

import "fmt"

// State is the position of a session in its lifecycle. States only move forward.
type State int32

const (
	Disconnected State = iota
	Connecting
	Authenticated
	HistoryFetched
	Subscribed
	Deciding
	Trading
	Closed
)

var stateNames = [...]string{
	Disconnected:   "disconnected",
	Connecting:     "connecting",
	Authenticated:  "authenticated",
	HistoryFetched: "history_fetched",
	Subscribed:     "subscribed",
	Deciding:       "deciding",
	Trading:        "trading",
	Closed:         "closed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int32(s))
	}
	return stateNames[s]
}

// allowed reports whether an operation permitted in [from, to] may run in s.
func (s State) allowed(from, to State) bool {
	return s >= from && s <= to
}
