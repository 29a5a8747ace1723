package extract

import (
	"time"

	"github.com/prashantcloudsufi/zendesk/pkg/split"
)

// State is the lifecycle position of one split.
type State int

const (
	StatePlanned State = iota
	StateFetchingPage
	StateRetrying
	StateMapping
	StateDone
	StateFailed
)

var stateNames = [...]string{"planned", "fetching_page", "retrying", "mapping", "done", "failed"}

// String implements fmt.Stringer.
func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// transitions lists the legal successors of each state. Any non-terminal
// state may fail.
var transitions = map[State][]State{
	StatePlanned:      {StateFetchingPage},
	StateFetchingPage: {StateRetrying, StateMapping},
	StateRetrying:     {StateFetchingPage},
	StateMapping:      {StateFetchingPage, StateDone},
}

// CanTransition reports whether from → to is legal.
func CanTransition(from, to State) bool {
	if to == StateFailed {
		return !from.Terminal()
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// SplitStatus is the progress of one split.
type SplitStatus struct {
	Split split.Split
	State State

	// Page is the current or last page number; Attempt the current retry.
	Page    int
	Attempt int

	Pages     int
	Records   int
	Attempts  int
	Retries   int
	Throttles int

	Started  time.Time
	Finished time.Time

	// History is every state entered, in order.
	History []State

	Err error
}

// advance moves to state to. An illegal move is recorded as a failure so
// that it surfaces in the report instead of being lost.
func (s *SplitStatus) advance(to State) bool {
	if !CanTransition(s.State, to) {
		if !s.State.Terminal() {
			s.State = StateFailed
			s.History = append(s.History, StateFailed)
		}
		return false
	}
	s.State = to
	s.History = append(s.History, to)
	return true
}

// Duration returns the elapsed time of a started split.
func (s *SplitStatus) Duration() time.Duration {
	if s.Started.IsZero() {
		return 0
	}
	if s.Finished.IsZero() {
		return time.Since(s.Started)
	}
	return s.Finished.Sub(s.Started)
}
