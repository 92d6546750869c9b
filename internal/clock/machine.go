package clock

import "fmt"

// ReasonAllowed is the literal success marker in a Decision.
const ReasonAllowed = "allowed"

// Decision is the outcome of evaluating a requested action against the
// current status. The machine is total: every (status, action) pair yields a
// Decision, never an error.
type Decision struct {
	Allowed bool
	Next    Status
	Reason  string
}

// transitions is the closed-world table; any pair not listed is denied.
// finished -> clock_in deliberately re-opens a new cycle (next-day start or
// same-day reopen after a correction).
var transitions = map[Status]map[Action]Status{
	StatusNotStarted: {ActionClockIn: StatusWorking},
	StatusWorking:    {ActionBreakStart: StatusBreak, ActionClockOut: StatusFinished},
	StatusBreak:      {ActionBreakEnd: StatusWorking},
	StatusFinished:   {ActionClockIn: StatusWorking},
}

// Evaluate maps (current status, requested action) to allow/deny. Pure, no
// I/O, safe for concurrent use.
func Evaluate(current Status, requested Action) Decision {
	if next, ok := transitions[current][requested]; ok {
		return Decision{Allowed: true, Next: next, Reason: ReasonAllowed}
	}
	return Decision{
		Allowed: false,
		Next:    current,
		Reason:  fmt.Sprintf("action %s not permitted from status %s", requested, current),
	}
}
