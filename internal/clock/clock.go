// Package clock implements time-clock signing: the transition rules for
// clock-in/break/clock-out events, duplicate-submission suppression, and the
// signing service that validates and persists events.
package clock

import "fmt"

// Status is an employee's position in the working day. It is never stored;
// it is always re-derived from the latest event of the current day.
type Status string

const (
	StatusNotStarted Status = "not_started"
	StatusWorking    Status = "working"
	StatusBreak      Status = "break"
	StatusFinished   Status = "finished"
)

// Action is one clock event type. Immutable once recorded.
type Action string

const (
	ActionClockIn    Action = "clock_in"
	ActionBreakStart Action = "break_start"
	ActionBreakEnd   Action = "break_end"
	ActionClockOut   Action = "clock_out"
)

// ParseAction validates an action string from the API boundary.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case ActionClockIn, ActionBreakStart, ActionBreakEnd, ActionClockOut:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// StatusAfter returns the status an employee holds after their latest
// recorded action.
func StatusAfter(a Action) Status {
	switch a {
	case ActionClockIn, ActionBreakEnd:
		return StatusWorking
	case ActionBreakStart:
		return StatusBreak
	case ActionClockOut:
		return StatusFinished
	}
	return StatusNotStarted
}
