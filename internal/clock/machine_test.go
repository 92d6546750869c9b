package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allStatuses = []Status{StatusNotStarted, StatusWorking, StatusBreak, StatusFinished}
var allActions = []Action{ActionClockIn, ActionBreakStart, ActionBreakEnd, ActionClockOut}

func TestEvaluateAllowedTransitions(t *testing.T) {
	tests := []struct {
		current Status
		action  Action
		next    Status
	}{
		{StatusNotStarted, ActionClockIn, StatusWorking},
		{StatusWorking, ActionBreakStart, StatusBreak},
		{StatusWorking, ActionClockOut, StatusFinished},
		{StatusBreak, ActionBreakEnd, StatusWorking},
		// finished -> clock_in re-opens a new cycle on purpose.
		{StatusFinished, ActionClockIn, StatusWorking},
	}
	for _, tt := range tests {
		t.Run(string(tt.current)+"_"+string(tt.action), func(t *testing.T) {
			dec := Evaluate(tt.current, tt.action)
			require.True(t, dec.Allowed)
			assert.Equal(t, tt.next, dec.Next)
			assert.Equal(t, ReasonAllowed, dec.Reason)
		})
	}
}

func TestEvaluateDeniesEverythingElse(t *testing.T) {
	allowed := map[[2]string]bool{
		{string(StatusNotStarted), string(ActionClockIn)}:  true,
		{string(StatusWorking), string(ActionBreakStart)}:  true,
		{string(StatusWorking), string(ActionClockOut)}:    true,
		{string(StatusBreak), string(ActionBreakEnd)}:      true,
		{string(StatusFinished), string(ActionClockIn)}:    true,
	}
	for _, s := range allStatuses {
		for _, a := range allActions {
			if allowed[[2]string{string(s), string(a)}] {
				continue
			}
			dec := Evaluate(s, a)
			assert.False(t, dec.Allowed, "expected %s from %s to be denied", a, s)
			assert.Equal(t, s, dec.Next)
			assert.Contains(t, dec.Reason, "not permitted")
		}
	}
}

func TestEvaluateUnknownStatusDenied(t *testing.T) {
	dec := Evaluate(Status("bogus"), ActionClockIn)
	assert.False(t, dec.Allowed)
}

func TestStatusAfter(t *testing.T) {
	assert.Equal(t, StatusWorking, StatusAfter(ActionClockIn))
	assert.Equal(t, StatusBreak, StatusAfter(ActionBreakStart))
	assert.Equal(t, StatusWorking, StatusAfter(ActionBreakEnd))
	assert.Equal(t, StatusFinished, StatusAfter(ActionClockOut))
}
