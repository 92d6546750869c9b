package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckDuplicateNoPriorEvent(t *testing.T) {
	now := time.Now()
	chk := CheckDuplicate(nil, now, DefaultDedupWindow)
	assert.False(t, chk.Duplicate)
	assert.Empty(t, chk.Reason)
}

func TestCheckDuplicateInsideWindow(t *testing.T) {
	last := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	chk := CheckDuplicate(&last, last.Add(30*time.Second), DefaultDedupWindow)
	assert.True(t, chk.Duplicate)
	assert.NotEmpty(t, chk.Reason)

	chk = CheckDuplicate(&last, last, DefaultDedupWindow)
	assert.True(t, chk.Duplicate, "zero elapsed is inside the window")
}

func TestCheckDuplicateBoundaryIsExclusive(t *testing.T) {
	last := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	chk := CheckDuplicate(&last, last.Add(DefaultDedupWindow-time.Nanosecond), DefaultDedupWindow)
	assert.True(t, chk.Duplicate, "just under the boundary is a duplicate")

	chk = CheckDuplicate(&last, last.Add(DefaultDedupWindow), DefaultDedupWindow)
	assert.False(t, chk.Duplicate, "exactly at the boundary is not a duplicate")
}

func TestCheckDuplicateCustomWindow(t *testing.T) {
	last := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	chk := CheckDuplicate(&last, last.Add(3*time.Minute), 5*time.Minute)
	assert.True(t, chk.Duplicate)

	chk = CheckDuplicate(&last, last.Add(5*time.Minute), 5*time.Minute)
	assert.False(t, chk.Duplicate)
}

func TestCheckDuplicateIgnoresActionType(t *testing.T) {
	// The guard suppresses rapid submissions regardless of action; it takes
	// no action argument at all, which this test pins down.
	last := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	chk := CheckDuplicate(&last, last.Add(10*time.Second), DefaultDedupWindow)
	assert.True(t, chk.Duplicate)
}
