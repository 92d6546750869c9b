package consolidation

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"timeclock/internal/clock"
)

func dayEvents(day time.Time, steps map[time.Duration]clock.Action) []clock.TimeRecord {
	offsets := make([]time.Duration, 0, len(steps))
	for off := range steps {
		offsets = append(offsets, off)
	}
	// Events arrive ordered from the repository.
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	events := make([]clock.TimeRecord, 0, len(offsets))
	for _, off := range offsets {
		events = append(events, clock.TimeRecord{
			EmployeeID: "emp-1",
			Action:     steps[off],
			OccurredAt: day.Add(off),
		})
	}
	return events
}

func TestComputeCanonicalDay(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	events := dayEvents(day, map[time.Duration]clock.Action{
		9 * time.Hour:  clock.ActionClockIn,
		12 * time.Hour: clock.ActionBreakStart,
		13 * time.Hour: clock.ActionBreakEnd,
		18 * time.Hour: clock.ActionClockOut,
	})

	sum := Compute("emp-1", day, events, DefaultOvertimeAfter)
	assert.Equal(t, 480, sum.WorkedMinutes, "09-12 and 13-18")
	assert.Equal(t, 60, sum.BreakMinutes)
	assert.Equal(t, 0, sum.OvertimeMinutes)
}

func TestComputeOvertime(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	events := dayEvents(day, map[time.Duration]clock.Action{
		8 * time.Hour:  clock.ActionClockIn,
		19 * time.Hour: clock.ActionClockOut,
	})

	sum := Compute("emp-1", day, events, DefaultOvertimeAfter)
	assert.Equal(t, 660, sum.WorkedMinutes)
	assert.Equal(t, 180, sum.OvertimeMinutes)
}

func TestComputeOpenDayContributesNothingPastLastEvent(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	events := dayEvents(day, map[time.Duration]clock.Action{
		9 * time.Hour:  clock.ActionClockIn,
		12 * time.Hour: clock.ActionBreakStart,
	})

	sum := Compute("emp-1", day, events, DefaultOvertimeAfter)
	assert.Equal(t, 180, sum.WorkedMinutes)
	assert.Equal(t, 0, sum.BreakMinutes, "open break not counted until closed")
}

func TestComputeEmptyDay(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	sum := Compute("emp-1", day, nil, DefaultOvertimeAfter)
	assert.Zero(t, sum.WorkedMinutes)
	assert.Zero(t, sum.BreakMinutes)
	assert.Zero(t, sum.OvertimeMinutes)
}

// memStore records upserts so Run can be exercised without Postgres.
type memStore struct {
	events    []clock.TimeRecord
	summaries map[string]Summary
}

func (m *memStore) EventsBetween(_ context.Context, employeeID string, from, to time.Time) ([]clock.TimeRecord, error) {
	var out []clock.TimeRecord
	for _, ev := range m.events {
		if ev.EmployeeID == employeeID && !ev.OccurredAt.Before(from) && ev.OccurredAt.Before(to) {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *memStore) UpsertDailySummary(_ context.Context, employeeID string, day time.Time, worked, brk, overtime int) error {
	if m.summaries == nil {
		m.summaries = make(map[string]Summary)
	}
	key := employeeID + "|" + day.Format("2006-01-02")
	m.summaries[key] = Summary{
		EmployeeID:      employeeID,
		Day:             day,
		WorkedMinutes:   worked,
		BreakMinutes:    brk,
		OvertimeMinutes: overtime,
	}
	return nil
}

func TestRunIsIdempotent(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	store := &memStore{events: dayEvents(day, map[time.Duration]clock.Action{
		9 * time.Hour:  clock.ActionClockIn,
		17 * time.Hour: clock.ActionClockOut,
	})}
	c := New(store, DefaultOvertimeAfter, zaptest.NewLogger(t))

	require.NoError(t, c.Run(context.Background(), "emp-1", day))
	first := store.summaries["emp-1|2026-03-02"]
	require.NoError(t, c.Run(context.Background(), "emp-1", day))
	second := store.summaries["emp-1|2026-03-02"]

	assert.Equal(t, first, second)
	assert.Equal(t, 480, second.WorkedMinutes)
	assert.Len(t, store.summaries, 1)
}

func TestRequestCodecRoundTrip(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.Local)
	body := EncodeRequest("7f9bd6ab-95a7-4d9e-8fd6-2f7a3c1f0f43", day)

	employeeID, parsed, err := DecodeRequest(body)
	require.NoError(t, err)
	assert.Equal(t, "7f9bd6ab-95a7-4d9e-8fd6-2f7a3c1f0f43", employeeID)
	assert.True(t, day.Equal(parsed))

	_, _, err = DecodeRequest("garbage-without-separator")
	assert.Error(t, err)
}
