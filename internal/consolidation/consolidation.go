// Package consolidation recomputes per-day worked/break/overtime totals from
// the event stream. Recomputation is idempotent: the same day can be
// consolidated any number of times with the same result.
package consolidation

import (
	"context"
	"time"

	"go.uber.org/zap"

	"timeclock/internal/clock"
)

// DefaultOvertimeAfter is the daily threshold beyond which worked time
// counts as overtime.
const DefaultOvertimeAfter = 8 * time.Hour

// Summary is one employee-day of consolidated totals.
type Summary struct {
	EmployeeID      string
	Day             time.Time
	WorkedMinutes   int
	BreakMinutes    int
	OvertimeMinutes int
}

// Store is the storage surface the consolidator needs; the Postgres
// repository satisfies it.
type Store interface {
	EventsBetween(ctx context.Context, employeeID string, from, to time.Time) ([]clock.TimeRecord, error)
	UpsertDailySummary(ctx context.Context, employeeID string, day time.Time, workedMinutes, breakMinutes, overtimeMinutes int) error
}

// Consolidator computes and stores daily summaries.
type Consolidator struct {
	store         Store
	overtimeAfter time.Duration
	logger        *zap.Logger
}

// New builds a consolidator. A non-positive threshold falls back to the
// default.
func New(store Store, overtimeAfter time.Duration, logger *zap.Logger) *Consolidator {
	if overtimeAfter <= 0 {
		overtimeAfter = DefaultOvertimeAfter
	}
	return &Consolidator{store: store, overtimeAfter: overtimeAfter, logger: logger.Named("consolidation")}
}

// Run recomputes the summary for one (employee, day) and upserts it.
func (c *Consolidator) Run(ctx context.Context, employeeID string, day time.Time) error {
	events, err := c.store.EventsBetween(ctx, employeeID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return err
	}
	sum := Compute(employeeID, day, events, c.overtimeAfter)
	if err := c.store.UpsertDailySummary(ctx, sum.EmployeeID, sum.Day, sum.WorkedMinutes, sum.BreakMinutes, sum.OvertimeMinutes); err != nil {
		return err
	}
	c.logger.Debug("day consolidated",
		zap.String("employee_id", employeeID),
		zap.String("day", day.Format("2006-01-02")),
		zap.Int("worked_minutes", sum.WorkedMinutes),
	)
	return nil
}

// Compute derives the day's totals from the ordered event stream. Working
// time accumulates between clock_in/break_end and the next break_start/
// clock_out; break time between break_start and break_end. An open tail
// (day still in progress) contributes nothing until closed.
func Compute(employeeID string, day time.Time, events []clock.TimeRecord, overtimeAfter time.Duration) Summary {
	var worked, brk time.Duration
	var workingSince, breakSince *time.Time

	for _, ev := range events {
		t := ev.OccurredAt
		switch ev.Action {
		case clock.ActionClockIn:
			workingSince = &t
		case clock.ActionBreakStart:
			if workingSince != nil {
				worked += t.Sub(*workingSince)
				workingSince = nil
			}
			breakSince = &t
		case clock.ActionBreakEnd:
			if breakSince != nil {
				brk += t.Sub(*breakSince)
				breakSince = nil
			}
			workingSince = &t
		case clock.ActionClockOut:
			if workingSince != nil {
				worked += t.Sub(*workingSince)
				workingSince = nil
			}
		}
	}

	overtime := worked - overtimeAfter
	if overtime < 0 {
		overtime = 0
	}
	return Summary{
		EmployeeID:      employeeID,
		Day:             day,
		WorkedMinutes:   int(worked.Minutes()),
		BreakMinutes:    int(brk.Minutes()),
		OvertimeMinutes: int(overtime.Minutes()),
	}
}
