package clock

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const maxNoteLength = 500

// Repository is the storage surface the signing service reads and writes.
type Repository interface {
	LastEventBetween(ctx context.Context, employeeID string, from, to time.Time) (*TimeRecord, error)
	InsertEvent(ctx context.Context, rec TimeRecord) (TimeRecord, error)
}

// TxRepository adds the per-(employee, day) critical section. WithDayLock
// serializes the read-validate-write sequence so two concurrent submits for
// the same employee and day cannot both validate against a stale snapshot;
// different employees or days never contend.
type TxRepository interface {
	Repository
	WithDayLock(ctx context.Context, employeeID string, day string, fn func(Repository) error) error
}

// ConsolidationRequester asks for the day's worked/break/overtime totals to
// be recomputed. Fire-and-forget relative to the signing request.
type ConsolidationRequester interface {
	Request(ctx context.Context, employeeID string, day time.Time) error
}

// EventInput is a signing request. Client timestamps are not trusted; the
// service assigns the event time.
type EventInput struct {
	EmployeeID string
	CompanyID  string
	Action     Action
	Source     string
	Latitude   *float64
	Longitude  *float64
	PhotoURL   string
	Note       string
	CreatedBy  string
}

// Service validates and records clock events.
type Service struct {
	repo         TxRepository
	consolidator ConsolidationRequester
	window       time.Duration
	loc          *time.Location
	logger       *zap.Logger
	now          func() time.Time
}

// NewService builds a signing service. A non-positive window falls back to
// the default; a nil location uses the process-local zone for the calendar
// day boundary.
func NewService(repo TxRepository, consolidator ConsolidationRequester, window time.Duration, loc *time.Location, logger *zap.Logger) *Service {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		repo:         repo,
		consolidator: consolidator,
		window:       window,
		loc:          loc,
		logger:       logger.Named("signing"),
		now:          time.Now,
	}
}

// RecordEvent runs the full signing sequence: input validation, day-scoped
// last-event fetch, state-machine evaluation, duplicate suppression, and the
// immutable insert, all inside the per-(employee, day) critical section.
// After a successful write it requests daily consolidation; a failure there
// is logged and retried later, never surfaced to the caller.
func (s *Service) RecordEvent(ctx context.Context, in EventInput) (TimeRecord, error) {
	if err := in.validate(); err != nil {
		return TimeRecord{}, err
	}

	now := s.now().In(s.loc)
	dayStart, dayEnd := dayBounds(now, s.loc)

	rec := TimeRecord{
		ID:         uuid.NewString(),
		EmployeeID: in.EmployeeID,
		CompanyID:  in.CompanyID,
		Action:     in.Action,
		OccurredAt: now,
		Source:     in.Source,
		Latitude:   in.Latitude,
		Longitude:  in.Longitude,
		PhotoURL:   in.PhotoURL,
		Note:       in.Note,
		CreatedBy:  in.CreatedBy,
	}
	if rec.Source == "" {
		rec.Source = SourceWeb
	}

	dayKey := dayStart.Format("2006-01-02")
	err := s.repo.WithDayLock(ctx, in.EmployeeID, dayKey, func(repo Repository) error {
		last, err := repo.LastEventBetween(ctx, in.EmployeeID, dayStart, dayEnd)
		if err != nil {
			return err
		}

		current := StatusNotStarted
		if last != nil {
			current = StatusAfter(last.Action)
		}

		if dec := Evaluate(current, in.Action); !dec.Allowed {
			return &Denial{Code: CodeInvalidSequence, Status: current, Action: in.Action, Reason: dec.Reason}
		}
		if last != nil {
			if chk := CheckDuplicate(&last.OccurredAt, now, s.window); chk.Duplicate {
				return &Denial{Code: CodeDuplicate, Status: current, Action: in.Action, Reason: chk.Reason}
			}
		}

		rec, err = repo.InsertEvent(ctx, rec)
		return err
	})
	if err != nil {
		return TimeRecord{}, err
	}

	if s.consolidator != nil {
		if cerr := s.consolidator.Request(ctx, in.EmployeeID, dayStart); cerr != nil {
			s.logger.Warn("consolidation request failed, will be retried",
				zap.String("employee_id", in.EmployeeID),
				zap.String("day", dayKey),
				zap.Error(cerr),
			)
		}
	}

	return rec, nil
}

// StatusNow returns the employee's derived status for the current day.
func (s *Service) StatusNow(ctx context.Context, employeeID string) (Status, error) {
	if _, err := uuid.Parse(employeeID); err != nil {
		return "", &ValidationError{Fields: []FieldError{{Field: "employee_id", Message: "must be a valid UUID"}}}
	}
	now := s.now().In(s.loc)
	dayStart, dayEnd := dayBounds(now, s.loc)
	last, err := s.repo.LastEventBetween(ctx, employeeID, dayStart, dayEnd)
	if err != nil {
		return "", err
	}
	if last == nil {
		return StatusNotStarted, nil
	}
	return StatusAfter(last.Action), nil
}

func (in *EventInput) validate() error {
	var fields []FieldError
	if _, err := uuid.Parse(in.EmployeeID); err != nil {
		fields = append(fields, FieldError{Field: "employee_id", Message: "must be a valid UUID"})
	}
	if _, err := uuid.Parse(in.CompanyID); err != nil {
		fields = append(fields, FieldError{Field: "company_id", Message: "must be a valid UUID"})
	}
	switch in.Action {
	case ActionClockIn, ActionBreakStart, ActionBreakEnd, ActionClockOut:
	default:
		fields = append(fields, FieldError{Field: "action", Message: "must be one of clock_in, break_start, break_end, clock_out"})
	}
	switch in.Source {
	case "", SourceWeb, SourceMobile, SourceImport:
	default:
		fields = append(fields, FieldError{Field: "source", Message: "must be one of web, mobile, import"})
	}
	if in.Latitude != nil && (*in.Latitude < -90 || *in.Latitude > 90) {
		fields = append(fields, FieldError{Field: "latitude", Message: "must be between -90 and 90"})
	}
	if in.Longitude != nil && (*in.Longitude < -180 || *in.Longitude > 180) {
		fields = append(fields, FieldError{Field: "longitude", Message: "must be between -180 and 180"})
	}
	if len(in.Note) > maxNoteLength {
		fields = append(fields, FieldError{Field: "note", Message: "must be at most 500 characters"})
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// dayBounds returns the local-midnight boundaries of now's calendar day.
// The boundary is fixed per day, not a rolling 24h window.
func dayBounds(now time.Time, loc *time.Location) (time.Time, time.Time) {
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}
