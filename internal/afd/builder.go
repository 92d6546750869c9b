package afd

import (
	"errors"
	"sort"
	"time"
)

// Record types of the file. Everything except header and trailer is a
// detail-type line and counts toward the trailer total.
const (
	TypeHeader     = '1'
	TypeDetail     = '3'
	TypeAdjustment = '4'
	TypeInclusion  = '5'
	TypeTrailer    = '9'
)

// Record is one rendered fixed-width line.
type Record struct {
	Type byte
	Line string
}

// IsDetail reports whether the record counts toward the trailer total.
func (r Record) IsDetail() bool {
	return r.Type != TypeHeader && r.Type != TypeTrailer
}

// Company is the employer block of the header and trailer.
type Company struct {
	CNPJ      string
	LegalName string
	REPType   string
}

// Employee is one roster entry. Only active employees with a PIS are
// eligible; the rest are silently excluded from the body.
type Employee struct {
	ID       string
	FullName string
	PIS      string
	Active   bool
}

// Event is one clock event to serialize as a detail line.
type Event struct {
	EmployeeID string
	OccurredAt time.Time
}

// Adjustment is a correction to a previously recorded event. The original
// record is never mutated; both timestamps flow into the file.
type Adjustment struct {
	EmployeeID  string
	Original    time.Time
	Adjusted    time.Time
	AdjustedAt  time.Time
	Responsible string
}

// Inclusion is a retroactively inserted event, e.g. a manual entry for a
// missed punch.
type Inclusion struct {
	EmployeeID  string
	OccurredAt  time.Time
	IncludedAt  time.Time
	Responsible string
}

// BuildInput is everything the builder needs, already fetched.
type BuildInput struct {
	Company     Company
	Employees   []Employee
	Events      []Event
	Adjustments []Adjustment
	Inclusions  []Inclusion
	Start       time.Time
	End         time.Time
	Layout      LayoutVersion
	GeneratedAt time.Time
}

// ErrNoEligibleEmployees means the active+PIS filter left nothing to
// serialize; callers must reject the request rather than emit an empty body.
var ErrNoEligibleEmployees = errors.New("no eligible employees for AFD generation")

// Build transforms the inputs into the ordered record sequence: one header,
// per-employee detail lines (employees ascending, event time ascending
// within each employee), that employee's adjustments in adjustment-timestamp
// order and inclusions in event-timestamp order, then the trailer. Field
// overflow aborts the build; a partially-correct file is never produced.
func Build(in BuildInput) ([]Record, error) {
	lay, ok := layouts[in.Layout]
	if !ok {
		return nil, errors.New("unknown layout version " + string(in.Layout))
	}

	eligible := make([]Employee, 0, len(in.Employees))
	for _, e := range in.Employees {
		if e.Active && e.PIS != "" {
			eligible = append(eligible, e)
		}
	}
	if len(eligible) == 0 {
		return nil, ErrNoEligibleEmployees
	}
	sort.SliceStable(eligible, func(i, j int) bool { return eligible[i].ID < eligible[j].ID })

	byEmployee := make(map[string][]Event, len(eligible))
	for _, ev := range in.Events {
		byEmployee[ev.EmployeeID] = append(byEmployee[ev.EmployeeID], ev)
	}
	adjByEmployee := make(map[string][]Adjustment)
	for _, a := range in.Adjustments {
		adjByEmployee[a.EmployeeID] = append(adjByEmployee[a.EmployeeID], a)
	}
	incByEmployee := make(map[string][]Inclusion)
	for _, i := range in.Inclusions {
		incByEmployee[i.EmployeeID] = append(incByEmployee[i.EmployeeID], i)
	}

	records := make([]Record, 0, len(in.Events)+len(in.Adjustments)+len(in.Inclusions)+2)

	header, err := buildHeader(lay, in)
	if err != nil {
		return nil, err
	}
	records = append(records, header)

	seq := 0
	for _, emp := range eligible {
		events := byEmployee[emp.ID]
		sort.SliceStable(events, func(i, j int) bool { return events[i].OccurredAt.Before(events[j].OccurredAt) })
		for _, ev := range events {
			seq++
			line, err := renderLine([]field{
				{name: "sequence", value: seqValue(lay.seq, seq), width: lay.seq, numeric: true},
				{name: "record_type", value: string(TypeDetail), width: 1},
				{name: "occurred_at", value: lay.timestamp(ev.OccurredAt), width: len(lay.timeFormat)},
				{name: "pis", value: digitsOnly(emp.PIS), width: lay.pis, numeric: true},
			})
			if err != nil {
				return nil, err
			}
			records = append(records, Record{Type: TypeDetail, Line: line})
		}

		adjs := adjByEmployee[emp.ID]
		sort.SliceStable(adjs, func(i, j int) bool { return adjs[i].AdjustedAt.Before(adjs[j].AdjustedAt) })
		for _, a := range adjs {
			seq++
			line, err := renderLine([]field{
				{name: "sequence", value: seqValue(lay.seq, seq), width: lay.seq, numeric: true},
				{name: "record_type", value: string(TypeAdjustment), width: 1},
				{name: "original_at", value: lay.timestamp(a.Original), width: len(lay.timeFormat)},
				{name: "adjusted_at", value: lay.timestamp(a.Adjusted), width: len(lay.timeFormat)},
				{name: "adjustment_at", value: lay.timestamp(a.AdjustedAt), width: len(lay.timeFormat)},
				{name: "pis", value: digitsOnly(emp.PIS), width: lay.pis, numeric: true},
				{name: "responsible", value: a.Responsible, width: lay.responsible},
			})
			if err != nil {
				return nil, err
			}
			records = append(records, Record{Type: TypeAdjustment, Line: line})
		}

		incs := incByEmployee[emp.ID]
		sort.SliceStable(incs, func(i, j int) bool { return incs[i].OccurredAt.Before(incs[j].OccurredAt) })
		for _, inc := range incs {
			seq++
			line, err := renderLine([]field{
				{name: "sequence", value: seqValue(lay.seq, seq), width: lay.seq, numeric: true},
				{name: "record_type", value: string(TypeInclusion), width: 1},
				{name: "occurred_at", value: lay.timestamp(inc.OccurredAt), width: len(lay.timeFormat)},
				{name: "included_at", value: lay.timestamp(inc.IncludedAt), width: len(lay.timeFormat)},
				{name: "pis", value: digitsOnly(emp.PIS), width: lay.pis, numeric: true},
				{name: "responsible", value: inc.Responsible, width: lay.responsible},
			})
			if err != nil {
				return nil, err
			}
			records = append(records, Record{Type: TypeInclusion, Line: line})
		}
	}

	trailer, err := buildTrailer(lay, in.Company, seq)
	if err != nil {
		return nil, err
	}
	records = append(records, trailer)
	return records, nil
}

func buildHeader(lay layout, in BuildInput) (Record, error) {
	repType := in.Company.REPType
	if repType == "" {
		repType = "1"
	}
	line, err := renderLine([]field{
		{name: "sequence", value: "", width: lay.seq, numeric: true},
		{name: "record_type", value: string(TypeHeader), width: 1},
		{name: "employer_id_type", value: "1", width: 1, numeric: true},
		{name: "cnpj", value: digitsOnly(in.Company.CNPJ), width: lay.cnpj, numeric: true},
		{name: "cei", value: "", width: lay.cei, numeric: true},
		{name: "company_name", value: in.Company.LegalName, width: lay.companyName},
		{name: "rep_type", value: repType, width: 1, numeric: true},
		{name: "layout_version", value: string(in.Layout), width: 4},
		{name: "range_start", value: lay.timestamp(in.Start), width: len(lay.timeFormat)},
		{name: "range_end", value: lay.timestamp(in.End), width: len(lay.timeFormat)},
		{name: "generated_at", value: lay.timestamp(in.GeneratedAt), width: len(lay.timeFormat)},
	})
	if err != nil {
		return Record{}, err
	}
	return Record{Type: TypeHeader, Line: line}, nil
}

func buildTrailer(lay layout, c Company, detailCount int) (Record, error) {
	line, err := renderLine([]field{
		{name: "sequence", value: seqValue(lay.seq, 999999999), width: lay.seq, numeric: true},
		{name: "record_type", value: string(TypeTrailer), width: 1},
		{name: "cnpj", value: digitsOnly(c.CNPJ), width: lay.cnpj, numeric: true},
		{name: "detail_count", value: seqValue(lay.count, detailCount), width: lay.count, numeric: true},
	})
	if err != nil {
		return Record{}, err
	}
	return Record{Type: TypeTrailer, Line: line}, nil
}

func digitsOnly(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			out = append(out, s[i])
		}
	}
	return string(out)
}
