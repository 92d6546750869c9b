package clock

import "time"

// Source channels for a recorded event.
const (
	SourceWeb    = "web"
	SourceMobile = "mobile"
	SourceImport = "import"
)

// TimeRecord is one append-only clock event. Records are never mutated or
// deleted; corrections are modeled as separate adjustment entities that flow
// into the regulatory file alongside the original.
type TimeRecord struct {
	ID         string
	EmployeeID string
	CompanyID  string
	Action     Action
	OccurredAt time.Time
	Source     string
	Latitude   *float64
	Longitude  *float64
	PhotoURL   string
	Note       string
	CreatedBy  string
	CreatedAt  time.Time
}

// Employee carries the roster fields the signing and file-generation paths
// need. PIS is the government worker identifier; employees without one, or
// not active, are excluded from regulatory files.
type Employee struct {
	ID        string
	CompanyID string
	FullName  string
	PIS       *string
	Status    string
	CreatedAt time.Time
}

// EmployeeStatusActive marks employees eligible for AFD generation.
const EmployeeStatusActive = "active"

// Company is the read-only employer record used for file headers.
type Company struct {
	ID        string
	CNPJ      string
	LegalName string
	CreatedAt time.Time
}
