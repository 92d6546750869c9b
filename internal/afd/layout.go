// Package afd builds and encodes the AFD regulatory time-and-attendance
// file: an ordered sequence of fixed-width lines where a single misplaced
// character invalidates the deliverable. The builder and encoder are pure
// transformations over already-fetched data.
package afd

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// LayoutVersion selects the field widths and timestamp formats of the file.
type LayoutVersion string

const (
	// Layout1510 is the legacy layout: ddmmyyyy+hhmm timestamps.
	Layout1510 LayoutVersion = "1510"
	// Layout671 is the current layout: ISO timestamps with UTC offset.
	Layout671 LayoutVersion = "671"

	// DefaultLayout is the most recent supported version.
	DefaultLayout = Layout671
)

// ParseLayoutVersion rejects unknown versions at the boundary. Empty input
// selects the default.
func ParseLayoutVersion(s string) (LayoutVersion, error) {
	switch s {
	case "":
		return DefaultLayout, nil
	case string(Layout1510):
		return Layout1510, nil
	case string(Layout671):
		return Layout671, nil
	}
	return "", fmt.Errorf("unsupported layout version %q", s)
}

// layout carries the per-version field widths. Timestamp width follows from
// the version's format string.
type layout struct {
	seq         int
	cnpj        int
	cei         int
	companyName int
	pis         int
	responsible int
	count       int
	timeFormat  string
}

var layouts = map[LayoutVersion]layout{
	Layout1510: {seq: 9, cnpj: 14, cei: 12, companyName: 150, pis: 12, responsible: 52, count: 9, timeFormat: "020120061504"},
	Layout671:  {seq: 9, cnpj: 14, cei: 12, companyName: 150, pis: 12, responsible: 52, count: 9, timeFormat: "2006-01-02T15:04:05-0700"},
}

func (l layout) timestamp(t time.Time) string {
	return t.Format(l.timeFormat)
}

// ErrFieldOverflow marks a value longer than its fixed-width slot. Overflow
// is a hard failure: truncating a CNPJ or worker identifier produces a file
// the regulator rejects.
var ErrFieldOverflow = errors.New("field overflows fixed-width slot")

// field is one fixed-width slot. Numeric fields are zero-padded left, text
// fields space-padded right.
type field struct {
	name    string
	value   string
	width   int
	numeric bool
}

// renderLine measures width in characters, not bytes, so a line keeps its
// column positions after single-byte encoding of accented text.
func renderLine(fields []field) (string, error) {
	var b strings.Builder
	for _, f := range fields {
		n := utf8.RuneCountInString(f.value)
		if n > f.width {
			return "", fmt.Errorf("%w: %s=%q exceeds %d characters", ErrFieldOverflow, f.name, f.value, f.width)
		}
		pad := f.width - n
		if f.numeric {
			b.WriteString(strings.Repeat("0", pad))
			b.WriteString(f.value)
		} else {
			b.WriteString(f.value)
			b.WriteString(strings.Repeat(" ", pad))
		}
	}
	return b.String(), nil
}

func seqValue(width, n int) string {
	return fmt.Sprintf("%0*d", width, n)
}
