// Package period harmonizes statistical period labels.
//
// Eurostat and World Bank tables label observations at different
// granularities: "2023" (year), "2023-05" (month), "2023-Q2" (quarter) and
// "2023-S1" (semester). Parse maps every supported label to the first
// calendar day of the period it names so that series of different
// frequencies share one time axis.
package period

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is how harmonized periods are written to CSV.
const DateLayout = "2006-01-02"

// ErrUnknownFormat is returned for labels that match none of the supported shapes.
var ErrUnknownFormat = errors.New("unknown period format")

// Kind is the granularity of a period label.
type Kind int

const (
	Unknown Kind = iota
	Year
	Month
	Quarter
	Semester
)

func (k Kind) String() string {
	switch k {
	case Year:
		return "year"
	case Month:
		return "month"
	case Quarter:
		return "quarter"
	case Semester:
		return "semester"
	default:
		return "unknown"
	}
}

var (
	reYear     = regexp.MustCompile(`^(\d{4})$`)
	reMonth    = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	reQuarter  = regexp.MustCompile(`^(\d{4})-Q([1-4])$`)
	reSemester = regexp.MustCompile(`^(\d{4})-S([1-2])$`)
)

// Period is a parsed label.
type Period struct {
	Kind  Kind
	Start time.Time // first day of the period, UTC
}

// Parse classifies label and returns the first day of the period it names.
func Parse(label string) (Period, error) {
	s := strings.TrimSpace(label)
	if m := reYear.FindStringSubmatch(s); m != nil {
		return build(Year, m[1], 1)
	}
	if m := reMonth.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[2])
		if month < 1 || month > 12 {
			return Period{}, fmt.Errorf("%w: month out of range in %q", ErrUnknownFormat, label)
		}
		return build(Month, m[1], month)
	}
	if m := reQuarter.FindStringSubmatch(s); m != nil {
		q, _ := strconv.Atoi(m[2])
		return build(Quarter, m[1], (q-1)*3+1)
	}
	if m := reSemester.FindStringSubmatch(s); m != nil {
		h, _ := strconv.Atoi(m[2])
		return build(Semester, m[1], (h-1)*6+1)
	}
	return Period{}, fmt.Errorf("%w: %q", ErrUnknownFormat, label)
}

func build(k Kind, year string, month int) (Period, error) {
	y, _ := strconv.Atoi(year)
	return Period{Kind: k, Start: time.Date(y, time.Month(month), 1, 0, 0, 0, 0, time.UTC)}, nil
}

// Date renders the period start as YYYY-MM-DD.
func (p Period) Date() string { return p.Start.Format(DateLayout) }

// Label renders the canonical label for the period.
func (p Period) Label() string {
	y := p.Start.Year()
	m := int(p.Start.Month())
	switch p.Kind {
	case Year:
		return fmt.Sprintf("%04d", y)
	case Month:
		return fmt.Sprintf("%04d-%02d", y, m)
	case Quarter:
		return fmt.Sprintf("%04d-Q%d", y, (m-1)/3+1)
	case Semester:
		return fmt.Sprintf("%04d-S%d", y, (m-1)/6+1)
	default:
		return ""
	}
}

// IsLabel reports whether s looks like a period column header: the first
// four characters are digits or it contains a quarter marker.
func IsLabel(s string) bool {
	if len(s) >= 4 {
		allDigits := true
		for _, r := range s[:4] {
			if r < '0' || r > '9' {
				allDigits = false
				break
			}
		}
		if allDigits {
			return true
		}
	}
	return strings.Contains(s, "Q")
}

// ParseDate reads a harmonized date. Besides YYYY-MM-DD it accepts a
// trailing time component such as " 00:00:00".
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if len(s) > len(DateLayout) {
		s = s[:len(DateLayout)]
	}
	return time.Parse(DateLayout, s)
}
