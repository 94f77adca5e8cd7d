// Package period implements billing-period calculation for volumetry extracts.
//
// A billing period always runs from day 8 of one month through day 7 of the
// next, inclusive. Which window a reference date falls under is asymmetric:
// on day 8 or later the covered period ends on day 7 of the reference month;
// before day 8 the covered period is shifted one month further back, because
// the current window has not yet closed.
package period

import (
	"fmt"
	"time"
)

const (
	// StartDay is the first day of a billing window.
	StartDay = 8
	// EndDay is the last day of a billing window, in the following month.
	EndDay = 7
)

// Period is an inclusive billing window.
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether d falls within the period, inclusive of both bounds.
func (p Period) Contains(d time.Time) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

func (p Period) String() string {
	return fmt.Sprintf("%s..%s", p.Start.Format(time.DateOnly), p.End.Format(time.DateOnly))
}

// Reference identifies a billing month ("2025-07").
type Reference struct {
	Year  int
	Month time.Month
}

// ParseReference parses a YYYY-MM period reference.
func ParseReference(s string) (Reference, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Reference{}, fmt.Errorf("invalid period reference %q: %w", s, err)
	}
	return Reference{Year: t.Year(), Month: t.Month()}, nil
}

func (r Reference) String() string {
	return fmt.Sprintf("%04d-%02d", r.Year, int(r.Month))
}

// Window returns the billing period covered by the reference month:
// day 8 of the prior month through day 7 of the reference month.
// time.Date normalizes month underflow, so the December/January rollover
// needs no special casing.
func (r Reference) Window() Period {
	return Period{
		Start: time.Date(r.Year, r.Month-1, StartDay, 0, 0, 0, 0, time.UTC),
		End:   time.Date(r.Year, r.Month, EndDay, 0, 0, 0, 0, time.UTC),
	}
}

// ReferenceForDate returns the billing month covered as of the given date.
// On or after day 8 that is the date's own month; before day 8 the prior
// month, because the window ending on day 7 of the current month is still
// accumulating records.
func ReferenceForDate(d time.Time) Reference {
	y, m, day := d.Date()
	if day < StartDay {
		m--
		if m < time.January {
			m = time.December
			y--
		}
	}
	return Reference{Year: y, Month: m}
}

// ForDate returns the covered billing period for a reference date.
func ForDate(d time.Time) Period {
	return ReferenceForDate(d).Window()
}
