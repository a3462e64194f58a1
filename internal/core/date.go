package core

import (
	"fmt"
	"strings"
	"time"
)

// Date is a calendar date at UTC midnight. All date arithmetic in the
// projection engine goes through this type so that month boundaries are
// evaluated in UTC and never shift with the host timezone.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO-8601 calendar date. A malformed or empty string is
// an error; callers must reject the transaction rather than fall back to a
// zero date.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Date{}, ErrInvalidDate
	}
	t, err := time.ParseInLocation(dateLayout, s, time.UTC)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Day returns the day of the month.
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month (1-12).
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year.
func (d Date) Year() int {
	return d.Time.Year()
}

// AddDays returns the date n calendar days later.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

// AddMonths advances by n calendar months, clamping the day of month so that
// overflow never spills into the following month: Jan 31 + 1 month is the
// last day of February, not March 2/3.
func (d Date) AddMonths(n int) Date {
	year, month, day := d.Time.Date()
	first := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return Date{Time: time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)}
}

// After and Before are inherited from time.Time; comparisons on Date values
// are calendar-exact because both sides are UTC midnight.

// SameMonth reports whether the date falls in the given month and year,
// evaluated on UTC calendar fields.
func (d Date) SameMonth(month, year int) bool {
	return d.Month() == month && d.Year() == year
}
