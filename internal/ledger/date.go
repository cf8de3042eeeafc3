package ledger

import (
	"fmt"
	"time"
)

// DateFormat is the wire representation for event dates (ISO-8601, date only).
const DateFormat = "2006-01-02"

// MonthKeyFormat identifies a calendar month, e.g. "2025-07".
const MonthKeyFormat = "2006-01"

// Date is a calendar date with day granularity, independent of time zone.
type Date struct {
	y int
	m time.Month
	d int
}

// NewDate returns a normalized Date for the given year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	d := Date{year, month, day}
	d.y, d.m, d.d = d.time().Date()
	return d
}

// Today returns the current date in UTC.
func Today() Date {
	y, m, d := time.Now().UTC().Date()
	return Date{y, m, d}
}

// ParseDate parses an ISO-8601 date string ("2025-07-14"). Timestamps are
// accepted too; anything past the date part is ignored.
func ParseDate(s string) (Date, error) {
	if len(s) > len(DateFormat) {
		s = s[:len(DateFormat)]
	}
	t, err := time.Parse(DateFormat, s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	y, m, d := t.Date()
	return Date{y, m, d}, nil
}

func (d Date) time() time.Time {
	return time.Date(d.y, d.m, d.d, 0, 0, 0, 0, time.UTC)
}

func (d Date) Year() int         { return d.y }
func (d Date) Month() time.Month { return d.m }
func (d Date) Day() int          { return d.d }

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool { return d.y == 0 && d.m == 0 && d.d == 0 }

// String formats the date as ISO-8601.
func (d Date) String() string { return d.time().Format(DateFormat) }

// MonthKey returns the "YYYY-MM" key of the month containing d.
func (d Date) MonthKey() string { return d.time().Format(MonthKeyFormat) }

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool { return d.time().Before(other.time()) }

// After reports whether d is strictly later than other.
func (d Date) After(other Date) bool { return d.time().After(other.time()) }

// AddDays returns the date n days after d (n may be negative).
func (d Date) AddDays(n int) Date {
	y, m, day := d.time().AddDate(0, 0, n).Date()
	return Date{y, m, day}
}

// MarshalJSON encodes the date as an ISO-8601 string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON accepts ISO-8601 dates and date-prefixed timestamps.
func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("date: expected JSON string, got %s", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
