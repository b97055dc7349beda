package dates

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Precision describes how much of a Date was actually present in the text.
type Precision uint8

const (
	PrecisionYear Precision = iota
	PrecisionMonth
	PrecisionDay
)

func (p Precision) String() string {
	switch p {
	case PrecisionDay:
		return "day"
	case PrecisionMonth:
		return "month"
	default:
		return "year"
	}
}

// Date is a candidate calendar date. Month and Day default to 1 when the
// source text did not carry them.
type Date struct {
	Year      int       `json:"year"`
	Month     int       `json:"month"`
	Day       int       `json:"day"`
	Precision Precision `json:"precision"`
}

// NewDate builds a Date and reports whether year/month/day form a real
// calendar day (no February 30th).
func NewDate(year, month, day int, precision Precision) (Date, bool) {
	if month < 1 || month > 12 || day < 1 {
		return Date{}, false
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Year() != year || int(t.Month()) != month || t.Day() != day {
		return Date{}, false
	}
	return Date{Year: year, Month: month, Day: day, Precision: precision}, true
}

// YearOnly returns January 1st of year.
func YearOnly(year int) Date {
	return Date{Year: year, Month: 1, Day: 1, Precision: PrecisionYear}
}

// String formats the date as YYYY/MM/DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d/%02d/%02d", d.Year, d.Month, d.Day)
}

// Time converts the date to midnight UTC.
func (d Date) Time() time.Time {
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.UTC)
}

// Before reports whether d is strictly earlier than other.
func (d Date) Before(other Date) bool {
	if d.Year != other.Year {
		return d.Year < other.Year
	}
	if d.Month != other.Month {
		return d.Month < other.Month
	}
	return d.Day < other.Day
}

// Parse reads a YYYY/MM/DD string as produced by String.
func Parse(s string) (Date, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return Date{}, fmt.Errorf("invalid date %q: want YYYY/MM/DD", s)
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
		}
		nums[i] = n
	}
	d, ok := NewDate(nums[0], nums[1], nums[2], PrecisionDay)
	if !ok {
		return Date{}, fmt.Errorf("invalid date %q: not a calendar day", s)
	}
	return d, nil
}
