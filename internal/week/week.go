// Package week holds the calendar arithmetic for weekly check records.
// Dates are naked calendar dates (year, month, day): no time of day or
// timezone ever influences which week or weekday a date belongs to.
package week

import (
	"errors"
	"time"
)

// ISO calendar date layout used everywhere on the wire.
const Layout = "2006-01-02"

// ErrInvalidDate marks a date string that is missing, malformed, or not a
// real calendar date. Callers must reject the request instead of substituting
// a default, otherwise data ends up under the wrong week key.
var ErrInvalidDate = errors.New("invalid date")

// ParseDate parses an ISO calendar date string ("2006-01-02").
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

// FormatDate renders d as an ISO calendar date string.
func FormatDate(d time.Time) string {
	return d.Format(Layout)
}

// Commencing returns the Monday on or before d. A Monday maps to itself,
// Tuesday through Sunday map to the preceding Monday.
func Commencing(d time.Time) time.Time {
	return d.AddDate(0, 0, -DayOffset(d))
}

// DayOffset returns the Monday-based weekday index: Mon=0 ... Sun=6.
func DayOffset(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

// IsMonday reports whether d is a Monday.
func IsMonday(d time.Time) bool {
	return d.Weekday() == time.Monday
}
