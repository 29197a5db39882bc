package core

import (
	"fmt"
	"time"
)

// WeekKey returns the ISO-8601 week of d as "<isoYear>-W<ww>", e.g. "2024-W01".
// The ISO year is used, so 2024-12-30 yields "2025-W01".
func WeekKey(d Date) string {
	year, week := d.ISOWeek()
	return fmt.Sprintf("%04d-W%02d", year, week)
}

// MonthKey returns "YYYY-MM".
func MonthKey(d Date) string {
	return fmt.Sprintf("%04d-%02d", d.Year(), int(d.Month()))
}

// ParseWeekKey returns the Monday of the ISO week named by key.
func ParseWeekKey(key string) (Date, error) {
	var year, week int
	if _, err := fmt.Sscanf(key, "%4d-W%2d", &year, &week); err != nil {
		return Date{}, fmt.Errorf("%w: week key %q", ErrInvalidDate, key)
	}
	if week < 1 || week > 53 {
		return Date{}, fmt.Errorf("%w: week key %q", ErrInvalidDate, key)
	}
	// January 4th is always in ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	monday := jan4.AddDate(0, 0, -offset+(week-1)*7)
	d := Date{Time: monday}
	if WeekKey(d) != key {
		return Date{}, fmt.Errorf("%w: week key %q", ErrInvalidDate, key)
	}
	return d, nil
}

// ParseMonthKey returns the first day of the month named by key.
func ParseMonthKey(key string) (Date, error) {
	t, err := time.Parse("2006-01", key)
	if err != nil {
		return Date{}, fmt.Errorf("%w: month key %q", ErrInvalidDate, key)
	}
	return Date{Time: t}, nil
}
