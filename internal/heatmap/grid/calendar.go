// Package grid holds the pure steps that turn observations into a heatmap
// matrix: calendar axes, pivoting, sanitizing, normalization, bounds and ticks.
package grid

import (
	"errors"
	"strings"
	"time"
)

var ErrInvalidDate = errors.New("invalid_date")

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05-07:00",
	"2006/01/02",
}

// ParseDate reads a date or timestamp and truncates it to a timezone-naive
// calendar day, represented as midnight UTC.
func ParseDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, ErrInvalidDate
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return Day(t), nil
		}
	}
	return time.Time{}, ErrInvalidDate
}

// Day drops the clock and zone, keeping the wall-clock calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Days lists every calendar day from start to end inclusive.
func Days(start, end time.Time) []time.Time {
	start, end = Day(start), Day(end)
	if end.Before(start) {
		return nil
	}
	n := int(end.Sub(start).Hours()/24) + 1
	out := make([]time.Time, 0, n)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// PreviousYearSameWeekday steps back 52 weeks and then, if needed, one day
// at a time until the weekday matches the input.
func PreviousYearSameWeekday(d time.Time) time.Time {
	d = Day(d)
	prev := d.AddDate(0, 0, -364)
	for prev.Weekday() != d.Weekday() {
		prev = prev.AddDate(0, 0, -1)
	}
	return prev
}

func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}
