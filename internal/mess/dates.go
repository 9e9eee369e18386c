package mess

import (
	"fmt"
	"time"

	"github.com/hongminglow/mess-be/internal/models"
)

// CalendarDay returns the calendar day t falls on in loc, as midnight UTC.
// Every date handled by the ledger uses this representation so that values
// compare and round-trip through DATE columns unchanged.
func CalendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the length of month in year, leap years included.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthBounds returns the first and last calendar day of the month containing day.
func MonthBounds(day time.Time) (time.Time, time.Time) {
	first := time.Date(day.Year(), day.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(day.Year(), day.Month(), DaysIn(day.Year(), day.Month()), 0, 0, 0, 0, time.UTC)
	return first, last
}

// ParseDate reads a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return d, nil
}

// ParseMonth reads a YYYY-MM month and returns its first day.
func ParseMonth(s string) (time.Time, error) {
	d, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q, expected YYYY-MM", s)
	}
	return d, nil
}

const secondsPerDay = 24 * 60 * 60

// SpanDays counts the calendar days in the inclusive range [start, end].
func SpanDays(start, end time.Time) int {
	return int((end.Unix()-start.Unix())/secondsPerDay) + 1
}

// eachDay calls fn for every calendar day in [start, end].
func eachDay(start, end time.Time, fn func(day time.Time)) {
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		fn(d)
	}
}
