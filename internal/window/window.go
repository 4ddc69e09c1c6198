package window

import (
	"strings"
	"time"
)

// DateFormat is the compact layout passed to the downloader and used in folder names.
const DateFormat = "20060102"

// Default offsets around the reference date.
const (
	DefaultMonthsBefore = 6
	DefaultMonthsAfter  = 12
)

// layouts are tried in order. Day-first layouts win over month-first ones for
// ambiguous inputs such as 03/04/2016.
var layouts = []string{
	"2006-1-2",
	"2/1/2006",
	"1/2/2006",
	"2006/1/2",
	"2-1-2006",
	"1-2-2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// Window is the pair of snapshot dates derived from one reference date.
type Window struct {
	Reference time.Time
	Before    time.Time
	After     time.Time
}

// BeforeDate returns the before date formatted as YYYYMMDD.
func (w Window) BeforeDate() string { return w.Before.Format(DateFormat) }

// AfterDate returns the after date formatted as YYYYMMDD.
func (w Window) AfterDate() string { return w.After.Format(DateFormat) }

// Dates returns both dates in execution order.
func (w Window) Dates() [2]string { return [2]string{w.BeforeDate(), w.AfterDate()} }

// Calculator computes windows with fixed month offsets.
type Calculator struct {
	MonthsBefore int
	MonthsAfter  int
}

// NewCalculator returns a Calculator. Negative offsets are treated as zero.
func NewCalculator(monthsBefore, monthsAfter int) Calculator {
	return Calculator{
		MonthsBefore: max(monthsBefore, 0),
		MonthsAfter:  max(monthsAfter, 0),
	}
}

// Default returns a Calculator using the 6/12 month offsets.
func Default() Calculator {
	return NewCalculator(DefaultMonthsBefore, DefaultMonthsAfter)
}

// Compute parses raw and returns its window. ok is false when raw is empty or
// matches none of the accepted layouts.
func (c Calculator) Compute(raw string) (w Window, ok bool) {
	ref, ok := ParseReferenceDate(raw)
	if !ok {
		return Window{}, false
	}
	return Window{
		Reference: ref,
		Before:    AddMonths(ref, -c.MonthsBefore),
		After:     AddMonths(ref, c.MonthsAfter),
	}, true
}

// ParseReferenceDate parses raw using the accepted layouts. The result is
// truncated to a calendar date in UTC.
func ParseReferenceDate(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true
	}
	return time.Time{}, false
}

// AddMonths shifts t by n calendar months, keeping the day of month and
// clamping it to the length of the target month (Mar 31 - 1 month = Feb 28/29).
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	hh, mm, ss := t.Clock()
	return time.Date(first.Year(), first.Month(), d, hh, mm, ss, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
