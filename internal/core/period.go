package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Window is a half-open time range [Start, End). A zero Start means unbounded.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// MonthWindow returns the calendar month [first instant, first instant of next
// month) in loc. month is 1-based.
func MonthWindow(year, month int, loc *time.Location) (Window, error) {
	if month < 1 || month > 12 {
		return Window{}, invalidInput("month must be between 1 and 12, got %d", month)
	}
	if year < 1900 || year > 2100 {
		return Window{}, invalidInput("year must be between 1900 and 2100, got %d", year)
	}
	if loc == nil {
		loc = time.UTC
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 1, 0)}, nil
}

// MonthEnd is the exclusive as-of cutoff for a month: the first instant of the
// following month.
func MonthEnd(year, month int, loc *time.Location) (time.Time, error) {
	w, err := MonthWindow(year, month, loc)
	if err != nil {
		return time.Time{}, err
	}
	return w.End, nil
}

// Previous returns the window of equal calendar length immediately before w,
// measured in months when w is a calendar month.
func (w Window) Previous() Window {
	if w.Start.Day() == 1 && w.End.Equal(w.Start.AddDate(0, 1, 0)) {
		return Window{Start: w.Start.AddDate(0, -1, 0), End: w.Start}
	}
	return Window{Start: w.Start.Add(-w.End.Sub(w.Start)), End: w.Start}
}

// money rounds to two decimal places at output boundaries.
func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}
