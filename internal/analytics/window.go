// Package analytics aggregates sales and charges over calendar windows:
// dashboard totals, per-step evolution, period comparison and client ranking.
// It works on plain records and never touches the database.
package analytics

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ares-dev-tech/dashboard/internal/recurrence"
)

type Granularity string

const (
	Day   Granularity = "day"
	Month Granularity = "month"
)

const (
	maxDaySteps   = 366
	maxMonthSteps = 120
	maxWindowDays = 3700
)

var (
	ErrInvalidGranularity = errors.New("invalid_granularity")
	ErrInvalidSteps       = errors.New("invalid_steps")
	ErrInvalidWindow      = errors.New("invalid_window")
)

// ParseGranularity accepts english and french names; empty means Month.
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "month", "mois", "monthly", "mensuel":
		return Month, nil
	case "day", "jour", "daily", "quotidien":
		return Day, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidGranularity, s)
}

// Window is an inclusive range of calendar days.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow normalizes both bounds to calendar days.
func NewWindow(start, end time.Time) (Window, error) {
	w := Window{Start: recurrence.Day(start), End: recurrence.Day(end)}
	if w.End.Before(w.Start) || w.Days() > maxWindowDays {
		return Window{}, ErrInvalidWindow
	}
	return w, nil
}

// MonthWindow is the calendar month containing t.
func MonthWindow(t time.Time) Window {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Window{Start: first, End: first.AddDate(0, 1, -1)}
}

// DayWindow is the single day t.
func DayWindow(t time.Time) Window {
	d := recurrence.Day(t)
	return Window{Start: d, End: d}
}

func (w Window) Days() int {
	return int(w.End.Sub(w.Start).Hours()/24) + 1
}

func (w Window) Contains(t time.Time) bool {
	d := recurrence.Day(t)
	return !d.Before(w.Start) && !d.After(w.End)
}

// WholeMonths returns the number of calendar months covered when the window
// starts on a 1st and ends on a month end, 0 otherwise.
func (w Window) WholeMonths() int {
	if w.Start.Day() != 1 || w.End.AddDate(0, 0, 1).Day() != 1 {
		return 0
	}
	return (w.End.Year()-w.Start.Year())*12 + int(w.End.Month()-w.Start.Month()) + 1
}

// Previous is the window of the same length that ends the day before w.
// Whole-month windows shift by their month count so that March compares
// with February, not with the 28 days before March.
func (w Window) Previous() Window {
	if n := w.WholeMonths(); n > 0 {
		start := w.Start.AddDate(0, -n, 0)
		return Window{Start: start, End: w.Start.AddDate(0, 0, -1)}
	}
	days := w.Days()
	return Window{Start: w.Start.AddDate(0, 0, -days), End: w.Start.AddDate(0, 0, -1)}
}

func (w Window) String() string {
	return w.Start.Format(time.DateOnly) + ".." + w.End.Format(time.DateOnly)
}

type windowJSON struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (w Window) MarshalJSON() ([]byte, error) {
	return json.Marshal(windowJSON{Start: w.Start.Format(time.DateOnly), End: w.End.Format(time.DateOnly)})
}

func (w *Window) UnmarshalJSON(b []byte) error {
	var raw windowJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	start, err := time.Parse(time.DateOnly, raw.Start)
	if err != nil {
		return err
	}
	end, err := time.Parse(time.DateOnly, raw.End)
	if err != nil {
		return err
	}
	*w = Window{Start: start, End: end}
	return nil
}

// ParseWindow reads user supplied bounds. Dates are YYYY-MM-DD; a YYYY-MM
// start means the first of that month and a YYYY-MM end its last day.
// Both empty means the month containing now; a single bound is an error.
func ParseWindow(start, end string, now time.Time) (Window, error) {
	start, end = strings.TrimSpace(start), strings.TrimSpace(end)
	if start == "" && end == "" {
		return MonthWindow(now), nil
	}
	if start == "" || end == "" {
		return Window{}, ErrInvalidWindow
	}
	s, err := parseBound(start, false)
	if err != nil {
		return Window{}, err
	}
	e, err := parseBound(end, true)
	if err != nil {
		return Window{}, err
	}
	return NewWindow(s, e)
}

// ParseDate parses YYYY-MM-DD, or YYYY-MM as the first (or last, when
// endOfMonth is set) day of the month.
func ParseDate(s string, endOfMonth bool) (time.Time, error) {
	return parseBound(strings.TrimSpace(s), endOfMonth)
}

func parseBound(s string, endOfMonth bool) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01", s); err == nil {
		if endOfMonth {
			return t.AddDate(0, 1, -1), nil
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidWindow, s)
}

// Steps returns n consecutive windows of granularity g, oldest first, the
// last one containing anchor.
func Steps(g Granularity, anchor time.Time, n int) ([]Window, error) {
	switch g {
	case Day:
		if n < 1 || n > maxDaySteps {
			return nil, ErrInvalidSteps
		}
		last := recurrence.Day(anchor)
		out := make([]Window, 0, n)
		for i := n - 1; i >= 0; i-- {
			out = append(out, DayWindow(last.AddDate(0, 0, -i)))
		}
		return out, nil
	case Month:
		if n < 1 || n > maxMonthSteps {
			return nil, ErrInvalidSteps
		}
		first := MonthWindow(anchor).Start
		out := make([]Window, 0, n)
		for i := n - 1; i >= 0; i-- {
			out = append(out, MonthWindow(first.AddDate(0, -i, 0)))
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidGranularity, string(g))
}

// Label formats a step window for charts.
func Label(g Granularity, w Window) string {
	if g == Month {
		return w.Start.Format("2006-01")
	}
	return w.Start.Format(time.DateOnly)
}
