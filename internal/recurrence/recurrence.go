// Package recurrence projects one-time and recurring records onto calendar
// windows. Every date handled here is a calendar day in UTC; time of day and
// location of the inputs are discarded.
package recurrence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Type is the repetition of a sale or charge.
type Type string

const (
	None    Type = ""
	Monthly Type = "mensuel"
	Yearly  Type = "annuel"
)

var (
	ErrUnknownType    = errors.New("unknown recurrence type")
	ErrMissingStart   = errors.New("recurrence start date is required")
	ErrEndBeforeStart = errors.New("recurrence end date is before start date")
)

// Parse accepts the stored values plus common aliases, case-insensitively.
func Parse(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none", "aucune", "ponctuel", "ponctuelle", "unique":
		return None, nil
	case "mensuel", "mensuelle", "monthly":
		return Monthly, nil
	case "annuel", "annuelle", "yearly", "annual":
		return Yearly, nil
	}
	return None, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

func (t Type) IsRecurring() bool { return t != None }

func (t Type) String() string {
	if t == None {
		return "ponctuel"
	}
	return string(t)
}

// Rule is what the projection needs from a record.
type Rule struct {
	Type  Type
	Start time.Time
	End   *time.Time
}

func (r Rule) Validate() error {
	if r.Start.IsZero() {
		return ErrMissingStart
	}
	if _, err := ScheduleFor(r.Type); err != nil {
		return err
	}
	if r.Type.IsRecurring() && r.End != nil && Day(*r.End).Before(Day(r.Start)) {
		return ErrEndBeforeStart
	}
	return nil
}

// Active reports whether the rule can still produce an occurrence on or after day.
func (r Rule) Active(day time.Time) bool {
	if !r.Type.IsRecurring() {
		return !Day(r.Start).Before(Day(day))
	}
	return r.End == nil || !Day(*r.End).Before(Day(day))
}

// UTC returns the rule with its bounds moved to UTC. Dates are stored as UTC
// midnight; drivers that read them back in the local zone would otherwise
// shift them to the previous day west of Greenwich.
func (r Rule) UTC() Rule {
	r.Start = r.Start.UTC()
	if r.End != nil {
		end := r.End.UTC()
		r.End = &end
	}
	return r
}

// Day returns the calendar date of t, taken in t's own location, as UTC
// midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days of month in year.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Clamp returns year-month-day, moving day back to the last day of the month
// when the month is shorter.
func Clamp(year int, month time.Month, day int) time.Time {
	if n := DaysIn(year, month); day > n {
		day = n
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
