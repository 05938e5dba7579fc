package recurrence

import (
	"fmt"
	"sync"
	"time"
)

// Schedule enumerates the candidate dates of a rule between from and to
// (inclusive, already normalized, from <= to). Bounds relative to the rule's
// own start and end are applied by ProjectOccurrences.
type Schedule interface {
	Candidates(rule Rule, from, to time.Time) []time.Time
}

type onceSchedule struct{}

func (onceSchedule) Candidates(rule Rule, from, to time.Time) []time.Time {
	d := Day(rule.Start)
	if d.Before(from) || d.After(to) {
		return nil
	}
	return []time.Time{d}
}

// monthlySchedule yields one date per month touched by [from, to], on the
// start's day of month clamped to the month length.
type monthlySchedule struct{}

func (monthlySchedule) Candidates(rule Rule, from, to time.Time) []time.Time {
	day := Day(rule.Start).Day()
	var out []time.Time
	y, m := from.Year(), from.Month()
	for {
		first := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
		if first.After(to) {
			break
		}
		out = append(out, Clamp(y, m, day))
		m++
		if m > time.December {
			m = time.January
			y++
		}
	}
	return out
}

// yearlySchedule yields one date per year touched by [from, to], on the
// start's month and day; 29 February clamps to the 28th on common years.
type yearlySchedule struct{}

func (yearlySchedule) Candidates(rule Rule, from, to time.Time) []time.Time {
	start := Day(rule.Start)
	var out []time.Time
	for y := from.Year(); y <= to.Year(); y++ {
		out = append(out, Clamp(y, start.Month(), start.Day()))
	}
	return out
}

var (
	schedulesMu sync.RWMutex
	schedules   = map[Type]Schedule{
		None:    onceSchedule{},
		Monthly: monthlySchedule{},
		Yearly:  yearlySchedule{},
	}
)

// ScheduleFor returns the schedule registered for t.
func ScheduleFor(t Type) (Schedule, error) {
	schedulesMu.RLock()
	defer schedulesMu.RUnlock()
	s, ok := schedules[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, string(t))
	}
	return s, nil
}

// Register installs or replaces the schedule for t.
func Register(t Type, s Schedule) {
	schedulesMu.Lock()
	defer schedulesMu.Unlock()
	schedules[t] = s
}

// Types lists the registered recurrence types.
func Types() []Type {
	schedulesMu.RLock()
	defer schedulesMu.RUnlock()
	out := make([]Type, 0, len(schedules))
	for t := range schedules {
		out = append(out, t)
	}
	return out
}
