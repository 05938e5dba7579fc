package recurrence

import "time"

// ProjectOccurrences returns, in ascending order, the dates on which rule
// occurs inside [windowStart, windowEnd]. An occurrence is kept only when it
// is on or after the rule's start, inside the window, and on or before the
// rule's end date when one is set (end dates only bound recurring rules).
// An inverted window or an unknown type yields no occurrence.
func ProjectOccurrences(rule Rule, windowStart, windowEnd time.Time) []time.Time {
	from, to := Day(windowStart), Day(windowEnd)
	start := Day(rule.Start)
	if rule.Start.IsZero() || to.Before(from) {
		return nil
	}
	if start.After(from) {
		from = start
	}
	if rule.End != nil && rule.Type.IsRecurring() {
		if end := Day(*rule.End); end.Before(to) {
			to = end
		}
	}
	if to.Before(from) {
		return nil
	}
	sched, err := ScheduleFor(rule.Type)
	if err != nil {
		return nil
	}
	candidates := sched.Candidates(rule, from, to)
	out := candidates[:0]
	for _, d := range candidates {
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// Count is len(ProjectOccurrences(...)).
func Count(rule Rule, windowStart, windowEnd time.Time) int {
	return len(ProjectOccurrences(rule, windowStart, windowEnd))
}

// Next returns the first occurrence strictly after day.
func Next(rule Rule, day time.Time) (time.Time, bool) {
	from := Day(day).AddDate(0, 0, 1)
	if start := Day(rule.Start); start.After(from) {
		from = start
	}
	// Any active rule occurs at least once in a year-long window.
	occ := ProjectOccurrences(rule, from, from.AddDate(1, 0, 0))
	if len(occ) == 0 {
		return time.Time{}, false
	}
	return occ[0], true
}
