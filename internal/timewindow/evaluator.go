// Package timewindow implements the "F" component of the enforcement data
// plane: day-of-week and time-of-day access windows, including windows that
// wrap midnight. Multiple restrictions on the same rule combine by
// disjunction — any one of them permitting "now" is enough.
package timewindow

import "time"

// Result is the outcome of evaluating a rule's time restrictions.
type Result int

const (
	Allowed Result = iota
	Restricted
)

func (r Result) String() string {
	if r == Allowed {
		return "allowed"
	}
	return "time_restricted"
}

// Restriction is the runtime view of one TimeRestriction row. StartTime and
// EndTime are seconds since midnight UTC; nil means "no bound" (permissive).
// DaysOfWeek uses 1=Monday .. 7=Sunday; empty means "every day".
//
// Timezone is carried for forward compatibility but unused in v1 — the
// evaluator always compares against UTC (spec.md §9's acknowledged Open
// Question).
type Restriction struct {
	StartTime  *int
	EndTime    *int
	DaysOfWeek []int
	Timezone   string
	Enabled    bool
}

// Evaluate returns Allowed iff the list holds no enabled restriction, or at
// least one enabled restriction permits now.
func Evaluate(restrictions []Restriction, now time.Time) Result {
	now = now.UTC()

	var anyEnabled bool
	for _, r := range restrictions {
		if !r.Enabled {
			continue
		}
		anyEnabled = true
		if permits(r, now) {
			return Allowed
		}
	}
	if !anyEnabled {
		return Allowed
	}
	return Restricted
}

func permits(r Restriction, now time.Time) bool {
	return dayPermits(r.DaysOfWeek, now) && timePermits(r.StartTime, r.EndTime, now)
}

func dayPermits(days []int, now time.Time) bool {
	if len(days) == 0 {
		return true
	}
	today := isoWeekday(now)
	for _, d := range days {
		if d == today {
			return true
		}
	}
	return false
}

// isoWeekday returns 1=Monday .. 7=Sunday, matching spec.md's convention
// (time.Weekday uses 0=Sunday, which would silently misclassify Sunday).
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func secondsSinceMidnight(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

func timePermits(start, end *int, now time.Time) bool {
	if start == nil || end == nil {
		return true
	}
	cur := secondsSinceMidnight(now)
	s, e := *start, *end
	switch {
	case s == e:
		return true
	case s < e:
		return cur >= s && cur <= e
	default: // wraps midnight
		return cur >= s || cur <= e
	}
}
