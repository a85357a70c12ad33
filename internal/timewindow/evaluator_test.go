package timewindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func intp(v int) *int { return &v }

func TestEvaluate_EmptyListAllows(t *testing.T) {
	assert.Equal(t, Allowed, Evaluate(nil, time.Now()))
}

func TestEvaluate_WrapAroundMidnight(t *testing.T) {
	r := []Restriction{{
		StartTime:  intp(22 * 3600),
		EndTime:    intp(6 * 3600),
		DaysOfWeek: []int{1, 2, 3, 4, 5, 6, 7},
		Enabled:    true,
	}}

	at2330 := time.Date(2026, 7, 30, 23, 30, 0, 0, time.UTC) // Thursday
	assert.Equal(t, Allowed, Evaluate(r, at2330))

	at0500 := time.Date(2026, 7, 31, 5, 0, 0, 0, time.UTC)
	assert.Equal(t, Allowed, Evaluate(r, at0500))

	at0700 := time.Date(2026, 7, 31, 7, 0, 0, 0, time.UTC)
	assert.Equal(t, Restricted, Evaluate(r, at0700))
}

func TestEvaluate_DayOfWeekFilter(t *testing.T) {
	r := []Restriction{{DaysOfWeek: []int{6, 7}, Enabled: true}} // weekends only

	saturday := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, Allowed, Evaluate(r, saturday))

	monday := time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, Restricted, Evaluate(r, monday))
}

func TestEvaluate_DisjunctionAcrossMultipleRestrictions(t *testing.T) {
	r := []Restriction{
		{DaysOfWeek: []int{1, 2, 3, 4, 5}, StartTime: intp(9 * 3600), EndTime: intp(17 * 3600), Enabled: true},
		{DaysOfWeek: []int{6, 7}, StartTime: intp(10 * 3600), EndTime: intp(14 * 3600), Enabled: true},
	}

	weekdayMorning := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC) // Monday
	assert.Equal(t, Allowed, Evaluate(r, weekdayMorning))

	weekendNoon := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC) // Saturday
	assert.Equal(t, Allowed, Evaluate(r, weekendNoon))

	weekendEvening := time.Date(2026, 8, 1, 20, 0, 0, 0, time.UTC)
	assert.Equal(t, Restricted, Evaluate(r, weekendEvening))
}

func TestEvaluate_DisabledRestrictionIgnored(t *testing.T) {
	r := []Restriction{{DaysOfWeek: []int{1}, Enabled: false}}
	tuesday := time.Date(2026, 8, 4, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, Allowed, Evaluate(r, tuesday))
}

func TestEvaluate_StartEqualsEndIsPermissive(t *testing.T) {
	r := []Restriction{{StartTime: intp(100), EndTime: intp(100), Enabled: true}}
	assert.Equal(t, Allowed, Evaluate(r, time.Now()))
}

func TestEvaluate_MissingBoundsArePermissive(t *testing.T) {
	r := []Restriction{{DaysOfWeek: []int{1}, Enabled: true}}
	monday := time.Date(2026, 8, 3, 3, 0, 0, 0, time.UTC)
	assert.Equal(t, Allowed, Evaluate(r, monday))
}
