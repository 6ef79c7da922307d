// Package schedule computes recurrence times for report schedules. The
// calculator is a pure function: the current time is always passed in and no
// state is read or written.
package schedule

import (
	"fmt"
	"time"

	"github.com/noah-isme/hms-report-api/internal/models"
)

// NextRunAt returns the next execution instant strictly after now for the
// given recurrence. dayOfWeek is required for weekly (0=Sunday..6=Saturday),
// dayOfMonth for monthly (1..31, clamped to the target month's length).
// A weekly schedule whose target weekday is today fires later today when the
// scheduled time has not yet passed, mirroring the daily semantics.
func NextRunAt(freq models.ScheduleFrequency, dayOfWeek, dayOfMonth *int, timeOfDay string, now time.Time) (time.Time, error) {
	hour, minute, err := parseTimeOfDay(timeOfDay)
	if err != nil {
		return time.Time{}, err
	}

	switch freq {
	case models.FrequencyDaily:
		candidate := at(now, now.Day(), hour, minute)
		if candidate.After(now) {
			return candidate, nil
		}
		return candidate.AddDate(0, 0, 1), nil

	case models.FrequencyWeekly:
		if dayOfWeek == nil || *dayOfWeek < 0 || *dayOfWeek > 6 {
			return time.Time{}, fmt.Errorf("weekly schedule requires dayOfWeek between 0 and 6")
		}
		delta := (*dayOfWeek - int(now.Weekday()) + 7) % 7
		candidate := at(now, now.Day()+delta, hour, minute)
		if !candidate.After(now) {
			candidate = candidate.AddDate(0, 0, 7)
		}
		return candidate, nil

	case models.FrequencyMonthly:
		if dayOfMonth == nil || *dayOfMonth < 1 || *dayOfMonth > 31 {
			return time.Time{}, fmt.Errorf("monthly schedule requires dayOfMonth between 1 and 31")
		}
		candidate := at(now, clampDay(now.Year(), now.Month(), *dayOfMonth), hour, minute)
		if candidate.After(now) {
			return candidate, nil
		}
		// First of the next month, so a short current month cannot skip ahead
		// through date normalization.
		next := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
		return at(next, clampDay(next.Year(), next.Month(), *dayOfMonth), hour, minute), nil

	default:
		return time.Time{}, fmt.Errorf("unknown frequency %q", freq)
	}
}

func at(ref time.Time, day, hour, minute int) time.Time {
	return time.Date(ref.Year(), ref.Month(), day, hour, minute, 0, 0, ref.Location())
}

func clampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

func parseTimeOfDay(raw string) (int, int, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(raw, "%d:%d", &hour, &minute); err != nil {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", raw)
	}
	return hour, minute, nil
}
