package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hms-report-api/internal/models"
)

func intPtr(v int) *int { return &v }

func TestNextRunAtDaily(t *testing.T) {
	// Time already passed today: fires tomorrow.
	now := time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC)
	next, err := NextRunAt(models.FrequencyDaily, nil, nil, "09:00", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.January, 16, 9, 0, 0, 0, time.UTC), next)

	// Time still ahead today: fires today.
	now = time.Date(2026, time.January, 15, 8, 0, 0, 0, time.UTC)
	next, err = NextRunAt(models.FrequencyDaily, nil, nil, "09:00", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC), next)
}

func TestNextRunAtDailyIsStrictlyAfterNow(t *testing.T) {
	now := time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC)
	next, err := NextRunAt(models.FrequencyDaily, nil, nil, "09:00", now)
	require.NoError(t, err)
	require.True(t, next.After(now))
	require.Equal(t, time.Date(2026, time.January, 16, 9, 0, 0, 0, time.UTC), next)
}

func TestNextRunAtWeekly(t *testing.T) {
	// 2026-01-15 is a Thursday.
	now := time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC)

	// Target Monday: next Monday.
	next, err := NextRunAt(models.FrequencyWeekly, intPtr(1), nil, "09:00", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.January, 19, 9, 0, 0, 0, time.UTC), next)
	require.Equal(t, time.Monday, next.Weekday())
}

func TestNextRunAtWeeklySameDayFiresLaterToday(t *testing.T) {
	// Thursday 08:00, target Thursday 09:00: fires today, not in a week.
	now := time.Date(2026, time.January, 15, 8, 0, 0, 0, time.UTC)
	next, err := NextRunAt(models.FrequencyWeekly, intPtr(4), nil, "09:00", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.January, 15, 9, 0, 0, 0, time.UTC), next)
}

func TestNextRunAtWeeklySameDayTimePassed(t *testing.T) {
	// Thursday 10:00, target Thursday 09:00: next Thursday.
	now := time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC)
	next, err := NextRunAt(models.FrequencyWeekly, intPtr(4), nil, "09:00", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.January, 22, 9, 0, 0, 0, time.UTC), next)
}

func TestNextRunAtWeeklyRequiresDayOfWeek(t *testing.T) {
	now := time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC)
	_, err := NextRunAt(models.FrequencyWeekly, nil, nil, "09:00", now)
	require.Error(t, err)
	_, err = NextRunAt(models.FrequencyWeekly, intPtr(7), nil, "09:00", now)
	require.Error(t, err)
}

func TestNextRunAtMonthly(t *testing.T) {
	now := time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC)
	next, err := NextRunAt(models.FrequencyMonthly, nil, intPtr(1), "06:00", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.February, 1, 6, 0, 0, 0, time.UTC), next)

	// Later this month still ahead.
	next, err = NextRunAt(models.FrequencyMonthly, nil, intPtr(20), "06:00", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.January, 20, 6, 0, 0, 0, time.UTC), next)
}

func TestNextRunAtMonthlyClampsShortMonths(t *testing.T) {
	// Day 31 in a 28-day February clamps to the 28th.
	now := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)
	next, err := NextRunAt(models.FrequencyMonthly, nil, intPtr(31), "09:00", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.February, 28, 9, 0, 0, 0, time.UTC), next)

	// After the clamped day has passed, the next month uses its own length.
	now = time.Date(2026, time.March, 31, 10, 0, 0, 0, time.UTC)
	next, err = NextRunAt(models.FrequencyMonthly, nil, intPtr(31), "09:00", now)
	require.NoError(t, err)
	require.Equal(t, time.Date(2026, time.April, 30, 9, 0, 0, 0, time.UTC), next)
}

func TestNextRunAtIsDeterministic(t *testing.T) {
	now := time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC)
	first, err := NextRunAt(models.FrequencyDaily, nil, nil, "23:59", now)
	require.NoError(t, err)
	second, err := NextRunAt(models.FrequencyDaily, nil, nil, "23:59", now)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestNextRunAtRejectsBadTimeOfDay(t *testing.T) {
	now := time.Date(2026, time.January, 15, 10, 0, 0, 0, time.UTC)
	for _, raw := range []string{"", "9am", "24:00", "10:60"} {
		_, err := NextRunAt(models.FrequencyDaily, nil, nil, raw, now)
		require.Error(t, err, raw)
	}
}
