package models

import "time"

// ScheduleFrequency enumerates recurrence frequencies.
type ScheduleFrequency string

const (
	FrequencyDaily   ScheduleFrequency = "daily"
	FrequencyWeekly  ScheduleFrequency = "weekly"
	FrequencyMonthly ScheduleFrequency = "monthly"
)

// Valid reports whether the frequency is supported.
func (f ScheduleFrequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	default:
		return false
	}
}

// ReportSchedule is a recurrence rule that re-executes a template.
// DayOfWeek is required iff weekly (0=Sunday..6=Saturday), DayOfMonth iff
// monthly. TimeOfDay is "HH:MM" in UTC.
type ReportSchedule struct {
	ID         string            `db:"id" json:"id"`
	TemplateID string            `db:"template_id" json:"templateId"`
	TenantID   string            `db:"tenant_id" json:"tenantId"`
	Frequency  ScheduleFrequency `db:"frequency" json:"frequency"`
	DayOfWeek  *int              `db:"day_of_week" json:"dayOfWeek,omitempty"`
	DayOfMonth *int              `db:"day_of_month" json:"dayOfMonth,omitempty"`
	TimeOfDay  string            `db:"time_of_day" json:"time"`
	Recipients StringList        `db:"recipients" json:"recipients"`
	Format     ReportFormat      `db:"format" json:"format"`
	Filters    ReportParameters  `db:"filters" json:"filters,omitempty"`
	LastRunAt  *time.Time        `db:"last_run_at" json:"lastRunAt,omitempty"`
	NextRunAt  time.Time         `db:"next_run_at" json:"nextRunAt"`
	IsActive   bool              `db:"is_active" json:"isActive"`
	CreatedBy  string            `db:"created_by" json:"createdBy"`
	CreatedAt  time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time         `db:"updated_at" json:"updatedAt"`
}
