package dto

import "github.com/noah-isme/hms-report-api/internal/models"

// ScheduleRequest captures schedule create/update payloads. DayOfWeek is
// required iff frequency is weekly, DayOfMonth iff monthly; that coupling is
// validated in the service, not by tags.
type ScheduleRequest struct {
	TemplateID string                   `json:"templateId" validate:"required"`
	Frequency  models.ScheduleFrequency `json:"frequency" validate:"required"`
	DayOfWeek  *int                     `json:"dayOfWeek" validate:"omitempty,min=0,max=6"`
	DayOfMonth *int                     `json:"dayOfMonth" validate:"omitempty,min=1,max=31"`
	Time       string                   `json:"time" validate:"required"`
	Recipients []string                 `json:"recipients" validate:"required,min=1,dive,email"`
	Format     models.ReportFormat      `json:"format" validate:"required"`
	Filters    map[string]interface{}   `json:"filters"`
	IsActive   *bool                    `json:"isActive"`
}
