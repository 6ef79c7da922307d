package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hms-report-api/internal/dto"
	"github.com/noah-isme/hms-report-api/internal/models"
	"github.com/noah-isme/hms-report-api/internal/schedule"
	appErrors "github.com/noah-isme/hms-report-api/pkg/errors"
)

// ScheduleStore persists report schedules.
type ScheduleStore interface {
	Create(ctx context.Context, schedule *models.ReportSchedule) error
	Update(ctx context.Context, schedule *models.ReportSchedule) error
	GetByID(ctx context.Context, tenantID, id string) (*models.ReportSchedule, error)
	List(ctx context.Context, tenantID string) ([]models.ReportSchedule, error)
	Delete(ctx context.Context, tenantID, id string) error
	ListDue(ctx context.Context, asOf time.Time, limit int) ([]models.ReportSchedule, error)
	MarkRun(ctx context.Context, id string, lastRunAt, nextRunAt time.Time) error
}

// ReportGenerator is the slice of ReportService the schedule runner needs.
type ReportGenerator interface {
	Generate(ctx context.Context, tenantID, userID string, req dto.GenerateReportRequest) (*dto.GenerateReportResponse, error)
}

// ScheduleService manages recurrence rules and fires due executions.
type ScheduleService struct {
	schedules ScheduleStore
	templates TemplateReader
	generator ReportGenerator
	metrics   *Metrics
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService constructs the service.
func NewScheduleService(schedules ScheduleStore, templates TemplateReader, generator ReportGenerator, metrics *Metrics, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		schedules: schedules,
		templates: templates,
		generator: generator,
		metrics:   metrics,
		validate:  validator.New(),
		logger:    logger,
	}
}

// Create validates and persists a new schedule with its first occurrence
// precomputed.
func (s *ScheduleService) Create(ctx context.Context, tenantID, userID string, req dto.ScheduleRequest) (*models.ReportSchedule, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := s.templates.GetByID(ctx, tenantID, req.TemplateID); err != nil {
		return nil, err
	}

	nextRun, err := schedule.NextRunAt(req.Frequency, req.DayOfWeek, req.DayOfMonth, req.Time, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	sched := &models.ReportSchedule{
		TemplateID: req.TemplateID,
		TenantID:   tenantID,
		Frequency:  req.Frequency,
		DayOfWeek:  req.DayOfWeek,
		DayOfMonth: req.DayOfMonth,
		TimeOfDay:  req.Time,
		Recipients: models.StringList(req.Recipients),
		Format:     req.Format,
		Filters:    models.ReportParameters(req.Filters),
		NextRunAt:  nextRun,
		IsActive:   active,
		CreatedBy:  userID,
	}
	if err := s.schedules.Create(ctx, sched); err != nil {
		return nil, err
	}
	return sched, nil
}

// Update replaces the recurrence of an existing schedule and recomputes the
// next occurrence.
func (s *ScheduleService) Update(ctx context.Context, tenantID, id string, req dto.ScheduleRequest) (*models.ReportSchedule, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}
	sched, err := s.schedules.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	nextRun, err := schedule.NextRunAt(req.Frequency, req.DayOfWeek, req.DayOfMonth, req.Time, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	sched.Frequency = req.Frequency
	sched.DayOfWeek = req.DayOfWeek
	sched.DayOfMonth = req.DayOfMonth
	sched.TimeOfDay = req.Time
	sched.Recipients = models.StringList(req.Recipients)
	sched.Format = req.Format
	sched.Filters = models.ReportParameters(req.Filters)
	sched.NextRunAt = nextRun
	if req.IsActive != nil {
		sched.IsActive = *req.IsActive
	}

	if err := s.schedules.Update(ctx, sched); err != nil {
		return nil, err
	}
	return sched, nil
}

// GetByID returns a tenant-scoped schedule.
func (s *ScheduleService) GetByID(ctx context.Context, tenantID, id string) (*models.ReportSchedule, error) {
	return s.schedules.GetByID(ctx, tenantID, id)
}

// List returns the tenant's schedules.
func (s *ScheduleService) List(ctx context.Context, tenantID string) ([]models.ReportSchedule, error) {
	return s.schedules.List(ctx, tenantID)
}

// Delete removes a schedule.
func (s *ScheduleService) Delete(ctx context.Context, tenantID, id string) error {
	return s.schedules.Delete(ctx, tenantID, id)
}

// RunDue fires every schedule due at asOf. Each schedule is marked run with a
// freshly computed next occurrence regardless of whether the generation itself
// succeeded, so one failing template cannot wedge the queue.
func (s *ScheduleService) RunDue(ctx context.Context, asOf time.Time) (int, error) {
	due, err := s.schedules.ListDue(ctx, asOf, 50)
	if err != nil {
		return 0, err
	}

	fired := 0
	for _, sched := range due {
		nextRun, err := schedule.NextRunAt(sched.Frequency, sched.DayOfWeek, sched.DayOfMonth, sched.TimeOfDay, asOf)
		if err != nil {
			s.logger.Error("schedule has an invalid recurrence",
				zap.String("schedule_id", sched.ID), zap.Error(err))
			continue
		}

		req := dto.GenerateReportRequest{
			TemplateID: sched.TemplateID,
			Filters:    map[string]interface{}(sched.Filters),
			Format:     sched.Format,
		}
		if _, err := s.generator.Generate(ctx, sched.TenantID, sched.CreatedBy, req); err != nil {
			s.logger.Error("scheduled report generation failed",
				zap.String("schedule_id", sched.ID),
				zap.String("template_id", sched.TemplateID),
				zap.Error(err))
		} else {
			fired++
			s.metrics.ScheduleFired()
		}

		if err := s.schedules.MarkRun(ctx, sched.ID, asOf, nextRun); err != nil {
			s.logger.Error("failed to mark schedule run",
				zap.String("schedule_id", sched.ID), zap.Error(err))
		}
	}
	return fired, nil
}

func (s *ScheduleService) validateRequest(req dto.ScheduleRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	if !req.Frequency.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported frequency %q", req.Frequency))
	}
	if !req.Format.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", req.Format))
	}
	switch req.Frequency {
	case models.FrequencyWeekly:
		if req.DayOfWeek == nil {
			return appErrors.Clone(appErrors.ErrValidation, "weekly schedules require dayOfWeek")
		}
	case models.FrequencyMonthly:
		if req.DayOfMonth == nil {
			return appErrors.Clone(appErrors.ErrValidation, "monthly schedules require dayOfMonth")
		}
	}
	return nil
}
