package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hms-report-api/internal/dto"
	"github.com/noah-isme/hms-report-api/internal/models"
	appErrors "github.com/noah-isme/hms-report-api/pkg/errors"
)

type scheduleStoreStub struct {
	schedules map[string]*models.ReportSchedule
	due       []models.ReportSchedule
	marked    map[string]time.Time
}

func newScheduleStoreStub() *scheduleStoreStub {
	return &scheduleStoreStub{
		schedules: map[string]*models.ReportSchedule{},
		marked:    map[string]time.Time{},
	}
}

func (s *scheduleStoreStub) Create(ctx context.Context, schedule *models.ReportSchedule) error {
	if schedule.ID == "" {
		schedule.ID = "sched-" + schedule.TemplateID
	}
	s.schedules[schedule.ID] = schedule
	return nil
}

func (s *scheduleStoreStub) Update(ctx context.Context, schedule *models.ReportSchedule) error {
	if _, ok := s.schedules[schedule.ID]; !ok {
		return appErrors.ErrNotFound
	}
	s.schedules[schedule.ID] = schedule
	return nil
}

func (s *scheduleStoreStub) GetByID(ctx context.Context, tenantID, id string) (*models.ReportSchedule, error) {
	schedule, ok := s.schedules[id]
	if !ok || schedule.TenantID != tenantID {
		return nil, appErrors.ErrNotFound
	}
	return schedule, nil
}

func (s *scheduleStoreStub) List(ctx context.Context, tenantID string) ([]models.ReportSchedule, error) {
	out := make([]models.ReportSchedule, 0, len(s.schedules))
	for _, schedule := range s.schedules {
		if schedule.TenantID == tenantID {
			out = append(out, *schedule)
		}
	}
	return out, nil
}

func (s *scheduleStoreStub) Delete(ctx context.Context, tenantID, id string) error {
	if _, ok := s.schedules[id]; !ok {
		return appErrors.ErrNotFound
	}
	delete(s.schedules, id)
	return nil
}

func (s *scheduleStoreStub) ListDue(ctx context.Context, asOf time.Time, limit int) ([]models.ReportSchedule, error) {
	return s.due, nil
}

func (s *scheduleStoreStub) MarkRun(ctx context.Context, id string, lastRunAt, nextRunAt time.Time) error {
	s.marked[id] = nextRunAt
	return nil
}

type generatorStub struct {
	requests []dto.GenerateReportRequest
	err      error
}

func (g *generatorStub) Generate(ctx context.Context, tenantID, userID string, req dto.GenerateReportRequest) (*dto.GenerateReportResponse, error) {
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &dto.GenerateReportResponse{ReportID: "rep-1", RowCount: 1}, nil
}

func weeklyRequest() dto.ScheduleRequest {
	dow := 1
	return dto.ScheduleRequest{
		TemplateID: "tpl-1",
		Frequency:  models.FrequencyWeekly,
		DayOfWeek:  &dow,
		Time:       "09:00",
		Recipients: []string{"ops@hospital.test"},
		Format:     models.ReportFormatExcel,
	}
}

func newTestScheduleService(store *scheduleStoreStub, generator *generatorStub) *ScheduleService {
	templates := &templateReaderStub{template: revenueTemplate()}
	return NewScheduleService(store, templates, generator, nil, nil)
}

func TestScheduleServiceCreateComputesNextRun(t *testing.T) {
	store := newScheduleStoreStub()
	svc := newTestScheduleService(store, &generatorStub{})

	created, err := svc.Create(context.Background(), "tenant-1", "user-1", weeklyRequest())
	require.NoError(t, err)
	require.True(t, created.IsActive)
	require.True(t, created.NextRunAt.After(time.Now().UTC()))
	require.Equal(t, time.Monday, created.NextRunAt.Weekday())
}

func TestScheduleServiceCreateValidatesCoupling(t *testing.T) {
	svc := newTestScheduleService(newScheduleStoreStub(), &generatorStub{})

	req := weeklyRequest()
	req.DayOfWeek = nil
	_, err := svc.Create(context.Background(), "tenant-1", "user-1", req)
	require.Error(t, err)

	req = weeklyRequest()
	req.Frequency = models.FrequencyMonthly
	req.DayOfMonth = nil
	_, err = svc.Create(context.Background(), "tenant-1", "user-1", req)
	require.Error(t, err)
}

func TestScheduleServiceCreateValidatesRecipients(t *testing.T) {
	svc := newTestScheduleService(newScheduleStoreStub(), &generatorStub{})

	req := weeklyRequest()
	req.Recipients = nil
	_, err := svc.Create(context.Background(), "tenant-1", "user-1", req)
	require.Error(t, err)

	req = weeklyRequest()
	req.Recipients = []string{"not-an-email"}
	_, err = svc.Create(context.Background(), "tenant-1", "user-1", req)
	require.Error(t, err)
}

func TestScheduleServiceCreateRejectsUnknownTemplate(t *testing.T) {
	store := newScheduleStoreStub()
	templates := &templateReaderStub{err: appErrors.ErrTemplateNotFound}
	svc := NewScheduleService(store, templates, &generatorStub{}, nil, nil)

	_, err := svc.Create(context.Background(), "tenant-1", "user-1", weeklyRequest())
	require.ErrorIs(t, err, appErrors.ErrTemplateNotFound)
}

func TestScheduleServiceUpdateRecomputesNextRun(t *testing.T) {
	store := newScheduleStoreStub()
	svc := newTestScheduleService(store, &generatorStub{})

	created, err := svc.Create(context.Background(), "tenant-1", "user-1", weeklyRequest())
	require.NoError(t, err)

	req := weeklyRequest()
	req.Frequency = models.FrequencyDaily
	req.DayOfWeek = nil
	req.Time = "06:00"
	updated, err := svc.Update(context.Background(), "tenant-1", created.ID, req)
	require.NoError(t, err)
	require.Equal(t, models.FrequencyDaily, updated.Frequency)
	require.Equal(t, "06:00", updated.TimeOfDay)
	require.True(t, updated.NextRunAt.After(time.Now().UTC()))
}

func TestScheduleServiceRunDueFiresAndMarks(t *testing.T) {
	store := newScheduleStoreStub()
	generator := &generatorStub{}
	svc := newTestScheduleService(store, generator)

	asOf := time.Date(2026, time.January, 15, 9, 0, 30, 0, time.UTC)
	store.due = []models.ReportSchedule{
		{
			ID:         "sched-1",
			TemplateID: "tpl-1",
			TenantID:   "tenant-1",
			Frequency:  models.FrequencyDaily,
			TimeOfDay:  "09:00",
			Format:     models.ReportFormatCSV,
			Filters:    models.ReportParameters{"status": "paid"},
			NextRunAt:  asOf.Add(-time.Minute),
			IsActive:   true,
			CreatedBy:  "user-1",
		},
	}

	fired, err := svc.RunDue(context.Background(), asOf)
	require.NoError(t, err)
	require.Equal(t, 1, fired)
	require.Len(t, generator.requests, 1)
	require.Equal(t, "paid", generator.requests[0].Filters["status"])

	next, ok := store.marked["sched-1"]
	require.True(t, ok)
	require.Equal(t, time.Date(2026, time.January, 16, 9, 0, 0, 0, time.UTC), next)
}

func TestScheduleServiceRunDueMarksEvenOnFailure(t *testing.T) {
	store := newScheduleStoreStub()
	generator := &generatorStub{err: appErrors.ErrInternal}
	svc := newTestScheduleService(store, generator)

	asOf := time.Now().UTC()
	store.due = []models.ReportSchedule{
		{ID: "sched-1", TemplateID: "tpl-1", TenantID: "tenant-1", Frequency: models.FrequencyDaily, TimeOfDay: "00:00", IsActive: true},
	}

	fired, err := svc.RunDue(context.Background(), asOf)
	require.NoError(t, err)
	require.Equal(t, 0, fired)
	_, marked := store.marked["sched-1"]
	require.True(t, marked)
}
