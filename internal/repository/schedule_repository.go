package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hms-report-api/internal/models"
	appErrors "github.com/noah-isme/hms-report-api/pkg/errors"
)

const scheduleColumns = `id, template_id, tenant_id, frequency, day_of_week, day_of_month, time_of_day, recipients, format, filters, last_run_at, next_run_at, is_active, created_by, created_at, updated_at`

// ScheduleRepository persists report schedules.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// Create inserts a new schedule row with generated defaults.
func (r *ScheduleRepository) Create(ctx context.Context, schedule *models.ReportSchedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now
	const query = `INSERT INTO report_schedules (id, template_id, tenant_id, frequency, day_of_week, day_of_month, time_of_day, recipients, format, filters, last_run_at, next_run_at, is_active, created_by, created_at, updated_at)
VALUES (:id, :template_id, :tenant_id, :frequency, :day_of_week, :day_of_month, :time_of_day, :recipients, :format, :filters, :last_run_at, :next_run_at, :is_active, :created_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, schedule); err != nil {
		return fmt.Errorf("create report schedule: %w", err)
	}
	return nil
}

// Update persists the mutable fields of a schedule.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.ReportSchedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	const query = `UPDATE report_schedules SET frequency = :frequency, day_of_week = :day_of_week, day_of_month = :day_of_month, time_of_day = :time_of_day, recipients = :recipients, format = :format, filters = :filters, next_run_at = :next_run_at, is_active = :is_active, updated_at = :updated_at
WHERE id = :id AND tenant_id = :tenant_id`
	result, err := r.db.NamedExecContext(ctx, query, schedule)
	if err != nil {
		return fmt.Errorf("update report schedule: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return appErrors.ErrNotFound
	}
	return nil
}

// GetByID returns a tenant-scoped schedule row.
func (r *ScheduleRepository) GetByID(ctx context.Context, tenantID, id string) (*models.ReportSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM report_schedules WHERE id = $1 AND tenant_id = $2`, scheduleColumns)
	var schedule models.ReportSchedule
	if err := r.db.GetContext(ctx, &schedule, query, id, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("get report schedule: %w", err)
	}
	return &schedule, nil
}

// List returns the tenant's schedules.
func (r *ScheduleRepository) List(ctx context.Context, tenantID string) ([]models.ReportSchedule, error) {
	query := fmt.Sprintf(`SELECT %s FROM report_schedules WHERE tenant_id = $1 ORDER BY created_at DESC`, scheduleColumns)
	var schedules []models.ReportSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, tenantID); err != nil {
		return nil, fmt.Errorf("list report schedules: %w", err)
	}
	return schedules, nil
}

// Delete removes a tenant-scoped schedule row.
func (r *ScheduleRepository) Delete(ctx context.Context, tenantID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM report_schedules WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("delete report schedule: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return appErrors.ErrNotFound
	}
	return nil
}

// ListDue retrieves active schedules whose next run is at or before asOf.
func (r *ScheduleRepository) ListDue(ctx context.Context, asOf time.Time, limit int) ([]models.ReportSchedule, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM report_schedules WHERE is_active AND next_run_at <= $1 ORDER BY next_run_at ASC LIMIT $2`, scheduleColumns)
	var schedules []models.ReportSchedule
	if err := r.db.SelectContext(ctx, &schedules, query, asOf, limit); err != nil {
		return nil, fmt.Errorf("list due schedules: %w", err)
	}
	return schedules, nil
}

// MarkRun records a fired execution and the recomputed next occurrence.
func (r *ScheduleRepository) MarkRun(ctx context.Context, id string, lastRunAt, nextRunAt time.Time) error {
	const query = `UPDATE report_schedules SET last_run_at = $1, next_run_at = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, lastRunAt, nextRunAt, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark schedule run: %w", err)
	}
	return nil
}
