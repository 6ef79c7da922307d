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

const generatedReportColumns = `id, template_id, tenant_id, parameters, format, file_path, row_count, generated_by, generated_at, expires_at`

// GeneratedReportRepository persists generated-report metadata.
type GeneratedReportRepository struct {
	db *sqlx.DB
}

// NewGeneratedReportRepository constructs the repository.
func NewGeneratedReportRepository(db *sqlx.DB) *GeneratedReportRepository {
	return &GeneratedReportRepository{db: db}
}

// Create inserts a new generated-report row with generated defaults.
func (r *GeneratedReportRepository) Create(ctx context.Context, report *models.GeneratedReport) error {
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.GeneratedAt.IsZero() {
		report.GeneratedAt = time.Now().UTC()
	}
	if report.ExpiresAt.IsZero() {
		report.ExpiresAt = report.GeneratedAt.Add(models.DefaultArtifactTTL)
	}
	const query = `INSERT INTO generated_reports (id, template_id, tenant_id, parameters, format, file_path, row_count, generated_by, generated_at, expires_at)
VALUES (:id, :template_id, :tenant_id, :parameters, :format, :file_path, :row_count, :generated_by, :generated_at, :expires_at)`
	if _, err := r.db.NamedExecContext(ctx, query, report); err != nil {
		return fmt.Errorf("create generated report: %w", err)
	}
	return nil
}

// GetByID returns a tenant-scoped generated-report row.
func (r *GeneratedReportRepository) GetByID(ctx context.Context, tenantID, id string) (*models.GeneratedReport, error) {
	query := fmt.Sprintf(`SELECT %s FROM generated_reports WHERE id = $1 AND tenant_id = $2`, generatedReportColumns)
	var report models.GeneratedReport
	if err := r.db.GetContext(ctx, &report, query, id, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("get generated report: %w", err)
	}
	return &report, nil
}

// List returns the tenant's generation history, newest first.
func (r *GeneratedReportRepository) List(ctx context.Context, tenantID string, limit, offset int) ([]models.GeneratedReport, int, error) {
	if limit <= 0 {
		limit = 20
	}
	query := fmt.Sprintf(`SELECT %s FROM generated_reports WHERE tenant_id = $1 ORDER BY generated_at DESC LIMIT $2 OFFSET $3`, generatedReportColumns)
	var reports []models.GeneratedReport
	if err := r.db.SelectContext(ctx, &reports, query, tenantID, limit, offset); err != nil {
		return nil, 0, fmt.Errorf("list generated reports: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM generated_reports WHERE tenant_id = $1`, tenantID); err != nil {
		return nil, 0, fmt.Errorf("count generated reports: %w", err)
	}
	return reports, total, nil
}

// ListExpired retrieves reports whose expiry has passed, oldest first.
func (r *GeneratedReportRepository) ListExpired(ctx context.Context, asOf time.Time, limit int) ([]models.GeneratedReport, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`SELECT %s FROM generated_reports WHERE expires_at < $1 ORDER BY expires_at ASC LIMIT $2`, generatedReportColumns)
	var reports []models.GeneratedReport
	if err := r.db.SelectContext(ctx, &reports, query, asOf, limit); err != nil {
		return nil, fmt.Errorf("list expired reports: %w", err)
	}
	return reports, nil
}

// Delete removes a generated-report row. Deleting an already-gone row is a
// no-op so the reaper stays idempotent.
func (r *GeneratedReportRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM generated_reports WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete generated report: %w", err)
	}
	return nil
}
