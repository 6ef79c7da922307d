package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hms-report-api/internal/models"
	appErrors "github.com/noah-isme/hms-report-api/pkg/errors"
)

const templateColumns = `id, tenant_id, name, category, data_source, columns, filters, group_by, sort_by, chart_type, is_system, is_active, created_at, updated_at`

// TemplateRepository reads report templates. Template CRUD lives elsewhere;
// the engine only ever consumes templates.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository constructs the repository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// GetByID returns an active template visible to the tenant. System templates
// are visible to every tenant but owned by none.
func (r *TemplateRepository) GetByID(ctx context.Context, tenantID, id string) (*models.ReportTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM report_templates WHERE id = $1 AND (tenant_id = $2 OR is_system) AND is_active`, templateColumns)
	var tpl models.ReportTemplate
	if err := r.db.GetContext(ctx, &tpl, query, id, tenantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrTemplateNotFound
		}
		return nil, fmt.Errorf("get report template: %w", err)
	}
	return &tpl, nil
}

// List returns active templates visible to the tenant.
func (r *TemplateRepository) List(ctx context.Context, tenantID string) ([]models.ReportTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM report_templates WHERE (tenant_id = $1 OR is_system) AND is_active ORDER BY category, name`, templateColumns)
	var templates []models.ReportTemplate
	if err := r.db.SelectContext(ctx, &templates, query, tenantID); err != nil {
		return nil, fmt.Errorf("list report templates: %w", err)
	}
	return templates, nil
}
