package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hms-report-api/internal/models"
	"github.com/noah-isme/hms-report-api/internal/query"
	appErrors "github.com/noah-isme/hms-report-api/pkg/errors"
)

// DatasetRepository executes compiled query plans against the warehouse tables
// and returns rows keyed by projection alias.
type DatasetRepository struct {
	db *sqlx.DB
}

// NewDatasetRepository constructs the repository.
func NewDatasetRepository(db *sqlx.DB) *DatasetRepository {
	return &DatasetRepository{db: db}
}

// Execute compiles and runs the plan. Rows come back as maps keyed by the
// plan's projection aliases; driver byte slices are normalized to strings and
// number-typed projections to float64 so exporters see uniform values.
func (r *DatasetRepository) Execute(ctx context.Context, plan *query.Plan) ([]map[string]interface{}, error) {
	sqlText, args, err := query.Compile(plan)
	if err != nil {
		return nil, fmt.Errorf("compile report query: %w", err)
	}

	rows, err := r.db.QueryxContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("execute report query: %w", err)
	}
	defer rows.Close()

	results := make([]map[string]interface{}, 0, 64)
	for rows.Next() {
		row := map[string]interface{}{}
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		if err := normalizeRow(row, plan.Projections); err != nil {
			return nil, err
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report rows: %w", err)
	}
	return results, nil
}

// Count runs the plan's COUNT companion and returns the filtered row total.
func (r *DatasetRepository) Count(ctx context.Context, plan *query.Plan) (int, error) {
	sqlText, args, err := query.CompileCount(plan)
	if err != nil {
		return 0, fmt.Errorf("compile count query: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, sqlText, args...); err != nil {
		return 0, fmt.Errorf("execute count query: %w", err)
	}
	return total, nil
}

func normalizeRow(row map[string]interface{}, projections []query.Projection) error {
	for _, proj := range projections {
		value, ok := row[proj.Alias]
		if !ok || value == nil {
			continue
		}
		if raw, isBytes := value.([]byte); isBytes {
			value = string(raw)
			row[proj.Alias] = value
		}
		if proj.Type != models.ColumnTypeNumber {
			continue
		}
		coerced, err := toFloat(value)
		if err != nil {
			if proj.Aggregate != "" {
				base := appErrors.ErrAggregationType
				return appErrors.Wrap(err, base.Code, base.Status, fmt.Sprintf("aggregate %s over %s produced a non-numeric value", proj.Aggregate, proj.Field))
			}
			return fmt.Errorf("column %q produced non-numeric value: %w", proj.Field, err)
		}
		row[proj.Alias] = coerced
	}
	return nil
}

func toFloat(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case string:
		// lib/pq hands NUMERIC back as text.
		return strconv.ParseFloat(v, 64)
	case time.Time:
		return 0, fmt.Errorf("got timestamp %v", v)
	default:
		return 0, fmt.Errorf("got %T", value)
	}
}
