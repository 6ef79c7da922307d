package query

import (
	"fmt"

	"github.com/noah-isme/hms-report-api/internal/models"
	appErrors "github.com/noah-isme/hms-report-api/pkg/errors"
)

// BuildInput carries everything the plan builder needs for one execution.
type BuildInput struct {
	Template *models.ReportTemplate
	TenantID string
	Filters  []ResolvedFilter
	Limit    int
	Offset   int
}

// Build turns a validated template plus resolved filters into an executable
// plan. Every identifier in the result comes from the source registry or the
// template's own declarations; caller values appear only inside predicate
// nodes, never as identifiers.
func Build(registry *Registry, in BuildInput) (*Plan, error) {
	tpl := in.Template
	if err := tpl.Validate(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report template")
	}

	src, ok := registry.Lookup(tpl.DataSource)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnknownDataSource, fmt.Sprintf("data source %q has no physical mapping", tpl.DataSource))
	}

	plan := &Plan{Source: src, TenantID: in.TenantID, Limit: in.Limit, Offset: in.Offset}

	aggregated := 0
	for _, col := range tpl.Columns {
		field, known := src.Field(col.Field)
		if !known {
			return nil, appErrors.FieldError(appErrors.ErrFilterValidation, col.Field, fmt.Sprintf("column field is not known to data source %q", src.Name))
		}
		if col.Aggregate != "" {
			aggregated++
			if err := checkAggregate(col.Aggregate, field, col.Field); err != nil {
				return nil, err
			}
		}
		plan.Projections = append(plan.Projections, Projection{
			Field:     col.Field,
			Alias:     col.Label,
			Aggregate: col.Aggregate,
			Type:      field.Type,
		})
	}

	// Without grouping, mixing aggregated and plain columns has no defined
	// output shape; require all-or-none.
	if len(tpl.GroupBy) == 0 && aggregated > 0 && aggregated < len(tpl.Columns) {
		return nil, appErrors.Clone(appErrors.ErrAggregationType, "columns must be all aggregated or all plain when the template has no grouping")
	}

	grouped := make(map[string]struct{}, len(tpl.GroupBy))
	for _, field := range tpl.GroupBy {
		if _, known := src.Field(field); !known {
			return nil, appErrors.FieldError(appErrors.ErrFilterValidation, field, fmt.Sprintf("group-by field is not known to data source %q", src.Name))
		}
		plan.GroupBy = append(plan.GroupBy, field)
		grouped[field] = struct{}{}
	}

	if len(plan.GroupBy) > 0 {
		// Group-by fields not already projected are appended so each output
		// row names its group; plain projected columns join the grouping
		// clause to keep the plan executable.
		projectedFields := make(map[string]struct{}, len(plan.Projections))
		for _, p := range plan.Projections {
			projectedFields[p.Field] = struct{}{}
			if p.Aggregate == "" {
				if _, ok := grouped[p.Field]; !ok {
					plan.GroupBy = append(plan.GroupBy, p.Field)
					grouped[p.Field] = struct{}{}
				}
			}
		}
		for _, field := range tpl.GroupBy {
			if _, ok := projectedFields[field]; !ok {
				f, _ := src.Field(field)
				plan.Projections = append(plan.Projections, Projection{Field: field, Alias: field, Type: f.Type})
			}
		}
	}

	aggregatedFields := make(map[string]struct{}, len(plan.Projections))
	for _, p := range plan.Projections {
		if p.Aggregate != "" {
			aggregatedFields[p.Field] = struct{}{}
		}
	}
	for _, key := range tpl.SortBy {
		if _, known := src.Field(key.Field); !known {
			return nil, appErrors.FieldError(appErrors.ErrFilterValidation, key.Field, fmt.Sprintf("sort field is not known to data source %q", src.Name))
		}
		if len(plan.GroupBy) > 0 {
			// Sorting a grouped plan by a field that is neither grouped nor
			// aggregated would not survive execution.
			_, isGrouped := grouped[key.Field]
			_, isAggregated := aggregatedFields[key.Field]
			if !isGrouped && !isAggregated {
				return nil, appErrors.FieldError(appErrors.ErrFilterValidation, key.Field, "sort field must be grouped or aggregated when the template groups rows")
			}
		}
		plan.Sort = append(plan.Sort, SortKey{Field: key.Field, Descending: key.Direction == models.SortDesc})
	}

	for _, rf := range in.Filters {
		pred, err := rf.toPredicate()
		if err != nil {
			return nil, err
		}
		plan.Predicates = append(plan.Predicates, pred)
	}

	return plan, nil
}

func checkAggregate(agg models.AggregateFunc, field Field, name string) error {
	switch agg {
	case models.AggregateSum, models.AggregateAvg:
		if field.Type != models.ColumnTypeNumber {
			return appErrors.Clone(appErrors.ErrAggregationType, fmt.Sprintf("%s: cannot %s a %s field", name, agg, field.Type))
		}
	case models.AggregateMin, models.AggregateMax:
		if field.Type == models.ColumnTypeBoolean {
			return appErrors.Clone(appErrors.ErrAggregationType, fmt.Sprintf("%s: cannot %s a boolean field", name, agg))
		}
	}
	return nil
}

func (rf ResolvedFilter) toPredicate() (Predicate, error) {
	switch rf.Operator {
	case models.OpEq:
		return Eq{Field: rf.Field, Value: rf.Value}, nil
	case models.OpNe:
		return Ne{Field: rf.Field, Value: rf.Value}, nil
	case models.OpGt, models.OpGte, models.OpLt, models.OpLte:
		return Compare{Field: rf.Field, Op: rf.Operator, Value: rf.Value}, nil
	case models.OpContains:
		s, _ := rf.Value.(string)
		return Contains{Field: rf.Field, Value: s}, nil
	case models.OpIn:
		return In{Field: rf.Field, Values: rf.Values}, nil
	case models.OpBetween:
		return Between{Field: rf.Field, Low: rf.Low, High: rf.High}, nil
	default:
		return nil, appErrors.FieldError(appErrors.ErrFilterValidation, rf.Field, fmt.Sprintf("unknown operator %q", rf.Operator))
	}
}
