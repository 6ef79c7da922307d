package query

import (
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/noah-isme/hms-report-api/internal/models"
)

// Compile renders the plan into one parameterized SELECT. Identifiers come
// exclusively from the source registry and template declarations; every value
// becomes a bind argument.
func Compile(plan *Plan) (string, []interface{}, error) {
	var sb strings.Builder
	args := make([]interface{}, 0, len(plan.Predicates)+3)

	sb.WriteString("SELECT ")
	for i, proj := range plan.Projections {
		if i > 0 {
			sb.WriteString(", ")
		}
		expr, err := projectionExpr(plan.Source, proj)
		if err != nil {
			return "", nil, err
		}
		sb.WriteString(expr)
		sb.WriteString(" AS ")
		sb.WriteString(quoteAlias(proj.Alias))
	}
	sb.WriteString(" FROM ")
	sb.WriteString(plan.Source.Table)

	if err := writeWhere(&sb, plan, &args); err != nil {
		return "", nil, err
	}

	if len(plan.GroupBy) > 0 {
		sb.WriteString(" GROUP BY ")
		for i, field := range plan.GroupBy {
			if i > 0 {
				sb.WriteString(", ")
			}
			col, err := fieldColumn(plan.Source, field)
			if err != nil {
				return "", nil, err
			}
			sb.WriteString(col)
		}
	}

	if len(plan.Sort) > 0 {
		sb.WriteString(" ORDER BY ")
		for i, key := range plan.Sort {
			if i > 0 {
				sb.WriteString(", ")
			}
			col, err := sortExpr(plan, key.Field)
			if err != nil {
				return "", nil, err
			}
			sb.WriteString(col)
			if key.Descending {
				sb.WriteString(" DESC")
			} else {
				sb.WriteString(" ASC")
			}
		}
	}

	if plan.Limit > 0 {
		args = append(args, plan.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if plan.Offset > 0 {
		args = append(args, plan.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}

	return sb.String(), args, nil
}

// CompileCount renders an independent COUNT over the same predicate set with
// no projection, grouping or limit, so pagination never affects the reported
// total.
func CompileCount(plan *Plan) (string, []interface{}, error) {
	var sb strings.Builder
	args := make([]interface{}, 0, len(plan.Predicates)+1)

	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(plan.Source.Table)

	if err := writeWhere(&sb, plan, &args); err != nil {
		return "", nil, err
	}

	return sb.String(), args, nil
}

func writeWhere(sb *strings.Builder, plan *Plan, args *[]interface{}) error {
	*args = append(*args, plan.TenantID)
	fmt.Fprintf(sb, " WHERE %s = $%d", plan.Source.TenantColumn, len(*args))

	for _, pred := range plan.Predicates {
		clause, err := predicateClause(plan.Source, pred, args)
		if err != nil {
			return err
		}
		sb.WriteString(" AND ")
		sb.WriteString(clause)
	}
	return nil
}

func predicateClause(src Source, pred Predicate, args *[]interface{}) (string, error) {
	switch p := pred.(type) {
	case Eq:
		col, err := fieldColumn(src, p.Field)
		if err != nil {
			return "", err
		}
		*args = append(*args, p.Value)
		return fmt.Sprintf("%s = $%d", col, len(*args)), nil
	case Ne:
		col, err := fieldColumn(src, p.Field)
		if err != nil {
			return "", err
		}
		*args = append(*args, p.Value)
		return fmt.Sprintf("%s <> $%d", col, len(*args)), nil
	case Compare:
		col, err := fieldColumn(src, p.Field)
		if err != nil {
			return "", err
		}
		op, ok := compareOps[p.Op]
		if !ok {
			return "", fmt.Errorf("operator %q is not a comparison", p.Op)
		}
		*args = append(*args, p.Value)
		return fmt.Sprintf("%s %s $%d", col, op, len(*args)), nil
	case Contains:
		col, err := fieldColumn(src, p.Field)
		if err != nil {
			return "", err
		}
		*args = append(*args, "%"+escapeLike(p.Value)+"%")
		return fmt.Sprintf("%s ILIKE $%d", col, len(*args)), nil
	case In:
		col, err := fieldColumn(src, p.Field)
		if err != nil {
			return "", err
		}
		*args = append(*args, pq.Array(p.Values))
		return fmt.Sprintf("%s = ANY($%d)", col, len(*args)), nil
	case Between:
		col, err := fieldColumn(src, p.Field)
		if err != nil {
			return "", err
		}
		*args = append(*args, p.Low)
		low := len(*args)
		*args = append(*args, p.High)
		return fmt.Sprintf("%s BETWEEN $%d AND $%d", col, low, len(*args)), nil
	default:
		return "", fmt.Errorf("unknown predicate variant %T", pred)
	}
}

var compareOps = map[models.FilterOperator]string{
	models.OpGt:  ">",
	models.OpGte: ">=",
	models.OpLt:  "<",
	models.OpLte: "<=",
}

var aggregateFns = map[models.AggregateFunc]string{
	models.AggregateSum:   "SUM",
	models.AggregateAvg:   "AVG",
	models.AggregateCount: "COUNT",
	models.AggregateMin:   "MIN",
	models.AggregateMax:   "MAX",
}

func projectionExpr(src Source, proj Projection) (string, error) {
	col, err := fieldColumn(src, proj.Field)
	if err != nil {
		return "", err
	}
	if proj.Aggregate == "" {
		return col, nil
	}
	fn, ok := aggregateFns[proj.Aggregate]
	if !ok {
		return "", fmt.Errorf("unknown aggregate %q", proj.Aggregate)
	}
	return fmt.Sprintf("%s(%s)", fn, col), nil
}

// sortExpr orders by the aggregate expression when the sort field is projected
// aggregated; a grouped plan cannot order by the raw column in that case.
func sortExpr(plan *Plan, field string) (string, error) {
	for _, p := range plan.Projections {
		if p.Field == field && p.Aggregate != "" {
			return projectionExpr(plan.Source, p)
		}
	}
	return fieldColumn(plan.Source, field)
}

func fieldColumn(src Source, field string) (string, error) {
	f, ok := src.Field(field)
	if !ok {
		return "", fmt.Errorf("field %q is not known to data source %q", field, src.Name)
	}
	return f.Column, nil
}

func quoteAlias(alias string) string {
	return `"` + strings.ReplaceAll(alias, `"`, `""`) + `"`
}

func escapeLike(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(value)
}
