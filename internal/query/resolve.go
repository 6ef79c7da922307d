package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/hms-report-api/internal/models"
	appErrors "github.com/noah-isme/hms-report-api/pkg/errors"
)

// ResolvedFilter is a declared filter whose runtime value has been determined
// from caller input or the template default. Unresolved filters never appear
// in the output; filtering is opt-in.
type ResolvedFilter struct {
	Field    string
	Operator models.FilterOperator
	Value    interface{}   // scalar operators
	Values   []interface{} // in
	Low      interface{}   // between
	High     interface{}   // between
}

// ResolveFilters merges caller-supplied filter values with template defaults
// and validates operator/value shape. Caller keys not declared on the template
// are rejected: the declared filter list is the only allow-list of queryable
// fields.
func ResolveFilters(tpl *models.ReportTemplate, src Source, caller map[string]interface{}) ([]ResolvedFilter, error) {
	for key := range caller {
		if _, declared := tpl.FilterByField(key); !declared {
			return nil, appErrors.FieldError(appErrors.ErrFilterValidation, key, "filter is not declared on this template")
		}
	}

	resolved := make([]ResolvedFilter, 0, len(tpl.Filters))
	for _, filter := range tpl.Filters {
		raw, supplied := caller[filter.Field]
		if !supplied || raw == nil {
			raw = filter.DefaultValue
		}
		if raw == nil {
			continue
		}

		field, known := src.Field(filter.Field)
		if !known {
			return nil, appErrors.FieldError(appErrors.ErrFilterValidation, filter.Field, fmt.Sprintf("field is not known to data source %q", src.Name))
		}

		rf, err := resolveOne(filter, field, raw)
		if err != nil {
			return nil, err
		}
		resolved = append(resolved, rf)
	}
	return resolved, nil
}

func resolveOne(filter models.ReportFilter, field Field, raw interface{}) (ResolvedFilter, error) {
	rf := ResolvedFilter{Field: filter.Field, Operator: filter.Operator}

	switch filter.Operator {
	case models.OpBetween:
		bounds, ok := asSlice(raw)
		if !ok || len(bounds) != 2 {
			return rf, appErrors.FieldError(appErrors.ErrFilterValidation, filter.Field, "between requires exactly two bounds")
		}
		low, err := coerceScalar(bounds[0], field.Type)
		if err != nil {
			return rf, appErrors.FieldError(appErrors.ErrFilterValidation, filter.Field, err.Error())
		}
		high, err := coerceScalar(bounds[1], field.Type)
		if err != nil {
			return rf, appErrors.FieldError(appErrors.ErrFilterValidation, filter.Field, err.Error())
		}
		inOrder, err := boundsOrdered(low, high, field.Type)
		if err != nil {
			return rf, appErrors.FieldError(appErrors.ErrFilterValidation, filter.Field, err.Error())
		}
		if !inOrder {
			return rf, appErrors.FieldError(appErrors.ErrFilterValidation, filter.Field, "between bounds are inverted")
		}
		rf.Low, rf.High = low, high

	case models.OpIn:
		members, ok := asSlice(raw)
		if !ok {
			members = []interface{}{raw}
		}
		if len(members) == 0 {
			return rf, appErrors.FieldError(appErrors.ErrFilterValidation, filter.Field, "in requires a non-empty set")
		}
		values := make([]interface{}, 0, len(members))
		for _, member := range members {
			v, err := coerceScalar(member, field.Type)
			if err != nil {
				return rf, appErrors.FieldError(appErrors.ErrFilterValidation, filter.Field, err.Error())
			}
			values = append(values, v)
		}
		rf.Values = values

	case models.OpContains:
		s, ok := raw.(string)
		if !ok {
			return rf, appErrors.FieldError(appErrors.ErrFilterValidation, filter.Field, "contains requires a string value")
		}
		rf.Value = s

	default:
		v, err := coerceScalar(raw, field.Type)
		if err != nil {
			return rf, appErrors.FieldError(appErrors.ErrFilterValidation, filter.Field, err.Error())
		}
		rf.Value = v
	}

	return rf, nil
}

func asSlice(raw interface{}) ([]interface{}, bool) {
	switch v := raw.(type) {
	case []interface{}:
		return v, true
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case []float64:
		out := make([]interface{}, len(v))
		for i, f := range v {
			out[i] = f
		}
		return out, true
	default:
		return nil, false
	}
}

const dateOnlyLayout = "2006-01-02"

func coerceScalar(raw interface{}, fieldType models.ColumnType) (interface{}, error) {
	switch fieldType {
	case models.ColumnTypeNumber:
		switch v := raw.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		default:
			return nil, fmt.Errorf("expected a number, got %T", raw)
		}
	case models.ColumnTypeBoolean:
		if v, ok := raw.(bool); ok {
			return v, nil
		}
		return nil, fmt.Errorf("expected a boolean, got %T", raw)
	case models.ColumnTypeDate:
		switch v := raw.(type) {
		case time.Time:
			return v, nil
		case string:
			if t, err := time.Parse(time.RFC3339, v); err == nil {
				return t, nil
			}
			if t, err := time.Parse(dateOnlyLayout, v); err == nil {
				return t, nil
			}
			return nil, fmt.Errorf("expected an RFC3339 or YYYY-MM-DD date, got %q", v)
		default:
			return nil, fmt.Errorf("expected a date, got %T", raw)
		}
	default:
		if v, ok := raw.(string); ok {
			return v, nil
		}
		return nil, fmt.Errorf("expected a string, got %T", raw)
	}
}

func boundsOrdered(low, high interface{}, fieldType models.ColumnType) (bool, error) {
	switch fieldType {
	case models.ColumnTypeNumber:
		return low.(float64) <= high.(float64), nil
	case models.ColumnTypeDate:
		l, h := low.(time.Time), high.(time.Time)
		return !l.After(h), nil
	case models.ColumnTypeString:
		return strings.Compare(low.(string), high.(string)) <= 0, nil
	default:
		return false, fmt.Errorf("between is not supported for %s fields", fieldType)
	}
}
