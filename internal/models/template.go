package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ColumnType enumerates the declared types of report columns.
type ColumnType string

const (
	ColumnTypeString  ColumnType = "string"
	ColumnTypeNumber  ColumnType = "number"
	ColumnTypeDate    ColumnType = "date"
	ColumnTypeBoolean ColumnType = "boolean"
)

// AggregateFunc enumerates supported aggregate functions.
type AggregateFunc string

const (
	AggregateSum   AggregateFunc = "sum"
	AggregateAvg   AggregateFunc = "avg"
	AggregateCount AggregateFunc = "count"
	AggregateMin   AggregateFunc = "min"
	AggregateMax   AggregateFunc = "max"
)

// FilterOperator enumerates the fixed filter grammar.
type FilterOperator string

const (
	OpEq       FilterOperator = "eq"
	OpNe       FilterOperator = "ne"
	OpGt       FilterOperator = "gt"
	OpGte      FilterOperator = "gte"
	OpLt       FilterOperator = "lt"
	OpLte      FilterOperator = "lte"
	OpContains FilterOperator = "contains"
	OpIn       FilterOperator = "in"
	OpBetween  FilterOperator = "between"
)

// SortDirection orders a sort key.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// ReportColumn declares one output column of a template.
type ReportColumn struct {
	Field     string        `json:"field"`
	Label     string        `json:"label"`
	Type      ColumnType    `json:"type"`
	Aggregate AggregateFunc `json:"aggregate,omitempty"`
}

// ReportFilter declares one queryable field of a template. The declared filter
// list is the allow-list of fields a caller may constrain.
type ReportFilter struct {
	Field        string         `json:"field"`
	Operator     FilterOperator `json:"operator"`
	DefaultValue interface{}    `json:"defaultValue,omitempty"`
}

// SortKey orders results by a declared field.
type SortKey struct {
	Field     string        `json:"field"`
	Direction SortDirection `json:"direction"`
}

// ReportColumns is the JSONB column list.
type ReportColumns []ReportColumn

// ReportFilters is the JSONB filter list.
type ReportFilters []ReportFilter

// SortKeys is the JSONB sort list.
type SortKeys []SortKey

// StringList is a JSONB-backed list of strings.
type StringList []string

// ReportTemplate is the declarative, reusable definition of a report.
type ReportTemplate struct {
	ID         string        `db:"id" json:"id"`
	TenantID   string        `db:"tenant_id" json:"tenantId"`
	Name       string        `db:"name" json:"name"`
	Category   string        `db:"category" json:"category"`
	DataSource string        `db:"data_source" json:"dataSource"`
	Columns    ReportColumns `db:"columns" json:"columns"`
	Filters    ReportFilters `db:"filters" json:"filters"`
	GroupBy    StringList    `db:"group_by" json:"groupBy,omitempty"`
	SortBy     SortKeys      `db:"sort_by" json:"sortBy,omitempty"`
	ChartType  *string       `db:"chart_type" json:"chartType,omitempty"`
	IsSystem   bool          `db:"is_system" json:"isSystem"`
	IsActive   bool          `db:"is_active" json:"isActive"`
	CreatedAt  time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updatedAt"`
}

// Validate checks the structural invariants of a template.
func (t *ReportTemplate) Validate() error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("template %s declares no columns", t.ID)
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for _, col := range t.Columns {
		if col.Field == "" || col.Label == "" {
			return fmt.Errorf("template %s has a column without field or label", t.ID)
		}
		if _, dup := seen[col.Label]; dup {
			return fmt.Errorf("template %s declares duplicate column label %q", t.ID, col.Label)
		}
		seen[col.Label] = struct{}{}
		if !col.Type.Valid() {
			return fmt.Errorf("template %s column %q has unknown type %q", t.ID, col.Label, col.Type)
		}
		if col.Aggregate != "" && !col.Aggregate.Valid() {
			return fmt.Errorf("template %s column %q has unknown aggregate %q", t.ID, col.Label, col.Aggregate)
		}
	}
	for _, f := range t.Filters {
		if f.Field == "" {
			return fmt.Errorf("template %s has a filter without field", t.ID)
		}
		if !f.Operator.Valid() {
			return fmt.Errorf("template %s filter %q has unknown operator %q", t.ID, f.Field, f.Operator)
		}
	}
	for _, s := range t.SortBy {
		if s.Direction != "" && s.Direction != SortAsc && s.Direction != SortDesc {
			return fmt.Errorf("template %s sort key %q has unknown direction %q", t.ID, s.Field, s.Direction)
		}
	}
	return nil
}

// FilterByField returns the declared filter for the given field.
func (t *ReportTemplate) FilterByField(field string) (ReportFilter, bool) {
	for _, f := range t.Filters {
		if f.Field == field {
			return f, true
		}
	}
	return ReportFilter{}, false
}

// ColumnByField returns the first declared column reading the given field.
func (t *ReportTemplate) ColumnByField(field string) (ReportColumn, bool) {
	for _, c := range t.Columns {
		if c.Field == field {
			return c, true
		}
	}
	return ReportColumn{}, false
}

// Valid reports whether the column type is one of the known types.
func (ct ColumnType) Valid() bool {
	switch ct {
	case ColumnTypeString, ColumnTypeNumber, ColumnTypeDate, ColumnTypeBoolean:
		return true
	default:
		return false
	}
}

// Valid reports whether the aggregate function is supported.
func (a AggregateFunc) Valid() bool {
	switch a {
	case AggregateSum, AggregateAvg, AggregateCount, AggregateMin, AggregateMax:
		return true
	default:
		return false
	}
}

// Valid reports whether the operator belongs to the fixed grammar.
func (op FilterOperator) Valid() bool {
	switch op {
	case OpEq, OpNe, OpGt, OpGte, OpLt, OpLte, OpContains, OpIn, OpBetween:
		return true
	default:
		return false
	}
}

// Value marshals the column list to JSON for persistence.
func (c ReportColumns) Value() (driver.Value, error) {
	return marshalJSONColumn(c, "report columns")
}

// Scan unmarshals JSON payloads into the column list.
func (c *ReportColumns) Scan(value interface{}) error {
	return scanJSONColumn(value, c, "report columns")
}

// Value marshals the filter list to JSON for persistence.
func (f ReportFilters) Value() (driver.Value, error) {
	return marshalJSONColumn(f, "report filters")
}

// Scan unmarshals JSON payloads into the filter list.
func (f *ReportFilters) Scan(value interface{}) error {
	return scanJSONColumn(value, f, "report filters")
}

// Value marshals the sort list to JSON for persistence.
func (s SortKeys) Value() (driver.Value, error) {
	return marshalJSONColumn(s, "sort keys")
}

// Scan unmarshals JSON payloads into the sort list.
func (s *SortKeys) Scan(value interface{}) error {
	return scanJSONColumn(value, s, "sort keys")
}

// Value marshals the string list to JSON for persistence.
func (l StringList) Value() (driver.Value, error) {
	return marshalJSONColumn(l, "string list")
}

// Scan unmarshals JSON payloads into the string list.
func (l *StringList) Scan(value interface{}) error {
	return scanJSONColumn(value, l, "string list")
}

func marshalJSONColumn(v interface{}, what string) (driver.Value, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", what, err)
	}
	return data, nil
}

func scanJSONColumn(value interface{}, dest interface{}, what string) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type %T for %s", value, what)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return nil
}
