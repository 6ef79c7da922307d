package query

import "github.com/noah-isme/hms-report-api/internal/models"

// Predicate is one node of the tagged-variant predicate tree. All variants
// reference logical field names; physical identifiers are resolved only by the
// compiler against the source registry, and values only ever travel as bind
// parameters.
type Predicate interface {
	predicate()
}

// Eq matches rows where the field equals the value.
type Eq struct {
	Field string
	Value interface{}
}

// Ne matches rows where the field differs from the value.
type Ne struct {
	Field string
	Value interface{}
}

// Compare matches rows ordering the field against the value (gt, gte, lt, lte).
type Compare struct {
	Field string
	Op    models.FilterOperator
	Value interface{}
}

// Contains matches rows whose field contains the value, case-insensitively.
type Contains struct {
	Field string
	Value string
}

// In matches rows whose field is a member of the value set.
type In struct {
	Field  string
	Values []interface{}
}

// Between matches rows whose field lies in the inclusive range [Low, High].
type Between struct {
	Field string
	Low   interface{}
	High  interface{}
}

func (Eq) predicate()       {}
func (Ne) predicate()       {}
func (Compare) predicate()  {}
func (Contains) predicate() {}
func (In) predicate()       {}
func (Between) predicate()  {}

// Projection is one output column of the plan.
type Projection struct {
	Field     string
	Alias     string
	Aggregate models.AggregateFunc
	Type      models.ColumnType
}

// SortKey orders plan output by a logical field.
type SortKey struct {
	Field      string
	Descending bool
}

// Plan is the structured, parameterizable representation of what to select,
// filter, group and sort, prior to execution. It contains no query text.
type Plan struct {
	Source      Source
	TenantID    string
	Projections []Projection
	Predicates  []Predicate
	GroupBy     []string
	Sort        []SortKey
	Limit       int
	Offset      int
}
