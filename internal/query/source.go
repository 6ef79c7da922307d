package query

import "github.com/noah-isme/hms-report-api/internal/models"

// Field maps a logical field name onto a physical column or a code-owned SQL
// expression (e.g. a date truncation). Expressions never contain caller input.
type Field struct {
	Column string
	Type   models.ColumnType
}

// Source maps a logical data-source name onto one physical table.
type Source struct {
	Name         string
	Table        string
	TenantColumn string
	Fields       map[string]Field
}

// Field resolves a logical field name against the source.
func (s Source) Field(name string) (Field, bool) {
	f, ok := s.Fields[name]
	return f, ok
}

// Registry holds the fixed, code-owned lookup table from logical data-source
// names to physical tables. Caller input never reaches this mapping.
type Registry struct {
	sources map[string]Source
}

// Lookup resolves a logical data-source name.
func (r *Registry) Lookup(name string) (Source, bool) {
	s, ok := r.sources[name]
	return s, ok
}

// Names lists the registered logical source names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	return names
}

// NewRegistry builds the hospital data-source registry.
func NewRegistry() *Registry {
	sources := []Source{
		{
			Name:         "patients",
			Table:        "patients",
			TenantColumn: "tenant_id",
			Fields: map[string]Field{
				"patient_number":   {Column: "patient_number", Type: models.ColumnTypeString},
				"first_name":       {Column: "first_name", Type: models.ColumnTypeString},
				"last_name":        {Column: "last_name", Type: models.ColumnTypeString},
				"gender":           {Column: "gender", Type: models.ColumnTypeString},
				"blood_group":      {Column: "blood_group", Type: models.ColumnTypeString},
				"date_of_birth":    {Column: "date_of_birth", Type: models.ColumnTypeDate},
				"registered_at":    {Column: "registered_at", Type: models.ColumnTypeDate},
				"registered_month": {Column: "date_trunc('month', registered_at)", Type: models.ColumnTypeDate},
				"is_admitted":      {Column: "is_admitted", Type: models.ColumnTypeBoolean},
				"ward":             {Column: "ward", Type: models.ColumnTypeString},
			},
		},
		{
			Name:         "appointments",
			Table:        "appointments",
			TenantColumn: "tenant_id",
			Fields: map[string]Field{
				"appointment_number": {Column: "appointment_number", Type: models.ColumnTypeString},
				"patient_number":     {Column: "patient_number", Type: models.ColumnTypeString},
				"doctor_name":        {Column: "doctor_name", Type: models.ColumnTypeString},
				"department":         {Column: "department", Type: models.ColumnTypeString},
				"status":             {Column: "status", Type: models.ColumnTypeString},
				"scheduled_at":       {Column: "scheduled_at", Type: models.ColumnTypeDate},
				"scheduled_day":      {Column: "date_trunc('day', scheduled_at)", Type: models.ColumnTypeDate},
				"duration_minutes":   {Column: "duration_minutes", Type: models.ColumnTypeNumber},
			},
		},
		{
			Name:         "payments",
			Table:        "payments",
			TenantColumn: "tenant_id",
			Fields: map[string]Field{
				"invoice_number": {Column: "invoice_number", Type: models.ColumnTypeString},
				"patient_number": {Column: "patient_number", Type: models.ColumnTypeString},
				"amount":         {Column: "amount", Type: models.ColumnTypeNumber},
				"discount":       {Column: "discount", Type: models.ColumnTypeNumber},
				"method":         {Column: "method", Type: models.ColumnTypeString},
				"status":         {Column: "status", Type: models.ColumnTypeString},
				"department":     {Column: "department", Type: models.ColumnTypeString},
				"paid_at":        {Column: "paid_at", Type: models.ColumnTypeDate},
				"paid_month":     {Column: "date_trunc('month', paid_at)", Type: models.ColumnTypeDate},
			},
		},
		{
			Name:         "prescriptions",
			Table:        "prescriptions",
			TenantColumn: "tenant_id",
			Fields: map[string]Field{
				"prescription_number": {Column: "prescription_number", Type: models.ColumnTypeString},
				"patient_number":      {Column: "patient_number", Type: models.ColumnTypeString},
				"doctor_name":         {Column: "doctor_name", Type: models.ColumnTypeString},
				"medicine":            {Column: "medicine", Type: models.ColumnTypeString},
				"quantity":            {Column: "quantity", Type: models.ColumnTypeNumber},
				"issued_at":           {Column: "issued_at", Type: models.ColumnTypeDate},
			},
		},
		{
			Name:         "inventory",
			Table:        "inventory_items",
			TenantColumn: "tenant_id",
			Fields: map[string]Field{
				"item_code":     {Column: "item_code", Type: models.ColumnTypeString},
				"item_name":     {Column: "item_name", Type: models.ColumnTypeString},
				"category":      {Column: "category", Type: models.ColumnTypeString},
				"quantity":      {Column: "quantity", Type: models.ColumnTypeNumber},
				"unit_price":    {Column: "unit_price", Type: models.ColumnTypeNumber},
				"reorder_level": {Column: "reorder_level", Type: models.ColumnTypeNumber},
				"expires_at":    {Column: "expires_at", Type: models.ColumnTypeDate},
				"is_active":     {Column: "is_active", Type: models.ColumnTypeBoolean},
			},
		},
		{
			Name:         "lab_results",
			Table:        "lab_results",
			TenantColumn: "tenant_id",
			Fields: map[string]Field{
				"order_number":   {Column: "order_number", Type: models.ColumnTypeString},
				"patient_number": {Column: "patient_number", Type: models.ColumnTypeString},
				"test_name":      {Column: "test_name", Type: models.ColumnTypeString},
				"result_value":   {Column: "result_value", Type: models.ColumnTypeNumber},
				"unit":           {Column: "unit", Type: models.ColumnTypeString},
				"is_abnormal":    {Column: "is_abnormal", Type: models.ColumnTypeBoolean},
				"reported_at":    {Column: "reported_at", Type: models.ColumnTypeDate},
			},
		},
		{
			Name:         "staff",
			Table:        "staff_members",
			TenantColumn: "tenant_id",
			Fields: map[string]Field{
				"employee_number": {Column: "employee_number", Type: models.ColumnTypeString},
				"full_name":       {Column: "full_name", Type: models.ColumnTypeString},
				"role":            {Column: "role", Type: models.ColumnTypeString},
				"department":      {Column: "department", Type: models.ColumnTypeString},
				"hired_at":        {Column: "hired_at", Type: models.ColumnTypeDate},
				"is_active":       {Column: "is_active", Type: models.ColumnTypeBoolean},
			},
		},
	}

	registry := &Registry{sources: make(map[string]Source, len(sources))}
	for _, s := range sources {
		registry.sources[s.Name] = s
	}
	return registry
}
