package models

import (
	"database/sql/driver"
	"time"
)

// ReportFormat enumerates supported export formats.
type ReportFormat string

const (
	ReportFormatExcel ReportFormat = "excel"
	ReportFormatPDF   ReportFormat = "pdf"
	ReportFormatCSV   ReportFormat = "csv"
	ReportFormatJSON  ReportFormat = "json"
)

// Valid reports whether the format is supported.
func (f ReportFormat) Valid() bool {
	switch f {
	case ReportFormatExcel, ReportFormatPDF, ReportFormatCSV, ReportFormatJSON:
		return true
	default:
		return false
	}
}

// ProducesFile reports whether the format writes an artifact to storage.
func (f ReportFormat) ProducesFile() bool {
	return f != ReportFormatJSON
}

// ReportParameters stores the resolved filter values of one execution as JSONB.
type ReportParameters map[string]interface{}

// Value marshals parameters to JSON for persistence.
func (p ReportParameters) Value() (driver.Value, error) {
	if p == nil {
		p = ReportParameters{}
	}
	return marshalJSONColumn(p, "report parameters")
}

// Scan unmarshals JSON payloads into the parameter map.
func (p *ReportParameters) Scan(value interface{}) error {
	if value == nil {
		*p = ReportParameters{}
		return nil
	}
	return scanJSONColumn(value, p, "report parameters")
}

// DefaultArtifactTTL is how long a generated artifact is retained.
const DefaultArtifactTTL = 7 * 24 * time.Hour

// GeneratedReport is the persisted record of one concrete execution of a
// template, plus its optional exported artifact.
type GeneratedReport struct {
	ID          string           `db:"id" json:"id"`
	TemplateID  string           `db:"template_id" json:"templateId"`
	TenantID    string           `db:"tenant_id" json:"tenantId"`
	Parameters  ReportParameters `db:"parameters" json:"parameters"`
	Format      ReportFormat     `db:"format" json:"format"`
	FilePath    *string          `db:"file_path" json:"filePath,omitempty"`
	RowCount    int              `db:"row_count" json:"rowCount"`
	GeneratedBy string           `db:"generated_by" json:"generatedBy"`
	GeneratedAt time.Time        `db:"generated_at" json:"generatedAt"`
	ExpiresAt   time.Time        `db:"expires_at" json:"expiresAt"`
}
