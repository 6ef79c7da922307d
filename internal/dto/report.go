package dto

import (
	"time"

	"github.com/noah-isme/hms-report-api/internal/models"
)

// GenerateReportRequest captures POST /reports/generate payload.
type GenerateReportRequest struct {
	TemplateID string                 `json:"templateId" validate:"required"`
	Filters    map[string]interface{} `json:"filters"`
	Format     models.ReportFormat    `json:"format" validate:"required"`
}

// GenerateReportResponse is returned after a synchronous generation.
// Data is populated only for the json format; FilePath and DownloadURL only
// for file-producing formats.
type GenerateReportResponse struct {
	ReportID    string                   `json:"reportId"`
	RowCount    int                      `json:"rowCount"`
	FilePath    *string                  `json:"filePath,omitempty"`
	DownloadURL *string                  `json:"downloadUrl,omitempty"`
	Data        []map[string]interface{} `json:"data,omitempty"`
	GeneratedAt time.Time                `json:"generatedAt"`
	ExpiresAt   time.Time                `json:"expiresAt"`
}

// TemplateSummary is the read-only listing view of a template.
type TemplateSummary struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	DataSource string `json:"dataSource"`
	IsSystem   bool   `json:"isSystem"`
}
