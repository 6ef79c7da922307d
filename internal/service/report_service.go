package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/hms-report-api/internal/dto"
	"github.com/noah-isme/hms-report-api/internal/models"
	"github.com/noah-isme/hms-report-api/internal/query"
	appErrors "github.com/noah-isme/hms-report-api/pkg/errors"
	"github.com/noah-isme/hms-report-api/pkg/export"
)

// TemplateReader loads report templates.
type TemplateReader interface {
	GetByID(ctx context.Context, tenantID, id string) (*models.ReportTemplate, error)
	List(ctx context.Context, tenantID string) ([]models.ReportTemplate, error)
}

// TemplateCache is a read-through cache for template lookups.
type TemplateCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DatasetExecutor runs compiled plans.
type DatasetExecutor interface {
	Execute(ctx context.Context, plan *query.Plan) ([]map[string]interface{}, error)
	Count(ctx context.Context, plan *query.Plan) (int, error)
}

// ReportStore persists generated-report metadata.
type ReportStore interface {
	Create(ctx context.Context, report *models.GeneratedReport) error
	GetByID(ctx context.Context, tenantID, id string) (*models.GeneratedReport, error)
	List(ctx context.Context, tenantID string, limit, offset int) ([]models.GeneratedReport, int, error)
	ListExpired(ctx context.Context, asOf time.Time, limit int) ([]models.GeneratedReport, error)
	Delete(ctx context.Context, id string) error
}

// ArtifactStorage persists and serves exported files.
type ArtifactStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
}

// ArtifactSigner issues and validates signed download tokens.
type ArtifactSigner interface {
	Generate(reportID, relPath string) (string, time.Time, error)
	Parse(token string, allowExpired bool) (reportID, relPath string, expiresAt time.Time, err error)
}

// Exporter renders a dataset into one concrete file format.
type Exporter interface {
	ContentType() string
	Extension() string
	Render(data export.Dataset) ([]byte, error)
}

// ReportServiceDeps wires the collaborators of ReportService.
type ReportServiceDeps struct {
	Templates TemplateReader
	Cache     TemplateCache
	Datasets  DatasetExecutor
	Reports   ReportStore
	Storage   ArtifactStorage
	Signer    ArtifactSigner
	Registry  *query.Registry
	Metrics   *Metrics
	Logger    *zap.Logger

	TemplateCacheTTL time.Duration
	ArtifactTTL      time.Duration
	ReaperInterval   time.Duration
	MaxPageSize      int
	DownloadBasePath string
}

// ReportService interprets templates into datasets and exported artifacts.
type ReportService struct {
	templates TemplateReader
	cache     TemplateCache
	datasets  DatasetExecutor
	reports   ReportStore
	storage   ArtifactStorage
	signer    ArtifactSigner
	registry  *query.Registry
	metrics   *Metrics
	logger    *zap.Logger
	exporters map[models.ReportFormat]Exporter

	cacheTTL         time.Duration
	artifactTTL      time.Duration
	reaperInterval   time.Duration
	maxPageSize      int
	downloadBasePath string
}

// NewReportService constructs the service with defaults applied.
func NewReportService(deps ReportServiceDeps) *ReportService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Registry == nil {
		deps.Registry = query.NewRegistry()
	}
	if deps.TemplateCacheTTL <= 0 {
		deps.TemplateCacheTTL = 10 * time.Minute
	}
	if deps.ArtifactTTL <= 0 {
		deps.ArtifactTTL = models.DefaultArtifactTTL
	}
	if deps.ReaperInterval <= 0 {
		deps.ReaperInterval = time.Hour
	}
	if deps.MaxPageSize <= 0 {
		deps.MaxPageSize = 10000
	}
	if deps.DownloadBasePath == "" {
		deps.DownloadBasePath = "/api/v1/export"
	}
	return &ReportService{
		templates: deps.Templates,
		cache:     deps.Cache,
		datasets:  deps.Datasets,
		reports:   deps.Reports,
		storage:   deps.Storage,
		signer:    deps.Signer,
		registry:  deps.Registry,
		metrics:   deps.Metrics,
		logger:    deps.Logger,
		exporters: map[models.ReportFormat]Exporter{
			models.ReportFormatCSV:   export.NewCSVExporter(),
			models.ReportFormatExcel: export.NewExcelExporter(),
			models.ReportFormatPDF:   export.NewPDFExporter(),
		},
		cacheTTL:         deps.TemplateCacheTTL,
		artifactTTL:      deps.ArtifactTTL,
		reaperInterval:   deps.ReaperInterval,
		maxPageSize:      deps.MaxPageSize,
		downloadBasePath: deps.DownloadBasePath,
	}
}

// ListTemplates returns the templates visible to the tenant.
func (s *ReportService) ListTemplates(ctx context.Context, tenantID string) ([]dto.TemplateSummary, error) {
	templates, err := s.templates.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	summaries := make([]dto.TemplateSummary, 0, len(templates))
	for _, tpl := range templates {
		summaries = append(summaries, dto.TemplateSummary{
			ID:         tpl.ID,
			Name:       tpl.Name,
			Category:   tpl.Category,
			DataSource: tpl.DataSource,
			IsSystem:   tpl.IsSystem,
		})
	}
	return summaries, nil
}

// Generate executes a template synchronously and, for file formats, writes the
// artifact before recording its metadata.
func (s *ReportService) Generate(ctx context.Context, tenantID, userID string, req dto.GenerateReportRequest) (*dto.GenerateReportResponse, error) {
	started := time.Now()

	if !req.Format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported format %q", req.Format))
	}

	tpl, err := s.templateByID(ctx, tenantID, req.TemplateID)
	if err != nil {
		return nil, err
	}

	src, ok := s.registry.Lookup(tpl.DataSource)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnknownDataSource, fmt.Sprintf("data source %q has no physical mapping", tpl.DataSource))
	}

	resolved, err := query.ResolveFilters(tpl, src, req.Filters)
	if err != nil {
		return nil, err
	}

	plan, err := query.Build(s.registry, query.BuildInput{
		Template: tpl,
		TenantID: tenantID,
		Filters:  resolved,
		Limit:    s.maxPageSize,
	})
	if err != nil {
		return nil, err
	}

	rows, err := s.datasets.Execute(ctx, plan)
	if err != nil {
		return nil, err
	}
	total, err := s.datasets.Count(ctx, plan)
	if err != nil {
		return nil, err
	}

	reportID := uuid.NewString()
	generatedAt := time.Now().UTC()
	record := &models.GeneratedReport{
		ID:          reportID,
		TemplateID:  tpl.ID,
		TenantID:    tenantID,
		Parameters:  models.ReportParameters(req.Filters),
		Format:      req.Format,
		RowCount:    total,
		GeneratedBy: userID,
		GeneratedAt: generatedAt,
		ExpiresAt:   generatedAt.Add(s.artifactTTL),
	}

	resp := &dto.GenerateReportResponse{
		ReportID:    reportID,
		RowCount:    total,
		GeneratedAt: record.GeneratedAt,
		ExpiresAt:   record.ExpiresAt,
	}

	if !req.Format.ProducesFile() {
		if err := s.reports.Create(ctx, record); err != nil {
			return nil, err
		}
		resp.Data = rows
		s.metrics.ReportGenerated(string(req.Format), time.Since(started))
		return resp, nil
	}

	exporter, ok := s.exporters[req.Format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("no exporter for format %q", req.Format))
	}

	dataset := buildDataset(tpl.Name, plan.Projections, rows)
	payload, err := exporter.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExportFailed.Code, appErrors.ErrExportFailed.Status, appErrors.ErrExportFailed.Message)
	}

	relPath := fmt.Sprintf("%s/%s.%s", tenantID, reportID, exporter.Extension())
	if _, err := s.storage.Save(relPath, payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrExportFailed.Code, appErrors.ErrExportFailed.Status, appErrors.ErrExportFailed.Message)
	}

	record.FilePath = &relPath
	if err := s.reports.Create(ctx, record); err != nil {
		// Keep storage and metadata consistent: no orphan artifacts.
		if cleanupErr := s.storage.Delete(relPath); cleanupErr != nil {
			s.logger.Warn("failed to remove artifact after metadata failure",
				zap.String("report_id", reportID), zap.Error(cleanupErr))
		}
		return nil, err
	}

	resp.FilePath = &relPath
	if s.signer != nil {
		if token, _, err := s.signer.Generate(reportID, relPath); err == nil {
			url := fmt.Sprintf("%s/%s", s.downloadBasePath, token)
			resp.DownloadURL = &url
		} else {
			s.logger.Warn("failed to sign download url", zap.String("report_id", reportID), zap.Error(err))
		}
	}

	s.metrics.ReportGenerated(string(req.Format), time.Since(started))
	s.logger.Info("report generated",
		zap.String("report_id", reportID),
		zap.String("template_id", tpl.ID),
		zap.String("format", string(req.Format)),
		zap.Int("row_count", total))
	return resp, nil
}

// Download resolves a tenant-scoped report to its artifact stream. The
// suggested filename comes from the template name when it can still be
// resolved.
func (s *ReportService) Download(ctx context.Context, tenantID, reportID string) (*os.File, string, string, error) {
	record, err := s.reports.GetByID(ctx, tenantID, reportID)
	if err != nil {
		return nil, "", "", err
	}
	if !record.Format.ProducesFile() || record.FilePath == nil {
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "report has no downloadable artifact")
	}
	if time.Now().After(record.ExpiresAt) {
		return nil, "", "", appErrors.Clone(appErrors.ErrArtifactNotFound, "report artifact has expired")
	}
	file, err := s.storage.Open(*record.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", "", appErrors.ErrArtifactNotFound
		}
		return nil, "", "", appErrors.Wrap(err, appErrors.ErrArtifactNotFound.Code, appErrors.ErrArtifactNotFound.Status, appErrors.ErrArtifactNotFound.Message)
	}

	templateName := ""
	if tpl, err := s.templateByID(ctx, tenantID, record.TemplateID); err == nil {
		templateName = tpl.Name
	}
	filename := exportFilename(templateName, record.ID, extensionOf(*record.FilePath))
	return file, s.contentTypeFor(record.Format), filename, nil
}

// Template returns one template visible to the tenant.
func (s *ReportService) Template(ctx context.Context, tenantID, id string) (*models.ReportTemplate, error) {
	return s.templateByID(ctx, tenantID, id)
}

// ReportByID returns the metadata of one generated report.
func (s *ReportService) ReportByID(ctx context.Context, tenantID, id string) (*models.GeneratedReport, error) {
	return s.reports.GetByID(ctx, tenantID, id)
}

// ResolveExportToken serves a signed, recipient-facing download link without
// requiring an authenticated session.
func (s *ReportService) ResolveExportToken(ctx context.Context, token string) (*os.File, string, string, error) {
	if s.signer == nil {
		return nil, "", "", appErrors.ErrArtifactNotFound
	}
	reportID, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", "", appErrors.Clone(appErrors.ErrArtifactNotFound, "invalid or expired download link")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", "", appErrors.ErrArtifactNotFound
	}
	contentType := s.contentTypeFor(formatFromPath(relPath))
	filename := fmt.Sprintf("report-%s.%s", reportID, extensionOf(relPath))
	return file, contentType, filename, nil
}

// History returns the tenant's generation history.
func (s *ReportService) History(ctx context.Context, tenantID string, limit, offset int) ([]models.GeneratedReport, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.reports.List(ctx, tenantID, limit, offset)
}

// StartReaper sweeps expired artifacts until the context is cancelled.
func (s *ReportService) StartReaper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.reaperInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Sweep(ctx); err != nil {
					s.logger.Error("artifact reaper sweep failed", zap.Error(err))
				}
			}
		}
	}()
}

// Sweep removes expired artifacts and their metadata. Re-running a partially
// failed sweep is safe: file deletion tolerates missing files and metadata
// deletion tolerates missing rows.
func (s *ReportService) Sweep(ctx context.Context) error {
	expired, err := s.reports.ListExpired(ctx, time.Now().UTC(), 100)
	if err != nil {
		return err
	}
	removed := 0
	for _, record := range expired {
		if record.FilePath != nil {
			if err := s.storage.Delete(*record.FilePath); err != nil {
				s.logger.Warn("failed to delete expired artifact",
					zap.String("report_id", record.ID), zap.Error(err))
				continue
			}
		}
		if err := s.reports.Delete(ctx, record.ID); err != nil {
			s.logger.Warn("failed to delete expired report row",
				zap.String("report_id", record.ID), zap.Error(err))
			continue
		}
		removed++
	}
	if removed > 0 {
		s.metrics.ArtifactsReaped(removed)
		s.logger.Info("expired report artifacts reaped", zap.Int("removed", removed))
	}
	return nil
}

func (s *ReportService) templateByID(ctx context.Context, tenantID, id string) (*models.ReportTemplate, error) {
	key := fmt.Sprintf("report:tpl:%s:%s", tenantID, id)
	if s.cache != nil {
		var cached models.ReportTemplate
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return &cached, nil
		}
	}
	tpl, err := s.templates.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, tpl, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache template", zap.String("template_id", id), zap.Error(err))
		}
	}
	return tpl, nil
}

func (s *ReportService) contentTypeFor(format models.ReportFormat) string {
	if exporter, ok := s.exporters[format]; ok {
		return exporter.ContentType()
	}
	return "application/octet-stream"
}

func buildDataset(title string, projections []query.Projection, rows []map[string]interface{}) export.Dataset {
	columns := make([]export.Column, len(projections))
	for i, proj := range projections {
		columns[i] = export.Column{Label: proj.Alias, Type: export.ColumnType(proj.Type)}
	}
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		values := make([]interface{}, len(projections))
		for j, proj := range projections {
			values[j] = row[proj.Alias]
		}
		out[i] = values
	}
	return export.Dataset{Title: title, Columns: columns, Rows: out}
}

// exportFilename slugs the template name into a safe attachment filename,
// falling back to the report id for templates that no longer resolve.
func exportFilename(templateName, reportID, ext string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		case r == ' ':
			return '-'
		default:
			return -1
		}
	}, templateName)
	if name == "" {
		name = "report-" + reportID
	}
	if ext == "" {
		return name
	}
	return name + "." + ext
}

func extensionOf(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		switch path[i] {
		case '.':
			return path[i+1:]
		case '/':
			return ""
		}
	}
	return ""
}

func formatFromPath(path string) models.ReportFormat {
	switch extensionOf(path) {
	case "csv":
		return models.ReportFormatCSV
	case "xlsx":
		return models.ReportFormatExcel
	case "pdf":
		return models.ReportFormatPDF
	default:
		return ""
	}
}
