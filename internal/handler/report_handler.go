package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/hms-report-api/internal/dto"
	"github.com/noah-isme/hms-report-api/internal/models"
	appErrors "github.com/noah-isme/hms-report-api/pkg/errors"
	"github.com/noah-isme/hms-report-api/pkg/response"
)

// ReportGeneratorService is the surface of ReportService the handler uses.
type ReportGeneratorService interface {
	Generate(ctx context.Context, tenantID, userID string, req dto.GenerateReportRequest) (*dto.GenerateReportResponse, error)
	Download(ctx context.Context, tenantID, reportID string) (*os.File, string, string, error)
	ResolveExportToken(ctx context.Context, token string) (*os.File, string, string, error)
	ListTemplates(ctx context.Context, tenantID string) ([]dto.TemplateSummary, error)
	Template(ctx context.Context, tenantID, id string) (*models.ReportTemplate, error)
	ReportByID(ctx context.Context, tenantID, id string) (*models.GeneratedReport, error)
	History(ctx context.Context, tenantID string, limit, offset int) ([]models.GeneratedReport, int, error)
}

// ReportHandler exposes report generation and download endpoints.
type ReportHandler struct {
	reports ReportGeneratorService
	logger  *zap.Logger
}

// NewReportHandler constructs the handler.
func NewReportHandler(reports ReportGeneratorService, logger *zap.Logger) *ReportHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportHandler{reports: reports, logger: logger}
}

// Generate godoc
// @Summary Generate a report from a template
// @Tags Reports
// @Accept json
// @Produce json
// @Param request body dto.GenerateReportRequest true "Generation request"
// @Success 200 {object} response.Envelope
// @Router /reports/generate [post]
func (h *ReportHandler) Generate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}
	if req.TemplateID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "templateId required"))
		return
	}

	result, err := h.reports.Generate(c.Request.Context(), claims.TenantID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Download godoc
// @Summary Download a generated report artifact
// @Tags Reports
// @Produce octet-stream
// @Param id path string true "Report ID"
// @Success 200 {file} binary
// @Router /reports/{id}/download [get]
func (h *ReportHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	file, contentType, filename, err := h.reports.Download(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	h.serveFile(c, file, contentType, filename)
}

// Export godoc
// @Summary Download a report via a signed link
// @Tags Reports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} binary
// @Router /export/{token} [get]
func (h *ReportHandler) Export(c *gin.Context) {
	file, contentType, filename, err := h.reports.ResolveExportToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	h.serveFile(c, file, contentType, filename)
}

// ListTemplates godoc
// @Summary List report templates available to the tenant
// @Tags Reports
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /reports/templates [get]
func (h *ReportHandler) ListTemplates(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	templates, err := h.reports.ListTemplates(c.Request.Context(), claims.TenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, nil)
}

// GetTemplate godoc
// @Summary Get one report template
// @Tags Reports
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} response.Envelope
// @Router /reports/templates/{id} [get]
func (h *ReportHandler) GetTemplate(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	tpl, err := h.reports.Template(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, tpl, nil)
}

// GetReport godoc
// @Summary Get the metadata of one generated report
// @Tags Reports
// @Produce json
// @Param id path string true "Report ID"
// @Success 200 {object} response.Envelope
// @Router /reports/{id} [get]
func (h *ReportHandler) GetReport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	record, err := h.reports.ReportByID(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// History godoc
// @Summary List previously generated reports
// @Tags Reports
// @Produce json
// @Param page query int false "Page number"
// @Param pageSize query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /reports [get]
func (h *ReportHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	reports, total, err := h.reports.History(c.Request.Context(), claims.TenantID, pageSize, (page-1)*pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}

	totalPages := (total + pageSize - 1) / pageSize
	response.JSON(c, http.StatusOK, reports, &response.Pagination{
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: totalPages,
	})
}

func (h *ReportHandler) serveFile(c *gin.Context, file *os.File, contentType, filename string) {
	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.ErrArtifactNotFound)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, nil)
}
