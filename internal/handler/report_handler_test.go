package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hms-report-api/internal/dto"
	"github.com/noah-isme/hms-report-api/internal/middleware"
	"github.com/noah-isme/hms-report-api/internal/models"
	appErrors "github.com/noah-isme/hms-report-api/pkg/errors"
)

type reportServiceMock struct {
	generateResp *dto.GenerateReportResponse
	generateErr  error
	downloadFile *os.File
	downloadErr  error
	templates    []dto.TemplateSummary
	history      []models.GeneratedReport
}

func (m *reportServiceMock) Generate(ctx context.Context, tenantID, userID string, req dto.GenerateReportRequest) (*dto.GenerateReportResponse, error) {
	return m.generateResp, m.generateErr
}

func (m *reportServiceMock) Download(ctx context.Context, tenantID, reportID string) (*os.File, string, string, error) {
	if m.downloadErr != nil {
		return nil, "", "", m.downloadErr
	}
	return m.downloadFile, "text/csv", "daily-revenue.csv", nil
}

func (m *reportServiceMock) ResolveExportToken(ctx context.Context, token string) (*os.File, string, string, error) {
	if m.downloadErr != nil {
		return nil, "", "", m.downloadErr
	}
	return m.downloadFile, "text/csv", "report.csv", nil
}

func (m *reportServiceMock) ListTemplates(ctx context.Context, tenantID string) ([]dto.TemplateSummary, error) {
	return m.templates, nil
}

func (m *reportServiceMock) Template(ctx context.Context, tenantID, id string) (*models.ReportTemplate, error) {
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return &models.ReportTemplate{ID: id, Name: "Revenue", DataSource: "payments"}, nil
}

func (m *reportServiceMock) ReportByID(ctx context.Context, tenantID, id string) (*models.GeneratedReport, error) {
	if m.downloadErr != nil {
		return nil, m.downloadErr
	}
	return &models.GeneratedReport{ID: id, TenantID: tenantID}, nil
}

func (m *reportServiceMock) History(ctx context.Context, tenantID string, limit, offset int) ([]models.GeneratedReport, int, error) {
	return m.history, len(m.history), nil
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func authedClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "user-1", TenantID: "tenant-1"}
}

func TestReportHandlerGenerate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		generateResp: &dto.GenerateReportResponse{ReportID: "rep-1", RowCount: 3, GeneratedAt: time.Now()},
	}
	handler := NewReportHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.GenerateReportRequest{TemplateID: "tpl-1", Format: models.ReportFormatCSV})
	c, w := newGinContext(http.MethodPost, "/reports/generate", payload)
	c.Set(middleware.ContextUserKey, authedClaims())

	handler.Generate(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "rep-1")
}

func TestReportHandlerGenerateRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{}, nil)

	payload, _ := json.Marshal(dto.GenerateReportRequest{TemplateID: "tpl-1", Format: models.ReportFormatCSV})
	c, w := newGinContext(http.MethodPost, "/reports/generate", payload)

	handler.Generate(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReportHandlerGenerateRequiresTemplateID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{}, nil)

	payload, _ := json.Marshal(dto.GenerateReportRequest{Format: models.ReportFormatCSV})
	c, w := newGinContext(http.MethodPost, "/reports/generate", payload)
	c.Set(middleware.ContextUserKey, authedClaims())

	handler.Generate(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportHandlerGenerateMapsDomainErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{generateErr: appErrors.ErrTemplateNotFound}
	handler := NewReportHandler(mockSvc, nil)

	payload, _ := json.Marshal(dto.GenerateReportRequest{TemplateID: "missing", Format: models.ReportFormatCSV})
	c, w := newGinContext(http.MethodPost, "/reports/generate", payload)
	c.Set(middleware.ContextUserKey, authedClaims())

	handler.Generate(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "TEMPLATE_NOT_FOUND")
}

func TestReportHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	file, err := os.CreateTemp(t.TempDir(), "report*.csv")
	require.NoError(t, err)
	_, _ = file.WriteString("Invoice,Amount\n")
	_, _ = file.Seek(0, 0)

	mockSvc := &reportServiceMock{downloadFile: file}
	handler := NewReportHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/reports/rep-1/download", nil)
	c.Params = gin.Params{{Key: "id", Value: "rep-1"}}
	c.Set(middleware.ContextUserKey, authedClaims())

	handler.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	require.Contains(t, w.Header().Get("Content-Disposition"), "daily-revenue.csv")
}

func TestReportHandlerGetTemplate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{}, nil)

	c, w := newGinContext(http.MethodGet, "/reports/templates/tpl-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "tpl-1"}}
	c.Set(middleware.ContextUserKey, authedClaims())

	handler.GetTemplate(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Revenue")
}

func TestReportHandlerGetReportMapsNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewReportHandler(&reportServiceMock{downloadErr: appErrors.ErrNotFound}, nil)

	c, w := newGinContext(http.MethodGet, "/reports/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}
	c.Set(middleware.ContextUserKey, authedClaims())

	handler.GetReport(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportHandlerExportServesSignedLink(t *testing.T) {
	gin.SetMode(gin.TestMode)
	file, err := os.CreateTemp(t.TempDir(), "report*.csv")
	require.NoError(t, err)
	_, _ = file.WriteString("data")
	_, _ = file.Seek(0, 0)

	mockSvc := &reportServiceMock{downloadFile: file}
	handler := NewReportHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/export/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestReportHandlerExportRejectsBadToken(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{downloadErr: appErrors.ErrArtifactNotFound}
	handler := NewReportHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/export/bad", nil)
	c.Params = gin.Params{{Key: "token", Value: "bad"}}

	handler.Export(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestReportHandlerListTemplates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		templates: []dto.TemplateSummary{{ID: "tpl-1", Name: "Revenue", DataSource: "payments"}},
	}
	handler := NewReportHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/reports/templates", nil)
	c.Set(middleware.ContextUserKey, authedClaims())

	handler.ListTemplates(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Revenue")
}

func TestReportHandlerHistoryPaginates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &reportServiceMock{
		history: []models.GeneratedReport{{ID: "rep-1", TenantID: "tenant-1"}},
	}
	handler := NewReportHandler(mockSvc, nil)

	c, w := newGinContext(http.MethodGet, "/reports?page=1&pageSize=10", nil)
	c.Set(middleware.ContextUserKey, authedClaims())

	handler.History(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "pagination")
}
