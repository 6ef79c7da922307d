package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hms-report-api/internal/dto"
	"github.com/noah-isme/hms-report-api/internal/models"
	appErrors "github.com/noah-isme/hms-report-api/pkg/errors"
	"github.com/noah-isme/hms-report-api/pkg/response"
)

// ScheduleManagerService is the surface of ScheduleService the handler uses.
type ScheduleManagerService interface {
	Create(ctx context.Context, tenantID, userID string, req dto.ScheduleRequest) (*models.ReportSchedule, error)
	Update(ctx context.Context, tenantID, id string, req dto.ScheduleRequest) (*models.ReportSchedule, error)
	GetByID(ctx context.Context, tenantID, id string) (*models.ReportSchedule, error)
	List(ctx context.Context, tenantID string) ([]models.ReportSchedule, error)
	Delete(ctx context.Context, tenantID, id string) error
}

// ScheduleHandler exposes schedule CRUD endpoints.
type ScheduleHandler struct {
	schedules ScheduleManagerService
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(schedules ScheduleManagerService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules}
}

// Create godoc
// @Summary Create a report schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param request body dto.ScheduleRequest true "Schedule definition"
// @Success 201 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	schedule, err := h.schedules.Create(c.Request.Context(), claims.TenantID, claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// Update godoc
// @Summary Update a report schedule
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param request body dto.ScheduleRequest true "Schedule definition"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, err.Error()))
		return
	}

	schedule, err := h.schedules.Update(c.Request.Context(), claims.TenantID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Get godoc
// @Summary Get one report schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	schedule, err := h.schedules.GetByID(c.Request.Context(), claims.TenantID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// List godoc
// @Summary List the tenant's report schedules
// @Tags Schedules
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	schedules, err := h.schedules.List(c.Request.Context(), claims.TenantID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, nil)
}

// Delete godoc
// @Summary Delete a report schedule
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.schedules.Delete(c.Request.Context(), claims.TenantID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
