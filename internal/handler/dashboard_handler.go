package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cecproctor/proctor-backend/internal/response"
	"github.com/cecproctor/proctor-backend/internal/service"
)

// DashboardHandler handles admin and teacher dashboard endpoints.
type DashboardHandler struct {
	dashboardService *service.DashboardService
	log              zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		log:              log.With().Str("component", "dashboard_handler").Logger(),
	}
}

// GetAdminDashboard godoc
// GET /api/v1/admin/dashboard
func (h *DashboardHandler) GetAdminDashboard(c *gin.Context) {
	data, err := h.dashboardService.Admin(c.Request.Context())
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, data)
}

// GetTeacherDashboard godoc
// GET /api/v1/teacher/dashboard
// Optional ?exam_id= narrows the counters to one exam.
func (h *DashboardHandler) GetTeacherDashboard(c *gin.Context) {
	examID := c.Query("exam_id")
	if examID != "" {
		if _, err := uuid.Parse(examID); err != nil {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
			return
		}
	}

	data, err := h.dashboardService.Teacher(c.Request.Context(), examID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, data)
}
