package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/response"
	"github.com/cecproctor/proctor-backend/internal/service"
	"github.com/cecproctor/proctor-backend/internal/validator"
)

// ActivityHandler serves the system activity log.
type ActivityHandler struct {
	activityService *service.ActivityService
	log             zerolog.Logger
}

func NewActivityHandler(activityService *service.ActivityService, log zerolog.Logger) *ActivityHandler {
	return &ActivityHandler{
		activityService: activityService,
		log:             log.With().Str("component", "activity_handler").Logger(),
	}
}

// ListLogs godoc
// GET /api/v1/admin/logs
func (h *ActivityHandler) ListLogs(c *gin.Context) {
	var q model.ListLogsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	entries, pagination, err := h.activityService.List(c.Request.Context(), model.LogFilter{
		Type:     q.Type,
		Severity: q.Severity,
	}, q.Page, q.PerPage)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"logs": entries}, pagination)
}

// AppendLog godoc
// POST /api/v1/admin/logs
func (h *ActivityHandler) AppendLog(c *gin.Context) {
	var req model.AppendLogRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	entry, err := h.activityService.Append(c.Request.Context(), req.Type, req.Message, req.Severity)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"log": entry})
}
