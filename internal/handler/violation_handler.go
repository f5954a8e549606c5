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

// ViolationHandler exposes the violation log to teachers.
type ViolationHandler struct {
	violationService *service.ViolationService
	log              zerolog.Logger
}

func NewViolationHandler(violationService *service.ViolationService, log zerolog.Logger) *ViolationHandler {
	return &ViolationHandler{
		violationService: violationService,
		log:              log.With().Str("component", "violation_handler").Logger(),
	}
}

// ListViolations godoc
// GET /api/v1/teacher/violations
// Filters: student_id, exam_id, severity. Newest first.
func (h *ViolationHandler) ListViolations(c *gin.Context) {
	var q model.ListViolationsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	violations, pagination, err := h.violationService.List(c.Request.Context(), q.Filter(), q.Page, q.PerPage)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"violations": violations}, pagination)
}

// GetViolationStats godoc
// GET /api/v1/teacher/violations/stats
func (h *ViolationHandler) GetViolationStats(c *gin.Context) {
	var q model.ListViolationsQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	stats, err := h.violationService.Stats(c.Request.Context(), q.Filter())
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"stats": stats})
}
