package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/response"
	"github.com/cecproctor/proctor-backend/internal/service"
	"github.com/cecproctor/proctor-backend/internal/validator"
)

// ExamHandler handles teacher-facing exam management.
type ExamHandler struct {
	examService    *service.ExamService
	sessionService *service.SessionService
	log            zerolog.Logger
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(examService *service.ExamService, sessionService *service.SessionService, log zerolog.Logger) *ExamHandler {
	return &ExamHandler{
		examService:    examService,
		sessionService: sessionService,
		log:            log.With().Str("component", "exam_handler").Logger(),
	}
}

// ListExams godoc
// GET /api/v1/teacher/exams
func (h *ExamHandler) ListExams(c *gin.Context) {
	status := model.ExamStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"status": "must be one of draft, active, completed, cancelled",
		})
		return
	}

	exams, pagination, err := h.examService.List(c.Request.Context(), status, queryInt(c, "page", 1), queryInt(c, "per_page", 10))
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"exams": exams}, pagination)
}

// GetExam godoc
// GET /api/v1/teacher/exams/:id
func (h *ExamHandler) GetExam(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	exam, err := h.examService.GetByID(c.Request.Context(), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// CreateExam godoc
// POST /api/v1/teacher/exams
// The access code is generated server side and returned as unique_id.
func (h *ExamHandler) CreateExam(c *gin.Context) {
	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Create(c.Request.Context(), service.ExamInput{
		Title:           req.Title,
		Description:     req.Description,
		FormURL:         req.FormURL,
		DurationMinutes: req.DurationMinutes,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
	})
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"exam": exam})
}

// UpdateExam godoc
// PUT /api/v1/teacher/exams/:id
func (h *ExamHandler) UpdateExam(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.examService.Update(c.Request.Context(), id, service.ExamInput{
		Title:           req.Title,
		Description:     req.Description,
		FormURL:         req.FormURL,
		DurationMinutes: req.DurationMinutes,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
	}, req.Status)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// DeleteExam godoc
// DELETE /api/v1/teacher/exams/:id
func (h *ExamHandler) DeleteExam(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.examService.Delete(c.Request.Context(), id); err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "exam deleted successfully"})
}

// ActivateExam godoc
// POST /api/v1/teacher/exams/:id/activate
func (h *ExamHandler) ActivateExam(c *gin.Context) {
	h.transition(c, h.examService.Activate)
}

// CompleteExam godoc
// POST /api/v1/teacher/exams/:id/complete
func (h *ExamHandler) CompleteExam(c *gin.Context) {
	h.transition(c, h.examService.Complete)
}

// CancelExam godoc
// POST /api/v1/teacher/exams/:id/cancel
func (h *ExamHandler) CancelExam(c *gin.Context) {
	h.transition(c, h.examService.Cancel)
}

func (h *ExamHandler) transition(c *gin.Context, fn func(ctx context.Context, id string) (*model.Exam, error)) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	exam, err := fn(c.Request.Context(), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"exam": exam})
}

// ListSessions godoc
// GET /api/v1/teacher/exams/:id/sessions
func (h *ExamHandler) ListSessions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	status := model.SessionStatus(c.Query("status"))
	if status != "" && !status.Valid() {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{
			"status": "must be one of active, flagged, completed",
		})
		return
	}

	if _, err := h.examService.GetByID(c.Request.Context(), id); err != nil {
		failFromError(c, h.log, err)
		return
	}

	sessions, err := h.sessionService.List(c.Request.Context(), id, status)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}
