package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cecproctor/proctor-backend/internal/middleware"
	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/response"
	"github.com/cecproctor/proctor-backend/internal/service"
	"github.com/cecproctor/proctor-backend/internal/validator"
)

// StudentPortalHandler handles student-facing endpoints: joining by access
// code and the proctoring calls made while an exam is running.
type StudentPortalHandler struct {
	sessionService   *service.SessionService
	examService      *service.ExamService
	violationService *service.ViolationService
	tokenService     *service.TokenService
	log              zerolog.Logger
}

// NewStudentPortalHandler creates a new StudentPortalHandler.
func NewStudentPortalHandler(
	sessionService *service.SessionService,
	examService *service.ExamService,
	violationService *service.ViolationService,
	tokenService *service.TokenService,
	log zerolog.Logger,
) *StudentPortalHandler {
	return &StudentPortalHandler{
		sessionService:   sessionService,
		examService:      examService,
		violationService: violationService,
		tokenService:     tokenService,
		log:              log.With().Str("component", "student_portal_handler").Logger(),
	}
}

// JoinExam godoc
// POST /api/v1/student/join
// Validates the access code and opens a session (idempotent per student and exam).
func (h *StudentPortalHandler) JoinExam(c *gin.Context) {
	var req model.JoinExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, exam, err := h.sessionService.Join(c.Request.Context(), req.StudentID, req.AccessCode)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			response.Fail(c, http.StatusNotFound, response.ErrInvalidAccessCode)
			return
		}
		failFromError(c, h.log, err)
		return
	}

	token, err := h.tokenService.Issue(session)
	if err != nil {
		h.log.Error().Err(err).Str("session_id", session.ID).Msg("Failed to issue session token")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}

	response.Success(c, http.StatusOK, model.JoinExamResponse{
		Session: session,
		Exam:    exam,
		Token:   token,
	})
}

// GetSession godoc
// GET /api/v1/proctor/session
func (h *StudentPortalHandler) GetSession(c *gin.Context) {
	session := middleware.GetSession(c)

	exam, err := h.examService.GetByID(c.Request.Context(), session.ExamID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session, "exam": exam})
}

// ReportViolation godoc
// POST /api/v1/proctor/violations
func (h *StudentPortalHandler) ReportViolation(c *gin.Context) {
	session := middleware.GetSession(c)

	var req model.ReportViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	violation, updated, err := h.violationService.RecordForSession(c.Request.Context(), session.ID, req.Type, req.Description, req.Severity)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"violation": violation, "session": updated})
}

// RecordActivity godoc
// POST /api/v1/proctor/activity
// Heartbeat from the proctoring client; refreshes last_activity_at.
func (h *StudentPortalHandler) RecordActivity(c *gin.Context) {
	session := middleware.GetSession(c)

	updated, err := h.sessionService.RecordActivity(c.Request.Context(), session.ID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": updated})
}

// SubmitExam godoc
// POST /api/v1/proctor/submit
func (h *StudentPortalHandler) SubmitExam(c *gin.Context) {
	session := middleware.GetSession(c)

	updated, err := h.sessionService.Submit(c.Request.Context(), session.ID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": updated})
}
