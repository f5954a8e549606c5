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

// TeacherManagementHandler handles admin-facing teacher directory CRUD.
type TeacherManagementHandler struct {
	teacherService *service.TeacherService
	log            zerolog.Logger
}

func NewTeacherManagementHandler(teacherService *service.TeacherService, log zerolog.Logger) *TeacherManagementHandler {
	return &TeacherManagementHandler{
		teacherService: teacherService,
		log:            log.With().Str("component", "teacher_management_handler").Logger(),
	}
}

// ListTeachers godoc
// GET /api/v1/admin/teachers
func (h *TeacherManagementHandler) ListTeachers(c *gin.Context) {
	teachers, pagination, err := h.teacherService.List(c.Request.Context(), queryInt(c, "page", 1), queryInt(c, "per_page", 10))
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"teachers": teachers}, pagination)
}

// GetTeacher godoc
// GET /api/v1/admin/teachers/:id
func (h *TeacherManagementHandler) GetTeacher(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	teacher, err := h.teacherService.GetByID(c.Request.Context(), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"teacher": teacher})
}

// CreateTeacher godoc
// POST /api/v1/admin/teachers
func (h *TeacherManagementHandler) CreateTeacher(c *gin.Context) {
	var req model.CreateTeacherRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	teacher, err := h.teacherService.Create(c.Request.Context(), service.TeacherInput{
		Name:       req.Name,
		Email:      req.Email,
		Department: req.Department,
		Status:     req.Status,
	})
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"teacher": teacher})
}

// UpdateTeacher godoc
// PUT /api/v1/admin/teachers/:id
func (h *TeacherManagementHandler) UpdateTeacher(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateTeacherRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	teacher, err := h.teacherService.Update(c.Request.Context(), id, service.TeacherInput{
		Name:       req.Name,
		Email:      req.Email,
		Department: req.Department,
		Status:     req.Status,
	})
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"teacher": teacher})
}

// DeleteTeacher godoc
// DELETE /api/v1/admin/teachers/:id
func (h *TeacherManagementHandler) DeleteTeacher(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.teacherService.Delete(c.Request.Context(), id); err != nil {
		failFromError(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"message": "teacher deleted successfully"})
}
