package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/repository"
	"github.com/cecproctor/proctor-backend/internal/response"
)

// TeacherService manages the teacher directory.
type TeacherService struct {
	teacherRepo repository.TeacherRepository
	activity    *ActivityService
	log         zerolog.Logger
}

func NewTeacherService(teacherRepo repository.TeacherRepository, activity *ActivityService, log zerolog.Logger) *TeacherService {
	return &TeacherService{
		teacherRepo: teacherRepo,
		activity:    activity,
		log:         log.With().Str("component", "teacher_service").Logger(),
	}
}

type TeacherInput struct {
	Name       string
	Email      string
	Department string
	Status     model.TeacherStatus
}

func (in TeacherInput) validate() error {
	fe := fieldErrors{}
	fe.required("name", in.Name)
	fe.required("email", in.Email)
	fe.required("department", in.Department)
	if in.Status != "" && !in.Status.Valid() {
		fe["status"] = "must be one of active, inactive"
	}
	return fe.err()
}

func (in TeacherInput) apply(t *model.Teacher) {
	t.Name = strings.TrimSpace(in.Name)
	t.Email = strings.TrimSpace(in.Email)
	t.Department = strings.TrimSpace(in.Department)
	if in.Status != "" {
		t.Status = in.Status
	}
}

func (s *TeacherService) Create(ctx context.Context, in TeacherInput) (*model.Teacher, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := timestamp()
	teacher := &model.Teacher{
		ID:        uuid.NewString(),
		Status:    model.TeacherStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(teacher)

	if err := s.teacherRepo.Create(ctx, teacher); err != nil {
		return nil, fmt.Errorf("create teacher: %w", mapRepoErr(err))
	}

	s.activity.record(ctx, model.LogTypeSystem,
		fmt.Sprintf("New teacher added: %s (%s)", teacher.Name, teacher.Department), model.SeverityMedium)
	return teacher, nil
}

func (s *TeacherService) Update(ctx context.Context, id string, in TeacherInput) (*model.Teacher, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	teacher, err := s.teacherRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	in.apply(teacher)
	teacher.UpdatedAt = timestamp()

	if err := s.teacherRepo.Update(ctx, teacher); err != nil {
		return nil, fmt.Errorf("update teacher: %w", mapRepoErr(err))
	}

	s.activity.record(ctx, model.LogTypeSystem,
		fmt.Sprintf("Teacher updated: %s (%s)", teacher.Name, teacher.Department), model.SeverityMedium)
	return teacher, nil
}

func (s *TeacherService) Delete(ctx context.Context, id string) error {
	teacher, err := s.teacherRepo.GetByID(ctx, id)
	if err != nil {
		return mapRepoErr(err)
	}
	if err := s.teacherRepo.Delete(ctx, id); err != nil {
		return mapRepoErr(err)
	}

	s.activity.record(ctx, model.LogTypeSystem,
		fmt.Sprintf("Teacher deleted: %s (%s)", teacher.Name, teacher.Department), model.SeverityHigh)
	return nil
}

func (s *TeacherService) GetByID(ctx context.Context, id string) (*model.Teacher, error) {
	teacher, err := s.teacherRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return teacher, nil
}

func (s *TeacherService) List(ctx context.Context, page, perPage int) ([]model.Teacher, *response.Pagination, error) {
	page, perPage, limit, offset := normalizePage(page, perPage)
	teachers, err := s.teacherRepo.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return pageSlice(teachers, limit, offset), buildPagination(page, perPage, len(teachers)), nil
}
