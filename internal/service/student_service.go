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

// StudentService manages the student directory.
type StudentService struct {
	studentRepo repository.StudentRepository
	activity    *ActivityService
	log         zerolog.Logger
}

// NewStudentService creates a new StudentService.
func NewStudentService(studentRepo repository.StudentRepository, activity *ActivityService, log zerolog.Logger) *StudentService {
	return &StudentService{
		studentRepo: studentRepo,
		activity:    activity,
		log:         log.With().Str("component", "student_service").Logger(),
	}
}

// StudentInput carries the writable student fields.
type StudentInput struct {
	StudentID string
	Name      string
	Email     string
	Status    model.StudentStatus
}

func (in StudentInput) validate() error {
	fe := fieldErrors{}
	fe.required("student_id", in.StudentID)
	fe.required("name", in.Name)
	fe.required("email", in.Email)
	if in.Status != "" && !in.Status.Valid() {
		fe["status"] = "must be one of active, suspended"
	}
	return fe.err()
}

func (in StudentInput) apply(s *model.Student) {
	s.StudentID = strings.TrimSpace(in.StudentID)
	s.Name = strings.TrimSpace(in.Name)
	s.Email = strings.TrimSpace(in.Email)
	if in.Status != "" {
		s.Status = in.Status
	}
}

// Create adds a student. student_id and email must be unique.
func (s *StudentService) Create(ctx context.Context, in StudentInput) (*model.Student, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := timestamp()
	student := &model.Student{
		ID:        uuid.NewString(),
		Status:    model.StudentStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	in.apply(student)

	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, fmt.Errorf("create student: %w", mapRepoErr(err))
	}

	s.activity.record(ctx, model.LogTypeSystem,
		fmt.Sprintf("New student added: %s (%s)", student.Name, student.StudentID), model.SeverityMedium)
	return student, nil
}

// Update replaces a student's fields by id.
func (s *StudentService) Update(ctx context.Context, id string, in StudentInput) (*model.Student, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	in.apply(student)
	student.UpdatedAt = timestamp()

	if err := s.studentRepo.Update(ctx, student); err != nil {
		return nil, fmt.Errorf("update student: %w", mapRepoErr(err))
	}

	s.activity.record(ctx, model.LogTypeSystem,
		fmt.Sprintf("Student updated: %s (%s)", student.Name, student.StudentID), model.SeverityMedium)
	return student, nil
}

// Delete removes a student. Recorded violations keep their name snapshot.
func (s *StudentService) Delete(ctx context.Context, id string) error {
	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return mapRepoErr(err)
	}
	if err := s.studentRepo.Delete(ctx, id); err != nil {
		return mapRepoErr(err)
	}

	s.activity.record(ctx, model.LogTypeSystem,
		fmt.Sprintf("Student deleted: %s (%s)", student.Name, student.StudentID), model.SeverityHigh)
	return nil
}

func (s *StudentService) GetByID(ctx context.Context, id string) (*model.Student, error) {
	student, err := s.studentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return student, nil
}

// List returns students ordered by name.
func (s *StudentService) List(ctx context.Context, page, perPage int) ([]model.Student, *response.Pagination, error) {
	page, perPage, limit, offset := normalizePage(page, perPage)
	students, err := s.studentRepo.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return pageSlice(students, limit, offset), buildPagination(page, perPage, len(students)), nil
}
