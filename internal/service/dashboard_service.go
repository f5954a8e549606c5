package service

import (
	"context"

	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/repository"
)

// AdminDashboard holds the admin overview counters.
type AdminDashboard struct {
	TotalStudents   int `json:"total_students"`
	TotalTeachers   int `json:"total_teachers"`
	ActiveExams     int `json:"active_exams"`
	TotalViolations int `json:"total_violations"`
}

// TeacherDashboard holds the live proctoring counters.
type TeacherDashboard struct {
	TotalActive     int `json:"total_active"`
	TotalViolations int `json:"total_violations"`
	FlaggedStudents int `json:"flagged_students"`
}

// DashboardService derives dashboard counters from current snapshots.
type DashboardService struct {
	store *repository.Store
}

// NewDashboardService creates a new DashboardService.
func NewDashboardService(store *repository.Store) *DashboardService {
	return &DashboardService{store: store}
}

func (s *DashboardService) Admin(ctx context.Context) (*AdminDashboard, error) {
	students, err := s.store.Students.List(ctx)
	if err != nil {
		return nil, err
	}
	teachers, err := s.store.Teachers.List(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.store.Exams.List(ctx, model.ExamStatusActive)
	if err != nil {
		return nil, err
	}
	_, violations, err := s.store.Violations.List(ctx, model.ViolationFilter{}, 1, 0)
	if err != nil {
		return nil, err
	}

	return &AdminDashboard{
		TotalStudents:   len(students),
		TotalTeachers:   len(teachers),
		ActiveExams:     len(active),
		TotalViolations: violations,
	}, nil
}

// Teacher counts open sessions; an empty examID covers every exam.
func (s *DashboardService) Teacher(ctx context.Context, examID string) (*TeacherDashboard, error) {
	sessions, err := s.store.Sessions.List(ctx, examID, "")
	if err != nil {
		return nil, err
	}
	_, violations, err := s.store.Violations.List(ctx, model.ViolationFilter{ExamID: examID}, 1, 0)
	if err != nil {
		return nil, err
	}

	data := &TeacherDashboard{TotalViolations: violations}
	for _, sess := range sessions {
		if sess.Status == model.SessionStatusFlagged {
			data.FlaggedStudents++
		}
		if sess.Open() && sess.Status != model.SessionStatusCompleted {
			data.TotalActive++
		}
	}
	return data, nil
}
