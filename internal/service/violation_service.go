package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/repository"
	"github.com/cecproctor/proctor-backend/internal/response"
)

// ViolationService appends proctoring events to the bounded violation log and
// applies them to the matching session.
type ViolationService struct {
	violationRepo repository.ViolationRepository
	sessionRepo   repository.SessionRepository
	studentRepo   repository.StudentRepository
	examRepo      repository.ExamRepository
	settings      *SettingService
	activity      *ActivityService
	monitor       *MonitorService
	logCap        int
	log           zerolog.Logger
}

// NewViolationService creates a new ViolationService. logCap is the number of
// newest violations retained.
func NewViolationService(
	store *repository.Store,
	settings *SettingService,
	activity *ActivityService,
	monitor *MonitorService,
	logCap int,
	log zerolog.Logger,
) *ViolationService {
	return &ViolationService{
		violationRepo: store.Violations,
		sessionRepo:   store.Sessions,
		studentRepo:   store.Students,
		examRepo:      store.Exams,
		settings:      settings,
		activity:      activity,
		monitor:       monitor,
		logCap:        logCap,
		log:           log.With().Str("component", "violation_service").Logger(),
	}
}

// ViolationInput is one event reported by the proctoring client.
// It doubles as the ingest queue payload.
type ViolationInput struct {
	StudentID   string              `json:"student_id"`
	ExamID      string              `json:"exam_id"`
	Type        model.ViolationType `json:"type"`
	Description string              `json:"description"`
	Severity    model.Severity      `json:"severity"`
}

func (in ViolationInput) validate() error {
	fe := fieldErrors{}
	fe.required("student_id", in.StudentID)
	fe.required("exam_id", in.ExamID)
	if !in.Type.Valid() {
		fe["type"] = "is not a known violation type"
	}
	if !in.Severity.Valid() {
		fe["severity"] = "must be one of low, medium, high"
	}
	return fe.err()
}

// Record appends the violation with name and title snapshots and bumps the
// student's open session in the same step, flagging it at the configured
// threshold. Nothing is written when it fails, so callers may retry. The
// returned session is nil when the student has no session for the exam.
func (s *ViolationService) Record(ctx context.Context, in ViolationInput) (*model.Violation, *model.Session, error) {
	if err := in.validate(); err != nil {
		return nil, nil, err
	}

	now := timestamp()
	v := &model.Violation{
		ID:          uuid.NewString(),
		StudentID:   strings.TrimSpace(in.StudentID),
		ExamID:      strings.TrimSpace(in.ExamID),
		Type:        in.Type,
		Description: strings.TrimSpace(in.Description),
		Severity:    in.Severity,
		Timestamp:   now,
	}
	student, err := s.studentRepo.GetByStudentID(ctx, v.StudentID)
	switch {
	case err == nil:
		v.StudentID = student.StudentID
		v.StudentName = student.Name
	case errors.Is(err, repository.ErrNotFound):
		v.StudentID = canonicalStudentID(v.StudentID)
		v.StudentName = v.StudentID
	default:
		return nil, nil, fmt.Errorf("lookup student: %w", err)
	}
	if exam, err := s.examRepo.GetByID(ctx, v.ExamID); err == nil {
		v.ExamTitle = exam.Title
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("lookup exam: %w", err)
	}

	threshold, err := s.settings.ViolationThreshold(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load threshold: %w", err)
	}
	before, session, err := s.violationRepo.Record(ctx, v, s.logCap, threshold)
	if err != nil {
		return nil, nil, fmt.Errorf("record violation: %w", err)
	}

	if before != nil && before.Status == model.SessionStatusActive && session.Status == model.SessionStatusFlagged {
		s.log.Warn().Str("session_id", session.ID).Str("student_id", session.StudentID).
			Int("violations", session.ViolationCount).Msg("Session flagged")
		s.activity.record(ctx, model.LogTypeViolation,
			fmt.Sprintf("Student flagged: %s (%d violations)", v.StudentName, session.ViolationCount), model.SeverityHigh)
		s.monitor.Publish(ctx, MonitorEvent{Type: MonitorSessionFlagged, ExamID: session.ExamID, Session: session})
	}
	s.activity.record(ctx, model.LogTypeViolation,
		fmt.Sprintf("%s detected for %s in %s", v.Type, v.StudentName, displayTitle(v)), v.Severity)
	s.monitor.Publish(ctx, MonitorEvent{Type: MonitorViolation, ExamID: v.ExamID, Violation: v, Session: session})
	return v, session, nil
}

func displayTitle(v *model.Violation) string {
	if v.ExamTitle == "" {
		return v.ExamID
	}
	return v.ExamTitle
}

// RecordForSession records a violation on behalf of a joined session.
func (s *ViolationService) RecordForSession(ctx context.Context, sessionID string, typ model.ViolationType, description string, severity model.Severity) (*model.Violation, *model.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, nil, mapRepoErr(err)
	}
	return s.Record(ctx, ViolationInput{
		StudentID:   session.StudentID,
		ExamID:      session.ExamID,
		Type:        typ,
		Description: description,
		Severity:    severity,
	})
}

// List returns violations newest first.
func (s *ViolationService) List(ctx context.Context, f model.ViolationFilter, page, perPage int) ([]model.Violation, *response.Pagination, error) {
	if f.Severity != "" && !f.Severity.Valid() {
		return nil, nil, &ValidationError{Fields: map[string]string{"severity": "must be one of low, medium, high"}}
	}
	page, perPage, limit, offset := normalizePage(page, perPage)
	violations, total, err := s.violationRepo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	return violations, buildPagination(page, perPage, total), nil
}

// Stats aggregates the retained log with severity weights low=1, medium=2, high=3.
func (s *ViolationService) Stats(ctx context.Context, f model.ViolationFilter) (*model.ViolationStats, error) {
	violations, _, err := s.violationRepo.List(ctx, f, 0, 0)
	if err != nil {
		return nil, err
	}
	return computeStats(violations), nil
}

func computeStats(violations []model.Violation) *model.ViolationStats {
	stats := &model.ViolationStats{
		BySeverity: map[model.Severity]int{
			model.SeverityLow:    0,
			model.SeverityMedium: 0,
			model.SeverityHigh:   0,
		},
		ByType:        make(map[model.ViolationType]int),
		StudentScores: make(map[string]int),
	}
	for _, v := range violations {
		w := v.Severity.Weight()
		stats.Total++
		stats.BySeverity[v.Severity]++
		stats.ByType[v.Type]++
		stats.WeightedScore += w
		stats.StudentScores[v.StudentID] += w
	}
	return stats
}
