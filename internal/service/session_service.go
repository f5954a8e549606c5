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
)

// SessionService tracks one attempt per (student, exam): joining by access
// code, activity, countdown and submission.
type SessionService struct {
	exams       *ExamService
	studentRepo repository.StudentRepository
	sessionRepo repository.SessionRepository
	activity    *ActivityService
	monitor     *MonitorService
	log         zerolog.Logger
}

// NewSessionService creates a new SessionService.
func NewSessionService(
	exams *ExamService,
	studentRepo repository.StudentRepository,
	sessionRepo repository.SessionRepository,
	activity *ActivityService,
	monitor *MonitorService,
	log zerolog.Logger,
) *SessionService {
	return &SessionService{
		exams:       exams,
		studentRepo: studentRepo,
		sessionRepo: sessionRepo,
		activity:    activity,
		monitor:     monitor,
		log:         log.With().Str("component", "session_service").Logger(),
	}
}

// Join validates the access code and opens the student's session. Joining
// twice returns the existing session.
func (s *SessionService) Join(ctx context.Context, studentID, accessCode string) (*model.Session, *model.Exam, error) {
	studentID = strings.TrimSpace(studentID)
	fe := fieldErrors{}
	fe.required("student_id", studentID)
	fe.required("access_code", accessCode)
	if err := fe.err(); err != nil {
		return nil, nil, err
	}

	exam, err := s.exams.ValidateAccessCode(ctx, accessCode)
	if err != nil {
		return nil, nil, err
	}

	// Unknown ids may still join; only suspended directory entries are refused.
	student, err := s.studentRepo.GetByStudentID(ctx, studentID)
	switch {
	case err == nil:
		if student.Status == model.StudentStatusSuspended {
			return nil, nil, ErrStudentSuspended
		}
		studentID = student.StudentID
	case errors.Is(err, repository.ErrNotFound):
		studentID = canonicalStudentID(studentID)
	default:
		return nil, nil, fmt.Errorf("lookup student: %w", err)
	}
	name := studentID
	if student != nil {
		name = student.Name
	}

	now := timestamp()
	session, created, err := s.sessionRepo.CreateIfAbsent(ctx, &model.Session{
		ID:                   uuid.NewString(),
		StudentID:            studentID,
		ExamID:               exam.ID,
		Status:               model.SessionStatusActive,
		TimeRemainingSeconds: exam.DurationMinutes * 60,
		LastActivityAt:       now,
		StartedAt:            now,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", mapRepoErr(err))
	}

	if created {
		s.log.Info().Str("session_id", session.ID).Str("student_id", studentID).Str("exam_id", exam.ID).Msg("Session started")
		s.activity.record(ctx, model.LogTypeLogin,
			fmt.Sprintf("Student joined exam: %s (%s)", name, exam.UniqueID), model.SeverityLow)
		s.monitor.Publish(ctx, MonitorEvent{Type: MonitorSessionJoined, ExamID: exam.ID, Session: session})
	}
	return session, exam, nil
}

func (s *SessionService) GetByID(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return session, nil
}

// List filters sessions by exam and status; empty values match all.
func (s *SessionService) List(ctx context.Context, examID string, status model.SessionStatus) ([]model.Session, error) {
	if status != "" && !status.Valid() {
		return nil, &ValidationError{Fields: map[string]string{"status": "must be one of active, flagged, completed"}}
	}
	return s.sessionRepo.List(ctx, examID, status)
}

// RecordActivity refreshes the last activity time of an open session.
func (s *SessionService) RecordActivity(ctx context.Context, id string) (*model.Session, error) {
	session, err := s.sessionRepo.Touch(ctx, id, timestamp())
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if !session.Open() {
		return session, ErrSessionClosed
	}
	return session, nil
}

// Submit ends the session. Active sessions complete; flagged ones stay
// flagged. Submitting an ended session returns it unchanged.
func (s *SessionService) Submit(ctx context.Context, id string) (*model.Session, error) {
	current, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if !current.Open() {
		return current, nil
	}

	session, err := s.sessionRepo.End(ctx, id, timestamp())
	if err != nil {
		return nil, mapRepoErr(err)
	}
	s.log.Info().Str("session_id", id).Str("status", string(session.Status)).Msg("Session submitted")
	s.monitor.Publish(ctx, MonitorEvent{Type: MonitorSessionEnded, ExamID: session.ExamID, Session: session})
	return session, nil
}

// Tick counts a session down by elapsedSeconds and ends it at zero.
// Ticks on an ended session change nothing.
func (s *SessionService) Tick(ctx context.Context, id string, elapsedSeconds int) (*model.Session, error) {
	if elapsedSeconds < 0 {
		return nil, &ValidationError{Fields: map[string]string{"elapsed_seconds": "must not be negative"}}
	}

	current, err := s.sessionRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if !current.Open() {
		return current, nil
	}

	session, err := s.sessionRepo.Tick(ctx, id, elapsedSeconds, timestamp())
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if !session.Open() {
		s.monitor.Publish(ctx, MonitorEvent{Type: MonitorSessionEnded, ExamID: session.ExamID, Session: session})
	}
	return session, nil
}

// TickAll counts every open session down and returns the ones that timed out.
func (s *SessionService) TickAll(ctx context.Context, elapsedSeconds int) ([]model.Session, error) {
	if elapsedSeconds < 0 {
		return nil, &ValidationError{Fields: map[string]string{"elapsed_seconds": "must not be negative"}}
	}

	ended, err := s.sessionRepo.TickOpen(ctx, elapsedSeconds, timestamp())
	if err != nil {
		return nil, err
	}
	for i := range ended {
		s.monitor.Publish(ctx, MonitorEvent{Type: MonitorSessionEnded, ExamID: ended[i].ExamID, Session: &ended[i]})
	}
	if len(ended) > 0 {
		s.log.Info().Int("count", len(ended)).Msg("Sessions timed out")
	}
	return ended, nil
}

// canonicalStudentID is the form stored for ids missing from the directory,
// matching the case-insensitive directory lookup.
func canonicalStudentID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}
