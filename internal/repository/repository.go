// Package repository declares the persistence ports used by the services.
// The postgres subpackage backs them with pgx; the memory subpackage keeps
// everything in process and is used by tests and STORAGE_DRIVER=memory.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cecproctor/proctor-backend/internal/model"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique business key is already taken.
	ErrDuplicate = errors.New("record already exists")
	// ErrAccessCodeTaken is returned when an access code was issued before,
	// including to exams that have since been deleted.
	ErrAccessCodeTaken = errors.New("access code already issued")
	// ErrStatusMismatch is returned by compare-and-set updates when the
	// stored status no longer matches the expected one.
	ErrStatusMismatch = errors.New("status changed concurrently")
)

type StudentRepository interface {
	Create(ctx context.Context, s *model.Student) error
	Update(ctx context.Context, s *model.Student) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.Student, error)
	// GetByStudentID looks a student up by business key, case-insensitively.
	GetByStudentID(ctx context.Context, studentID string) (*model.Student, error)
	List(ctx context.Context) ([]model.Student, error)
}

type TeacherRepository interface {
	Create(ctx context.Context, t *model.Teacher) error
	Update(ctx context.Context, t *model.Teacher) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.Teacher, error)
	List(ctx context.Context) ([]model.Teacher, error)
}

type ExamRepository interface {
	// Create reserves e.UniqueID and inserts the exam in one step.
	Create(ctx context.Context, e *model.Exam) error
	// Update replaces the editable fields of e if the stored status still
	// equals expected. UniqueID and CreatedAt are never written.
	Update(ctx context.Context, e *model.Exam, expected model.ExamStatus) error
	// UpdateStatus moves an exam from one status to another atomically.
	UpdateStatus(ctx context.Context, id string, from, to model.ExamStatus) (*model.Exam, error)
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*model.Exam, error)
	GetByAccessCode(ctx context.Context, code string) (*model.Exam, error)
	AccessCodeIssued(ctx context.Context, code string) (bool, error)
	// List returns exams newest first; an empty status matches all.
	List(ctx context.Context, status model.ExamStatus) ([]model.Exam, error)
}

type SessionRepository interface {
	// CreateIfAbsent inserts s unless a session for the same student and
	// exam exists, in which case the existing one is returned.
	CreateIfAbsent(ctx context.Context, s *model.Session) (*model.Session, bool, error)
	GetByID(ctx context.Context, id string) (*model.Session, error)
	GetByStudentAndExam(ctx context.Context, studentID, examID string) (*model.Session, error)
	// List filters by exam and status; empty values match all.
	List(ctx context.Context, examID string, status model.SessionStatus) ([]model.Session, error)
	// Touch sets last activity on an open session.
	Touch(ctx context.Context, id string, at time.Time) (*model.Session, error)
	// Tick decrements the remaining time of an open session, ending it at 0.
	Tick(ctx context.Context, id string, elapsedSeconds int, at time.Time) (*model.Session, error)
	// TickOpen ticks every open session and returns the ones that ended.
	TickOpen(ctx context.Context, elapsedSeconds int, at time.Time) ([]model.Session, error)
	// End closes an open session; active becomes completed, flagged stays.
	End(ctx context.Context, id string, at time.Time) (*model.Session, error)
}

type ViolationRepository interface {
	// Append stores v and drops the oldest entries beyond limit.
	Append(ctx context.Context, v *model.Violation, limit int) error
	// Record appends v like Append and, in the same atomic step, counts it
	// against the open session of v.StudentID in v.ExamID, flagging the
	// session once the count reaches threshold. It returns the session as it
	// was before and after; both are nil when no session exists.
	Record(ctx context.Context, v *model.Violation, limit, threshold int) (before, after *model.Session, err error)
	// List returns matching violations newest first with the total count.
	// limit <= 0 returns every match.
	List(ctx context.Context, f model.ViolationFilter, limit, offset int) ([]model.Violation, int, error)
}

type ActivityRepository interface {
	// Append stores e and drops the oldest entries beyond limit.
	Append(ctx context.Context, e *model.SystemLogEntry, limit int) error
	List(ctx context.Context, f model.LogFilter, limit, offset int) ([]model.SystemLogEntry, int, error)
}

type SettingRepository interface {
	GetAll(ctx context.Context) ([]model.AppSetting, error)
	// ReplaceAll upserts every pair in a single transaction.
	ReplaceAll(ctx context.Context, values map[string]string) error
}

// Store bundles every repository a running service needs.
type Store struct {
	Students   StudentRepository
	Teachers   TeacherRepository
	Exams      ExamRepository
	Sessions   SessionRepository
	Violations ViolationRepository
	Activity   ActivityRepository
	Settings   SettingRepository
}
