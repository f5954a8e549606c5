package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cecproctor/proctor-backend/internal/config"
	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/repository"
	"github.com/cecproctor/proctor-backend/internal/response"
)

// casRetries bounds compare-and-set retries on concurrent status changes.
const casRetries = 3

// ExamService is the exam registry: creation with unique access codes,
// lifecycle transitions and code validation.
type ExamService struct {
	examRepo    repository.ExamRepository
	rdb         *redis.Client
	maxAttempts int
	log         zerolog.Logger
}

// NewExamService creates a new ExamService. maxAttempts bounds access-code
// collision retries.
func NewExamService(examRepo repository.ExamRepository, rdb *redis.Client, maxAttempts int, log zerolog.Logger) *ExamService {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &ExamService{
		examRepo:    examRepo,
		rdb:         rdb,
		maxAttempts: maxAttempts,
		log:         log.With().Str("component", "exam_service").Logger(),
	}
}

// ExamInput carries the editable fields of an exam.
type ExamInput struct {
	Title           string
	Description     string
	FormURL         string
	DurationMinutes int
	StartTime       *time.Time
	EndTime         *time.Time
}

func (in ExamInput) validate() error {
	fe := fieldErrors{}
	fe.required("title", in.Title)
	fe.required("form_url", in.FormURL)
	if in.DurationMinutes <= 0 {
		fe["duration_minutes"] = "must be greater than 0"
	}
	if in.StartTime != nil && in.EndTime != nil && !in.EndTime.After(*in.StartTime) {
		fe["end_time"] = "must be after start_time"
	}
	return fe.err()
}

// Create persists a draft exam with a freshly reserved access code.
func (s *ExamService) Create(ctx context.Context, in ExamInput) (*model.Exam, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	now := timestamp()
	exam := &model.Exam{
		ID:              uuid.NewString(),
		Title:           strings.TrimSpace(in.Title),
		Description:     strings.TrimSpace(in.Description),
		FormURL:         strings.TrimSpace(in.FormURL),
		DurationMinutes: in.DurationMinutes,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		Status:          model.ExamStatusDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code := newAccessCode(exam.Title, now)
		issued, err := s.examRepo.AccessCodeIssued(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("check access code: %w", err)
		}
		if issued {
			s.log.Debug().Str("code", code).Int("attempt", attempt).Msg("Access code collision")
			continue
		}

		exam.UniqueID = code
		err = s.examRepo.Create(ctx, exam)
		if errors.Is(err, repository.ErrAccessCodeTaken) {
			s.log.Debug().Str("code", code).Int("attempt", attempt).Msg("Access code taken concurrently")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create exam: %w", mapRepoErr(err))
		}

		s.log.Info().Str("exam_id", exam.ID).Str("code", exam.UniqueID).Msg("Exam created")
		return exam, nil
	}

	s.log.Error().Str("title", exam.Title).Int("attempts", s.maxAttempts).Msg("Access code space exhausted")
	return nil, ErrCodeGeneration
}

// GetByID retrieves an exam by id.
func (s *ExamService) GetByID(ctx context.Context, id string) (*model.Exam, error) {
	exam, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return exam, nil
}

// List returns exams newest first, optionally filtered by status.
func (s *ExamService) List(ctx context.Context, status model.ExamStatus, page, perPage int) ([]model.Exam, *response.Pagination, error) {
	if status != "" && !status.Valid() {
		return nil, nil, &ValidationError{Fields: map[string]string{"status": "is not a valid exam status"}}
	}
	page, perPage, limit, offset := normalizePage(page, perPage)

	exams, err := s.examRepo.List(ctx, status)
	if err != nil {
		return nil, nil, err
	}
	return pageSlice(exams, limit, offset), buildPagination(page, perPage, len(exams)), nil
}

// Update replaces the editable fields. The access code and creation time are
// kept; a status change must follow the lifecycle.
func (s *ExamService) Update(ctx context.Context, id string, in ExamInput, status model.ExamStatus) (*model.Exam, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if status != "" && !status.Valid() {
		return nil, &ValidationError{Fields: map[string]string{"status": "is not a valid exam status"}}
	}

	for attempt := 0; attempt < casRetries; attempt++ {
		current, err := s.examRepo.GetByID(ctx, id)
		if err != nil {
			return nil, mapRepoErr(err)
		}

		target := current.Status
		if status != "" {
			target = status
		}
		if !current.Status.CanTransition(target) {
			return nil, invalidTransition(current.Status, target)
		}

		updated := *current
		updated.Title = strings.TrimSpace(in.Title)
		updated.Description = strings.TrimSpace(in.Description)
		updated.FormURL = strings.TrimSpace(in.FormURL)
		updated.DurationMinutes = in.DurationMinutes
		updated.StartTime = in.StartTime
		updated.EndTime = in.EndTime
		updated.Status = target
		updated.UpdatedAt = timestamp()

		err = s.examRepo.Update(ctx, &updated, current.Status)
		if errors.Is(err, repository.ErrStatusMismatch) {
			continue
		}
		if err != nil {
			return nil, mapRepoErr(err)
		}

		if target != current.Status {
			s.syncCodeCache(ctx, &updated)
		}
		return &updated, nil
	}
	return nil, fmt.Errorf("update exam %s: %w", id, repository.ErrStatusMismatch)
}

// Delete removes an exam. Its access code stays reserved.
func (s *ExamService) Delete(ctx context.Context, id string) error {
	exam, err := s.examRepo.GetByID(ctx, id)
	if err != nil {
		return mapRepoErr(err)
	}
	if err := s.examRepo.Delete(ctx, id); err != nil {
		return mapRepoErr(err)
	}
	s.dropCodeCache(ctx, exam.UniqueID)
	s.log.Info().Str("exam_id", id).Msg("Exam deleted")
	return nil
}

// Activate moves a draft exam to active. Activating an active exam is a no-op.
func (s *ExamService) Activate(ctx context.Context, id string) (*model.Exam, error) {
	return s.transition(ctx, id, model.ExamStatusActive)
}

// Complete closes an active exam.
func (s *ExamService) Complete(ctx context.Context, id string) (*model.Exam, error) {
	return s.transition(ctx, id, model.ExamStatusCompleted)
}

// Cancel cancels a draft or active exam.
func (s *ExamService) Cancel(ctx context.Context, id string) (*model.Exam, error) {
	return s.transition(ctx, id, model.ExamStatusCancelled)
}

func (s *ExamService) transition(ctx context.Context, id string, to model.ExamStatus) (*model.Exam, error) {
	for attempt := 0; attempt < casRetries; attempt++ {
		current, err := s.examRepo.GetByID(ctx, id)
		if err != nil {
			return nil, mapRepoErr(err)
		}
		if current.Status == to {
			return current, nil
		}
		if !current.Status.CanTransition(to) {
			return nil, invalidTransition(current.Status, to)
		}

		exam, err := s.examRepo.UpdateStatus(ctx, id, current.Status, to)
		if errors.Is(err, repository.ErrStatusMismatch) {
			continue
		}
		if err != nil {
			return nil, mapRepoErr(err)
		}

		s.syncCodeCache(ctx, exam)
		s.log.Info().Str("exam_id", id).Str("from", string(current.Status)).Str("to", string(to)).Msg("Exam status changed")
		return exam, nil
	}
	return nil, fmt.Errorf("transition exam %s: %w", id, repository.ErrStatusMismatch)
}

// ValidateAccessCode resolves a code to an exam that students may join.
// Matching ignores case and surrounding whitespace.
func (s *ExamService) ValidateAccessCode(ctx context.Context, code string) (*model.Exam, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, &ValidationError{Fields: map[string]string{"access_code": "is required"}}
	}

	exam, err := s.lookupCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if exam.Status != model.ExamStatusActive {
		return nil, fmt.Errorf("%w: %s is %s", ErrExamNotActive, exam.UniqueID, exam.Status)
	}
	return exam, nil
}

func (s *ExamService) lookupCode(ctx context.Context, code string) (*model.Exam, error) {
	if s.rdb != nil {
		examID, err := s.rdb.Get(ctx, config.CacheKey.AccessCodeKey(code)).Result()
		switch {
		case err == nil:
			exam, err := s.examRepo.GetByID(ctx, examID)
			if err == nil {
				return exam, nil
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return nil, err
			}
			s.dropCodeCache(ctx, code)
		case !errors.Is(err, redis.Nil):
			s.log.Warn().Err(err).Msg("Access code cache read failed")
		}
	}

	exam, err := s.examRepo.GetByAccessCode(ctx, code)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	if exam.Status == model.ExamStatusActive {
		s.syncCodeCache(ctx, exam)
	}
	return exam, nil
}

// syncCodeCache keeps the code lookup cached only while the exam is active.
func (s *ExamService) syncCodeCache(ctx context.Context, exam *model.Exam) {
	if s.rdb == nil {
		return
	}
	if exam.Status != model.ExamStatusActive {
		s.dropCodeCache(ctx, exam.UniqueID)
		return
	}
	if err := s.rdb.Set(ctx, config.CacheKey.AccessCodeKey(exam.UniqueID), exam.ID, 0).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", exam.ID).Msg("Failed to cache access code")
	}
}

func (s *ExamService) dropCodeCache(ctx context.Context, code string) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Del(ctx, config.CacheKey.AccessCodeKey(code)).Err(); err != nil {
		s.log.Warn().Err(err).Str("code", code).Msg("Failed to drop access code cache")
	}
}

// PrewarmCodeCache caches every active exam's code. Called on startup.
func (s *ExamService) PrewarmCodeCache(ctx context.Context) error {
	if s.rdb == nil {
		return nil
	}
	exams, err := s.examRepo.List(ctx, model.ExamStatusActive)
	if err != nil {
		return err
	}
	for i := range exams {
		s.syncCodeCache(ctx, &exams[i])
	}
	s.log.Info().Int("count", len(exams)).Msg("Access code cache prewarmed")
	return nil
}
