package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/repository"
	"github.com/cecproctor/proctor-backend/internal/response"
)

// ActivityLogCap is the number of most recent activity entries retained.
const ActivityLogCap = 50

// ActivityService appends to and reads the bounded activity log.
type ActivityService struct {
	repo repository.ActivityRepository
	log  zerolog.Logger
}

func NewActivityService(repo repository.ActivityRepository, log zerolog.Logger) *ActivityService {
	return &ActivityService{
		repo: repo,
		log:  log.With().Str("component", "activity_service").Logger(),
	}
}

// Append prepends an entry and drops everything past ActivityLogCap.
func (s *ActivityService) Append(ctx context.Context, typ model.LogType, message string, severity model.Severity) (*model.SystemLogEntry, error) {
	fe := fieldErrors{}
	fe.required("message", message)
	if !typ.Valid() {
		fe["type"] = "must be one of login, violation, system, error"
	}
	if !severity.Valid() {
		fe["severity"] = "must be one of low, medium, high"
	}
	if err := fe.err(); err != nil {
		return nil, err
	}

	entry := &model.SystemLogEntry{
		ID:        uuid.NewString(),
		Type:      typ,
		Message:   strings.TrimSpace(message),
		Severity:  severity,
		Timestamp: timestamp(),
	}
	if err := s.repo.Append(ctx, entry, ActivityLogCap); err != nil {
		return nil, err
	}
	return entry, nil
}

// record is the best-effort variant used as a side effect of other
// operations; a failed append is logged and never fails the caller.
func (s *ActivityService) record(ctx context.Context, typ model.LogType, message string, severity model.Severity) {
	if s == nil {
		return
	}
	if _, err := s.Append(ctx, typ, message, severity); err != nil {
		s.log.Warn().Err(err).Str("message", message).Msg("Failed to append activity entry")
	}
}

// List returns entries newest first.
func (s *ActivityService) List(ctx context.Context, f model.LogFilter, page, perPage int) ([]model.SystemLogEntry, *response.Pagination, error) {
	page, perPage, limit, offset := normalizePage(page, perPage)
	entries, total, err := s.repo.List(ctx, f, limit, offset)
	if err != nil {
		return nil, nil, err
	}
	return entries, buildPagination(page, perPage, total), nil
}
