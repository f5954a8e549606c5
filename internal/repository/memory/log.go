package memory

import (
	"context"
	"strings"

	"github.com/cecproctor/proctor-backend/internal/model"
)

type violationRepository struct {
	db *DB
}

func (r *violationRepository) Append(_ context.Context, v *model.Violation, limit int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.violations = prepend(r.db.violations, *v, limit)
	return nil
}

func (r *violationRepository) Record(_ context.Context, v *model.Violation, limit, threshold int) (*model.Session, *model.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.violations = prepend(r.db.violations, *v, limit)
	s := r.db.findSession(v.StudentID, v.ExamID)
	if s == nil {
		return nil, nil, nil
	}
	before := *s
	countViolation(s, threshold, v.Timestamp)
	after := *s
	return &before, &after, nil
}

func (r *violationRepository) List(_ context.Context, f model.ViolationFilter, limit, offset int) ([]model.Violation, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	matched := make([]model.Violation, 0, len(r.db.violations))
	for _, v := range r.db.violations {
		if f.StudentID != "" && !strings.EqualFold(v.StudentID, f.StudentID) {
			continue
		}
		if f.ExamID != "" && v.ExamID != f.ExamID {
			continue
		}
		if f.Severity != "" && v.Severity != f.Severity {
			continue
		}
		matched = append(matched, v)
	}
	return paginate(matched, limit, offset), len(matched), nil
}

type activityRepository struct {
	db *DB
}

func (r *activityRepository) Append(_ context.Context, e *model.SystemLogEntry, limit int) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	r.db.logs = prepend(r.db.logs, *e, limit)
	return nil
}

func (r *activityRepository) List(_ context.Context, f model.LogFilter, limit, offset int) ([]model.SystemLogEntry, int, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	matched := make([]model.SystemLogEntry, 0, len(r.db.logs))
	for _, e := range r.db.logs {
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		if f.Severity != "" && e.Severity != f.Severity {
			continue
		}
		matched = append(matched, e)
	}
	return paginate(matched, limit, offset), len(matched), nil
}

// prepend inserts item at the head and drops the tail beyond limit.
func prepend[T any](items []T, item T, limit int) []T {
	out := make([]T, 0, len(items)+1)
	out = append(out, item)
	out = append(out, items...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
