package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/repository"
)

type examRepository struct {
	db *DB
}

func (r *examRepository) Create(_ context.Context, e *model.Exam) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	code := strings.ToUpper(e.UniqueID)
	if _, taken := r.db.issuedCodes[code]; taken {
		return repository.ErrAccessCodeTaken
	}
	if _, exists := r.db.exams[e.ID]; exists {
		return repository.ErrDuplicate
	}
	r.db.issuedCodes[code] = struct{}{}
	cp := *e
	r.db.exams[e.ID] = &cp
	r.db.examSeq[e.ID] = r.db.next()
	return nil
}

func (r *examRepository) Update(_ context.Context, e *model.Exam, expected model.ExamStatus) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.exams[e.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if existing.Status != expected {
		return repository.ErrStatusMismatch
	}
	cp := *e
	cp.UniqueID = existing.UniqueID
	cp.CreatedAt = existing.CreatedAt
	r.db.exams[e.ID] = &cp
	*e = cp
	return nil
}

func (r *examRepository) UpdateStatus(_ context.Context, id string, from, to model.ExamStatus) (*model.Exam, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.exams[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if existing.Status != from {
		return nil, repository.ErrStatusMismatch
	}
	existing.Status = to
	existing.UpdatedAt = now()
	cp := *existing
	return &cp, nil
}

func (r *examRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.exams[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.exams, id)
	delete(r.db.examSeq, id)
	// sessions go with their exam, matching the ON DELETE CASCADE in postgres
	for sid, s := range r.db.sessions {
		if s.ExamID == id {
			delete(r.db.sessions, sid)
			delete(r.db.sessionSeq, sid)
		}
	}
	return nil
}

func (r *examRepository) GetByID(_ context.Context, id string) (*model.Exam, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if e, ok := r.db.exams[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r *examRepository) GetByAccessCode(_ context.Context, code string) (*model.Exam, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, e := range r.db.exams {
		if strings.EqualFold(e.UniqueID, code) {
			cp := *e
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *examRepository) AccessCodeIssued(_ context.Context, code string) (bool, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	_, ok := r.db.issuedCodes[strings.ToUpper(code)]
	return ok, nil
}

func (r *examRepository) List(_ context.Context, status model.ExamStatus) ([]model.Exam, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	res := make([]model.Exam, 0, len(r.db.exams))
	for _, e := range r.db.exams {
		if status != "" && e.Status != status {
			continue
		}
		res = append(res, *e)
	}
	sort.Slice(res, func(i, j int) bool {
		if !res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].CreatedAt.After(res[j].CreatedAt)
		}
		return r.db.examSeq[res[i].ID] > r.db.examSeq[res[j].ID]
	})
	return res, nil
}
