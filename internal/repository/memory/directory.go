package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/repository"
)

type studentRepository struct {
	db *DB
}

func (r *studentRepository) checkUnique(s *model.Student) error {
	for id, existing := range r.db.students {
		if id == s.ID {
			continue
		}
		if strings.EqualFold(existing.StudentID, s.StudentID) || strings.EqualFold(existing.Email, s.Email) {
			return repository.ErrDuplicate
		}
	}
	return nil
}

func (r *studentRepository) Create(_ context.Context, s *model.Student) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.checkUnique(s); err != nil {
		return err
	}
	cp := *s
	r.db.students[s.ID] = &cp
	return nil
}

func (r *studentRepository) Update(_ context.Context, s *model.Student) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.students[s.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := r.checkUnique(s); err != nil {
		return err
	}
	cp := *s
	cp.CreatedAt = existing.CreatedAt
	r.db.students[s.ID] = &cp
	s.CreatedAt = existing.CreatedAt
	return nil
}

func (r *studentRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.students[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.students, id)
	return nil
}

func (r *studentRepository) GetByID(_ context.Context, id string) (*model.Student, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if s, ok := r.db.students[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r *studentRepository) GetByStudentID(_ context.Context, studentID string) (*model.Student, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	for _, s := range r.db.students {
		if strings.EqualFold(s.StudentID, studentID) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *studentRepository) List(_ context.Context) ([]model.Student, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	res := make([]model.Student, 0, len(r.db.students))
	for _, s := range r.db.students {
		res = append(res, *s)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Name == res[j].Name {
			return res[i].StudentID < res[j].StudentID
		}
		return res[i].Name < res[j].Name
	})
	return res, nil
}

type teacherRepository struct {
	db *DB
}

func (r *teacherRepository) checkUnique(t *model.Teacher) error {
	for id, existing := range r.db.teachers {
		if id != t.ID && strings.EqualFold(existing.Email, t.Email) {
			return repository.ErrDuplicate
		}
	}
	return nil
}

func (r *teacherRepository) Create(_ context.Context, t *model.Teacher) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if err := r.checkUnique(t); err != nil {
		return err
	}
	cp := *t
	r.db.teachers[t.ID] = &cp
	return nil
}

func (r *teacherRepository) Update(_ context.Context, t *model.Teacher) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	existing, ok := r.db.teachers[t.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := r.checkUnique(t); err != nil {
		return err
	}
	cp := *t
	cp.CreatedAt = existing.CreatedAt
	r.db.teachers[t.ID] = &cp
	t.CreatedAt = existing.CreatedAt
	return nil
}

func (r *teacherRepository) Delete(_ context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.teachers[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.db.teachers, id)
	return nil
}

func (r *teacherRepository) GetByID(_ context.Context, id string) (*model.Teacher, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if t, ok := r.db.teachers[id]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r *teacherRepository) List(_ context.Context) ([]model.Teacher, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	res := make([]model.Teacher, 0, len(r.db.teachers))
	for _, t := range r.db.teachers {
		res = append(res, *t)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].Name == res[j].Name {
			return res[i].Email < res[j].Email
		}
		return res[i].Name < res[j].Name
	})
	return res, nil
}
