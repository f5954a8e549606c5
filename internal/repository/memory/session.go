package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/repository"
)

// now is only used where the caller does not supply a timestamp.
var now = time.Now

type sessionRepository struct {
	db *DB
}

// findSession must be called with db.mu held.
func (db *DB) findSession(studentID, examID string) *model.Session {
	for _, s := range db.sessions {
		if s.StudentID == studentID && s.ExamID == examID {
			return s
		}
	}
	return nil
}

func (r *sessionRepository) CreateIfAbsent(_ context.Context, s *model.Session) (*model.Session, bool, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if existing := r.db.findSession(s.StudentID, s.ExamID); existing != nil {
		cp := *existing
		return &cp, false, nil
	}
	if _, ok := r.db.exams[s.ExamID]; !ok {
		return nil, false, repository.ErrNotFound
	}
	cp := *s
	r.db.sessions[s.ID] = &cp
	r.db.sessionSeq[s.ID] = r.db.next()
	out := cp
	return &out, true, nil
}

func (r *sessionRepository) GetByID(_ context.Context, id string) (*model.Session, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if s, ok := r.db.sessions[id]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r *sessionRepository) GetByStudentAndExam(_ context.Context, studentID, examID string) (*model.Session, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	if s := r.db.findSession(studentID, examID); s != nil {
		cp := *s
		return &cp, nil
	}
	return nil, repository.ErrNotFound
}

func (r *sessionRepository) List(_ context.Context, examID string, status model.SessionStatus) ([]model.Session, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	res := make([]model.Session, 0)
	for _, s := range r.db.sessions {
		if examID != "" && s.ExamID != examID {
			continue
		}
		if status != "" && s.Status != status {
			continue
		}
		res = append(res, *s)
	}
	sort.Slice(res, func(i, j int) bool {
		return r.db.sessionSeq[res[i].ID] < r.db.sessionSeq[res[j].ID]
	})
	return res, nil
}

func (r *sessionRepository) Touch(_ context.Context, id string, at time.Time) (*model.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if s.Open() {
		s.LastActivityAt = at
	}
	cp := *s
	return &cp, nil
}

// countViolation bumps an open session and flags it at threshold.
func countViolation(s *model.Session, threshold int, at time.Time) {
	if !s.Open() {
		return
	}
	s.ViolationCount++
	s.LastActivityAt = at
	if s.Status == model.SessionStatusActive && s.ViolationCount >= threshold {
		s.Status = model.SessionStatusFlagged
	}
}

// tick applies elapsed seconds to an open session and reports whether it ended.
func tick(s *model.Session, elapsed int, at time.Time) bool {
	if !s.Open() {
		return false
	}
	s.TimeRemainingSeconds -= elapsed
	if s.TimeRemainingSeconds > 0 {
		return false
	}
	s.TimeRemainingSeconds = 0
	end(s, at)
	return true
}

func end(s *model.Session, at time.Time) {
	if s.Status == model.SessionStatusActive {
		s.Status = model.SessionStatusCompleted
	}
	ended := at
	s.EndedAt = &ended
}

func (r *sessionRepository) Tick(_ context.Context, id string, elapsedSeconds int, at time.Time) (*model.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	tick(s, elapsedSeconds, at)
	cp := *s
	return &cp, nil
}

func (r *sessionRepository) TickOpen(_ context.Context, elapsedSeconds int, at time.Time) ([]model.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	ended := make([]model.Session, 0)
	for _, s := range r.db.sessions {
		if tick(s, elapsedSeconds, at) {
			ended = append(ended, *s)
		}
	}
	sort.Slice(ended, func(i, j int) bool {
		return r.db.sessionSeq[ended[i].ID] < r.db.sessionSeq[ended[j].ID]
	})
	return ended, nil
}

func (r *sessionRepository) End(_ context.Context, id string, at time.Time) (*model.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if s.Open() {
		end(s, at)
	}
	cp := *s
	return &cp, nil
}
