// Package memory is an in-process implementation of the repository ports.
// A single RWMutex guards every table so compound updates are atomic.
package memory

import (
	"sync"

	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/repository"
)

type DB struct {
	mu sync.RWMutex

	students    map[string]*model.Student
	teachers    map[string]*model.Teacher
	exams       map[string]*model.Exam
	issuedCodes map[string]struct{}
	sessions    map[string]*model.Session
	// newest first
	violations []model.Violation
	logs       []model.SystemLogEntry
	settings   map[string]model.AppSetting

	// insertion order, used to keep listings stable
	seq        int64
	examSeq    map[string]int64
	sessionSeq map[string]int64
}

func Open() *DB {
	return &DB{
		students:    make(map[string]*model.Student),
		teachers:    make(map[string]*model.Teacher),
		exams:       make(map[string]*model.Exam),
		issuedCodes: make(map[string]struct{}),
		sessions:    make(map[string]*model.Session),
		settings:    make(map[string]model.AppSetting),
		examSeq:     make(map[string]int64),
		sessionSeq:  make(map[string]int64),
	}
}

// NewStore wires every in-memory repository over one DB.
func NewStore(db *DB) *repository.Store {
	return &repository.Store{
		Students:   &studentRepository{db: db},
		Teachers:   &teacherRepository{db: db},
		Exams:      &examRepository{db: db},
		Sessions:   &sessionRepository{db: db},
		Violations: &violationRepository{db: db},
		Activity:   &activityRepository{db: db},
		Settings:   &settingRepository{db: db},
	}
}

func (db *DB) next() int64 {
	db.seq++
	return db.seq
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	out := make([]T, len(items))
	copy(out, items)
	return out
}
