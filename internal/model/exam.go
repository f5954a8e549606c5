package model

import "time"

// ExamStatus enumerates the possible states of an exam.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "draft"
	ExamStatusActive    ExamStatus = "active"
	ExamStatusCompleted ExamStatus = "completed"
	ExamStatusCancelled ExamStatus = "cancelled"
)

// Valid reports whether s is a known exam status.
func (s ExamStatus) Valid() bool {
	switch s {
	case ExamStatusDraft, ExamStatusActive, ExamStatusCompleted, ExamStatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed.
func (s ExamStatus) Terminal() bool {
	return s == ExamStatusCompleted || s == ExamStatusCancelled
}

var examTransitions = map[ExamStatus][]ExamStatus{
	ExamStatusDraft:  {ExamStatusActive, ExamStatusCancelled},
	ExamStatusActive: {ExamStatusCompleted, ExamStatusCancelled},
}

// CanTransition reports whether an exam may move from s to next.
// Staying in the same state is always allowed.
func (s ExamStatus) CanTransition(next ExamStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range examTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Exam represents an exam definition. FormURL points at an externally
// hosted question form and is opaque here. UniqueID is the access code
// students enter; it is assigned at creation and never changes.
type Exam struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	FormURL         string     `json:"form_url"`
	DurationMinutes int        `json:"duration_minutes"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	Status          ExamStatus `json:"status"`
	UniqueID        string     `json:"unique_id"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// CreateExamRequest is the payload for creating a new exam.
type CreateExamRequest struct {
	Title           string     `json:"title" binding:"required,max=255"`
	Description     string     `json:"description" binding:"omitempty,max=2000"`
	FormURL         string     `json:"form_url" binding:"required,url,max=2048"`
	DurationMinutes int        `json:"duration_minutes" binding:"required,min=1,max=600"`
	StartTime       *time.Time `json:"start_time" binding:"omitempty"`
	EndTime         *time.Time `json:"end_time" binding:"omitempty,gtfield=StartTime"`
}

// UpdateExamRequest replaces an exam's editable fields. The access code
// cannot be changed.
type UpdateExamRequest struct {
	Title           string     `json:"title" binding:"required,max=255"`
	Description     string     `json:"description" binding:"omitempty,max=2000"`
	FormURL         string     `json:"form_url" binding:"required,url,max=2048"`
	DurationMinutes int        `json:"duration_minutes" binding:"required,min=1,max=600"`
	StartTime       *time.Time `json:"start_time" binding:"omitempty"`
	EndTime         *time.Time `json:"end_time" binding:"omitempty,gtfield=StartTime"`
	Status          ExamStatus `json:"status" binding:"omitempty,oneof=draft active completed cancelled"`
}
