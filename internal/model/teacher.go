package model

import "time"

// TeacherStatus enumerates directory states of a teacher.
type TeacherStatus string

const (
	TeacherStatusActive   TeacherStatus = "active"
	TeacherStatusInactive TeacherStatus = "inactive"
)

// Valid reports whether s is a known teacher status.
func (s TeacherStatus) Valid() bool {
	return s == TeacherStatusActive || s == TeacherStatusInactive
}

// Teacher is a directory record.
type Teacher struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Email      string        `json:"email"`
	Department string        `json:"department"`
	Status     TeacherStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// CreateTeacherRequest is the payload for adding a teacher.
type CreateTeacherRequest struct {
	Name       string        `json:"name" binding:"required,max=100"`
	Email      string        `json:"email" binding:"required,email,max=255"`
	Department string        `json:"department" binding:"required,max=100"`
	Status     TeacherStatus `json:"status" binding:"omitempty,oneof=active inactive"`
}

// UpdateTeacherRequest replaces a teacher's editable fields.
type UpdateTeacherRequest struct {
	Name       string        `json:"name" binding:"required,max=100"`
	Email      string        `json:"email" binding:"required,email,max=255"`
	Department string        `json:"department" binding:"required,max=100"`
	Status     TeacherStatus `json:"status" binding:"required,oneof=active inactive"`
}
