package model

import "time"

// StudentStatus enumerates directory states of a student.
type StudentStatus string

const (
	StudentStatusActive    StudentStatus = "active"
	StudentStatusSuspended StudentStatus = "suspended"
)

// Valid reports whether s is a known student status.
func (s StudentStatus) Valid() bool {
	return s == StudentStatusActive || s == StudentStatusSuspended
}

// Student is a directory record. StudentID is the business key students
// type on the home page; ID is the internal identifier.
type Student struct {
	ID        string        `json:"id"`
	StudentID string        `json:"student_id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Status    StudentStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// CreateStudentRequest is the payload for adding a student.
type CreateStudentRequest struct {
	StudentID string        `json:"student_id" binding:"required,max=50"`
	Name      string        `json:"name" binding:"required,max=100"`
	Email     string        `json:"email" binding:"required,email,max=255"`
	Status    StudentStatus `json:"status" binding:"omitempty,oneof=active suspended"`
}

// UpdateStudentRequest replaces a student's editable fields.
type UpdateStudentRequest struct {
	StudentID string        `json:"student_id" binding:"required,max=50"`
	Name      string        `json:"name" binding:"required,max=100"`
	Email     string        `json:"email" binding:"required,email,max=255"`
	Status    StudentStatus `json:"status" binding:"required,oneof=active suspended"`
}
