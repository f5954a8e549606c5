package model

import "time"

// SessionStatus enumerates exam session states.
type SessionStatus string

const (
	SessionStatusActive    SessionStatus = "active"
	SessionStatusFlagged   SessionStatus = "flagged"
	SessionStatusCompleted SessionStatus = "completed"
)

// Valid reports whether s is a known session status.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusActive, SessionStatusFlagged, SessionStatusCompleted:
		return true
	}
	return false
}

// Session is one student's attempt at one exam. A flagged session keeps
// its flagged status after it ends; EndedAt marks that it is closed.
type Session struct {
	ID                   string        `json:"id"`
	StudentID            string        `json:"student_id"`
	ExamID               string        `json:"exam_id"`
	Status               SessionStatus `json:"status"`
	ViolationCount       int           `json:"violation_count"`
	TimeRemainingSeconds int           `json:"time_remaining_seconds"`
	LastActivityAt       time.Time     `json:"last_activity_at"`
	StartedAt            time.Time     `json:"started_at"`
	EndedAt              *time.Time    `json:"ended_at,omitempty"`
}

// Open reports whether the session still accepts ticks and violation counts.
func (s *Session) Open() bool {
	return s.EndedAt == nil
}

// JoinExamRequest is the payload for a student joining an exam by code.
type JoinExamRequest struct {
	StudentID  string `json:"student_id" binding:"required,max=50"`
	AccessCode string `json:"access_code" binding:"required,min=4,max=20"`
}

// JoinExamResponse is returned after a successful join.
type JoinExamResponse struct {
	Session *Session `json:"session"`
	Exam    *Exam    `json:"exam"`
	Token   string   `json:"token"`
}
