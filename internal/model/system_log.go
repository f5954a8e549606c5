package model

import "time"

// LogType enumerates activity log categories.
type LogType string

const (
	LogTypeLogin     LogType = "login"
	LogTypeViolation LogType = "violation"
	LogTypeSystem    LogType = "system"
	LogTypeError     LogType = "error"
)

// Valid reports whether t is a known log type.
func (t LogType) Valid() bool {
	switch t {
	case LogTypeLogin, LogTypeViolation, LogTypeSystem, LogTypeError:
		return true
	}
	return false
}

// SystemLogEntry is one activity log line.
type SystemLogEntry struct {
	ID        string    `json:"id"`
	Type      LogType   `json:"type"`
	Message   string    `json:"message"`
	Severity  Severity  `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
}

// LogFilter narrows activity log listings. Empty fields match all.
type LogFilter struct {
	Type     LogType
	Severity Severity
}

// ListLogsQuery holds the filters accepted by activity log listings.
type ListLogsQuery struct {
	Type     LogType  `form:"type" binding:"omitempty,log_type"`
	Severity Severity `form:"severity" binding:"omitempty,oneof=low medium high"`
	Page     int      `form:"page" binding:"omitempty,min=1"`
	PerPage  int      `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// AppendLogRequest adds a manual entry to the activity log.
type AppendLogRequest struct {
	Type     LogType  `json:"type" binding:"required,log_type"`
	Message  string   `json:"message" binding:"required,max=500"`
	Severity Severity `json:"severity" binding:"required,oneof=low medium high"`
}
