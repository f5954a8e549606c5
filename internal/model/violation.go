package model

import "time"

// ViolationType enumerates proctoring events reported by the client.
type ViolationType string

const (
	ViolationTabSwitch        ViolationType = "TAB_SWITCH"
	ViolationFullscreenExit   ViolationType = "FULLSCREEN_EXIT"
	ViolationRightClick       ViolationType = "RIGHT_CLICK"
	ViolationDevToolsOpen     ViolationType = "DEVTOOLS_OPEN"
	ViolationKeyboardShortcut ViolationType = "KEYBOARD_SHORTCUT"
	ViolationCopyPaste        ViolationType = "COPY_PASTE"
	ViolationWindowBlur       ViolationType = "WINDOW_BLUR"
	ViolationInactivity       ViolationType = "INACTIVITY"
)

// Valid reports whether t is a known violation type.
func (t ViolationType) Valid() bool {
	switch t {
	case ViolationTabSwitch, ViolationFullscreenExit, ViolationRightClick, ViolationDevToolsOpen,
		ViolationKeyboardShortcut, ViolationCopyPaste, ViolationWindowBlur, ViolationInactivity:
		return true
	}
	return false
}

// Violation is an append-only proctoring event. StudentName and ExamTitle
// are snapshots taken when the event was recorded.
type Violation struct {
	ID          string        `json:"id"`
	StudentID   string        `json:"student_id"`
	StudentName string        `json:"student_name"`
	ExamID      string        `json:"exam_id"`
	ExamTitle   string        `json:"exam_title"`
	Type        ViolationType `json:"type"`
	Description string        `json:"description"`
	Severity    Severity      `json:"severity"`
	Timestamp   time.Time     `json:"timestamp"`
}

// ViolationFilter narrows violation listings. Empty fields match all.
type ViolationFilter struct {
	StudentID string
	ExamID    string
	Severity  Severity
}

// ReportViolationRequest is sent by the proctoring client.
type ReportViolationRequest struct {
	Type        ViolationType `json:"type" binding:"required,violation_type"`
	Description string        `json:"description" binding:"omitempty,max=500"`
	Severity    Severity      `json:"severity" binding:"required,oneof=low medium high"`
}

// ViolationStats aggregates the violation log.
type ViolationStats struct {
	Total         int                   `json:"total"`
	BySeverity    map[Severity]int      `json:"by_severity"`
	ByType        map[ViolationType]int `json:"by_type"`
	WeightedScore int                   `json:"weighted_score"`
	// StudentScores maps student business keys to their weighted score.
	StudentScores map[string]int `json:"student_scores"`
}

// ListViolationsQuery holds the filters accepted by violation listings.
type ListViolationsQuery struct {
	StudentID string   `form:"student_id" binding:"omitempty,max=50"`
	ExamID    string   `form:"exam_id" binding:"omitempty,uuid"`
	Severity  Severity `form:"severity" binding:"omitempty,oneof=low medium high"`
	Page      int      `form:"page" binding:"omitempty,min=1"`
	PerPage   int      `form:"per_page" binding:"omitempty,min=1,max=100"`
}

// Filter converts the query into a repository filter.
func (q ListViolationsQuery) Filter() ViolationFilter {
	return ViolationFilter{StudentID: q.StudentID, ExamID: q.ExamID, Severity: q.Severity}
}
