package websocket

import "github.com/cecproctor/proctor-backend/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionViolation Action = "violation"
	ActionActivity  Action = "activity"
	ActionSubmit    Action = "submit"
	ActionPing      Action = "ping"
)

// RequestPayload is every message the proctoring client sends. Only
// violation messages carry the remaining fields.
type RequestPayload struct {
	Action      Action              `json:"action"`
	Type        model.ViolationType `json:"type,omitempty"`
	Description string              `json:"description,omitempty"`
	Severity    model.Severity      `json:"severity,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError     Event = "error"
	EventAccepted  Event = "accepted"
	EventRecorded  Event = "recorded"
	EventSession   Event = "session"
	EventSubmitted Event = "submitted"
	EventPong      Event = "pong"
)

// AcceptedResponse acknowledges a violation queued for ingestion.
type AcceptedResponse struct {
	Event Event `json:"event"`
}

// RecordedResponse is sent when a violation was recorded inline.
type RecordedResponse struct {
	Event     Event            `json:"event"`
	Violation *model.Violation `json:"violation"`
	Session   *model.Session   `json:"session,omitempty"`
}

// SessionResponse carries the current session after activity or submit.
type SessionResponse struct {
	Event   Event          `json:"event"`
	Session *model.Session `json:"session"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
