package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cecproctor/proctor-backend/internal/config"
	"github.com/cecproctor/proctor-backend/internal/middleware"
	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/service"
	ws "github.com/cecproctor/proctor-backend/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams proctoring events from a joined student's browser.
type WSHandler struct {
	rdb              *redis.Client
	sessionService   *service.SessionService
	violationService *service.ViolationService
	log              zerolog.Logger
	upgrader         websocket.Upgrader
}

// NewWSHandler creates a new WSHandler. A nil rdb records violations inline
// instead of queueing them for the ingest worker.
func NewWSHandler(
	rdb *redis.Client,
	sessionService *service.SessionService,
	violationService *service.ViolationService,
	log zerolog.Logger,
	allowedOrigins []string,
) *WSHandler {
	return &WSHandler{
		rdb:              rdb,
		sessionService:   sessionService,
		violationService: violationService,
		log:              log.With().Str("component", "ws_handler").Logger(),
		upgrader:         buildUpgrader(allowedOrigins),
	}
}

// ProctorStream godoc
// WS /ws/v1/proctor/stream?token=
func (h *WSHandler) ProctorStream(c *gin.Context) {
	session := middleware.GetSession(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	wsLog := h.log.With().
		Str("session_id", session.ID).
		Str("student_id", session.StudentID).
		Str("exam_id", session.ExamID).
		Logger()

	wsLog.Info().Msg("Student connected")

	for {
		var msg ws.RequestPayload
		if err := ws.ReadJSON(conn, &msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		// The request context is tied to the hijacked connection; use a
		// detached one so queued work is not cut short on disconnect.
		ctx := context.Background()

		switch msg.Action {
		case ws.ActionViolation:
			h.handleViolation(ctx, conn, wsLog, session, &msg)
		case ws.ActionActivity:
			h.handleActivity(ctx, conn, wsLog, session.ID)
		case ws.ActionSubmit:
			if h.handleSubmit(ctx, conn, wsLog, session.ID) {
				return
			}
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			wsLog.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

func (h *WSHandler) handleViolation(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, session *model.Session, msg *ws.RequestPayload) {
	if !msg.Type.Valid() {
		ws.WriteError(conn, "unknown violation type")
		return
	}
	if !msg.Severity.Valid() {
		ws.WriteError(conn, "severity must be one of low, medium, high")
		return
	}

	in := service.ViolationInput{
		StudentID:   session.StudentID,
		ExamID:      session.ExamID,
		Type:        msg.Type,
		Description: msg.Description,
		Severity:    msg.Severity,
	}

	if h.rdb != nil {
		payload, _ := json.Marshal(in)
		err := h.rdb.RPush(ctx, config.WorkerKey.IngestViolationsQueue, payload).Err()
		if err == nil {
			ws.WriteTyped(conn, ws.AcceptedResponse{Event: ws.EventAccepted})
			return
		}
		wsLog.Warn().Err(err).Msg("Ingest queue unavailable, recording inline")
	}

	violation, updated, err := h.violationService.Record(ctx, in)
	if err != nil {
		wsLog.Error().Err(err).Msg("Record violation failed")
		ws.WriteError(conn, "failed to record violation")
		return
	}
	ws.WriteTyped(conn, ws.RecordedResponse{Event: ws.EventRecorded, Violation: violation, Session: updated})
}

func (h *WSHandler) handleActivity(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, sessionID string) {
	session, err := h.sessionService.RecordActivity(ctx, sessionID)
	if err != nil {
		if errors.Is(err, service.ErrSessionClosed) {
			ws.WriteError(conn, "session has ended")
			return
		}
		wsLog.Error().Err(err).Msg("Record activity failed")
		ws.WriteError(conn, "failed to record activity")
		return
	}
	ws.WriteTyped(conn, ws.SessionResponse{Event: ws.EventSession, Session: session})
}

// handleSubmit reports whether the stream should close.
func (h *WSHandler) handleSubmit(ctx context.Context, conn *websocket.Conn, wsLog zerolog.Logger, sessionID string) bool {
	session, err := h.sessionService.Submit(ctx, sessionID)
	if err != nil {
		wsLog.Error().Err(err).Msg("Submit failed")
		ws.WriteError(conn, "submit failed")
		return false
	}
	wsLog.Info().Str("status", string(session.Status)).Msg("Exam submitted")
	ws.WriteTyped(conn, ws.SessionResponse{Event: ws.EventSubmitted, Session: session})
	return true
}
