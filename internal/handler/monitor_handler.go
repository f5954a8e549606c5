package handler

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/cecproctor/proctor-backend/internal/service"
)

const keepAliveInterval = 30 * time.Second

type MonitorHandler struct {
	examService    *service.ExamService
	monitorService *service.MonitorService
	log            zerolog.Logger
}

func NewMonitorHandler(
	examService *service.ExamService,
	monitorService *service.MonitorService,
	log zerolog.Logger,
) *MonitorHandler {
	return &MonitorHandler{
		examService:    examService,
		monitorService: monitorService,
		log:            log.With().Str("component", "monitor_handler").Logger(),
	}
}

// MonitorExamSSE godoc
// GET /api/v1/teacher/exams/:id/monitor
// Streams a snapshot followed by live session and violation events.
func (h *MonitorHandler) MonitorExamSSE(c *gin.Context) {
	examID, ok := parseID(c, "id")
	if !ok {
		return
	}

	reqCtx := c.Request.Context()
	if _, err := h.examService.GetByID(reqCtx, examID); err != nil {
		failFromError(c, h.log, err)
		return
	}

	// Subscribe before the snapshot so events in between are not lost.
	events, cancel, err := h.monitorService.Subscribe(reqCtx, examID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}
	defer cancel()

	snapshot, err := h.monitorService.Snapshot(reqCtx, examID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	snapshotPayload, _ := json.Marshal(map[string]interface{}{
		"type": "snapshot",
		"data": snapshot,
	})
	writeSSE(c, snapshotPayload)

	keepAliveTicker := time.NewTicker(keepAliveInterval)
	defer keepAliveTicker.Stop()

	pingPayload, _ := json.Marshal(map[string]string{"type": "ping"})

	h.log.Info().Str("exam_id", examID).Msg("Monitor attached")

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Str("exam_id", examID).Msg("Monitor detached")
			return

		case ev, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				h.log.Error().Err(err).Msg("Failed to marshal monitor event")
				continue
			}
			writeSSE(c, data)

		case <-keepAliveTicker.C:
			writeSSE(c, pingPayload)
		}
	}
}
