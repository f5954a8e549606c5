package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/cecproctor/proctor-backend/internal/config"
	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/repository"
)

// MonitorEventType names the live events teachers receive per exam.
type MonitorEventType string

const (
	MonitorSessionJoined  MonitorEventType = "session_joined"
	MonitorViolation      MonitorEventType = "violation"
	MonitorSessionFlagged MonitorEventType = "session_flagged"
	MonitorSessionEnded   MonitorEventType = "session_ended"
)

// MonitorEvent is the JSON payload published on an exam's monitor channel.
type MonitorEvent struct {
	Type      MonitorEventType `json:"type"`
	ExamID    string           `json:"exam_id"`
	Session   *model.Session   `json:"session,omitempty"`
	Violation *model.Violation `json:"violation,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

const (
	monitorBuffer         = 32
	monitorRecentLimit    = 20
	monitorSnapshotFanout = 2
)

// MonitorService fans session and violation events out to live monitors.
// With Redis configured events travel over pub/sub so every server instance
// sees them; otherwise they are delivered in process.
type MonitorService struct {
	sessionRepo   repository.SessionRepository
	violationRepo repository.ViolationRepository
	rdb           *redis.Client
	log           zerolog.Logger

	mu   sync.Mutex
	subs map[string]map[chan MonitorEvent]struct{}
}

// NewMonitorService creates a new MonitorService.
func NewMonitorService(
	sessionRepo repository.SessionRepository,
	violationRepo repository.ViolationRepository,
	rdb *redis.Client,
	log zerolog.Logger,
) *MonitorService {
	return &MonitorService{
		sessionRepo:   sessionRepo,
		violationRepo: violationRepo,
		rdb:           rdb,
		log:           log.With().Str("component", "monitor_service").Logger(),
		subs:          make(map[string]map[chan MonitorEvent]struct{}),
	}
}

// Publish is best effort; failures are logged only.
func (s *MonitorService) Publish(ctx context.Context, ev MonitorEvent) {
	if s == nil {
		return
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = timestamp()
	}

	if s.rdb != nil {
		data, err := json.Marshal(ev)
		if err != nil {
			s.log.Error().Err(err).Msg("Failed to marshal monitor event")
			return
		}
		if err := s.rdb.Publish(ctx, config.CacheKey.ExamMonitorChannel(ev.ExamID), data).Err(); err != nil {
			s.log.Warn().Err(err).Str("exam_id", ev.ExamID).Msg("Failed to publish monitor event")
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs[ev.ExamID] {
		select {
		case ch <- ev:
		default:
			// slow monitor, drop rather than block the writer
		}
	}
}

// Subscribe streams events for one exam until ctx ends or cancel is called.
// Once it returns, every later Publish for examID reaches the channel.
func (s *MonitorService) Subscribe(ctx context.Context, examID string) (<-chan MonitorEvent, func(), error) {
	if s.rdb != nil {
		return s.subscribeRedis(ctx, examID)
	}

	ch := make(chan MonitorEvent, monitorBuffer)
	s.mu.Lock()
	if s.subs[examID] == nil {
		s.subs[examID] = make(map[chan MonitorEvent]struct{})
	}
	s.subs[examID][ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.subs[examID], ch)
			if len(s.subs[examID]) == 0 {
				delete(s.subs, examID)
			}
			close(ch)
		})
	}
	return ch, cancel, nil
}

func (s *MonitorService) subscribeRedis(ctx context.Context, examID string) (<-chan MonitorEvent, func(), error) {
	pubsub := s.rdb.Subscribe(ctx, config.CacheKey.ExamMonitorChannel(examID))
	// Subscribe only sends the command; wait for the server's confirmation.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe monitor channel: %w", err)
	}

	out := make(chan MonitorEvent, monitorBuffer)

	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			var ev MonitorEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				s.log.Warn().Err(err).Msg("Discarding malformed monitor event")
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	return out, func() {
		once.Do(func() { _ = pubsub.Close() })
	}, nil
}

// MonitorSnapshot is the state a monitor receives when it attaches.
type MonitorSnapshot struct {
	ExamID           string            `json:"exam_id"`
	Sessions         []model.Session   `json:"sessions"`
	RecentViolations []model.Violation `json:"recent_violations"`
	Active           int               `json:"active"`
	Flagged          int               `json:"flagged"`
	Completed        int               `json:"completed"`
}

// Snapshot fetches sessions and recent violations concurrently.
// Violations are best effort; sessions are required.
func (s *MonitorService) Snapshot(ctx context.Context, examID string) (*MonitorSnapshot, error) {
	var (
		sessions     []model.Session
		violations   []model.Violation
		sessionErr   error
		violationErr error
		wg           sync.WaitGroup
	)

	wg.Add(monitorSnapshotFanout)
	go func() {
		defer wg.Done()
		sessions, sessionErr = s.sessionRepo.List(ctx, examID, "")
	}()
	go func() {
		defer wg.Done()
		violations, _, violationErr = s.violationRepo.List(ctx, model.ViolationFilter{ExamID: examID}, monitorRecentLimit, 0)
	}()
	wg.Wait()

	if sessionErr != nil {
		return nil, sessionErr
	}

	snap := &MonitorSnapshot{
		ExamID:           examID,
		Sessions:         sessions,
		RecentViolations: []model.Violation{},
	}
	if violationErr != nil {
		s.log.Warn().Err(violationErr).Str("exam_id", examID).Msg("Snapshot without violations")
	} else if violations != nil {
		snap.RecentViolations = violations
	}

	for _, sess := range sessions {
		switch sess.Status {
		case model.SessionStatusActive:
			snap.Active++
		case model.SessionStatusFlagged:
			snap.Flagged++
		case model.SessionStatusCompleted:
			snap.Completed++
		}
	}
	return snap, nil
}
