package service

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cecproctor/proctor-backend/internal/config"
	"github.com/cecproctor/proctor-backend/internal/repository/memory"
)

func newRedisMonitor(t *testing.T) (*MonitorService, *miniredis.Miniredis) {
	t.Helper()
	freezeClock(t, testNow)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	store := memory.NewStore(memory.Open())
	return NewMonitorService(store.Sessions, store.Violations, rdb, zerolog.Nop()), mr
}

func TestMonitorService_RedisSubscriptionIsLiveOnReturn(t *testing.T) {
	monitor, mr := newRedisMonitor(t)
	ctx := context.Background()
	channel := config.CacheKey.ExamMonitorChannel("exam-1")

	events, cancel, err := monitor.Subscribe(ctx, "exam-1")
	require.NoError(t, err)
	defer cancel()

	// no waiting: the server already counts the subscriber
	assert.Equal(t, map[string]int{channel: 1}, mr.PubSubNumSub(channel))

	monitor.Publish(ctx, MonitorEvent{Type: MonitorSessionJoined, ExamID: "exam-1"})
	monitor.Publish(ctx, MonitorEvent{Type: MonitorViolation, ExamID: "exam-2"})
	monitor.Publish(ctx, MonitorEvent{Type: MonitorSessionEnded, ExamID: "exam-1"})

	ev := receive(t, events)
	assert.Equal(t, MonitorSessionJoined, ev.Type)
	assert.Equal(t, "exam-1", ev.ExamID)
	assert.True(t, ev.Timestamp.Equal(testNow))
	assert.Equal(t, MonitorSessionEnded, receive(t, events).Type)

	cancel()
	for range events {
	}
}

func TestMonitorService_RedisSubscribeFailure(t *testing.T) {
	monitor, mr := newRedisMonitor(t)
	mr.Close()

	events, cancel, err := monitor.Subscribe(context.Background(), "exam-1")
	require.Error(t, err)
	assert.Nil(t, events)
	assert.Nil(t, cancel)
}
