package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cecproctor/proctor-backend/internal/model"
)

func receive(t *testing.T, events <-chan MonitorEvent) MonitorEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "monitor channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for monitor event")
	}
	return MonitorEvent{}
}

func TestMonitorService_LocalFanOut(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.activeExam(t, "Math", 60)
	other := env.activeExam(t, "Physics", 60)

	events, cancel, err := env.monitor.Subscribe(ctx, exam.ID)
	require.NoError(t, err)
	defer cancel()

	_, _, err = env.sessions.Join(ctx, "STU001", other.UniqueID)
	require.NoError(t, err)
	joined, _, err := env.sessions.Join(ctx, "STU001", exam.UniqueID)
	require.NoError(t, err)

	ev := receive(t, events)
	assert.Equal(t, MonitorSessionJoined, ev.Type)
	assert.Equal(t, exam.ID, ev.ExamID)
	assert.Equal(t, joined.ID, ev.Session.ID)
	assert.Equal(t, testNow, ev.Timestamp)

	_, _, err = env.violations.Record(ctx, tabSwitch("STU001", exam.ID, model.SeverityHigh))
	require.NoError(t, err)
	ev = receive(t, events)
	assert.Equal(t, MonitorViolation, ev.Type)
	require.NotNil(t, ev.Violation)
	assert.Equal(t, 1, ev.Session.ViolationCount)

	_, err = env.sessions.Submit(ctx, joined.ID)
	require.NoError(t, err)
	ev = receive(t, events)
	assert.Equal(t, MonitorSessionEnded, ev.Type)

	cancel()
	_, ok := <-events
	assert.False(t, ok)
	assert.NotPanics(t, cancel)

	// publishing with no subscribers left is harmless
	env.monitor.Publish(ctx, MonitorEvent{Type: MonitorViolation, ExamID: exam.ID})
}

func TestMonitorService_FlaggedEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.activeExam(t, "Math", 60)
	_, _, err := env.sessions.Join(ctx, "STU001", exam.UniqueID)
	require.NoError(t, err)

	events, cancel, err := env.monitor.Subscribe(ctx, exam.ID)
	require.NoError(t, err)
	defer cancel()

	var types []MonitorEventType
	for i := 0; i < 3; i++ {
		_, _, err := env.violations.Record(ctx, tabSwitch("STU001", exam.ID, model.SeverityLow))
		require.NoError(t, err)
	}
	for i := 0; i < 4; i++ {
		types = append(types, receive(t, events).Type)
	}
	assert.Equal(t, []MonitorEventType{MonitorViolation, MonitorViolation, MonitorSessionFlagged, MonitorViolation}, types)
}

func TestMonitorService_Snapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.activeExam(t, "Math", 60)

	a, _, err := env.sessions.Join(ctx, "STU001", exam.UniqueID)
	require.NoError(t, err)
	_, _, err = env.sessions.Join(ctx, "STU002", exam.UniqueID)
	require.NoError(t, err)
	_, _, err = env.sessions.Join(ctx, "STU003", exam.UniqueID)
	require.NoError(t, err)
	_, err = env.sessions.Submit(ctx, a.ID)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, _, err := env.violations.Record(ctx, tabSwitch("STU002", exam.ID, model.SeverityLow))
		require.NoError(t, err)
	}

	snap, err := env.monitor.Snapshot(ctx, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, exam.ID, snap.ExamID)
	assert.Len(t, snap.Sessions, 3)
	assert.Len(t, snap.RecentViolations, 3)
	assert.Equal(t, 1, snap.Active)
	assert.Equal(t, 1, snap.Flagged)
	assert.Equal(t, 1, snap.Completed)

	empty, err := env.monitor.Snapshot(ctx, "no-such-exam")
	require.NoError(t, err)
	assert.Empty(t, empty.Sessions)
	assert.NotNil(t, empty.RecentViolations)
}
