package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/repository"
)

var at = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

func seedExam(t *testing.T, store *repository.Store, id, code string, status model.ExamStatus) {
	t.Helper()
	require.NoError(t, store.Exams.Create(context.Background(), &model.Exam{
		ID:              id,
		Title:           "Exam " + id,
		DurationMinutes: 60,
		Status:          status,
		UniqueID:        code,
		CreatedAt:       at,
		UpdatedAt:       at,
	}))
}

func TestExamRepository_CodesAreNeverReused(t *testing.T) {
	store := NewStore(Open())
	ctx := context.Background()
	seedExam(t, store, "e1", "MATH2025001", model.ExamStatusDraft)

	issued, err := store.Exams.AccessCodeIssued(ctx, "math2025001")
	require.NoError(t, err)
	assert.True(t, issued)

	require.NoError(t, store.Exams.Delete(ctx, "e1"))
	err = store.Exams.Create(ctx, &model.Exam{ID: "e2", UniqueID: "MATH2025001"})
	assert.ErrorIs(t, err, repository.ErrAccessCodeTaken)

	_, err = store.Exams.GetByAccessCode(ctx, "MATH2025001")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestExamRepository_CompareAndSet(t *testing.T) {
	store := NewStore(Open())
	ctx := context.Background()
	seedExam(t, store, "e1", "PHYS2025001", model.ExamStatusDraft)

	_, err := store.Exams.UpdateStatus(ctx, "e1", model.ExamStatusActive, model.ExamStatusCompleted)
	assert.ErrorIs(t, err, repository.ErrStatusMismatch)

	exam, err := store.Exams.UpdateStatus(ctx, "e1", model.ExamStatusDraft, model.ExamStatusActive)
	require.NoError(t, err)
	assert.Equal(t, model.ExamStatusActive, exam.Status)

	edit := &model.Exam{ID: "e1", Title: "Renamed", UniqueID: "HACK0000000", Status: model.ExamStatusActive}
	assert.ErrorIs(t, store.Exams.Update(ctx, edit, model.ExamStatusDraft), repository.ErrStatusMismatch)
	require.NoError(t, store.Exams.Update(ctx, edit, model.ExamStatusActive))
	assert.Equal(t, "PHYS2025001", edit.UniqueID)
	assert.Equal(t, at, edit.CreatedAt)

	active, err := store.Exams.List(ctx, model.ExamStatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Renamed", active[0].Title)
}

func TestSessionRepository_CreateIfAbsentIsAtomic(t *testing.T) {
	store := NewStore(Open())
	ctx := context.Background()
	seedExam(t, store, "e1", "MATH2025002", model.ExamStatusActive)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		ids     = map[string]struct{}{}
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, ok, err := store.Sessions.CreateIfAbsent(ctx, &model.Session{
				ID:                   fmt.Sprintf("s%d", i),
				StudentID:            "STU001",
				ExamID:               "e1",
				Status:               model.SessionStatusActive,
				TimeRemainingSeconds: 3600,
			})
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if ok {
				created++
			}
			ids[s.ID] = struct{}{}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	assert.Len(t, ids, 1)

	_, _, err := store.Sessions.CreateIfAbsent(ctx, &model.Session{ID: "x", StudentID: "STU001", ExamID: "missing"})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSessionRepository_ViolationsAndCountdown(t *testing.T) {
	store := NewStore(Open())
	ctx := context.Background()
	seedExam(t, store, "e1", "MATH2025003", model.ExamStatusActive)
	_, _, err := store.Sessions.CreateIfAbsent(ctx, &model.Session{
		ID: "s1", StudentID: "STU001", ExamID: "e1", Status: model.SessionStatusActive, TimeRemainingSeconds: 90,
	})
	require.NoError(t, err)

	violation := func(id string, when time.Time) *model.Violation {
		return &model.Violation{ID: id, StudentID: "STU001", ExamID: "e1", Severity: model.SeverityLow, Timestamp: when}
	}

	before, after, err := store.Violations.Record(ctx, violation("v1", at), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 0, before.ViolationCount)
	assert.Equal(t, 1, after.ViolationCount)
	assert.Equal(t, model.SessionStatusActive, after.Status)
	before, after, err = store.Violations.Record(ctx, violation("v2", at), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusActive, before.Status)
	assert.Equal(t, model.SessionStatusFlagged, after.Status)

	ended, err := store.Sessions.TickOpen(ctx, 60, at)
	require.NoError(t, err)
	assert.Empty(t, ended)

	ended, err = store.Sessions.TickOpen(ctx, 60, at.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, ended, 1)
	assert.Equal(t, model.SessionStatusFlagged, ended[0].Status)
	assert.Zero(t, ended[0].TimeRemainingSeconds)

	// closed sessions keep their count while the log still grows
	_, after, err = store.Violations.Record(ctx, violation("v3", at.Add(2*time.Minute)), 10, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, after.ViolationCount)
	_, total, err := store.Violations.List(ctx, model.ViolationFilter{ExamID: "e1"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)

	before, after, err = store.Violations.Record(ctx, &model.Violation{ID: "v4", StudentID: "STU404", ExamID: "e1"}, 10, 2)
	require.NoError(t, err)
	assert.Nil(t, before)
	assert.Nil(t, after)

	_, err = store.Sessions.Touch(ctx, "missing", at)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLogs_KeepNewestWithinLimit(t *testing.T) {
	store := NewStore(Open())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Activity.Append(ctx, &model.SystemLogEntry{
			ID:       fmt.Sprintf("l%d", i),
			Type:     model.LogTypeSystem,
			Severity: model.SeverityLow,
		}, 3))
	}
	entries, total, err := store.Activity.List(ctx, model.LogFilter{}, 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, entries, 2)
	assert.Equal(t, "l3", entries[0].ID)
	assert.Equal(t, "l2", entries[1].ID)

	require.NoError(t, store.Violations.Append(ctx, &model.Violation{ID: "v1", StudentID: "STU001", Severity: model.SeverityHigh}, 10))
	list, total, err := store.Violations.List(ctx, model.ViolationFilter{StudentID: "stu001"}, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, list, 1)
}

func TestSettingRepository_ReplaceAll(t *testing.T) {
	store := NewStore(Open())
	ctx := context.Background()

	require.NoError(t, store.Settings.ReplaceAll(ctx, map[string]string{"b": "2", "a": "1"}))
	require.NoError(t, store.Settings.ReplaceAll(ctx, map[string]string{"a": "3"}))

	all, err := store.Settings.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].Key)
	assert.Equal(t, "3", all[0].Value)
	assert.Equal(t, "2", all[1].Value)
}
