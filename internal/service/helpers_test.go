package service

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/repository"
	"github.com/cecproctor/proctor-backend/internal/repository/memory"
)

var testNow = time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)

type testEnv struct {
	store      *repository.Store
	activity   *ActivityService
	settings   *SettingService
	monitor    *MonitorService
	exams      *ExamService
	students   *StudentService
	teachers   *TeacherService
	sessions   *SessionService
	violations *ViolationService
	dashboard  *DashboardService
}

// newTestEnv wires every service over a fresh in-memory store with a frozen
// clock. Redis is disabled.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	freezeClock(t, testNow)

	log := zerolog.Nop()
	store := memory.NewStore(memory.Open())
	activity := NewActivityService(store.Activity, log)
	settings := NewSettingService(store.Settings, activity, nil, log)
	monitor := NewMonitorService(store.Sessions, store.Violations, nil, log)
	exams := NewExamService(store.Exams, nil, 10, log)

	return &testEnv{
		store:      store,
		activity:   activity,
		settings:   settings,
		monitor:    monitor,
		exams:      exams,
		students:   NewStudentService(store.Students, activity, log),
		teachers:   NewTeacherService(store.Teachers, activity, log),
		sessions:   NewSessionService(exams, store.Students, store.Sessions, activity, monitor, log),
		violations: NewViolationService(store, settings, activity, monitor, 1000, log),
		dashboard:  NewDashboardService(store),
	}
}

func freezeClock(t *testing.T, at time.Time) {
	t.Helper()
	prev := nowFunc
	nowFunc = func() time.Time { return at }
	t.Cleanup(func() { nowFunc = prev })
}

// fixRandom makes access code suffixes come from seq, repeating the last one.
func fixRandom(t *testing.T, seq ...int) {
	t.Helper()
	prev := randIntn
	i := 0
	randIntn = func(int) int {
		v := seq[i]
		if i < len(seq)-1 {
			i++
		}
		return v
	}
	t.Cleanup(func() { randIntn = prev })
}

func (e *testEnv) createExam(t *testing.T, title string, minutes int) *model.Exam {
	t.Helper()
	exam, err := e.exams.Create(context.Background(), ExamInput{
		Title:           title,
		Description:     title + " description",
		FormURL:         "https://forms.example.com/" + title,
		DurationMinutes: minutes,
	})
	require.NoError(t, err)
	return exam
}

func (e *testEnv) activeExam(t *testing.T, title string, minutes int) *model.Exam {
	t.Helper()
	exam := e.createExam(t, title, minutes)
	exam, err := e.exams.Activate(context.Background(), exam.ID)
	require.NoError(t, err)
	return exam
}

func (e *testEnv) createStudent(t *testing.T, studentID, name string, status model.StudentStatus) *model.Student {
	t.Helper()
	s, err := e.students.Create(context.Background(), StudentInput{
		StudentID: studentID,
		Name:      name,
		Email:     studentID + "@student.cec.edu",
		Status:    status,
	})
	require.NoError(t, err)
	return s
}

func (e *testEnv) logMessages(t *testing.T) []string {
	t.Helper()
	entries, _, err := e.store.Activity.List(context.Background(), model.LogFilter{}, 0, 0)
	require.NoError(t, err)
	msgs := make([]string, 0, len(entries))
	for _, entry := range entries {
		msgs = append(msgs, entry.Message)
	}
	return msgs
}
