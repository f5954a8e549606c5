package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cecproctor/proctor-backend/internal/model"
)

func TestDashboardService(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.createStudent(t, "STU001", "John Smith", model.StudentStatusActive)
	env.createStudent(t, "STU002", "Sarah Johnson", model.StudentStatusActive)
	_, err := env.teachers.Create(ctx, TeacherInput{Name: "Dr. Emily Wilson", Email: "teacher@cec.edu", Department: "Mathematics"})
	require.NoError(t, err)

	mathExam := env.activeExam(t, "Mathematics Final Exam", 120)
	physics := env.activeExam(t, "Physics Quiz", 60)
	env.createExam(t, "Chemistry Draft", 30)

	s1, _, err := env.sessions.Join(ctx, "STU001", mathExam.UniqueID)
	require.NoError(t, err)
	_, _, err = env.sessions.Join(ctx, "STU002", mathExam.UniqueID)
	require.NoError(t, err)
	s3, _, err := env.sessions.Join(ctx, "STU001", physics.UniqueID)
	require.NoError(t, err)
	_, err = env.sessions.Submit(ctx, s3.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, _, err := env.violations.Record(ctx, tabSwitch("STU001", mathExam.ID, model.SeverityMedium))
		require.NoError(t, err)
	}
	_, _, err = env.violations.Record(ctx, tabSwitch("STU001", physics.ID, model.SeverityLow))
	require.NoError(t, err)

	admin, err := env.dashboard.Admin(ctx)
	require.NoError(t, err)
	assert.Equal(t, &AdminDashboard{TotalStudents: 2, TotalTeachers: 1, ActiveExams: 2, TotalViolations: 4}, admin)

	all, err := env.dashboard.Teacher(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, &TeacherDashboard{TotalActive: 2, TotalViolations: 4, FlaggedStudents: 1}, all)

	scoped, err := env.dashboard.Teacher(ctx, mathExam.ID)
	require.NoError(t, err)
	assert.Equal(t, &TeacherDashboard{TotalActive: 2, TotalViolations: 3, FlaggedStudents: 1}, scoped)

	flagged, err := env.sessions.GetByID(ctx, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusFlagged, flagged.Status)
}
