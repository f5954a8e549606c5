package service

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cecproctor/proctor-backend/internal/model"
)

func TestProctoringFlow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.createStudent(t, "STU001", "John Smith", model.StudentStatusActive)

	exam := env.createExam(t, "Mathematics Final Exam", 120)
	assert.Regexp(t, regexp.MustCompile(`^MATH\d{4}\d{3}$`), exam.UniqueID)

	_, _, err := env.sessions.Join(ctx, "STU001", exam.UniqueID)
	require.ErrorIs(t, err, ErrExamNotActive)

	_, err = env.exams.Activate(ctx, exam.ID)
	require.NoError(t, err)

	session, _, err := env.sessions.Join(ctx, "STU001", exam.UniqueID)
	require.NoError(t, err)
	assert.Equal(t, model.SessionStatusActive, session.Status)

	for i := 0; i < 3; i++ {
		_, session, err = env.violations.Record(ctx, tabSwitch("STU001", exam.ID, model.SeverityHigh))
		require.NoError(t, err)
	}
	assert.Equal(t, model.SessionStatusFlagged, session.Status)
	assert.Equal(t, 3, session.ViolationCount)

	stats, err := env.violations.Stats(ctx, model.ViolationFilter{ExamID: exam.ID})
	require.NoError(t, err)
	assert.Equal(t, 9, stats.WeightedScore)

	_, err = env.exams.Complete(ctx, exam.ID)
	require.NoError(t, err)
	_, _, err = env.sessions.Join(ctx, "STU002", exam.UniqueID)
	assert.ErrorIs(t, err, ErrExamNotActive)
}
