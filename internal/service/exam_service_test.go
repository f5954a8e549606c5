package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cecproctor/proctor-backend/internal/model"
)

func TestExamService_Create(t *testing.T) {
	env := newTestEnv(t)

	exam := env.createExam(t, "Mathematics Final Exam", 120)

	assert.Regexp(t, `^MATH2025\d{3}$`, exam.UniqueID)
	assert.Equal(t, model.ExamStatusDraft, exam.Status)
	assert.Equal(t, 120, exam.DurationMinutes)
	assert.NotEmpty(t, exam.ID)
	assert.Equal(t, testNow, exam.CreatedAt)
}

func TestExamService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.exams.Create(context.Background(), ExamInput{Title: " ", DurationMinutes: 0})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "title")
	assert.Contains(t, ve.Fields, "form_url")
	assert.Contains(t, ve.Fields, "duration_minutes")
}

func TestExamService_CreateRejectsEndBeforeStart(t *testing.T) {
	env := newTestEnv(t)
	start := testNow.Add(time.Hour)
	end := testNow

	_, err := env.exams.Create(context.Background(), ExamInput{
		Title: "Math", FormURL: "https://forms.example.com/m", DurationMinutes: 60,
		StartTime: &start, EndTime: &end,
	})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "end_time")
}

func TestExamService_CreateRetriesOnCollision(t *testing.T) {
	env := newTestEnv(t)
	fixRandom(t, 7, 7, 8)

	first := env.createExam(t, "Math", 60)
	second := env.createExam(t, "Math", 60)

	assert.Equal(t, "MATH2025007", first.UniqueID)
	assert.Equal(t, "MATH2025008", second.UniqueID)
}

func TestExamService_CreateGivesUpAfterMaxAttempts(t *testing.T) {
	env := newTestEnv(t)
	fixRandom(t, 7)

	env.createExam(t, "Math", 60)
	_, err := env.exams.Create(context.Background(), ExamInput{
		Title: "Math", FormURL: "https://forms.example.com/m", DurationMinutes: 60,
	})

	assert.ErrorIs(t, err, ErrCodeGeneration)
}

func TestExamService_DeletedCodesAreNotReissued(t *testing.T) {
	env := newTestEnv(t)
	fixRandom(t, 5)
	ctx := context.Background()

	exam := env.createExam(t, "Math", 60)
	require.NoError(t, env.exams.Delete(ctx, exam.ID))

	_, err := env.exams.Create(ctx, ExamInput{
		Title: "Math", FormURL: "https://forms.example.com/m", DurationMinutes: 60,
	})
	assert.ErrorIs(t, err, ErrCodeGeneration)

	_, err = env.exams.GetByID(ctx, exam.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExamService_Lifecycle(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		steps   []func(*ExamService, string) (*model.Exam, error)
		want    model.ExamStatus
		wantErr error
	}{
		{
			name:  "draft to active",
			steps: []func(*ExamService, string) (*model.Exam, error){activate},
			want:  model.ExamStatusActive,
		},
		{
			name:  "activate twice is a no-op",
			steps: []func(*ExamService, string) (*model.Exam, error){activate, activate},
			want:  model.ExamStatusActive,
		},
		{
			name:  "active to completed",
			steps: []func(*ExamService, string) (*model.Exam, error){activate, complete},
			want:  model.ExamStatusCompleted,
		},
		{
			name:  "draft to cancelled",
			steps: []func(*ExamService, string) (*model.Exam, error){cancel},
			want:  model.ExamStatusCancelled,
		},
		{
			name:  "active to cancelled",
			steps: []func(*ExamService, string) (*model.Exam, error){activate, cancel},
			want:  model.ExamStatusCancelled,
		},
		{
			name:    "draft cannot complete",
			steps:   []func(*ExamService, string) (*model.Exam, error){complete},
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "completed is terminal",
			steps:   []func(*ExamService, string) (*model.Exam, error){activate, complete, activate},
			wantErr: ErrInvalidTransition,
		},
		{
			name:    "cancelled is terminal",
			steps:   []func(*ExamService, string) (*model.Exam, error){cancel, activate},
			wantErr: ErrInvalidTransition,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			exam := env.createExam(t, "Math", 60)

			var (
				got *model.Exam
				err error
			)
			for _, step := range tt.steps {
				got, err = step(env.exams, exam.ID)
				if err != nil {
					break
				}
			}

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Status)
			assert.Equal(t, exam.UniqueID, got.UniqueID)

			stored, err := env.exams.GetByID(ctx, exam.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, stored.Status)
		})
	}
}

func activate(s *ExamService, id string) (*model.Exam, error) {
	return s.Activate(context.Background(), id)
}

func complete(s *ExamService, id string) (*model.Exam, error) {
	return s.Complete(context.Background(), id)
}

func cancel(s *ExamService, id string) (*model.Exam, error) {
	return s.Cancel(context.Background(), id)
}

func TestExamService_TransitionUnknownExam(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.exams.Activate(context.Background(), "00000000-0000-0000-0000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExamService_ValidateAccessCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.createExam(t, "Mathematics Final Exam", 120)

	_, err := env.exams.ValidateAccessCode(ctx, exam.UniqueID)
	assert.ErrorIs(t, err, ErrExamNotActive)

	_, err = env.exams.Activate(ctx, exam.ID)
	require.NoError(t, err)

	got, err := env.exams.ValidateAccessCode(ctx, "  "+strings.ToLower(exam.UniqueID)+" ")
	require.NoError(t, err)
	assert.Equal(t, exam.ID, got.ID)

	_, err = env.exams.ValidateAccessCode(ctx, "NOPE2025000")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = env.exams.ValidateAccessCode(ctx, "   ")
	var ve *ValidationError
	assert.True(t, errors.As(err, &ve))

	_, err = env.exams.Complete(ctx, exam.ID)
	require.NoError(t, err)
	_, err = env.exams.ValidateAccessCode(ctx, exam.UniqueID)
	assert.ErrorIs(t, err, ErrExamNotActive)
}

func TestExamService_UpdateKeepsCodeAndCreation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.createExam(t, "Mathematics Final Exam", 120)

	freezeClock(t, testNow.Add(time.Hour))
	updated, err := env.exams.Update(ctx, exam.ID, ExamInput{
		Title:           "Physics Quiz",
		FormURL:         "https://forms.example.com/physics",
		DurationMinutes: 45,
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "Physics Quiz", updated.Title)
	assert.Equal(t, 45, updated.DurationMinutes)
	assert.Equal(t, exam.UniqueID, updated.UniqueID)
	assert.Equal(t, exam.CreatedAt, updated.CreatedAt)
	assert.Equal(t, testNow.Add(time.Hour), updated.UpdatedAt)
	assert.Equal(t, model.ExamStatusDraft, updated.Status)
}

func TestExamService_UpdateStatusFollowsLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	exam := env.createExam(t, "Math", 60)
	in := ExamInput{Title: "Math", FormURL: "https://forms.example.com/m", DurationMinutes: 60}

	_, err := env.exams.Update(ctx, exam.ID, in, model.ExamStatusCompleted)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	updated, err := env.exams.Update(ctx, exam.ID, in, model.ExamStatusActive)
	require.NoError(t, err)
	assert.Equal(t, model.ExamStatusActive, updated.Status)

	_, err = env.exams.Update(ctx, exam.ID, in, "archived")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestExamService_ListNewestFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := env.createExam(t, "Math", 60)
	freezeClock(t, testNow.Add(time.Minute))
	second := env.activeExam(t, "Physics", 60)

	exams, pagination, err := env.exams.List(ctx, "", 1, 10)
	require.NoError(t, err)
	require.Len(t, exams, 2)
	assert.Equal(t, second.ID, exams[0].ID)
	assert.Equal(t, first.ID, exams[1].ID)
	assert.Equal(t, 2, pagination.TotalItems)

	active, _, err := env.exams.List(ctx, model.ExamStatusActive, 1, 10)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)
}
