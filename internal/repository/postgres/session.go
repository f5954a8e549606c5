package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cecproctor/proctor-backend/internal/model"
)

// SessionRepository handles exam session data access. Every state change is
// a single conditional UPDATE so concurrent writers never interleave.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

const sessionColumns = `id, student_id, exam_id, status, violation_count, time_remaining_seconds,
	last_activity_at, started_at, ended_at`

func scanSession(row pgx.Row, s *model.Session) error {
	return row.Scan(&s.ID, &s.StudentID, &s.ExamID, &s.Status, &s.ViolationCount,
		&s.TimeRemainingSeconds, &s.LastActivityAt, &s.StartedAt, &s.EndedAt)
}

// CreateIfAbsent relies on UNIQUE (student_id, exam_id); a losing concurrent
// insert falls through to reading the winner's row.
func (r *SessionRepository) CreateIfAbsent(ctx context.Context, s *model.Session) (*model.Session, bool, error) {
	created := &model.Session{}
	err := scanSession(r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (id, student_id, exam_id, status, violation_count,
		        time_remaining_seconds, last_activity_at, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (student_id, exam_id) DO NOTHING
		 RETURNING `+sessionColumns,
		s.ID, s.StudentID, s.ExamID, s.Status, s.ViolationCount,
		s.TimeRemainingSeconds, s.LastActivityAt, s.StartedAt,
	), created)
	if err == nil {
		return created, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, translate(err)
	}
	existing, err := r.GetByStudentAndExam(ctx, s.StudentID, s.ExamID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

func (r *SessionRepository) GetByID(ctx context.Context, id string) (*model.Session, error) {
	s := &model.Session{}
	if err := scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id), s); err != nil {
		return nil, translate(err)
	}
	return s, nil
}

func (r *SessionRepository) GetByStudentAndExam(ctx context.Context, studentID, examID string) (*model.Session, error) {
	s := &model.Session{}
	if err := scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE student_id = $1 AND exam_id = $2`,
		studentID, examID), s); err != nil {
		return nil, translate(err)
	}
	return s, nil
}

func (r *SessionRepository) List(ctx context.Context, examID string, status model.SessionStatus) ([]model.Session, error) {
	f := &filter{}
	if examID != "" {
		f.add("exam_id = $%d", examID)
	}
	if status != "" {
		f.add("status = $%d", status)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions`+f.where()+` ORDER BY seq ASC`, f.args...)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

func collectSessions(rows pgx.Rows) ([]model.Session, error) {
	defer rows.Close()

	sessions := []model.Session{}
	for rows.Next() {
		var s model.Session
		if err := scanSession(rows, &s); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// updateOpen runs a RETURNING update guarded by ended_at IS NULL. When the
// guard filters the row out, the stored session is returned untouched.
func (r *SessionRepository) updateOpen(ctx context.Context, id, query string, args ...any) (*model.Session, error) {
	s := &model.Session{}
	err := scanSession(r.pool.QueryRow(ctx, query, append([]any{id}, args...)...), s)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.GetByID(ctx, id)
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *SessionRepository) Touch(ctx context.Context, id string, at time.Time) (*model.Session, error) {
	return r.updateOpen(ctx, id,
		`UPDATE exam_sessions SET last_activity_at = $2
		 WHERE id = $1 AND ended_at IS NULL
		 RETURNING `+sessionColumns, at)
}

// tickSet builds the SET clause that counts down and closes at zero.
func tickSet(elapsed, at string) string {
	return fmt.Sprintf(`
	SET time_remaining_seconds = GREATEST(time_remaining_seconds - %[1]s::int, 0),
	    status = CASE WHEN time_remaining_seconds - %[1]s::int <= 0 AND status = 'active'
	                  THEN 'completed' ELSE status END,
	    ended_at = CASE WHEN time_remaining_seconds - %[1]s::int <= 0
	                    THEN %[2]s::timestamptz ELSE NULL END`, elapsed, at)
}

func (r *SessionRepository) Tick(ctx context.Context, id string, elapsedSeconds int, at time.Time) (*model.Session, error) {
	return r.updateOpen(ctx, id,
		`UPDATE exam_sessions`+tickSet("$2", "$3")+`
		 WHERE id = $1 AND ended_at IS NULL
		 RETURNING `+sessionColumns, elapsedSeconds, at)
}

// TickOpen decrements every open session in one statement and returns the
// sessions that reached zero.
func (r *SessionRepository) TickOpen(ctx context.Context, elapsedSeconds int, at time.Time) ([]model.Session, error) {
	rows, err := r.pool.Query(ctx,
		`WITH ticked AS (
		     UPDATE exam_sessions`+tickSet("$1", "$2")+`
		     WHERE ended_at IS NULL
		     RETURNING `+sessionColumns+`, seq
		 )
		 SELECT `+sessionColumns+` FROM ticked WHERE ended_at IS NOT NULL ORDER BY seq ASC`,
		elapsedSeconds, at)
	if err != nil {
		return nil, err
	}
	return collectSessions(rows)
}

// End closes an open session; flagged sessions keep their status.
func (r *SessionRepository) End(ctx context.Context, id string, at time.Time) (*model.Session, error) {
	return r.updateOpen(ctx, id,
		`UPDATE exam_sessions
		 SET status = CASE WHEN status = 'active' THEN 'completed' ELSE status END,
		     ended_at = $2
		 WHERE id = $1 AND ended_at IS NULL
		 RETURNING `+sessionColumns, at)
}
