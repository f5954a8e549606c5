package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cecproctor/proctor-backend/internal/model"
)

// appendBounded runs insert and the trim down to limit in one transaction,
// serialized by an advisory lock so concurrent appends cannot overshoot.
func appendBounded(ctx context.Context, pool *pgxpool.Pool, lockKey int64, table string, limit int, insert func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, lockKey); err != nil {
			return err
		}
		if err := insert(tx); err != nil {
			return translate(err)
		}
		if limit <= 0 {
			return nil
		}
		_, err := tx.Exec(ctx,
			`DELETE FROM `+table+` WHERE id IN (
			     SELECT id FROM `+table+` ORDER BY created_at DESC, seq DESC OFFSET $1
			 )`, limit)
		return err
	})
}

// ViolationRepository handles the bounded violation log.
type ViolationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(pool *pgxpool.Pool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

func insertViolation(ctx context.Context, tx pgx.Tx, v *model.Violation) error {
	_, err := tx.Exec(ctx,
		`INSERT INTO violations (id, student_id, student_name, exam_id, exam_title, type, description, severity, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		v.ID, v.StudentID, v.StudentName, v.ExamID, v.ExamTitle, v.Type, v.Description, v.Severity, v.Timestamp)
	return err
}

func (r *ViolationRepository) Append(ctx context.Context, v *model.Violation, limit int) error {
	return appendBounded(ctx, r.pool, violationLogLockKey, "violations", limit, func(tx pgx.Tx) error {
		return insertViolation(ctx, tx, v)
	})
}

// Record inserts, trims and updates the session in one transaction. The
// session row is locked first so the returned before/after pair is exact.
func (r *ViolationRepository) Record(ctx context.Context, v *model.Violation, limit, threshold int) (*model.Session, *model.Session, error) {
	var before, after *model.Session
	err := appendBounded(ctx, r.pool, violationLogLockKey, "violations", limit, func(tx pgx.Tx) error {
		if err := insertViolation(ctx, tx, v); err != nil {
			return err
		}

		current := &model.Session{}
		err := scanSession(tx.QueryRow(ctx,
			`SELECT `+sessionColumns+` FROM exam_sessions
			 WHERE student_id = $1 AND exam_id = $2
			 FOR UPDATE`, v.StudentID, v.ExamID), current)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		before, after = current, current
		if !current.Open() {
			return nil
		}

		updated := &model.Session{}
		if err := scanSession(tx.QueryRow(ctx,
			`UPDATE exam_sessions
			 SET violation_count = violation_count + 1,
			     last_activity_at = $3,
			     status = CASE WHEN status = 'active' AND violation_count + 1 >= $2::int
			                   THEN 'flagged' ELSE status END
			 WHERE id = $1
			 RETURNING `+sessionColumns, current.ID, threshold, v.Timestamp), updated); err != nil {
			return err
		}
		after = updated
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}

// List returns matching violations newest first plus the total match count.
func (r *ViolationRepository) List(ctx context.Context, vf model.ViolationFilter, limit, offset int) ([]model.Violation, int, error) {
	f := &filter{}
	if vf.StudentID != "" {
		f.add("UPPER(student_id) = UPPER($%d)", vf.StudentID)
	}
	if vf.ExamID != "" {
		f.add("exam_id = $%d", vf.ExamID)
	}
	if vf.Severity != "" {
		f.add("severity = $%d", vf.Severity)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM violations`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	clause, args := f.page(limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT id, student_id, student_name, exam_id, exam_title, type, description, severity, created_at
		 FROM violations`+f.where()+` ORDER BY created_at DESC, seq DESC`+clause, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	violations := []model.Violation{}
	for rows.Next() {
		var v model.Violation
		if err := rows.Scan(&v.ID, &v.StudentID, &v.StudentName, &v.ExamID, &v.ExamTitle,
			&v.Type, &v.Description, &v.Severity, &v.Timestamp); err != nil {
			return nil, 0, err
		}
		violations = append(violations, v)
	}
	return violations, total, rows.Err()
}

// ActivityRepository handles the bounded system log.
type ActivityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository creates a new ActivityRepository.
func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

func (r *ActivityRepository) Append(ctx context.Context, e *model.SystemLogEntry, limit int) error {
	return appendBounded(ctx, r.pool, activityLogLockKey, "system_logs", limit, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO system_logs (id, type, message, severity, created_at) VALUES ($1, $2, $3, $4, $5)`,
			e.ID, e.Type, e.Message, e.Severity, e.Timestamp)
		return err
	})
}

func (r *ActivityRepository) List(ctx context.Context, lf model.LogFilter, limit, offset int) ([]model.SystemLogEntry, int, error) {
	f := &filter{}
	if lf.Type != "" {
		f.add("type = $%d", lf.Type)
	}
	if lf.Severity != "" {
		f.add("severity = $%d", lf.Severity)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM system_logs`+f.where(), f.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	clause, args := f.page(limit, offset)
	rows, err := r.pool.Query(ctx,
		`SELECT id, type, message, severity, created_at
		 FROM system_logs`+f.where()+` ORDER BY created_at DESC, seq DESC`+clause, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	entries := []model.SystemLogEntry{}
	for rows.Next() {
		var e model.SystemLogEntry
		if err := rows.Scan(&e.ID, &e.Type, &e.Message, &e.Severity, &e.Timestamp); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
