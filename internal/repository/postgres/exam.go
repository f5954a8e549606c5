package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/repository"
)

// ExamRepository handles exam and access-code data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

const examColumns = `id, title, description, form_url, duration_minutes, start_time, end_time,
	status, unique_id, created_at, updated_at`

func scanExam(row pgx.Row, e *model.Exam) error {
	return row.Scan(&e.ID, &e.Title, &e.Description, &e.FormURL, &e.DurationMinutes,
		&e.StartTime, &e.EndTime, &e.Status, &e.UniqueID, &e.CreatedAt, &e.UpdatedAt)
}

// Create reserves the access code in issued_access_codes and inserts the
// exam in the same transaction.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	e.UniqueID = strings.ToUpper(e.UniqueID)
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`INSERT INTO issued_access_codes (code) VALUES ($1) ON CONFLICT DO NOTHING`, e.UniqueID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return repository.ErrAccessCodeTaken
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO exams (`+examColumns+`)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			e.ID, e.Title, e.Description, e.FormURL, e.DurationMinutes, e.StartTime, e.EndTime,
			e.Status, e.UniqueID, e.CreatedAt, e.UpdatedAt)
		return translate(err)
	})
}

// Update writes the editable fields only while the stored status equals expected.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam, expected model.ExamStatus) error {
	err := scanExam(r.pool.QueryRow(ctx,
		`UPDATE exams SET title = $2, description = $3, form_url = $4, duration_minutes = $5,
		        start_time = $6, end_time = $7, status = $8, updated_at = $9
		 WHERE id = $1 AND status = $10
		 RETURNING `+examColumns,
		e.ID, e.Title, e.Description, e.FormURL, e.DurationMinutes, e.StartTime, e.EndTime,
		e.Status, e.UpdatedAt, expected,
	), e)
	if errors.Is(err, pgx.ErrNoRows) {
		return r.missOrMismatch(ctx, e.ID)
	}
	return translate(err)
}

// UpdateStatus is a compare-and-set on the status column.
func (r *ExamRepository) UpdateStatus(ctx context.Context, id string, from, to model.ExamStatus) (*model.Exam, error) {
	e := &model.Exam{}
	err := scanExam(r.pool.QueryRow(ctx,
		`UPDATE exams SET status = $3, updated_at = NOW()
		 WHERE id = $1 AND status = $2
		 RETURNING `+examColumns, id, from, to), e)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, r.missOrMismatch(ctx, id)
	}
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

func (r *ExamRepository) missOrMismatch(ctx context.Context, id string) error {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM exams WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrStatusMismatch
}

// Delete removes the exam; its sessions cascade and its code stays issued.
func (r *ExamRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exams WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *ExamRepository) GetByID(ctx context.Context, id string) (*model.Exam, error) {
	e := &model.Exam{}
	if err := scanExam(r.pool.QueryRow(ctx, `SELECT `+examColumns+` FROM exams WHERE id = $1`, id), e); err != nil {
		return nil, translate(err)
	}
	return e, nil
}

// GetByAccessCode matches unique_id case-insensitively.
func (r *ExamRepository) GetByAccessCode(ctx context.Context, code string) (*model.Exam, error) {
	e := &model.Exam{}
	err := scanExam(r.pool.QueryRow(ctx,
		`SELECT `+examColumns+` FROM exams WHERE unique_id = UPPER($1)`, code), e)
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

func (r *ExamRepository) AccessCodeIssued(ctx context.Context, code string) (bool, error) {
	var issued bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM issued_access_codes WHERE code = UPPER($1))`, code).Scan(&issued)
	return issued, err
}

// List returns exams newest first, optionally filtered by status.
func (r *ExamRepository) List(ctx context.Context, status model.ExamStatus) ([]model.Exam, error) {
	f := &filter{}
	if status != "" {
		f.add("status = $%d", status)
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+examColumns+` FROM exams`+f.where()+` ORDER BY created_at DESC, id DESC`, f.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	exams := []model.Exam{}
	for rows.Next() {
		var e model.Exam
		if err := scanExam(rows, &e); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}
