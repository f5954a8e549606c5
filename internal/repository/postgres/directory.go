package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cecproctor/proctor-backend/internal/model"
	"github.com/cecproctor/proctor-backend/internal/repository"
)

// StudentRepository handles student data access.
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository.
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

const studentColumns = `id, student_id, name, email, status, created_at, updated_at`

func (r *StudentRepository) Create(ctx context.Context, s *model.Student) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO students (`+studentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.StudentID, s.Name, s.Email, s.Status, s.CreatedAt, s.UpdatedAt)
	return translate(err)
}

// Update replaces the editable fields; created_at is read back.
func (r *StudentRepository) Update(ctx context.Context, s *model.Student) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE students SET student_id = $2, name = $3, email = $4, status = $5, updated_at = $6
		 WHERE id = $1 RETURNING created_at`,
		s.ID, s.StudentID, s.Name, s.Email, s.Status, s.UpdatedAt,
	).Scan(&s.CreatedAt)
	return translate(err)
}

func (r *StudentRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM students WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *StudentRepository) GetByID(ctx context.Context, id string) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id).
		Scan(&s.ID, &s.StudentID, &s.Name, &s.Email, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}

// GetByStudentID retrieves a student by business key, ignoring case.
func (r *StudentRepository) GetByStudentID(ctx context.Context, studentID string) (*model.Student, error) {
	s := &model.Student{}
	err := r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE UPPER(student_id) = UPPER($1)`, studentID).
		Scan(&s.ID, &s.StudentID, &s.Name, &s.Email, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}

func (r *StudentRepository) List(ctx context.Context) ([]model.Student, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+studentColumns+` FROM students ORDER BY name ASC, student_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	students := []model.Student{}
	for rows.Next() {
		var s model.Student
		if err := rows.Scan(&s.ID, &s.StudentID, &s.Name, &s.Email, &s.Status, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, rows.Err()
}

// TeacherRepository handles teacher data access.
type TeacherRepository struct {
	pool *pgxpool.Pool
}

// NewTeacherRepository creates a new TeacherRepository.
func NewTeacherRepository(pool *pgxpool.Pool) *TeacherRepository {
	return &TeacherRepository{pool: pool}
}

const teacherColumns = `id, name, email, department, status, created_at, updated_at`

func (r *TeacherRepository) Create(ctx context.Context, t *model.Teacher) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO teachers (`+teacherColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.Name, t.Email, t.Department, t.Status, t.CreatedAt, t.UpdatedAt)
	return translate(err)
}

func (r *TeacherRepository) Update(ctx context.Context, t *model.Teacher) error {
	err := r.pool.QueryRow(ctx,
		`UPDATE teachers SET name = $2, email = $3, department = $4, status = $5, updated_at = $6
		 WHERE id = $1 RETURNING created_at`,
		t.ID, t.Name, t.Email, t.Department, t.Status, t.UpdatedAt,
	).Scan(&t.CreatedAt)
	return translate(err)
}

func (r *TeacherRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM teachers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *TeacherRepository) GetByID(ctx context.Context, id string) (*model.Teacher, error) {
	t := &model.Teacher{}
	err := r.pool.QueryRow(ctx, `SELECT `+teacherColumns+` FROM teachers WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Email, &t.Department, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return t, nil
}

func (r *TeacherRepository) List(ctx context.Context) ([]model.Teacher, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+teacherColumns+` FROM teachers ORDER BY name ASC, email ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teachers := []model.Teacher{}
	for rows.Next() {
		var t model.Teacher
		if err := rows.Scan(&t.ID, &t.Name, &t.Email, &t.Department, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		teachers = append(teachers, t)
	}
	return teachers, rows.Err()
}
