// Package postgres implements the repository ports on top of pgxpool.
package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cecproctor/proctor-backend/internal/repository"
)

// Advisory lock keys serializing append+trim on the bounded logs.
const (
	violationLogLockKey int64 = 7_310_001
	activityLogLockKey  int64 = 7_310_002
)

// NewStore wires every Postgres repository over one pool.
func NewStore(pool *pgxpool.Pool) *repository.Store {
	return &repository.Store{
		Students:   NewStudentRepository(pool),
		Teachers:   NewTeacherRepository(pool),
		Exams:      NewExamRepository(pool),
		Sessions:   NewSessionRepository(pool),
		Violations: NewViolationRepository(pool),
		Activity:   NewActivityRepository(pool),
		Settings:   NewSettingRepository(pool),
	}
}

// translate maps driver errors onto the repository sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return repository.ErrDuplicate
		case "23503":
			return repository.ErrNotFound
		}
	}
	return err
}

// filter accumulates optional WHERE conditions with positional args.
type filter struct {
	conds []string
	args  []any
}

func (f *filter) add(cond string, arg any) {
	f.args = append(f.args, arg)
	f.conds = append(f.conds, fmt.Sprintf(cond, len(f.args)))
}

func (f *filter) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

// page appends LIMIT/OFFSET; limit <= 0 means unbounded.
func (f *filter) page(limit, offset int) (string, []any) {
	args := append([]any{}, f.args...)
	clause := ""
	if limit > 0 {
		args = append(args, limit)
		clause += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		clause += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return clause, args
}
