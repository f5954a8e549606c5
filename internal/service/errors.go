package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/cecproctor/proctor-backend/internal/repository"
)

// Domain errors. Callers match them with errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrExamNotActive     = errors.New("exam is not active")
	ErrCodeGeneration    = errors.New("could not generate a unique access code")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrConflict          = errors.New("already exists")
	ErrStudentSuspended  = errors.New("student is suspended")
	ErrSessionClosed     = errors.New("session has ended")
)

// ValidationError reports missing or malformed input per field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// fieldErrors collects validation failures before returning them as one error.
type fieldErrors map[string]string

func (f fieldErrors) required(field, value string) {
	if strings.TrimSpace(value) == "" {
		f[field] = "is required"
	}
}

func (f fieldErrors) err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

func invalidTransition[S ~string](from, to S) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// mapRepoErr converts persistence sentinels into domain errors.
func mapRepoErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, repository.ErrDuplicate):
		return ErrConflict
	}
	return err
}
