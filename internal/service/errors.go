package service

import (
	"errors"
	"fmt"

	"todo-assistant/internal/repository"
)

var (
	// ErrNotFound means the owner has no such task, category or definition.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a category with that name already exists for the owner.
	ErrConflict = errors.New("already exists")
)

// ValidationError rejects user input before anything is stored.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// notFound maps a missing row to ErrNotFound and keeps other errors as they are.
func notFound(err error) error {
	if repository.IsNotFound(err) {
		return ErrNotFound
	}
	return err
}
