package service

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAIDisabled         = errors.New("AI features are not configured")
)

// InputError is a request the service refuses before touching storage.
type InputError struct {
	Msg string
}

func (e *InputError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &InputError{Msg: fmt.Sprintf(format, args...)}
}

func notFound(what string) error {
	return fmt.Errorf("%s %w", what, ErrNotFound)
}
