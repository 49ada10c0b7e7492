package oxidb

import (
	"errors"
	"fmt"
	"strings"
)

// Error is an error response from the server.
type Error struct {
	Cmd string
	Msg string
}

func (e *Error) Error() string {
	return fmt.Sprintf("oxidb: %s: %s", e.Cmd, e.Msg)
}

// TransactionConflictError is returned when a commit fails its OCC check.
type TransactionConflictError struct {
	Msg string
}

func (e *TransactionConflictError) Error() string {
	return fmt.Sprintf("oxidb: transaction conflict: %s", e.Msg)
}

// ConnError is a transport failure on a connection. The request/response
// framing is lost after one, so the client must be replaced.
type ConnError struct {
	Op  string
	Err error
}

func (e *ConnError) Error() string {
	return fmt.Sprintf("oxidb: %s: %v", e.Op, e.Err)
}

func (e *ConnError) Unwrap() error { return e.Err }

// IsConnError reports whether err came from a broken connection.
func IsConnError(err error) bool {
	var ce *ConnError
	return errors.As(err, &ce)
}

// IsConflict reports whether err is an optimistic-concurrency conflict.
func IsConflict(err error) bool {
	var tce *TransactionConflictError
	return errors.As(err, &tce)
}

// IsDuplicate reports whether err is a unique index violation.
func IsDuplicate(err error) bool {
	var se *Error
	if !errors.As(err, &se) {
		return false
	}
	msg := strings.ToLower(se.Msg)
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
