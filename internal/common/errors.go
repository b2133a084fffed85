package common

import (
	"context"
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")

	ErrDocumentUnreadable  = errors.New("document unreadable")
	ErrDocumentUnavailable = errors.New("document unavailable")
	ErrValidationFailed    = errors.New("validation failed")
	ErrCollaborator        = errors.New("collaborator error")
	ErrModelNotFound       = errors.New("model not found")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// CollaboratorError carries a failed call to an external system. Message is
// what the remote side said, kept verbatim for the report.
type CollaboratorError struct {
	Service string
	Status  int
	Message string
}

func (e *CollaboratorError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: status %d: %s", e.Service, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Service, e.Message)
}

func (e *CollaboratorError) Unwrap() error { return ErrCollaborator }

func NewCollaboratorError(service string, status int, message string) error {
	return &CollaboratorError{Service: service, Status: status, Message: message}
}

// ErrorKind classifies a per-row failure for the report.
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindDocumentUnreadable  ErrorKind = "DocumentUnreadable"
	KindDocumentUnavailable ErrorKind = "DocumentUnavailable"
	KindValidationFailed    ErrorKind = "ValidationFailed"
	KindCollaboratorError   ErrorKind = "CollaboratorError"
	KindUnexpected          ErrorKind = "Unexpected"
)

// Classify maps err onto the error taxonomy. Timeouts count as collaborator
// failures since every deadline in a row belongs to a remote call.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrDocumentUnreadable):
		return KindDocumentUnreadable
	case errors.Is(err, ErrDocumentUnavailable):
		return KindDocumentUnavailable
	case errors.Is(err, ErrValidationFailed):
		return KindValidationFailed
	case errors.Is(err, ErrCollaborator), errors.Is(err, ErrModelNotFound), errors.Is(err, context.DeadlineExceeded):
		return KindCollaboratorError
	}
	return KindUnexpected
}

// Message returns the text recorded for err in a report row. Collaborator
// messages pass through unchanged.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ce *CollaboratorError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	var ae *AppError
	if errors.As(err, &ae) && ae.Code == CodeValidation {
		return ae.Message
	}
	return err.Error()
}

const (
	CodeConfig     = "CONFIG_ERROR"
	CodeValidation = "VALIDATION_ERROR"
)
