package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrValidation         = errors.New("validation")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("not found")
	ErrEmailTaken         = errors.New("email already in use")
	ErrAlreadyFriends     = errors.New("already friends")
	ErrRequestExists      = errors.New("friend request already exists")
	ErrRequestResolved    = errors.New("friend request already resolved")
	ErrTooManyAttempts    = errors.New("too many attempts")
)

// ValidationError carries a user-facing message plus either the list of
// missing required fields or per-field problems.
type ValidationError struct {
	Message       string
	MissingFields []string
	Fields        map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return e.Message + " (" + strings.Join(parts, ", ") + ")"
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

func NewValidationError(message string) error {
	return &ValidationError{Message: message}
}

func NewFieldErrors(message string, fields map[string]string) error {
	return &ValidationError{Message: message, Fields: fields}
}

func NewMissingFieldsError(message string, missing []string) error {
	return &ValidationError{Message: message, MissingFields: missing}
}

// Error pairs one of the sentinel kinds above with the message shown to the
// client.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

func NewError(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}
