package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return "validation failed"
	}
	return err.Err.Error()
}

// DuplicateError reports a unique constraint violation.
type DuplicateError struct {
	Err   error
	Field string
}

func NewDuplicateError(err error, field string) error {
	return &DuplicateError{Err: err, Field: field}
}

func (err DuplicateError) Error() string {
	if err.Err == nil {
		return "already exists"
	}
	return err.Err.Error()
}

// StateError reports an operation rejected because of the current state of a resource,
// e.g. submitting to a schedule that is not collecting data.
type StateError struct {
	Err error
}

func NewStateError(err error) error {
	return &StateError{Err: err}
}

func (err StateError) Error() string {
	return err.Err.Error()
}

type NotFoundError struct {
	Resource string
}

func NewNotFoundError(resource string) error {
	return &NotFoundError{Resource: resource}
}

func (err NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", err.Resource)
}

func IsNotFound(err error) bool {
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

func IsDuplicate(err error) bool {
	var de *DuplicateError
	return errors.As(err, &de)
}

func IsState(err error) bool {
	var se *StateError
	return errors.As(err, &se)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
