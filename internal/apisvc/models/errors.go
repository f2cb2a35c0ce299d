package models

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input. Requests failing validation
// are rejected before any mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

// NotFoundError reports a referenced document that does not exist or is
// not visible to the caller.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return e.Resource + " not found"
}

// ConflictError reports an operation rejected by current state, e.g. a
// guest that is already synced or has dependent matches.
type ConflictError struct {
	Reason string
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// DuplicateError surfaces a unique-index violation from the storage
// layer.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return e.Field + " already exists"
}

// StorageError wraps an underlying persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

func IsDuplicate(err error) bool {
	var d *DuplicateError
	return errors.As(err, &d)
}
