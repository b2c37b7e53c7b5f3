package store

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes storage errors.
type ErrorCode string

const (
	// ErrCodeUnsupported indicates the host has no usable SQLite driver.
	// Surfaced synchronously at construction, never retried.
	ErrCodeUnsupported ErrorCode = "STORAGE_UNSUPPORTED"

	// ErrCodeUnavailable indicates the connection is terminated or closed.
	// Unrecoverable for this Manager instance.
	ErrCodeUnavailable ErrorCode = "CONNECTION_UNAVAILABLE"

	// ErrCodeKeyExists indicates Add found the key already present.
	ErrCodeKeyExists ErrorCode = "KEY_EXISTS"

	// ErrCodeUnknownCollection indicates the collection is not declared in
	// the schema registry.
	ErrCodeUnknownCollection ErrorCode = "UNKNOWN_COLLECTION"

	// ErrCodeEmptyKey indicates a record's derived key is empty.
	ErrCodeEmptyKey ErrorCode = "EMPTY_KEY"

	// ErrCodeVersionMismatch indicates the on-disk schema version is ahead
	// of the registry's declared version.
	ErrCodeVersionMismatch ErrorCode = "SCHEMA_VERSION_MISMATCH"

	// ErrCodeSaveFailed indicates a reconciliation transaction aborted.
	ErrCodeSaveFailed ErrorCode = "SAVE_FAILED"
)

// Error is a storage error with a machine-readable code and the collection
// and key it concerns, when known.
type Error struct {
	Code       ErrorCode
	Collection string
	Key        string
	Message    string
	Err        error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Collection != "" && e.Key != "":
		return fmt.Sprintf("%s: %s (collection=%s, key=%s)", e.Code, e.Message, e.Collection, e.Key)
	case e.Collection != "":
		return fmt.Sprintf("%s: %s (collection=%s)", e.Code, e.Message, e.Collection)
	default:
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

func is(err error, code ErrorCode) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsKeyExists reports whether err is an Add collision on an existing key.
func IsKeyExists(err error) bool { return is(err, ErrCodeKeyExists) }

// IsUnavailable reports whether err means the connection is gone for good.
func IsUnavailable(err error) bool { return is(err, ErrCodeUnavailable) }

// IsSaveFailed reports whether err is an aborted reconciliation.
func IsSaveFailed(err error) bool { return is(err, ErrCodeSaveFailed) }

func errUnavailable(cause error) *Error {
	return &Error{
		Code:    ErrCodeUnavailable,
		Message: "connection unavailable",
		Err:     cause,
	}
}

func errKeyExists(collection, key string) *Error {
	return &Error{
		Code:       ErrCodeKeyExists,
		Collection: collection,
		Key:        key,
		Message:    "record with this key already exists",
	}
}

func errUnknownCollection(collection string) *Error {
	return &Error{
		Code:       ErrCodeUnknownCollection,
		Collection: collection,
		Message:    "collection is not declared in the schema registry",
	}
}

func errEmptyKey(collection string) *Error {
	return &Error{
		Code:       ErrCodeEmptyKey,
		Collection: collection,
		Message:    "record key is empty",
	}
}
