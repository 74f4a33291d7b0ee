// Package errors provides error types and handling for Storj object operations.
package errors

import (
	"errors"
	"fmt"
)

// Error represents an object operation error with context about the operation that failed.
// It wraps the underlying backend error with additional context for better debugging.
type Error struct {
	// Op is the operation that failed (e.g., "upload", "download", "delete")
	Op string

	// Bucket is the bucket name (if applicable)
	Bucket string

	// Key is the object key (if applicable)
	Key string

	// Err is the underlying error from the backend or other source
	Err error
}

// Error implements the error interface by providing a formatted error message.
func (e *Error) Error() string {
	if e.Bucket != "" && e.Key != "" {
		return fmt.Sprintf("storj.%s %s/%s: %v", e.Op, e.Bucket, e.Key, e.Err)
	}
	if e.Bucket != "" {
		return fmt.Sprintf("storj.%s bucket %s: %v", e.Op, e.Bucket, e.Err)
	}
	if e.Key != "" {
		return fmt.Sprintf("storj.%s object %s: %v", e.Op, e.Key, e.Err)
	}
	return fmt.Sprintf("storj.%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error chaining support.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithBucket adds bucket context to an existing error.
func (e *Error) WithBucket(bucket string) *Error {
	e.Bucket = bucket
	return e
}

// WithKey adds object key context to an existing error.
func (e *Error) WithKey(key string) *Error {
	e.Key = key
	return e
}

// WithMessage wraps the underlying error with a custom message.
func (e *Error) WithMessage(message string) *Error {
	e.Err = fmt.Errorf("%s: %w", message, e.Err)
	return e
}

// NewError creates a new Error with the given operation and underlying error.
func NewError(op string, err error) *Error {
	return &Error{
		Op:  op,
		Err: err,
	}
}

// NewObjectError creates a new Error with bucket and key context.
func NewObjectError(op, bucket, key string, err error) *Error {
	return &Error{
		Op:     op,
		Bucket: bucket,
		Key:    key,
		Err:    err,
	}
}

// Sentinel errors for common object operation failures.
// These can be used with errors.Is() for error checking.
var (
	// ErrObjectNotFound indicates that the requested object does not exist
	ErrObjectNotFound = errors.New("storj: object not found")

	// ErrIntegrity indicates that the declared checksum does not match the payload
	ErrIntegrity = errors.New("storj: checksum mismatch")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("storj: invalid input")

	// ErrInvalidObjectKey indicates that the object key is invalid
	ErrInvalidObjectKey = errors.New("storj: invalid object key")

	// ErrInvalidRange indicates that the requested byte range is invalid
	ErrInvalidRange = errors.New("storj: invalid range")

	// ErrTruncated indicates that a download ended before the announced length
	ErrTruncated = errors.New("storj: truncated transfer")

	// ErrNotImplemented indicates that the backend lacks the requested capability
	ErrNotImplemented = errors.New("storj: not implemented")
)

// IsObjectNotFound checks if an error indicates that an object was not found.
// This is a convenience function that handles both sentinel errors and wrapped errors.
func IsObjectNotFound(err error) bool {
	return errors.Is(err, ErrObjectNotFound)
}

// IsIntegrityError checks if an error indicates a checksum mismatch.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrIntegrity)
}

// IsInvalidInput checks if an error indicates invalid input, including invalid keys and ranges.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrInvalidObjectKey) ||
		errors.Is(err, ErrInvalidRange)
}
