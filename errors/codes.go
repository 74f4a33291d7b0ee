package errors

import "errors"

// ErrorCode classifies an error for logs and process exit status.
// Codes are strings so they serialize naturally in structured log fields.
type ErrorCode string

const (
	// CodeNotFound indicates a requested object does not exist.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeIntegrity indicates the payload did not match its declared checksum.
	CodeIntegrity ErrorCode = "INTEGRITY_FAILED"

	// CodeInvalidInput indicates the provided input is invalid or malformed.
	CodeInvalidInput ErrorCode = "INVALID_INPUT"

	// CodeTruncated indicates a transfer ended early.
	CodeTruncated ErrorCode = "TRUNCATED"

	// CodeNotImplemented indicates the backend does not support the operation.
	CodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// CodeTransfer indicates any other backend I/O failure.
	CodeTransfer ErrorCode = "TRANSFER_FAILED"
)

// CodeOf returns the code for err. A nil error has no code.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrObjectNotFound):
		return CodeNotFound
	case errors.Is(err, ErrIntegrity):
		return CodeIntegrity
	case IsInvalidInput(err):
		return CodeInvalidInput
	case errors.Is(err, ErrTruncated):
		return CodeTruncated
	case errors.Is(err, ErrNotImplemented):
		return CodeNotImplemented
	default:
		return CodeTransfer
	}
}
