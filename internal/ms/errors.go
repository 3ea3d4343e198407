package ms

import (
	"errors"
	"fmt"
)

const (
	CodeUnknownBackend     = "E_UNKNOWN_BACKEND"
	CodeInvalidConfig      = "E_INVALID_CONFIG"
	CodeTableNotFound      = "E_TABLE_NOT_FOUND"
	CodeDescriptorUnknown  = "E_DESCRIPTOR_UNKNOWN"
	CodeColumnMissing      = "E_COLUMN_MISSING"
	CodeShapeMismatch      = "E_SHAPE_MISMATCH"
	CodeReadFailed         = "E_READ_FAILED"
	CodeBackendUnavailable = "E_BACKEND_UNAVAILABLE"
	CodeClosed             = "E_CLOSED"
)

// Error wraps backend failures with retryability hints.
type Error struct {
	Code      string
	Retryable bool
	Err       error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *Error) Unwrap() error         { return e.Err }
func (e *Error) CodeValue() string     { return e.Code }
func (e *Error) RetryableStatus() bool { return e.Retryable }

// WrapError builds a coded error around err. A nil err is allowed.
func WrapError(code string, retryable bool, err error) *Error {
	if err == nil {
		return &Error{Code: code, Retryable: retryable}
	}
	return &Error{Code: code, Retryable: retryable, Err: err}
}

// Errorf is WrapError with fmt.Errorf formatting.
func Errorf(code string, retryable bool, format string, args ...any) *Error {
	return &Error{Code: code, Retryable: retryable, Err: fmt.Errorf(format, args...)}
}

// CodeOf extracts the code from an error chain, or "" for uncoded errors.
func CodeOf(err error) string {
	var msErr *Error
	if errors.As(err, &msErr) {
		return msErr.Code
	}
	return ""
}

// IsCode reports whether the error chain carries the given code.
func IsCode(err error, code string) bool {
	return CodeOf(err) == code
}
