package models

import (
	"errors"
	"fmt"
)

// ErrorCode is the stable machine-readable code carried by every user-visible
// failure.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "VALIDATION_ERROR"
	CodeDuplicate          ErrorCode = "DUPLICATE_APPLICATION"
	CodeJobNotFound        ErrorCode = "JOB_NOT_FOUND"
	CodeJobInactive        ErrorCode = "JOB_INACTIVE"
	CodeAppNotFound        ErrorCode = "APPLICATION_NOT_FOUND"
	CodeMaxAttemptsReached ErrorCode = "MAX_ATTEMPTS_REACHED"
	CodeInvalidAction      ErrorCode = "INVALID_ACTION"
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// CodedError pairs a taxonomy code with a human-readable message.
type CodedError struct {
	Code    ErrorCode
	Message string
}

func (e *CodedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError builds a coded error with a formatted message.
func NewError(code ErrorCode, format string, args ...any) *CodedError {
	return &CodedError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the taxonomy code from err, defaulting to INTERNAL_ERROR for
// anything unexpected so internal detail never leaks to callers.
func CodeOf(err error) ErrorCode {
	var ce *CodedError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeInternal
}

// IsCode reports whether err carries the given taxonomy code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
