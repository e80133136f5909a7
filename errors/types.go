package errors

import (
	"encoding/json"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Configuration errors
	ErrCodeConfigNotFound ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  ErrorCode = "CONFIG_INVALID"

	// Surface acquisition errors
	ErrCodeSurfaceDisconnected  ErrorCode = "SURFACE_DISCONNECTED"
	ErrCodeSurfaceLaunchFailed  ErrorCode = "SURFACE_LAUNCH_FAILED"
	ErrCodeSurfaceProtocol      ErrorCode = "SURFACE_PROTOCOL"
	ErrCodeSurfaceClosed        ErrorCode = "SURFACE_CLOSED"
	ErrCodeAcquisitionExhausted ErrorCode = "ACQUISITION_EXHAUSTED"
	ErrCodeWiringFailed         ErrorCode = "WIRING_FAILED"

	// Capture errors
	ErrCodeCaptureFailed      ErrorCode = "CAPTURE_FAILED"
	ErrCodeDisplayUnavailable ErrorCode = "DISPLAY_UNAVAILABLE"

	// Housekeeping errors
	ErrCodeArchiveFailed  ErrorCode = "ARCHIVE_FAILED"
	ErrCodePriorityFailed ErrorCode = "PRIORITY_FAILED"

	// Process errors
	ErrCodeAlreadyRunning ErrorCode = "ALREADY_RUNNING"

	// General errors
	ErrCodeInternal     ErrorCode = "INTERNAL_ERROR"
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// CctvError represents a structured error with context
type CctvError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *CctvError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *CctvError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *CctvError) WithDetail(key string, value interface{}) *CctvError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *CctvError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new CctvError
func New(code ErrorCode, message string) *CctvError {
	return &CctvError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a CctvError
func Wrap(err error, code ErrorCode, message string) *CctvError {
	return &CctvError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is reports whether err, or any error it wraps, is a CctvError with the given code.
func Is(err error, code ErrorCode) bool {
	if err == nil {
		return false
	}

	cctvErr, ok := err.(*CctvError)
	if !ok {
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return Is(unwrapper.Unwrap(), code)
		}
		return false
	}

	if cctvErr.Code == code {
		return true
	}
	return Is(cctvErr.Cause, code)
}

// GetCode extracts the outermost error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	cctvErr, ok := err.(*CctvError)
	if !ok {
		if unwrapper, ok := err.(interface{ Unwrap() error }); ok {
			return GetCode(unwrapper.Unwrap())
		}
		return ""
	}

	return cctvErr.Code
}

// IsTransient reports whether err belongs to the one class of acquisition
// failures that is worth another attempt.
func IsTransient(err error) bool {
	return Is(err, ErrCodeSurfaceDisconnected)
}
