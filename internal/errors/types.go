package errors

import (
	"fmt"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeConfig      ErrorType = "config"
	ErrorTypeInput       ErrorType = "input"
	ErrorTypeApplication ErrorType = "application"
	ErrorTypeTranslation ErrorType = "translation"
	ErrorTypeNetwork     ErrorType = "network"
	ErrorTypeInternal    ErrorType = "internal"
)

// BridgeError represents a structured error with context
type BridgeError struct {
	Type    ErrorType
	Message string
	Context map[string]interface{}
	Cause   error
}

// Error implements the error interface
func (e *BridgeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause.Error())
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping
func (e *BridgeError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a BridgeError of the same type
func (e *BridgeError) Is(target error) bool {
	if targetErr, ok := target.(*BridgeError); ok {
		return e.Type == targetErr.Type
	}
	return false
}

// WithContext adds context information to the error
func (e *BridgeError) WithContext(key string, value interface{}) *BridgeError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new BridgeError
func New(errType ErrorType, message string) *BridgeError {
	return &BridgeError{
		Type:    errType,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, errType ErrorType, message string) *BridgeError {
	return &BridgeError{
		Type:    errType,
		Message: message,
		Context: make(map[string]interface{}),
		Cause:   err,
	}
}

// Wrapf wraps an existing error with formatted message
func Wrapf(err error, errType ErrorType, format string, args ...interface{}) *BridgeError {
	return Wrap(err, errType, fmt.Sprintf(format, args...))
}

// Newf creates a new BridgeError with formatted message
func Newf(errType ErrorType, format string, args ...interface{}) *BridgeError {
	return New(errType, fmt.Sprintf(format, args...))
}

// As finds the first BridgeError in err's chain
func As(err error) (*BridgeError, bool) {
	for err != nil {
		if bErr, ok := err.(*BridgeError); ok {
			return bErr, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return nil, false
		}
		err = u.Unwrap()
	}
	return nil, false
}

// IsType checks if an error is of a specific type
func IsType(err error, errType ErrorType) bool {
	if bErr, ok := As(err); ok {
		return bErr.Type == errType
	}
	return false
}

// GetType returns the error type, or ErrorTypeInternal if not a BridgeError
func GetType(err error) ErrorType {
	if bErr, ok := As(err); ok {
		return bErr.Type
	}
	return ErrorTypeInternal
}

// GetContext returns context information from the error
func GetContext(err error) map[string]interface{} {
	if bErr, ok := As(err); ok {
		return bErr.Context
	}
	return nil
}
