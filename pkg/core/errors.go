package core

import (
	"errors"
	"fmt"
)

// Error represents a canonical SDK error.
type Error struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Code       string    `json:"code,omitempty"`
	Underlying error     `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("%s: %s (code: %s)", e.Type, e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error wrapping.
func (e *Error) Unwrap() error {
	return e.Underlying
}

// ErrorType categorizes errors.
type ErrorType string

const (
	// ErrPrecondition marks a command invoked outside its required state.
	// Always surfaced synchronously to the caller.
	ErrPrecondition ErrorType = "precondition_error"
	// ErrDevice marks an audio capture or device acquisition failure.
	ErrDevice ErrorType = "device_error"
	// ErrNetwork marks a token, roster, or transport failure, including
	// deadline expiry on those calls.
	ErrNetwork ErrorType = "network_error"
	// ErrValidation marks an inbound payload that failed schema validation.
	ErrValidation ErrorType = "validation_error"
	// ErrAuthentication marks a rejected or expired session credential.
	ErrAuthentication ErrorType = "authentication_error"
	// ErrAPI marks a service-reported error.
	ErrAPI ErrorType = "api_error"
)

// NewPreconditionError creates a precondition error.
func NewPreconditionError(message string) *Error {
	return &Error{
		Type:    ErrPrecondition,
		Message: message,
	}
}

// NewDeviceError creates a device error wrapping the acquisition failure.
func NewDeviceError(message string, underlying error) *Error {
	return &Error{
		Type:       ErrDevice,
		Message:    message,
		Underlying: underlying,
	}
}

// NewNetworkError creates a network error wrapping the transport failure.
func NewNetworkError(message string, underlying error) *Error {
	return &Error{
		Type:       ErrNetwork,
		Message:    message,
		Underlying: underlying,
	}
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *Error {
	return &Error{
		Type:    ErrValidation,
		Message: message,
	}
}

// NewAuthenticationError creates an authentication error.
func NewAuthenticationError(message string) *Error {
	return &Error{
		Type:    ErrAuthentication,
		Message: message,
	}
}

// NewAPIError creates a service-reported error.
func NewAPIError(message string) *Error {
	return &Error{
		Type:    ErrAPI,
		Message: message,
	}
}

// IsType reports whether err is a *core.Error of the given type.
func IsType(err error, t ErrorType) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Type == t
	}
	return false
}
