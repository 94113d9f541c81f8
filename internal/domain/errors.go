package domain

import (
	"errors"
	"fmt"
)

// Error types for domain-specific errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeExtraction ErrorType = "extraction"
	ErrorTypeProvider   ErrorType = "provider"
	ErrorTypeParse      ErrorType = "parse"
	ErrorTypeRender     ErrorType = "render"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeNotFound   ErrorType = "not_found"
)

// DomainError represents a domain-specific error with context.
// Transient marks provider errors worth retrying (rate limits,
// overload, connection failures).
type DomainError struct {
	Type      ErrorType
	Message   string
	Err       error
	Transient bool
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewError creates a new domain error
func NewError(errType ErrorType, message string, err error) *DomainError {
	return &DomainError{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

// Common error constructors
func ValidationError(message string, err error) *DomainError {
	return NewError(ErrorTypeValidation, message, err)
}

func ExtractionError(message string, err error) *DomainError {
	return NewError(ErrorTypeExtraction, message, err)
}

func ProviderError(message string, err error) *DomainError {
	return NewError(ErrorTypeProvider, message, err)
}

// TransientProviderError marks a provider failure as retryable.
func TransientProviderError(message string, err error) *DomainError {
	e := NewError(ErrorTypeProvider, message, err)
	e.Transient = true
	return e
}

func ParseError(message string, err error) *DomainError {
	return NewError(ErrorTypeParse, message, err)
}

func RenderError(message string, err error) *DomainError {
	return NewError(ErrorTypeRender, message, err)
}

func ConfigError(message string, err error) *DomainError {
	return NewError(ErrorTypeConfig, message, err)
}

func IOError(message string, err error) *DomainError {
	return NewError(ErrorTypeIO, message, err)
}

func NotFoundError(message string, err error) *DomainError {
	return NewError(ErrorTypeNotFound, message, err)
}

// IsTransient reports whether err is a domain error flagged as
// transient. Non-domain errors are not considered transient here;
// connection-level failures are classified by the caller.
func IsTransient(err error) bool {
	var de *DomainError
	return errors.As(err, &de) && de.Transient
}

// TypeOf returns the ErrorType of err, or an empty string when err is
// not a domain error.
func TypeOf(err error) ErrorType {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Type
	}
	return ""
}
