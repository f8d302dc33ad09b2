/*
Package errs provides custom error types and application-level error code constants.

This file defines CustomError, which carries a business code, a user-facing message, the
HTTP status it maps to and, optionally, the underlying cause.
*/
package errs

import (
	"errors"
	"fmt"
	"net/http"

	"harukcal/internal/pkg/logx"
)

// CustomError is the error structure used throughout the application.
type CustomError struct {
	// Code is the business error code (see constants definition).
	Code int

	// Message is the user-friendly error description.
	Message string

	// Status is the HTTP status code corresponding to this error.
	Status int

	// Err is the underlying cause, if any. It is never shown to users.
	Err error
}

// Error returns the code, status, message and cause.
func (e *CustomError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("Error Code %d (HTTP %d): %s: %v", e.Code, e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("Error Code %d (HTTP %d): %s", e.Code, e.Status, e.Message)
}

// Unwrap exposes the cause to errors.Is and errors.As.
func (e *CustomError) Unwrap() error {
	return e.Err
}

// NewError constructs a *CustomError from a predefined code.
// Unknown codes are logged and mapped to ErrUnknown.
func NewError(code int) *CustomError {
	templateErr, ok := errorMap[code]

	if !ok {
		logx.Error(
			fmt.Errorf("attempted to create an error with an unknown code in errorMap"),
			"Unknown error code requested",
			"requested_code", code,
		)
		templateErr = errorMap[ErrUnknown]
	}

	customErr := templateErr

	if customErr.Status == 0 {
		customErr.Status = http.StatusOK
	}

	return &customErr
}

// Wrap constructs a *CustomError for code with cause attached.
func Wrap(code int, cause error) *CustomError {
	customErr := NewError(code)
	customErr.Err = cause
	return customErr
}

// WithMessage returns a copy of e with a replacement user message. Blank messages are ignored.
func (e *CustomError) WithMessage(msg string) *CustomError {
	if msg == "" {
		return e
	}
	cp := *e
	cp.Message = msg
	return &cp
}

// HasCode reports whether any *CustomError in err's chain carries code.
func HasCode(err error, code int) bool {
	for err != nil {
		var customErr *CustomError
		if !errors.As(err, &customErr) {
			return false
		}
		if customErr.Code == code {
			return true
		}
		err = customErr.Err
	}
	return false
}

// CodeOf returns the code of the outermost *CustomError in err's chain, or ErrUnknown.
func CodeOf(err error) int {
	var customErr *CustomError
	if errors.As(err, &customErr) {
		return customErr.Code
	}
	return ErrUnknown
}
