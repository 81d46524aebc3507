package errors

import (
	"errors"
	"fmt"
	"net/http"

	domainauth "github.com/target/rolegate/internal/domain/auth"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeUnauthenticated indicates the session has not completed sign-in.
	ErrCodeUnauthenticated ErrorCode = "unauthenticated"
	// ErrCodeForbidden indicates the resolved role does not grant access.
	ErrCodeForbidden ErrorCode = "forbidden"
	// ErrCodeUpstream indicates a remote service (IdP, directory, storage) answered with a failure.
	ErrCodeUpstream ErrorCode = "upstream"
	// ErrCodeMalformed indicates a remote payload could not be parsed or lacked a required field.
	ErrCodeMalformed ErrorCode = "malformed"
	// ErrCodeValidation indicates invalid input or configuration.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	Code    ErrorCode
	Message string
	Cause   error
	// Status is the remote HTTP status for upstream errors (optional).
	Status int
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Upstreamf creates an Upstream error carrying the remote status code.
func Upstreamf(status int, format string, args ...any) *AppError {
	return &AppError{
		Code:    ErrCodeUpstream,
		Message: fmt.Sprintf(format, args...),
		Status:  status,
	}
}

// Malformed wraps a decoding failure of a remote payload.
func Malformed(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeMalformed,
		Message: message,
		Cause:   err,
	}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
	}
}

// Validationf creates a new Validation error with formatted message.
func Validationf(format string, args ...any) *AppError {
	return Validation(fmt.Sprintf(format, args...))
}

// Forbidden creates a new Forbidden error.
func Forbidden(message string) *AppError {
	return &AppError{
		Code:    ErrCodeForbidden,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// GetCode returns the ErrorCode of err. The soft auth sentinels map to ErrCodeUnauthenticated;
// any other non-AppError yields the empty code.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	if domainauth.IsSoft(err) {
		return ErrCodeUnauthenticated
	}
	return ""
}

// IsUpstream checks if an error is an Upstream error.
func IsUpstream(err error) bool { return GetCode(err) == ErrCodeUpstream }

// IsMalformed checks if an error is a Malformed error.
func IsMalformed(err error) bool { return GetCode(err) == ErrCodeMalformed }

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return GetCode(err) == ErrCodeValidation }

// IsSoft reports whether err is expected during normal operation (anonymous visitors,
// missing refresh tokens, denied code exchanges). Everything else is a hard failure.
func IsSoft(err error) bool {
	return err != nil && GetCode(err) == ErrCodeUnauthenticated
}

// HTTPStatus maps an error to the status code the HTTP layer responds with.
func HTTPStatus(err error) int {
	switch GetCode(err) {
	case ErrCodeUnauthenticated:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeUpstream, ErrCodeMalformed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
