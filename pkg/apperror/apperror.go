package apperror

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
	ErrInternal     = errors.New("internal server error")
	ErrUpstream     = errors.New("upstream unavailable")
	ErrApplication  = errors.New("upstream rejected request")
)

type AppError struct {
	BaseError error
	Message   string
	Details   string
	Err       error
	// Fields holds per-field messages for validation failures.
	Fields map[string]string
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (Details: %s, Cause: %v)", e.BaseError.Error(), e.Message, e.Details, e.Err)
	}
	return fmt.Sprintf("%s: %s (Details: %s)", e.BaseError.Error(), e.Message, e.Details)
}

func (e *AppError) Unwrap() error {
	return e.BaseError
}

func NewAppError(base error, msg, details string, err error) *AppError {
	return &AppError{BaseError: base, Message: msg, Details: details, Err: err}
}

func NewNotFound(resource, identifier string) *AppError {
	msg := fmt.Sprintf("%s not found", resource)
	details := fmt.Sprintf("%s with identifier '%s' was not found", resource, identifier)
	return NewAppError(ErrNotFound, msg, details, nil)
}

func NewInvalidInput(details string, err error) *AppError {
	return NewAppError(ErrInvalidInput, "Invalid input provided", details, err)
}

// NewValidation reports the fields that failed validation, keyed by field id.
func NewValidation(fields map[string]string) *AppError {
	e := NewAppError(ErrInvalidInput, "Validation failed", fmt.Sprintf("%d field(s) invalid", len(fields)), nil)
	e.Fields = fields
	return e
}

func NewConflict(resource, details string) *AppError {
	return NewAppError(ErrConflict, fmt.Sprintf("%s conflict", resource), details, nil)
}

func NewInternal(details string, err error) *AppError {
	return NewAppError(ErrInternal, "An internal server error occurred", details, err)
}

// NewUpstream is a network level failure: the request never produced a usable
// response envelope.
func NewUpstream(details string, err error) *AppError {
	return NewAppError(ErrUpstream, "Profile service unavailable", details, err)
}

// NewApplication wraps a `success:false` envelope returned by the profile service.
func NewApplication(message string) *AppError {
	return NewAppError(ErrApplication, message, "profile service returned success=false", nil)
}

func ToHTTPStatus(err error) int {
	if errors.Is(err, ErrNotFound) {
		return http.StatusNotFound
	}
	if errors.Is(err, ErrInvalidInput) {
		var appErr *AppError
		if errors.As(err, &appErr) && appErr.Fields != nil {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadRequest
	}
	if errors.Is(err, ErrConflict) {
		return http.StatusConflict
	}
	if errors.Is(err, ErrUpstream) || errors.Is(err, ErrApplication) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func (e *AppError) ToJSON() gin.H {
	h := gin.H{
		"error":   e.BaseError.Error(),
		"message": e.Message,
	}
	if len(e.Fields) > 0 {
		h["fields"] = e.Fields
	}
	return h
}
