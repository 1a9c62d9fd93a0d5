package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotFound           = NewError("NOT_FOUND", "resource not found", http.StatusNotFound)
	ErrValidation         = NewError("VALIDATION_ERROR", "the given data was invalid", http.StatusUnprocessableEntity)
	ErrBadRequest         = NewError("BAD_REQUEST", "malformed request", http.StatusBadRequest)
	ErrInternal           = NewError("INTERNAL_ERROR", "internal server error", http.StatusInternalServerError)
	ErrConflict           = NewError("CONFLICT", "resource conflict", http.StatusConflict)
	ErrUnauthorized       = NewError("UNAUTHORIZED", "unauthorized", http.StatusUnauthorized)
	ErrForbidden          = NewError("FORBIDDEN", "forbidden", http.StatusForbidden)
	ErrTimeout            = NewError("TIMEOUT", "operation timed out", http.StatusRequestTimeout)
	ErrServiceUnavailable = NewError("SERVICE_UNAVAILABLE", "service unavailable", http.StatusServiceUnavailable)
	ErrRateLimited        = NewError("RATE_LIMIT_EXCEEDED", "too many requests", http.StatusTooManyRequests)

	// ErrModuleDisabled is a policy rejection, not a client fault. Its message must not
	// reveal anything about the organization's configuration.
	ErrModuleDisabled = NewError("MODULE_DISABLED", "module is not enabled for this organization", http.StatusForbidden)
)

type RetryableError interface {
	error
	IsRetryable() bool
}

type FatalError interface {
	error
	IsFatal() bool
}

type Error struct {
	Code      string
	Message   string
	Status    int
	Details   map[string]interface{}
	Cause     error
	retryable *bool
}

func NewError(code, message string, status int) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Status:  status,
		Details: make(map[string]interface{}),
	}
}

func (e *Error) Error() string {
	msg := e.Message

	if len(e.Details) > 0 {
		if detailMsg, ok := e.Details["message"].(string); ok && detailMsg != "" {
			msg = detailMsg
		}
	}

	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) IsRetryable() bool {
	if e.retryable != nil {
		return *e.retryable
	}
	if e.Cause != nil {
		var retryableErr RetryableError
		if errors.As(e.Cause, &retryableErr) {
			return retryableErr.IsRetryable()
		}
		var fatalErr FatalError
		if errors.As(e.Cause, &fatalErr) {
			return !fatalErr.IsFatal()
		}
	}
	return !isPermanentCode(e.Code)
}

func (e *Error) IsFatal() bool {
	if e.retryable != nil {
		return !*e.retryable
	}

	if e.Cause != nil {
		var fatalErr FatalError
		if errors.As(e.Cause, &fatalErr) {
			return fatalErr.IsFatal()
		}
	}

	return isPermanentCode(e.Code)
}

func isPermanentCode(code string) bool {
	switch code {
	case ErrValidation.Code, ErrNotFound.Code, ErrBadRequest.Code, ErrModuleDisabled.Code:
		return true
	}
	return false
}

func (e *Error) WithCause(cause error) *Error {
	err := *e
	err.Cause = cause
	return &err
}

func (e *Error) WithDetail(key string, value interface{}) *Error {
	return e.WithDetails(map[string]interface{}{key: value})
}

// WithDetails returns a copy with details merged over the existing ones.
// Sentinels are never mutated.
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	err := *e
	err.Details = make(map[string]interface{}, len(e.Details)+len(details))
	for k, v := range e.Details {
		err.Details[k] = v
	}
	for k, v := range details {
		err.Details[k] = v
	}
	return &err
}

func (e *Error) AsRetryable() *Error { return e.withRetryable(true) }

func (e *Error) AsFatal() *Error { return e.withRetryable(false) }

func (e *Error) withRetryable(retryable bool) *Error {
	err := *e
	err.retryable = &retryable
	return &err
}

func Wrap(err error, appErr *Error) *Error {
	if err == nil {
		return nil
	}
	return appErr.WithCause(err)
}

// Code returns the application code carried by err, or "" for foreign errors.
func Code(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

func IsNotFound(err error) bool       { return Code(err) == ErrNotFound.Code }
func IsValidation(err error) bool     { return Code(err) == ErrValidation.Code }
func IsConflict(err error) bool       { return Code(err) == ErrConflict.Code }
func IsModuleDisabled(err error) bool { return Code(err) == ErrModuleDisabled.Code }

// FieldErrors builds a validation error carrying per-field messages.
func FieldErrors(fields map[string][]string) *Error {
	return ErrValidation.WithDetail("errors", fields)
}

func ToHTTPStatus(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return http.StatusInternalServerError
}

// ToErrorResponse renders err as {ok, message, error, ...details}. Internal causes are
// never exposed to the client.
func ToErrorResponse(err error) map[string]interface{} {
	var appErr *Error
	if !errors.As(err, &appErr) {
		appErr = ErrInternal.WithCause(err)
	}

	response := map[string]interface{}{
		"ok":      false,
		"message": appErr.Message,
		"error":   strings.ToLower(appErr.Code),
	}

	for k, v := range appErr.Details {
		if k == "stack_trace" || k == "panic" {
			continue
		}
		response[k] = v
	}

	return response
}
