package services

import (
	"errors"
	"fmt"
	"net/http"

	"gorm.io/gorm"
)

// Kind classifies a failure so transports can map it without string matching.
type Kind string

const (
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindForbidden          Kind = "FORBIDDEN"
	KindAccountSuspended   Kind = "ACCOUNT_SUSPENDED"
	KindNotFound           Kind = "NOT_FOUND"
	KindUniqueViolation    Kind = "UNIQUE_VIOLATION"
	KindEmptyContent       Kind = "EMPTY_CONTENT"
	KindEmptyReason        Kind = "EMPTY_REASON"
	KindInvalidInput       Kind = "INVALID_INPUT"
	KindUnsupportedFormat  Kind = "UNSUPPORTED_FORMAT"
	KindPayloadTooLarge    Kind = "PAYLOAD_TOO_LARGE"
	KindCategoryInUse      Kind = "CATEGORY_IN_USE"
)

// AppError is the error type returned by every service operation for
// expected failures. Err carries an optional cause.
type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *AppError) Unwrap() error { return e.Err }

// Is matches any AppError of the same kind, so errors.Is(err, ErrNotFound)
// works regardless of message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Kind == e.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrUnauthenticated    = &AppError{Kind: KindUnauthenticated, Message: "authentication required"}
	ErrInvalidCredentials = &AppError{Kind: KindInvalidCredentials, Message: "invalid username or password"}
	ErrForbidden          = &AppError{Kind: KindForbidden, Message: "permission denied"}
	ErrAccountSuspended   = &AppError{Kind: KindAccountSuspended, Message: "account is suspended"}
	ErrNotFound           = &AppError{Kind: KindNotFound, Message: "not found"}
	ErrUniqueViolation    = &AppError{Kind: KindUniqueViolation, Message: "already exists"}
	ErrEmptyContent       = &AppError{Kind: KindEmptyContent, Message: "content cannot be empty"}
	ErrEmptyReason        = &AppError{Kind: KindEmptyReason, Message: "report reason cannot be empty"}
	ErrInvalidInput       = &AppError{Kind: KindInvalidInput, Message: "invalid input"}
	ErrUnsupportedFormat  = &AppError{Kind: KindUnsupportedFormat, Message: "unsupported file format"}
	ErrPayloadTooLarge    = &AppError{Kind: KindPayloadTooLarge, Message: "file too large"}
	ErrCategoryInUse      = &AppError{Kind: KindCategoryInUse, Message: "category is in use"}
)

func newError(kind Kind, format string, args ...interface{}) *AppError {
	return &AppError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// HTTPStatus maps the error kind to the status code a handler answers with.
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindUnauthenticated, KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindForbidden, KindAccountSuspended:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindUniqueViolation, KindCategoryInUse:
		return http.StatusConflict
	case KindEmptyContent, KindEmptyReason, KindInvalidInput:
		return http.StatusBadRequest
	case KindUnsupportedFormat:
		return http.StatusUnsupportedMediaType
	case KindPayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the text safe to show to clients.
func (e *AppError) PublicMessage() string { return e.Message }

// notFoundOr turns gorm.ErrRecordNotFound into a NotFound AppError naming what.
func notFoundOr(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newError(KindNotFound, "%s not found", what)
	}
	return err
}
