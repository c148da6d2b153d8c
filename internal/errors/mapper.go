// internal/errors/mapper.go
package errors

import (
	"context"
	"errors"
	"net/http"

	"gorm.io/gorm"

	"github.com/oggyb/tubematch/internal/activity"
	"github.com/oggyb/tubematch/internal/identity"
	"github.com/oggyb/tubematch/internal/llm"
	"github.com/oggyb/tubematch/internal/matching"
	"github.com/oggyb/tubematch/internal/repository"
	"github.com/oggyb/tubematch/internal/storage"
	"github.com/oggyb/tubematch/internal/utils/pagination"
)

// AppError is an error with the HTTP status and client-safe message it renders as.
type AppError struct {
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error { return e.Err }

// sentinels render with their own text, never the wrap chain around them.
var sentinels = []struct {
	err    error
	status int
}{
	{matching.ErrSelfLike, http.StatusBadRequest},
	{pagination.ErrInvalidToken, http.StatusBadRequest},
	{storage.ErrDisabled, http.StatusBadRequest},
	{storage.ErrUnsupportedType, http.StatusBadRequest},
	{storage.ErrNotUploaded, http.StatusBadRequest},
	{matching.ErrUserNotFound, http.StatusNotFound},
	{repository.ErrProfileNotFound, http.StatusNotFound},
	{activity.ErrNoAccess, http.StatusUnauthorized},
	{identity.ErrNotConfigured, http.StatusServiceUnavailable},
	{llm.ErrNotConfigured, http.StatusServiceUnavailable},
}

// Map converts repo/infra/domain errors into an AppError.
// Keeps handlers clean by centralizing the error taxonomy.
func Map(err error) *AppError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return &AppError{Status: s.status, Message: s.err.Error(), Err: err}
		}
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return &AppError{Status: http.StatusNotFound, Message: "record not found", Err: err}

	case errors.Is(err, context.DeadlineExceeded):
		return &AppError{Status: http.StatusGatewayTimeout, Message: "request timed out", Err: err}

	case errors.Is(err, context.Canceled):
		return &AppError{Status: http.StatusRequestTimeout, Message: "request was canceled", Err: err}

	default:
		// storage and anything unexpected: log the cause, never show it
		return Internal(err)
	}
}

// InvalidArgument is a 400 for bad input.
func InvalidArgument(msg string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Message: msg}
}

func NotFound(msg string) *AppError {
	return &AppError{Status: http.StatusNotFound, Message: msg}
}

func Unauthorized(msg string) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Message: msg}
}

// BadGateway wraps a failure of an upstream provider (Google, LLM, S3).
func BadGateway(msg string, err error) *AppError {
	return &AppError{Status: http.StatusBadGateway, Message: msg, Err: err}
}

// Unavailable is a 503 for features that are switched off or not configured.
func Unavailable(msg string) *AppError {
	return &AppError{Status: http.StatusServiceUnavailable, Message: msg}
}

func Internal(err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Message: "internal error", Err: err}
}
