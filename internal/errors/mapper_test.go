package errors_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/oggyb/tubematch/internal/activity"
	svcErr "github.com/oggyb/tubematch/internal/errors"
	"github.com/oggyb/tubematch/internal/identity"
	"github.com/oggyb/tubematch/internal/llm"
	"github.com/oggyb/tubematch/internal/matching"
	"github.com/oggyb/tubematch/internal/repository"
	"github.com/oggyb/tubematch/internal/storage"
	"github.com/oggyb/tubematch/internal/utils/pagination"
)

func TestMap(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"self like", matching.ErrSelfLike, http.StatusBadRequest, "cannot swipe on yourself"},
		{"bad token", pagination.ErrInvalidToken, http.StatusBadRequest, "invalid pagination token"},
		{"unknown user", fmt.Errorf("lookup: %w", matching.ErrUserNotFound), http.StatusNotFound, "user not found"},
		{"no profile", repository.ErrProfileNotFound, http.StatusNotFound, "profile not found"},
		{"uploads off", storage.ErrDisabled, http.StatusBadRequest, "avatar uploads are disabled"},
		{"upload missing", fmt.Errorf("confirm: %w", storage.ErrNotUploaded), http.StatusBadRequest, "no uploaded avatar under that key"},
		{"no google grant", fmt.Errorf("collect: %w", activity.ErrNoAccess), http.StatusUnauthorized, activity.ErrNoAccess.Error()},
		{"wrapped twice", fmt.Errorf("swipe: %w", fmt.Errorf("tx: %w", matching.ErrSelfLike)), http.StatusBadRequest, "cannot swipe on yourself"},
		{"profile lookup", fmt.Errorf("load profile 7: %w", repository.ErrProfileNotFound), http.StatusNotFound, "profile not found"},
		{"llm off", fmt.Errorf("embed: %w", llm.ErrNotConfigured), http.StatusServiceUnavailable, "llm api key is not configured"},
		{"sign-in off", identity.ErrNotConfigured, http.StatusServiceUnavailable, "google sign-in is not configured"},
		{"gorm not found", gorm.ErrRecordNotFound, http.StatusNotFound, "record not found"},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, "request timed out"},
		{"canceled", context.Canceled, http.StatusRequestTimeout, "request was canceled"},
		{"storage", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal error"},
		{"already mapped", svcErr.BadGateway("youtube unavailable", errors.New("503")), http.StatusBadGateway, "youtube unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := svcErr.Map(tt.err)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.msg, got.Message)
		})
	}
}

func TestMap_Nil(t *testing.T) {
	assert.Nil(t, svcErr.Map(nil))
}

func TestAppError_Unwraps(t *testing.T) {
	cause := errors.New("boom")
	err := svcErr.Internal(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "boom")
}
