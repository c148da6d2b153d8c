// Package middleware holds the gin middleware shared by every route.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/oggyb/tubematch/internal/db"
	svcErr "github.com/oggyb/tubematch/internal/errors"
	"github.com/oggyb/tubematch/internal/session"
)

const (
	HeaderRequestID = "X-Request-ID"

	keyRequestID = "request_id"
	keyUser      = "user"
)

// RequestID tags every request with an id, reusing the caller's when present.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" || len(id) > 64 {
			id = uuid.NewString()
		}
		c.Set(keyRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// GetRequestID returns the id assigned by RequestID.
func GetRequestID(c *gin.Context) string {
	return c.GetString(keyRequestID)
}

// AccessLog writes one line per request.
func AccessLog(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"request_id", GetRequestID(c),
		}
		if u, ok := c.Get(keyUser); ok {
			attrs = append(attrs, "user_id", u.(db.User).ID)
		}
		log.Info("http request", attrs...)
	}
}

// ErrorHandler renders the last error a handler attached with c.Error as
// {"error": ..., "request_id": ...}.
func ErrorHandler(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors.Last().Err
		appErr := svcErr.Map(err)
		if appErr.Status >= http.StatusInternalServerError {
			log.Error("request failed",
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"request_id", GetRequestID(c),
				"err", err,
			)
		}
		c.JSON(appErr.Status, gin.H{
			"error":      appErr.Message,
			"request_id": GetRequestID(c),
		})
	}
}

// Recovery turns a panic into a 500 rendered by ErrorHandler.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		_ = c.Error(fmt.Errorf("panic: %v", rec))
		c.Abort()
	})
}

// UserLookup resolves the account behind a session.
type UserLookup interface {
	FindByGoogleID(ctx context.Context, googleID string) (db.User, error)
}

// Auth requires a session cookie or bearer token and loads the caller.
// Unknown accounts are 404, missing or bad credentials 401.
func Auth(sessions *session.Manager, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := sessions.FromRequest(c.Request)
		if err != nil {
			_ = c.Error(svcErr.Unauthorized("authentication required"))
			c.Abort()
			return
		}

		u, err := users.FindByGoogleID(c.Request.Context(), id.GoogleID)
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			_ = c.Error(svcErr.NotFound("user not found"))
			c.Abort()
			return
		case err != nil:
			_ = c.Error(err)
			c.Abort()
			return
		case u.ID != id.UserID:
			_ = c.Error(svcErr.Unauthorized("session does not match account"))
			c.Abort()
			return
		}

		c.Set(keyUser, u)
		c.Next()
	}
}

// CurrentUser returns the caller loaded by Auth.
func CurrentUser(c *gin.Context) db.User {
	return c.MustGet(keyUser).(db.User)
}

// SetUser is for tests that mount handlers without Auth.
func SetUser(u db.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(keyUser, u)
		c.Next()
	}
}
