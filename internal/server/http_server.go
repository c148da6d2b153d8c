package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/oggyb/tubematch/internal/app"
	"github.com/oggyb/tubematch/internal/db"
	"github.com/oggyb/tubematch/internal/server/middleware"
	"github.com/oggyb/tubematch/internal/session"
	"github.com/oggyb/tubematch/internal/validation"
)

// NewRouter builds the gin engine with shared middleware, /health, the
// optional socket.io mount and every service's routes.
func NewRouter(
	appCtx *app.AppContext,
	sessions *session.Manager,
	users middleware.UserLookup,
	socket http.Handler,
	registrars ...Registrar,
) *gin.Engine {
	if appCtx.Config != nil && appCtx.Config.App.ENV == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	validation.Setup()

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.AccessLog(appCtx.Logger),
		middleware.ErrorHandler(appCtx.Logger),
		middleware.Recovery(),
	)

	r.GET("/health", healthHandler(appCtx))

	if socket != nil {
		r.GET("/socket.io/*any", gin.WrapH(socket))
		r.POST("/socket.io/*any", gin.WrapH(socket))
	}

	routes := Routes{
		Public: r.Group("/"),
		Authed: r.Group("/", middleware.Auth(sessions, users)),
	}
	for _, reg := range registrars {
		reg.Register(routes)
	}
	return r
}

func healthHandler(appCtx *app.AppContext) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		checks := gin.H{"database": "ok", "redis": "ok"}
		status := http.StatusOK
		if err := db.Ping(appCtx.DB); err != nil {
			checks["database"] = "unavailable"
			status = http.StatusServiceUnavailable
		}
		if err := appCtx.RedisCache.Ping(ctx); err != nil {
			checks["redis"] = "unavailable"
			status = http.StatusServiceUnavailable
		}

		state := "ok"
		if status != http.StatusOK {
			state = "degraded"
		}
		c.JSON(status, gin.H{"status": state, "checks": checks})
	}
}

// WithCORS wraps h so browsers on the allowed origins can call the API
// with credentials.
func WithCORS(h http.Handler, origins []string) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", middleware.HeaderRequestID},
		ExposedHeaders:   []string{middleware.HeaderRequestID},
		AllowCredentials: true,
	}).Handler(h)
}

// StartHTTPServer serves h on addr until ctx is canceled, then drains
// in-flight requests.
func StartHTTPServer(ctx context.Context, addr string, h http.Handler, log *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}
