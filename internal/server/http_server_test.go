package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/oggyb/tubematch/internal/app/apptest"
	"github.com/oggyb/tubematch/internal/repository"
	"github.com/oggyb/tubematch/internal/server"
	"github.com/oggyb/tubematch/internal/server/middleware"
	"github.com/oggyb/tubematch/internal/session"
)

type panicRoutes struct{}

func (panicRoutes) Register(r server.Routes) {
	r.Public.GET("/boom", func(*gin.Context) { panic("kaboom") })
	r.Authed.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": middleware.CurrentUser(c).ID})
	})
}

func newRouter(t *testing.T, socket http.Handler) (*apptest.Env, http.Handler, *session.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	env := apptest.New(t)
	sessions, err := session.NewManager(env.App.Config.Auth)
	require.NoError(t, err)
	r := server.NewRouter(env.App, sessions, repository.NewUserRepository(env.App.DB), socket, panicRoutes{})
	return env, r, sessions
}

func TestHealth(t *testing.T) {
	env, r, _ := newRouter(t, nil)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","checks":{"database":"ok","redis":"ok"}}`, w.Body.String())

	env.Redis.Close()
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"redis":"unavailable"`)
}

func TestRouter_RequestIDAndRecovery(t *testing.T) {
	_, r, _ := newRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(middleware.HeaderRequestID, "req-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "req-123", w.Header().Get(middleware.HeaderRequestID))
	assert.JSONEq(t, `{"error":"internal error","request_id":"req-123"}`, w.Body.String())
}

func TestRouter_AuthedGroup(t *testing.T) {
	env, r, sessions := newRouter(t, nil)
	u := env.User(t, 1, "alice")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// a token for a different account than the stored one is rejected
	forged, _, err := sessions.IssueToken(session.Identity{UserID: 2, GoogleID: u.GoogleID})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+forged)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token, _, err := sessions.IssueToken(session.Identity{UserID: u.ID, GoogleID: u.GoogleID})
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]uint64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, u.ID, body["id"])
}

func TestRouter_MountsSocketHandler(t *testing.T) {
	var hits int
	socket := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits++
		w.WriteHeader(http.StatusTeapot)
	})
	_, r, _ := newRouter(t, socket)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/socket.io/?EIO=3&transport=polling", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, 1, hits)
}

func TestWithCORS_Preflight(t *testing.T) {
	_, r, _ := newRouter(t, nil)
	h := server.WithCORS(r, []string{"http://localhost:3000"})

	req := httptest.NewRequest(http.MethodOptions, "/me", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	req.Header.Set("Access-Control-Request-Headers", "authorization")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodOptions, "/me", nil)
	req.Header.Set("Origin", "https://evil.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealthRegistrar_Probe(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	var failing bool
	h := server.NewHealthRegistrar(log, map[string]server.Checker{
		"database": func(context.Context) error {
			if failing {
				return errors.New("down")
			}
			return nil
		},
	})

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, h.Probe(context.Background()))
	failing = true
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, h.Probe(context.Background()))
}
