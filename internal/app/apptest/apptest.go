// Package apptest builds an AppContext on in-memory SQLite and miniredis
// for service tests.
package apptest

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/tubematch/internal/app"
	"github.com/oggyb/tubematch/internal/cache"
	"github.com/oggyb/tubematch/internal/config"
	"github.com/oggyb/tubematch/internal/db"
)

// Env is an isolated database and Redis for one test.
type Env struct {
	App   *app.AppContext
	Redis *miniredis.Miniredis
}

// New returns a fresh Env. Everything is torn down with t.
func New(t *testing.T) *Env {
	t.Helper()

	database, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Config{}
	cfg.App.ENV = "test"
	cfg.Redis.Addr = mr.Addr()
	cfg.Auth.SessionSecret = "test-session-secret"
	cfg.Deck.DefaultLimit = 20
	cfg.Deck.MaxLimit = 50
	cfg.Deck.CacheTTL = time.Minute

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // discard logs in tests

	return &Env{
		App:   app.New(cfg, database, cache.NewRedisCache(cfg), logger),
		Redis: mr,
	}
}

// User inserts a user with the given id and name.
func (e *Env) User(t *testing.T, id uint64, name string) db.User {
	t.Helper()
	u := db.User{
		ID:       id,
		GoogleID: fmt.Sprintf("google-%d", id),
		Email:    fmt.Sprintf("%s@example.com", name),
		Name:     name,
	}
	require.NoError(t, e.App.DB.Create(&u).Error)
	return u
}

// Profile inserts p as is.
func (e *Env) Profile(t *testing.T, p db.Profile) {
	t.Helper()
	require.NoError(t, e.App.DB.Create(&p).Error)
}
