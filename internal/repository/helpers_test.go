package repository_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/tubematch/internal/db"
)

// setupTestDB opens an in-memory SQLite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return database
}

// seedUsers inserts users with the given ids, named user<id>.
func seedUsers(t *testing.T, database *gorm.DB, ids ...uint64) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, database.Create(&db.User{
			ID:       id,
			GoogleID: fmt.Sprintf("google-%d", id),
			Email:    fmt.Sprintf("user%d@example.com", id),
			Name:     fmt.Sprintf("user%d", id),
		}).Error)
	}
}

func seedProfile(t *testing.T, database *gorm.DB, p db.Profile) {
	t.Helper()
	require.NoError(t, database.Create(&p).Error)
}
