package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPairKeyIsOrderIndependent(t *testing.T) {
	assert.Equal(t, "3:7", PairKey(7, 3))
	assert.Equal(t, PairKey(3, 7), PairKey(7, 3))

	lo, hi := Ordered(9, 2)
	assert.Equal(t, uint64(2), lo)
	assert.Equal(t, uint64(9), hi)

	m := Match{UserA: 2, UserB: 9}
	assert.Equal(t, uint64(9), m.Other(2))
	assert.Equal(t, uint64(2), m.Other(9))
}

func TestOpen_MigratesSQLite(t *testing.T) {
	database, err := Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, Ping(database))

	for _, table := range []string{"users", "profiles", "oauth_tokens", "likes", "matches"} {
		assert.True(t, database.Migrator().HasTable(table), table)
	}
	assert.True(t, database.Migrator().HasIndex(&Like{}, "idx_target_liked_updated"))

	// a duplicate pair key is rejected by the unique index
	require.NoError(t, database.Create(&Match{ID: "a", PairKey: PairKey(1, 2), UserA: 1, UserB: 2}).Error)
	assert.Error(t, database.Create(&Match{ID: "b", PairKey: PairKey(2, 1), UserA: 1, UserB: 2}).Error)
}

func TestPrefVectorRoundTrip(t *testing.T) {
	assert.Nil(t, NewPrefVector(nil))

	database, err := Open("sqlite", ":memory:")
	require.NoError(t, err)

	p := Profile{UserID: 1, Summary: "s", PrefVec: NewPrefVector([]float32{0.5, -1})}
	require.NoError(t, database.Create(&p).Error)

	var got Profile
	require.NoError(t, database.First(&got, "user_id = ?", 1).Error)
	require.NotNil(t, got.PrefVec)
	assert.Equal(t, []float32{0.5, -1}, got.PrefVec.Slice())
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("oracle", "")
	assert.ErrorContains(t, err, "unsupported db driver")
}
