package matching_test

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/tubematch/internal/db"
	"github.com/oggyb/tubematch/internal/matching"
)

//
// In-memory store
//

type likeKey struct{ actor, target uint64 }

// memStore is a Store backed by maps. Atomically holds a single mutex and
// restores a snapshot when fn fails, which is all the protocol relies on.
type memStore struct {
	txMu    sync.Mutex
	users   map[uint64]bool
	likes   map[likeKey]bool
	matches map[string]db.Match
	seq     int

	insertErr error
}

func newMemStore(users ...uint64) *memStore {
	s := &memStore{
		users:   map[uint64]bool{},
		likes:   map[likeKey]bool{},
		matches: map[string]db.Match{},
	}
	for _, u := range users {
		s.users[u] = true
	}
	return s
}

func (s *memStore) Atomically(ctx context.Context, a, b uint64, fn func(tx matching.Store) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	likes := maps.Clone(s.likes)
	matches := maps.Clone(s.matches)
	if err := fn(s); err != nil {
		s.likes, s.matches = likes, matches
		return err
	}
	return nil
}

func (s *memStore) UserExists(_ context.Context, id uint64) (bool, error) {
	return s.users[id], nil
}

func (s *memStore) UpsertLike(_ context.Context, actor, target uint64, liked bool) error {
	s.likes[likeKey{actor, target}] = liked
	return nil
}

func (s *memStore) FindReciprocalLike(_ context.Context, actor, target uint64) (bool, error) {
	return s.likes[likeKey{target, actor}], nil
}

func (s *memStore) InsertMatchIfAbsent(_ context.Context, a, b uint64) (db.Match, bool, error) {
	if s.insertErr != nil {
		return db.Match{}, false, s.insertErr
	}
	key := db.PairKey(a, b)
	if m, ok := s.matches[key]; ok {
		return m, false, nil
	}
	s.seq++
	lo, hi := db.Ordered(a, b)
	m := db.Match{
		ID:        fmt.Sprintf("m-%d", s.seq),
		PairKey:   key,
		UserA:     lo,
		UserB:     hi,
		CreatedAt: time.Now().Add(time.Duration(s.seq) * time.Millisecond),
	}
	s.matches[key] = m
	return m, true, nil
}

func (s *memStore) ListMatchesFor(_ context.Context, userID uint64) ([]db.Match, error) {
	var out []db.Match
	for _, m := range s.matches {
		if m.UserA == userID || m.UserB == userID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

//
// Tests
//

func TestRecordLike_OneSidedLikeNeverMatches(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(1, 2)
	p := matching.NewProtocol(store)

	for i := 0; i < 2; i++ {
		res, err := p.RecordLike(ctx, 1, 2, true)
		require.NoError(t, err)
		assert.False(t, res.Matched)
		assert.Empty(t, res.MatchID)
	}

	assert.Len(t, store.likes, 1)
	assert.Empty(t, store.matches)
}

func TestRecordLike_MutualLikeMatchesInEitherOrder(t *testing.T) {
	orders := map[string][2]uint64{
		"alice first": {1, 2},
		"bob first":   {2, 1},
	}
	for name, order := range orders {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newMemStore(1, 2)
			p := matching.NewProtocol(store)

			first, err := p.RecordLike(ctx, order[0], order[1], true)
			require.NoError(t, err)
			assert.False(t, first.Matched)

			second, err := p.RecordLike(ctx, order[1], order[0], true)
			require.NoError(t, err)
			assert.True(t, second.Matched)
			assert.True(t, second.NewMatch)
			assert.NotEmpty(t, second.MatchID)

			require.Len(t, store.matches, 1)
			m := store.matches[db.PairKey(1, 2)]
			assert.Equal(t, uint64(1), m.UserA)
			assert.Equal(t, uint64(2), m.UserB)
		})
	}
}

func TestRecordLike_ReenteringAMatchedPairReturnsExistingMatch(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(1, 2)
	p := matching.NewProtocol(store)

	_, err := p.RecordLike(ctx, 1, 2, true)
	require.NoError(t, err)
	created, err := p.RecordLike(ctx, 2, 1, true)
	require.NoError(t, err)

	again, err := p.RecordLike(ctx, 1, 2, true)
	require.NoError(t, err)
	assert.True(t, again.Matched)
	assert.False(t, again.NewMatch)
	assert.Equal(t, created.MatchID, again.MatchID)
	assert.Len(t, store.matches, 1)
}

func TestRecordLike_PassDoesNotMatch(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(1, 2)
	p := matching.NewProtocol(store)

	_, err := p.RecordLike(ctx, 2, 1, true)
	require.NoError(t, err)

	res, err := p.RecordLike(ctx, 1, 2, false)
	require.NoError(t, err)
	assert.False(t, res.Matched)
	assert.Empty(t, store.matches)

	// changing a pass into a like still forms the match
	res, err = p.RecordLike(ctx, 1, 2, true)
	require.NoError(t, err)
	assert.True(t, res.Matched)
}

func TestRecordLike_RejectsSelfLike(t *testing.T) {
	store := newMemStore(1)
	p := matching.NewProtocol(store)

	_, err := p.RecordLike(context.Background(), 1, 1, true)
	assert.ErrorIs(t, err, matching.ErrSelfLike)
	assert.Empty(t, store.likes)
}

func TestRecordLike_UnknownTarget(t *testing.T) {
	store := newMemStore(1)
	p := matching.NewProtocol(store)

	_, err := p.RecordLike(context.Background(), 1, 42, true)
	assert.ErrorIs(t, err, matching.ErrUserNotFound)
	assert.Empty(t, store.likes)
}

func TestRecordLike_StorageFailureLeavesNoPartialState(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(1, 2)
	p := matching.NewProtocol(store)

	_, err := p.RecordLike(ctx, 2, 1, true)
	require.NoError(t, err)

	boom := errors.New("disk on fire")
	store.insertErr = boom

	_, err = p.RecordLike(ctx, 1, 2, true)
	require.ErrorIs(t, err, boom)

	_, recorded := store.likes[likeKey{1, 2}]
	assert.False(t, recorded, "like must roll back with the failed match insert")
	assert.Empty(t, store.matches)
}

func TestRecordLike_ConcurrentMutualLikesCreateExactlyOneMatch(t *testing.T) {
	for i := 0; i < 50; i++ {
		ctx := context.Background()
		store := newMemStore(1, 2)
		p := matching.NewProtocol(store)

		var wg sync.WaitGroup
		results := make([]matching.Result, 2)
		for j, pair := range [][2]uint64{{1, 2}, {2, 1}} {
			wg.Add(1)
			go func(j int, actor, target uint64) {
				defer wg.Done()
				res, err := p.RecordLike(ctx, actor, target, true)
				assert.NoError(t, err)
				results[j] = res
			}(j, pair[0], pair[1])
		}
		wg.Wait()

		require.Len(t, store.matches, 1)
		assert.NotEqual(t, results[0].Matched, results[1].Matched, "exactly one swipe observes the match")
	}
}

func TestMatches_NewestFirst(t *testing.T) {
	ctx := context.Background()
	store := newMemStore(1, 2, 3)
	p := matching.NewProtocol(store)

	for _, other := range []uint64{2, 3} {
		_, err := p.RecordLike(ctx, other, 1, true)
		require.NoError(t, err)
		_, err = p.RecordLike(ctx, 1, other, true)
		require.NoError(t, err)
	}

	matches, err := p.Matches(ctx, 1)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, uint64(3), matches[0].Other(1))
	assert.Equal(t, uint64(2), matches[1].Other(1))

	none, err := p.Matches(ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}
