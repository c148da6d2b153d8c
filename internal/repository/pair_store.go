package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/tubematch/internal/db"
	"github.com/oggyb/tubematch/internal/matching"
)

var _ matching.Store = (*PairStore)(nil)

// PairStore is the gorm implementation of matching.Store.
type PairStore struct {
	db      *gorm.DB
	likes   *LikeRepository
	matches *MatchRepository
}

func NewPairStore(database *gorm.DB) *PairStore {
	return &PairStore{
		db:      database,
		likes:   NewLikeRepository(database),
		matches: NewMatchRepository(database),
	}
}

// Atomically runs fn in a transaction holding row locks on both users.
//
// Locks are taken in ascending id order so two swipes on the same pair
// queue behind each other instead of deadlocking. SQLite has no row locks;
// its single writer already serializes the transactions.
func (s *PairStore) Atomically(ctx context.Context, a, b uint64, fn func(tx matching.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockUsers(tx, a, b); err != nil {
			return err
		}
		return fn(NewPairStore(tx))
	})
}

func lockUsers(tx *gorm.DB, a, b uint64) error {
	if tx.Dialector.Name() == "sqlite" {
		return nil
	}
	lo, hi := db.Ordered(a, b)
	for _, id := range []uint64{lo, hi} {
		var ids []uint64
		err := tx.Model(&db.User{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", id).
			Pluck("id", &ids).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *PairStore) UserExists(ctx context.Context, userID uint64) (bool, error) {
	var u db.User
	err := s.db.WithContext(ctx).Select("id").First(&u, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *PairStore) UpsertLike(ctx context.Context, actorID, targetID uint64, liked bool) error {
	return s.likes.Upsert(ctx, actorID, targetID, liked)
}

func (s *PairStore) FindReciprocalLike(ctx context.Context, actorID, targetID uint64) (bool, error) {
	return s.likes.HasLiked(ctx, targetID, actorID)
}

func (s *PairStore) InsertMatchIfAbsent(ctx context.Context, a, b uint64) (db.Match, bool, error) {
	return s.matches.InsertIfAbsent(ctx, a, b)
}

func (s *PairStore) ListMatchesFor(ctx context.Context, userID uint64) ([]db.Match, error) {
	return s.matches.ListFor(ctx, userID)
}
