package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/tubematch/internal/db"
)

// MatchRepository owns the match table. A pair matches at most once:
// the unique pair_key index is the final word on that.
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// InsertIfAbsent returns the match for {a, b}, creating it when none exists.
//
// Behavior:
//   - Inserts with ON CONFLICT (pair_key) DO NOTHING.
//   - When nothing was inserted, or the driver still reports a duplicate key,
//     the existing row is read back and created is false.
func (r *MatchRepository) InsertIfAbsent(ctx context.Context, a, b uint64) (db.Match, bool, error) {
	lo, hi := db.Ordered(a, b)
	m := db.Match{
		ID:      uuid.NewString(),
		PairKey: db.PairKey(a, b),
		UserA:   lo,
		UserB:   hi,
	}

	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "pair_key"}},
			DoNothing: true,
		}).
		Create(&m)
	switch {
	case res.Error == nil && res.RowsAffected == 1:
		return m, true, nil
	case res.Error != nil && !errors.Is(res.Error, gorm.ErrDuplicatedKey):
		return db.Match{}, false, res.Error
	}

	existing, err := r.FindByPair(ctx, a, b)
	if err != nil {
		return db.Match{}, false, err
	}
	return existing, false, nil
}

// FindByPair returns the match for {a, b} or gorm.ErrRecordNotFound.
func (r *MatchRepository) FindByPair(ctx context.Context, a, b uint64) (db.Match, error) {
	var m db.Match
	err := r.db.WithContext(ctx).
		Where("pair_key = ?", db.PairKey(a, b)).
		First(&m).Error
	return m, err
}

// ListFor returns every match userID is part of, newest first.
func (r *MatchRepository) ListFor(ctx context.Context, userID uint64) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("user_a = ? OR user_b = ?", userID, userID).
		Order("created_at DESC, id DESC").
		Find(&matches).Error
	return matches, err
}
