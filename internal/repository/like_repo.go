package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/tubematch/internal/db"
	"github.com/oggyb/tubematch/internal/utils/pagination"
)

// LikeRepository is the Like Ledger: one directed row per (actor, target).
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB connection.
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// Upsert records actor's decision about target.
//
// Behavior:
//   - If (actor_id, target_id) exists → liked and updated_at are overwritten.
//   - If it doesn't exist → a new row is inserted.
//   - Repeating the same decision is idempotent apart from the timestamp.
//
// Example:
//
//	repo.Upsert(ctx, 1, 2, true) // user 1 liked user 2
func (r *LikeRepository) Upsert(ctx context.Context, actorID, targetID uint64, liked bool) error {
	like := db.Like{
		ActorID:  actorID,
		TargetID: targetID,
		Liked:    liked,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"liked", "updated_at"}),
		}).
		Create(&like).Error
}

// HasLiked reports whether actor currently likes target.
func (r *LikeRepository) HasLiked(ctx context.Context, actorID, targetID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Like{}).
		Where("actor_id = ? AND target_id = ? AND liked = ?", actorID, targetID, true).
		Count(&count).Error
	return count > 0, err
}

// GetLikers returns the users who liked target, newest first.
//
// Behavior:
//   - Only rows where target_id = X and liked = true are returned.
//   - Users that target explicitly passed are excluded.
//   - Ordered by updated_at DESC, actor_id DESC.
//   - Supports cursor-based pagination via paginationToken.
func (r *LikeRepository) GetLikers(
	ctx context.Context,
	targetID uint64,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.likersOf(ctx, targetID)
	return r.page(query, cursor, limit)
}

// GetNewLikers returns the users who liked target and have not been liked back.
//
// Behavior:
//   - Same as GetLikers, minus mutual likes.
func (r *LikeRepository) GetNewLikers(
	ctx context.Context,
	targetID uint64,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	// likes target already returned
	mutual := r.db.
		Table("likes").
		Select("1").
		Where("actor_id = l.target_id AND target_id = l.actor_id AND liked = ?", true)

	query := r.likersOf(ctx, targetID).Where("NOT EXISTS (?)", mutual)
	return r.page(query, cursor, limit)
}

// CountLikers returns how many users liked target, excluding the ones target passed.
// The Redis counter in front of it is only a cache.
func (r *LikeRepository) CountLikers(ctx context.Context, targetID uint64) (int64, error) {
	var count int64
	if err := r.likersOf(ctx, targetID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *LikeRepository) likersOf(ctx context.Context, targetID uint64) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("likes l").
		Where("l.target_id = ? AND l.liked = ?", targetID, true).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM likes l2
				WHERE l2.actor_id = ?
				  AND l2.target_id = l.actor_id
				  AND l2.liked = ?
			)`, targetID, false)
}

func (r *LikeRepository) page(query *gorm.DB, cursor pagination.Cursor, limit int) ([]db.Like, *string, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if !cursor.IsZero() {
		ts := cursor.UpdatedAt()
		query = query.Where(
			"(l.updated_at < ? OR (l.updated_at = ? AND l.actor_id < ?))",
			ts, ts, cursor.ActorID,
		)
	}

	var likes []db.Like
	err := query.
		Select("l.*").
		Order("l.updated_at DESC, l.actor_id DESC").
		Limit(limit + 1).
		Find(&likes).Error
	if err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, err := pagination.Encode(pagination.After(last.ActorID, last.UpdatedAt))
		if err != nil {
			return nil, nil, err
		}
		nextToken = &token
		likes = likes[:limit]
	}
	return likes, nextToken, nil
}

// DefaultPageSize is the page size of the likes listings.
const DefaultPageSize = 5

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
