package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/tubematch/internal/db"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// UpsertByGoogleID creates the user on first login and refreshes email,
// name and avatar on later ones. The stored row is returned.
func (r *UserRepository) UpsertByGoogleID(ctx context.Context, u db.User) (db.User, error) {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "google_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "name", "avatar_url", "updated_at"}),
		}).
		Create(&u).Error
	if err != nil {
		return db.User{}, err
	}
	// MySQL does not report the id of an updated row.
	return r.FindByGoogleID(ctx, u.GoogleID)
}

// FindByGoogleID returns gorm.ErrRecordNotFound for unknown subjects.
func (r *UserRepository) FindByGoogleID(ctx context.Context, googleID string) (db.User, error) {
	var u db.User
	err := r.db.WithContext(ctx).Where("google_id = ?", googleID).First(&u).Error
	return u, err
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (db.User, error) {
	var u db.User
	err := r.db.WithContext(ctx).First(&u, id).Error
	return u, err
}

// FindMany loads the given users keyed by id. Missing ids are absent from the map.
func (r *UserRepository) FindMany(ctx context.Context, ids []uint64) (map[uint64]db.User, error) {
	out := make(map[uint64]db.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// SetAvatar points the user's avatar at url.
func (r *UserRepository) SetAvatar(ctx context.Context, id uint64, url string) error {
	res := r.db.WithContext(ctx).Model(&db.User{}).Where("id = ?", id).Update("avatar_url", url)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
