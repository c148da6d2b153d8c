package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/oggyb/tubematch/internal/db"
)

// ErrProfileNotFound is returned when the user has never generated a profile.
var ErrProfileNotFound = errors.New("profile not found")

// ProfileFields are the user-editable attributes. Nil fields are left untouched.
type ProfileFields struct {
	CoreTraits      *string
	Interests       *string
	CareerInterests *string
	IdealDate       *string
	IdealPartner    *string
	Summary         *string
}

func (f ProfileFields) updates() map[string]any {
	out := map[string]any{}
	set := func(col string, v *string) {
		if v != nil {
			out[col] = *v
		}
	}
	set("core_traits", f.CoreTraits)
	set("interests", f.Interests)
	set("career_interests", f.CareerInterests)
	set("ideal_date", f.IdealDate)
	set("ideal_partner", f.IdealPartner)
	set("summary", f.Summary)
	return out
}

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// Get returns userID's profile or ErrProfileNotFound.
func (r *ProfileRepository) Get(ctx context.Context, userID uint64) (db.Profile, error) {
	var p db.Profile
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Profile{}, ErrProfileNotFound
	}
	return p, err
}

// Replace throws away the previous profile and stores p in its place.
// Both steps share a transaction so readers never see a user without one.
func (r *ProfileRepository) Replace(ctx context.Context, p db.Profile) (db.Profile, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", p.UserID).Delete(&db.Profile{}).Error; err != nil {
			return err
		}
		return tx.Create(&p).Error
	})
	return p, err
}

// Update applies the non-nil fields and returns the stored result.
func (r *ProfileRepository) Update(ctx context.Context, userID uint64, f ProfileFields) (db.Profile, error) {
	updates := f.updates()
	if len(updates) > 0 {
		res := r.db.WithContext(ctx).
			Model(&db.Profile{}).
			Where("user_id = ?", userID).
			Updates(updates)
		if res.Error != nil {
			return db.Profile{}, res.Error
		}
		if res.RowsAffected == 0 {
			return db.Profile{}, ErrProfileNotFound
		}
	}
	return r.Get(ctx, userID)
}
