package repository

import (
	"context"

	"golang.org/x/oauth2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/tubematch/internal/db"
)

// TokenRepository keeps the Google credentials of each user.
type TokenRepository struct {
	db *gorm.DB
}

func NewTokenRepository(database *gorm.DB) *TokenRepository {
	return &TokenRepository{db: database}
}

// Save stores tok for userID. An empty refresh token keeps the stored one,
// since Google only sends it on the first consent.
func (r *TokenRepository) Save(ctx context.Context, userID uint64, tok *oauth2.Token) error {
	row := db.OAuthToken{
		UserID:       userID,
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry.UTC(),
	}
	cols := []string{"access_token", "token_type", "expiry", "updated_at"}
	if tok.RefreshToken != "" {
		cols = append(cols, "refresh_token")
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns(cols),
		}).
		Create(&row).Error
}

// Get returns gorm.ErrRecordNotFound when the user never granted access.
func (r *TokenRepository) Get(ctx context.Context, userID uint64) (*oauth2.Token, error) {
	var row db.OAuthToken
	if err := r.db.WithContext(ctx).First(&row, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken:  row.AccessToken,
		RefreshToken: row.RefreshToken,
		TokenType:    row.TokenType,
		Expiry:       row.Expiry,
	}, nil
}
