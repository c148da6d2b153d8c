package db

import (
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// User is one row per Google account.
type User struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	GoogleID  string    `gorm:"uniqueIndex;size:64;not null"`
	Email     string    `gorm:"size:255"`
	Name      string    `gorm:"size:255"`
	AvatarURL string    `gorm:"size:1024"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Profile holds the personality attributes synthesized from a user's activity.
//
// A refresh replaces the whole row; edits touch individual text fields only.
type Profile struct {
	UserID          uint64 `gorm:"primaryKey;autoIncrement:false"`
	CoreTraits      string `gorm:"type:text"`
	Interests       string `gorm:"type:text"`
	CareerInterests string `gorm:"type:text"`
	IdealDate       string `gorm:"type:text"`
	IdealPartner    string `gorm:"type:text"`
	Summary         string `gorm:"type:text"`

	Subscriptions datatypes.JSONSlice[string]
	LikedVideos   datatypes.JSONSlice[string]
	PrefVec       *PrefVector

	LastSyncedAt time.Time
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// OAuthToken stores the provider credentials needed to read a user's activity.
type OAuthToken struct {
	UserID       uint64 `gorm:"primaryKey;autoIncrement:false"`
	AccessToken  string `gorm:"type:text;not null"`
	RefreshToken string `gorm:"type:text"`
	TokenType    string `gorm:"size:32"`
	Expiry       time.Time
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

func (OAuthToken) TableName() string { return "oauth_tokens" }

// Like is the directed decision an actor made about a target.
//
// Composite PK: (ActorID, TargetID)
//   - A repeat swipe overwrites Liked and UpdatedAt instead of adding a row.
//
// Indexes:
//   - idx_target_liked_updated(target_id, liked, updated_at DESC)
//     "who liked me" lists with cursor pagination.
//   - idx_actor_target_liked(actor_id, target_id, liked)
//     reciprocal like lookups.
type Like struct {
	ActorID   uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_actor_target_liked,priority:1"`
	TargetID  uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_target_liked_updated,priority:1;index:idx_actor_target_liked,priority:2"`
	Liked     bool      `gorm:"not null;index:idx_target_liked_updated,priority:2;index:idx_actor_target_liked,priority:3"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index:idx_target_liked_updated,priority:3,sort:desc"`
}

// Match is created once per unordered pair. UserA < UserB always, and
// PairKey carries a unique index so a pair can never match twice.
type Match struct {
	ID        string    `gorm:"primaryKey;size:36"`
	PairKey   string    `gorm:"uniqueIndex;size:64;not null"`
	UserA     uint64    `gorm:"not null;index"`
	UserB     uint64    `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

// PairKey returns the canonical key for the unordered pair {a, b}.
func PairKey(a, b uint64) string {
	lo, hi := Ordered(a, b)
	return fmt.Sprintf("%d:%d", lo, hi)
}

// Ordered returns a and b sorted ascending.
func Ordered(a, b uint64) (uint64, uint64) {
	if a > b {
		return b, a
	}
	return a, b
}

// Other returns the counterpart of userID in the match.
func (m Match) Other(userID uint64) uint64 {
	if m.UserA == userID {
		return m.UserB
	}
	return m.UserA
}

// PrefVector is a preference embedding. It is a pgvector column on Postgres
// and falls back to its text form on other dialects.
type PrefVector struct {
	pgvector.Vector
}

func NewPrefVector(v []float32) *PrefVector {
	if len(v) == 0 {
		return nil
	}
	return &PrefVector{Vector: pgvector.NewVector(v)}
}

func (PrefVector) GormDataType() string { return "vector" }

func (PrefVector) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "vector"
	}
	return "text"
}

// All returns every model in migration order.
func All() []any {
	return []any{&User{}, &Profile{}, &OAuthToken{}, &Like{}, &Match{}}
}
