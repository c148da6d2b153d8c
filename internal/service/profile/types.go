package profile

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/oggyb/tubematch/internal/db"
)

// Text is an LLM answer field. Models sometimes send a list where a
// sentence was asked for; lists are joined with ", ".
type Text string

func (t *Text) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*t = Text(strings.TrimSpace(s))
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	parts := list[:0]
	for _, item := range list {
		if item = strings.TrimSpace(item); item != "" {
			parts = append(parts, item)
		}
	}
	*t = Text(strings.Join(parts, ", "))
	return nil
}

// generated is the JSON object the model is asked to produce.
type generated struct {
	CoreTraits      Text `json:"core_traits"`
	Interests       Text `json:"interests"`
	CareerInterests Text `json:"career_interests"`
	IdealDate       Text `json:"ideal_date"`
	IdealPartner    Text `json:"ideal_partner"`
	Summary         Text `json:"summary"`
}

func (g generated) empty() bool {
	return g.CoreTraits == "" && g.Interests == "" && g.Summary == ""
}

// compatibility is the model's raw verdict. Pointers tell a missing score
// from a zero.
type compatibility struct {
	Score            *float64 `json:"score"`
	Reasons          []string `json:"reasons"`
	PersonalityMatch *float64 `json:"personality_match"`
	InterestsMatch   *float64 `json:"interests_match"`
	DatingGoalsMatch *float64 `json:"dating_goals_match"`
}

type UpdateRequest struct {
	CoreTraits      *string `json:"core_traits" binding:"omitempty,notblank,max=2000"`
	Interests       *string `json:"interests" binding:"omitempty,notblank,max=2000"`
	CareerInterests *string `json:"career_interests" binding:"omitempty,notblank,max=2000"`
	IdealDate       *string `json:"ideal_date" binding:"omitempty,notblank,max=2000"`
	IdealPartner    *string `json:"ideal_partner" binding:"omitempty,notblank,max=2000"`
	Summary         *string `json:"summary" binding:"omitempty,notblank,max=2000"`
}

type ChatRequest struct {
	Question string `json:"question" binding:"required,notblank,max=2000"`
}

type ChatResponse struct {
	Answer string `json:"answer"`
}

type AvatarRequest struct {
	FileName    string `json:"file_name" binding:"required,notblank,max=255"`
	ContentType string `json:"content_type" binding:"required,notblank,max=100"`
}

type AvatarResponse struct {
	UploadURL string    `json:"upload_url"`
	Key       string    `json:"key"`
	AvatarURL string    `json:"avatar_url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type AvatarConfirmRequest struct {
	Key string `json:"key" binding:"required,notblank,max=512"`
}

type AvatarConfirmResponse struct {
	AvatarURL string `json:"avatar_url"`
}

type CompatibilityResponse struct {
	Score            int      `json:"score"`
	Reasons          []string `json:"reasons"`
	PersonalityMatch int      `json:"personality_match"`
	InterestsMatch   int      `json:"interests_match"`
	DatingGoalsMatch int      `json:"dating_goals_match"`
}

type UserView struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type ProfileView struct {
	CoreTraits      string    `json:"core_traits"`
	Interests       string    `json:"interests"`
	CareerInterests string    `json:"career_interests"`
	IdealDate       string    `json:"ideal_date"`
	IdealPartner    string    `json:"ideal_partner"`
	Summary         string    `json:"summary"`
	Subscriptions   []string  `json:"subscriptions"`
	LikedVideos     []string  `json:"liked_videos"`
	HasEmbedding    bool      `json:"has_embedding"`
	LastSyncedAt    time.Time `json:"last_synced_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type MeResponse struct {
	User    UserView     `json:"user"`
	Profile *ProfileView `json:"profile"`
}

func toProfileView(p db.Profile) ProfileView {
	v := ProfileView{
		CoreTraits:      p.CoreTraits,
		Interests:       p.Interests,
		CareerInterests: p.CareerInterests,
		IdealDate:       p.IdealDate,
		IdealPartner:    p.IdealPartner,
		Summary:         p.Summary,
		Subscriptions:   p.Subscriptions,
		LikedVideos:     p.LikedVideos,
		HasEmbedding:    p.PrefVec != nil,
		LastSyncedAt:    p.LastSyncedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if v.Subscriptions == nil {
		v.Subscriptions = []string{}
	}
	if v.LikedVideos == nil {
		v.LikedVideos = []string{}
	}
	return v
}
