// Package profile generates, edits and queries personality profiles.
package profile

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"

	"github.com/oggyb/tubematch/internal/activity"
	"github.com/oggyb/tubematch/internal/app"
	"github.com/oggyb/tubematch/internal/db"
	svcErr "github.com/oggyb/tubematch/internal/errors"
	"github.com/oggyb/tubematch/internal/llm"
	"github.com/oggyb/tubematch/internal/repository"
	"github.com/oggyb/tubematch/internal/server/middleware"
	"github.com/oggyb/tubematch/internal/storage"
	"github.com/oggyb/tubematch/internal/validation"
)

const neutralScore = 50

// Model is the language model the service writes and reads profiles with.
type Model interface {
	Chat(ctx context.Context, messages []llm.Message) (string, error)
	ChatJSON(ctx context.Context, messages []llm.Message, out any) error
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ActivitySource reads a user's YouTube and Gmail activity.
type ActivitySource interface {
	Snapshot(ctx context.Context, userID uint64) (activity.Snapshot, error)
}

// AvatarStore presigns profile picture uploads and confirms them once the
// client has PUT the file.
type AvatarStore interface {
	UploadURL(ctx context.Context, userID uint64, fileName, contentType string) (storage.Upload, error)
	Confirm(ctx context.Context, userID uint64, key string) (string, error)
}

type Service struct {
	appCtx      *app.AppContext
	profileRepo *repository.ProfileRepository
	userRepo    *repository.UserRepository
	model       Model
	activity    ActivitySource
	avatars     AvatarStore
}

func NewService(appCtx *app.AppContext, model Model, src ActivitySource, avatars AvatarStore) *Service {
	return &Service{
		appCtx:      appCtx,
		profileRepo: repository.NewProfileRepository(appCtx.DB),
		userRepo:    repository.NewUserRepository(appCtx.DB),
		model:       model,
		activity:    src,
		avatars:     avatars,
	}
}

// Get returns the caller and their profile; profile is null until the
// first refresh.
func (s *Service) Get(c *gin.Context) {
	me := middleware.CurrentUser(c)

	resp := MeResponse{User: UserView{
		ID:        strconv.FormatUint(me.ID, 10),
		Email:     me.Email,
		Name:      me.Name,
		AvatarURL: me.AvatarURL,
	}}

	p, err := s.profileRepo.Get(c.Request.Context(), me.ID)
	switch {
	case errors.Is(err, repository.ErrProfileNotFound):
	case err != nil:
		_ = c.Error(err)
		return
	default:
		view := toProfileView(p)
		resp.Profile = &view
	}
	c.JSON(http.StatusOK, resp)
}

// Update edits individual text attributes. Fields left out are untouched.
func (s *Service) Update(c *gin.Context) {
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(svcErr.InvalidArgument(validation.Message(err)))
		return
	}
	me := middleware.CurrentUser(c)

	p, err := s.profileRepo.Update(c.Request.Context(), me.ID, repository.ProfileFields{
		CoreTraits:      req.CoreTraits,
		Interests:       req.Interests,
		CareerInterests: req.CareerInterests,
		IdealDate:       req.IdealDate,
		IdealPartner:    req.IdealPartner,
		Summary:         req.Summary,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, toProfileView(p))
}

// Refresh rebuilds the caller's profile from scratch.
//
// Behavior:
//   - Collects YouTube subscriptions and likes, plus recent sent mail.
//   - Asks the model for the six attributes as one JSON object.
//   - Embeds summary and interests into the preference vector; an
//     embedding failure leaves the vector empty instead of failing.
//   - Replaces the stored profile in one transaction.
func (s *Service) Refresh(c *gin.Context) {
	me := middleware.CurrentUser(c)
	ctx := c.Request.Context()
	log := s.appCtx.Logger.With("user_id", me.ID)

	snap, err := s.activity.Snapshot(ctx, me.ID)
	if err != nil {
		_ = c.Error(upstream("could not read your youtube activity", err))
		return
	}

	var g generated
	err = s.model.ChatJSON(ctx, []llm.Message{
		llm.System(profileSystemPrompt),
		llm.User(activityPrompt(snap)),
	}, &g)
	if err != nil {
		_ = c.Error(upstream("profile generation failed", err))
		return
	}
	if g.empty() {
		_ = c.Error(svcErr.BadGateway("profile generation returned nothing", nil))
		return
	}

	var vec *db.PrefVector
	if text := embeddingText(g); text != "" {
		emb, err := s.model.Embed(ctx, text)
		if err != nil {
			log.Warn("embedding failed, storing profile without a vector", "err", err)
		} else {
			vec = db.NewPrefVector(emb)
		}
	}

	p, err := s.profileRepo.Replace(ctx, db.Profile{
		UserID:          me.ID,
		CoreTraits:      string(g.CoreTraits),
		Interests:       string(g.Interests),
		CareerInterests: string(g.CareerInterests),
		IdealDate:       string(g.IdealDate),
		IdealPartner:    string(g.IdealPartner),
		Summary:         string(g.Summary),
		Subscriptions:   datatypes.JSONSlice[string](snap.Subscriptions),
		LikedVideos:     datatypes.JSONSlice[string](snap.VideoTitles()),
		PrefVec:         vec,
		LastSyncedAt:    time.Now().UTC().Truncate(time.Millisecond),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := s.appCtx.RedisCache.InvalidateDeck(ctx, me.ID); err != nil {
		log.Warn("deck invalidation failed", "err", err)
	}
	log.Info("profile refreshed",
		"subscriptions", len(snap.Subscriptions),
		"liked_videos", len(snap.LikedVideos),
		"embedded", vec != nil,
	)
	c.JSON(http.StatusOK, toProfileView(p))
}

// Chat answers a free-form question about the caller from their profile.
func (s *Service) Chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(svcErr.InvalidArgument(validation.Message(err)))
		return
	}
	me := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	p, err := s.profileRepo.Get(ctx, me.ID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		_ = c.Error(svcErr.NotFound("profile not found, generate your profile first"))
		return
	} else if err != nil {
		_ = c.Error(err)
		return
	}

	answer, err := s.model.Chat(ctx, []llm.Message{
		llm.System(chatSystemPrompt + "\n\n" + profilePrompt(p)),
		llm.User(req.Question),
	})
	if err != nil {
		_ = c.Error(upstream("could not answer right now", err))
		return
	}
	c.JSON(http.StatusOK, ChatResponse{Answer: answer})
}

// Compatibility scores the caller against another user. Model failures
// degrade to a neutral verdict instead of an error.
func (s *Service) Compatibility(c *gin.Context) {
	me := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	otherID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		_ = c.Error(svcErr.InvalidArgument("id must be a user id"))
		return
	}
	if otherID == me.ID {
		_ = c.Error(svcErr.InvalidArgument("cannot compare you with yourself"))
		return
	}

	mine, err := s.profileRepo.Get(ctx, me.ID)
	if errors.Is(err, repository.ErrProfileNotFound) {
		_ = c.Error(svcErr.NotFound("profile not found, generate your profile first"))
		return
	} else if err != nil {
		_ = c.Error(err)
		return
	}
	theirs, err := s.profileRepo.Get(ctx, otherID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	var raw compatibility
	err = s.model.ChatJSON(ctx, []llm.Message{
		llm.System(compatibilitySystemPrompt),
		llm.User(compatibilityPrompt(mine, theirs)),
	}, &raw)
	if err != nil {
		s.appCtx.Logger.Warn("compatibility analysis failed", "user_id", me.ID, "other_id", otherID, "err", err)
		c.JSON(http.StatusOK, neutralCompatibility("Unable to analyze compatibility"))
		return
	}
	c.JSON(http.StatusOK, raw.normalize())
}

// AvatarUploadURL presigns an image upload. The avatar only changes once
// ConfirmAvatar sees the file in the bucket.
func (s *Service) AvatarUploadURL(c *gin.Context) {
	var req AvatarRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(svcErr.InvalidArgument(validation.Message(err)))
		return
	}
	me := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	up, err := s.avatars.UploadURL(ctx, me.ID, req.FileName, req.ContentType)
	if err != nil {
		_ = c.Error(avatarError("could not prepare the upload", err))
		return
	}
	c.JSON(http.StatusOK, AvatarResponse{
		UploadURL: up.URL,
		Key:       up.Key,
		AvatarURL: up.PublicURL,
		ExpiresAt: up.ExpiresAt,
	})
}

// ConfirmAvatar points the caller's avatar at an upload they finished.
func (s *Service) ConfirmAvatar(c *gin.Context) {
	var req AvatarConfirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(svcErr.InvalidArgument(validation.Message(err)))
		return
	}
	me := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	avatarURL, err := s.avatars.Confirm(ctx, me.ID, req.Key)
	if err != nil {
		_ = c.Error(avatarError("could not check the upload", err))
		return
	}
	if err := s.userRepo.SetAvatar(ctx, me.ID, avatarURL); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, AvatarConfirmResponse{AvatarURL: avatarURL})
}

func avatarError(msg string, err error) error {
	switch {
	case errors.Is(err, storage.ErrDisabled),
		errors.Is(err, storage.ErrUnsupportedType),
		errors.Is(err, storage.ErrNotUploaded):
		return err
	default:
		return svcErr.BadGateway(msg, err)
	}
}

// upstream maps a provider failure to 502 unless it already has a
// specific meaning (missing grant, missing configuration, timeouts).
func upstream(msg string, err error) error {
	switch {
	case errors.Is(err, activity.ErrNoAccess),
		errors.Is(err, llm.ErrNotConfigured),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return err
	}
	return svcErr.BadGateway(msg, err)
}

func (r compatibility) normalize() CompatibilityResponse {
	out := CompatibilityResponse{
		Score:            clampScore(r.Score),
		Reasons:          r.Reasons,
		PersonalityMatch: clampScore(r.PersonalityMatch),
		InterestsMatch:   clampScore(r.InterestsMatch),
		DatingGoalsMatch: clampScore(r.DatingGoalsMatch),
	}
	if len(out.Reasons) == 0 {
		out.Reasons = []string{"General compatibility"}
	}
	return out
}

func neutralCompatibility(reason string) CompatibilityResponse {
	return CompatibilityResponse{
		Score:            neutralScore,
		Reasons:          []string{reason},
		PersonalityMatch: neutralScore,
		InterestsMatch:   neutralScore,
		DatingGoalsMatch: neutralScore,
	}
}

func clampScore(v *float64) int {
	if v == nil || math.IsNaN(*v) {
		return neutralScore
	}
	return int(math.Round(math.Max(0, math.Min(100, *v))))
}
