// Package match serves swiping and the match list over HTTP.
package match

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/tubematch/internal/app"
	svcErr "github.com/oggyb/tubematch/internal/errors"
	"github.com/oggyb/tubematch/internal/matching"
	"github.com/oggyb/tubematch/internal/repository"
	"github.com/oggyb/tubematch/internal/server/middleware"
	"github.com/oggyb/tubematch/internal/validation"
)

const unknownUserName = "Unknown User"

// Notifier is told about every newly created match.
type Notifier interface {
	MatchCreated(matchID string, a, b uint64)
}

// Service wraps the Match Formation Protocol for HTTP callers.
type Service struct {
	appCtx   *app.AppContext
	protocol *matching.Protocol
	userRepo *repository.UserRepository
	notifier Notifier
}

// NewService wires the protocol to the gorm-backed pair store.
// notifier may be nil.
func NewService(appCtx *app.AppContext, notifier Notifier) *Service {
	return &Service{
		appCtx:   appCtx,
		protocol: matching.NewProtocol(repository.NewPairStore(appCtx.DB)),
		userRepo: repository.NewUserRepository(appCtx.DB),
		notifier: notifier,
	}
}

// Swipe records the caller's decision about targetId.
//
// Behavior:
//   - Body is validated before any storage access (400 on bad input).
//   - Like, reciprocal check and match insert run in one transaction.
//   - After commit the caller's deck and both like counters are invalidated,
//     and a new match is pushed to both users.
func (s *Service) Swipe(c *gin.Context) {
	var req SwipeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(svcErr.InvalidArgument(validation.Message(err)))
		return
	}

	me := middleware.CurrentUser(c)
	target := uint64(req.TargetID)
	ctx := c.Request.Context()

	s.appCtx.Logger.Debug("Swipe called", "actor", me.ID, "target", target, "liked", *req.DidLike)

	res, err := s.protocol.RecordLike(ctx, me.ID, target, *req.DidLike)
	if err != nil {
		_ = c.Error(err)
		return
	}

	s.afterSwipe(ctx, me.ID, target, res)

	resp := SwipeResponse{Matched: res.Matched, Swiped: true}
	if res.Matched {
		id := res.MatchID
		resp.MatchID = &id
	}
	c.JSON(200, resp)
}

func (s *Service) afterSwipe(ctx context.Context, actorID, targetID uint64, res matching.Result) {
	rc := s.appCtx.RedisCache
	if err := rc.InvalidateDeck(ctx, actorID); err != nil {
		s.appCtx.Logger.Warn("deck invalidation failed", "user_id", actorID, "err", err)
	}
	for _, id := range []uint64{actorID, targetID} {
		if err := rc.InvalidateLikeCount(ctx, id); err != nil {
			s.appCtx.Logger.Warn("like count invalidation failed", "user_id", id, "err", err)
		}
	}

	if res.NewMatch {
		s.appCtx.Logger.Info("match created", "match_id", res.MatchID, "user_a", actorID, "user_b", targetID)
		if s.notifier != nil {
			s.notifier.MatchCreated(res.MatchID, actorID, targetID)
		}
	}
}

// Matches lists the caller's matches, newest first.
func (s *Service) Matches(c *gin.Context) {
	me := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	matches, err := s.protocol.Matches(ctx, me.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	ids := make([]uint64, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.Other(me.ID))
	}
	users, err := s.userRepo.FindMany(ctx, ids)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := MatchesResponse{Matches: make([]MatchView, 0, len(matches))}
	for _, m := range matches {
		other := m.Other(me.ID)
		view := MatchView{
			ID:        m.ID,
			UserID:    strconv.FormatUint(other, 10),
			Name:      unknownUserName,
			CreatedAt: m.CreatedAt.UTC().Format(time.RFC3339Nano),
		}
		if u, ok := users[other]; ok {
			if u.Name != "" {
				view.Name = u.Name
			}
			view.AvatarURL = u.AvatarURL
		}
		resp.Matches = append(resp.Matches, view)
	}
	c.JSON(200, resp)
}
