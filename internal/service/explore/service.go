package explore

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oggyb/tubematch/internal/app"
	svcErr "github.com/oggyb/tubematch/internal/errors"
	"github.com/oggyb/tubematch/internal/repository"
	"github.com/oggyb/tubematch/internal/server/middleware"
)

// Service implements the Explore API: the candidate deck and the
// "who liked me" listings.
// It contains the business logic on top of repository and cache layers.
type Service struct {
	appCtx        *app.AppContext
	likeRepo      *repository.LikeRepository
	candidateRepo *repository.CandidateRepository
}

// NewExploreService creates a new Explore service with dependencies from AppContext.
// Dependencies include:
//   - DB connection (via LikeRepository and CandidateRepository)
//   - RedisCache for deck pages and like counters
func NewExploreService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:        appCtx,
		likeRepo:      repository.NewLikeRepository(appCtx.DB),
		candidateRepo: repository.NewCandidateRepository(appCtx.DB),
	}
}

// Deck returns the caller's candidates, most similar first.
//
// Behavior:
//   - limit defaults to the configured deck size and is capped at the max.
//   - offset below zero is treated as zero.
//   - Pages are cached per user and dropped whenever the user swipes.
//
// Example:
//
//	GET /deck?limit=10&offset=20
func (s *Service) Deck(c *gin.Context) {
	me := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	limit, offset, err := s.window(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	s.appCtx.Logger.Debug("Deck called", "user", me.ID, "limit", limit, "offset", offset)

	if page, ok, err := s.appCtx.RedisCache.GetDeckPage(ctx, me.ID, limit, offset); err == nil && ok {
		c.Data(http.StatusOK, "application/json; charset=utf-8", page)
		return
	}

	candidates, err := s.candidateRepo.Rank(ctx, me.ID, limit, offset)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := DeckResponse{Candidates: make([]CandidateView, 0, len(candidates))}
	for _, cand := range candidates {
		resp.Candidates = append(resp.Candidates, toCandidateView(cand))
	}

	page, err := json.Marshal(resp)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := s.appCtx.RedisCache.SetDeckPage(ctx, me.ID, limit, offset, page, s.appCtx.Config.Deck.CacheTTL); err != nil {
		s.appCtx.Logger.Warn("deck cache write failed", "user", me.ID, "err", err)
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", page)
}

func (s *Service) window(c *gin.Context) (limit, offset int, err error) {
	deck := s.appCtx.Config.Deck

	limit = deck.DefaultLimit
	if raw := c.Query("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			return 0, 0, svcErr.InvalidArgument("limit must be an integer")
		}
	}
	if limit <= 0 {
		limit = deck.DefaultLimit
	}
	if deck.MaxLimit > 0 && limit > deck.MaxLimit {
		limit = deck.MaxLimit
	}

	if raw := c.Query("offset"); raw != "" {
		if offset, err = strconv.Atoi(raw); err != nil {
			return 0, 0, svcErr.InvalidArgument("offset must be an integer")
		}
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset, nil
}

// ListLikedYou returns all users who liked the caller.
//
// Behavior:
//   - Excludes users that the caller explicitly passed.
//   - Supports cursor-based pagination with pagination_token.
//   - Returns actor_id + timestamp pairs.
//
// Example:
//
//	GET /likes?pagination_token=eyJ...
func (s *Service) ListLikedYou(c *gin.Context) {
	me := middleware.CurrentUser(c)

	s.appCtx.Logger.Debug("ListLikedYou called", "recipient", me.ID, "token", c.Query("pagination_token"))

	likes, nextToken, err := s.likeRepo.GetLikers(c.Request.Context(), me.ID, tokenParam(c), repository.DefaultPageSize)
	if err != nil {
		_ = c.Error(err)
		return
	}

	resp := likersResponse(likes, nextToken)
	s.appCtx.Logger.Debug("ListLikedYou result", "liker_count", len(resp.Likers), "next_token", nextToken != nil)

	c.JSON(http.StatusOK, resp)
}

// ListNewLikedYou returns all users who liked the caller but have not been liked back.
//
// Behavior:
//   - Same as ListLikedYou, minus mutual likes.
func (s *Service) ListNewLikedYou(c *gin.Context) {
	me := middleware.CurrentUser(c)

	s.appCtx.Logger.Debug("ListNewLikedYou called", "recipient", me.ID)

	likes, nextToken, err := s.likeRepo.GetNewLikers(c.Request.Context(), me.ID, tokenParam(c), repository.DefaultPageSize)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusOK, likersResponse(likes, nextToken))
}

// CountLikedYou returns how many users liked the caller.
// Cache-first strategy:
//  1. Attempts to read from Redis (likes:count:userID), refreshing its TTL.
//  2. On cache miss or error, falls back to DB via repository.CountLikers.
//  3. On DB fetch, updates Redis with a 1h TTL.
func (s *Service) CountLikedYou(c *gin.Context) {
	me := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	s.appCtx.Logger.Debug("CountLikedYou called", "recipient", me.ID)

	// try cache first
	if n, ok, err := s.appCtx.RedisCache.GetLikeCount(ctx, me.ID); err == nil && ok {
		c.JSON(http.StatusOK, CountResponse{Count: uint64(n)})
		return
	}

	// fallback: DB
	count, err := s.likeRepo.CountLikers(ctx, me.ID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := s.appCtx.RedisCache.SetLikeCount(ctx, me.ID, count); err != nil {
		s.appCtx.Logger.Warn("like count cache write failed", "user", me.ID, "err", err)
	}

	c.JSON(http.StatusOK, CountResponse{Count: uint64(count)})
}

func tokenParam(c *gin.Context) *string {
	if tok, ok := c.GetQuery("pagination_token"); ok && tok != "" {
		return &tok
	}
	return nil
}
