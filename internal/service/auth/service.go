// Package auth signs users in with Google and hands out API tokens.
package auth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/oggyb/tubematch/internal/app"
	"github.com/oggyb/tubematch/internal/db"
	svcErr "github.com/oggyb/tubematch/internal/errors"
	"github.com/oggyb/tubematch/internal/identity"
	"github.com/oggyb/tubematch/internal/repository"
	"github.com/oggyb/tubematch/internal/server/middleware"
	"github.com/oggyb/tubematch/internal/session"
)

// Provider is the Google side of the login.
type Provider interface {
	Configured() bool
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	UserInfo(ctx context.Context, tok *oauth2.Token) (identity.UserInfo, error)
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type Service struct {
	appCtx    *app.AppContext
	provider  Provider
	sessions  *session.Manager
	userRepo  *repository.UserRepository
	tokenRepo *repository.TokenRepository
}

func NewService(appCtx *app.AppContext, provider Provider, sessions *session.Manager) *Service {
	return &Service{
		appCtx:    appCtx,
		provider:  provider,
		sessions:  sessions,
		userRepo:  repository.NewUserRepository(appCtx.DB),
		tokenRepo: repository.NewTokenRepository(appCtx.DB),
	}
}

// Login sends the browser to Google's consent page.
func (s *Service) Login(c *gin.Context) {
	if !s.provider.Configured() {
		_ = c.Error(identity.ErrNotConfigured)
		return
	}

	state := uuid.NewString()
	if err := s.sessions.SetState(c.Writer, c.Request, state); err != nil {
		_ = c.Error(err)
		return
	}
	c.Redirect(http.StatusTemporaryRedirect, s.provider.AuthCodeURL(state))
}

// Callback finishes the OAuth dance.
//
// Behavior:
//   - The state must match the one stored by Login.
//   - The user row is created on first login and refreshed afterwards.
//   - Google tokens are stored for later activity reads.
//   - The session cookie is set and the browser goes back to the frontend.
func (s *Service) Callback(c *gin.Context) {
	ctx := c.Request.Context()

	if reason := c.Query("error"); reason != "" {
		s.appCtx.Logger.Info("google consent declined", "reason", reason)
		_ = c.Error(svcErr.Unauthorized("google sign-in was not completed"))
		return
	}
	code := c.Query("code")
	if code == "" {
		_ = c.Error(svcErr.InvalidArgument("code is required"))
		return
	}
	if !s.sessions.CheckState(c.Request, c.Query("state")) {
		_ = c.Error(svcErr.InvalidArgument("invalid oauth state"))
		return
	}

	tok, err := s.provider.Exchange(ctx, code)
	if err != nil {
		_ = c.Error(upstream("google sign-in failed", err))
		return
	}
	info, err := s.provider.UserInfo(ctx, tok)
	if err != nil {
		_ = c.Error(svcErr.BadGateway("could not read your google account", err))
		return
	}

	u, err := s.userRepo.UpsertByGoogleID(ctx, db.User{
		GoogleID:  info.GoogleID,
		Email:     info.Email,
		Name:      info.Name,
		AvatarURL: info.Picture,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	if err := s.tokenRepo.Save(ctx, u.ID, tok); err != nil {
		_ = c.Error(err)
		return
	}

	if err := s.sessions.Login(c.Writer, c.Request, session.Identity{UserID: u.ID, GoogleID: u.GoogleID}); err != nil {
		_ = c.Error(err)
		return
	}

	s.appCtx.Logger.Info("user signed in", "user_id", u.ID)
	c.Redirect(http.StatusTemporaryRedirect, s.frontendURL())
}

// Token issues a bearer token for the signed-in caller.
func (s *Service) Token(c *gin.Context) {
	me := middleware.CurrentUser(c)

	token, exp, err := s.sessions.IssueToken(session.Identity{UserID: me.ID, GoogleID: me.GoogleID})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, TokenResponse{Token: token, ExpiresAt: exp})
}

// Logout clears the session cookie. Bearer tokens simply expire.
func (s *Service) Logout(c *gin.Context) {
	if err := s.sessions.Logout(c.Writer, c.Request); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Service) frontendURL() string {
	if s.appCtx.Config == nil || s.appCtx.Config.Auth.FrontendURL == "" {
		return "/"
	}
	return s.appCtx.Config.Auth.FrontendURL
}

func upstream(msg string, err error) error {
	if errors.Is(err, identity.ErrNotConfigured) {
		return err
	}
	return svcErr.BadGateway(msg, err)
}
