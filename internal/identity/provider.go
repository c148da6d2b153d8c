// Package identity signs users in with Google and keeps their API access alive.
package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	oauth2api "google.golang.org/api/oauth2/v2"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/oggyb/tubematch/internal/config"
)

// ErrNotConfigured is returned when Google client credentials are missing.
var ErrNotConfigured = errors.New("google sign-in is not configured")

// Scopes requested at consent. The read-only YouTube and Gmail scopes feed
// profile generation.
var Scopes = []string{
	oauth2api.OpenIDScope,
	oauth2api.UserinfoEmailScope,
	oauth2api.UserinfoProfileScope,
	youtube.YoutubeReadonlyScope,
	gmail.GmailReadonlyScope,
}

// TokenStore persists provider tokens per user.
type TokenStore interface {
	Save(ctx context.Context, userID uint64, tok *oauth2.Token) error
	Get(ctx context.Context, userID uint64) (*oauth2.Token, error)
}

// UserInfo is the Google account behind a login.
type UserInfo struct {
	GoogleID string
	Email    string
	Name     string
	Picture  string
}

type Provider struct {
	oauth  *oauth2.Config
	tokens TokenStore
	log    *slog.Logger
	// extra options for Google API clients, used to point them at test servers
	apiOptions []option.ClientOption
}

// NewProvider builds the Google OAuth client. Extra API options are appended
// to every Google API client it creates.
func NewProvider(cfg config.AuthConfig, tokens TokenStore, log *slog.Logger, apiOptions ...option.ClientOption) *Provider {
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			Scopes:       Scopes,
			Endpoint:     google.Endpoint,
		},
		tokens:     tokens,
		log:        log,
		apiOptions: apiOptions,
	}
}

// Configured reports whether client credentials are present.
func (p *Provider) Configured() bool {
	return p.oauth.ClientID != "" && p.oauth.ClientSecret != ""
}

// AuthCodeURL is the consent page URL. Offline access with forced approval
// makes Google hand out a refresh token every time.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades the callback code for tokens.
func (p *Provider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if !p.Configured() {
		return nil, ErrNotConfigured
	}
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	return tok, nil
}

// UserInfo fetches the account the token belongs to.
func (p *Provider) UserInfo(ctx context.Context, tok *oauth2.Token) (UserInfo, error) {
	opts := append([]option.ClientOption{option.WithTokenSource(p.oauth.TokenSource(ctx, tok))}, p.apiOptions...)
	svc, err := oauth2api.NewService(ctx, opts...)
	if err != nil {
		return UserInfo{}, fmt.Errorf("userinfo client: %w", err)
	}
	info, err := svc.Userinfo.Get().Context(ctx).Do()
	if err != nil {
		return UserInfo{}, fmt.Errorf("fetch userinfo: %w", err)
	}
	if info.Id == "" {
		return UserInfo{}, errors.New("userinfo has no subject")
	}
	return UserInfo{GoogleID: info.Id, Email: info.Email, Name: info.Name, Picture: info.Picture}, nil
}

// ClientOptions returns Google API options authenticated as userID.
func (p *Provider) ClientOptions(ctx context.Context, userID uint64) ([]option.ClientOption, error) {
	src, err := p.TokenSource(ctx, userID)
	if err != nil {
		return nil, err
	}
	return append([]option.ClientOption{option.WithTokenSource(src)}, p.apiOptions...), nil
}

// TokenSource yields userID's access tokens, refreshing them on demand and
// saving rotated tokens back to the store.
func (p *Provider) TokenSource(ctx context.Context, userID uint64) (oauth2.TokenSource, error) {
	tok, err := p.tokens.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load token: %w", err)
	}
	return &persistingSource{
		base: p.oauth.TokenSource(context.WithoutCancel(ctx), tok),
		last: tok.AccessToken,
		save: func(t *oauth2.Token) error {
			return p.tokens.Save(context.WithoutCancel(ctx), userID, t)
		},
		log: p.log.With("user_id", userID),
	}, nil
}

// persistingSource saves every token it has not seen before.
type persistingSource struct {
	base oauth2.TokenSource
	save func(*oauth2.Token) error
	log  *slog.Logger

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	t, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.AccessToken != s.last {
		if err := s.save(t); err != nil {
			s.log.Warn("failed to persist refreshed token", "err", err)
		} else {
			s.last = t.AccessToken
		}
	}
	return t, nil
}
