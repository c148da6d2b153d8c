// Package session keeps track of who is calling: a signed cookie for the
// browser and HS256 bearer tokens for API and socket clients.
package session

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/hkdf"

	"github.com/oggyb/tubematch/internal/config"
)

const (
	cookieName = "tubematch_session"

	keyUserID   = "uid"
	keyGoogleID = "gid"
	keyState    = "oauth_state"
)

var (
	ErrNoSession    = errors.New("no session")
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the authenticated caller.
type Identity struct {
	UserID   uint64
	GoogleID string
}

// Claims is the bearer token payload. The subject is the Google id.
type Claims struct {
	UserID uint64 `json:"uid"`
	jwt.RegisteredClaims
}

type Manager struct {
	store    *sessions.CookieStore
	tokenKey []byte
	tokenTTL time.Duration
	now      func() time.Time
}

// NewManager derives independent cookie and token keys from one secret.
func NewManager(cfg config.AuthConfig) (*Manager, error) {
	if cfg.SessionSecret == "" {
		return nil, errors.New("session secret is empty")
	}
	hashKey, err := derive(cfg.SessionSecret, "cookie-hash", 64)
	if err != nil {
		return nil, err
	}
	blockKey, err := derive(cfg.SessionSecret, "cookie-block", 32)
	if err != nil {
		return nil, err
	}
	tokenKey, err := derive(cfg.SessionSecret, "bearer-token", 32)
	if err != nil {
		return nil, err
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	store := sessions.NewCookieStore(hashKey, blockKey)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: store, tokenKey: tokenKey, tokenTTL: ttl, now: time.Now}, nil
}

func derive(secret, info string, n int) ([]byte, error) {
	key := make([]byte, n)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte("tubematch "+info)), key); err != nil {
		return nil, fmt.Errorf("derive %s key: %w", info, err)
	}
	return key, nil
}

// Login stores id in the session cookie.
func (m *Manager) Login(w http.ResponseWriter, r *http.Request, id Identity) error {
	s, _ := m.store.Get(r, cookieName)
	s.Values[keyUserID] = strconv.FormatUint(id.UserID, 10)
	s.Values[keyGoogleID] = id.GoogleID
	delete(s.Values, keyState)
	return s.Save(r, w)
}

// Logout expires the session cookie.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	s, _ := m.store.Get(r, cookieName)
	s.Values = map[interface{}]interface{}{}
	s.Options.MaxAge = -1
	return s.Save(r, w)
}

// FromCookie returns the identity stored in the request's session cookie.
func (m *Manager) FromCookie(r *http.Request) (Identity, error) {
	s, err := m.store.Get(r, cookieName)
	if err != nil || s.IsNew {
		return Identity{}, ErrNoSession
	}
	raw, _ := s.Values[keyUserID].(string)
	gid, _ := s.Values[keyGoogleID].(string)
	uid, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || gid == "" {
		return Identity{}, ErrNoSession
	}
	return Identity{UserID: uid, GoogleID: gid}, nil
}

// SetState remembers the OAuth state parameter for the callback.
func (m *Manager) SetState(w http.ResponseWriter, r *http.Request, state string) error {
	s, _ := m.store.Get(r, cookieName)
	s.Values[keyState] = state
	return s.Save(r, w)
}

// CheckState reports whether state matches the one set before the redirect.
func (m *Manager) CheckState(r *http.Request, state string) bool {
	s, err := m.store.Get(r, cookieName)
	if err != nil {
		return false
	}
	want, _ := s.Values[keyState].(string)
	return want != "" && want == state
}

// IssueToken signs a bearer token for id.
func (m *Manager) IssueToken(id Identity) (string, time.Time, error) {
	now := m.now()
	exp := now.Add(m.tokenTTL)
	claims := Claims{
		UserID: id.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.GoogleID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.tokenKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// ParseToken validates a bearer token and returns its identity.
func (m *Manager) ParseToken(raw string) (Identity, error) {
	var claims Claims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return m.tokenKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !tok.Valid || claims.Subject == "" || claims.UserID == 0 {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: claims.UserID, GoogleID: claims.Subject}, nil
}

// FromRequest accepts "Authorization: Bearer <jwt>" first, then the cookie.
func (m *Manager) FromRequest(r *http.Request) (Identity, error) {
	if h := r.Header.Get("Authorization"); h != "" {
		const prefix = "Bearer "
		if len(h) <= len(prefix) || h[:len(prefix)] != prefix {
			return Identity{}, ErrInvalidToken
		}
		return m.ParseToken(h[len(prefix):])
	}
	return m.FromCookie(r)
}
