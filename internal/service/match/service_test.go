package match_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/tubematch/internal/app/apptest"
	"github.com/oggyb/tubematch/internal/db"
	"github.com/oggyb/tubematch/internal/repository"
	"github.com/oggyb/tubematch/internal/server"
	"github.com/oggyb/tubematch/internal/service/match"
	"github.com/oggyb/tubematch/internal/session"
)

//
// Test helpers
//

type recordedMatch struct {
	id   string
	a, b uint64
}

type fakeNotifier struct {
	mu    sync.Mutex
	calls []recordedMatch
}

func (f *fakeNotifier) MatchCreated(matchID string, a, b uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, recordedMatch{matchID, a, b})
}

type harness struct {
	env      *apptest.Env
	router   http.Handler
	sessions *session.Manager
	notifier *fakeNotifier
	alice    db.User
	bob      db.User
}

// setup wires the match service into the real router, with alice (1) and
// bob (2) signed up.
func setup(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := apptest.New(t)
	sessions, err := session.NewManager(env.App.Config.Auth)
	require.NoError(t, err)

	h := &harness{
		env:      env,
		sessions: sessions,
		notifier: &fakeNotifier{},
		alice:    env.User(t, 1, "alice"),
		bob:      env.User(t, 2, "bob"),
	}
	h.router = server.NewRouter(
		env.App,
		sessions,
		repository.NewUserRepository(env.App.DB),
		nil,
		match.NewRegistrar(env.App, h.notifier),
	)
	return h
}

func (h *harness) do(t *testing.T, as *db.User, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		token, _, err := h.sessions.IssueToken(session.Identity{UserID: as.ID, GoogleID: as.GoogleID})
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

//
// Tests
//

// TestSwipe_AliceAndBob walks the two-user scenario end to end.
func TestSwipe_AliceAndBob(t *testing.T) {
	h := setup(t)

	// alice likes bob: no match yet
	w := h.do(t, &h.alice, http.MethodPost, "/swipe", `{"targetId":"2","didLike":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"matched":false,"matchId":null,"swiped":true}`, w.Body.String())

	// bob likes alice back, target given as a number
	w = h.do(t, &h.bob, http.MethodPost, "/swipe", `{"targetId":1,"didLike":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[match.SwipeResponse](t, w)
	assert.True(t, resp.Matched)
	require.NotNil(t, resp.MatchID)

	var count int64
	require.NoError(t, h.env.App.DB.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	require.Len(t, h.notifier.calls, 1)
	assert.Equal(t, *resp.MatchID, h.notifier.calls[0].id)

	// both sides see the match
	for _, pair := range []struct {
		as    *db.User
		other string
		name  string
	}{
		{&h.alice, "2", "bob"},
		{&h.bob, "1", "alice"},
	} {
		w = h.do(t, pair.as, http.MethodGet, "/matches", "")
		require.Equal(t, http.StatusOK, w.Code)
		list := decode[match.MatchesResponse](t, w)
		require.Len(t, list.Matches, 1)
		assert.Equal(t, *resp.MatchID, list.Matches[0].ID)
		assert.Equal(t, pair.other, list.Matches[0].UserID)
		assert.Equal(t, pair.name, list.Matches[0].Name)
	}

	// a repeat like keeps the one match and does not notify again
	w = h.do(t, &h.alice, http.MethodPost, "/swipe", `{"targetId":2,"didLike":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	again := decode[match.SwipeResponse](t, w)
	assert.True(t, again.Matched)
	assert.Equal(t, *resp.MatchID, *again.MatchID)
	assert.Len(t, h.notifier.calls, 1)

	// a later pass does not unmatch
	w = h.do(t, &h.alice, http.MethodPost, "/swipe", `{"targetId":2,"didLike":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"matched":false,"matchId":null,"swiped":true}`, w.Body.String())

	w = h.do(t, &h.bob, http.MethodGet, "/matches", "")
	assert.Len(t, decode[match.MatchesResponse](t, w).Matches, 1)
}

func TestSwipe_Errors(t *testing.T) {
	h := setup(t)

	cases := []struct {
		name string
		as   *db.User
		body string
		code int
	}{
		{"unauthenticated", nil, `{"targetId":2,"didLike":true}`, http.StatusUnauthorized},
		{"missing target", &h.alice, `{"didLike":true}`, http.StatusBadRequest},
		{"malformed target", &h.alice, `{"targetId":"bob","didLike":true}`, http.StatusBadRequest},
		{"missing like flag", &h.alice, `{"targetId":2}`, http.StatusBadRequest},
		{"wrong like flag type", &h.alice, `{"targetId":2,"didLike":"yes"}`, http.StatusBadRequest},
		{"self like", &h.alice, `{"targetId":1,"didLike":true}`, http.StatusBadRequest},
		{"unknown target", &h.alice, `{"targetId":99,"didLike":true}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := h.do(t, tc.as, http.MethodPost, "/swipe", tc.body)
			assert.Equal(t, tc.code, w.Code, w.Body.String())

			body := decode[map[string]any](t, w)
			assert.NotEmpty(t, body["error"])
			assert.NotEmpty(t, body["request_id"])
		})
	}

	var likes int64
	require.NoError(t, h.env.App.DB.Model(&db.Like{}).Count(&likes).Error)
	assert.Zero(t, likes, "rejected swipes must not write the ledger")
}

func TestSwipe_UnknownCallerIsNotFound(t *testing.T) {
	h := setup(t)
	ghost := db.User{ID: 7, GoogleID: "google-7"}

	w := h.do(t, &ghost, http.MethodPost, "/swipe", `{"targetId":2,"didLike":true}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSwipe_InvalidatesCaches(t *testing.T) {
	h := setup(t)
	mr := h.env.Redis
	mr.Set("likes:count:1", "5")
	mr.Set("likes:count:2", "5")

	w := h.do(t, &h.alice, http.MethodPost, "/swipe", `{"targetId":2,"didLike":true}`)
	require.Equal(t, http.StatusOK, w.Code)

	assert.False(t, mr.Exists("likes:count:1"))
	assert.False(t, mr.Exists("likes:count:2"))
	v, err := mr.Get("deck:ver:1")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

func TestMatches_UnknownUserFallback(t *testing.T) {
	h := setup(t)
	carol := h.env.User(t, 3, "")

	h.do(t, &carol, http.MethodPost, "/swipe", `{"targetId":1,"didLike":true}`)
	w := h.do(t, &h.alice, http.MethodPost, "/swipe", `{"targetId":3,"didLike":true}`)
	require.True(t, decode[match.SwipeResponse](t, w).Matched)

	w = h.do(t, &h.alice, http.MethodGet, "/matches", "")
	list := decode[match.MatchesResponse](t, w)
	require.Len(t, list.Matches, 1)
	assert.Equal(t, "Unknown User", list.Matches[0].Name)
	assert.Equal(t, "3", list.Matches[0].UserID)
}
