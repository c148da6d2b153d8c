package match

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/oggyb/tubematch/internal/validation"
)

// UserID accepts a user id as a JSON number or a decimal string.
type UserID uint64

func (id *UserID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}

	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return &validation.FieldError{Field: "targetId", Reason: "must be a user id"}
		}
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return &validation.FieldError{Field: "targetId", Reason: "must be a user id"}
	}
	*id = UserID(n)
	return nil
}

// SwipeRequest is the body of POST /swipe.
type SwipeRequest struct {
	TargetID UserID `json:"targetId" binding:"required"`
	DidLike  *bool  `json:"didLike" binding:"required"`
}

type SwipeResponse struct {
	Matched bool    `json:"matched"`
	MatchID *string `json:"matchId"`
	Swiped  bool    `json:"swiped"`
}

type MatchView struct {
	ID        string `json:"id"`
	UserID    string `json:"userId"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	CreatedAt string `json:"created_at"`
}

type MatchesResponse struct {
	Matches []MatchView `json:"matches"`
}
