package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrInvalidToken is returned for tokens that were not produced by Encode.
var ErrInvalidToken = errors.New("invalid pagination token")

// Cursor marks the last like a page ended on.
// Likes are listed by (updated_at DESC, actor_id DESC), so the pair is a stable position.
type Cursor struct {
	ActorID     uint64 `json:"actor_id"`
	UpdatedUnix int64  `json:"updated_unix,omitempty"`
}

// After builds the cursor for the given row.
func After(actorID uint64, updatedAt time.Time) Cursor {
	return Cursor{ActorID: actorID, UpdatedUnix: updatedAt.UnixMilli()}
}

// IsZero reports whether c points at the first page.
func (c Cursor) IsZero() bool {
	return c.ActorID == 0 || c.UpdatedUnix == 0
}

// UpdatedAt returns the cursor timestamp in UTC.
func (c Cursor) UpdatedAt() time.Time {
	return time.UnixMilli(c.UpdatedUnix).UTC()
}

// Encode converts a Cursor into an opaque URL-safe token.
func Encode(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode parses a token produced by Encode.
// Empty token → zero cursor (first page).
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidToken
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, ErrInvalidToken
	}
	return c, nil
}
