// Package realtime pushes match events to connected socket.io clients.
package realtime

import (
	"fmt"
	"log/slog"
	"strconv"

	socketio "github.com/googollee/go-socket.io"

	"github.com/oggyb/tubematch/internal/session"
)

const (
	namespace  = "/"
	EventMatch = "match"
)

// Broadcaster is the part of *socketio.Server the notifier needs.
type Broadcaster interface {
	BroadcastToRoom(namespace string, room, event string, args ...interface{}) bool
}

// TokenParser validates the bearer token a client connects with.
type TokenParser interface {
	ParseToken(raw string) (session.Identity, error)
}

// MatchEvent is the payload of the "match" event.
type MatchEvent struct {
	MatchID string `json:"matchId"`
	UserID  string `json:"userId"`
}

// Room is the per-user room every authenticated socket joins.
func Room(userID uint64) string {
	return fmt.Sprintf("user:%d", userID)
}

// NewServer builds the socket.io server. Clients connect with
// /socket.io/?token=<jwt> and land in their own user room.
func NewServer(tokens TokenParser, log *slog.Logger) *socketio.Server {
	server := socketio.NewServer(nil)

	server.OnConnect(namespace, func(c socketio.Conn) error {
		u := c.URL()
		id, err := tokens.ParseToken(u.Query().Get("token"))
		if err != nil {
			log.Debug("socket rejected", "remote", c.RemoteAddr(), "err", err)
			return err
		}
		c.SetContext(id)
		c.Join(Room(id.UserID))
		log.Debug("socket connected", "socket_id", c.ID(), "user_id", id.UserID)
		return nil
	})

	server.OnError(namespace, func(c socketio.Conn, err error) {
		log.Debug("socket error", "err", err)
	})

	server.OnDisconnect(namespace, func(c socketio.Conn, reason string) {
		log.Debug("socket disconnected", "socket_id", c.ID(), "reason", reason)
	})

	return server
}

type Notifier struct {
	b   Broadcaster
	log *slog.Logger
}

func NewNotifier(b Broadcaster, log *slog.Logger) *Notifier {
	return &Notifier{b: b, log: log}
}

// MatchCreated tells both users who they matched with. Delivery is best
// effort: users that are offline see the match on their next GET /matches.
func (n *Notifier) MatchCreated(matchID string, a, b uint64) {
	if n == nil || n.b == nil {
		return
	}
	n.emit(a, MatchEvent{MatchID: matchID, UserID: strconv.FormatUint(b, 10)})
	n.emit(b, MatchEvent{MatchID: matchID, UserID: strconv.FormatUint(a, 10)})
}

func (n *Notifier) emit(to uint64, ev MatchEvent) {
	if !n.b.BroadcastToRoom(namespace, Room(to), EventMatch, ev) {
		n.log.Debug("no socket namespace to notify", "user_id", to)
	}
}
