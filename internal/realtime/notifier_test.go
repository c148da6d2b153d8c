package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oggyb/tubematch/internal/logger"
)

type sent struct {
	room  string
	event string
	arg   interface{}
}

type recordingBroadcaster struct {
	mu   sync.Mutex
	sent []sent
}

func (r *recordingBroadcaster) BroadcastToRoom(_ string, room, event string, args ...interface{}) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{room: room, event: event, arg: args[0]})
	return true
}

func TestMatchCreated_NotifiesBothUsers(t *testing.T) {
	rec := &recordingBroadcaster{}
	NewNotifier(rec, logger.Discard()).MatchCreated("m-1", 1, 2)

	assert.Equal(t, []sent{
		{room: "user:1", event: "match", arg: MatchEvent{MatchID: "m-1", UserID: "2"}},
		{room: "user:2", event: "match", arg: MatchEvent{MatchID: "m-1", UserID: "1"}},
	}, rec.sent)
}

func TestMatchCreated_NilNotifierIsNoop(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() { n.MatchCreated("m-1", 1, 2) })
}
