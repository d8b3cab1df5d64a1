// Package notify tells both participants of a new match, either in-process
// or across processes through Redis pub/sub.
package notify

import (
	"time"

	"github.com/oggyb/copal/internal/db"
	"github.com/oggyb/copal/internal/realtime"
)

// MatchEvent is the payload of a MATCH envelope and of the Redis message.
type MatchEvent struct {
	MatchID   string    `json:"matchId"`
	UserID1   string    `json:"userId1"`
	UserID2   string    `json:"userId2"`
	CreatedAt time.Time `json:"createdAt"`
}

func EventFromMatch(m *db.Match) MatchEvent {
	return MatchEvent{
		MatchID:   m.ID,
		UserID1:   m.UserID1,
		UserID2:   m.UserID2,
		CreatedAt: m.CreatedAt,
	}
}

// UserNotifier reaches a user's live connections. *realtime.Hub satisfies it.
type UserNotifier interface {
	NotifyUser(userID string, env realtime.Envelope) int
}

// deliver pushes ev to both participants and returns the number of
// connections reached.
func deliver(hub UserNotifier, ev MatchEvent) int {
	env := realtime.Envelope{Type: realtime.TypeMatch, Message: "It's a match!", Data: ev}
	return hub.NotifyUser(ev.UserID1, env) + hub.NotifyUser(ev.UserID2, env)
}
