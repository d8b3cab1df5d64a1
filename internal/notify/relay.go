package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/goccy/go-json"

	"github.com/oggyb/copal/internal/cache"
)

// Relay subscribes to the match channel and forwards each event to the
// local hub. Run one per process under the supervisor.
type Relay struct {
	cache   *cache.RedisCache
	channel string
	hub     UserNotifier
	logger  *slog.Logger
}

func NewRelay(rc *cache.RedisCache, channel string, hub UserNotifier, logger *slog.Logger) *Relay {
	return &Relay{
		cache:   rc,
		channel: channel,
		hub:     hub,
		logger:  logger.With("component", "match-relay"),
	}
}

// Serve implements suture.Service.
func (r *Relay) Serve(ctx context.Context) error {
	sub := r.cache.Subscribe(ctx, r.channel)
	defer sub.Close()

	// first reply confirms the subscription
	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.logger.Info("match relay subscribed", "channel", r.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return errors.New("match subscription closed")
			}
			r.handle(msg.Payload)
		}
	}
}

func (r *Relay) handle(payload string) {
	var ev MatchEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		r.logger.Warn("dropping malformed match event", "err", err)
		return
	}
	if ev.UserID1 == "" || ev.UserID2 == "" {
		r.logger.Warn("dropping match event without participants", "match_id", ev.MatchID)
		return
	}
	n := deliver(r.hub, ev)
	r.logger.Debug("match event relayed", "match_id", ev.MatchID, "connections", n)
}

func (r *Relay) String() string {
	return "match-relay"
}
