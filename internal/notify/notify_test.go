package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/copal/internal/cache"
	"github.com/oggyb/copal/internal/config"
	"github.com/oggyb/copal/internal/db"
	"github.com/oggyb/copal/internal/realtime"
)

type recordingHub struct {
	mu    sync.Mutex
	calls map[string][]realtime.Envelope
}

func newRecordingHub() *recordingHub {
	return &recordingHub{calls: map[string][]realtime.Envelope{}}
}

func (h *recordingHub) NotifyUser(userID string, env realtime.Envelope) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls[userID] = append(h.calls[userID], env)
	return 1
}

func (h *recordingHub) count(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls[userID])
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupRedis(t *testing.T) (*miniredis.Miniredis, *cache.RedisCache) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	rc := cache.NewRedisCache(cfg)
	t.Cleanup(func() { rc.Close() })
	return mr, rc
}

func testMatch() *db.Match {
	return &db.Match{ID: "m1", UserID1: "a", UserID2: "b", CreatedAt: time.Now().UTC()}
}

func TestLocal_DeliversToBothParticipants(t *testing.T) {
	hub := newRecordingHub()
	require.NoError(t, NewLocal(hub).NotifyMatch(context.Background(), testMatch()))

	assert.Equal(t, 1, hub.count("a"))
	assert.Equal(t, 1, hub.count("b"))
	env := hub.calls["a"][0]
	assert.Equal(t, realtime.TypeMatch, env.Type)
	assert.Equal(t, "m1", env.Data.(MatchEvent).MatchID)
}

func TestRelay_ForwardsPublishedMatches(t *testing.T) {
	_, rc := setupRedis(t)
	hub := newRecordingHub()
	relay := NewRelay(rc, "matches", hub, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Serve(ctx) }()

	pub := NewRedisPublisher(rc, "matches", DefaultBreakerConfig(), discardLogger())

	// publish until the relay's subscription is live
	require.Eventually(t, func() bool {
		_ = pub.NotifyMatch(ctx, testMatch())
		return hub.count("a") > 0
	}, 2*time.Second, 20*time.Millisecond)
	assert.Positive(t, hub.count("b"))

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestRelay_IgnoresMalformedPayload(t *testing.T) {
	hub := newRecordingHub()
	relay := NewRelay(nil, "matches", hub, discardLogger())

	relay.handle("not json")
	relay.handle(`{"matchId":"m1"}`)

	assert.Equal(t, 0, hub.count("a"))
	assert.Empty(t, hub.calls)
}

func TestRedisPublisher_BreakerOpensOnOutage(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	cfg := &config.Config{}
	cfg.Redis.Addr = mr.Addr()
	rc := cache.NewRedisCache(cfg)
	t.Cleanup(func() { rc.Close() })

	pub := NewRedisPublisher(rc, "matches", BreakerConfig{FailureThreshold: 2, Timeout: time.Minute, MaxRequests: 1}, discardLogger())

	require.NoError(t, pub.NotifyMatch(context.Background(), testMatch()))

	mr.Close()
	for i := 0; i < 2; i++ {
		require.Error(t, pub.NotifyMatch(context.Background(), testMatch()))
	}
	assert.Equal(t, "open", pub.State())

	err = pub.NotifyMatch(context.Background(), testMatch())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
}
