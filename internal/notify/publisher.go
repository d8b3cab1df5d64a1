package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/oggyb/copal/internal/cache"
	"github.com/oggyb/copal/internal/db"
	"github.com/oggyb/copal/internal/metrics"
)

// BreakerConfig controls when publishing stops trying Redis.
type BreakerConfig struct {
	FailureThreshold uint32
	Timeout          time.Duration
	MaxRequests      uint32
}

func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 5,
		Timeout:          30 * time.Second,
		MaxRequests:      1,
	}
}

// RedisPublisher publishes match events to a Redis channel. Publishing sits
// behind a circuit breaker so a Redis outage fails fast instead of stalling
// every like request.
type RedisPublisher struct {
	cache   *cache.RedisCache
	channel string
	cb      *gobreaker.CircuitBreaker[int64]
	logger  *slog.Logger
}

func NewRedisPublisher(rc *cache.RedisCache, channel string, cfg BreakerConfig, logger *slog.Logger) *RedisPublisher {
	p := &RedisPublisher{
		cache:   rc,
		channel: channel,
		logger:  logger.With("component", "match-publisher"),
	}
	p.cb = gobreaker.NewCircuitBreaker[int64](gobreaker.Settings{
		Name:        "match-publisher",
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			p.logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return p
}

// NotifyMatch implements interaction.Notifier.
func (p *RedisPublisher) NotifyMatch(ctx context.Context, m *db.Match) error {
	payload, err := json.Marshal(EventFromMatch(m))
	if err != nil {
		return fmt.Errorf("encode match event: %w", err)
	}

	receivers, err := p.cb.Execute(func() (int64, error) {
		return p.cache.Publish(ctx, p.channel, payload)
	})
	if err != nil {
		result := "failed"
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			result = "rejected"
		}
		metrics.MatchNotifications.WithLabelValues(result).Inc()
		return fmt.Errorf("publish match %s: %w", m.ID, err)
	}

	metrics.MatchNotifications.WithLabelValues("published").Inc()
	p.logger.Debug("match published", "match_id", m.ID, "receivers", receivers)
	return nil
}

// State reports the breaker state for health output.
func (p *RedisPublisher) State() string {
	return p.cb.State().String()
}
