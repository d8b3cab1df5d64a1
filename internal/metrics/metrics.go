// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Interaction ledger
	LikesRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "copal_likes_recorded_total",
			Help: "Likes newly stored (repeats excluded)",
		},
	)

	PassesRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "copal_passes_recorded_total",
			Help: "Passes newly stored (repeats excluded)",
		},
	)

	MatchesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "copal_matches_created_total",
			Help: "Match rows created by mutual likes",
		},
	)

	MatchNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copal_match_notifications_total",
			Help: "Match notifications by outcome",
		},
		[]string{"result"},
	)

	// Realtime
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "copal_ws_connections",
			Help: "Currently open realtime connections",
		},
	)

	WSTopics = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "copal_ws_topics",
			Help: "Conversation topics with at least one subscriber",
		},
	)

	WSMessagesPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "copal_ws_messages_published_total",
			Help: "Chat messages fanned out to a topic",
		},
	)

	WSDeliveriesDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "copal_ws_deliveries_dropped_total",
			Help: "Frames dropped because a connection's send queue was full or closed",
		},
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "copal_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "copal_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "route"},
	)
)

// RecordAPIRequest records one finished HTTP request.
func RecordAPIRequest(method, route, statusCode string, d time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
