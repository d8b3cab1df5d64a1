package notify

import (
	"context"

	"github.com/oggyb/copal/internal/db"
	"github.com/oggyb/copal/internal/metrics"
)

// Local delivers match events straight to the in-process hub. Used when
// Redis is not configured.
type Local struct {
	hub UserNotifier
}

func NewLocal(hub UserNotifier) *Local {
	return &Local{hub: hub}
}

func (l *Local) NotifyMatch(_ context.Context, m *db.Match) error {
	deliver(l.hub, EventFromMatch(m))
	metrics.MatchNotifications.WithLabelValues("delivered").Inc()
	return nil
}
