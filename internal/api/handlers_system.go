package api

import (
	"context"
	"net/http"
	"time"

	"github.com/oggyb/copal/internal/db"
)

type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Redis       string `json:"redis"`
	Connections int    `json:"connections"`
}

// Health handles GET /healthz. The database is required; Redis is
// reported but optional.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Database: "ok", Redis: "disabled"}
	if h.hub != nil {
		resp.Connections = h.hub.Registry().ConnCount()
	}

	sqlDB, err := h.appCtx.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		resp.Status, resp.Database = "degraded", "down"
	}

	if rc := h.appCtx.RedisCache; rc != nil {
		resp.Redis = "ok"
		if err := rc.Ping(ctx); err != nil {
			resp.Redis = "down"
		}
	}

	status := http.StatusOK
	if resp.Database != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// SeedTestUsers handles POST /api/test-data/users. Only routed in
// development. ?minimal=true loads the three-user fixture instead.
func (h *Handler) SeedTestUsers(w http.ResponseWriter, r *http.Request) {
	seed := db.SeedTestData
	if r.URL.Query().Get("minimal") == "true" {
		seed = db.SeedMinimalTestData
	}
	if err := seed(h.appCtx.DB.WithContext(r.Context())); err != nil {
		h.appCtx.Logger.Error("seeding test data failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Test data created"})
}
