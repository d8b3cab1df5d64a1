package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oggyb/copal/internal/middleware"
)

// NewRouter wires every route onto a chi mux.
func NewRouter(h *Handler) http.Handler {
	cfg := h.appCtx.Config
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID(h.appCtx.Logger))
	r.Use(middleware.Logging(h.appCtx.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	}))
	r.Use(middleware.PrometheusMetrics)

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/ws/chat", h.ChatSocket)

	r.Route("/chat", func(r chi.Router) {
		r.Post("/", h.CreateConversation)
		r.Get("/{conversationId}/messages", h.ListMessages)
		r.Post("/{conversationId}/messages", h.SendMessage)
		r.Get("/user/{userId}", h.UserConversations)
	})

	r.Route("/api/user-interactions", func(r chi.Router) {
		if cfg.HTTP.RateLimit > 0 {
			r.Use(httprate.LimitByIP(cfg.HTTP.RateLimit, time.Minute))
		}
		r.Post("/like", h.Like)
		r.Delete("/like", h.Unlike)
		r.Post("/pass", h.Pass)
		r.Delete("/pass", h.Unpass)
		r.Get("/matches", h.Matches)
		r.Get("/liked-you", h.LikedYou)
		r.Get("/liked-you/new", h.NewLikedYou)
		r.Get("/liked-you/count", h.LikedYouCount)
	})

	if cfg.IsDevelopment() {
		r.Post("/api/test-data/users", h.SeedTestUsers)
	}

	return r
}
