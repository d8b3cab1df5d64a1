package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/oggyb/copal/internal/app"
	"github.com/oggyb/copal/internal/realtime"
	"github.com/oggyb/copal/internal/service/chat"
	"github.com/oggyb/copal/internal/service/interaction"
)

// Handler serves the REST and WebSocket surface.
type Handler struct {
	appCtx       *app.AppContext
	interactions *interaction.Service
	chats        *chat.Service
	hub          *realtime.Hub
	upgrader     websocket.Upgrader
}

func NewHandler(appCtx *app.AppContext, interactions *interaction.Service, chats *chat.Service, hub *realtime.Hub) *Handler {
	h := &Handler{
		appCtx:       appCtx,
		interactions: interactions,
		chats:        chats,
		hub:          hub,
	}
	h.upgrader = websocket.Upgrader{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   4096,
		WriteBufferSize:  4096,
		CheckOrigin:      h.checkOrigin,
	}
	return h
}

// checkOrigin accepts non-browser clients (no Origin header) and browsers
// whose origin is in HTTP_ALLOWED_ORIGINS. A "*" entry allows any origin.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	allowed := h.appCtx.Config.HTTP.AllowedOrigins
	if len(allowed) == 0 {
		return false
	}
	for _, o := range allowed {
		if o == "*" || strings.EqualFold(o, origin) {
			return true
		}
	}
	return false
}
