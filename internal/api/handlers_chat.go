package api

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/oggyb/copal/internal/logger"
)

type createConversationRequest struct {
	UserIDs []string `json:"userIds" validate:"required,len=2,dive,required"`
}

type sendMessageRequest struct {
	SenderID string `json:"senderId" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

// CreateConversation handles POST /chat.
func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if !decode(w, r, &req) {
		return
	}
	conv, err := h.chats.CreateConversation(r.Context(), req.UserIDs)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

// ListMessages handles GET /chat/{conversationId}/messages.
func (h *Handler) ListMessages(w http.ResponseWriter, r *http.Request) {
	msgs, err := h.chats.ListMessages(r.Context(), chi.URLParam(r, "conversationId"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, msgs)
}

// SendMessage handles POST /chat/{conversationId}/messages.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if !decode(w, r, &req) {
		return
	}
	msg, err := h.chats.SendMessage(r.Context(), chi.URLParam(r, "conversationId"), req.SenderID, req.Content)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, msg)
}

// UserConversations handles GET /chat/user/{userId}.
func (h *Handler) UserConversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.chats.ListUserConversations(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, convs)
}

// ChatSocket handles GET /ws/chat?userId= and hands the upgraded
// connection to the realtime hub.
func (h *Handler) ChatSocket(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.URL.Query().Get("userId"))
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "Unauthorized: Missing userId")
		return
	}

	log := logger.FromContext(r.Context(), h.appCtx.Logger)
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error
		log.Warn("websocket upgrade failed", "user", userID, "err", err)
		return
	}
	if err := h.hub.Serve(r.Context(), ws, userID); err != nil {
		log.Warn("realtime connection ended with error", "user", userID, "err", err)
	}
}
