package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/oggyb/copal/internal/db"
	"github.com/oggyb/copal/internal/service/interaction"
)

type likeRequest struct {
	UserID  string `json:"userId" validate:"required"`
	LikedID string `json:"likedId" validate:"required"`
}

type passRequest struct {
	UserID   string `json:"userId" validate:"required"`
	PassedID string `json:"passedId" validate:"required"`
}

type likeResponse struct {
	Success     bool      `json:"success"`
	IsMatch     bool      `json:"isMatch"`
	Match       *db.Match `json:"match,omitempty"`
	Message     string    `json:"message,omitempty"`
	IsDummyData bool      `json:"isDummyData,omitempty"`
}

type passResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message,omitempty"`
	IsDummyData bool   `json:"isDummyData,omitempty"`
}

type matchesResponse struct {
	Success bool                    `json:"success"`
	Matches []interaction.MatchView `json:"matches"`
}

type likedYouResponse struct {
	Success         bool                    `json:"success"`
	Likers          []interaction.LikerView `json:"likers"`
	PaginationToken *string                 `json:"paginationToken,omitempty"`
}

type countResponse struct {
	Success bool  `json:"success"`
	Count   int64 `json:"count"`
}

const dummyDataMessage = "Ignored - users don't exist in database (dummy data mode)"

// Like handles POST /api/user-interactions/like.
func (h *Handler) Like(w http.ResponseWriter, r *http.Request) {
	var req likeRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.interactions.RecordLike(r.Context(), req.UserID, req.LikedID)
	if err != nil {
		fail(w, r, err)
		return
	}

	switch {
	case res.NoOp:
		writeJSON(w, http.StatusOK, likeResponse{Success: true, Message: dummyDataMessage, IsDummyData: true})
	case res.AlreadyLiked:
		writeJSON(w, http.StatusOK, likeResponse{Success: true, Message: "Already liked this user"})
	default:
		writeJSON(w, http.StatusOK, likeResponse{Success: true, IsMatch: res.IsMatch, Match: res.Match})
	}
}

// Unlike handles DELETE /api/user-interactions/like.
func (h *Handler) Unlike(w http.ResponseWriter, r *http.Request) {
	var req likeRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.interactions.RemoveLike(r.Context(), req.UserID, req.LikedID); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, passResponse{Success: true, Message: "Like removed successfully"})
}

// Pass handles POST /api/user-interactions/pass.
func (h *Handler) Pass(w http.ResponseWriter, r *http.Request) {
	var req passRequest
	if !decode(w, r, &req) {
		return
	}

	res, err := h.interactions.RecordPass(r.Context(), req.UserID, req.PassedID)
	if err != nil {
		fail(w, r, err)
		return
	}

	switch {
	case res.NoOp:
		writeJSON(w, http.StatusOK, passResponse{Success: true, Message: dummyDataMessage, IsDummyData: true})
	case res.AlreadyPassed:
		writeJSON(w, http.StatusOK, passResponse{Success: true, Message: "Already passed on this user"})
	default:
		writeJSON(w, http.StatusOK, passResponse{Success: true})
	}
}

// Unpass handles DELETE /api/user-interactions/pass.
func (h *Handler) Unpass(w http.ResponseWriter, r *http.Request) {
	var req passRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.interactions.RemovePass(r.Context(), req.UserID, req.PassedID); err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, passResponse{Success: true, Message: "Pass removed successfully"})
}

// Matches handles GET /api/user-interactions/matches?userId=.
func (h *Handler) Matches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.interactions.ListMatches(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, matchesResponse{Success: true, Matches: matches})
}

// LikedYou handles GET /api/user-interactions/liked-you.
func (h *Handler) LikedYou(w http.ResponseWriter, r *http.Request) {
	h.listLikers(w, r, h.interactions.ListLikedYou)
}

// NewLikedYou handles GET /api/user-interactions/liked-you/new.
func (h *Handler) NewLikedYou(w http.ResponseWriter, r *http.Request) {
	h.listLikers(w, r, h.interactions.ListNewLikedYou)
}

type listLikersFunc func(ctx context.Context, userID, token string, limit int) ([]interaction.LikerView, *string, error)

func (h *Handler) listLikers(w http.ResponseWriter, r *http.Request, list listLikersFunc) {
	q := r.URL.Query()
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	likers, next, err := list(r.Context(), q.Get("userId"), q.Get("paginationToken"), limit)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, likedYouResponse{Success: true, Likers: likers, PaginationToken: next})
}

// LikedYouCount handles GET /api/user-interactions/liked-you/count.
func (h *Handler) LikedYouCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.interactions.CountLikedYou(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Success: true, Count: n})
}
