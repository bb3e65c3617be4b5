package handlers

import (
	"net/http"
)

// CreateMatchRequest is the body for creating a new match
type CreateMatchRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// JoinMatchRequest is the body for joining an open match
type JoinMatchRequest struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

func (h *Handlers) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req CreateMatchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	match, err := h.Match.CreateMatch(r.Context(), req.UserID, req.Username)
	if err != nil {
		respondError(w, err)
		return
	}

	respondCreated(w, match)
}

func (h *Handlers) handleJoinMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	var req JoinMatchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	match, err := h.Match.JoinMatch(r.Context(), matchID, req.UserID, req.Username)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, match)
}

func (h *Handlers) handleGetMatch(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	detail, err := h.Match.GetMatch(r.Context(), matchID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, detail)
}

func (h *Handlers) handleListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := h.Match.ListOpenMatches(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, matches)
}

func (h *Handlers) handleMatchHistory(w http.ResponseWriter, r *http.Request) {
	userID, err := urlParam(r, "userID")
	if err != nil {
		respondError(w, err)
		return
	}

	matches, err := h.Match.History(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, matches)
}

func (h *Handlers) handleMatchQR(w http.ResponseWriter, r *http.Request) {
	matchID, err := urlParam(r, "id")
	if err != nil {
		respondError(w, err)
		return
	}

	png, err := h.Match.InviteQR(r.Context(), matchID)
	if err != nil {
		respondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(png)
}
