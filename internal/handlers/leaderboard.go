package handlers

import (
	"net/http"
	"strconv"
)

func (h *Handlers) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	sortBy := r.URL.Query().Get("sort")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, BadRequest("Invalid limit parameter"))
			return
		}
		limit = parsed
	}

	players, err := h.Leaderboard.Leaderboard(r.Context(), sortBy, limit)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, players)
}

func (h *Handlers) handleGetPlayerStats(w http.ResponseWriter, r *http.Request) {
	userID, err := urlParam(r, "userID")
	if err != nil {
		respondError(w, err)
		return
	}

	profile, err := h.Leaderboard.PlayerStats(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, profile)
}

func (h *Handlers) handleGetStreaks(w http.ResponseWriter, r *http.Request) {
	kind, err := urlParam(r, "kind")
	if err != nil {
		respondError(w, err)
		return
	}
	if kind != "current" && kind != "best" {
		respondError(w, BadRequest("Invalid streak kind"))
		return
	}

	streaks, err := h.Leaderboard.TopStreaks(r.Context(), kind)
	if err != nil {
		respondError(w, err)
		return
	}

	respondOK(w, streaks)
}
