package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// conditionalHTTPLogger only logs HTTP requests when HTTP logging is enabled
func (h *Handlers) conditionalHTTPLogger(next http.Handler) http.Handler {
	logger := middleware.Logger(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.Log != nil && h.Log.IsHTTPLoggingEnabled() {
			logger.ServeHTTP(w, r)
		} else {
			next.ServeHTTP(w, r)
		}
	})
}

// Router returns a configured chi router with all routes
func (h *Handlers) Router() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.conditionalHTTPLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RedirectSlashes)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health
	r.Get("/health", h.handleHealth)

	// WebSocket
	r.Get("/ws", h.Hub.ServeWs)

	// Matches
	r.Post("/api/matches", h.handleCreateMatch)
	r.Get("/api/matches", h.handleListMatches)
	r.Get("/api/matches/history/{userID}", h.handleMatchHistory)
	r.Post("/api/matches/{id}/join", h.handleJoinMatch)
	r.Get("/api/matches/{id}/qr", h.handleMatchQR)
	r.Get("/api/matches/{id}", h.handleGetMatch)

	// Categories
	r.Get("/api/categories", h.handleGetCategories)
	r.Get("/api/categories/random", h.handleRandomCategory)
	r.Get("/api/categories/{id}", h.handleGetCategory)

	// Leaderboard
	r.Get("/api/leaderboard", h.handleGetLeaderboard)
	r.Get("/api/leaderboard/player/{userID}", h.handleGetPlayerStats)
	r.Get("/api/leaderboard/streaks/{kind}", h.handleGetStreaks)

	return r
}
