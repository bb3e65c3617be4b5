package handlers

import (
	"net/http"

	"github.com/mbeaufort/pitchrally/internal/services"
	"github.com/mbeaufort/pitchrally/internal/websocket"
)

// Handlers holds all HTTP handler dependencies
type Handlers struct {
	Match       services.MatchServicer
	Category    services.CategoryServicer
	Leaderboard services.LeaderboardServicer
	Hub         *websocket.Hub
	Log         HTTPLogger
}

// HTTPLogger is an interface for loggers that support HTTP logging control
type HTTPLogger interface {
	IsHTTPLoggingEnabled() bool
}

// NoopHTTPLogger never logs HTTP requests
type NoopHTTPLogger struct{}

func (NoopHTTPLogger) IsHTTPLoggingEnabled() bool { return false }

// New creates a new Handlers instance with all dependencies
func New(
	match services.MatchServicer,
	category services.CategoryServicer,
	leaderboard services.LeaderboardServicer,
	hub *websocket.Hub,
	log HTTPLogger,
) *Handlers {
	return &Handlers{
		Match:       match,
		Category:    category,
		Leaderboard: leaderboard,
		Hub:         hub,
		Log:         log,
	}
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]string{"status": "ok"})
}
