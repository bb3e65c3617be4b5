package services

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/mbeaufort/pitchrally/internal/logger"
	"github.com/mbeaufort/pitchrally/internal/models"
	"github.com/mbeaufort/pitchrally/internal/repository"
)

const (
	defaultLeaderboardLimit = 50
	maxLeaderboardLimit     = 200
	streakLimit             = 10
	recentMatchLimit        = 10
)

// LeaderboardServiceRepository defines the repository methods needed by
// LeaderboardService
type LeaderboardServiceRepository interface {
	repository.StatsRepository
	repository.MatchRepository
}

// LeaderboardService handles rankings and player statistics
type LeaderboardService struct {
	log  logger.Logger
	repo LeaderboardServiceRepository
}

// NewLeaderboardService creates a new LeaderboardService
func NewLeaderboardService(log logger.Logger, repo LeaderboardServiceRepository) *LeaderboardService {
	return &LeaderboardService{log: log, repo: repo}
}

// RankedPlayer is a leaderboard row with derived fields
type RankedPlayer struct {
	models.PlayerStats
	Rank    int    `json:"rank"`
	WinRate string `json:"win_rate"`
}

// PlayerProfile is a player's stats with recent match history
type PlayerProfile struct {
	models.PlayerStats
	WinRate       string         `json:"win_rate"`
	RecentMatches []models.Match `json:"recent_matches"`
}

// Leaderboard returns ranked players. sortBy is one of "elo", "wins",
// "streak"; anything else ranks by elo.
func (s *LeaderboardService) Leaderboard(ctx context.Context, sortBy string, limit int) ([]RankedPlayer, error) {
	if limit <= 0 {
		limit = defaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}

	stats, err := s.repo.Leaderboard(ctx, sortBy, limit)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedPlayer, len(stats))
	for i, player := range stats {
		ranked[i] = RankedPlayer{
			PlayerStats: player,
			Rank:        i + 1,
			WinRate:     winRate(player),
		}
	}
	return ranked, nil
}

// PlayerStats returns a player's profile with recent completed matches
func (s *LeaderboardService) PlayerStats(ctx context.Context, userID string) (*PlayerProfile, error) {
	stats, err := s.repo.GetPlayerStats(ctx, userID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlayerNotFound
		}
		return nil, err
	}

	recent, err := s.repo.ListCompletedMatches(ctx, userID, recentMatchLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent matches: %w", err)
	}

	return &PlayerProfile{
		PlayerStats:   *stats,
		WinRate:       winRate(*stats),
		RecentMatches: recent,
	}, nil
}

// TopStreaks returns the top players by streak. kind is "current"
// (players on an active streak) or "best" (all-time).
func (s *LeaderboardService) TopStreaks(ctx context.Context, kind string) ([]models.PlayerStats, error) {
	return s.repo.TopStreaks(ctx, kind == "best", streakLimit)
}

// winRate formats matches won over matches played as a percentage with
// one decimal, "0" when the player has no matches
func winRate(stats models.PlayerStats) string {
	if stats.MatchesPlayed == 0 {
		return "0"
	}
	return fmt.Sprintf("%.1f", float64(stats.MatchesWon)/float64(stats.MatchesPlayed)*100)
}
