package services

import (
	"context"

	"github.com/mbeaufort/pitchrally/internal/models"
)

// MatchServicer defines the interface for match lifecycle operations
type MatchServicer interface {
	CreateMatch(ctx context.Context, userID, username string) (*models.Match, error)
	JoinMatch(ctx context.Context, matchID, userID, username string) (*models.Match, error)
	GetMatch(ctx context.Context, matchID string) (*MatchDetail, error)
	ListOpenMatches(ctx context.Context) ([]models.Match, error)
	History(ctx context.Context, userID string) ([]models.Match, error)
	InviteQR(ctx context.Context, matchID string) ([]byte, error)
}

// CategoryServicer defines the interface for category operations
type CategoryServicer interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	RandomCategory(ctx context.Context, difficulty string) (*models.Category, error)
}

// LeaderboardServicer defines the interface for ranking operations
type LeaderboardServicer interface {
	Leaderboard(ctx context.Context, sortBy string, limit int) ([]RankedPlayer, error)
	PlayerStats(ctx context.Context, userID string) (*PlayerProfile, error)
	TopStreaks(ctx context.Context, kind string) ([]models.PlayerStats, error)
}

// Ensure concrete types implement interfaces
var (
	_ MatchServicer       = (*MatchService)(nil)
	_ CategoryServicer    = (*CategoryService)(nil)
	_ LeaderboardServicer = (*LeaderboardService)(nil)
)
