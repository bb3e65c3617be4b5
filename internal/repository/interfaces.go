package repository

import (
	"context"

	"github.com/mbeaufort/pitchrally/internal/models"
)

// EntityRepository defines entity data operations. Entities are created
// by bulk import; the game core only reads them.
type EntityRepository interface {
	ListActiveEntities(ctx context.Context, entityType models.EntityType) ([]models.Entity, error)
	GetEntity(ctx context.Context, id string) (*models.Entity, error)
	CreateEntity(ctx context.Context, entity models.Entity) error
}

// FactRepository defines fact data operations. Facts are unique on
// (entity_id, fact_type, scope, season); UpsertFacts overwrites on
// conflict and never deletes.
type FactRepository interface {
	FindFacts(ctx context.Context, entityID, factType, scope, season string) ([]models.Fact, error)
	UpsertFacts(ctx context.Context, facts []models.Fact) error
}

// CategoryRepository defines category data operations
type CategoryRepository interface {
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategory(ctx context.Context, id string) (*models.Category, error)
	RandomCategory(ctx context.Context, difficulty string) (*models.Category, error)
	CreateCategory(ctx context.Context, category models.Category) error
}

// MatchRepository defines match data operations
type MatchRepository interface {
	CreateMatch(ctx context.Context, match *models.Match) error
	GetMatch(ctx context.Context, id string) (*models.Match, error)
	UpdateMatch(ctx context.Context, match *models.Match) error
	ListWaitingMatches(ctx context.Context, limit int) ([]models.Match, error)
	ListCompletedMatches(ctx context.Context, userID string, limit int) ([]models.Match, error)
}

// RallyRepository defines rally data operations
type RallyRepository interface {
	CreateRally(ctx context.Context, rally *models.Rally) error
	GetRally(ctx context.Context, id string) (*models.Rally, error)
	UpdateRally(ctx context.Context, rally *models.Rally) error
	ListRalliesForMatch(ctx context.Context, matchID string) ([]models.Rally, error)
	RecordSubmission(ctx context.Context, rallyID string, record models.AnswerRecord, timeTakenMs int64) error
}

// StatsRepository defines player rating and statistics operations
type StatsRepository interface {
	UpsertPlayer(ctx context.Context, userID, username string) (*models.PlayerStats, error)
	GetPlayerStats(ctx context.Context, userID string) (*models.PlayerStats, error)
	UpdatePlayerStats(ctx context.Context, stats *models.PlayerStats) error
	Leaderboard(ctx context.Context, orderBy string, limit int) ([]models.PlayerStats, error)
	TopStreaks(ctx context.Context, best bool, limit int) ([]models.PlayerStats, error)
}

// FullRepository combines all repository interfaces
// Use this when a component needs access to multiple domains
type FullRepository interface {
	EntityRepository
	FactRepository
	CategoryRepository
	MatchRepository
	RallyRepository
	StatsRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
