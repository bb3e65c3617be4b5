package mock

import (
	"context"

	"github.com/mbeaufort/pitchrally/internal/models"
	"github.com/mbeaufort/pitchrally/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.GetMatchError = errors.New("database error")
//	svc := services.NewMatchService(log, mockRepo)
//	_, err := svc.GetMatch(ctx, matchID)
//	// err will now contain the injected error
type Repository struct {
	repository.FullRepository

	// ===== Entity Errors =====
	ListActiveEntitiesError error
	GetEntityError          error
	CreateEntityError       error

	// ===== Fact Errors =====
	FindFactsError   error
	UpsertFactsError error

	// ===== Category Errors =====
	ListCategoriesError error
	GetCategoryError    error
	RandomCategoryError error
	CreateCategoryError error

	// ===== Match Errors =====
	CreateMatchError          error
	GetMatchError             error
	UpdateMatchError          error
	ListWaitingMatchesError   error
	ListCompletedMatchesError error

	// ===== Rally Errors =====
	CreateRallyError         error
	GetRallyError            error
	UpdateRallyError         error
	ListRalliesForMatchError error
	RecordSubmissionError    error

	// ===== Stats Errors =====
	UpsertPlayerError      error
	GetPlayerStatsError    error
	UpdatePlayerStatsError error
	LeaderboardError       error
	TopStreaksError        error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

func (m *Repository) ListActiveEntities(ctx context.Context, entityType models.EntityType) ([]models.Entity, error) {
	if m.ListActiveEntitiesError != nil {
		return nil, m.ListActiveEntitiesError
	}
	return m.FullRepository.ListActiveEntities(ctx, entityType)
}

func (m *Repository) GetEntity(ctx context.Context, id string) (*models.Entity, error) {
	if m.GetEntityError != nil {
		return nil, m.GetEntityError
	}
	return m.FullRepository.GetEntity(ctx, id)
}

func (m *Repository) CreateEntity(ctx context.Context, entity models.Entity) error {
	if m.CreateEntityError != nil {
		return m.CreateEntityError
	}
	return m.FullRepository.CreateEntity(ctx, entity)
}

func (m *Repository) FindFacts(ctx context.Context, entityID, factType, scope, season string) ([]models.Fact, error) {
	if m.FindFactsError != nil {
		return nil, m.FindFactsError
	}
	return m.FullRepository.FindFacts(ctx, entityID, factType, scope, season)
}

func (m *Repository) UpsertFacts(ctx context.Context, facts []models.Fact) error {
	if m.UpsertFactsError != nil {
		return m.UpsertFactsError
	}
	return m.FullRepository.UpsertFacts(ctx, facts)
}

func (m *Repository) ListCategories(ctx context.Context) ([]models.Category, error) {
	if m.ListCategoriesError != nil {
		return nil, m.ListCategoriesError
	}
	return m.FullRepository.ListCategories(ctx)
}

func (m *Repository) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	if m.GetCategoryError != nil {
		return nil, m.GetCategoryError
	}
	return m.FullRepository.GetCategory(ctx, id)
}

func (m *Repository) RandomCategory(ctx context.Context, difficulty string) (*models.Category, error) {
	if m.RandomCategoryError != nil {
		return nil, m.RandomCategoryError
	}
	return m.FullRepository.RandomCategory(ctx, difficulty)
}

func (m *Repository) CreateCategory(ctx context.Context, category models.Category) error {
	if m.CreateCategoryError != nil {
		return m.CreateCategoryError
	}
	return m.FullRepository.CreateCategory(ctx, category)
}

func (m *Repository) CreateMatch(ctx context.Context, match *models.Match) error {
	if m.CreateMatchError != nil {
		return m.CreateMatchError
	}
	return m.FullRepository.CreateMatch(ctx, match)
}

func (m *Repository) GetMatch(ctx context.Context, id string) (*models.Match, error) {
	if m.GetMatchError != nil {
		return nil, m.GetMatchError
	}
	return m.FullRepository.GetMatch(ctx, id)
}

func (m *Repository) UpdateMatch(ctx context.Context, match *models.Match) error {
	if m.UpdateMatchError != nil {
		return m.UpdateMatchError
	}
	return m.FullRepository.UpdateMatch(ctx, match)
}

func (m *Repository) ListWaitingMatches(ctx context.Context, limit int) ([]models.Match, error) {
	if m.ListWaitingMatchesError != nil {
		return nil, m.ListWaitingMatchesError
	}
	return m.FullRepository.ListWaitingMatches(ctx, limit)
}

func (m *Repository) ListCompletedMatches(ctx context.Context, userID string, limit int) ([]models.Match, error) {
	if m.ListCompletedMatchesError != nil {
		return nil, m.ListCompletedMatchesError
	}
	return m.FullRepository.ListCompletedMatches(ctx, userID, limit)
}

func (m *Repository) CreateRally(ctx context.Context, rally *models.Rally) error {
	if m.CreateRallyError != nil {
		return m.CreateRallyError
	}
	return m.FullRepository.CreateRally(ctx, rally)
}

func (m *Repository) GetRally(ctx context.Context, id string) (*models.Rally, error) {
	if m.GetRallyError != nil {
		return nil, m.GetRallyError
	}
	return m.FullRepository.GetRally(ctx, id)
}

func (m *Repository) UpdateRally(ctx context.Context, rally *models.Rally) error {
	if m.UpdateRallyError != nil {
		return m.UpdateRallyError
	}
	return m.FullRepository.UpdateRally(ctx, rally)
}

func (m *Repository) ListRalliesForMatch(ctx context.Context, matchID string) ([]models.Rally, error) {
	if m.ListRalliesForMatchError != nil {
		return nil, m.ListRalliesForMatchError
	}
	return m.FullRepository.ListRalliesForMatch(ctx, matchID)
}

func (m *Repository) RecordSubmission(ctx context.Context, rallyID string, record models.AnswerRecord, timeTakenMs int64) error {
	if m.RecordSubmissionError != nil {
		return m.RecordSubmissionError
	}
	return m.FullRepository.RecordSubmission(ctx, rallyID, record, timeTakenMs)
}

func (m *Repository) UpsertPlayer(ctx context.Context, userID, username string) (*models.PlayerStats, error) {
	if m.UpsertPlayerError != nil {
		return nil, m.UpsertPlayerError
	}
	return m.FullRepository.UpsertPlayer(ctx, userID, username)
}

func (m *Repository) GetPlayerStats(ctx context.Context, userID string) (*models.PlayerStats, error) {
	if m.GetPlayerStatsError != nil {
		return nil, m.GetPlayerStatsError
	}
	return m.FullRepository.GetPlayerStats(ctx, userID)
}

func (m *Repository) UpdatePlayerStats(ctx context.Context, stats *models.PlayerStats) error {
	if m.UpdatePlayerStatsError != nil {
		return m.UpdatePlayerStatsError
	}
	return m.FullRepository.UpdatePlayerStats(ctx, stats)
}

func (m *Repository) Leaderboard(ctx context.Context, orderBy string, limit int) ([]models.PlayerStats, error) {
	if m.LeaderboardError != nil {
		return nil, m.LeaderboardError
	}
	return m.FullRepository.Leaderboard(ctx, orderBy, limit)
}

func (m *Repository) TopStreaks(ctx context.Context, best bool, limit int) ([]models.PlayerStats, error) {
	if m.TopStreaksError != nil {
		return nil, m.TopStreaksError
	}
	return m.FullRepository.TopStreaks(ctx, best, limit)
}

// Ensure the mock satisfies the full repository contract
var _ repository.FullRepository = (*Repository)(nil)
