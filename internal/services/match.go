package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mbeaufort/pitchrally/internal/logger"
	"github.com/mbeaufort/pitchrally/internal/models"
	"github.com/mbeaufort/pitchrally/internal/repository"
	"github.com/skip2/go-qrcode"
)

const (
	waitingMatchLimit = 10
	historyLimit      = 20
)

// MatchServiceRepository defines the repository methods needed by MatchService
type MatchServiceRepository interface {
	repository.MatchRepository
	repository.RallyRepository
	repository.StatsRepository
}

// MatchService handles match lifecycle business logic outside the live
// game loop: creation, joining, listing, history.
type MatchService struct {
	log     logger.Logger
	repo    MatchServiceRepository
	baseURL string
}

// NewMatchService creates a new MatchService. baseURL is used for invite
// links embedded in QR codes.
func NewMatchService(log logger.Logger, repo MatchServiceRepository, baseURL string) *MatchService {
	return &MatchService{
		log:     log,
		repo:    repo,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}
}

// MatchDetail is a match with its players' stats and rally history
type MatchDetail struct {
	Match   *models.Match       `json:"match"`
	Player1 *models.PlayerStats `json:"player1,omitempty"`
	Player2 *models.PlayerStats `json:"player2,omitempty"`
	Rallies []models.Rally      `json:"rallies"`
}

// CreateMatch opens a new match waiting for an opponent
func (s *MatchService) CreateMatch(ctx context.Context, userID, username string) (*models.Match, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	if _, err := s.repo.UpsertPlayer(ctx, userID, username); err != nil {
		return nil, fmt.Errorf("failed to register player: %w", err)
	}

	match := &models.Match{
		ID:        uuid.NewString(),
		Player1ID: userID,
		Status:    models.MatchWaiting,
	}
	if err := s.repo.CreateMatch(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to create match: %w", err)
	}

	s.log.Info("Match created", "match_id", match.ID, "user_id", userID)
	return match, nil
}

// JoinMatch fills the open slot of a waiting match
func (s *MatchService) JoinMatch(ctx context.Context, matchID, userID, username string) (*models.Match, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	match, err := s.repo.GetMatch(ctx, matchID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	if match.Player1ID == userID {
		return nil, ErrCannotJoinOwnMatch
	}
	if match.Player2ID != "" {
		return nil, ErrMatchFull
	}
	if match.Status != models.MatchWaiting {
		return nil, ErrMatchNotJoinable
	}

	if _, err := s.repo.UpsertPlayer(ctx, userID, username); err != nil {
		return nil, fmt.Errorf("failed to register player: %w", err)
	}

	match.Player2ID = userID
	match.Status = models.MatchActive
	if err := s.repo.UpdateMatch(ctx, match); err != nil {
		return nil, fmt.Errorf("failed to join match: %w", err)
	}

	s.log.Info("Match joined", "match_id", matchID, "user_id", userID)
	return match, nil
}

// GetMatch returns a match with player stats and its rallies
func (s *MatchService) GetMatch(ctx context.Context, matchID string) (*MatchDetail, error) {
	match, err := s.repo.GetMatch(ctx, matchID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}

	detail := &MatchDetail{Match: match}

	if stats, err := s.repo.GetPlayerStats(ctx, match.Player1ID); err == nil {
		detail.Player1 = stats
	}
	if match.Player2ID != "" {
		if stats, err := s.repo.GetPlayerStats(ctx, match.Player2ID); err == nil {
			detail.Player2 = stats
		}
	}

	rallies, err := s.repo.ListRalliesForMatch(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to load rallies: %w", err)
	}
	detail.Rallies = rallies

	return detail, nil
}

// ListOpenMatches returns matches waiting for an opponent, newest first
func (s *MatchService) ListOpenMatches(ctx context.Context) ([]models.Match, error) {
	return s.repo.ListWaitingMatches(ctx, waitingMatchLimit)
}

// History returns a player's completed matches, newest first
func (s *MatchService) History(ctx context.Context, userID string) ([]models.Match, error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	return s.repo.ListCompletedMatches(ctx, userID, historyLimit)
}

// InviteQR renders a PNG QR code carrying the match's join link
func (s *MatchService) InviteQR(ctx context.Context, matchID string) ([]byte, error) {
	match, err := s.repo.GetMatch(ctx, matchID)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, err
	}
	if match.Status != models.MatchWaiting {
		return nil, ErrMatchNotJoinable
	}

	inviteURL := fmt.Sprintf("%s/join/%s", s.baseURL, match.ID)
	return qrcode.Encode(inviteURL, qrcode.Medium, 256)
}
