package game

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mbeaufort/pitchrally/internal/logger"
	"github.com/mbeaufort/pitchrally/internal/models"
	"github.com/mbeaufort/pitchrally/internal/repository"
	"github.com/mbeaufort/pitchrally/internal/scoring"
	"github.com/mbeaufort/pitchrally/internal/validation"
)

const mailboxSize = 32

// DefaultTurnSeconds is the client countdown announced with each new
// rally. The server never enforces it; clients report expiry with a
// timeout command.
const DefaultTurnSeconds = 10

// Session is the single-goroutine owner of one match. All commands for
// the match pass through its mailbox, which serializes them and makes
// the turn-ownership check race-free.
type Session struct {
	matchID     string
	repo        repository.FullRepository
	pipeline    *validation.Pipeline
	emitter     Emitter
	log         logger.Logger
	turnSeconds int

	mailbox chan Command
	done    chan struct{}
	onClose func()

	// Owned exclusively by the run goroutine. Reassigned only after the
	// corresponding repository write succeeds, so a failed write leaves
	// the previous state intact for a client retry.
	match *models.Match
	rally *models.Rally
}

func newSession(matchID string, repo repository.FullRepository, pipeline *validation.Pipeline, emitter Emitter, log logger.Logger, turnSeconds int, onClose func()) *Session {
	if turnSeconds <= 0 {
		turnSeconds = DefaultTurnSeconds
	}
	s := &Session{
		matchID:     matchID,
		repo:        repo,
		pipeline:    pipeline,
		emitter:     emitter,
		log:         log,
		turnSeconds: turnSeconds,
		mailbox:     make(chan Command, mailboxSize),
		done:        make(chan struct{}),
		onClose:     onClose,
	}
	go s.run()
	return s
}

// Enqueue delivers a command to the session. Delivery is a no-op after
// the match completes.
func (s *Session) Enqueue(cmd Command) {
	select {
	case s.mailbox <- cmd:
	case <-s.done:
	}
}

func (s *Session) run() {
	for {
		select {
		case cmd := <-s.mailbox:
			s.handle(context.Background(), cmd)
		case <-s.done:
			return
		}
	}
}

func (s *Session) close() {
	close(s.done)
	if s.onClose != nil {
		s.onClose()
	}
}

func (s *Session) handle(ctx context.Context, cmd Command) {
	switch c := cmd.(type) {
	case JoinMatch:
		s.handleJoin(ctx, c)
	case SubmitAnswer:
		s.handleSubmit(ctx, c)
	case Timeout:
		s.handleTimeout(ctx, c)
	case Leave:
		s.handleLeave(ctx, c)
	default:
		s.log.Warn("Unknown command", "match_id", s.matchID, "command", fmt.Sprintf("%T", cmd))
	}
}

func (s *Session) sendError(userID, message string) {
	s.emitter.SendTo(s.matchID, userID, models.WSMessage{
		Type:    EventError,
		Payload: ErrorPayload{Message: message},
	})
}

// loadMatch refreshes the cached match from the repository if it is not
// loaded yet.
func (s *Session) loadMatch(ctx context.Context) error {
	if s.match != nil {
		return nil
	}
	match, err := s.repo.GetMatch(ctx, s.matchID)
	if err != nil {
		return err
	}
	s.match = match
	if match.CurrentRallyID != "" {
		rally, err := s.repo.GetRally(ctx, match.CurrentRallyID)
		if err != nil {
			s.match = nil
			return err
		}
		s.rally = rally
	}
	return nil
}

func (s *Session) handleJoin(ctx context.Context, cmd JoinMatch) {
	if err := s.loadMatch(ctx); err != nil {
		s.log.Error("Failed to load match", "match_id", s.matchID, "error", err)
		s.sendError(cmd.UserID, "match not found")
		return
	}

	match := s.match
	isParticipant := cmd.UserID == match.Player1ID || cmd.UserID == match.Player2ID

	if !isParticipant {
		if match.Status != models.MatchWaiting || match.Player2ID != "" {
			s.sendError(cmd.UserID, "match is full")
			return
		}

		updated := *match
		updated.Player2ID = cmd.UserID
		updated.Status = models.MatchActive
		if err := s.repo.UpdateMatch(ctx, &updated); err != nil {
			s.log.Error("Failed to join match", "match_id", s.matchID, "error", err)
			s.sendError(cmd.UserID, "failed to join match")
			return
		}
		if _, err := s.repo.UpsertPlayer(ctx, cmd.UserID, cmd.Username); err != nil {
			s.log.Warn("Failed to upsert joining player", "user_id", cmd.UserID, "error", err)
		}
		s.match = &updated
		s.log.Info("Player joined match", "match_id", s.matchID, "user_id", cmd.UserID)
	}

	s.emitter.Broadcast(s.matchID, models.WSMessage{Type: EventMatchUpdate, Payload: s.match})

	// Filling the second slot starts the first rally
	if s.match.Status == models.MatchActive && s.rally == nil {
		if err := s.startRally(ctx); err != nil {
			s.log.Error("Failed to start rally", "match_id", s.matchID, "error", err)
			s.sendError(cmd.UserID, "failed to start rally")
		}
	}
}

// handleLeave notifies the room that a participant's connection
// dropped. Match state is untouched; the player can rejoin and
// continue.
func (s *Session) handleLeave(ctx context.Context, cmd Leave) {
	if err := s.loadMatch(ctx); err != nil {
		return
	}
	if cmd.UserID != s.match.Player1ID && cmd.UserID != s.match.Player2ID {
		return
	}
	s.log.Info("Player left match", "match_id", s.matchID, "user_id", cmd.UserID)
	s.emitter.Broadcast(s.matchID, models.WSMessage{Type: EventMatchUpdate, Payload: s.match})
}

// startRally creates a fresh rally at Love-Love with a random active
// category. Player 1 always serves.
func (s *Session) startRally(ctx context.Context) error {
	category, err := s.repo.RandomCategory(ctx, "")
	if err != nil {
		return fmt.Errorf("failed to pick category: %w", err)
	}

	rally := &models.Rally{
		ID:            uuid.NewString(),
		MatchID:       s.matchID,
		CategoryID:    category.ID,
		Status:        models.RallyActive,
		CurrentTurnID: s.match.Player1ID,
		Answers:       []models.AnswerRecord{},
	}
	if err := s.repo.CreateRally(ctx, rally); err != nil {
		return fmt.Errorf("failed to create rally: %w", err)
	}

	updated := *s.match
	updated.CurrentRallyID = rally.ID
	if err := s.repo.UpdateMatch(ctx, &updated); err != nil {
		return fmt.Errorf("failed to attach rally: %w", err)
	}

	s.match = &updated
	s.rally = rally
	s.log.Info("Rally started", "match_id", s.matchID, "rally_id", rally.ID, "category", category.ID)

	s.emitter.Broadcast(s.matchID, models.WSMessage{
		Type: EventNewRally,
		Payload: NewRallyPayload{
			RallyID:     rally.ID,
			Category:    category,
			CurrentTurn: rally.CurrentTurnID,
			TurnSeconds: s.turnSeconds,
		},
	})
	return nil
}

func (s *Session) activeRally(ctx context.Context, userID, rallyID string) *models.Rally {
	if err := s.loadMatch(ctx); err != nil {
		s.sendError(userID, "match not found")
		return nil
	}
	if s.match.Status != models.MatchActive || s.rally == nil {
		s.sendError(userID, "match is not active")
		return nil
	}
	if s.rally.ID != rallyID {
		s.sendError(userID, "rally not found")
		return nil
	}
	return s.rally
}

func (s *Session) handleSubmit(ctx context.Context, cmd SubmitAnswer) {
	rally := s.activeRally(ctx, cmd.UserID, cmd.RallyID)
	if rally == nil {
		return
	}

	// Turn ownership: only the offending client hears about it
	if cmd.UserID != rally.CurrentTurnID {
		s.sendError(cmd.UserID, "not your turn")
		return
	}

	category, err := s.repo.GetCategory(ctx, rally.CategoryID)
	if err != nil {
		s.log.Error("Failed to load category", "rally_id", rally.ID, "error", err)
		s.sendError(cmd.UserID, "failed to load category")
		return
	}

	verdict, err := s.pipeline.Validate(ctx, cmd.Answer, category, rally.Answers)
	if err != nil {
		s.log.Error("Validation failed", "rally_id", rally.ID, "error", err)
		s.sendError(cmd.UserID, "failed to validate answer")
		return
	}

	if verdict.NeedsFactCreation {
		if err := s.materializeFacts(ctx, verdict, category); err != nil {
			s.log.Error("Failed to store verified facts", "rally_id", rally.ID, "error", err)
			s.sendError(cmd.UserID, "failed to record answer")
			return
		}
	}

	record := models.AnswerRecord{
		PlayerID:   cmd.UserID,
		AnswerText: cmd.Answer,
		Valid:      verdict.Valid,
		Reason:     verdict.Reason,
		Method:     verdict.Method,
		Timestamp:  time.Now().UnixMilli(),
	}
	if verdict.Entity != nil {
		record.EntityID = verdict.Entity.ID
	}

	updated := *rally
	updated.Answers = append(append([]models.AnswerRecord{}, rally.Answers...), record)
	if verdict.Valid {
		updated.CurrentTurnID = s.opponentOf(cmd.UserID)
	}
	if err := s.repo.UpdateRally(ctx, &updated); err != nil {
		s.log.Error("Failed to persist answer", "rally_id", rally.ID, "error", err)
		s.sendError(cmd.UserID, "failed to record answer")
		return
	}
	s.rally = &updated

	if err := s.repo.RecordSubmission(ctx, rally.ID, record, 0); err != nil {
		s.log.Warn("Failed to record submission audit row", "rally_id", rally.ID, "error", err)
	}

	s.emitter.Broadcast(s.matchID, models.WSMessage{
		Type: EventAnswerResult,
		Payload: AnswerResultPayload{
			UserID: cmd.UserID,
			Answer: cmd.Answer,
			Valid:  verdict.Valid,
			Reason: verdict.Reason,
			Method: verdict.Method,
			Entity: verdict.Entity,
		},
	})

	if verdict.Valid {
		s.emitter.Broadcast(s.matchID, models.WSMessage{
			Type:    EventTurnChange,
			Payload: TurnChangePayload{NextTurn: s.rally.CurrentTurnID, TurnSeconds: s.turnSeconds},
		})
		return
	}

	// A miss scores the point for the opponent
	s.scorePoint(ctx, s.playerSlot(s.opponentOf(cmd.UserID)), cmd.UserID)
}

func (s *Session) handleTimeout(ctx context.Context, cmd Timeout) {
	rally := s.activeRally(ctx, cmd.UserID, cmd.RallyID)
	if rally == nil {
		return
	}
	if cmd.UserID != rally.CurrentTurnID {
		s.sendError(cmd.UserID, "not your turn")
		return
	}

	s.log.Info("Turn timed out", "match_id", s.matchID, "rally_id", rally.ID, "user_id", cmd.UserID)
	s.scorePoint(ctx, s.playerSlot(s.opponentOf(cmd.UserID)), cmd.UserID)
}

// materializeFacts turns an llm_verified verdict into stored verified
// facts so future answers pass the rule check without the arbiter.
func (s *Session) materializeFacts(ctx context.Context, verdict *validation.Verdict, category *models.Category) error {
	if verdict.Entity == nil {
		return nil
	}

	var facts []models.Fact
	if len(verdict.ArbiterFacts) > 0 {
		for _, f := range verdict.ArbiterFacts {
			fact := models.Fact{
				EntityID: verdict.Entity.ID,
				FactType: f.FactType,
				Value:    f.Value,
				Scope:    f.Scope,
				Season:   f.Season,
				Verified: true,
				Source:   "arbiter",
			}
			if fact.Scope == "" {
				fact.Scope = "Verified"
			}
			if fact.Season == "" {
				fact.Season = category.Season
			}
			facts = append(facts, fact)
		}
	} else {
		// No fact claims from the arbiter: derive them from the
		// category conditions the answer was judged against
		for _, cond := range category.Predicate.Conditions {
			fact := models.Fact{
				EntityID: verdict.Entity.ID,
				FactType: cond.FactType,
				Value:    cond.Value,
				Scope:    cond.Scope,
				Season:   cond.Season,
				Verified: true,
				Source:   "arbiter",
			}
			if fact.Scope == "" {
				fact.Scope = "Verified"
			}
			if fact.Season == "" {
				fact.Season = category.Season
			}
			facts = append(facts, fact)
		}
	}
	return s.repo.UpsertFacts(ctx, facts)
}

func (s *Session) opponentOf(userID string) string {
	if userID == s.match.Player1ID {
		return s.match.Player2ID
	}
	return s.match.Player1ID
}

func (s *Session) playerSlot(userID string) int {
	if userID == s.match.Player1ID {
		return 1
	}
	return 2
}

func (s *Session) playerForSlot(slot int) string {
	if slot == 1 {
		return s.match.Player1ID
	}
	return s.match.Player2ID
}

// scorePoint advances the tennis point state for pointWinner and runs
// the game and match completion cascade.
func (s *Session) scorePoint(ctx context.Context, pointWinner int, requester string) {
	state := scoring.NextPoint(s.rally.P1Points, s.rally.P2Points, pointWinner)

	updated := *s.rally
	updated.P1Points = state.P1Points
	updated.P2Points = state.P2Points
	updated.Deuce = state.Deuce

	if state.GameWinner == 0 {
		if err := s.repo.UpdateRally(ctx, &updated); err != nil {
			s.log.Error("Failed to persist point", "rally_id", s.rally.ID, "error", err)
			s.sendError(requester, "failed to record point")
			return
		}
		s.rally = &updated
	}

	s.emitter.Broadcast(s.matchID, models.WSMessage{
		Type: EventPointUpdate,
		Payload: PointUpdatePayload{
			P1Points: updated.P1Points,
			P2Points: updated.P2Points,
			Deuce:    updated.Deuce,
			Score:    scoring.FormatScore(updated.P1Points, updated.P2Points, updated.Deuce),
		},
	})

	if state.GameWinner == 0 {
		return
	}

	s.completeGame(ctx, &updated, state.GameWinner, requester)
}

// completeGame seals the rally, bumps the match game counter, and
// either completes the match or starts the next rally.
func (s *Session) completeGame(ctx context.Context, rally *models.Rally, gameWinner int, requester string) {
	winnerID := s.playerForSlot(gameWinner)
	now := time.Now().UTC()

	rally.Status = models.RallyCompleted
	rally.WinnerID = winnerID
	rally.CompletedAt = &now
	if err := s.repo.UpdateRally(ctx, rally); err != nil {
		s.log.Error("Failed to seal rally", "rally_id", rally.ID, "error", err)
		s.sendError(requester, "failed to record game")
		return
	}
	s.rally = rally

	match := *s.match
	if gameWinner == 1 {
		match.GamesWonP1++
	} else {
		match.GamesWonP2++
	}

	matchWinner := scoring.CheckMatchWinner(match.GamesWonP1, match.GamesWonP2)
	if matchWinner == 0 {
		match.CurrentRallyID = ""
		if err := s.repo.UpdateMatch(ctx, &match); err != nil {
			s.log.Error("Failed to persist game", "match_id", s.matchID, "error", err)
			s.sendError(requester, "failed to record game")
			return
		}
		s.match = &match
		s.rally = nil
	}

	s.emitter.Broadcast(s.matchID, models.WSMessage{
		Type: EventGameWon,
		Payload: GameWonPayload{
			Winner:       gameWinner,
			WinnerUserID: winnerID,
			GamesWonP1:   match.GamesWonP1,
			GamesWonP2:   match.GamesWonP2,
		},
	})

	if matchWinner == 0 {
		if err := s.startRally(ctx); err != nil {
			s.log.Error("Failed to start next rally", "match_id", s.matchID, "error", err)
			s.sendError(requester, "failed to start next rally")
		}
		return
	}

	s.completeMatch(ctx, &match, matchWinner, requester)
}

// completeMatch applies the Elo exchange exactly once, updates both
// players' statistics, seals the match and stops the session.
func (s *Session) completeMatch(ctx context.Context, match *models.Match, matchWinner int, requester string) {
	winnerID := s.playerForSlot(matchWinner)
	loserID := s.opponentOf(winnerID)

	winnerStats, err := s.playerStats(ctx, winnerID)
	if err != nil {
		s.log.Error("Failed to load winner stats", "user_id", winnerID, "error", err)
		s.sendError(requester, "failed to complete match")
		return
	}
	loserStats, err := s.playerStats(ctx, loserID)
	if err != nil {
		s.log.Error("Failed to load loser stats", "user_id", loserID, "error", err)
		s.sendError(requester, "failed to complete match")
		return
	}

	result := scoring.EloChange(winnerStats.Elo, loserStats.Elo)
	winnerStats.Elo = result.WinnerNewRating
	winnerStats.MatchesPlayed++
	winnerStats.MatchesWon++
	winnerStats.CurrentStreak++
	if winnerStats.CurrentStreak > winnerStats.BestStreak {
		winnerStats.BestStreak = winnerStats.CurrentStreak
	}
	loserStats.Elo = result.LoserNewRating
	loserStats.MatchesPlayed++
	loserStats.CurrentStreak = 0

	if err := s.repo.UpdatePlayerStats(ctx, winnerStats); err != nil {
		s.log.Error("Failed to persist winner stats", "user_id", winnerID, "error", err)
		s.sendError(requester, "failed to complete match")
		return
	}
	if err := s.repo.UpdatePlayerStats(ctx, loserStats); err != nil {
		s.log.Error("Failed to persist loser stats", "user_id", loserID, "error", err)
		s.sendError(requester, "failed to complete match")
		return
	}

	now := time.Now().UTC()
	match.Status = models.MatchCompleted
	match.WinnerID = winnerID
	match.CurrentRallyID = ""
	match.CompletedAt = &now
	if err := s.repo.UpdateMatch(ctx, match); err != nil {
		s.log.Error("Failed to seal match", "match_id", s.matchID, "error", err)
		s.sendError(requester, "failed to complete match")
		return
	}
	s.match = match
	s.rally = nil

	finalScore := fmt.Sprintf("%d-%d", match.GamesWonP1, match.GamesWonP2)
	s.log.Info("Match complete", "match_id", s.matchID, "winner", winnerID, "score", finalScore, "elo_delta", result.Delta)

	s.emitter.Broadcast(s.matchID, models.WSMessage{
		Type: EventMatchComplete,
		Payload: MatchCompletePayload{
			Winner:       matchWinner,
			WinnerUserID: winnerID,
			EloChange:    result.Delta,
			FinalScore:   finalScore,
		},
	})

	s.close()
}

// playerStats loads a player's current statistics, creating the row for a
// player who has never finished a match. The stored username is left alone;
// only the join path knows the display name.
func (s *Session) playerStats(ctx context.Context, userID string) (*models.PlayerStats, error) {
	stats, err := s.repo.GetPlayerStats(ctx, userID)
	if err == nil {
		return stats, nil
	}
	if stderrors.Is(err, repository.ErrNotFound) {
		return s.repo.UpsertPlayer(ctx, userID, userID)
	}
	return nil, err
}
