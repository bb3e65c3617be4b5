package models

import (
	"time"

	"github.com/mbeaufort/pitchrally/internal/scoring"
)

// EntityType classifies what kind of real-world record an entity is.
type EntityType string

const (
	EntityPlayer EntityType = "player"
	EntityClub   EntityType = "club"
)

// Entity is a real-world player or club used as an answer target.
// Identity is immutable; entities are created by bulk import and are
// read-only to the game core.
type Entity struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Type          EntityType `json:"type"`
	Active        bool       `json:"active"`
	ExternalRefID string     `json:"external_ref_id,omitempty"`
}

// Fact is a scoped, seasoned numeric attribute of an entity. Facts are
// unique on (entity_id, fact_type, scope, season) and are never deleted
// by the game core.
type Fact struct {
	EntityID string  `json:"entity_id"`
	FactType string  `json:"fact_type"`
	Value    float64 `json:"value"`
	Scope    string  `json:"scope"`
	Season   string  `json:"season"`
	Verified bool    `json:"verified"`
	Source   string  `json:"source"`
}

// Condition is a single numeric requirement inside a category predicate.
// Scope and Season are optional filters; empty means any.
type Condition struct {
	FactType string  `json:"fact_type"`
	Scope    string  `json:"scope,omitempty"`
	Season   string  `json:"season,omitempty"`
	Op       string  `json:"op"`
	Value    float64 `json:"value"`
}

// Predicate is the set of conditions a category requires an entity's
// facts to satisfy. All conditions must hold (AND semantics).
type Predicate struct {
	Type       EntityType  `json:"type,omitempty"`
	Conditions []Condition `json:"conditions"`
}

// Category is a trivia category with its validation predicate.
type Category struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Difficulty    string    `json:"difficulty"`
	Predicate     Predicate `json:"predicate"`
	ExampleAnswer string    `json:"example_answer,omitempty"`
	Season        string    `json:"season,omitempty"`
	Active        bool      `json:"active"`
}

// Match lifecycle states.
const (
	MatchWaiting   = "waiting"
	MatchActive    = "active"
	MatchCompleted = "completed"
)

// Match is the full best-of-games contest between two players.
type Match struct {
	ID             string     `json:"id"`
	Player1ID      string     `json:"player1_id"`
	Player2ID      string     `json:"player2_id,omitempty"`
	Status         string     `json:"status"`
	GamesWonP1     int        `json:"games_won_p1"`
	GamesWonP2     int        `json:"games_won_p2"`
	CurrentRallyID string     `json:"current_rally_id,omitempty"`
	WinnerID       string     `json:"winner_id,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Rally lifecycle states.
const (
	RallyActive    = "active"
	RallyCompleted = "completed"
)

// Rally is one tennis "game" within a match: a sequence of turns ending
// when a point-scoring event decides it. Exactly one rally per match is
// non-completed at any time.
type Rally struct {
	ID            string         `json:"id"`
	MatchID       string         `json:"match_id"`
	CategoryID    string         `json:"category_id"`
	Status        string         `json:"status"`
	CurrentTurnID string         `json:"current_turn_id"`
	P1Points      scoring.Points `json:"p1_points"`
	P2Points      scoring.Points `json:"p2_points"`
	Deuce         bool           `json:"deuce"`
	Answers       []AnswerRecord `json:"answers"`
	WinnerID      string         `json:"winner_id,omitempty"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
}

// AnswerRecord is one submitted answer within a rally. Records are
// append-only and drive duplicate detection for the rally's lifetime.
type AnswerRecord struct {
	PlayerID   string `json:"player_id"`
	AnswerText string `json:"answer_text"`
	Valid      bool   `json:"valid"`
	Reason     string `json:"reason"`
	EntityID   string `json:"entity_id,omitempty"`
	Method     string `json:"method"`
	Timestamp  int64  `json:"timestamp_ms"`
}

// PlayerStats holds a player's rating and running match statistics.
type PlayerStats struct {
	UserID        string `json:"user_id"`
	Username      string `json:"username"`
	Elo           int    `json:"elo"`
	MatchesPlayed int    `json:"matches_played"`
	MatchesWon    int    `json:"matches_won"`
	CurrentStreak int    `json:"current_streak"`
	BestStreak    int    `json:"best_streak"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
