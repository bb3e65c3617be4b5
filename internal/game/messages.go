package game

import (
	"github.com/mbeaufort/pitchrally/internal/models"
	"github.com/mbeaufort/pitchrally/internal/scoring"
)

// Inbound command types carried over the wire.
const (
	CmdJoinMatch    = "join_match"
	CmdSubmitAnswer = "submit_answer"
	CmdTimeout      = "timeout"
)

// Outbound event types.
const (
	EventMatchUpdate   = "match_update"
	EventNewRally      = "new_rally"
	EventAnswerResult  = "answer_result"
	EventTurnChange    = "turn_change"
	EventPointUpdate   = "point_update"
	EventGameWon       = "game_won"
	EventMatchComplete = "match_complete"
	EventError         = "error"
)

// Command is a message processed by a match session. Commands are
// handled strictly one at a time per match.
type Command interface {
	isCommand()
}

// JoinMatch subscribes a player to a match, filling the second slot if
// it is open.
type JoinMatch struct {
	UserID   string
	Username string
}

// SubmitAnswer is a player's answer for the current rally turn.
type SubmitAnswer struct {
	UserID  string
	RallyID string
	Answer  string
}

// Timeout reports that the current turn's clock ran out client-side.
type Timeout struct {
	UserID  string
	RallyID string
}

// Leave reports that a player's connection dropped. The match itself
// is left untouched; the remaining player sees the refreshed state.
type Leave struct {
	UserID string
}

func (JoinMatch) isCommand()    {}
func (SubmitAnswer) isCommand() {}
func (Timeout) isCommand()      {}
func (Leave) isCommand()        {}

// Emitter delivers events to match participants. The websocket hub
// implements this.
type Emitter interface {
	// Broadcast sends a message to every participant of a match
	Broadcast(matchID string, msg models.WSMessage)
	// SendTo sends a message to a single participant of a match
	SendTo(matchID, userID string, msg models.WSMessage)
}

// Outbound payloads.

type AnswerResultPayload struct {
	UserID string         `json:"user_id"`
	Answer string         `json:"answer"`
	Valid  bool           `json:"valid"`
	Reason string         `json:"reason"`
	Method string         `json:"method"`
	Entity *models.Entity `json:"entity,omitempty"`
}

type NewRallyPayload struct {
	RallyID     string           `json:"rally_id"`
	Category    *models.Category `json:"category"`
	CurrentTurn string           `json:"current_turn"`
	TurnSeconds int              `json:"turn_seconds"`
}

type TurnChangePayload struct {
	NextTurn    string `json:"next_turn"`
	TurnSeconds int    `json:"turn_seconds"`
}

type PointUpdatePayload struct {
	P1Points scoring.Points `json:"p1_points"`
	P2Points scoring.Points `json:"p2_points"`
	Deuce    bool           `json:"deuce"`
	Score    string         `json:"score"`
}

type GameWonPayload struct {
	Winner       int    `json:"winner"`
	WinnerUserID string `json:"winner_user_id"`
	GamesWonP1   int    `json:"games_won_p1"`
	GamesWonP2   int    `json:"games_won_p2"`
}

type MatchCompletePayload struct {
	Winner       int    `json:"winner"`
	WinnerUserID string `json:"winner_user_id"`
	EloChange    int    `json:"elo_change"`
	FinalScore   string `json:"final_score"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
