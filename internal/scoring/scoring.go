// Package scoring implements tennis point progression, the single-set
// match-win rule, and Elo rating updates. Everything here is pure: no
// storage, no clocks, no randomness.
package scoring

import (
	"fmt"
	"math"
)

// Points is one side's score within a rally.
type Points int

// Tennis point values. Advantage is a distinct state above Forty, not a
// numeric score.
const (
	Love      Points = 0
	Fifteen   Points = 15
	Thirty    Points = 30
	Forty     Points = 40
	Advantage Points = 50
)

// pointProgression is the ordered ladder a side climbs before deuce play.
var pointProgression = []Points{Love, Fifteen, Thirty, Forty}

// String renders the point value the way a chair umpire would call it.
func (p Points) String() string {
	if p == Advantage {
		return "AD"
	}
	return fmt.Sprintf("%d", int(p))
}

// MarshalJSON keeps the wire contract of the original scoreboard:
// numeric points marshal as numbers, advantage as the string "AD".
func (p Points) MarshalJSON() ([]byte, error) {
	if p == Advantage {
		return []byte(`"AD"`), nil
	}
	return []byte(fmt.Sprintf("%d", int(p))), nil
}

// UnmarshalJSON accepts either a number or the string "AD".
func (p *Points) UnmarshalJSON(data []byte) error {
	if string(data) == `"AD"` {
		*p = Advantage
		return nil
	}
	var n int
	if _, err := fmt.Sscanf(string(data), "%d", &n); err != nil {
		return fmt.Errorf("points: cannot unmarshal %s", string(data))
	}
	*p = Points(n)
	return nil
}

// PointState is the rally score after a point has been awarded.
// GameWinner is 0 while the game is still live, otherwise 1 or 2.
type PointState struct {
	P1Points   Points `json:"p1_points"`
	P2Points   Points `json:"p2_points"`
	Deuce      bool   `json:"deuce"`
	GameWinner int    `json:"game_winner,omitempty"`
}

// NextPoint computes the rally score after the given side wins a point.
//
// At 40-40 the winner moves to Advantage and the deuce flag clears
// (advantage is the more specific state). With an advantage on the board,
// the holder winning takes the game; the holder losing returns both sides
// to 40 with deuce set. Otherwise the winner climbs the progression, and
// a winner already at 40 takes the game outright.
func NextPoint(p1, p2 Points, winner int) PointState {
	state := PointState{P1Points: p1, P2Points: p2}

	switch {
	case p1 == Forty && p2 == Forty:
		if winner == 1 {
			state.P1Points = Advantage
		} else {
			state.P2Points = Advantage
		}
		state.Deuce = false

	case p1 == Advantage || p2 == Advantage:
		if p1 == Advantage && winner == 1 {
			state.GameWinner = 1
		} else if p2 == Advantage && winner == 2 {
			state.GameWinner = 2
		} else {
			state.P1Points = Forty
			state.P2Points = Forty
			state.Deuce = true
		}

	default:
		if winner == 1 {
			if p1 == Forty {
				state.GameWinner = 1
			} else {
				state.P1Points = advance(p1)
			}
		} else {
			if p2 == Forty {
				state.GameWinner = 2
			} else {
				state.P2Points = advance(p2)
			}
		}
		if state.P1Points == Forty && state.P2Points == Forty {
			state.Deuce = true
		}
	}

	return state
}

// advance returns the next rung of the point ladder.
func advance(p Points) Points {
	for i, v := range pointProgression {
		if v == p && i+1 < len(pointProgression) {
			return pointProgression[i+1]
		}
	}
	return p
}

// ResetPoints returns the Love-Love state used when a new rally starts.
func ResetPoints() PointState {
	return PointState{P1Points: Love, P2Points: Love, Deuce: false}
}

// CheckMatchWinner applies the single-set rule after a game completes:
// a side wins with 6+ games and a 2-game margin, or with 6+ games and
// strictly more than the opponent. No tiebreak is modeled. Returns 1 or
// 2, or 0 while the match continues.
func CheckMatchWinner(gamesP1, gamesP2 int) int {
	if gamesP1 >= 6 && gamesP1-gamesP2 >= 2 {
		return 1
	}
	if gamesP2 >= 6 && gamesP2-gamesP1 >= 2 {
		return 2
	}

	if gamesP1 >= 6 && gamesP1 > gamesP2 {
		return 1
	}
	if gamesP2 >= 6 && gamesP2 > gamesP1 {
		return 2
	}

	return 0
}

// DefaultK is the Elo K-factor applied at match completion.
const DefaultK = 24

// EloResult carries the independently rounded rating adjustments for a
// completed match. Delta is the winner's gain; the loser's adjustment is
// rounded on its own and may differ in magnitude by one.
type EloResult struct {
	WinnerNewRating int `json:"winner_new_rating"`
	LoserNewRating  int `json:"loser_new_rating"`
	Delta           int `json:"delta"`
}

// EloChange computes rating updates with the standard logistic expected
// score and K=24. Winner and loser deltas are each half-up rounded rather
// than forced to be exact negations; the slight asymmetry is intentional.
func EloChange(winnerRating, loserRating int) EloResult {
	return EloChangeK(winnerRating, loserRating, DefaultK)
}

// EloChangeK is EloChange with an explicit K-factor.
func EloChangeK(winnerRating, loserRating int, k float64) EloResult {
	expectedWinner := 1 / (1 + math.Pow(10, float64(loserRating-winnerRating)/400))
	expectedLoser := 1 - expectedWinner

	winnerDelta := roundHalfUp(k * (1 - expectedWinner))
	loserDelta := roundHalfUp(k * (0 - expectedLoser))

	return EloResult{
		WinnerNewRating: winnerRating + winnerDelta,
		LoserNewRating:  loserRating + loserDelta,
		Delta:           winnerDelta,
	}
}

// roundHalfUp rounds halves toward positive infinity, matching the
// rounding the ratings were historically computed with.
func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// FormatScore renders a rally score for display: "Deuce", "Advantage
// Player 1", or "Love-15" style pairs.
func FormatScore(p1, p2 Points, deuce bool) string {
	if deuce {
		return "Deuce"
	}
	if p1 == Advantage {
		return "Advantage Player 1"
	}
	if p2 == Advantage {
		return "Advantage Player 2"
	}

	display := func(p Points) string {
		if p == Love {
			return "Love"
		}
		return fmt.Sprintf("%d", int(p))
	}
	return display(p1) + "-" + display(p2)
}
