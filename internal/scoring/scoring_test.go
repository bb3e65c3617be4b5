package scoring_test

import (
	"encoding/json"
	"testing"

	"github.com/mbeaufort/pitchrally/internal/scoring"
)

// TestNextPoint_AdvancesOnlyWinner tests that a normal point moves exactly
// one side exactly one rung up the ladder.
func TestNextPoint_AdvancesOnlyWinner(t *testing.T) {
	ladder := []scoring.Points{scoring.Love, scoring.Fifteen, scoring.Thirty, scoring.Forty}

	for _, p1 := range ladder {
		for _, p2 := range ladder {
			if p1 == scoring.Forty && p2 == scoring.Forty {
				continue // deuce branch, covered separately
			}

			state := scoring.NextPoint(p1, p2, 1)
			if p1 == scoring.Forty {
				if state.GameWinner != 1 {
					t.Errorf("NextPoint(%v,%v,1): expected game winner 1, got %d", p1, p2, state.GameWinner)
				}
				continue
			}
			if state.GameWinner != 0 {
				t.Errorf("NextPoint(%v,%v,1): unexpected game winner %d", p1, p2, state.GameWinner)
			}
			if state.P2Points != p2 {
				t.Errorf("NextPoint(%v,%v,1): loser moved from %v to %v", p1, p2, p2, state.P2Points)
			}
			if state.P1Points <= p1 {
				t.Errorf("NextPoint(%v,%v,1): winner did not advance, got %v", p1, p2, state.P1Points)
			}
		}
	}
}

func TestNextPoint_ProgressionSteps(t *testing.T) {
	tests := []struct {
		from scoring.Points
		want scoring.Points
	}{
		{scoring.Love, scoring.Fifteen},
		{scoring.Fifteen, scoring.Thirty},
		{scoring.Thirty, scoring.Forty},
	}

	for _, tt := range tests {
		state := scoring.NextPoint(tt.from, scoring.Love, 1)
		if state.P1Points != tt.want {
			t.Errorf("NextPoint(%v, Love, 1) = %v, want %v", tt.from, state.P1Points, tt.want)
		}
	}
}

// TestNextPoint_FortyWinsGame tests that a player at 40 who wins scores the
// game regardless of the opponent's (non-40) score.
func TestNextPoint_FortyWinsGame(t *testing.T) {
	for _, p2 := range []scoring.Points{scoring.Love, scoring.Fifteen, scoring.Thirty} {
		state := scoring.NextPoint(scoring.Forty, p2, 1)
		if state.GameWinner != 1 {
			t.Errorf("NextPoint(Forty, %v, 1): expected game winner 1, got %d", p2, state.GameWinner)
		}
	}

	state := scoring.NextPoint(scoring.Thirty, scoring.Forty, 2)
	if state.GameWinner != 2 {
		t.Errorf("expected player 2 to win the game from 40, got %d", state.GameWinner)
	}
}

func TestNextPoint_ReachingFortyFortySetsDeuce(t *testing.T) {
	state := scoring.NextPoint(scoring.Thirty, scoring.Forty, 1)
	if !state.Deuce {
		t.Error("expected deuce when both sides reach 40")
	}
	if state.GameWinner != 0 {
		t.Errorf("unexpected game winner %d at deuce", state.GameWinner)
	}
}

// TestNextPoint_DeuceToAdvantage tests the 40-40 branch: winner to
// advantage, opponent stays at 40, deuce flag clears.
func TestNextPoint_DeuceToAdvantage(t *testing.T) {
	state := scoring.NextPoint(scoring.Forty, scoring.Forty, 1)
	if state.P1Points != scoring.Advantage {
		t.Errorf("expected P1 at advantage, got %v", state.P1Points)
	}
	if state.P2Points != scoring.Forty {
		t.Errorf("expected P2 held at 40, got %v", state.P2Points)
	}
	if state.Deuce {
		t.Error("deuce flag should clear when advantage is taken")
	}

	state = scoring.NextPoint(scoring.Forty, scoring.Forty, 2)
	if state.P2Points != scoring.Advantage || state.P1Points != scoring.Forty {
		t.Errorf("expected P2 advantage / P1 40, got %v / %v", state.P2Points, state.P1Points)
	}
}

func TestNextPoint_AdvantageHolderWinsGame(t *testing.T) {
	state := scoring.NextPoint(scoring.Advantage, scoring.Forty, 1)
	if state.GameWinner != 1 {
		t.Errorf("advantage holder winning should take the game, got winner %d", state.GameWinner)
	}

	state = scoring.NextPoint(scoring.Forty, scoring.Advantage, 2)
	if state.GameWinner != 2 {
		t.Errorf("advantage holder winning should take the game, got winner %d", state.GameWinner)
	}
}

func TestNextPoint_AdvantageLostReturnsToDeuce(t *testing.T) {
	state := scoring.NextPoint(scoring.Advantage, scoring.Forty, 2)
	if state.GameWinner != 0 {
		t.Fatalf("unexpected game winner %d", state.GameWinner)
	}
	if state.P1Points != scoring.Forty || state.P2Points != scoring.Forty {
		t.Errorf("expected 40-40 after lost advantage, got %v-%v", state.P1Points, state.P2Points)
	}
	if !state.Deuce {
		t.Error("expected deuce flag after lost advantage")
	}
}

func TestResetPoints(t *testing.T) {
	state := scoring.ResetPoints()
	if state.P1Points != scoring.Love || state.P2Points != scoring.Love || state.Deuce {
		t.Errorf("ResetPoints() = %+v, want Love-Love no deuce", state)
	}
}

func TestCheckMatchWinner(t *testing.T) {
	tests := []struct {
		g1, g2 int
		want   int
	}{
		{6, 4, 1},
		{5, 4, 0},
		{7, 5, 1},
		{6, 6, 0},
		{4, 6, 2},
		{6, 5, 1}, // simplified rule: 6 games and strictly ahead
		{5, 6, 2},
		{0, 0, 0},
		{6, 2, 1},
	}

	for _, tt := range tests {
		if got := scoring.CheckMatchWinner(tt.g1, tt.g2); got != tt.want {
			t.Errorf("CheckMatchWinner(%d, %d) = %d, want %d", tt.g1, tt.g2, got, tt.want)
		}
	}
}

func TestEloChange_EqualRatings(t *testing.T) {
	result := scoring.EloChange(1200, 1200)

	if result.Delta != 12 {
		t.Errorf("expected delta 12 for equal ratings, got %d", result.Delta)
	}
	if result.WinnerNewRating != 1212 {
		t.Errorf("expected winner at 1212, got %d", result.WinnerNewRating)
	}
	if result.LoserNewRating != 1188 {
		t.Errorf("expected loser at 1188, got %d", result.LoserNewRating)
	}
}

// TestEloChange_Monotonic tests that the winner always gains and the loser
// always drops, with the gain bounded by K.
func TestEloChange_Monotonic(t *testing.T) {
	ratings := []struct{ winner, loser int }{
		{1200, 1200},
		{1400, 1200},
		{1200, 1400},
		{2000, 1000},
		{1000, 2000},
		{1201, 1200},
	}

	for _, r := range ratings {
		result := scoring.EloChange(r.winner, r.loser)
		if result.WinnerNewRating <= r.winner {
			t.Errorf("EloChange(%d, %d): winner did not gain (%d)", r.winner, r.loser, result.WinnerNewRating)
		}
		if result.LoserNewRating >= r.loser {
			t.Errorf("EloChange(%d, %d): loser did not drop (%d)", r.winner, r.loser, result.LoserNewRating)
		}
		if result.Delta < 0 || result.Delta > scoring.DefaultK {
			t.Errorf("EloChange(%d, %d): delta %d outside [0, K]", r.winner, r.loser, result.Delta)
		}
	}
}

// TestEloChange_UnderdogGainsMore tests that beating a stronger opponent
// pays more than beating a weaker one.
func TestEloChange_UnderdogGainsMore(t *testing.T) {
	upset := scoring.EloChange(1000, 1400)
	expected := scoring.EloChange(1400, 1000)

	if upset.Delta <= expected.Delta {
		t.Errorf("upset delta %d should exceed expected-result delta %d", upset.Delta, expected.Delta)
	}
}

// TestEloChange_IndependentRounding pins the behavior where winner and
// loser deltas are rounded separately and can differ in magnitude.
func TestEloChange_IndependentRounding(t *testing.T) {
	// expectedWinner ~= 0.5144, winner delta = round(11.655) = 12,
	// loser delta = round(-11.655) = -12, each rounded on its own.
	result := scoring.EloChange(1210, 1200)

	winnerGain := result.WinnerNewRating - 1210
	loserDrop := 1200 - result.LoserNewRating
	if winnerGain != result.Delta {
		t.Errorf("winner gain %d does not match delta %d", winnerGain, result.Delta)
	}
	if loserDrop < result.Delta-1 || loserDrop > result.Delta+1 {
		t.Errorf("loser drop %d strays more than 1 from winner delta %d", loserDrop, result.Delta)
	}
}

func TestPointsJSON(t *testing.T) {
	data, err := json.Marshal(scoring.Advantage)
	if err != nil {
		t.Fatalf("marshal advantage: %v", err)
	}
	if string(data) != `"AD"` {
		t.Errorf("advantage marshals as %s, want \"AD\"", data)
	}

	data, err = json.Marshal(scoring.Thirty)
	if err != nil {
		t.Fatalf("marshal thirty: %v", err)
	}
	if string(data) != "30" {
		t.Errorf("thirty marshals as %s, want 30", data)
	}

	var p scoring.Points
	if err := json.Unmarshal([]byte(`"AD"`), &p); err != nil {
		t.Fatalf("unmarshal AD: %v", err)
	}
	if p != scoring.Advantage {
		t.Errorf("unmarshal AD = %v, want Advantage", p)
	}
	if err := json.Unmarshal([]byte(`15`), &p); err != nil {
		t.Fatalf("unmarshal 15: %v", err)
	}
	if p != scoring.Fifteen {
		t.Errorf("unmarshal 15 = %v, want Fifteen", p)
	}
}

func TestFormatScore(t *testing.T) {
	tests := []struct {
		p1, p2 scoring.Points
		deuce  bool
		want   string
	}{
		{scoring.Forty, scoring.Forty, true, "Deuce"},
		{scoring.Advantage, scoring.Forty, false, "Advantage Player 1"},
		{scoring.Forty, scoring.Advantage, false, "Advantage Player 2"},
		{scoring.Love, scoring.Fifteen, false, "Love-15"},
		{scoring.Thirty, scoring.Love, false, "30-Love"},
		{scoring.Thirty, scoring.Fifteen, false, "30-15"},
	}

	for _, tt := range tests {
		if got := scoring.FormatScore(tt.p1, tt.p2, tt.deuce); got != tt.want {
			t.Errorf("FormatScore(%v, %v, %v) = %q, want %q", tt.p1, tt.p2, tt.deuce, got, tt.want)
		}
	}
}
