package services_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/mbeaufort/pitchrally/internal/logger"
	"github.com/mbeaufort/pitchrally/internal/models"
	"github.com/mbeaufort/pitchrally/internal/repository"
	"github.com/mbeaufort/pitchrally/internal/services"
	"github.com/mbeaufort/pitchrally/internal/testutil"
)

func newMatchService(t *testing.T) (*services.MatchService, *repository.Repository) {
	t.Helper()
	repo := testutil.NewTestRepository(t)
	svc := services.NewMatchService(logger.NewNop(), repo, "http://localhost:8080")
	return svc, repo
}

func TestCreateMatch(t *testing.T) {
	svc, repo := newMatchService(t)
	ctx := context.Background()

	match, err := svc.CreateMatch(ctx, "alice", "Alice")
	if err != nil {
		t.Fatalf("CreateMatch failed: %v", err)
	}
	if match.Status != models.MatchWaiting {
		t.Errorf("expected waiting status, got %q", match.Status)
	}
	if match.Player1ID != "alice" {
		t.Errorf("expected alice in slot 1, got %q", match.Player1ID)
	}

	// Creator is registered with a fresh rating
	stats, err := repo.GetPlayerStats(ctx, "alice")
	if err != nil {
		t.Fatalf("creator not registered: %v", err)
	}
	if stats.Elo != 1200 {
		t.Errorf("expected fresh 1200 rating, got %d", stats.Elo)
	}
}

func TestCreateMatch_RequiresUserID(t *testing.T) {
	svc, _ := newMatchService(t)

	_, err := svc.CreateMatch(context.Background(), "", "")
	if !errors.Is(err, services.ErrMissingUserID) {
		t.Errorf("expected ErrMissingUserID, got %v", err)
	}
}

func TestJoinMatch(t *testing.T) {
	svc, _ := newMatchService(t)
	ctx := context.Background()

	match, err := svc.CreateMatch(ctx, "alice", "Alice")
	if err != nil {
		t.Fatalf("CreateMatch failed: %v", err)
	}

	joined, err := svc.JoinMatch(ctx, match.ID, "bob", "Bob")
	if err != nil {
		t.Fatalf("JoinMatch failed: %v", err)
	}
	if joined.Player2ID != "bob" || joined.Status != models.MatchActive {
		t.Errorf("join not applied: %+v", joined)
	}
}

func TestJoinMatch_Guards(t *testing.T) {
	svc, _ := newMatchService(t)
	ctx := context.Background()

	match, err := svc.CreateMatch(ctx, "alice", "Alice")
	if err != nil {
		t.Fatalf("CreateMatch failed: %v", err)
	}

	if _, err := svc.JoinMatch(ctx, match.ID, "alice", "Alice"); !errors.Is(err, services.ErrCannotJoinOwnMatch) {
		t.Errorf("expected ErrCannotJoinOwnMatch, got %v", err)
	}

	if _, err := svc.JoinMatch(ctx, match.ID, "bob", "Bob"); err != nil {
		t.Fatalf("JoinMatch failed: %v", err)
	}
	if _, err := svc.JoinMatch(ctx, match.ID, "carol", "Carol"); !errors.Is(err, services.ErrMatchFull) {
		t.Errorf("expected ErrMatchFull, got %v", err)
	}

	if _, err := svc.JoinMatch(ctx, "missing", "bob", "Bob"); !errors.Is(err, services.ErrMatchNotFound) {
		t.Errorf("expected ErrMatchNotFound, got %v", err)
	}
}

func TestGetMatch_Detail(t *testing.T) {
	svc, repo := newMatchService(t)
	ctx := context.Background()

	match, err := svc.CreateMatch(ctx, "alice", "Alice")
	if err != nil {
		t.Fatalf("CreateMatch failed: %v", err)
	}
	if _, err := svc.JoinMatch(ctx, match.ID, "bob", "Bob"); err != nil {
		t.Fatalf("JoinMatch failed: %v", err)
	}
	rally := &models.Rally{ID: "r1", MatchID: match.ID, CategoryID: "c1", Status: models.RallyActive, CurrentTurnID: "alice"}
	if err := repo.CreateRally(ctx, rally); err != nil {
		t.Fatalf("CreateRally failed: %v", err)
	}

	detail, err := svc.GetMatch(ctx, match.ID)
	if err != nil {
		t.Fatalf("GetMatch failed: %v", err)
	}
	if detail.Player1 == nil || detail.Player1.Username != "Alice" {
		t.Errorf("expected player1 stats, got %+v", detail.Player1)
	}
	if detail.Player2 == nil || detail.Player2.Username != "Bob" {
		t.Errorf("expected player2 stats, got %+v", detail.Player2)
	}
	if len(detail.Rallies) != 1 {
		t.Errorf("expected 1 rally, got %d", len(detail.Rallies))
	}

	if _, err := svc.GetMatch(ctx, "missing"); !errors.Is(err, services.ErrMatchNotFound) {
		t.Errorf("expected ErrMatchNotFound, got %v", err)
	}
}

func TestListOpenMatches(t *testing.T) {
	svc, _ := newMatchService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.CreateMatch(ctx, "alice", "Alice"); err != nil {
			t.Fatalf("CreateMatch failed: %v", err)
		}
	}

	open, err := svc.ListOpenMatches(ctx)
	if err != nil {
		t.Fatalf("ListOpenMatches failed: %v", err)
	}
	if len(open) != 3 {
		t.Errorf("expected 3 open matches, got %d", len(open))
	}
}

func TestInviteQR(t *testing.T) {
	svc, _ := newMatchService(t)
	ctx := context.Background()

	match, err := svc.CreateMatch(ctx, "alice", "Alice")
	if err != nil {
		t.Fatalf("CreateMatch failed: %v", err)
	}

	png, err := svc.InviteQR(ctx, match.ID)
	if err != nil {
		t.Fatalf("InviteQR failed: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Error("expected a PNG image")
	}

	// No invite once the match is underway
	if _, err := svc.JoinMatch(ctx, match.ID, "bob", "Bob"); err != nil {
		t.Fatalf("JoinMatch failed: %v", err)
	}
	if _, err := svc.InviteQR(ctx, match.ID); !errors.Is(err, services.ErrMatchNotJoinable) {
		t.Errorf("expected ErrMatchNotJoinable, got %v", err)
	}
}
