package validation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mbeaufort/pitchrally/internal/logger"
	"github.com/mbeaufort/pitchrally/internal/models"
	"github.com/mbeaufort/pitchrally/internal/repository"
	repomock "github.com/mbeaufort/pitchrally/internal/repository/mock"
	"github.com/mbeaufort/pitchrally/internal/testutil"
	"github.com/mbeaufort/pitchrally/internal/validation"
	"github.com/mbeaufort/pitchrally/pkg/arbiter"
)

func seedValidationData(t *testing.T, repo *repository.Repository) {
	t.Helper()
	ctx := context.Background()

	entities := []models.Entity{
		{ID: "e-salah", Name: "Mohamed Salah", Type: models.EntityPlayer, Active: true},
		{ID: "e-kane", Name: "Harry Kane", Type: models.EntityPlayer, Active: true},
		{ID: "e-madrid", Name: "Real Madrid", Type: models.EntityClub, Active: true},
	}
	for _, e := range entities {
		if err := repo.CreateEntity(ctx, e); err != nil {
			t.Fatalf("failed to seed entity: %v", err)
		}
	}

	facts := []models.Fact{
		{EntityID: "e-salah", FactType: "goals", Value: 25, Scope: "league", Season: "2023-24"},
		{EntityID: "e-kane", FactType: "goals", Value: 8, Scope: "league", Season: "2023-24"},
	}
	if err := repo.UpsertFacts(ctx, facts); err != nil {
		t.Fatalf("failed to seed facts: %v", err)
	}
}

func goalsCategory() *models.Category {
	return &models.Category{
		ID:    "c-goals",
		Title: "Scored 20+ league goals in 2023-24",
		Predicate: models.Predicate{
			Type: models.EntityPlayer,
			Conditions: []models.Condition{
				{FactType: "goals", Scope: "league", Season: "2023-24", Op: ">=", Value: 20},
			},
		},
		Season: "2023-24",
		Active: true,
	}
}

func newPipeline(t *testing.T, repo repository.FullRepository, judge arbiter.Client) *validation.Pipeline {
	t.Helper()
	return validation.NewPipeline(repo, repo, judge, time.Second, logger.NewNop())
}

func TestValidate_DuplicateIsAuthoritative(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	seedValidationData(t, repo)
	mock := arbiter.NewMockClient()
	pipeline := newPipeline(t, repo, mock)

	prior := []models.AnswerRecord{{PlayerID: "alice", AnswerText: "Mo Salah", Valid: true}}
	verdict, err := pipeline.Validate(context.Background(), "  mo   SALAH ", goalsCategory(), prior)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if verdict.Valid {
		t.Error("duplicate answer should be invalid")
	}
	if verdict.Method != validation.MethodDuplicate {
		t.Errorf("expected duplicate_check method, got %q", verdict.Method)
	}
	if verdict.Reason != "duplicate" {
		t.Errorf("expected reason 'duplicate', got %q", verdict.Reason)
	}
}

func TestValidate_RuleBasedNeverCallsArbiter(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	seedValidationData(t, repo)
	mock := arbiter.NewMockClient()
	pipeline := newPipeline(t, repo, mock)

	verdict, err := pipeline.Validate(context.Background(), "Mohamed Salah", goalsCategory(), nil)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !verdict.Valid {
		t.Fatalf("expected valid verdict, got %+v", verdict)
	}
	if verdict.Method != validation.MethodRuleBased {
		t.Errorf("expected rule_based method, got %q", verdict.Method)
	}
	if verdict.Entity == nil || verdict.Entity.ID != "e-salah" {
		t.Errorf("expected resolved entity e-salah, got %+v", verdict.Entity)
	}
	if len(verdict.Facts) != 1 || verdict.Facts[0].Value != 25 {
		t.Errorf("expected fact evidence, got %+v", verdict.Facts)
	}
	if len(mock.Calls()) != 0 {
		t.Errorf("rule-based pass must not invoke the arbiter, got %d calls", len(mock.Calls()))
	}
}

func TestValidate_FuzzySpellingResolves(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	seedValidationData(t, repo)
	pipeline := newPipeline(t, repo, arbiter.NewMockClient())

	verdict, err := pipeline.Validate(context.Background(), "Mohammed Salah", goalsCategory(), nil)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !verdict.Valid || verdict.Method != validation.MethodRuleBased {
		t.Errorf("near-miss spelling should still resolve and pass, got %+v", verdict)
	}
}

func TestValidate_SubstringResolves(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	seedValidationData(t, repo)
	pipeline := newPipeline(t, repo, arbiter.NewMockClient())

	verdict, err := pipeline.Validate(context.Background(), "Salah", goalsCategory(), nil)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !verdict.Valid || verdict.Method != validation.MethodRuleBased {
		t.Errorf("partial name should resolve via containment, got %+v", verdict)
	}
}

func TestValidate_NoEntityArbiterAccepts(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	seedValidationData(t, repo)
	mock := arbiter.NewMockClient(
		arbiter.WithVerdict(&arbiter.Verdict{Valid: true, Confidence: 0.9, Reason: "well-known scorer"}),
	)
	pipeline := newPipeline(t, repo, mock)

	verdict, err := pipeline.Validate(context.Background(), "Erling Haaland", goalsCategory(), nil)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !verdict.Valid {
		t.Fatalf("expected valid verdict, got %+v", verdict)
	}
	if verdict.Method != validation.MethodLLMFallback {
		t.Errorf("expected llm_fallback method, got %q", verdict.Method)
	}
	if !verdict.NeedsVerification {
		t.Error("fallback verdicts need later verification")
	}
}

func TestValidate_NoEntityLowConfidenceRejected(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	seedValidationData(t, repo)
	mock := arbiter.NewMockClient(
		arbiter.WithVerdict(&arbiter.Verdict{Valid: true, Confidence: 0.6, Reason: "maybe"}),
	)
	pipeline := newPipeline(t, repo, mock)

	verdict, err := pipeline.Validate(context.Background(), "Erling Haaland", goalsCategory(), nil)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if verdict.Valid {
		t.Error("confidence at or below 0.7 must not pass without an entity")
	}
	if verdict.Method != validation.MethodEntityLookup {
		t.Errorf("expected entity_lookup method, got %q", verdict.Method)
	}
}

func TestValidate_EntityFactsFailArbiterVerifies(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	seedValidationData(t, repo)
	mock := arbiter.NewMockClient(
		arbiter.WithVerdict(&arbiter.Verdict{
			Valid:      true,
			Confidence: 0.9,
			Reason:     "scored 23 league goals",
			Facts:      []arbiter.VerifiedFact{{FactType: "goals", Value: 23, Scope: "league", Season: "2023-24"}},
		}),
	)
	pipeline := newPipeline(t, repo, mock)

	// Kane resolves but his stored goals fact fails the predicate
	verdict, err := pipeline.Validate(context.Background(), "Harry Kane", goalsCategory(), nil)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if !verdict.Valid {
		t.Fatalf("expected valid verdict, got %+v", verdict)
	}
	if verdict.Method != validation.MethodLLMVerified {
		t.Errorf("expected llm_verified method, got %q", verdict.Method)
	}
	if !verdict.NeedsFactCreation {
		t.Error("verified verdicts should flag fact creation")
	}
	if len(verdict.ArbiterFacts) != 1 {
		t.Errorf("expected arbiter fact claims to be carried, got %+v", verdict.ArbiterFacts)
	}
}

func TestValidate_EntityArbiterNeedsHigherConfidence(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	seedValidationData(t, repo)
	mock := arbiter.NewMockClient(
		arbiter.WithVerdict(&arbiter.Verdict{Valid: true, Confidence: 0.75, Reason: "probably"}),
	)
	pipeline := newPipeline(t, repo, mock)

	// 0.75 clears the no-entity gate but not the verify gate
	verdict, err := pipeline.Validate(context.Background(), "Harry Kane", goalsCategory(), nil)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if verdict.Valid {
		t.Error("confidence at or below 0.8 must not override a failed rule check")
	}
	if verdict.Method != validation.MethodFailed {
		t.Errorf("expected failed_validation method, got %q", verdict.Method)
	}
}

func TestValidate_FailedRuleCheckNamesEntityInReason(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	seedValidationData(t, repo)
	mock := arbiter.NewMockClient(
		arbiter.WithVerdict(&arbiter.Verdict{Valid: false, Confidence: 0.9, Reason: "not sure"}),
	)
	pipeline := newPipeline(t, repo, mock)

	verdict, err := pipeline.Validate(context.Background(), "Harry Kane", goalsCategory(), nil)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if verdict.Valid {
		t.Fatalf("expected rejection, got %+v", verdict)
	}
	if verdict.Reason != "Harry Kane doesn't meet all requirements" {
		t.Errorf("rejection should say which entity fell short, got %q", verdict.Reason)
	}
}

func TestValidate_ZeroConditionsGoToArbiter(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	seedValidationData(t, repo)
	mock := arbiter.NewMockClient()
	pipeline := newPipeline(t, repo, mock)

	category := goalsCategory()
	category.Predicate.Conditions = nil

	verdict, err := pipeline.Validate(context.Background(), "Mohamed Salah", category, nil)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if verdict.Valid {
		t.Error("an empty predicate is never rule-satisfiable")
	}
	if len(mock.Calls()) != 1 {
		t.Errorf("expected arbiter fallback for empty predicate, got %d calls", len(mock.Calls()))
	}
}

func TestValidate_ArbiterFailureDegrades(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	seedValidationData(t, repo)
	mock := arbiter.NewMockClient(arbiter.WithJudgeError(errors.New("arbiter down")))
	pipeline := newPipeline(t, repo, mock)

	verdict, err := pipeline.Validate(context.Background(), "Erling Haaland", goalsCategory(), nil)
	if err != nil {
		t.Fatalf("arbiter failure must not be a hard error: %v", err)
	}
	if verdict.Valid || verdict.Confidence != 0 {
		t.Errorf("expected zero-confidence rejection, got %+v", verdict)
	}
}

func TestValidate_RepositoryErrorPropagates(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	seedValidationData(t, repo)

	injected := errors.New("database is locked")
	failing := repomock.NewRepository(repo)
	failing.ListActiveEntitiesError = injected

	pipeline := newPipeline(t, failing, arbiter.NewMockClient())
	_, err := pipeline.Validate(context.Background(), "Mohamed Salah", goalsCategory(), nil)
	if !errors.Is(err, injected) {
		t.Errorf("expected injected repository error, got %v", err)
	}
}

func TestValidate_TypeFilterBlocksWrongKind(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	seedValidationData(t, repo)
	mock := arbiter.NewMockClient()
	pipeline := newPipeline(t, repo, mock)

	// The category wants players, so a club name falls through to the
	// no-entity arbiter path
	verdict, err := pipeline.Validate(context.Background(), "Real Madrid", goalsCategory(), nil)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if verdict.Valid {
		t.Error("club answer should not resolve for a player category")
	}
	if verdict.Method != validation.MethodEntityLookup {
		t.Errorf("expected entity_lookup method, got %q", verdict.Method)
	}
}
