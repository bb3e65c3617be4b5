package validation

import (
	"context"
	"fmt"
	"time"

	"github.com/mbeaufort/pitchrally/internal/errors"
	"github.com/mbeaufort/pitchrally/internal/logger"
	"github.com/mbeaufort/pitchrally/internal/models"
	"github.com/mbeaufort/pitchrally/internal/repository"
	"github.com/mbeaufort/pitchrally/pkg/arbiter"
)

// Method values recorded on verdicts.
const (
	MethodDuplicate    = "duplicate_check"
	MethodEntityLookup = "entity_lookup"
	MethodRuleBased    = "rule_based"
	MethodLLMVerified  = "llm_verified"
	MethodLLMFallback  = "llm_fallback"
	MethodFailed       = "failed_validation"
)

// Arbiter confidence gates. No resolved entity demands less arbiter
// confidence than overriding a failed rule check; the asymmetry is
// deliberate and must hold.
const (
	fallbackConfidenceGate = 0.7
	verifyConfidenceGate   = 0.8
)

// Verdict is the pipeline's decision about one answer.
type Verdict struct {
	Valid  bool
	Reason string
	Method string
	// Entity is the resolved entity, nil when no match was found.
	Entity *models.Entity
	// Facts is the stored-fact evidence backing a rule_based verdict.
	Facts []models.Fact
	// ArbiterFacts are fact claims from the arbiter, present on
	// llm_verified verdicts when the arbiter supplied them.
	ArbiterFacts      []arbiter.VerifiedFact
	Confidence        float64
	NeedsFactCreation bool
	NeedsVerification bool
}

// Pipeline validates answers against a category: duplicates first, then
// stored facts, then the external arbiter. Deterministic sources are
// trusted before probabilistic ones.
type Pipeline struct {
	resolver *Resolver
	facts    repository.FactRepository
	judge    arbiter.Client
	timeout  time.Duration
	log      logger.Logger
}

// NewPipeline creates a validation pipeline
func NewPipeline(entities repository.EntityRepository, facts repository.FactRepository, judge arbiter.Client, timeout time.Duration, log logger.Logger) *Pipeline {
	if timeout <= 0 {
		timeout = arbiter.DefaultTimeout
	}
	return &Pipeline{
		resolver: NewResolver(entities),
		facts:    facts,
		judge:    judge,
		timeout:  timeout,
		log:      log,
	}
}

// Validate runs the staged pipeline and returns the first confident
// verdict. Repository failures are returned as errors; arbiter failures
// degrade to a zero-confidence rejection so a live rally never stalls
// on the judging service.
func (p *Pipeline) Validate(ctx context.Context, answer string, category *models.Category, prior []models.AnswerRecord) (*Verdict, error) {
	normalized := Normalize(answer)

	// Stage 1: duplicate check. Authoritative regardless of whether the
	// answer would otherwise be valid.
	for _, record := range prior {
		if Normalize(record.AnswerText) == normalized {
			return &Verdict{
				Valid:  false,
				Reason: "duplicate",
				Method: MethodDuplicate,
			}, nil
		}
	}

	// Stage 2: entity resolution
	entity, err := p.resolver.Resolve(ctx, answer, category.Predicate.Type)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInternal, "resolving entity")
	}
	if entity == nil {
		verdict := p.askArbiter(ctx, answer, category, "")
		if verdict.Valid && verdict.Confidence > fallbackConfidenceGate {
			return &Verdict{
				Valid:             true,
				Reason:            verdict.Reason,
				Method:            MethodLLMFallback,
				Confidence:        verdict.Confidence,
				NeedsVerification: true,
			}, nil
		}
		reason := verdict.Reason
		if reason == "" {
			reason = "no matching player or club"
		}
		return &Verdict{
			Valid:      false,
			Reason:     reason,
			Method:     MethodEntityLookup,
			Confidence: verdict.Confidence,
		}, nil
	}

	// Stage 3: rule-based predicate check against stored facts
	evidence, satisfied, err := p.checkPredicate(ctx, entity, category)
	if err != nil {
		return nil, err
	}
	if satisfied {
		return &Verdict{
			Valid:      true,
			Reason:     "meets the category requirements",
			Method:     MethodRuleBased,
			Entity:     entity,
			Facts:      evidence,
			Confidence: 1,
		}, nil
	}

	// Stage 4: arbiter fallback with the resolved entity
	verdict := p.askArbiter(ctx, answer, category, entity.Name)
	if verdict.Valid && verdict.Confidence > verifyConfidenceGate {
		return &Verdict{
			Valid:             true,
			Reason:            verdict.Reason,
			Method:            MethodLLMVerified,
			Entity:            entity,
			ArbiterFacts:      verdict.Facts,
			Confidence:        verdict.Confidence,
			NeedsFactCreation: true,
		}, nil
	}

	// The rule check already failed, so name the entity in the rejection
	// rather than echoing the arbiter's generic explanation.
	return &Verdict{
		Valid:      false,
		Reason:     fmt.Sprintf("%s doesn't meet all requirements", entity.Name),
		Method:     MethodFailed,
		Entity:     entity,
		Confidence: verdict.Confidence,
	}, nil
}

// checkPredicate tests every condition of the category predicate against
// the entity's stored facts. A condition passes when ANY matching fact
// satisfies its operator; all conditions must pass. A predicate with no
// conditions is never satisfiable here.
func (p *Pipeline) checkPredicate(ctx context.Context, entity *models.Entity, category *models.Category) ([]models.Fact, bool, error) {
	conditions := category.Predicate.Conditions
	if len(conditions) == 0 {
		return nil, false, nil
	}

	var evidence []models.Fact
	for _, cond := range conditions {
		facts, err := p.facts.FindFacts(ctx, entity.ID, cond.FactType, cond.Scope, cond.Season)
		if err != nil {
			return nil, false, errors.Wrap(err, errors.ErrInternal, "loading facts")
		}

		found := false
		for _, fact := range facts {
			if compare(fact.Value, cond.Op, cond.Value) {
				evidence = append(evidence, fact)
				found = true
				break
			}
		}
		if !found {
			return nil, false, nil
		}
	}
	return evidence, true, nil
}

// askArbiter judges an answer under a bounded timeout. Failures become a
// zero-confidence rejection, never an error.
func (p *Pipeline) askArbiter(ctx context.Context, answer string, category *models.Category, entityName string) *arbiter.Verdict {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	verdict, err := p.judge.Judge(ctx, arbiter.Question{
		Answer:        answer,
		CategoryTitle: category.Title,
		EntityName:    entityName,
		Season:        category.Season,
	})
	if err != nil {
		p.log.Warn("Arbiter call failed, treating as rejection", "error", err, "answer", answer, "category", category.ID)
		return &arbiter.Verdict{Valid: false, Confidence: 0, Reason: "could not be verified"}
	}
	return verdict
}

func compare(value float64, op string, target float64) bool {
	switch op {
	case ">=":
		return value >= target
	case ">":
		return value > target
	case "<=":
		return value <= target
	case "<":
		return value < target
	case "==", "=":
		return value == target
	case "!=":
		return value != target
	default:
		return false
	}
}
