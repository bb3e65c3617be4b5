package validation

import (
	"context"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/mbeaufort/pitchrally/internal/models"
	"github.com/mbeaufort/pitchrally/internal/repository"
)

// similarityThreshold accepts near-miss spellings and word-order swaps
// while rejecting unrelated names.
const similarityThreshold = 0.7

// containment needs a minimum answer length or single letters would
// match everything
const minContainmentLen = 3

// Resolver matches free-text answers to known entities.
type Resolver struct {
	entities repository.EntityRepository
}

// NewResolver creates a resolver backed by the entity repository
func NewResolver(entities repository.EntityRepository) *Resolver {
	return &Resolver{entities: entities}
}

// Resolve returns the closest entity for an answer, or nil when nothing
// is close enough. entityType filters candidates when non-empty.
func (r *Resolver) Resolve(ctx context.Context, answer string, entityType models.EntityType) (*models.Entity, error) {
	normalized := Normalize(answer)
	if normalized == "" {
		return nil, nil
	}

	candidates, err := r.entities.ListActiveEntities(ctx, entityType)
	if err != nil {
		return nil, err
	}

	var best *models.Entity
	bestScore := 0.0
	for i := range candidates {
		score := similarity(normalized, Normalize(candidates[i].Name))
		if score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}
	if best != nil && bestScore >= similarityThreshold {
		return best, nil
	}

	// Substring fallback catches partial names like "salah" for
	// "Mohamed Salah"
	if len(normalized) >= minContainmentLen {
		for i := range candidates {
			name := Normalize(candidates[i].Name)
			if name == "" {
				continue
			}
			if strings.Contains(name, normalized) || strings.Contains(normalized, name) {
				return &candidates[i], nil
			}
		}
	}

	return nil, nil
}

// similarity is normalized Levenshtein distance mapped to [0, 1]
func similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(longest)
}
