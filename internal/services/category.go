package services

import (
	"context"
	stderrors "errors"

	"github.com/mbeaufort/pitchrally/internal/logger"
	"github.com/mbeaufort/pitchrally/internal/models"
	"github.com/mbeaufort/pitchrally/internal/repository"
)

// CategoryService handles trivia category reads
type CategoryService struct {
	log  logger.Logger
	repo repository.CategoryRepository
}

// NewCategoryService creates a new CategoryService
func NewCategoryService(log logger.Logger, repo repository.CategoryRepository) *CategoryService {
	return &CategoryService{log: log, repo: repo}
}

// ListCategories returns all active categories
func (s *CategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.repo.ListCategories(ctx)
}

// GetCategory returns a category by ID
func (s *CategoryService) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	category, err := s.repo.GetCategory(ctx, id)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}

// RandomCategory returns a random active category, optionally filtered
// by difficulty
func (s *CategoryService) RandomCategory(ctx context.Context, difficulty string) (*models.Category, error) {
	category, err := s.repo.RandomCategory(ctx, difficulty)
	if err != nil {
		if stderrors.Is(err, repository.ErrNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, err
	}
	return category, nil
}
