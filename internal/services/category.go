package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/SigNoz/ecommerce-rest-api/internal/apperrors"
	"github.com/SigNoz/ecommerce-rest-api/internal/cache"
	"github.com/SigNoz/ecommerce-rest-api/internal/models"
)

// CategoryService manages the category tree. Cached products embed their
// categories, so renames and deletes flush the product cache.
type CategoryService struct {
	categories CategoryStore
	cache      cache.ProductCache
}

func NewCategoryService(categories CategoryStore, c cache.ProductCache) *CategoryService {
	if c == nil {
		c = cache.NewMemoryCache(cache.DefaultTTL)
	}
	return &CategoryService{categories: categories, cache: c}
}

// ListCategories returns all categories ordered by name.
func (s *CategoryService) ListCategories(ctx context.Context) ([]models.Category, error) {
	return s.categories.FindAll(ctx)
}

func (s *CategoryService) SearchCategories(ctx context.Context, name string) ([]models.Category, error) {
	return s.categories.FindByName(ctx, strings.TrimSpace(name))
}

func (s *CategoryService) GetCategory(ctx context.Context, id int32) (models.Category, error) {
	c, found, err := s.categories.FindByID(ctx, id)
	if err != nil {
		return models.Category{}, fmt.Errorf("failed to get category: %w", err)
	}
	if !found {
		return models.Category{}, apperrors.NotFound("Category not found")
	}
	return c, nil
}

// validate checks the name and that the parent exists without creating a cycle.
func (s *CategoryService) validate(ctx context.Context, c models.Category) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperrors.Validation("Category name is required")
	}
	if c.ParentCategoryID == nil {
		return nil
	}
	if _, found, err := s.categories.FindByID(ctx, *c.ParentCategoryID); err != nil {
		return fmt.Errorf("failed to get parent category: %w", err)
	} else if !found {
		return apperrors.Validation("Parent category not found")
	}
	return models.ValidateParent(c.ID, c.ParentCategoryID, func(id int32) (*int32, error) {
		return s.categories.ParentOf(ctx, id)
	})
}

func (s *CategoryService) CreateCategory(ctx context.Context, c models.Category) (int32, error) {
	c.ID = 0
	if err := s.validate(ctx, c); err != nil {
		return 0, err
	}
	return s.categories.Create(ctx, c)
}

// UpdateCategory stores c and returns the category as now persisted.
func (s *CategoryService) UpdateCategory(ctx context.Context, c models.Category) (models.Category, error) {
	if err := s.validate(ctx, c); err != nil {
		return models.Category{}, err
	}
	found, err := s.categories.Update(ctx, c)
	if err != nil {
		return models.Category{}, err
	}
	if !found {
		return models.Category{}, apperrors.NotFound("Category not found")
	}
	s.cache.InvalidateAll(ctx)
	return s.GetCategory(ctx, c.ID)
}

func (s *CategoryService) DeleteCategory(ctx context.Context, id int32) error {
	deleted, err := s.categories.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperrors.NotFound("Category not found")
	}
	s.cache.InvalidateAll(ctx)
	return nil
}
