package usecase

import (
	"context"
	"fmt"
	"strings"

	"store_service/internal/domain"

	"github.com/sirupsen/logrus"
)

var _ domain.CategoryUseCase = (*categoryUseCase)(nil)

type categoryUseCase struct {
	categoryRepo domain.CategoryRepository
	log          *logrus.Logger
}

func NewCategoryUseCase(repo domain.CategoryRepository, logger *logrus.Logger) domain.CategoryUseCase {
	return &categoryUseCase{
		categoryRepo: repo,
		log:          logger,
	}
}

func (uc *categoryUseCase) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		uc.log.Warn("Use Case: Attempted to create category with empty name")
		return nil, fmt.Errorf("%w: category name cannot be empty", domain.ErrValidation)
	}

	slug, err := uniqueSlug(ctx, category.Name, 0, uc.categoryRepo.SlugExists)
	if err != nil {
		return nil, err
	}
	category.Slug = slug

	uc.log.Infof("Use Case: Attempting to create category '%s'", category.Name)
	created, err := uc.categoryRepo.CreateCategory(ctx, category)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create category '%s': %v", category.Name, err)
		return nil, err
	}
	return created, nil
}

func (uc *categoryUseCase) GetCategoryByID(ctx context.Context, id int) (*domain.Category, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid category ID", domain.ErrValidation)
	}
	return uc.categoryRepo.GetCategoryByID(ctx, id)
}

func (uc *categoryUseCase) UpdateCategory(ctx context.Context, id int, name, description *string) (*domain.Category, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid category ID for update", domain.ErrValidation)
	}

	category, err := uc.categoryRepo.GetCategoryByID(ctx, id)
	if err != nil {
		uc.log.Warnf("Use Case: Category ID %d not found for update: %v", id, err)
		return nil, err
	}

	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, fmt.Errorf("%w: category name cannot be empty", domain.ErrValidation)
		}
		if trimmed != category.Name {
			category.Name = trimmed
			if category.Slug, err = uniqueSlug(ctx, trimmed, id, uc.categoryRepo.SlugExists); err != nil {
				return nil, err
			}
		}
	}
	if description != nil {
		category.Description = *description
	}

	uc.log.Infof("Use Case: Updating category %d", id)
	return uc.categoryRepo.UpdateCategory(ctx, category)
}

func (uc *categoryUseCase) DeleteCategory(ctx context.Context, id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid category ID for delete", domain.ErrValidation)
	}
	uc.log.Infof("Use Case: Deleting category %d; its products become uncategorized", id)
	return uc.categoryRepo.DeleteCategory(ctx, id)
}

func (uc *categoryUseCase) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return uc.categoryRepo.ListCategories(ctx)
}
