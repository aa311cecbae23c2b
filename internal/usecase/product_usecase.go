package usecase

import (
	"context"
	"fmt"
	"strings"

	"store_service/internal/domain"

	"github.com/sirupsen/logrus"
)

var _ domain.ProductUseCase = (*productUseCase)(nil)

type productUseCase struct {
	productRepo  domain.ProductRepository
	categoryRepo domain.CategoryRepository
	log          *logrus.Logger
}

func NewProductUseCase(pRepo domain.ProductRepository, cRepo domain.CategoryRepository, logger *logrus.Logger) domain.ProductUseCase {
	return &productUseCase{
		productRepo:  pRepo,
		categoryRepo: cRepo,
		log:          logger,
	}
}

func (uc *productUseCase) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	product.Name = strings.TrimSpace(product.Name)
	if product.Name == "" {
		uc.log.Warn("Use Case: Attempted to create product with empty name")
		return nil, fmt.Errorf("%w: product name cannot be empty", domain.ErrValidation)
	}
	if product.Price.LessThan(domain.MinProductPrice) {
		uc.log.Warnf("Use Case: Attempted to create product '%s' with invalid price: %s", product.Name, product.Price)
		return nil, fmt.Errorf("%w: product price must be at least %s", domain.ErrValidation, domain.MinProductPrice)
	}
	if product.Stock < 0 {
		uc.log.Warnf("Use Case: Attempted to create product '%s' with negative stock: %d", product.Name, product.Stock)
		return nil, fmt.Errorf("%w: product stock cannot be negative", domain.ErrValidation)
	}
	if product.CategoryID != 0 {
		if _, err := uc.categoryRepo.GetCategoryByID(ctx, product.CategoryID); err != nil {
			uc.log.Warnf("Use Case: Category ID %d not found during product creation: %v", product.CategoryID, err)
			return nil, err
		}
	}

	slug, err := uniqueSlug(ctx, product.Name, 0, uc.productRepo.SlugExists)
	if err != nil {
		return nil, err
	}
	product.Slug = slug
	product.SKU = strings.TrimSpace(product.SKU)
	if product.SKU == "" {
		product.SKU = newSKU()
	}

	uc.log.Infof("Use Case: Attempting to create product '%s' (slug %s, sku %s)", product.Name, product.Slug, product.SKU)
	created, err := uc.productRepo.CreateProduct(ctx, product)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to create product '%s': %v", product.Name, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Product '%s' created with ID %d", created.Name, created.ID)
	return created, nil
}

func (uc *productUseCase) GetProductByID(ctx context.Context, id int) (*domain.Product, error) {
	if id <= 0 {
		uc.log.Warnf("Use Case: Attempted to get product with invalid ID: %d", id)
		return nil, fmt.Errorf("%w: invalid product ID", domain.ErrValidation)
	}
	return uc.productRepo.GetProductByID(ctx, id)
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, id int, update domain.ProductUpdate) (*domain.Product, error) {
	if id <= 0 {
		uc.log.Warnf("Use Case: Attempted update with invalid product ID: %d", id)
		return nil, fmt.Errorf("%w: invalid product ID for update", domain.ErrValidation)
	}

	current, err := uc.productRepo.GetProductByID(ctx, id)
	if err != nil {
		uc.log.Warnf("Use Case: Product ID %d not found for update: %v", id, err)
		return nil, err
	}
	if update.IsEmpty() {
		return current, nil
	}

	slug := ""
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: product name cannot be empty if provided for update", domain.ErrValidation)
		}
		update.Name = &name
		if name != current.Name {
			if slug, err = uniqueSlug(ctx, name, id, uc.productRepo.SlugExists); err != nil {
				return nil, err
			}
		}
	}
	if update.Price != nil && update.Price.LessThan(domain.MinProductPrice) {
		return nil, fmt.Errorf("%w: product price must be at least %s", domain.ErrValidation, domain.MinProductPrice)
	}
	if update.Stock != nil && *update.Stock < 0 {
		return nil, fmt.Errorf("%w: product stock cannot be negative", domain.ErrValidation)
	}
	if update.CategoryID != nil && *update.CategoryID != 0 {
		if _, err := uc.categoryRepo.GetCategoryByID(ctx, *update.CategoryID); err != nil {
			return nil, err
		}
	}

	uc.log.Infof("Use Case: Updating product %d", id)
	return uc.productRepo.UpdateProduct(ctx, id, update, slug)
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, id int) error {
	if id <= 0 {
		return fmt.Errorf("%w: invalid product ID for delete", domain.ErrValidation)
	}
	uc.log.Infof("Use Case: Deleting product %d; order history keeps its snapshots", id)
	return uc.productRepo.DeleteProduct(ctx, id)
}

func (uc *productUseCase) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	if filter.CategoryID < 0 {
		return nil, fmt.Errorf("%w: invalid category ID filter", domain.ErrValidation)
	}
	return uc.productRepo.ListProducts(ctx, filter)
}
