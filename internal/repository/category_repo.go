package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"store_service/internal/domain"

	"github.com/sirupsen/logrus"
)

type postgresCategoryRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresCategoryRepository(db *sql.DB, logger *logrus.Logger) domain.CategoryRepository {
	return &postgresCategoryRepository{
		db:  db,
		log: logger,
	}
}

func (r *postgresCategoryRepository) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
        INSERT INTO categories (name, slug, description)
        VALUES ($1, $2, $3)
        RETURNING id, created_at`

	err := executor(ctx, r.db).QueryRowContext(ctx, query, category.Name, category.Slug, category.Description).
		Scan(&category.ID, &category.CreatedAt)
	if err != nil {
		if pqErrorCode(err) == pqUniqueViolation {
			r.log.Warnf("Repository: Attempted to create duplicate category: %s", category.Name)
			return nil, fmt.Errorf("%w: category with name '%s'", domain.ErrConflict, category.Name)
		}
		r.log.Errorf("Repository: Failed to create category '%s': %v", category.Name, err)
		return nil, fmt.Errorf("could not create category: %w", err)
	}

	r.log.Infof("Repository: Category created with ID: %d, Name: %s", category.ID, category.Name)
	return category, nil
}

func (r *postgresCategoryRepository) GetCategoryByID(ctx context.Context, id int) (*domain.Category, error) {
	query := `SELECT id, name, slug, description, created_at FROM categories WHERE id = $1`
	category := &domain.Category{}

	err := executor(ctx, r.db).QueryRowContext(ctx, query, id).
		Scan(&category.ID, &category.Name, &category.Slug, &category.Description, &category.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Category with ID %d not found", id)
			return nil, fmt.Errorf("%w: category with id %d", domain.ErrCategoryNotFound, id)
		}
		r.log.Errorf("Repository: Failed to get category by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not get category by id: %w", err)
	}
	return category, nil
}

func (r *postgresCategoryRepository) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	query := `
        UPDATE categories
        SET name = $1, slug = $2, description = $3
        WHERE id = $4
        RETURNING created_at`

	err := executor(ctx, r.db).QueryRowContext(ctx, query, category.Name, category.Slug, category.Description, category.ID).
		Scan(&category.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Category with ID %d not found for update", category.ID)
			return nil, fmt.Errorf("%w: category with id %d", domain.ErrCategoryNotFound, category.ID)
		}
		if pqErrorCode(err) == pqUniqueViolation {
			r.log.Warnf("Repository: Category rename to duplicate name '%s'", category.Name)
			return nil, fmt.Errorf("%w: category with name '%s'", domain.ErrConflict, category.Name)
		}
		r.log.Errorf("Repository: Failed to update category ID %d: %v", category.ID, err)
		return nil, fmt.Errorf("could not update category: %w", err)
	}

	r.log.Infof("Repository: Category %d updated", category.ID)
	return category, nil
}

func (r *postgresCategoryRepository) DeleteCategory(ctx context.Context, id int) error {
	result, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id)
	if err != nil {
		r.log.Errorf("Repository: Failed to delete category ID %d: %v", id, err)
		return fmt.Errorf("could not delete category: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not confirm category deletion: %w", err)
	}
	if rowsAffected == 0 {
		r.log.Warnf("Repository: Attempted to delete non-existent category ID %d", id)
		return fmt.Errorf("%w: category with id %d", domain.ErrCategoryNotFound, id)
	}
	r.log.Infof("Repository: Category deleted with ID: %d", id)
	return nil
}

func (r *postgresCategoryRepository) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := executor(ctx, r.db).QueryContext(ctx,
		`SELECT id, name, slug, description, created_at FROM categories ORDER BY name ASC`)
	if err != nil {
		r.log.Errorf("Repository: Failed to list categories: %v", err)
		return nil, fmt.Errorf("could not list categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.CreatedAt); err != nil {
			r.log.Errorf("Repository: Failed to scan category row: %v", err)
			return nil, fmt.Errorf("error scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating categories: %w", err)
	}
	return categories, nil
}

func (r *postgresCategoryRepository) SlugExists(ctx context.Context, slug string, excludeID int) (bool, error) {
	var exists bool
	err := executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM categories WHERE slug = $1 AND id <> $2)`, slug, excludeID,
	).Scan(&exists)
	if err != nil {
		r.log.Errorf("Repository: Failed to check category slug '%s': %v", slug, err)
		return false, fmt.Errorf("could not check category slug: %w", err)
	}
	return exists, nil
}
