package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"store_service/internal/domain"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

const productColumns = `id, name, description, sku, slug, price, stock, available, featured, category_id, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

type postgresProductRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresProductRepository(db *sql.DB, logger *logrus.Logger) domain.ProductRepository {
	return &postgresProductRepository{
		db:  db,
		log: logger,
	}
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	var categoryID sql.NullInt64
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.SKU,
		&product.Slug,
		&product.Price,
		&product.Stock,
		&product.Available,
		&product.Featured,
		&categoryID,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if categoryID.Valid {
		product.CategoryID = int(categoryID.Int64)
	}
	return product, nil
}

func nullableCategory(id int) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: int64(id), Valid: true}
}

func (r *postgresProductRepository) translateWriteError(err error, product string, categoryID int) error {
	switch pqErrorCode(err) {
	case pqForeignKeyViolation:
		r.log.Warnf("Repository: Product '%s' references non-existent category ID: %d", product, categoryID)
		return fmt.Errorf("%w: category with id %d does not exist", domain.ErrCategoryNotFound, categoryID)
	case pqCheckViolation:
		r.log.Warnf("Repository: Check constraint violation for product '%s': %v", product, err)
		return fmt.Errorf("%w: product data constraint violation (%s)", domain.ErrValidation, pqConstraint(err))
	case pqUniqueViolation:
		r.log.Warnf("Repository: Duplicate product '%s': %v", product, err)
		return fmt.Errorf("%w: product with the same %s", domain.ErrConflict, pqConstraint(err))
	}
	return nil
}

func (r *postgresProductRepository) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
        INSERT INTO products (name, description, sku, slug, price, stock, available, featured, category_id)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at, updated_at`

	err := executor(ctx, r.db).QueryRowContext(ctx, query,
		product.Name,
		product.Description,
		product.SKU,
		product.Slug,
		product.Price,
		product.Stock,
		product.Available,
		product.Featured,
		nullableCategory(product.CategoryID),
	).Scan(&product.ID, &product.CreatedAt, &product.UpdatedAt)
	if err != nil {
		if mapped := r.translateWriteError(err, product.Name, product.CategoryID); mapped != nil {
			return nil, mapped
		}
		r.log.Errorf("Repository: Failed to create product '%s': %v", product.Name, err)
		return nil, fmt.Errorf("could not create product: %w", err)
	}

	r.log.Infof("Repository: Product created with ID: %d, Name: %s", product.ID, product.Name)
	return product, nil
}

func (r *postgresProductRepository) GetProductByID(ctx context.Context, id int) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	product, err := scanProduct(executor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Product with ID %d not found", id)
			return nil, fmt.Errorf("%w: product with id %d", domain.ErrProductNotFound, id)
		}
		r.log.Errorf("Repository: Failed to get product by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not get product by id: %w", err)
	}
	return product, nil
}

func (r *postgresProductRepository) GetProductsForUpdate(ctx context.Context, ids []int) (map[int]*domain.Product, error) {
	products := make(map[int]*domain.Product, len(ids))
	if len(ids) == 0 {
		return products, nil
	}

	query := `SELECT ` + productColumns + `
        FROM products
        WHERE id = ANY($1::int[])
        ORDER BY id
        FOR UPDATE`

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		r.log.Errorf("Repository: Failed to lock products %v: %v", ids, err)
		return nil, fmt.Errorf("could not lock products: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			r.log.Errorf("Repository: Failed to scan locked product row: %v", err)
			return nil, fmt.Errorf("error scanning product: %w", err)
		}
		products[product.ID] = product
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Repository: Error iterating locked products: %v", err)
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	r.log.Debugf("Repository: Locked %d of %d requested products", len(products), len(ids))
	return products, nil
}

func (r *postgresProductRepository) UpdateProduct(ctx context.Context, id int, update domain.ProductUpdate, slug string) (*domain.Product, error) {
	setClauses := []string{}
	args := []interface{}{}

	set := func(column string, value interface{}) {
		args = append(args, value)
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Name != nil {
		set("name", *update.Name)
	}
	if slug != "" {
		set("slug", slug)
	}
	if update.Description != nil {
		set("description", *update.Description)
	}
	if update.Price != nil {
		set("price", *update.Price)
	}
	if update.Stock != nil {
		set("stock", *update.Stock)
	}
	if update.Available != nil {
		set("available", *update.Available)
	}
	if update.Featured != nil {
		set("featured", *update.Featured)
	}
	categoryID := 0
	if update.CategoryID != nil {
		categoryID = *update.CategoryID
		set("category_id", nullableCategory(categoryID))
	}

	if len(setClauses) == 0 {
		r.log.Infof("Repository: No fields provided for product update ID %d. Returning current product.", id)
		return r.GetProductByID(ctx, id)
	}

	args = append(args, id)
	query := "UPDATE products SET " + strings.Join(setClauses, ", ") + ", updated_at = NOW()" +
		fmt.Sprintf(" WHERE id = $%d RETURNING ", len(args)) + productColumns

	r.log.Debugf("Repository: Executing partial update for product ID %d: %s", id, query)

	product, err := scanProduct(executor(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Product with ID %d not found for update", id)
			return nil, fmt.Errorf("%w: product with id %d", domain.ErrProductNotFound, id)
		}
		if mapped := r.translateWriteError(err, fmt.Sprint(id), categoryID); mapped != nil {
			return nil, mapped
		}
		r.log.Errorf("Repository: Failed to update product ID %d: %v", id, err)
		return nil, fmt.Errorf("could not update product: %w", err)
	}

	r.log.Infof("Repository: Product %d updated", id)
	return product, nil
}

func (r *postgresProductRepository) AdjustStock(ctx context.Context, id int, delta int) (int, error) {
	query := `
        UPDATE products
        SET stock = stock + $1, updated_at = NOW()
        WHERE id = $2
        RETURNING stock`

	var stock int
	err := executor(ctx, r.db).QueryRowContext(ctx, query, delta, id).Scan(&stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Product with ID %d not found for stock adjustment", id)
			return 0, fmt.Errorf("%w: product with id %d", domain.ErrProductNotFound, id)
		}
		if pqErrorCode(err) == pqCheckViolation {
			r.log.Warnf("Repository: Stock adjustment of %d would make product %d negative", delta, id)
			return 0, fmt.Errorf("%w: product %d", domain.ErrInsufficientStock, id)
		}
		r.log.Errorf("Repository: Failed to adjust stock for product %d: %v", id, err)
		return 0, fmt.Errorf("could not adjust stock: %w", err)
	}

	r.log.Infof("Repository: Stock for product %d adjusted by %d to %d", id, delta, stock)
	return stock, nil
}

func (r *postgresProductRepository) DeleteProduct(ctx context.Context, id int) error {
	result, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		r.log.Errorf("Repository: Failed to delete product ID %d: %v", id, err)
		return fmt.Errorf("could not delete product: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		r.log.Errorf("Repository: Failed to get rows affected after deleting product ID %d: %v", id, err)
		return fmt.Errorf("could not confirm product deletion: %w", err)
	}
	if rowsAffected == 0 {
		r.log.Warnf("Repository: Attempted to delete non-existent product ID %d", id)
		return fmt.Errorf("%w: product with id %d", domain.ErrProductNotFound, id)
	}
	r.log.Infof("Repository: Product deleted with ID: %d", id)
	return nil
}

func (r *postgresProductRepository) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	if filter.Limit <= 0 {
		filter.Limit = 10
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	where := []string{}
	args := []interface{}{}
	add := func(clause string, value interface{}) {
		args = append(args, value)
		where = append(where, fmt.Sprintf(clause, len(args)))
	}
	if filter.CategoryID > 0 {
		add("category_id = $%d", filter.CategoryID)
	}
	if filter.Available != nil {
		add("available = $%d", *filter.Available)
	}
	if filter.Featured != nil {
		add("featured = $%d", *filter.Featured)
	}
	if filter.Search != "" {
		add("name ILIKE '%%' || $%d || '%%'", filter.Search)
	}

	query := `SELECT ` + productColumns + ` FROM products`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	args = append(args, filter.Limit, filter.Offset)
	query += fmt.Sprintf(" ORDER BY id ASC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Errorf("Repository: Failed to list products (limit %d, offset %d): %v", filter.Limit, filter.Offset, err)
		return nil, fmt.Errorf("could not list products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			r.log.Errorf("Repository: Failed to scan product row: %v", err)
			return nil, fmt.Errorf("error scanning product: %w", err)
		}
		products = append(products, *product)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Repository: Error iterating product rows: %v", err)
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	r.log.Infof("Repository: Listed %d products (limit %d, offset %d)", len(products), filter.Limit, filter.Offset)
	return products, nil
}

func (r *postgresProductRepository) SlugExists(ctx context.Context, slug string, excludeID int) (bool, error) {
	var exists bool
	err := executor(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE slug = $1 AND id <> $2)`, slug, excludeID,
	).Scan(&exists)
	if err != nil {
		r.log.Errorf("Repository: Failed to check product slug '%s': %v", slug, err)
		return false, fmt.Errorf("could not check product slug: %w", err)
	}
	return exists, nil
}
