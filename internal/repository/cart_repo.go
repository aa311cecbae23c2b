package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"store_service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type postgresCartRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresCartRepository(db *sql.DB, logger *logrus.Logger) domain.CartRepository {
	return &postgresCartRepository{
		db:  db,
		log: logger,
	}
}

func (r *postgresCartRepository) GetOrCreateCart(ctx context.Context, userID int, expiresAt time.Time) (*domain.Cart, error) {
	// The no-op DO UPDATE makes RETURNING yield the existing row on conflict.
	query := `
        INSERT INTO carts (user_id, expires_at)
        VALUES ($1, $2)
        ON CONFLICT (user_id) DO UPDATE SET updated_at = carts.updated_at
        RETURNING id, user_id, is_active, expires_at, created_at, updated_at`

	cart := &domain.Cart{}
	err := executor(ctx, r.db).QueryRowContext(ctx, query, userID, expiresAt).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.IsActive,
		&cart.ExpiresAt,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		r.log.Errorf("Repository: Failed to get or create cart for user %d: %v", userID, err)
		return nil, fmt.Errorf("could not get or create cart: %w", err)
	}

	items, err := r.getCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return cart, nil
}

func (r *postgresCartRepository) GetCartForUpdate(ctx context.Context, userID int) (*domain.Cart, error) {
	query := `
        SELECT id, user_id, is_active, expires_at, created_at, updated_at
        FROM carts
        WHERE user_id = $1
        FOR UPDATE`

	cart := &domain.Cart{}
	err := executor(ctx, r.db).QueryRowContext(ctx, query, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.IsActive,
		&cart.ExpiresAt,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: User %d has no cart", userID)
			return nil, fmt.Errorf("%w: user %d has no cart", domain.ErrEmptyCart, userID)
		}
		r.log.Errorf("Repository: Failed to lock cart for user %d: %v", userID, err)
		return nil, fmt.Errorf("could not lock cart: %w", err)
	}

	items, err := r.getCartItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}
	cart.Items = items
	return cart, nil
}

func (r *postgresCartRepository) getCartItems(ctx context.Context, cartID int) ([]domain.CartItem, error) {
	query := `
        SELECT ci.id, ci.cart_id, ci.product_id, p.name, p.sku, p.price, ci.price_at_addition, ci.quantity, ci.added_at
        FROM cart_items ci
        JOIN products p ON p.id = ci.product_id
        WHERE ci.cart_id = $1
        ORDER BY ci.id`

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, cartID)
	if err != nil {
		r.log.Errorf("Repository: Failed to query items for cart %d: %v", cartID, err)
		return nil, fmt.Errorf("could not retrieve cart items: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		var item domain.CartItem
		if err := rows.Scan(
			&item.ID,
			&item.CartID,
			&item.ProductID,
			&item.ProductName,
			&item.ProductSKU,
			&item.CurrentPrice,
			&item.PriceAtAddition,
			&item.Quantity,
			&item.AddedAt,
		); err != nil {
			r.log.Errorf("Repository: Failed to scan cart item for cart %d: %v", cartID, err)
			return nil, fmt.Errorf("error scanning cart item: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Repository: Error iterating items for cart %d: %v", cartID, err)
		return nil, fmt.Errorf("error iterating cart items: %w", err)
	}

	r.log.Debugf("Repository: Retrieved %d items for cart %d", len(items), cartID)
	return items, nil
}

func (r *postgresCartRepository) AddItem(ctx context.Context, cartID, productID, quantity int, price decimal.Decimal) (*domain.CartItem, error) {
	query := `
        INSERT INTO cart_items (cart_id, product_id, quantity, price_at_addition)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (cart_id, product_id)
        DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity
        RETURNING id, cart_id, product_id, price_at_addition, quantity, added_at`

	item := &domain.CartItem{}
	err := executor(ctx, r.db).QueryRowContext(ctx, query, cartID, productID, quantity, price).Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.PriceAtAddition,
		&item.Quantity,
		&item.AddedAt,
	)
	if err != nil {
		switch pqErrorCode(err) {
		case pqForeignKeyViolation:
			r.log.Warnf("Repository: Cart %d add references missing product %d", cartID, productID)
			return nil, fmt.Errorf("%w: product with id %d", domain.ErrProductNotFound, productID)
		case pqCheckViolation:
			return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrValidation)
		}
		r.log.Errorf("Repository: Failed to add product %d to cart %d: %v", productID, cartID, err)
		return nil, fmt.Errorf("could not add cart item: %w", err)
	}

	r.log.Infof("Repository: Cart %d now holds %d of product %d", cartID, item.Quantity, productID)
	return item, nil
}

func (r *postgresCartRepository) GetItemForUpdate(ctx context.Context, cartID, productID int) (*domain.CartItem, error) {
	query := `
        SELECT id, cart_id, product_id, price_at_addition, quantity, added_at
        FROM cart_items
        WHERE cart_id = $1 AND product_id = $2
        FOR UPDATE`

	item := &domain.CartItem{}
	err := executor(ctx, r.db).QueryRowContext(ctx, query, cartID, productID).Scan(
		&item.ID,
		&item.CartID,
		&item.ProductID,
		&item.PriceAtAddition,
		&item.Quantity,
		&item.AddedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Product %d is not in cart %d", productID, cartID)
			return nil, fmt.Errorf("%w: product %d", domain.ErrItemNotInCart, productID)
		}
		r.log.Errorf("Repository: Failed to lock cart item (cart %d, product %d): %v", cartID, productID, err)
		return nil, fmt.Errorf("could not get cart item: %w", err)
	}
	return item, nil
}

func (r *postgresCartRepository) SetItemQuantity(ctx context.Context, itemID, quantity int) error {
	result, err := executor(ctx, r.db).ExecContext(ctx, `UPDATE cart_items SET quantity = $1 WHERE id = $2`, quantity, itemID)
	if err != nil {
		if pqErrorCode(err) == pqCheckViolation {
			return fmt.Errorf("%w: quantity must be at least 1", domain.ErrValidation)
		}
		r.log.Errorf("Repository: Failed to set quantity of cart item %d: %v", itemID, err)
		return fmt.Errorf("could not update cart item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: cart item %d", domain.ErrItemNotInCart, itemID)
	}
	return nil
}

func (r *postgresCartRepository) DeleteItem(ctx context.Context, itemID int) error {
	result, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM cart_items WHERE id = $1`, itemID)
	if err != nil {
		r.log.Errorf("Repository: Failed to delete cart item %d: %v", itemID, err)
		return fmt.Errorf("could not delete cart item: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: cart item %d", domain.ErrItemNotInCart, itemID)
	}
	return nil
}

func (r *postgresCartRepository) ClearCart(ctx context.Context, cartID int) error {
	result, err := executor(ctx, r.db).ExecContext(ctx, `DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	if err != nil {
		r.log.Errorf("Repository: Failed to clear cart %d: %v", cartID, err)
		return fmt.Errorf("could not clear cart: %w", err)
	}
	n, _ := result.RowsAffected()
	r.log.Infof("Repository: Cleared %d items from cart %d", n, cartID)
	return nil
}
