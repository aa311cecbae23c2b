package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"store_service/internal/domain"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const orderColumns = `id, order_number, user_id, status, payment_method, total_price, tax_amount, discount_amount,
        shipping_address, billing_address, tracking_number, notes, payment_date, shipping_date, created_at, updated_at`

const orderItemColumns = `id, order_id, product_id, product_name, product_sku, price, quantity, tax_amount, variant`

type postgresOrderRepository struct {
	db  *sql.DB
	log *logrus.Logger
}

func NewPostgresOrderRepository(db *sql.DB, logger *logrus.Logger) domain.OrderRepository {
	return &postgresOrderRepository{
		db:  db,
		log: logger,
	}
}

// jsonArg encodes v for a JSONB parameter. A nil value stores SQL NULL.
func jsonArg(v interface{}) (interface{}, error) {
	switch t := v.(type) {
	case *domain.Address:
		if t == nil {
			return nil, nil
		}
	case map[string]string:
		if len(t) == 0 {
			return nil, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func decodeAddress(raw []byte) (*domain.Address, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	addr := &domain.Address{}
	if err := json.Unmarshal(raw, addr); err != nil {
		return nil, err
	}
	return addr, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var shipping, billing []byte
	var paymentDate, shippingDate sql.NullTime
	err := row.Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.Status,
		&order.PaymentMethod,
		&order.TotalPrice,
		&order.TaxAmount,
		&order.DiscountAmount,
		&shipping,
		&billing,
		&order.TrackingNumber,
		&order.Notes,
		&paymentDate,
		&shippingDate,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if order.ShippingAddress, err = decodeAddress(shipping); err != nil {
		return nil, fmt.Errorf("invalid shipping address: %w", err)
	}
	if order.BillingAddress, err = decodeAddress(billing); err != nil {
		return nil, fmt.Errorf("invalid billing address: %w", err)
	}
	if paymentDate.Valid {
		t := paymentDate.Time
		order.PaymentDate = &t
	}
	if shippingDate.Valid {
		t := shippingDate.Time
		order.ShippingDate = &t
	}
	return order, nil
}

func scanOrderItem(row rowScanner) (*domain.OrderItem, error) {
	item := &domain.OrderItem{}
	var productID sql.NullInt64
	var variant []byte
	err := row.Scan(
		&item.ID,
		&item.OrderID,
		&productID,
		&item.ProductName,
		&item.ProductSKU,
		&item.Price,
		&item.Quantity,
		&item.TaxAmount,
		&variant,
	)
	if err != nil {
		return nil, err
	}
	if productID.Valid {
		id := int(productID.Int64)
		item.ProductID = &id
	}
	if len(variant) > 0 {
		if err := json.Unmarshal(variant, &item.Variant); err != nil {
			return nil, fmt.Errorf("invalid item variant: %w", err)
		}
	}
	return item, nil
}

func (r *postgresOrderRepository) CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	q := executor(ctx, r.db)

	shipping, err := jsonArg(order.ShippingAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: shipping address: %v", domain.ErrValidation, err)
	}
	billing, err := jsonArg(order.BillingAddress)
	if err != nil {
		return nil, fmt.Errorf("%w: billing address: %v", domain.ErrValidation, err)
	}

	orderQuery := `
        INSERT INTO orders (order_number, user_id, status, payment_method, total_price, tax_amount,
                            discount_amount, shipping_address, billing_address, notes)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id, created_at, updated_at`
	err = q.QueryRowContext(ctx, orderQuery,
		order.OrderNumber,
		order.UserID,
		order.Status,
		order.PaymentMethod,
		order.TotalPrice,
		order.TaxAmount,
		order.DiscountAmount,
		shipping,
		billing,
		order.Notes,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if pqErrorCode(err) == pqCheckViolation {
			r.log.Warnf("Repository: Order for user %d violates %s", order.UserID, pqConstraint(err))
			return nil, fmt.Errorf("%w: order data constraint violation (%s)", domain.ErrValidation, pqConstraint(err))
		}
		r.log.Errorf("Repository: Failed to insert order for user %d: %v", order.UserID, err)
		return nil, fmt.Errorf("could not create order entry: %w", err)
	}
	r.log.Infof("Repository: Order entry created with ID: %d for user: %d", order.ID, order.UserID)

	itemQuery := `
        INSERT INTO order_items (order_id, product_id, product_name, product_sku, price, quantity, tax_amount, variant)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id`
	stmt, err := q.PrepareContext(ctx, itemQuery)
	if err != nil {
		r.log.Errorf("Repository: Failed to prepare order item statement: %v", err)
		return nil, fmt.Errorf("could not prepare item statement: %w", err)
	}
	defer stmt.Close()

	for i := range order.Items {
		item := &order.Items[i]
		item.OrderID = order.ID
		variant, err := jsonArg(item.Variant)
		if err != nil {
			return nil, fmt.Errorf("%w: item variant: %v", domain.ErrValidation, err)
		}
		err = stmt.QueryRowContext(ctx,
			order.ID,
			item.ProductID,
			item.ProductName,
			item.ProductSKU,
			item.Price,
			item.Quantity,
			item.TaxAmount,
			variant,
		).Scan(&item.ID)
		if err != nil {
			r.log.Errorf("Repository: Failed to insert order item '%s' (quantity: %d) for order %d: %v", item.ProductName, item.Quantity, order.ID, err)
			return nil, r.translateItemError(err, item)
		}
	}

	r.log.Infof("Repository: Order %d created with %d items", order.ID, len(order.Items))
	return order, nil
}

func (r *postgresOrderRepository) translateItemError(err error, item *domain.OrderItem) error {
	switch pqErrorCode(err) {
	case pqUniqueViolation:
		return fmt.Errorf("%w: product '%s' is already part of the order", domain.ErrConflict, item.ProductName)
	case pqCheckViolation:
		return fmt.Errorf("%w: invalid item data for '%s' (%s)", domain.ErrValidation, item.ProductName, pqConstraint(err))
	case pqForeignKeyViolation:
		return fmt.Errorf("%w: referenced by item '%s'", domain.ErrProductNotFound, item.ProductName)
	}
	return fmt.Errorf("could not create order item '%s': %w", item.ProductName, err)
}

func (r *postgresOrderRepository) GetOrderByID(ctx context.Context, id int) (*domain.Order, error) {
	return r.getOrder(ctx, id, false)
}

func (r *postgresOrderRepository) GetOrderForUpdate(ctx context.Context, id int) (*domain.Order, error) {
	return r.getOrder(ctx, id, true)
}

func (r *postgresOrderRepository) getOrder(ctx context.Context, id int, lock bool) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}

	order, err := scanOrder(executor(ctx, r.db).QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Order with ID %d not found", id)
			return nil, fmt.Errorf("%w: order with id %d", domain.ErrOrderNotFound, id)
		}
		r.log.Errorf("Repository: Failed to get order by ID %d: %v", id, err)
		return nil, fmt.Errorf("could not retrieve order: %w", err)
	}

	items, err := r.getOrderItems(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items

	r.log.Debugf("Repository: Order %d retrieved with %d items (locked: %t)", order.ID, len(order.Items), lock)
	return order, nil
}

func (r *postgresOrderRepository) getOrderItems(ctx context.Context, orderID int) ([]domain.OrderItem, error) {
	query := `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY id`

	rows, err := executor(ctx, r.db).QueryContext(ctx, query, orderID)
	if err != nil {
		r.log.Errorf("Repository: Failed to query order items for order ID %d: %v", orderID, err)
		return nil, fmt.Errorf("could not retrieve order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		item, err := scanOrderItem(rows)
		if err != nil {
			r.log.Errorf("Repository: Failed to scan order item row for order ID %d: %v", orderID, err)
			return nil, fmt.Errorf("error scanning order item: %w", err)
		}
		items = append(items, *item)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Repository: Error during order items iteration for order ID %d: %v", orderID, err)
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}
	return items, nil
}

func (r *postgresOrderRepository) SaveOrderState(ctx context.Context, order *domain.Order) error {
	query := `
        UPDATE orders
        SET status = $1, payment_date = $2, shipping_date = $3, tracking_number = $4, notes = $5, updated_at = NOW()
        WHERE id = $6
        RETURNING updated_at`

	var paymentDate, shippingDate sql.NullTime
	if order.PaymentDate != nil {
		paymentDate = sql.NullTime{Time: *order.PaymentDate, Valid: true}
	}
	if order.ShippingDate != nil {
		shippingDate = sql.NullTime{Time: *order.ShippingDate, Valid: true}
	}

	err := executor(ctx, r.db).QueryRowContext(ctx, query,
		order.Status,
		paymentDate,
		shippingDate,
		order.TrackingNumber,
		order.Notes,
		order.ID,
	).Scan(&order.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Order with ID %d not found for update", order.ID)
			return fmt.Errorf("%w: order with id %d", domain.ErrOrderNotFound, order.ID)
		}
		if pqErrorCode(err) == pqCheckViolation {
			r.log.Warnf("Repository: Invalid status value '%s' for order ID %d: %v", order.Status, order.ID, err)
			return fmt.Errorf("%w: invalid order status %s", domain.ErrValidation, order.Status)
		}
		r.log.Errorf("Repository: Failed to save state of order %d: %v", order.ID, err)
		return fmt.Errorf("could not update order: %w", err)
	}

	r.log.Infof("Repository: Order %d saved with status '%s'", order.ID, order.Status)
	return nil
}

func (r *postgresOrderRepository) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = 10
	case filter.Limit > 100:
		filter.Limit = 100
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	q := executor(ctx, r.db)
	ordersQuery := `SELECT ` + orderColumns + `
        FROM orders
        WHERE user_id = $1 AND ($2::text = '' OR status = $2::text)
        ORDER BY created_at DESC, id DESC
        LIMIT $3 OFFSET $4`
	rows, err := q.QueryContext(ctx, ordersQuery, filter.UserID, string(filter.Status), filter.Limit, filter.Offset)
	if err != nil {
		r.log.Errorf("Repository: Failed to list orders for user ID %d: %v", filter.UserID, err)
		return nil, fmt.Errorf("could not retrieve orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	orderIDs := []int{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			r.log.Errorf("Repository: Failed to scan order row for user ID %d: %v", filter.UserID, err)
			return nil, fmt.Errorf("error scanning order data: %w", err)
		}
		orders = append(orders, *order)
		orderIDs = append(orderIDs, order.ID)
	}
	if err = rows.Err(); err != nil {
		r.log.Errorf("Repository: Error during orders iteration for user ID %d: %v", filter.UserID, err)
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	if len(orders) == 0 {
		r.log.Infof("Repository: No orders found for user ID %d", filter.UserID)
		return orders, nil
	}

	itemsQuery := `SELECT ` + orderItemColumns + `
        FROM order_items
        WHERE order_id = ANY($1::int[])
        ORDER BY order_id, id`
	itemRows, err := q.QueryContext(ctx, itemsQuery, pq.Array(orderIDs))
	if err != nil {
		r.log.Errorf("Repository: Failed to query items for orders %v: %v", orderIDs, err)
		return nil, fmt.Errorf("could not retrieve order items for list: %w", err)
	}
	defer itemRows.Close()

	itemsMap := make(map[int][]domain.OrderItem)
	for itemRows.Next() {
		item, err := scanOrderItem(itemRows)
		if err != nil {
			r.log.Errorf("Repository: Failed to scan order item row during multi-order fetch: %v", err)
			return nil, fmt.Errorf("error scanning order item data for list: %w", err)
		}
		itemsMap[item.OrderID] = append(itemsMap[item.OrderID], *item)
	}
	if err = itemRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items for list: %w", err)
	}

	for i := range orders {
		if items, ok := itemsMap[orders[i].ID]; ok {
			orders[i].Items = items
		} else {
			orders[i].Items = []domain.OrderItem{}
		}
	}

	r.log.Infof("Repository: Retrieved %d orders for user ID %d (limit %d, offset %d)", len(orders), filter.UserID, filter.Limit, filter.Offset)
	return orders, nil
}

func (r *postgresOrderRepository) AddOrderItem(ctx context.Context, item *domain.OrderItem) (*domain.OrderItem, error) {
	variant, err := jsonArg(item.Variant)
	if err != nil {
		return nil, fmt.Errorf("%w: item variant: %v", domain.ErrValidation, err)
	}

	query := `
        INSERT INTO order_items (order_id, product_id, product_name, product_sku, price, quantity, tax_amount, variant)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING id`
	err = executor(ctx, r.db).QueryRowContext(ctx, query,
		item.OrderID,
		item.ProductID,
		item.ProductName,
		item.ProductSKU,
		item.Price,
		item.Quantity,
		item.TaxAmount,
		variant,
	).Scan(&item.ID)
	if err != nil {
		r.log.Errorf("Repository: Failed to add item '%s' to order %d: %v", item.ProductName, item.OrderID, err)
		return nil, r.translateItemError(err, item)
	}

	r.log.Infof("Repository: Item %d added to order %d", item.ID, item.OrderID)
	return item, nil
}

func (r *postgresOrderRepository) DeleteOrderItem(ctx context.Context, orderID, itemID int) (*domain.OrderItem, error) {
	query := `DELETE FROM order_items WHERE id = $1 AND order_id = $2 RETURNING ` + orderItemColumns

	item, err := scanOrderItem(executor(ctx, r.db).QueryRowContext(ctx, query, itemID, orderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			r.log.Warnf("Repository: Item %d not found on order %d", itemID, orderID)
			return nil, fmt.Errorf("%w: item %d on order %d", domain.ErrOrderItemNotFound, itemID, orderID)
		}
		r.log.Errorf("Repository: Failed to delete item %d from order %d: %v", itemID, orderID, err)
		return nil, fmt.Errorf("could not delete order item: %w", err)
	}

	r.log.Infof("Repository: Item %d removed from order %d", itemID, orderID)
	return item, nil
}

func (r *postgresOrderRepository) RecalculateTotal(ctx context.Context, orderID int, taxRate decimal.Decimal) (decimal.Decimal, error) {
	var total decimal.Decimal

	err := withTx(ctx, r.db, r.log, func(ctx context.Context) error {
		q := executor(ctx, r.db)

		var lockedID int
		err := q.QueryRowContext(ctx, `SELECT id FROM orders WHERE id = $1 FOR UPDATE`, orderID).Scan(&lockedID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return fmt.Errorf("%w: order with id %d", domain.ErrOrderNotFound, orderID)
			}
			return fmt.Errorf("could not lock order %d: %w", orderID, err)
		}

		err = q.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(price * quantity), 0) FROM order_items WHERE order_id = $1`, orderID,
		).Scan(&total)
		if err != nil {
			return fmt.Errorf("could not sum order items: %w", err)
		}
		total = total.RoundBank(2)

		_, err = q.ExecContext(ctx,
			`UPDATE orders SET total_price = $1, tax_amount = $2, updated_at = NOW() WHERE id = $3`,
			total, domain.TaxFor(total, taxRate), orderID,
		)
		if err != nil {
			return fmt.Errorf("could not store order total: %w", err)
		}
		return nil
	})
	if err != nil {
		r.log.Errorf("Repository: Failed to recalculate total for order %d: %v", orderID, err)
		return decimal.Zero, err
	}

	r.log.Infof("Repository: Order %d total recalculated to %s", orderID, total.StringFixed(2))
	return total, nil
}
