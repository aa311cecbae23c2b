package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"store_service/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var _ domain.OrderUseCase = (*orderUseCase)(nil)

type orderUseCase struct {
	tx          domain.Transactor
	orderRepo   domain.OrderRepository
	cartRepo    domain.CartRepository
	productRepo domain.ProductRepository
	publisher   domain.EventPublisher
	taxRate     decimal.Decimal
	now         func() time.Time
	log         *logrus.Logger
}

func NewOrderUseCase(
	tx domain.Transactor,
	orderRepo domain.OrderRepository,
	cartRepo domain.CartRepository,
	productRepo domain.ProductRepository,
	publisher domain.EventPublisher,
	taxRate decimal.Decimal,
	logger *logrus.Logger,
) domain.OrderUseCase {
	return &orderUseCase{
		tx:          tx,
		orderRepo:   orderRepo,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		publisher:   publisher,
		taxRate:     taxRate,
		now:         time.Now,
		log:         logger,
	}
}

func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102"), suffix)
}

func (uc *orderUseCase) publish(ctx context.Context, eventType domain.OrderEventType, order *domain.Order, prev domain.OrderStatus) {
	if uc.publisher == nil {
		return
	}
	if err := uc.publisher.Publish(ctx, domain.NewOrderEvent(eventType, order, prev)); err != nil {
		uc.log.Warnf("Use Case: Failed to publish %s for order %d: %v", eventType, order.ID, err)
	}
}

// lockProducts locks the given products in ascending id order.
func (uc *orderUseCase) lockProducts(ctx context.Context, quantities map[int]int) ([]int, map[int]*domain.Product, error) {
	ids := make([]int, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	products, err := uc.productRepo.GetProductsForUpdate(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	return ids, products, nil
}

func (uc *orderUseCase) Checkout(ctx context.Context, userID int, req domain.CheckoutRequest) (*domain.Order, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = domain.PaymentCreditCard
	}
	if !domain.IsValidPaymentMethod(req.PaymentMethod) {
		return nil, fmt.Errorf("%w: unknown payment method '%s'", domain.ErrValidation, req.PaymentMethod)
	}

	uc.log.Infof("Use Case: Starting checkout for user %d", userID)

	var order *domain.Order
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		cart, err := uc.cartRepo.GetCartForUpdate(ctx, userID)
		if err != nil {
			return err
		}
		if cart.IsEmpty() {
			uc.log.Warnf("Use Case: User %d attempted checkout with an empty cart", userID)
			return fmt.Errorf("%w: nothing to check out", domain.ErrEmptyCart)
		}

		quantities := make(map[int]int, len(cart.Items))
		for _, line := range cart.Items {
			quantities[line.ProductID] += line.Quantity
		}
		ids, products, err := uc.lockProducts(ctx, quantities)
		if err != nil {
			return err
		}

		items := make([]domain.OrderItem, 0, len(cart.Items))
		for _, line := range cart.Items {
			product, ok := products[line.ProductID]
			if !ok {
				return fmt.Errorf("%w: product with id %d", domain.ErrProductNotFound, line.ProductID)
			}
			if !product.Available {
				return fmt.Errorf("%w: product '%s' is no longer available", domain.ErrValidation, product.Name)
			}
			if product.Stock < quantities[product.ID] {
				uc.log.Warnf("Use Case: Insufficient stock for product %d at checkout (requested %d, available %d)", product.ID, quantities[product.ID], product.Stock)
				return fmt.Errorf("%w: product %d (requested %d, available %d)", domain.ErrInsufficientStock, product.ID, quantities[product.ID], product.Stock)
			}

			productID := product.ID
			item := domain.OrderItem{
				ProductID:   &productID,
				ProductName: product.Name,
				ProductSKU:  product.SKU,
				Price:       line.EffectivePrice(),
				Quantity:    line.Quantity,
			}
			item.TaxAmount = domain.TaxFor(item.LineTotal(), uc.taxRate)
			items = append(items, item)
		}

		order = &domain.Order{
			OrderNumber:     newOrderNumber(uc.now()),
			UserID:          userID,
			Status:          domain.StatusPending,
			PaymentMethod:   req.PaymentMethod,
			DiscountAmount:  decimal.Zero,
			ShippingAddress: req.ShippingAddress,
			BillingAddress:  req.BillingAddress,
			Notes:           req.Notes,
			Items:           items,
		}
		order.TotalPrice = order.ItemsTotal()
		order.TaxAmount = domain.TaxFor(order.TotalPrice, uc.taxRate)

		for _, id := range ids {
			if _, err := uc.productRepo.AdjustStock(ctx, id, -quantities[id]); err != nil {
				return err
			}
		}

		if order, err = uc.orderRepo.CreateOrder(ctx, order); err != nil {
			return err
		}
		return uc.cartRepo.ClearCart(ctx, cart.ID)
	})
	if err != nil {
		uc.log.Warnf("Use Case: Checkout failed for user %d: %v", userID, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Order %d (%s) created for user %d, total %s", order.ID, order.OrderNumber, userID, order.TotalPrice.StringFixed(2))
	uc.publish(ctx, domain.EventOrderCreated, order, "")
	return order, nil
}

func (uc *orderUseCase) GetOrderByID(ctx context.Context, id int) (*domain.Order, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid order ID", domain.ErrValidation)
	}
	order, err := uc.orderRepo.GetOrderByID(ctx, id)
	if err != nil {
		uc.log.Warnf("Use Case: Repository failed to get order ID %d: %v", id, err)
		return nil, err
	}
	return order, nil
}

func (uc *orderUseCase) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	if err := validateUserID(filter.UserID); err != nil {
		return nil, err
	}
	if filter.Status != "" && !domain.IsValidStatus(filter.Status) {
		return nil, fmt.Errorf("%w: invalid status filter '%s'", domain.ErrValidation, filter.Status)
	}

	orders, err := uc.orderRepo.ListOrders(ctx, filter)
	if err != nil {
		uc.log.Errorf("Use Case: Repository failed to list orders for user %d: %v", filter.UserID, err)
		return nil, fmt.Errorf("could not retrieve orders for user %d: %w", filter.UserID, err)
	}
	return orders, nil
}

// changeState locks the order, applies mutate and persists the new state in
// one transaction, then publishes eventType.
func (uc *orderUseCase) changeState(ctx context.Context, id int, eventType domain.OrderEventType, mutate func(ctx context.Context, order *domain.Order) error) (*domain.Order, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid order ID", domain.ErrValidation)
	}

	var order *domain.Order
	var prev domain.OrderStatus
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = uc.orderRepo.GetOrderForUpdate(ctx, id)
		if err != nil {
			return err
		}
		prev = order.Status
		if err := mutate(ctx, order); err != nil {
			return err
		}
		return uc.orderRepo.SaveOrderState(ctx, order)
	})
	if err != nil {
		uc.log.Warnf("Use Case: Failed to change state of order %d: %v", id, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Order %d moved from %s to %s", order.ID, prev, order.Status)
	uc.publish(ctx, eventType, order, prev)
	return order, nil
}

func invalidTransition(order *domain.Order, target domain.OrderStatus) error {
	return fmt.Errorf("%w: order %d cannot move from %s to %s", domain.ErrInvalidTransition, order.ID, order.Status, target)
}

func (uc *orderUseCase) MarkAsPaid(ctx context.Context, id int) (*domain.Order, error) {
	return uc.changeState(ctx, id, domain.EventOrderPaid, func(_ context.Context, order *domain.Order) error {
		if order.Status != domain.StatusPending {
			return invalidTransition(order, domain.StatusPaid)
		}
		paidAt := uc.now().UTC()
		order.Status = domain.StatusPaid
		order.PaymentDate = &paidAt
		return nil
	})
}

func (uc *orderUseCase) Cancel(ctx context.Context, id int, reason string, restock bool) (*domain.Order, error) {
	return uc.changeState(ctx, id, domain.EventOrderCancelled, func(ctx context.Context, order *domain.Order) error {
		if !order.Status.CanTransitionTo(domain.StatusCancelled) {
			return invalidTransition(order, domain.StatusCancelled)
		}

		reason = strings.TrimSpace(reason)
		if reason == "" {
			reason = "no reason given"
		}
		note := fmt.Sprintf("[%s] Cancelled: %s", uc.now().UTC().Format(time.RFC3339), reason)
		if order.Notes != "" {
			note += "\n" + order.Notes
		}
		order.Notes = note
		order.Status = domain.StatusCancelled

		if !restock {
			return nil
		}
		return uc.restock(ctx, order.Items)
	})
}

// restock returns each line's quantity to its product exactly once per
// product. Lines whose product was deleted are skipped.
func (uc *orderUseCase) restock(ctx context.Context, items []domain.OrderItem) error {
	quantities := make(map[int]int)
	for _, item := range items {
		if item.ProductID == nil {
			continue
		}
		quantities[*item.ProductID] += item.Quantity
	}
	if len(quantities) == 0 {
		return nil
	}

	ids, products, err := uc.lockProducts(ctx, quantities)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if _, ok := products[id]; !ok {
			uc.log.Warnf("Use Case: Product %d no longer exists, skipping restock of %d units", id, quantities[id])
			continue
		}
		stock, err := uc.productRepo.AdjustStock(ctx, id, quantities[id])
		if err != nil {
			return err
		}
		uc.log.Infof("Use Case: Restocked product %d by %d to %d", id, quantities[id], stock)
	}
	return nil
}

func (uc *orderUseCase) UpdateStatus(ctx context.Context, id int, target domain.OrderStatus, trackingNumber string) (*domain.Order, error) {
	if !domain.IsValidStatus(target) {
		return nil, fmt.Errorf("%w: invalid target order status '%s'", domain.ErrValidation, target)
	}

	switch target {
	case domain.StatusPaid:
		return uc.MarkAsPaid(ctx, id)
	case domain.StatusCancelled:
		return uc.Cancel(ctx, id, "cancelled by status update", true)
	}

	return uc.changeState(ctx, id, domain.EventOrderStatusChanged, func(_ context.Context, order *domain.Order) error {
		if !order.Status.CanTransitionTo(target) {
			return invalidTransition(order, target)
		}
		order.Status = target
		if target == domain.StatusShipped {
			shippedAt := uc.now().UTC()
			order.ShippingDate = &shippedAt
		}
		if trackingNumber != "" {
			order.TrackingNumber = trackingNumber
		}
		return nil
	})
}

func (uc *orderUseCase) AvailableTransitions(ctx context.Context, id int) ([]domain.OrderStatus, error) {
	order, err := uc.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return order.Status.AvailableTransitions(), nil
}

func (uc *orderUseCase) Tracking(ctx context.Context, id int) (*domain.TrackingInfo, error) {
	order, err := uc.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	info := order.Tracking()
	return &info, nil
}

func (uc *orderUseCase) UpdateTotal(ctx context.Context, id int) (*domain.Order, error) {
	if id <= 0 {
		return nil, fmt.Errorf("%w: invalid order ID", domain.ErrValidation)
	}

	var order *domain.Order
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := uc.orderRepo.RecalculateTotal(ctx, id, uc.taxRate); err != nil {
			return err
		}
		var err error
		order, err = uc.orderRepo.GetOrderByID(ctx, id)
		return err
	})
	if err != nil {
		uc.log.Errorf("Use Case: Failed to update total of order %d: %v", id, err)
		return nil, err
	}
	return order, nil
}

func requireEditable(order *domain.Order) error {
	if order.Status != domain.StatusPending {
		return fmt.Errorf("%w: items of order %d cannot change in status %s", domain.ErrValidation, order.ID, order.Status)
	}
	return nil
}

func (uc *orderUseCase) AddOrderItem(ctx context.Context, orderID, productID, quantity int) (*domain.Order, error) {
	if orderID <= 0 || productID <= 0 {
		return nil, fmt.Errorf("%w: invalid order or product ID", domain.ErrValidation)
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrValidation)
	}

	var order *domain.Order
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := uc.orderRepo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := requireEditable(current); err != nil {
			return err
		}

		_, products, err := uc.lockProducts(ctx, map[int]int{productID: quantity})
		if err != nil {
			return err
		}
		product, ok := products[productID]
		if !ok {
			return fmt.Errorf("%w: product with id %d", domain.ErrProductNotFound, productID)
		}
		if !product.Available {
			return fmt.Errorf("%w: product '%s' is not available", domain.ErrValidation, product.Name)
		}
		if product.Stock < quantity {
			return fmt.Errorf("%w: product %d (requested %d, available %d)", domain.ErrInsufficientStock, productID, quantity, product.Stock)
		}

		pid := product.ID
		item := &domain.OrderItem{
			OrderID:     orderID,
			ProductID:   &pid,
			ProductName: product.Name,
			ProductSKU:  product.SKU,
			Price:       product.Price,
			Quantity:    quantity,
		}
		item.TaxAmount = domain.TaxFor(item.LineTotal(), uc.taxRate)
		if _, err := uc.orderRepo.AddOrderItem(ctx, item); err != nil {
			return err
		}
		if _, err := uc.productRepo.AdjustStock(ctx, productID, -quantity); err != nil {
			return err
		}
		if _, err := uc.orderRepo.RecalculateTotal(ctx, orderID, uc.taxRate); err != nil {
			return err
		}
		order, err = uc.orderRepo.GetOrderByID(ctx, orderID)
		return err
	})
	if err != nil {
		uc.log.Warnf("Use Case: Failed to add product %d to order %d: %v", productID, orderID, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Added %d of product %d to order %d, new total %s", quantity, productID, orderID, order.TotalPrice.StringFixed(2))
	return order, nil
}

func (uc *orderUseCase) RemoveOrderItem(ctx context.Context, orderID, itemID int) (*domain.Order, error) {
	if orderID <= 0 || itemID <= 0 {
		return nil, fmt.Errorf("%w: invalid order or item ID", domain.ErrValidation)
	}

	var order *domain.Order
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		current, err := uc.orderRepo.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := requireEditable(current); err != nil {
			return err
		}

		removed, err := uc.orderRepo.DeleteOrderItem(ctx, orderID, itemID)
		if err != nil {
			return err
		}
		if err := uc.restock(ctx, []domain.OrderItem{*removed}); err != nil {
			return err
		}
		if _, err := uc.orderRepo.RecalculateTotal(ctx, orderID, uc.taxRate); err != nil {
			return err
		}
		order, err = uc.orderRepo.GetOrderByID(ctx, orderID)
		return err
	})
	if err != nil {
		uc.log.Warnf("Use Case: Failed to remove item %d from order %d: %v", itemID, orderID, err)
		return nil, err
	}

	uc.log.Infof("Use Case: Removed item %d from order %d, new total %s", itemID, orderID, order.TotalPrice.StringFixed(2))
	return order, nil
}
