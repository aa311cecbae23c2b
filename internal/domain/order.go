package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending    OrderStatus = "PENDING"
	StatusPaid       OrderStatus = "PAID"
	StatusProcessing OrderStatus = "PROCESSING"
	StatusShipped    OrderStatus = "SHIPPED"
	StatusDelivered  OrderStatus = "DELIVERED"
	StatusCancelled  OrderStatus = "CANCELLED"
	StatusRefunded   OrderStatus = "REFUNDED"
	StatusFailed     OrderStatus = "FAILED"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:    {StatusPaid, StatusCancelled, StatusFailed},
	StatusPaid:       {StatusProcessing, StatusCancelled, StatusRefunded},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusDelivered},
}

func IsValidStatus(status OrderStatus) bool {
	switch status {
	case StatusPending, StatusPaid, StatusProcessing, StatusShipped,
		StatusDelivered, StatusCancelled, StatusRefunded, StatusFailed:
		return true
	default:
		return false
	}
}

// AvailableTransitions lists the statuses reachable from s in one step.
// Terminal statuses return an empty slice.
func (s OrderStatus) AvailableTransitions() []OrderStatus {
	next := orderTransitions[s]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range orderTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return len(orderTransitions[s]) == 0
}

type PaymentMethod string

const (
	PaymentCreditCard    PaymentMethod = "CC"
	PaymentPayPal        PaymentMethod = "PP"
	PaymentCashOnDeliver PaymentMethod = "COD"
	PaymentBankTransfer  PaymentMethod = "BT"
	PaymentWallet        PaymentMethod = "WLT"
)

func IsValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCreditCard, PaymentPayPal, PaymentCashOnDeliver, PaymentBankTransfer, PaymentWallet:
		return true
	default:
		return false
	}
}

type Address struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

type Order struct {
	ID              int             `json:"id"`
	OrderNumber     string          `json:"order_number"`
	UserID          int             `json:"user_id"`
	Status          OrderStatus     `json:"status"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	TotalPrice      decimal.Decimal `json:"total_price"`
	TaxAmount       decimal.Decimal `json:"tax_amount"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	ShippingAddress *Address        `json:"shipping_address,omitempty"`
	BillingAddress  *Address        `json:"billing_address,omitempty"`
	TrackingNumber  string          `json:"tracking_number"`
	Notes           string          `json:"notes"`
	PaymentDate     *time.Time      `json:"payment_date,omitempty"`
	ShippingDate    *time.Time      `json:"shipping_date,omitempty"`
	Items           []OrderItem     `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type OrderItem struct {
	ID          int               `json:"id"`
	OrderID     int               `json:"order_id"`
	ProductID   *int              `json:"product_id"` // nil once the product is deleted
	ProductName string            `json:"product_name"`
	ProductSKU  string            `json:"product_sku"`
	Price       decimal.Decimal   `json:"price"`
	Quantity    int               `json:"quantity"`
	TaxAmount   decimal.Decimal   `json:"tax_amount"`
	Variant     map[string]string `json:"variant,omitempty"`
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// ItemsTotal is the sum of frozen line totals, the value total_price must hold.
func (o *Order) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.LineTotal())
	}
	return total.RoundBank(2)
}

// GrandTotal is the amount due: items plus tax minus discount.
func (o *Order) GrandTotal() decimal.Decimal {
	return o.TotalPrice.Add(o.TaxAmount).Sub(o.DiscountAmount)
}

// TaxFor applies rate to amount, rounding half to even at cents.
func TaxFor(amount, rate decimal.Decimal) decimal.Decimal {
	return amount.Mul(rate).RoundBank(2)
}

// TrackingInfo is the customer-facing delivery view of an order.
type TrackingInfo struct {
	OrderID           int         `json:"order_id"`
	Status            OrderStatus `json:"status"`
	TrackingNumber    string      `json:"tracking_number"`
	LastUpdated       time.Time   `json:"last_updated"`
	EstimatedDelivery *time.Time  `json:"estimated_delivery"`
}

// ShippingEstimate is added to the shipping date for the delivery estimate.
const ShippingEstimate = 3 * 24 * time.Hour

func (o *Order) Tracking() TrackingInfo {
	info := TrackingInfo{
		OrderID:        o.ID,
		Status:         o.Status,
		TrackingNumber: o.TrackingNumber,
		LastUpdated:    o.UpdatedAt,
	}
	if o.Status == StatusShipped && o.ShippingDate != nil {
		eta := o.ShippingDate.Add(ShippingEstimate)
		info.EstimatedDelivery = &eta
	}
	return info
}

type CheckoutRequest struct {
	PaymentMethod   PaymentMethod `json:"payment_method"`
	ShippingAddress *Address      `json:"shipping_address"`
	BillingAddress  *Address      `json:"billing_address"`
	Notes           string        `json:"notes"`
}

type OrderFilter struct {
	UserID int
	Status OrderStatus
	Limit  int
	Offset int
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *Order) (*Order, error)
	GetOrderByID(ctx context.Context, id int) (*Order, error)
	// GetOrderForUpdate loads the order with its items and locks the order row.
	GetOrderForUpdate(ctx context.Context, id int) (*Order, error)
	// SaveOrderState persists status, payment/shipping dates, tracking number
	// and notes and refreshes UpdatedAt.
	SaveOrderState(ctx context.Context, order *Order) error
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error)
	AddOrderItem(ctx context.Context, item *OrderItem) (*OrderItem, error)
	DeleteOrderItem(ctx context.Context, orderID, itemID int) (*OrderItem, error)
	// RecalculateTotal locks the order row, sums its current items and stores
	// the result together with the tax computed at taxRate.
	RecalculateTotal(ctx context.Context, orderID int, taxRate decimal.Decimal) (decimal.Decimal, error)
}

type OrderUseCase interface {
	Checkout(ctx context.Context, userID int, req CheckoutRequest) (*Order, error)
	GetOrderByID(ctx context.Context, id int) (*Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error)
	MarkAsPaid(ctx context.Context, id int) (*Order, error)
	Cancel(ctx context.Context, id int, reason string, restock bool) (*Order, error)
	UpdateStatus(ctx context.Context, id int, target OrderStatus, trackingNumber string) (*Order, error)
	AvailableTransitions(ctx context.Context, id int) ([]OrderStatus, error)
	Tracking(ctx context.Context, id int) (*TrackingInfo, error)
	UpdateTotal(ctx context.Context, id int) (*Order, error)
	AddOrderItem(ctx context.Context, orderID, productID, quantity int) (*Order, error)
	RemoveOrderItem(ctx context.Context, orderID, itemID int) (*Order, error)
}
