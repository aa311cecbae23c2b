package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type OrderEventType string

const (
	EventOrderCreated       OrderEventType = "order.created"
	EventOrderPaid          OrderEventType = "order.paid"
	EventOrderCancelled     OrderEventType = "order.cancelled"
	EventOrderStatusChanged OrderEventType = "order.status_changed"
)

type OrderEvent struct {
	Type        OrderEventType  `json:"type"`
	OrderID     int             `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      int             `json:"user_id"`
	Status      OrderStatus     `json:"status"`
	PrevStatus  OrderStatus     `json:"prev_status,omitempty"`
	TotalPrice  decimal.Decimal `json:"total_price"`
	OccurredAt  time.Time       `json:"occurred_at"`
}

func NewOrderEvent(t OrderEventType, order *Order, prev OrderStatus) OrderEvent {
	return OrderEvent{
		Type:        t,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		Status:      order.Status,
		PrevStatus:  prev,
		TotalPrice:  order.TotalPrice,
		OccurredAt:  time.Now().UTC(),
	}
}

// EventPublisher delivers order lifecycle events to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, event OrderEvent) error
}
