package grpc

import (
	"context"
	"errors"
	"math"
	"time"

	"store_service/internal/domain"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

var _ OrderServiceServer = (*OrderHandler)(nil)

type OrderHandler struct {
	useCase domain.OrderUseCase
	log     *logrus.Logger
}

func NewOrderHandler(uc domain.OrderUseCase, logger *logrus.Logger) *OrderHandler {
	return &OrderHandler{
		useCase: uc,
		log:     logger,
	}
}

func mapDomainError(err error) error {
	var code codes.Code
	switch {
	case errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrProductNotFound),
		errors.Is(err, domain.ErrOrderItemNotFound), errors.Is(err, domain.ErrUserNotFound):
		code = codes.NotFound
	case errors.Is(err, domain.ErrValidation):
		code = codes.InvalidArgument
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrEmptyCart):
		code = codes.FailedPrecondition
	case errors.Is(err, domain.ErrConflict):
		code = codes.AlreadyExists
	case errors.Is(err, domain.ErrForbidden):
		code = codes.PermissionDenied
	default:
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(code, err.Error())
}

func orderID(req *structpb.Struct) (int, error) {
	v, ok := req.GetFields()["order_id"]
	if !ok {
		return 0, status.Error(codes.InvalidArgument, "order_id is required")
	}
	n, ok := v.GetKind().(*structpb.Value_NumberValue)
	if !ok || n.NumberValue <= 0 || n.NumberValue != math.Trunc(n.NumberValue) || n.NumberValue > math.MaxInt32 {
		return 0, status.Error(codes.InvalidArgument, "order_id must be a positive integer")
	}
	return int(n.NumberValue), nil
}

func stringField(req *structpb.Struct, name string) string {
	return req.GetFields()[name].GetStringValue()
}

func formatTime(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func orderToStruct(order *domain.Order) (*structpb.Struct, error) {
	items := make([]interface{}, 0, len(order.Items))
	for _, item := range order.Items {
		var productID interface{}
		if item.ProductID != nil {
			productID = *item.ProductID
		}
		items = append(items, map[string]interface{}{
			"item_id":      item.ID,
			"product_id":   productID,
			"product_name": item.ProductName,
			"product_sku":  item.ProductSKU,
			"price":        item.Price.StringFixed(2),
			"quantity":     item.Quantity,
		})
	}

	return structpb.NewStruct(map[string]interface{}{
		"order_id":        order.ID,
		"order_number":    order.OrderNumber,
		"user_id":         order.UserID,
		"status":          string(order.Status),
		"payment_method":  string(order.PaymentMethod),
		"total_price":     order.TotalPrice.StringFixed(2),
		"tax_amount":      order.TaxAmount.StringFixed(2),
		"grand_total":     order.GrandTotal().StringFixed(2),
		"tracking_number": order.TrackingNumber,
		"notes":           order.Notes,
		"payment_date":    formatTime(order.PaymentDate),
		"shipping_date":   formatTime(order.ShippingDate),
		"created_at":      formatTime(&order.CreatedAt),
		"items":           items,
	})
}

func (h *OrderHandler) respond(order *domain.Order, err error) (*structpb.Struct, error) {
	if err != nil {
		return nil, mapDomainError(err)
	}
	out, err := orderToStruct(order)
	if err != nil {
		h.log.Errorf("gRPC Handler: Failed to encode order %d: %v", order.ID, err)
		return nil, status.Error(codes.Internal, "could not encode order")
	}
	return out, nil
}

func (h *OrderHandler) GetOrder(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := orderID(req)
	if err != nil {
		return nil, err
	}
	return h.respond(h.useCase.GetOrderByID(ctx, id))
}

func (h *OrderHandler) MarkAsPaid(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := orderID(req)
	if err != nil {
		return nil, err
	}
	h.log.Infof("gRPC Handler: Payment confirmed for order %d", id)
	return h.respond(h.useCase.MarkAsPaid(ctx, id))
}

func (h *OrderHandler) Cancel(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := orderID(req)
	if err != nil {
		return nil, err
	}
	restock := true
	if v, ok := req.GetFields()["restock"]; ok {
		b, isBool := v.GetKind().(*structpb.Value_BoolValue)
		if !isBool {
			return nil, status.Error(codes.InvalidArgument, "restock must be a boolean")
		}
		restock = b.BoolValue
	}
	return h.respond(h.useCase.Cancel(ctx, id, stringField(req, "reason"), restock))
}

func (h *OrderHandler) UpdateStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := orderID(req)
	if err != nil {
		return nil, err
	}
	target := domain.OrderStatus(stringField(req, "status"))
	if target == "" {
		return nil, status.Error(codes.InvalidArgument, "status is required")
	}
	return h.respond(h.useCase.UpdateStatus(ctx, id, target, stringField(req, "tracking_number")))
}

func (h *OrderHandler) AvailableTransitions(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id, err := orderID(req)
	if err != nil {
		return nil, err
	}
	order, err := h.useCase.GetOrderByID(ctx, id)
	if err != nil {
		return nil, mapDomainError(err)
	}

	transitions := make([]interface{}, 0)
	for _, s := range order.Status.AvailableTransitions() {
		transitions = append(transitions, string(s))
	}
	return structpb.NewStruct(map[string]interface{}{
		"order_id":    order.ID,
		"status":      string(order.Status),
		"transitions": transitions,
	})
}
