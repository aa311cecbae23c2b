package delivery

import (
	"errors"
	"io"
	"net/http"

	"store_service/internal/domain"
	"store_service/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

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

func (h *OrderHandler) RegisterRoutes(router, admin gin.IRouter) {
	orders := router.Group("/orders")
	{
		orders.POST("", h.Checkout)
		orders.GET("", h.ListOrders)
		orders.GET("/:id", h.GetOrderByID)
		orders.POST("/:id/cancel", h.Cancel)
		orders.GET("/:id/transitions", h.AvailableTransitions)
		orders.GET("/:id/tracking", h.Tracking)
		orders.POST("/:id/items", h.AddOrderItem)
		orders.DELETE("/:id/items/:itemId", h.RemoveOrderItem)
	}

	managed := admin.Group("/orders")
	{
		managed.POST("/:id/pay", h.MarkAsPaid)
		managed.PATCH("/:id/status", h.UpdateStatus)
		managed.POST("/:id/recalculate", h.UpdateTotal)
	}
}

// authorizeOrder loads the order named in the path and checks that the
// caller owns it or is an admin.
func (h *OrderHandler) authorizeOrder(c *gin.Context) (*domain.Order, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return nil, false
	}
	id, ok := idParam(c, "id", "order")
	if !ok {
		return nil, false
	}

	order, err := h.useCase.GetOrderByID(c.Request.Context(), id)
	if err != nil {
		h.log.Warnf("Failed to get order by ID %d (requested by user %d): %v", id, userID, err)
		failWith(c, "Failed to retrieve order", err)
		return nil, false
	}

	if order.UserID != userID && !middleware.HasRole(c, middleware.RoleAdmin) {
		h.log.Warnf("Authorization failed: User %d attempted to access order %d owned by user %d", userID, id, order.UserID)
		ErrorResponse(c, http.StatusForbidden, "FORBIDDEN", "You are not authorized to access this order")
		return nil, false
	}
	return order, true
}

func (h *OrderHandler) Checkout(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req domain.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.log.Errorf("Failed to bind JSON for checkout (User: %d): %v", userID, err)
		ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	order, err := h.useCase.Checkout(c.Request.Context(), userID, req)
	if err != nil {
		h.log.Warnf("Checkout failed for user %d: %v", userID, err)
		failWith(c, "Failed to create order", err)
		return
	}

	h.log.Infof("Order %d created successfully for user %d", order.ID, order.UserID)
	SuccessResponse(c, http.StatusCreated, "Order created successfully", order)
}

func (h *OrderHandler) GetOrderByID(c *gin.Context) {
	order, ok := h.authorizeOrder(c)
	if !ok {
		return
	}
	SuccessResponse(c, http.StatusOK, "Order retrieved successfully", order)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	filter := domain.OrderFilter{UserID: userID, Status: domain.OrderStatus(c.Query("status"))}
	if filter.Limit, ok = queryInt(c, "limit", 20); !ok {
		return
	}
	if filter.Offset, ok = queryInt(c, "offset", 0); !ok {
		return
	}

	orders, err := h.useCase.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.log.Errorf("Failed to list orders for user %d: %v", userID, err)
		failWith(c, "Failed to list orders", err)
		return
	}

	if len(orders) == 0 {
		SuccessResponse(c, http.StatusOK, "No orders found", []domain.Order{})
		return
	}
	SuccessResponse(c, http.StatusOK, "Orders retrieved successfully", orders)
}

func (h *OrderHandler) MarkAsPaid(c *gin.Context) {
	order, ok := h.authorizeOrder(c)
	if !ok {
		return
	}

	paid, err := h.useCase.MarkAsPaid(c.Request.Context(), order.ID)
	if err != nil {
		failWith(c, "Failed to mark order as paid", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Order marked as paid", paid)
}

type cancelRequest struct {
	Reason  string `json:"reason"`
	Restock *bool  `json:"restock"`
}

func (h *OrderHandler) Cancel(c *gin.Context) {
	order, ok := h.authorizeOrder(c)
	if !ok {
		return
	}

	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}
	restock := req.Restock == nil || *req.Restock

	cancelled, err := h.useCase.Cancel(c.Request.Context(), order.ID, req.Reason, restock)
	if err != nil {
		failWith(c, "Failed to cancel order", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Order cancelled", cancelled)
}

func (h *OrderHandler) AvailableTransitions(c *gin.Context) {
	order, ok := h.authorizeOrder(c)
	if !ok {
		return
	}
	SuccessResponse(c, http.StatusOK, "Available transitions retrieved", gin.H{
		"order_id":    order.ID,
		"status":      order.Status,
		"transitions": order.Status.AvailableTransitions(),
	})
}

func (h *OrderHandler) Tracking(c *gin.Context) {
	order, ok := h.authorizeOrder(c)
	if !ok {
		return
	}

	info, err := h.useCase.Tracking(c.Request.Context(), order.ID)
	if err != nil {
		failWith(c, "Failed to retrieve tracking", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Tracking retrieved successfully", info)
}

type statusRequest struct {
	Status         domain.OrderStatus `json:"status" binding:"required"`
	TrackingNumber string             `json:"tracking_number"`
}

func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	id, ok := idParam(c, "id", "order")
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	order, err := h.useCase.UpdateStatus(c.Request.Context(), id, req.Status, req.TrackingNumber)
	if err != nil {
		h.log.Warnf("Failed to update status of order %d to %s: %v", id, req.Status, err)
		failWith(c, "Failed to update order status", err)
		return
	}

	h.log.Infof("Order %d status updated to %s", id, order.Status)
	SuccessResponse(c, http.StatusOK, "Order status updated", order)
}

func (h *OrderHandler) UpdateTotal(c *gin.Context) {
	id, ok := idParam(c, "id", "order")
	if !ok {
		return
	}

	order, err := h.useCase.UpdateTotal(c.Request.Context(), id)
	if err != nil {
		failWith(c, "Failed to recalculate order total", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Order total recalculated", order)
}

type orderItemRequest struct {
	ProductID int `json:"product_id" binding:"required,gt=0"`
	Quantity  int `json:"quantity" binding:"required,gt=0"`
}

func (h *OrderHandler) AddOrderItem(c *gin.Context) {
	order, ok := h.authorizeOrder(c)
	if !ok {
		return
	}

	var req orderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	updated, err := h.useCase.AddOrderItem(c.Request.Context(), order.ID, req.ProductID, req.Quantity)
	if err != nil {
		failWith(c, "Failed to add order item", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Order item added", updated)
}

func (h *OrderHandler) RemoveOrderItem(c *gin.Context) {
	order, ok := h.authorizeOrder(c)
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId", "order item")
	if !ok {
		return
	}

	updated, err := h.useCase.RemoveOrderItem(c.Request.Context(), order.ID, itemID)
	if err != nil {
		failWith(c, "Failed to remove order item", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Order item removed", updated)
}
