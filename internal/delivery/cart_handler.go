package delivery

import (
	"net/http"

	"store_service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type CartHandler struct {
	useCase domain.CartUseCase
	log     *logrus.Logger
}

func NewCartHandler(uc domain.CartUseCase, logger *logrus.Logger) *CartHandler {
	return &CartHandler{
		useCase: uc,
		log:     logger,
	}
}

func (h *CartHandler) RegisterRoutes(router gin.IRouter) {
	cart := router.Group("/cart")
	{
		cart.GET("", h.GetCart)
		cart.DELETE("", h.ClearCart)
		cart.POST("/items", h.AddItem)
		cart.POST("/items/remove", h.RemoveItem)
	}
}

type cartItemRequest struct {
	ProductID int `json:"product_id" binding:"required,gt=0"`
	Quantity  int `json:"quantity"`
}

func (h *CartHandler) GetCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	cart, err := h.useCase.GetOrCreateCart(c.Request.Context(), userID)
	if err != nil {
		h.log.Errorf("Failed to load cart for user %d: %v", userID, err)
		failWith(c, "Failed to retrieve cart", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Cart retrieved successfully", domain.NewCartSummary(cart))
}

func (h *CartHandler) AddItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	req := cartItemRequest{Quantity: 1}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Warnf("Failed to bind JSON for add to cart (User: %d): %v", userID, err)
		ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	cart, err := h.useCase.AddItem(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		h.log.Warnf("Failed to add product %d to cart of user %d: %v", req.ProductID, userID, err)
		failWith(c, "Failed to add item to cart", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Item added to cart", domain.NewCartSummary(cart))
}

func (h *CartHandler) RemoveItem(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	req := cartItemRequest{Quantity: 1}
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	cart, err := h.useCase.RemoveItem(c.Request.Context(), userID, req.ProductID, req.Quantity)
	if err != nil {
		h.log.Warnf("Failed to remove product %d from cart of user %d: %v", req.ProductID, userID, err)
		failWith(c, "Failed to remove item from cart", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Item removed from cart", domain.NewCartSummary(cart))
}

func (h *CartHandler) ClearCart(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	cart, err := h.useCase.Clear(c.Request.Context(), userID)
	if err != nil {
		failWith(c, "Failed to clear cart", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Cart cleared", domain.NewCartSummary(cart))
}
