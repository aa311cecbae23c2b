package delivery

import (
	"net/http"

	"store_service/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

type ProductHandler struct {
	useCase domain.ProductUseCase
	log     *logrus.Logger
}

func NewProductHandler(uc domain.ProductUseCase, logger *logrus.Logger) *ProductHandler {
	return &ProductHandler{
		useCase: uc,
		log:     logger,
	}
}

func (h *ProductHandler) RegisterRoutes(public, admin gin.IRouter) {
	public.GET("/products", h.ListProducts)
	public.GET("/products/:id", h.GetProductByID)

	admin.POST("/products", h.CreateProduct)
	admin.PATCH("/products/:id", h.UpdateProduct)
	admin.DELETE("/products/:id", h.DeleteProduct)
}

type createProductRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	SKU         string          `json:"sku"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Available   *bool           `json:"available"`
	Featured    bool            `json:"featured"`
	CategoryID  int             `json:"category_id"`
}

func (h *ProductHandler) CreateProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Errorf("Failed to bind JSON for create product: %v", err)
		ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	product := &domain.Product{
		Name:        req.Name,
		Description: req.Description,
		SKU:         req.SKU,
		Price:       req.Price,
		Stock:       req.Stock,
		Available:   req.Available == nil || *req.Available,
		Featured:    req.Featured,
		CategoryID:  req.CategoryID,
	}

	created, err := h.useCase.CreateProduct(c.Request.Context(), product)
	if err != nil {
		h.log.Errorf("Failed to create product '%s': %v", product.Name, err)
		failWith(c, "Failed to create product", err)
		return
	}

	h.log.Infof("Product created successfully: ID %d, Name %s", created.ID, created.Name)
	SuccessResponse(c, http.StatusCreated, "Product created successfully", created)
}

func (h *ProductHandler) GetProductByID(c *gin.Context) {
	id, ok := idParam(c, "id", "product")
	if !ok {
		return
	}

	product, err := h.useCase.GetProductByID(c.Request.Context(), id)
	if err != nil {
		h.log.Warnf("Failed to get product by ID %d: %v", id, err)
		failWith(c, "Failed to retrieve product", err)
		return
	}
	SuccessResponse(c, http.StatusOK, "Product retrieved successfully", product)
}

func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	id, ok := idParam(c, "id", "product")
	if !ok {
		return
	}

	var update domain.ProductUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		h.log.Errorf("Failed to bind JSON for update product ID %d: %v", id, err)
		ErrorResponse(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	updated, err := h.useCase.UpdateProduct(c.Request.Context(), id, update)
	if err != nil {
		h.log.Errorf("Failed to update product ID %d: %v", id, err)
		failWith(c, "Failed to update product", err)
		return
	}

	h.log.Infof("Product updated successfully: ID %d", updated.ID)
	SuccessResponse(c, http.StatusOK, "Product updated successfully", updated)
}

func (h *ProductHandler) DeleteProduct(c *gin.Context) {
	id, ok := idParam(c, "id", "product")
	if !ok {
		return
	}

	if err := h.useCase.DeleteProduct(c.Request.Context(), id); err != nil {
		h.log.Warnf("Failed to delete product ID %d: %v", id, err)
		failWith(c, "Failed to delete product", err)
		return
	}

	h.log.Infof("Product deleted successfully: ID %d", id)
	SuccessResponse(c, http.StatusOK, "Product deleted successfully", nil)
}

func (h *ProductHandler) ListProducts(c *gin.Context) {
	filter := domain.ProductFilter{Search: c.Query("search")}

	var ok bool
	if filter.CategoryID, ok = queryInt(c, "category_id", 0); !ok {
		return
	}
	if filter.Available, ok = queryBool(c, "available"); !ok {
		return
	}
	if filter.Featured, ok = queryBool(c, "featured"); !ok {
		return
	}
	if filter.Limit, ok = queryInt(c, "limit", 50); !ok {
		return
	}
	if filter.Offset, ok = queryInt(c, "offset", 0); !ok {
		return
	}

	products, err := h.useCase.ListProducts(c.Request.Context(), filter)
	if err != nil {
		h.log.Errorf("Failed to list products: %v", err)
		failWith(c, "Failed to retrieve products", err)
		return
	}

	if len(products) == 0 {
		SuccessResponse(c, http.StatusOK, "No products found", []domain.Product{})
		return
	}
	SuccessResponse(c, http.StatusOK, "Products retrieved successfully", products)
}
