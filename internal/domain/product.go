package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// MinProductPrice is the lowest price a product may carry.
var MinProductPrice = decimal.RequireFromString("0.01")

type Product struct {
	ID          int             `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	SKU         string          `json:"sku"`
	Slug        string          `json:"slug"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Available   bool            `json:"available"`
	Featured    bool            `json:"featured"`
	CategoryID  int             `json:"category_id"` // 0 means uncategorized
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ProductFilter narrows ListProducts. Nil pointers are not applied.
type ProductFilter struct {
	CategoryID int
	Available  *bool
	Featured   *bool
	Search     string
	Limit      int
	Offset     int
}

// ProductUpdate carries a partial update; nil fields are left untouched.
type ProductUpdate struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Available   *bool            `json:"available"`
	Featured    *bool            `json:"featured"`
	CategoryID  *int             `json:"category_id"`
}

func (u ProductUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.Price == nil && u.Stock == nil &&
		u.Available == nil && u.Featured == nil && u.CategoryID == nil
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, product *Product) (*Product, error)
	GetProductByID(ctx context.Context, id int) (*Product, error)
	// GetProductsForUpdate locks the given product rows in ascending id order
	// for the surrounding transaction. Missing ids are absent from the map.
	GetProductsForUpdate(ctx context.Context, ids []int) (map[int]*Product, error)
	UpdateProduct(ctx context.Context, id int, update ProductUpdate, slug string) (*Product, error)
	// AdjustStock adds delta to the product's stock and returns the new value.
	AdjustStock(ctx context.Context, id int, delta int) (int, error)
	DeleteProduct(ctx context.Context, id int) error
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
	SlugExists(ctx context.Context, slug string, excludeID int) (bool, error)
}

type ProductUseCase interface {
	CreateProduct(ctx context.Context, product *Product) (*Product, error)
	GetProductByID(ctx context.Context, id int) (*Product, error)
	UpdateProduct(ctx context.Context, id int, update ProductUpdate) (*Product, error)
	DeleteProduct(ctx context.Context, id int) error
	ListProducts(ctx context.Context, filter ProductFilter) ([]Product, error)
}
