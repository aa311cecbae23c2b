package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultCartTTL is how long a freshly created cart stays valid.
const DefaultCartTTL = 30 * 24 * time.Hour

type Cart struct {
	ID        int        `json:"id"`
	UserID    int        `json:"user_id"`
	IsActive  bool       `json:"is_active"`
	Items     []CartItem `json:"items"`
	ExpiresAt time.Time  `json:"expires_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CartItem struct {
	ID              int                 `json:"id"`
	CartID          int                 `json:"cart_id"`
	ProductID       int                 `json:"product_id"`
	ProductName     string              `json:"product_name"`
	ProductSKU      string              `json:"product_sku"`
	CurrentPrice    decimal.Decimal     `json:"current_price"`
	PriceAtAddition decimal.NullDecimal `json:"price_at_addition"`
	Quantity        int                 `json:"quantity"`
	AddedAt         time.Time           `json:"added_at"`
}

// EffectivePrice is the snapshot price when one was taken, otherwise the
// product's current price.
func (i CartItem) EffectivePrice() decimal.Decimal {
	if i.PriceAtAddition.Valid {
		return i.PriceAtAddition.Decimal
	}
	return i.CurrentPrice
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.EffectivePrice().Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

// Total sums line subtotals and rounds half to even at cents.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total.RoundBank(2)
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c *Cart) Item(productID int) (CartItem, bool) {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item, true
		}
	}
	return CartItem{}, false
}

// CartSummary is the read model returned to clients.
type CartSummary struct {
	Cart
	TotalItems int             `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

func NewCartSummary(cart *Cart) CartSummary {
	return CartSummary{
		Cart:       *cart,
		TotalItems: cart.ItemCount(),
		TotalPrice: cart.Total(),
	}
}

type CartRepository interface {
	// GetOrCreateCart returns the user's cart, inserting one that expires at
	// expiresAt when none exists.
	GetOrCreateCart(ctx context.Context, userID int, expiresAt time.Time) (*Cart, error)
	// GetCartForUpdate loads the user's cart and locks its row. It returns
	// ErrEmptyCart when the user has no cart.
	GetCartForUpdate(ctx context.Context, userID int) (*Cart, error)
	// AddItem inserts a line or merges quantity into the existing one and
	// returns the resulting line. price is only recorded on insert.
	AddItem(ctx context.Context, cartID, productID, quantity int, price decimal.Decimal) (*CartItem, error)
	GetItemForUpdate(ctx context.Context, cartID, productID int) (*CartItem, error)
	SetItemQuantity(ctx context.Context, itemID, quantity int) error
	DeleteItem(ctx context.Context, itemID int) error
	ClearCart(ctx context.Context, cartID int) error
}

type CartUseCase interface {
	GetOrCreateCart(ctx context.Context, userID int) (*Cart, error)
	AddItem(ctx context.Context, userID, productID, quantity int) (*Cart, error)
	RemoveItem(ctx context.Context, userID, productID, quantity int) (*Cart, error)
	Clear(ctx context.Context, userID int) (*Cart, error)
}
