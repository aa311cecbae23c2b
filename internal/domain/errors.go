package domain

import "errors"

// Sentinel errors returned by repositories and use cases. Callers wrap them
// with context via fmt.Errorf("%w: ...") and match with errors.Is.
var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrItemNotInCart     = errors.New("item not in cart")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrProductNotFound   = errors.New("product not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderItemNotFound = errors.New("order item not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrValidation        = errors.New("validation error")
	ErrConflict          = errors.New("already exists")
	ErrForbidden         = errors.New("forbidden")
)
