package usecase

import (
	"context"
	"fmt"
	"time"

	"store_service/internal/domain"

	"github.com/sirupsen/logrus"
)

var _ domain.CartUseCase = (*cartUseCase)(nil)

type cartUseCase struct {
	tx          domain.Transactor
	cartRepo    domain.CartRepository
	productRepo domain.ProductRepository
	cartTTL     time.Duration
	now         func() time.Time
	log         *logrus.Logger
}

func NewCartUseCase(tx domain.Transactor, cartRepo domain.CartRepository, productRepo domain.ProductRepository, cartTTL time.Duration, logger *logrus.Logger) domain.CartUseCase {
	if cartTTL <= 0 {
		cartTTL = domain.DefaultCartTTL
	}
	return &cartUseCase{
		tx:          tx,
		cartRepo:    cartRepo,
		productRepo: productRepo,
		cartTTL:     cartTTL,
		now:         time.Now,
		log:         logger,
	}
}

func validateUserID(userID int) error {
	if userID <= 0 {
		return fmt.Errorf("%w: invalid user ID", domain.ErrValidation)
	}
	return nil
}

func (uc *cartUseCase) GetOrCreateCart(ctx context.Context, userID int) (*domain.Cart, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	cart, err := uc.cartRepo.GetOrCreateCart(ctx, userID, uc.now().Add(uc.cartTTL))
	if err != nil {
		uc.log.Errorf("Use Case: Failed to get or create cart for user %d: %v", userID, err)
		return nil, err
	}
	return cart, nil
}

func (uc *cartUseCase) AddItem(ctx context.Context, userID, productID, quantity int) (*domain.Cart, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if quantity < 1 {
		uc.log.Warnf("Use Case: User %d tried to add product %d with quantity %d", userID, productID, quantity)
		return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrValidation)
	}

	var cart *domain.Cart
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		product, err := uc.productRepo.GetProductByID(ctx, productID)
		if err != nil {
			return err
		}
		if !product.Available {
			return fmt.Errorf("%w: product %d is not available", domain.ErrValidation, productID)
		}
		if quantity > product.Stock {
			uc.log.Warnf("Use Case: Insufficient stock for product %d (requested %d, available %d)", productID, quantity, product.Stock)
			return fmt.Errorf("%w: product %d (requested %d, available %d)", domain.ErrInsufficientStock, productID, quantity, product.Stock)
		}

		current, err := uc.cartRepo.GetOrCreateCart(ctx, userID, uc.now().Add(uc.cartTTL))
		if err != nil {
			return err
		}

		item, err := uc.cartRepo.AddItem(ctx, current.ID, productID, quantity, product.Price)
		if err != nil {
			return err
		}
		if item.Quantity > product.Stock {
			uc.log.Warnf("Use Case: Merged quantity %d for product %d exceeds stock %d", item.Quantity, productID, product.Stock)
			return fmt.Errorf("%w: product %d (requested %d in total, available %d)", domain.ErrInsufficientStock, productID, item.Quantity, product.Stock)
		}

		cart, err = uc.cartRepo.GetOrCreateCart(ctx, userID, uc.now().Add(uc.cartTTL))
		return err
	})
	if err != nil {
		uc.log.Warnf("Use Case: Failed to add product %d to cart of user %d: %v", productID, userID, err)
		return nil, err
	}

	uc.log.Infof("Use Case: User %d added %d of product %d to cart %d", userID, quantity, productID, cart.ID)
	return cart, nil
}

func (uc *cartUseCase) RemoveItem(ctx context.Context, userID, productID, quantity int) (*domain.Cart, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	if quantity < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrValidation)
	}

	var cart *domain.Cart
	err := uc.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := uc.productRepo.GetProductByID(ctx, productID); err != nil {
			return err
		}

		current, err := uc.cartRepo.GetOrCreateCart(ctx, userID, uc.now().Add(uc.cartTTL))
		if err != nil {
			return err
		}

		item, err := uc.cartRepo.GetItemForUpdate(ctx, current.ID, productID)
		if err != nil {
			return err
		}

		remaining := item.Quantity - quantity
		if remaining <= 0 {
			uc.log.Infof("Use Case: Removing product %d from cart %d", productID, current.ID)
			err = uc.cartRepo.DeleteItem(ctx, item.ID)
		} else {
			err = uc.cartRepo.SetItemQuantity(ctx, item.ID, remaining)
		}
		if err != nil {
			return err
		}

		cart, err = uc.cartRepo.GetOrCreateCart(ctx, userID, uc.now().Add(uc.cartTTL))
		return err
	})
	if err != nil {
		uc.log.Warnf("Use Case: Failed to remove product %d from cart of user %d: %v", productID, userID, err)
		return nil, err
	}
	return cart, nil
}

func (uc *cartUseCase) Clear(ctx context.Context, userID int) (*domain.Cart, error) {
	cart, err := uc.GetOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := uc.cartRepo.ClearCart(ctx, cart.ID); err != nil {
		uc.log.Errorf("Use Case: Failed to clear cart %d: %v", cart.ID, err)
		return nil, err
	}
	cart.Items = []domain.CartItem{}

	uc.log.Infof("Use Case: Cart %d of user %d cleared", cart.ID, userID)
	return cart, nil
}
