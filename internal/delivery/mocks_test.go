package delivery

import (
	"context"
	"time"

	"store_service/internal/domain"

	"github.com/stretchr/testify/mock"
)

type mockOrderUseCase struct{ mock.Mock }

func (m *mockOrderUseCase) order(args mock.Arguments) (*domain.Order, error) {
	order, _ := args.Get(0).(*domain.Order)
	return order, args.Error(1)
}

func (m *mockOrderUseCase) Checkout(ctx context.Context, userID int, req domain.CheckoutRequest) (*domain.Order, error) {
	return m.order(m.Called(ctx, userID, req))
}

func (m *mockOrderUseCase) GetOrderByID(ctx context.Context, id int) (*domain.Order, error) {
	return m.order(m.Called(ctx, id))
}

func (m *mockOrderUseCase) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]domain.Order, error) {
	args := m.Called(ctx, filter)
	orders, _ := args.Get(0).([]domain.Order)
	return orders, args.Error(1)
}

func (m *mockOrderUseCase) MarkAsPaid(ctx context.Context, id int) (*domain.Order, error) {
	return m.order(m.Called(ctx, id))
}

func (m *mockOrderUseCase) Cancel(ctx context.Context, id int, reason string, restock bool) (*domain.Order, error) {
	return m.order(m.Called(ctx, id, reason, restock))
}

func (m *mockOrderUseCase) UpdateStatus(ctx context.Context, id int, target domain.OrderStatus, trackingNumber string) (*domain.Order, error) {
	return m.order(m.Called(ctx, id, target, trackingNumber))
}

func (m *mockOrderUseCase) AvailableTransitions(ctx context.Context, id int) ([]domain.OrderStatus, error) {
	args := m.Called(ctx, id)
	statuses, _ := args.Get(0).([]domain.OrderStatus)
	return statuses, args.Error(1)
}

func (m *mockOrderUseCase) Tracking(ctx context.Context, id int) (*domain.TrackingInfo, error) {
	args := m.Called(ctx, id)
	info, _ := args.Get(0).(*domain.TrackingInfo)
	return info, args.Error(1)
}

func (m *mockOrderUseCase) UpdateTotal(ctx context.Context, id int) (*domain.Order, error) {
	return m.order(m.Called(ctx, id))
}

func (m *mockOrderUseCase) AddOrderItem(ctx context.Context, orderID, productID, quantity int) (*domain.Order, error) {
	return m.order(m.Called(ctx, orderID, productID, quantity))
}

func (m *mockOrderUseCase) RemoveOrderItem(ctx context.Context, orderID, itemID int) (*domain.Order, error) {
	return m.order(m.Called(ctx, orderID, itemID))
}

type mockCartUseCase struct{ mock.Mock }

func (m *mockCartUseCase) cart(args mock.Arguments) (*domain.Cart, error) {
	cart, _ := args.Get(0).(*domain.Cart)
	return cart, args.Error(1)
}

func (m *mockCartUseCase) GetOrCreateCart(ctx context.Context, userID int) (*domain.Cart, error) {
	return m.cart(m.Called(ctx, userID))
}

func (m *mockCartUseCase) AddItem(ctx context.Context, userID, productID, quantity int) (*domain.Cart, error) {
	return m.cart(m.Called(ctx, userID, productID, quantity))
}

func (m *mockCartUseCase) RemoveItem(ctx context.Context, userID, productID, quantity int) (*domain.Cart, error) {
	return m.cart(m.Called(ctx, userID, productID, quantity))
}

func (m *mockCartUseCase) Clear(ctx context.Context, userID int) (*domain.Cart, error) {
	return m.cart(m.Called(ctx, userID))
}

type mockProductUseCase struct{ mock.Mock }

func (m *mockProductUseCase) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	args := m.Called(ctx, product)
	p, _ := args.Get(0).(*domain.Product)
	return p, args.Error(1)
}

func (m *mockProductUseCase) GetProductByID(ctx context.Context, id int) (*domain.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*domain.Product)
	return p, args.Error(1)
}

func (m *mockProductUseCase) UpdateProduct(ctx context.Context, id int, update domain.ProductUpdate) (*domain.Product, error) {
	args := m.Called(ctx, id, update)
	p, _ := args.Get(0).(*domain.Product)
	return p, args.Error(1)
}

func (m *mockProductUseCase) DeleteProduct(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockProductUseCase) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	args := m.Called(ctx, filter)
	products, _ := args.Get(0).([]domain.Product)
	return products, args.Error(1)
}

type mockCategoryUseCase struct{ mock.Mock }

func (m *mockCategoryUseCase) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	args := m.Called(ctx, category)
	c, _ := args.Get(0).(*domain.Category)
	return c, args.Error(1)
}

func (m *mockCategoryUseCase) GetCategoryByID(ctx context.Context, id int) (*domain.Category, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*domain.Category)
	return c, args.Error(1)
}

func (m *mockCategoryUseCase) UpdateCategory(ctx context.Context, id int, name, description *string) (*domain.Category, error) {
	args := m.Called(ctx, id, name, description)
	c, _ := args.Get(0).(*domain.Category)
	return c, args.Error(1)
}

func (m *mockCategoryUseCase) DeleteCategory(ctx context.Context, id int) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCategoryUseCase) ListCategories(ctx context.Context) ([]domain.Category, error) {
	args := m.Called(ctx)
	categories, _ := args.Get(0).([]domain.Category)
	return categories, args.Error(1)
}

type mockAccountUseCase struct{ mock.Mock }

func (m *mockAccountUseCase) Register(ctx context.Context, email, password, firstName, lastName string) (*domain.User, error) {
	args := m.Called(ctx, email, password, firstName, lastName)
	u, _ := args.Get(0).(*domain.User)
	return u, args.Error(1)
}

func (m *mockAccountUseCase) Provision(ctx context.Context, userID int) (*domain.Account, error) {
	args := m.Called(ctx, userID)
	a, _ := args.Get(0).(*domain.Account)
	return a, args.Error(1)
}

func (m *mockAccountUseCase) GetAccount(ctx context.Context, userID int) (*domain.Account, error) {
	args := m.Called(ctx, userID)
	a, _ := args.Get(0).(*domain.Account)
	return a, args.Error(1)
}

func (m *mockAccountUseCase) UpdateProfile(ctx context.Context, userID int, phone *string, dateOfBirth *time.Time) (*domain.Profile, error) {
	args := m.Called(ctx, userID, phone, dateOfBirth)
	p, _ := args.Get(0).(*domain.Profile)
	return p, args.Error(1)
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }
