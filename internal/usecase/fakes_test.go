package usecase

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"store_service/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// memStore is an in-memory stand-in for the database shared by the fake
// repositories below.
type memStore struct {
	mu         sync.Mutex
	nextID     int
	categories map[int]domain.Category
	products   map[int]domain.Product
	carts      map[int]domain.Cart
	cartItems  map[int]domain.CartItem
	orders     map[int]domain.Order
	orderItems map[int]domain.OrderItem
	users      map[int]domain.User
	profiles   map[int]domain.Profile
}

func newMemStore() *memStore {
	return &memStore{
		categories: map[int]domain.Category{},
		products:   map[int]domain.Product{},
		carts:      map[int]domain.Cart{},
		cartItems:  map[int]domain.CartItem{},
		orders:     map[int]domain.Order{},
		orderItems: map[int]domain.OrderItem{},
		users:      map[int]domain.User{},
		profiles:   map[int]domain.Profile{},
	}
}

func (s *memStore) id() int {
	s.nextID++
	return s.nextID
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (s *memStore) snapshot() *memStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memStore{
		nextID:     s.nextID,
		categories: copyMap(s.categories),
		products:   copyMap(s.products),
		carts:      copyMap(s.carts),
		cartItems:  copyMap(s.cartItems),
		orders:     copyMap(s.orders),
		orderItems: copyMap(s.orderItems),
		users:      copyMap(s.users),
		profiles:   copyMap(s.profiles),
	}
}

func (s *memStore) restore(snap *memStore) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories = snap.categories
	s.products = snap.products
	s.carts = snap.carts
	s.cartItems = snap.cartItems
	s.orders = snap.orders
	s.orderItems = snap.orderItems
	s.users = snap.users
	s.profiles = snap.profiles
}

func (s *memStore) seedProduct(name, price string, stock int) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := domain.Product{
		ID:        s.id(),
		Name:      name,
		SKU:       "SKU-" + strings.ToUpper(strings.ReplaceAll(name, " ", "")),
		Slug:      slugify(name),
		Price:     dec(price),
		Stock:     stock,
		Available: true,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	s.products[p.ID] = p
	return p
}

func (s *memStore) product(id int) domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id]
}

func (s *memStore) setProduct(p domain.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// fakeTransactor serialises transactions and restores the pre-transaction
// snapshot when fn fails.
type fakeTransactor struct {
	store     *memStore
	mu        sync.Mutex
	commits   int
	rollbacks int
}

func (f *fakeTransactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := f.store.snapshot()
	if err := fn(ctx); err != nil {
		f.store.restore(snap)
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

type fakeCategoryRepo struct{ s *memStore }

func (r *fakeCategoryRepo) CreateCategory(_ context.Context, c *domain.Category) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c.ID = r.s.id()
	c.CreatedAt = time.Now()
	r.s.categories[c.ID] = *c
	out := *c
	return &out, nil
}

func (r *fakeCategoryRepo) GetCategoryByID(_ context.Context, id int) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.categories[id]
	if !ok {
		return nil, fmt.Errorf("%w: category with id %d", domain.ErrCategoryNotFound, id)
	}
	return &c, nil
}

func (r *fakeCategoryRepo) UpdateCategory(_ context.Context, c *domain.Category) (*domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[c.ID]; !ok {
		return nil, fmt.Errorf("%w: category with id %d", domain.ErrCategoryNotFound, c.ID)
	}
	r.s.categories[c.ID] = *c
	out := *c
	return &out, nil
}

func (r *fakeCategoryRepo) DeleteCategory(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.categories[id]; !ok {
		return fmt.Errorf("%w: category with id %d", domain.ErrCategoryNotFound, id)
	}
	delete(r.s.categories, id)
	for pid, p := range r.s.products {
		if p.CategoryID == id {
			p.CategoryID = 0
			r.s.products[pid] = p
		}
	}
	return nil
}

func (r *fakeCategoryRepo) ListCategories(_ context.Context) ([]domain.Category, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeCategoryRepo) SlugExists(_ context.Context, slug string, excludeID int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.categories {
		if c.Slug == slug && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

type fakeProductRepo struct {
	s *memStore
	// locked records the ids of every GetProductsForUpdate call, guarded by s.mu.
	locked [][]int
}

func (r *fakeProductRepo) lockCalls() [][]int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return append([][]int(nil), r.locked...)
}

func productNotFound(id int) error {
	return fmt.Errorf("%w: product with id %d", domain.ErrProductNotFound, id)
}

func (r *fakeProductRepo) CreateProduct(_ context.Context, p *domain.Product) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.products {
		if existing.SKU == p.SKU {
			return nil, fmt.Errorf("%w: product with sku '%s'", domain.ErrConflict, p.SKU)
		}
	}
	p.ID = r.s.id()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	r.s.products[p.ID] = *p
	out := *p
	return &out, nil
}

func (r *fakeProductRepo) GetProductByID(_ context.Context, id int) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, productNotFound(id)
	}
	return &p, nil
}

func (r *fakeProductRepo) GetProductsForUpdate(_ context.Context, ids []int) (map[int]*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.locked = append(r.locked, append([]int(nil), ids...))
	out := make(map[int]*domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			out[id] = &p
		}
	}
	return out, nil
}

func (r *fakeProductRepo) UpdateProduct(_ context.Context, id int, u domain.ProductUpdate, slug string) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, productNotFound(id)
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Stock != nil {
		p.Stock = *u.Stock
	}
	if u.Available != nil {
		p.Available = *u.Available
	}
	if u.Featured != nil {
		p.Featured = *u.Featured
	}
	if u.CategoryID != nil {
		p.CategoryID = *u.CategoryID
	}
	if slug != "" {
		p.Slug = slug
	}
	p.UpdatedAt = time.Now()
	r.s.products[id] = p
	return &p, nil
}

func (r *fakeProductRepo) AdjustStock(_ context.Context, id int, delta int) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return 0, productNotFound(id)
	}
	if p.Stock+delta < 0 {
		return 0, fmt.Errorf("%w: product %d", domain.ErrInsufficientStock, id)
	}
	p.Stock += delta
	r.s.products[id] = p
	return p.Stock, nil
}

func (r *fakeProductRepo) DeleteProduct(_ context.Context, id int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.products[id]; !ok {
		return productNotFound(id)
	}
	delete(r.s.products, id)
	for itemID, item := range r.s.cartItems {
		if item.ProductID == id {
			delete(r.s.cartItems, itemID)
		}
	}
	for itemID, item := range r.s.orderItems {
		if item.ProductID != nil && *item.ProductID == id {
			item.ProductID = nil
			r.s.orderItems[itemID] = item
		}
	}
	return nil
}

func (r *fakeProductRepo) ListProducts(_ context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Product{}
	for _, p := range r.s.products {
		if f.CategoryID != 0 && p.CategoryID != f.CategoryID {
			continue
		}
		if f.Available != nil && p.Available != *f.Available {
			continue
		}
		if f.Featured != nil && p.Featured != *f.Featured {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *fakeProductRepo) SlugExists(_ context.Context, slug string, excludeID int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, p := range r.s.products {
		if p.Slug == slug && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

type fakeCartRepo struct{ s *memStore }

// loadCart must be called with the store locked.
func (r *fakeCartRepo) loadCart(c domain.Cart) *domain.Cart {
	c.Items = []domain.CartItem{}
	for _, item := range r.s.cartItems {
		if item.CartID != c.ID {
			continue
		}
		p := r.s.products[item.ProductID]
		item.ProductName = p.Name
		item.ProductSKU = p.SKU
		item.CurrentPrice = p.Price
		c.Items = append(c.Items, item)
	}
	sort.Slice(c.Items, func(i, j int) bool { return c.Items[i].ID < c.Items[j].ID })
	return &c
}

func (r *fakeCartRepo) GetOrCreateCart(_ context.Context, userID int, expiresAt time.Time) (*domain.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.carts {
		if c.UserID == userID {
			return r.loadCart(c), nil
		}
	}
	c := domain.Cart{ID: r.s.id(), UserID: userID, IsActive: true, ExpiresAt: expiresAt, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	r.s.carts[c.ID] = c
	return r.loadCart(c), nil
}

func (r *fakeCartRepo) GetCartForUpdate(_ context.Context, userID int) (*domain.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, c := range r.s.carts {
		if c.UserID == userID {
			return r.loadCart(c), nil
		}
	}
	return nil, fmt.Errorf("%w: user %d has no cart", domain.ErrEmptyCart, userID)
}

func (r *fakeCartRepo) AddItem(_ context.Context, cartID, productID, quantity int, price decimal.Decimal) (*domain.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, item := range r.s.cartItems {
		if item.CartID == cartID && item.ProductID == productID {
			item.Quantity += quantity
			r.s.cartItems[id] = item
			return &item, nil
		}
	}
	item := domain.CartItem{
		ID:              r.s.id(),
		CartID:          cartID,
		ProductID:       productID,
		PriceAtAddition: decimal.NewNullDecimal(price),
		Quantity:        quantity,
		AddedAt:         time.Now(),
	}
	r.s.cartItems[item.ID] = item
	return &item, nil
}

func (r *fakeCartRepo) GetItemForUpdate(_ context.Context, cartID, productID int) (*domain.CartItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, item := range r.s.cartItems {
		if item.CartID == cartID && item.ProductID == productID {
			return &item, nil
		}
	}
	return nil, fmt.Errorf("%w: product %d", domain.ErrItemNotInCart, productID)
}

func (r *fakeCartRepo) SetItemQuantity(_ context.Context, itemID, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item := r.s.cartItems[itemID]
	item.Quantity = quantity
	r.s.cartItems[itemID] = item
	return nil
}

func (r *fakeCartRepo) DeleteItem(_ context.Context, itemID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.cartItems, itemID)
	return nil
}

func (r *fakeCartRepo) ClearCart(_ context.Context, cartID int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for id, item := range r.s.cartItems {
		if item.CartID == cartID {
			delete(r.s.cartItems, id)
		}
	}
	return nil
}

type fakeOrderRepo struct {
	s *memStore
	// failCreate makes CreateOrder fail after stock was already adjusted.
	failCreate error
}

func orderNotFound(id int) error {
	return fmt.Errorf("%w: order with id %d", domain.ErrOrderNotFound, id)
}

// loadOrder must be called with the store locked.
func (r *fakeOrderRepo) loadOrder(o domain.Order) *domain.Order {
	o.Items = []domain.OrderItem{}
	for _, item := range r.s.orderItems {
		if item.OrderID == o.ID {
			o.Items = append(o.Items, item)
		}
	}
	sort.Slice(o.Items, func(i, j int) bool { return o.Items[i].ID < o.Items[j].ID })
	return &o
}

// hasProduct must be called with the store locked.
func (r *fakeOrderRepo) hasProduct(orderID int, productID *int) bool {
	if productID == nil {
		return false
	}
	for _, item := range r.s.orderItems {
		if item.OrderID == orderID && item.ProductID != nil && *item.ProductID == *productID {
			return true
		}
	}
	return false
}

func (r *fakeOrderRepo) CreateOrder(_ context.Context, o *domain.Order) (*domain.Order, error) {
	if r.failCreate != nil {
		return nil, r.failCreate
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := *o
	stored.ID = r.s.id()
	stored.CreatedAt = time.Now()
	stored.UpdatedAt = stored.CreatedAt
	stored.Items = nil
	r.s.orders[stored.ID] = stored
	for _, item := range o.Items {
		if r.hasProduct(stored.ID, item.ProductID) {
			return nil, fmt.Errorf("%w: order item for product %d", domain.ErrConflict, *item.ProductID)
		}
		item.ID = r.s.id()
		item.OrderID = stored.ID
		r.s.orderItems[item.ID] = item
	}
	return r.loadOrder(stored), nil
}

func (r *fakeOrderRepo) GetOrderByID(_ context.Context, id int) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, orderNotFound(id)
	}
	return r.loadOrder(o), nil
}

func (r *fakeOrderRepo) GetOrderForUpdate(ctx context.Context, id int) (*domain.Order, error) {
	return r.GetOrderByID(ctx, id)
}

func (r *fakeOrderRepo) SaveOrderState(_ context.Context, o *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.orders[o.ID]
	if !ok {
		return orderNotFound(o.ID)
	}
	stored.Status = o.Status
	stored.PaymentDate = o.PaymentDate
	stored.ShippingDate = o.ShippingDate
	stored.TrackingNumber = o.TrackingNumber
	stored.Notes = o.Notes
	stored.UpdatedAt = time.Now()
	r.s.orders[o.ID] = stored
	o.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *fakeOrderRepo) ListOrders(_ context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []domain.Order{}
	for _, o := range r.s.orders {
		if o.UserID != f.UserID || (f.Status != "" && o.Status != f.Status) {
			continue
		}
		out = append(out, *r.loadOrder(o))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (r *fakeOrderRepo) AddOrderItem(_ context.Context, item *domain.OrderItem) (*domain.OrderItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.hasProduct(item.OrderID, item.ProductID) {
		return nil, fmt.Errorf("%w: order item for product %d", domain.ErrConflict, *item.ProductID)
	}
	item.ID = r.s.id()
	r.s.orderItems[item.ID] = *item
	out := *item
	return &out, nil
}

func (r *fakeOrderRepo) DeleteOrderItem(_ context.Context, orderID, itemID int) (*domain.OrderItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	item, ok := r.s.orderItems[itemID]
	if !ok || item.OrderID != orderID {
		return nil, fmt.Errorf("%w: item %d of order %d", domain.ErrOrderItemNotFound, itemID, orderID)
	}
	delete(r.s.orderItems, itemID)
	return &item, nil
}

func (r *fakeOrderRepo) RecalculateTotal(_ context.Context, orderID int, taxRate decimal.Decimal) (decimal.Decimal, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[orderID]
	if !ok {
		return decimal.Zero, orderNotFound(orderID)
	}
	total := r.loadOrder(o).ItemsTotal()
	o.TotalPrice = total
	o.TaxAmount = domain.TaxFor(total, taxRate)
	r.s.orders[orderID] = o
	return total, nil
}

type fakeUserRepo struct{ s *memStore }

func (r *fakeUserRepo) CreateUser(_ context.Context, u *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return nil, fmt.Errorf("%w: user with email '%s'", domain.ErrConflict, u.Email)
		}
	}
	u.ID = r.s.id()
	u.IsActive = true
	u.CreatedAt = time.Now()
	r.s.users[u.ID] = *u
	out := *u
	return &out, nil
}

func (r *fakeUserRepo) GetUserByID(_ context.Context, id int) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("%w: user with id %d", domain.ErrUserNotFound, id)
	}
	return &u, nil
}

func (r *fakeUserRepo) CreateProfile(_ context.Context, userID int) (*domain.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[userID]; !ok {
		return nil, fmt.Errorf("%w: user with id %d", domain.ErrUserNotFound, userID)
	}
	p, ok := r.s.profiles[userID]
	if !ok {
		p = domain.Profile{UserID: userID, CreatedAt: time.Now()}
		r.s.profiles[userID] = p
	}
	return &p, nil
}

func (r *fakeUserRepo) GetProfile(_ context.Context, userID int) (*domain.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("%w: profile for user %d", domain.ErrUserNotFound, userID)
	}
	return &p, nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, p *domain.Profile) (*domain.Profile, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.profiles[p.UserID]; !ok {
		return nil, fmt.Errorf("%w: profile for user %d", domain.ErrUserNotFound, p.UserID)
	}
	r.s.profiles[p.UserID] = *p
	out := *p
	return &out, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []domain.OrderEventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.OrderEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// shop bundles the use cases over one shared in-memory store.
type shop struct {
	store       *memStore
	tx          *fakeTransactor
	orderRepo   *fakeOrderRepo
	productRepo *fakeProductRepo
	events      *recordingPublisher
	carts       domain.CartUseCase
	orders      domain.OrderUseCase
	products    domain.ProductUseCase
	category    domain.CategoryUseCase
	accounts    domain.AccountUseCase
}

func newShop() *shop {
	store := newMemStore()
	tx := &fakeTransactor{store: store}
	log := testLogger()

	productRepo := &fakeProductRepo{s: store}
	categoryRepo := &fakeCategoryRepo{s: store}
	cartRepo := &fakeCartRepo{s: store}
	orderRepo := &fakeOrderRepo{s: store}
	events := &recordingPublisher{}

	return &shop{
		store:       store,
		tx:          tx,
		orderRepo:   orderRepo,
		productRepo: productRepo,
		events:      events,
		carts:       NewCartUseCase(tx, cartRepo, productRepo, domain.DefaultCartTTL, log),
		orders:      NewOrderUseCase(tx, orderRepo, cartRepo, productRepo, events, dec("0.10"), log),
		products:    NewProductUseCase(productRepo, categoryRepo, log),
		category:    NewCategoryUseCase(categoryRepo, log),
		accounts:    NewAccountUseCase(tx, &fakeUserRepo{s: store}, cartRepo, domain.DefaultCartTTL, log),
	}
}
