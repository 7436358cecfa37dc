package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"kuickmart/internal/domain"
	"kuickmart/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// In-memory repositories for service tests

type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Email < all[j].Email })
	if offset > len(all) {
		offset = len(all)
	}
	end := min(offset+limit, len(all))
	return all[offset:end], len(all), nil
}

func (m *mockUserRepository) UpdateProfile(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for email, u := range m.users {
		if u.ID == user.ID {
			delete(m.users, email)
			m.users[user.Email] = user
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (m *mockUserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			u.Role = role
			return nil
		}
	}
	return repository.ErrUserNotFound
}

func (m *mockUserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for email, u := range m.users {
		if u.ID == id {
			delete(m.users, email)
			return nil
		}
	}
	return repository.ErrUserNotFound
}

type mockRefreshTokenRepository struct {
	mu     sync.Mutex
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	refreshToken, exists := m.tokens[token]
	if !exists {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.UserID == userID {
			t.Revoked = true
		}
	}
	return nil
}

func (m *mockRefreshTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for k, t := range m.tokens {
		if t.ExpiresAt.Before(before) {
			delete(m.tokens, k)
			n++
		}
	}
	return n, nil
}

type mockProductRepository struct {
	mu       sync.Mutex
	products map[uuid.UUID]*domain.Product
	// decrementErr forces DecrementStock to fail for a product
	decrementErr map[uuid.UUID]error
}

func newMockProductRepository(products ...*domain.Product) *mockProductRepository {
	m := &mockProductRepository{
		products:     make(map[uuid.UUID]*domain.Product),
		decrementErr: make(map[uuid.UUID]error),
	}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductRepository) stockOf(id uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.products[id].Stock
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.products[product.ID]
	if !ok {
		return repository.ErrProductNotFound
	}
	if stored.Version != product.Version {
		return repository.ErrProductVersionConflict
	}
	product.Version++
	product.UpdatedAt = time.Now()
	cp := *product
	m.products[product.ID] = &cp
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[uuid.UUID]*domain.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			cp := *p
			out[id] = &cp
		}
	}
	return out, nil
}

func (m *mockProductRepository) List(ctx context.Context, filter domain.ProductFilter) ([]*domain.Product, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []*domain.Product
	for _, p := range m.products {
		if filter.CategoryID == nil || p.CategoryID == *filter.CategoryID {
			all = append(all, p)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	start := min(filter.Offset(), len(all))
	end := min(start+filter.PageSize, len(all))
	return all[start:end], len(all), nil
}

func (m *mockProductRepository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.decrementErr[id]; ok {
		return 0, err
	}
	p, ok := m.products[id]
	if !ok {
		return 0, repository.ErrProductNotFound
	}
	if p.Stock < qty {
		return p.Stock, &repository.StockShortError{Available: p.Stock}
	}
	p.Stock -= qty
	p.Version++
	return p.Stock, nil
}

func (m *mockProductRepository) IncrementStock(ctx context.Context, id uuid.UUID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return repository.ErrProductNotFound
	}
	p.Stock += qty
	p.Version++
	return nil
}

func (m *mockProductRepository) CountByCategory(ctx context.Context, categoryID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, p := range m.products {
		if p.CategoryID == categoryID {
			n++
		}
	}
	return n, nil
}

type mockCategoryRepository struct {
	mu         sync.Mutex
	categories map[uuid.UUID]*domain.Category
	products   *mockProductRepository
	finds      int
}

func newMockCategoryRepository(products *mockProductRepository, categories ...*domain.Category) *mockCategoryRepository {
	m := &mockCategoryRepository{categories: make(map[uuid.UUID]*domain.Category), products: products}
	for _, c := range categories {
		m.categories[c.ID] = c
	}
	return m
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.categories {
		if c.Name == category.Name {
			return repository.ErrCategoryAlreadyExists
		}
	}
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.categories[category.ID]
	if !ok {
		return repository.ErrCategoryNotFound
	}
	category.CreatedAt = stored.CreatedAt
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := m.FindByID(ctx, id); err != nil {
		return err
	}
	if n, _ := m.products.CountByCategory(ctx, id); n > 0 {
		return &domain.CategoryInUseError{CategoryID: id, Products: n}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.categories, id)
	return nil
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.finds++
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	cp := *c
	return &cp, nil
}

type mockCartRepository struct {
	mu    sync.Mutex
	lines map[uuid.UUID][]domain.CartItem
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{lines: make(map[uuid.UUID][]domain.CartItem)}
}

func (m *mockCartRepository) FindByUser(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.NewCart(userID, m.lines[userID]...), nil
}

func (m *mockCartRepository) Upsert(ctx context.Context, userID uuid.UUID, item domain.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := m.lines[userID]
	for i := range lines {
		if lines[i].ProductID == item.ProductID {
			lines[i] = item
			return nil
		}
	}
	m.lines[userID] = append(lines, item)
	return nil
}

func (m *mockCartRepository) Delete(ctx context.Context, userID, productID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lines := m.lines[userID]
	for i := range lines {
		if lines[i].ProductID == productID {
			m.lines[userID] = append(lines[:i:i], lines[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockCartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lines, userID)
	return nil
}

type mockOrderRepository struct {
	mu        sync.Mutex
	orders    map[uuid.UUID]*domain.Order
	carts     *mockCartRepository
	createErr error
}

func newMockOrderRepository(carts *mockCartRepository) *mockOrderRepository {
	return &mockOrderRepository{orders: make(map[uuid.UUID]*domain.Order), carts: carts}
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}

	// Same contract as the Postgres repository: the ordered lines must still
	// be in the cart with the same quantities, and they are consumed
	m.carts.mu.Lock()
	defer m.carts.mu.Unlock()
	lines := m.carts.lines[order.UserID]
	remaining := make([]domain.CartItem, 0, len(lines))
	matched := 0
	for _, line := range lines {
		if i := slices.IndexFunc(order.Items, func(it domain.OrderItem) bool { return it.ProductID == line.ProductID }); i >= 0 {
			if order.Items[i].Quantity != line.Quantity {
				return repository.ErrCartChanged
			}
			matched++
			continue
		}
		remaining = append(remaining, line)
	}
	if matched != len(order.Items) {
		return repository.ErrCartChanged
	}
	m.carts.lines[order.UserID] = remaining

	cp := *order
	m.orders[order.ID] = &cp
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Order{}
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderRepository) List(ctx context.Context, limit, offset int) ([]*domain.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.Order{}
	for _, o := range m.orders {
		out = append(out, o)
	}
	total := len(out)
	start := min(offset, total)
	return out[start:min(start+limit, total)], total, nil
}

func (m *mockOrderRepository) MarkPaid(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return m.set(id, func(o *domain.Order) bool {
		if o.IsPaid {
			return false
		}
		o.IsPaid, o.PaidAt = true, &at
		return true
	})
}

func (m *mockOrderRepository) MarkDelivered(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	return m.set(id, func(o *domain.Order) bool {
		if o.IsDelivered {
			return false
		}
		o.IsDelivered, o.DeliveredAt = true, &at
		return true
	})
}

func (m *mockOrderRepository) set(id uuid.UUID, apply func(*domain.Order) bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return false, repository.ErrOrderNotFound
	}
	return apply(o), nil
}

type mockRewardsRepository struct {
	mu       sync.Mutex
	balances map[uuid.UUID]int64
	entries  map[uuid.UUID]*domain.RewardEntry
	err      error
}

func newMockRewardsRepository() *mockRewardsRepository {
	return &mockRewardsRepository{
		balances: make(map[uuid.UUID]int64),
		entries:  make(map[uuid.UUID]*domain.RewardEntry),
	}
}

func (m *mockRewardsRepository) GetAccount(ctx context.Context, userID uuid.UUID) (*domain.RewardsAccount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return &domain.RewardsAccount{UserID: userID, Points: m.balances[userID]}, nil
}

func (m *mockRewardsRepository) Credit(ctx context.Context, entry *domain.RewardEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if _, dup := m.entries[entry.OrderID]; dup {
		return false, nil
	}
	m.entries[entry.OrderID] = entry
	m.balances[entry.UserID] += entry.Points
	return true, nil
}

func (m *mockRewardsRepository) ListEntries(ctx context.Context, userID uuid.UUID) ([]*domain.RewardEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.RewardEntry{}
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

type recordingPublisher struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (p *recordingPublisher) Publish(ctx context.Context, n domain.Notification) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = append(p.sent, n)
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.sent)
}

func newTestProduct(categoryID uuid.UUID, price string, stock int) *domain.Product {
	return &domain.Product{
		ID:         uuid.New(),
		Name:       fmt.Sprintf("product-%s", uuid.NewString()[:6]),
		Price:      decimal.RequireFromString(price),
		CategoryID: categoryID,
		Stock:      stock,
		Colors:     []string{"red", "blue"},
		Images:     []string{},
		Version:    1,
	}
}
