package service

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/rl1809/catalog-cart/internal/core/domain"
)

// Mock CacheRepository
type mockCacheRepo struct {
	idempotencySet map[string]bool
	mu             sync.Mutex
}

func newMockCacheRepo() *mockCacheRepo {
	return &mockCacheRepo{idempotencySet: make(map[string]bool)}
}

func (m *mockCacheRepo) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.idempotencySet[key] {
		return false, nil
	}
	m.idempotencySet[key] = true
	return true, nil
}

func (m *mockCacheRepo) ClearIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.idempotencySet, key)
	return nil
}

// Mock InventoryRepository
type mockInventoryRepo struct {
	mu         sync.Mutex
	items      map[string]*domain.Inventory
	failOn     string
	releaseErr error
}

func newMockInventoryRepo(stock map[string]int) *mockInventoryRepo {
	m := &mockInventoryRepo{items: make(map[string]*domain.Inventory)}
	for key, n := range stock {
		m.items[key] = &domain.Inventory{Key: key, ItemID: key, Stock: n}
	}
	return m
}

func (m *mockInventoryRepo) get(key string) domain.Inventory {
	m.mu.Lock()
	defer m.mu.Unlock()
	if inv, ok := m.items[key]; ok {
		return *inv
	}
	return domain.Inventory{}
}

func (m *mockInventoryRepo) GetInventory(ctx context.Context, key string) (*domain.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	out := *inv
	return &out, nil
}

func (m *mockInventoryRepo) ListInventory(ctx context.Context) ([]domain.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Inventory, 0, len(m.items))
	for _, inv := range m.items {
		out = append(out, *inv)
	}
	return out, nil
}

func (m *mockInventoryRepo) Reserve(ctx context.Context, key, itemID string, quantity int) (domain.Inventory, domain.ReserveOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if key == m.failOn {
		return domain.Inventory{}, 0, errors.New("connection reset")
	}
	inv, ok := m.items[key]
	if !ok {
		inv = &domain.Inventory{Key: key, ItemID: itemID, Reserved: quantity}
		m.items[key] = inv
		return *inv, domain.ReserveCreated, nil
	}
	if inv.Available() < quantity {
		return *inv, domain.ReserveInsufficient, nil
	}
	inv.Reserved += quantity
	return *inv, domain.ReserveApplied, nil
}

func (m *mockInventoryRepo) Release(ctx context.Context, key string, quantity int) (*domain.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.releaseErr != nil {
		return nil, m.releaseErr
	}
	inv, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	inv.Reserved = max(inv.Reserved-quantity, 0)
	out := *inv
	return &out, nil
}

func (m *mockInventoryRepo) Consume(ctx context.Context, key string, quantity int) (*domain.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	inv.Stock = max(inv.Stock-quantity, 0)
	inv.Reserved = max(inv.Reserved-quantity, 0)
	out := *inv
	return &out, nil
}

func (m *mockInventoryRepo) SetStock(ctx context.Context, key, itemID string, stock int) (domain.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.items[key]
	if !ok {
		inv = &domain.Inventory{Key: key, ItemID: itemID}
		m.items[key] = inv
	}
	inv.Stock = stock
	return *inv, nil
}

func (m *mockInventoryRepo) AdjustStock(ctx context.Context, key string, delta int) (*domain.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	inv.Stock = max(inv.Stock+delta, 0)
	out := *inv
	return &out, nil
}

func (m *mockInventoryRepo) SetReserved(ctx context.Context, key string, reserved int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.items[key]
	if !ok {
		return domain.ErrInventoryNotFound
	}
	inv.Reserved = reserved
	return nil
}

// Mock OrderRepository
type mockOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	createErr error
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]domain.Order)}
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, o domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	m.orders[o.ID] = o
	return nil
}

func (m *mockOrderRepo) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *mockOrderRepo) ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Order
	for _, o := range m.orders {
		if status == "" || o.Status == status {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) TransitionOrder(ctx context.Context, id string, from, to domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if o.Status != from {
		return domain.ErrOrderStatusConflict
	}
	o.Status = to
	m.orders[id] = o
	return nil
}

func (m *mockOrderRepo) only() domain.Order {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		return o
	}
	return domain.Order{}
}

// Mock InventoryPublisher
type mockPublisher struct {
	mu      sync.Mutex
	changes []domain.InventoryChange
}

func (m *mockPublisher) Publish(c domain.InventoryChange) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.changes = append(m.changes, c)
}

// Mock MessageChannel
type mockChannel struct {
	checkErr   error
	handoffErr error
	messages   []string
	// onHandoff runs while the message is being handed off
	onHandoff func()
}

func (m *mockChannel) Check() error {
	return m.checkErr
}

func (m *mockChannel) Handoff(ctx context.Context, message string) (string, error) {
	if m.handoffErr != nil {
		return "", m.handoffErr
	}
	m.messages = append(m.messages, message)
	if m.onHandoff != nil {
		m.onHandoff()
	}
	return "https://wa.me/5491122334455?text=x", nil
}

// Mock CartStorage
type mockCartStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCartStorage() *mockCartStorage {
	return &mockCartStorage{data: make(map[string][]byte)}
}

func (m *mockCartStorage) LoadCart(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data[key], nil
}

func (m *mockCartStorage) SaveCart(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func (m *mockCartStorage) RemoveCart(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// Mock PriceRepository
type mockPriceRepo struct {
	mu     sync.Mutex
	prices map[string]domain.PriceOverride
	err    error
}

func newMockPriceRepo() *mockPriceRepo {
	return &mockPriceRepo{prices: make(map[string]domain.PriceOverride)}
}

func (m *mockPriceRepo) SetPrice(ctx context.Context, o domain.PriceOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.prices[o.ItemID] = o
	return nil
}

func (m *mockPriceRepo) DeletePrice(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.prices, itemID)
	return nil
}

func (m *mockPriceRepo) ListPrices(ctx context.Context) ([]domain.PriceOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]domain.PriceOverride, 0, len(m.prices))
	for _, o := range m.prices {
		out = append(out, o)
	}
	return out, nil
}
