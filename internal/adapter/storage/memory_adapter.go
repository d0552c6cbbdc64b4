package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/rl1809/catalog-cart/internal/core/domain"
)

// MemoryAdapter implements every storage port in process. Each call holds
// one mutex, which makes every counter update a compare-and-swap.
type MemoryAdapter struct {
	mu          sync.Mutex
	inventory   map[string]domain.Inventory
	orders      map[string]domain.Order
	carts       map[string][]byte
	idempotency map[string]time.Time
	prices      map[string]domain.PriceOverride
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		inventory:   make(map[string]domain.Inventory),
		orders:      make(map[string]domain.Order),
		carts:       make(map[string][]byte),
		idempotency: make(map[string]time.Time),
		prices:      make(map[string]domain.PriceOverride),
	}
}

func (m *MemoryAdapter) GetInventory(ctx context.Context, key string) (*domain.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.inventory[key]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (m *MemoryAdapter) ListInventory(ctx context.Context) ([]domain.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	items := make([]domain.Inventory, 0, len(m.inventory))
	for _, inv := range m.inventory {
		items = append(items, inv)
	}
	return items, nil
}

func (m *MemoryAdapter) Reserve(ctx context.Context, key, itemID string, quantity int) (domain.Inventory, domain.ReserveOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	inv, ok := m.inventory[key]
	if !ok {
		inv = domain.Inventory{Key: key, ItemID: itemID, Reserved: quantity, Version: 1, CreatedAt: now, UpdatedAt: now}
		m.inventory[key] = inv
		return inv, domain.ReserveCreated, nil
	}
	if inv.Available() < quantity {
		return inv, domain.ReserveInsufficient, nil
	}
	inv.Reserved += quantity
	inv.Version++
	inv.UpdatedAt = now
	m.inventory[key] = inv
	return inv, domain.ReserveApplied, nil
}

func (m *MemoryAdapter) apply(key string, fn func(*domain.Inventory)) *domain.Inventory {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.inventory[key]
	if !ok {
		return nil
	}
	fn(&inv)
	inv.Version++
	inv.UpdatedAt = time.Now().UTC()
	m.inventory[key] = inv
	return &inv
}

func (m *MemoryAdapter) Release(ctx context.Context, key string, quantity int) (*domain.Inventory, error) {
	return m.apply(key, func(inv *domain.Inventory) {
		inv.Reserved = max(inv.Reserved-quantity, 0)
	}), nil
}

func (m *MemoryAdapter) Consume(ctx context.Context, key string, quantity int) (*domain.Inventory, error) {
	return m.apply(key, func(inv *domain.Inventory) {
		inv.Stock = max(inv.Stock-quantity, 0)
		inv.Reserved = max(inv.Reserved-quantity, 0)
	}), nil
}

func (m *MemoryAdapter) AdjustStock(ctx context.Context, key string, delta int) (*domain.Inventory, error) {
	return m.apply(key, func(inv *domain.Inventory) {
		inv.Stock = max(inv.Stock+delta, 0)
	}), nil
}

func (m *MemoryAdapter) SetReserved(ctx context.Context, key string, reserved int) error {
	if m.apply(key, func(inv *domain.Inventory) { inv.Reserved = reserved }) == nil {
		return errors.Wrapf(domain.ErrInventoryNotFound, "key %s", key)
	}
	return nil
}

func (m *MemoryAdapter) SetStock(ctx context.Context, key, itemID string, stock int) (domain.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	inv, ok := m.inventory[key]
	if !ok {
		inv = domain.Inventory{Key: key, CreatedAt: now}
	}
	inv.ItemID = itemID
	inv.Stock = stock
	inv.Version++
	inv.UpdatedAt = now
	m.inventory[key] = inv
	return inv, nil
}

func (m *MemoryAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.orders[order.ID]; exists {
		return errors.Errorf("order %s already exists", order.ID)
	}
	order.Items = append([]domain.OrderItem(nil), order.Items...)
	m.orders[order.ID] = order
	return nil
}

func (m *MemoryAdapter) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, nil
	}
	return &o, nil
}

func (m *MemoryAdapter) ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var orders []domain.Order
	for _, o := range m.orders {
		if status == "" || o.Status == status {
			orders = append(orders, o)
		}
	}
	return orders, nil
}

func (m *MemoryAdapter) TransitionOrder(ctx context.Context, id string, from, to domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return errors.Wrapf(domain.ErrOrderNotFound, "order %s", id)
	}
	if o.Status != from {
		return errors.Wrapf(domain.ErrOrderStatusConflict, "order %s is %s", id, o.Status)
	}
	o.Status = to
	o.UpdatedAt = time.Now().UTC()
	m.orders[id] = o
	return nil
}

func (m *MemoryAdapter) LoadCart(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.carts[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryAdapter) SaveCart(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.carts[key] = append([]byte(nil), data...)
	return nil
}

func (m *MemoryAdapter) RemoveCart(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.carts, key)
	return nil
}

func (m *MemoryAdapter) SetIdempotency(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if at, ok := m.idempotency[key]; ok && time.Since(at) < idempotencyKeyTTL {
		return false, nil
	}
	m.idempotency[key] = time.Now()
	return true, nil
}

func (m *MemoryAdapter) ClearIdempotency(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.idempotency, key)
	return nil
}

func (m *MemoryAdapter) SetPrice(ctx context.Context, o domain.PriceOverride) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prices[o.ItemID] = o
	return nil
}

func (m *MemoryAdapter) DeletePrice(ctx context.Context, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.prices, itemID)
	return nil
}

func (m *MemoryAdapter) ListPrices(ctx context.Context) ([]domain.PriceOverride, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]domain.PriceOverride, 0, len(m.prices))
	for _, o := range m.prices {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out, nil
}
