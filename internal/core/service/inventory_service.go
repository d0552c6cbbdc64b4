package service

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/rl1809/catalog-cart/internal/core/domain"
	"github.com/rl1809/catalog-cart/internal/port"
)

// InventoryService reserves, confirms and releases stock per inventory key.
type InventoryService struct {
	inventory port.InventoryRepository
	orders    port.OrderRepository
	publisher port.InventoryPublisher
	metrics   port.Metrics
}

type InventoryOption func(*InventoryService)

func WithPublisher(p port.InventoryPublisher) InventoryOption {
	return func(s *InventoryService) { s.publisher = p }
}

func WithInventoryMetrics(m port.Metrics) InventoryOption {
	return func(s *InventoryService) { s.metrics = m }
}

func NewInventoryService(inventory port.InventoryRepository, orders port.OrderRepository, opts ...InventoryOption) *InventoryService {
	s := &InventoryService{
		inventory: inventory,
		orders:    orders,
		publisher: nopPublisher{},
		metrics:   port.NopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Available returns nil when the key has no inventory record, meaning the
// item is not under stock control.
func (s *InventoryService) Available(ctx context.Context, itemID, variantID string) (*int, error) {
	inv, err := s.inventory.GetInventory(ctx, domain.StockKey(itemID, variantID))
	if err != nil {
		return nil, errors.Wrap(err, "get inventory")
	}
	if inv == nil {
		return nil, nil
	}
	n := inv.Available()
	return &n, nil
}

func (s *InventoryService) Get(ctx context.Context, key string) (*domain.Inventory, error) {
	inv, err := s.inventory.GetInventory(ctx, key)
	if err != nil {
		return nil, errors.Wrap(err, "get inventory")
	}
	if inv == nil {
		return nil, errors.Wrapf(domain.ErrInventoryNotFound, "key %s", key)
	}
	return inv, nil
}

// ValidateAvailability checks every inventory key touched by lines against
// its current available count. Keys without a record pass.
func (s *InventoryService) ValidateAvailability(ctx context.Context, lines []domain.LineItem) error {
	type demand struct {
		name      string
		itemID    string
		variantID string
		quantity  int
	}
	var order []string
	byKey := make(map[string]*demand)
	for _, l := range lines {
		key := l.StockKey()
		d, ok := byKey[key]
		if !ok {
			d = &demand{name: l.Name, itemID: l.Base(), variantID: l.VariantID}
			byKey[key] = d
			order = append(order, key)
		}
		d.quantity += l.Quantity
	}

	for _, key := range order {
		d := byKey[key]
		available, err := s.Available(ctx, d.itemID, d.variantID)
		if err != nil {
			return err
		}
		if available == nil || *available >= d.quantity {
			continue
		}
		s.metrics.StockRejected(key)
		return &domain.StockError{Name: d.name, Key: key, Requested: d.quantity, Available: max(*available, 0)}
	}
	return nil
}

// Reserve holds stock for every item. Each key is reserved atomically; if a
// later key fails, keys already reserved by this call are released before
// the error is returned.
func (s *InventoryService) Reserve(ctx context.Context, items []domain.ReservationItem) error {
	done := make([]domain.ReservationItem, 0, len(items))
	for _, it := range items {
		key := it.Key()
		inv, outcome, err := s.inventory.Reserve(ctx, key, it.ItemID, it.Quantity)
		if err != nil {
			s.metrics.ReservationFailed(key)
			s.compensate(ctx, done)
			return errors.Wrapf(err, "reserve %s", key)
		}

		switch outcome {
		case domain.ReserveInsufficient:
			s.metrics.ReservationFailed(key)
			s.compensate(ctx, done)
			return &domain.StockError{Name: it.Name, Key: key, Requested: it.Quantity, Available: max(inv.Available(), 0)}
		case domain.ReserveCreated:
			log.WithFields(log.Fields{"key": key, "reserved": inv.Reserved}).
				Warn("no inventory record, created with zero stock")
		}

		done = append(done, it)
		s.publisher.Publish(domain.NewInventoryChange(domain.ChangeReserved, inv))
	}
	return nil
}

func (s *InventoryService) compensate(ctx context.Context, done []domain.ReservationItem) {
	for _, it := range done {
		inv, err := s.inventory.Release(ctx, it.Key(), it.Quantity)
		if err != nil {
			log.WithError(err).WithFields(log.Fields{"key": it.Key(), "quantity": it.Quantity}).
				Error("CRITICAL: failed to release reservation")
			continue
		}
		if inv != nil {
			s.publisher.Publish(domain.NewInventoryChange(domain.ChangeReleased, *inv))
		}
	}
}

// Release returns reserved units without touching an order.
func (s *InventoryService) Release(ctx context.Context, items []domain.ReservationItem) {
	s.compensate(ctx, items)
}

// Confirm moves a pending order to confirmed and permanently removes its
// units from stock.
func (s *InventoryService) Confirm(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.settle(ctx, orderID, domain.OrderStatusConfirmed)
}

// Cancel moves a pending order to cancelled and returns its units to the
// available pool.
func (s *InventoryService) Cancel(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.settle(ctx, orderID, domain.OrderStatusCancelled)
}

func (s *InventoryService) settle(ctx context.Context, orderID string, to domain.OrderStatus) (*domain.Order, error) {
	o, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	if o == nil {
		return nil, errors.Wrapf(domain.ErrOrderNotFound, "order %s", orderID)
	}
	if err := s.orders.TransitionOrder(ctx, orderID, domain.OrderStatusPending, to); err != nil {
		return nil, errors.Wrapf(err, "transition order %s to %s", orderID, to)
	}
	s.metrics.OrderTransitioned(string(to))

	logger := log.WithFields(log.Fields{"order_id": orderID, "status": to})
	var firstErr error
	for _, it := range o.ReservationItems() {
		var (
			inv  *domain.Inventory
			err  error
			kind domain.InventoryChangeKind
		)
		if to == domain.OrderStatusConfirmed {
			inv, err = s.inventory.Consume(ctx, it.Key(), it.Quantity)
			kind = domain.ChangeConfirmed
		} else {
			inv, err = s.inventory.Release(ctx, it.Key(), it.Quantity)
			kind = domain.ChangeReleased
		}
		if err != nil {
			logger.WithError(err).WithField("key", it.Key()).Error("CRITICAL: stock not settled for order item")
			if firstErr == nil {
				firstErr = errors.Wrapf(err, "settle %s", it.Key())
			}
			continue
		}
		if inv == nil {
			logger.WithField("key", it.Key()).Debug("no inventory record to settle")
			continue
		}
		s.publisher.Publish(domain.NewInventoryChange(kind, *inv))
	}

	o.Status = to
	logger.Info("order settled")
	return o, firstErr
}

func (s *InventoryService) SetStock(ctx context.Context, itemID, variantID string, stock int) (domain.Inventory, error) {
	if stock < 0 {
		return domain.Inventory{}, errors.Wrapf(domain.ErrInvalidStock, "stock %d", stock)
	}
	inv, err := s.inventory.SetStock(ctx, domain.StockKey(itemID, variantID), itemID, stock)
	if err != nil {
		return domain.Inventory{}, errors.Wrap(err, "set stock")
	}
	s.publisher.Publish(domain.NewInventoryChange(domain.ChangeStockSet, inv))
	return inv, nil
}

// AdjustStock adds delta to an existing record's stock, flooring at zero.
func (s *InventoryService) AdjustStock(ctx context.Context, key string, delta int) (domain.Inventory, error) {
	inv, err := s.inventory.AdjustStock(ctx, key, delta)
	if err != nil {
		return domain.Inventory{}, errors.Wrap(err, "adjust stock")
	}
	if inv == nil {
		return domain.Inventory{}, errors.Wrapf(domain.ErrInventoryNotFound, "key %s", key)
	}
	s.publisher.Publish(domain.NewInventoryChange(domain.ChangeStockSet, *inv))
	return *inv, nil
}

// Seed creates a record with the given stock for every key that has none.
// It returns the keys it created.
func (s *InventoryService) Seed(ctx context.Context, items []domain.ReservationItem, stock int) ([]string, error) {
	if stock < 0 {
		return nil, errors.Wrapf(domain.ErrInvalidStock, "stock %d", stock)
	}
	var created []string
	for _, it := range items {
		key := it.Key()
		existing, err := s.inventory.GetInventory(ctx, key)
		if err != nil {
			return created, errors.Wrap(err, "get inventory")
		}
		if existing != nil {
			continue
		}
		if _, err := s.SetStock(ctx, it.ItemID, it.VariantID, stock); err != nil {
			return created, err
		}
		created = append(created, key)
	}
	return created, nil
}

func (s *InventoryService) List(ctx context.Context) ([]domain.Inventory, error) {
	items, err := s.inventory.ListInventory(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list inventory")
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Key < items[j].Key })
	return items, nil
}

// ListOrders returns the tenant's orders with the given status, oldest
// first. An empty status lists every order.
func (s *InventoryService) ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	orders, err := s.orders.ListOrders(ctx, status)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
	return orders, nil
}

// pendingReserved sums the quantities of pending orders per inventory key.
func (s *InventoryService) pendingReserved(ctx context.Context) (map[string]int, error) {
	pending, err := s.orders.ListOrders(ctx, domain.OrderStatusPending)
	if err != nil {
		return nil, errors.Wrap(err, "list pending orders")
	}
	sums := make(map[string]int)
	for _, o := range pending {
		for _, it := range o.ReservationItems() {
			sums[it.Key()] += it.Quantity
		}
	}
	return sums, nil
}

// RecalculateReserved rebuilds every record's reserved counter from the
// pending orders. It returns the records whose counter changed.
func (s *InventoryService) RecalculateReserved(ctx context.Context) ([]ReservedDrift, error) {
	drifts, err := s.Diagnose(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range drifts.Drift {
		if err := s.inventory.SetReserved(ctx, d.Key, d.Expected); err != nil {
			return nil, errors.Wrapf(err, "set reserved %s", d.Key)
		}
		inv, err := s.inventory.GetInventory(ctx, d.Key)
		if err == nil && inv != nil {
			s.publisher.Publish(domain.NewInventoryChange(domain.ChangeStockSet, *inv))
		}
		log.WithFields(log.Fields{"key": d.Key, "stored": d.Stored, "expected": d.Expected}).Info("reserved counter rebuilt")
	}
	return drifts.Drift, nil
}

type ReservedDrift struct {
	Key      string
	Stored   int
	Expected int
}

type Diagnosis struct {
	// Oversold records have more reserved than stock.
	Oversold []domain.Inventory
	// Drift lists records whose reserved counter disagrees with pending orders.
	Drift []ReservedDrift
}

func (s *InventoryService) Diagnose(ctx context.Context) (Diagnosis, error) {
	var d Diagnosis
	items, err := s.List(ctx)
	if err != nil {
		return d, err
	}
	sums, err := s.pendingReserved(ctx)
	if err != nil {
		return d, err
	}
	for _, inv := range items {
		if inv.Available() < 0 {
			d.Oversold = append(d.Oversold, inv)
		}
		if expected := sums[inv.Key]; expected != inv.Reserved {
			d.Drift = append(d.Drift, ReservedDrift{Key: inv.Key, Stored: inv.Reserved, Expected: expected})
		}
	}
	return d, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(domain.InventoryChange) {}
