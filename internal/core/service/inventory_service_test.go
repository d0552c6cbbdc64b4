package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/catalog-cart/internal/core/domain"
)

func newInventory(stock map[string]int) (*InventoryService, *mockInventoryRepo, *mockOrderRepo, *mockPublisher) {
	repo := newMockInventoryRepo(stock)
	orders := newMockOrderRepo()
	pub := &mockPublisher{}
	return NewInventoryService(repo, orders, WithPublisher(pub)), repo, orders, pub
}

func TestAvailable(t *testing.T) {
	svc, _, _, _ := newInventory(map[string]int{"pizza": 5, "remera_xl": 2})
	ctx := context.Background()

	n, err := svc.Available(ctx, "pizza", "")
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.Equal(t, 5, *n)

	n, err = svc.Available(ctx, "remera", "xl")
	require.NoError(t, err)
	assert.Equal(t, 2, *n)

	n, err = svc.Available(ctx, "untracked", "")
	require.NoError(t, err)
	assert.Nil(t, n)
}

func TestReserve_Success(t *testing.T) {
	svc, repo, _, pub := newInventory(map[string]int{"a": 3, "b": 1})

	err := svc.Reserve(context.Background(), []domain.ReservationItem{
		{ItemID: "a", Quantity: 2},
		{ItemID: "b", Quantity: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.get("a").Reserved)
	assert.Equal(t, 1, repo.get("b").Reserved)
	assert.Len(t, pub.changes, 2)
	assert.Equal(t, domain.ChangeReserved, pub.changes[0].Kind)
}

func TestReserve_InsufficientCompensates(t *testing.T) {
	svc, repo, _, _ := newInventory(map[string]int{"a": 3, "b": 1})

	err := svc.Reserve(context.Background(), []domain.ReservationItem{
		{ItemID: "a", Quantity: 2},
		{ItemID: "b", Name: "Empanada", Quantity: 2},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))

	var stockErr *domain.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "Empanada", stockErr.Name)
	assert.Equal(t, 1, stockErr.Available)

	assert.Zero(t, repo.get("a").Reserved, "earlier reservation must be released")
	assert.Zero(t, repo.get("b").Reserved)
}

func TestReserve_RepositoryErrorCompensates(t *testing.T) {
	svc, repo, _, _ := newInventory(map[string]int{"a": 3, "b": 3})
	repo.failOn = "b"

	err := svc.Reserve(context.Background(), []domain.ReservationItem{
		{ItemID: "a", Quantity: 1},
		{ItemID: "b", Quantity: 1},
	})
	require.Error(t, err)
	assert.Zero(t, repo.get("a").Reserved)
}

func TestReserve_MissingRecordCreatedOversold(t *testing.T) {
	svc, repo, _, _ := newInventory(nil)

	err := svc.Reserve(context.Background(), []domain.ReservationItem{{ItemID: "new", VariantID: "m", Quantity: 2}})
	require.NoError(t, err)

	inv := repo.get("new_m")
	assert.Equal(t, 0, inv.Stock)
	assert.Equal(t, 2, inv.Reserved)
	assert.Equal(t, -2, inv.Available())
}

func TestReserve_ConcurrentLastUnit(t *testing.T) {
	svc, repo, _, _ := newInventory(map[string]int{"last": 1})

	var wg sync.WaitGroup
	var successCount int64
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Reserve(context.Background(), []domain.ReservationItem{{ItemID: "last", Quantity: 1}}); err == nil {
				atomic.AddInt64(&successCount, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), successCount)
	assert.Equal(t, 1, repo.get("last").Reserved)
}

func TestValidateAvailability_GroupsByKey(t *testing.T) {
	svc, _, _, _ := newInventory(map[string]int{"p": 3})

	lines := []domain.LineItem{
		{ID: "p", BaseID: "p", Name: "Pizza", Quantity: 2},
		{ID: "p_add_queso", BaseID: "p", Name: "Pizza", Quantity: 2},
		{ID: "free", BaseID: "free", Name: "Agua", Quantity: 99},
	}
	err := svc.ValidateAvailability(context.Background(), lines)
	var stockErr *domain.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, "p", stockErr.Key)
	assert.Equal(t, 4, stockErr.Requested)
	assert.Equal(t, 3, stockErr.Available)

	require.NoError(t, svc.ValidateAvailability(context.Background(), lines[:1]))
}

func TestValidateAvailability_OversoldReportsZero(t *testing.T) {
	svc, repo, _, _ := newInventory(map[string]int{"p": 1})
	repo.items["p"].Reserved = 3

	err := svc.ValidateAvailability(context.Background(), []domain.LineItem{{ID: "p", Name: "Pizza", Quantity: 1}})
	var stockErr *domain.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, 0, stockErr.Available)
}

func pendingOrder(id string, items ...domain.OrderItem) domain.Order {
	return domain.Order{ID: id, Status: domain.OrderStatusPending, Items: items}
}

func TestConfirm(t *testing.T) {
	svc, repo, orders, _ := newInventory(map[string]int{"a": 5})
	repo.items["a"].Reserved = 2
	orders.orders["o1"] = pendingOrder("o1",
		domain.OrderItem{ItemID: "a", BaseID: "a", Quantity: 1},
		domain.OrderItem{ItemID: "a_exc_x", BaseID: "a", Quantity: 1},
	)

	o, err := svc.Confirm(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, o.Status)
	assert.Equal(t, 3, repo.get("a").Stock)
	assert.Zero(t, repo.get("a").Reserved)

	_, err = svc.Confirm(context.Background(), "o1")
	assert.True(t, errors.Is(err, domain.ErrOrderStatusConflict))
	assert.Equal(t, 3, repo.get("a").Stock, "second confirm must not touch stock")
}

func TestCancel(t *testing.T) {
	svc, repo, orders, pub := newInventory(map[string]int{"a": 5})
	repo.items["a"].Reserved = 2
	orders.orders["o1"] = pendingOrder("o1", domain.OrderItem{ItemID: "a", BaseID: "a", Quantity: 2})

	o, err := svc.Cancel(context.Background(), "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, o.Status)
	assert.Equal(t, 5, repo.get("a").Stock)
	assert.Zero(t, repo.get("a").Reserved)
	require.Len(t, pub.changes, 1)
	assert.Equal(t, domain.ChangeReleased, pub.changes[0].Kind)

	_, err = svc.Confirm(context.Background(), "o1")
	assert.True(t, errors.Is(err, domain.ErrOrderStatusConflict))
}

func TestSettle_FloorsAtZeroAndSkipsMissingRecords(t *testing.T) {
	svc, repo, orders, _ := newInventory(map[string]int{"a": 1})
	orders.orders["o1"] = pendingOrder("o1",
		domain.OrderItem{ItemID: "a", BaseID: "a", Quantity: 3},
		domain.OrderItem{ItemID: "gone", BaseID: "gone", Quantity: 1},
	)

	_, err := svc.Confirm(context.Background(), "o1")
	require.NoError(t, err)
	assert.Zero(t, repo.get("a").Stock)
	assert.Zero(t, repo.get("a").Reserved)
}

func TestConfirm_UnknownOrder(t *testing.T) {
	svc, _, _, _ := newInventory(nil)
	_, err := svc.Confirm(context.Background(), "nope")
	assert.True(t, errors.Is(err, domain.ErrOrderNotFound))
}

func TestSetAndAdjustStock(t *testing.T) {
	svc, _, _, _ := newInventory(nil)
	ctx := context.Background()

	inv, err := svc.SetStock(ctx, "remera", "xl", 4)
	require.NoError(t, err)
	assert.Equal(t, "remera_xl", inv.Key)

	_, err = svc.SetStock(ctx, "remera", "", -1)
	assert.True(t, errors.Is(err, domain.ErrInvalidStock))

	inv, err = svc.AdjustStock(ctx, "remera_xl", -10)
	require.NoError(t, err)
	assert.Zero(t, inv.Stock)

	_, err = svc.AdjustStock(ctx, "missing", 1)
	assert.True(t, errors.Is(err, domain.ErrInventoryNotFound))
}

func TestSeed(t *testing.T) {
	svc, repo, _, _ := newInventory(map[string]int{"a": 1})

	created, err := svc.Seed(context.Background(), []domain.ReservationItem{{ItemID: "a"}, {ItemID: "b"}}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, created)
	assert.Equal(t, 1, repo.get("a").Stock)
	assert.Equal(t, 10, repo.get("b").Stock)
}

func TestDiagnoseAndRecalculate(t *testing.T) {
	svc, repo, orders, _ := newInventory(map[string]int{"a": 5, "b": 1, "c": 2})
	repo.items["a"].Reserved = 4
	repo.items["b"].Reserved = 3
	orders.orders["o1"] = pendingOrder("o1", domain.OrderItem{ItemID: "a", BaseID: "a", Quantity: 1})
	orders.orders["o2"] = pendingOrder("o2", domain.OrderItem{ItemID: "b", BaseID: "b", Quantity: 1})
	done := pendingOrder("o3", domain.OrderItem{ItemID: "c", BaseID: "c", Quantity: 2})
	done.Status = domain.OrderStatusConfirmed
	orders.orders["o3"] = done

	d, err := svc.Diagnose(context.Background())
	require.NoError(t, err)
	require.Len(t, d.Oversold, 1)
	assert.Equal(t, "b", d.Oversold[0].Key)
	assert.ElementsMatch(t, []ReservedDrift{
		{Key: "a", Stored: 4, Expected: 1},
		{Key: "b", Stored: 3, Expected: 1},
	}, d.Drift)

	changed, err := svc.RecalculateReserved(context.Background())
	require.NoError(t, err)
	assert.Len(t, changed, 2)
	assert.Equal(t, 1, repo.get("a").Reserved)
	assert.Equal(t, 1, repo.get("b").Reserved)
	assert.Zero(t, repo.get("c").Reserved)

	d, err = svc.Diagnose(context.Background())
	require.NoError(t, err)
	assert.Empty(t, d.Drift)
}

func TestList_SortedByKey(t *testing.T) {
	svc, _, _, _ := newInventory(map[string]int{"c": 1, "a": 1, "b": 1})
	items, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "a", items[0].Key)
	assert.Equal(t, "c", items[2].Key)
}

func TestListOrders_OldestFirst(t *testing.T) {
	svc, _, orders, _ := newInventory(nil)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	orders.orders["late"] = domain.Order{ID: "late", Status: domain.OrderStatusPending, CreatedAt: base.Add(time.Hour)}
	orders.orders["early"] = domain.Order{ID: "early", Status: domain.OrderStatusPending, CreatedAt: base}
	orders.orders["done"] = domain.Order{ID: "done", Status: domain.OrderStatusConfirmed, CreatedAt: base}

	pending, err := svc.ListOrders(context.Background(), domain.OrderStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "early", pending[0].ID)
	assert.Equal(t, "late", pending[1].ID)

	all, err := svc.ListOrders(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}
