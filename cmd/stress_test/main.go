package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/rl1809/catalog-cart/internal/adapter/channel"
	"github.com/rl1809/catalog-cart/internal/adapter/storage"
	"github.com/rl1809/catalog-cart/internal/core/cart"
	"github.com/rl1809/catalog-cart/internal/core/domain"
	"github.com/rl1809/catalog-cart/internal/core/price"
	"github.com/rl1809/catalog-cart/internal/core/service"
)

const (
	redisAddr      = "localhost:6379"
	namespace      = "stress"
	itemID         = "last-units"
	initialStock   = 20
	totalCustomers = 50
	queueSize      = 100
)

func main() {
	ctx := context.Background()

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr, PoolSize: totalCustomers})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.WithError(err).Fatal("failed to connect redis")
	}
	defer rdb.Close()

	// Clear previous test data
	keys, _ := rdb.Keys(ctx, "inventory:"+namespace+":*").Result()
	if len(keys) > 0 {
		rdb.Del(ctx, keys...)
	}

	inventoryRepo := storage.NewRedisAdapter(rdb, namespace, time.Hour)
	orders := storage.NewMemoryAdapter()
	inventory := service.NewInventoryService(inventoryRepo, orders)
	if _, err := inventory.SetStock(ctx, itemID, "", initialStock); err != nil {
		log.WithError(err).Fatal("failed to set stock")
	}

	checkout := service.NewCheckoutService(orders, queueSize)
	defer checkout.Close()

	format := price.DefaultFormatter()
	tenant := service.Tenant{
		Key:            namespace,
		Name:           "Stress",
		TrackInventory: true,
		Channel:        channel.NewWhatsApp("5491112345678", 0),
		Format:         format.Format,
		Inventory:      inventory,
		Orders:         orders,
	}
	item := domain.LineItem{ID: itemID, BaseID: itemID, Name: "Última unidad", Price: 1000, PriceText: format.Format(1000)}

	var successCount, soldOutCount, errorCount atomic.Int32
	var placed sync.Map

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalCustomers; i++ {
		wg.Add(1)
		go func(customer int) {
			defer wg.Done()

			// every customer saw stock when adding, so the race is decided at checkout
			store := cart.New(cart.StorageKey(namespace, fmt.Sprint(customer)), orders)
			if err := store.Add(ctx, item); err != nil {
				errorCount.Add(1)
				return
			}
			result, err := checkout.Checkout(ctx, tenant, store, service.CheckoutRequest{
				RequestID: uuid.NewString(),
				Form:      domain.CheckoutForm{Name: fmt.Sprintf("customer-%d", customer)},
			})
			var stockErr *domain.StockError
			switch {
			case err == nil:
				successCount.Add(1)
				placed.Store(result.OrderID, struct{}{})
			case errors.As(err, &stockErr):
				soldOutCount.Add(1)
			default:
				log.WithError(err).Warn("unexpected checkout error")
				errorCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := successCount.Load()
	soldOut := soldOutCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Customers:        %d\n", totalCustomers)
	fmt.Printf("Checked out:      %d\n", success)
	fmt.Printf("Sold out:         %d\n", soldOut)
	fmt.Printf("Errors:           %d\n", errorCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	if success == int32(initialStock) && soldOut == int32(totalCustomers-initialStock) {
		fmt.Printf("PASS: Exactly %d orders reserved, %d sold out\n", initialStock, totalCustomers-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d reserved/%d sold out, got %d/%d\n",
			initialStock, totalCustomers-initialStock, success, soldOut)
	}

	inv, err := inventory.Get(ctx, itemID)
	if err != nil || inv == nil {
		log.WithError(err).Fatal("failed to read final inventory")
	}
	fmt.Printf("Reserved: %d  Available: %d\n", inv.Reserved, inv.Available())
	if inv.Available() == 0 {
		fmt.Println("PASS: Nothing oversold")
	} else {
		fmt.Printf("FAIL: Expected 0 available, got %d\n", inv.Available())
	}

	// Confirming every order consumes the reserved units
	placed.Range(func(id, _ any) bool {
		if _, err := inventory.Confirm(ctx, id.(string)); err != nil {
			log.WithError(err).WithField("order_id", id).Error("confirm failed")
		}
		return true
	})
	inv, _ = inventory.Get(ctx, itemID)
	if inv != nil && inv.Stock == 0 && inv.Reserved == 0 {
		fmt.Println("PASS: Stock consumed to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0 reserved 0, got %+v\n", inv)
	}
}
