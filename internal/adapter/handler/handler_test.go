package handler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rl1809/catalog-cart/internal/adapter/channel"
	"github.com/rl1809/catalog-cart/internal/adapter/storage"
	"github.com/rl1809/catalog-cart/internal/config"
	"github.com/rl1809/catalog-cart/internal/core/catalog"
	"github.com/rl1809/catalog-cart/internal/core/domain"
	"github.com/rl1809/catalog-cart/internal/core/service"
)

const testPhone = "+54 9 11 1234-5678"

type testEnv struct {
	tenants  *Tenants
	checkout *service.CheckoutService
	hub      *Hub
	store    *storage.MemoryAdapter
	carts    *storage.MemoryAdapter
}

func newTenant(cfg config.Tenant, store *storage.MemoryAdapter, hub *Hub) *Tenant {
	var inventory *service.InventoryService
	if cfg.InventoryEnabled {
		inventory = service.NewInventoryService(store, store, service.WithPublisher(hub.Publisher(cfg.ID)))
	}
	tenant := NewTenant(cfg, inventory, store, store, channel.NewWhatsApp(cfg.Phone, 0))
	tenant.Products.Register([]map[string]string{pizzaAttrs(), empanadaAttrs()})
	return tenant
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		hub:   NewHub(),
		store: storage.NewMemoryAdapter(),
		carts: storage.NewMemoryAdapter(),
	}
	env.checkout = service.NewCheckoutService(env.carts, 10)

	form := domain.FormConfig{
		RequireName:      true,
		RequirePhone:     true,
		ShowDeliveryZone: true,
		DeliveryZones: []domain.DeliveryZone{
			{ID: "centro", Name: "Centro", Cost: 300},
		},
	}
	pizzeria := newTenant(config.Tenant{
		ID:               "pizzeria",
		Name:             "Pizzería Don Pepe",
		Phone:            testPhone,
		InventoryEnabled: true,
		DefaultStock:     5,
		Form:             form,
	}, env.store, env.hub)
	kiosco := newTenant(config.Tenant{
		ID:    "kiosco",
		Name:  "Kiosco",
		Phone: testPhone,
		Form:  domain.FormConfig{RequireName: true},
	}, storage.NewMemoryAdapter(), env.hub)

	env.tenants = NewTenants(env.carts, pizzeria, kiosco)
	t.Cleanup(func() {
		env.checkout.Close()
		env.hub.Close()
	})
	return env
}

func (e *testEnv) setStock(t *testing.T, key string, stock int) {
	t.Helper()
	_, err := e.store.SetStock(context.Background(), key, key, stock)
	require.NoError(t, err)
}

func (e *testEnv) reserved(t *testing.T, key string) int {
	t.Helper()
	inv, err := e.store.GetInventory(context.Background(), key)
	require.NoError(t, err)
	require.NotNil(t, inv)
	return inv.Reserved
}

func pizzaAttrs() map[string]string {
	return map[string]string{
		catalog.AttrID:                  "10",
		catalog.AttrName:                "Muzzarella",
		catalog.AttrPrice:               "2000",
		catalog.AttrPriceText:           "$ 2.000",
		catalog.AttrHasGroups:           "true",
		catalog.AttrCustomizationGroups: `[{"id":"size","name":"Tamaño","selectionType":"exactly","minSelections":1,"isRequired":true,"options":[{"id":"chica","name":"Chica"},{"id":"grande","name":"Grande","price":500}]}]`,
	}
}

func empanadaAttrs() map[string]string {
	return map[string]string{
		catalog.AttrID:        "20",
		catalog.AttrName:      "Empanada",
		catalog.AttrPrice:     "600",
		catalog.AttrPriceText: "$ 600",
	}
}
