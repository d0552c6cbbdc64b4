package port

import (
	"context"

	"github.com/rl1809/catalog-cart/internal/core/domain"
)

// InventoryRepository stores stock counters per inventory key (itemId or
// itemId_variantId). Every mutating call is atomic per record.
type InventoryRepository interface {
	// GetInventory returns nil when the key has no record
	GetInventory(ctx context.Context, key string) (*domain.Inventory, error)

	ListInventory(ctx context.Context) ([]domain.Inventory, error)

	// Reserve adds quantity to reserved only if available covers it; an
	// absent record is created with stock 0 and reserved = quantity
	Reserve(ctx context.Context, key, itemID string, quantity int) (domain.Inventory, domain.ReserveOutcome, error)

	// Release returns reserved units to the available pool
	Release(ctx context.Context, key string, quantity int) (*domain.Inventory, error)

	// Consume permanently removes reserved units from stock
	Consume(ctx context.Context, key string, quantity int) (*domain.Inventory, error)

	SetStock(ctx context.Context, key, itemID string, stock int) (domain.Inventory, error)

	// AdjustStock adds delta to stock, flooring at zero
	AdjustStock(ctx context.Context, key string, delta int) (*domain.Inventory, error)

	// SetReserved overwrites the reserved counter, failing with
	// domain.ErrInventoryNotFound when the key has no record
	SetReserved(ctx context.Context, key string, reserved int) error
}
