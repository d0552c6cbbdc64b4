package port

import (
	"context"

	"github.com/rl1809/catalog-cart/internal/core/domain"
)

// PriceRepository stores the admin price overrides of one catalog.
type PriceRepository interface {
	// SetPrice creates or replaces the override for o.ItemID
	SetPrice(ctx context.Context, o domain.PriceOverride) error

	// DeletePrice drops an override; a missing one is not an error
	DeletePrice(ctx context.Context, itemID string) error

	ListPrices(ctx context.Context) ([]domain.PriceOverride, error)
}
