package port

import "context"

type StockReader interface {
	// Available returns nil when the item has no stock control
	Available(ctx context.Context, itemID, variantID string) (*int, error)
}
