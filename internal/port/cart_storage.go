package port

import "context"

// CartStorage is the durable local store a cart round-trips through after
// every mutation. Entries are opaque JSON blobs.
type CartStorage interface {
	// LoadCart returns nil data when nothing is stored under key
	LoadCart(ctx context.Context, key string) ([]byte, error)
	SaveCart(ctx context.Context, key string, data []byte) error
	RemoveCart(ctx context.Context, key string) error
}
