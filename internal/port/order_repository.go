package port

import (
	"context"

	"github.com/rl1809/catalog-cart/internal/core/domain"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, order domain.Order) error

	// GetOrder returns nil when no order has that id
	GetOrder(ctx context.Context, id string) (*domain.Order, error)

	// ListOrders returns every order, or only those in status when it is non-empty
	ListOrders(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)

	// TransitionOrder moves an order from one status to another, failing
	// with domain.ErrOrderStatusConflict when it is no longer in from
	TransitionOrder(ctx context.Context, id string, from, to domain.OrderStatus) error
}
