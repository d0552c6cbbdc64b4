package domain

import "github.com/pkg/errors"

var (
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderStatusConflict = errors.New("order is not in the expected status")
	ErrInventoryNotFound   = errors.New("inventory record not found")
)

var ErrInvalidStock = errors.New("stock cannot be negative")

var ErrInvalidPrice = errors.New("price must be positive")
