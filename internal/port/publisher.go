package port

import "github.com/rl1809/catalog-cart/internal/core/domain"

type InventoryPublisher interface {
	Publish(change domain.InventoryChange)
}

// Publishers fans one change out to several publishers.
type Publishers []InventoryPublisher

func (p Publishers) Publish(change domain.InventoryChange) {
	for _, pub := range p {
		pub.Publish(change)
	}
}
