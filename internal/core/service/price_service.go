package service

import (
	"context"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/rl1809/catalog-cart/internal/core/catalog"
	"github.com/rl1809/catalog-cart/internal/core/domain"
	"github.com/rl1809/catalog-cart/internal/port"
)

// PriceService keeps a catalog's admin price overrides and pushes them into
// the reader that resolves its products.
type PriceService struct {
	prices port.PriceRepository
	reader *catalog.Reader
	now    func() time.Time
}

func NewPriceService(prices port.PriceRepository, reader *catalog.Reader) *PriceService {
	return &PriceService{prices: prices, reader: reader, now: time.Now}
}

// SetPrice stores an override. A replaced override keeps the original price
// and name it recorded first.
func (s *PriceService) SetPrice(ctx context.Context, o domain.PriceOverride) (domain.PriceOverride, error) {
	if o.Price <= 0 {
		return domain.PriceOverride{}, errors.Wrapf(domain.ErrInvalidPrice, "item %s", o.ItemID)
	}
	existing, err := s.prices.ListPrices(ctx)
	if err != nil {
		return domain.PriceOverride{}, errors.Wrap(err, "list prices")
	}
	for _, e := range existing {
		if e.ItemID == o.ItemID {
			o.OriginalPrice, o.ItemName = e.OriginalPrice, e.ItemName
			break
		}
	}
	o.UpdatedAt = s.now().UTC()

	if err := s.prices.SetPrice(ctx, o); err != nil {
		return domain.PriceOverride{}, errors.Wrap(err, "set price")
	}
	log.WithFields(log.Fields{"item": o.ItemID, "price": o.Price, "original": o.OriginalPrice}).Info("price override set")
	return o, s.Refresh(ctx)
}

// ResetPrice drops the override so the page price applies again.
func (s *PriceService) ResetPrice(ctx context.Context, itemID string) error {
	if err := s.prices.DeletePrice(ctx, itemID); err != nil {
		return errors.Wrap(err, "delete price")
	}
	log.WithField("item", itemID).Info("price override reset")
	return s.Refresh(ctx)
}

func (s *PriceService) ListPrices(ctx context.Context) ([]domain.PriceOverride, error) {
	prices, err := s.prices.ListPrices(ctx)
	return prices, errors.Wrap(err, "list prices")
}

// Refresh loads the stored overrides into the reader.
func (s *PriceService) Refresh(ctx context.Context) error {
	prices, err := s.prices.ListPrices(ctx)
	if err != nil {
		return errors.Wrap(err, "list prices")
	}
	overrides := make(map[string]int64, len(prices))
	for _, p := range prices {
		overrides[p.ItemID] = p.Price
	}
	s.reader.SetOverrides(overrides)
	return nil
}
