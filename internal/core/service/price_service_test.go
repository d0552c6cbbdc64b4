package service

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/catalog-cart/internal/core/catalog"
	"github.com/rl1809/catalog-cart/internal/core/domain"
	"github.com/rl1809/catalog-cart/internal/core/price"
)

func pizzaCard() map[string]string {
	return map[string]string{catalog.AttrID: "10", catalog.AttrName: "Muzzarella", catalog.AttrPrice: "2000"}
}

func TestPriceService_SetAndResetPrice(t *testing.T) {
	ctx := context.Background()
	repo := newMockPriceRepo()
	reader := catalog.NewReader(price.Normalizer{})
	svc := NewPriceService(repo, reader)
	svc.now = func() time.Time { return fixedNow }

	o, err := svc.SetPrice(ctx, domain.PriceOverride{ItemID: "10", Price: 2400, OriginalPrice: 2000, ItemName: "Muzzarella"})
	require.NoError(t, err)
	assert.Equal(t, fixedNow, o.UpdatedAt)

	p, err := reader.Parse(pizzaCard())
	require.NoError(t, err)
	assert.Equal(t, int64(2400), p.Price)

	// the first recorded original survives later changes
	o, err = svc.SetPrice(ctx, domain.PriceOverride{ItemID: "10", Price: 2600, OriginalPrice: 2400})
	require.NoError(t, err)
	assert.Equal(t, int64(2000), o.OriginalPrice)
	assert.Equal(t, "Muzzarella", o.ItemName)

	prices, err := svc.ListPrices(ctx)
	require.NoError(t, err)
	require.Len(t, prices, 1)
	assert.Equal(t, int64(2600), prices[0].Price)

	require.NoError(t, svc.ResetPrice(ctx, "10"))
	p, err = reader.Parse(pizzaCard())
	require.NoError(t, err)
	assert.Equal(t, int64(2000), p.Price)
}

func TestPriceService_RejectsNonPositivePrice(t *testing.T) {
	svc := NewPriceService(newMockPriceRepo(), catalog.NewReader(price.Normalizer{}))
	_, err := svc.SetPrice(context.Background(), domain.PriceOverride{ItemID: "10", Price: 0})
	assert.True(t, errors.Is(err, domain.ErrInvalidPrice))
}

func TestPriceService_RefreshError(t *testing.T) {
	repo := newMockPriceRepo()
	repo.err = errors.New("connection refused")
	svc := NewPriceService(repo, catalog.NewReader(price.Normalizer{}))
	assert.Error(t, svc.Refresh(context.Background()))
}
