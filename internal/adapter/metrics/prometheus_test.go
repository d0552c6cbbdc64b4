package metrics

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/catalog-cart/internal/core/domain"
	"github.com/rl1809/catalog-cart/internal/port"
)

var (
	_ port.Metrics            = (*Recorder)(nil)
	_ port.InventoryPublisher = (*Recorder)(nil)
)

func TestRecorder(t *testing.T) {
	r := NewRecorder()
	r.CheckoutCompleted("pizzeria")
	r.CheckoutCompleted("pizzeria")
	r.CheckoutFailed("pizzeria", "stock")
	r.Publish(domain.InventoryChange{Key: "a", Available: 3})

	assert.Equal(t, 2.0, testutil.ToFloat64(r.checkouts.WithLabelValues("pizzeria")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.checkoutFailures.WithLabelValues("pizzeria", "stock")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.available.WithLabelValues("a")))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "cart_checkouts_total")
}
