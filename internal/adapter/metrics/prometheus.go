// Package metrics records checkout and inventory activity for Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rl1809/catalog-cart/internal/core/domain"
)

type Recorder struct {
	registry          *prometheus.Registry
	checkouts         *prometheus.CounterVec
	checkoutFailures  *prometheus.CounterVec
	reservationFailed *prometheus.CounterVec
	stockRejected     *prometheus.CounterVec
	orderTransitions  *prometheus.CounterVec
	available         *prometheus.GaugeVec
}

func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		checkouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cart_checkouts_total",
				Help: "Checkouts handed off to the message channel",
			},
			[]string{"tenant"},
		),
		checkoutFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cart_checkout_failures_total",
				Help: "Checkouts that stopped before hand-off",
			},
			[]string{"tenant", "reason"},
		),
		reservationFailed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_reservation_failures_total",
				Help: "Reservations refused or failed per inventory key",
			},
			[]string{"key"},
		),
		stockRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_stock_rejections_total",
				Help: "Availability checks that rejected a cart",
			},
			[]string{"key"},
		),
		orderTransitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_transitions_total",
				Help: "Orders moved out of pending",
			},
			[]string{"status"},
		),
		available: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "inventory_available_units",
				Help: "Stock minus reserved per inventory key",
			},
			[]string{"key"},
		),
	}
	r.registry.MustRegister(
		r.checkouts, r.checkoutFailures, r.reservationFailed,
		r.stockRejected, r.orderTransitions, r.available,
		collectors.NewGoCollector(),
	)
	return r
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) CheckoutCompleted(tenant string) {
	r.checkouts.WithLabelValues(tenant).Inc()
}

func (r *Recorder) CheckoutFailed(tenant, reason string) {
	r.checkoutFailures.WithLabelValues(tenant, reason).Inc()
}

func (r *Recorder) ReservationFailed(key string) {
	r.reservationFailed.WithLabelValues(key).Inc()
}

func (r *Recorder) StockRejected(key string) {
	r.stockRejected.WithLabelValues(key).Inc()
}

func (r *Recorder) OrderTransitioned(status string) {
	r.orderTransitions.WithLabelValues(status).Inc()
}

// Publish tracks the available gauge from inventory changes.
func (r *Recorder) Publish(change domain.InventoryChange) {
	r.available.WithLabelValues(change.Key).Set(float64(change.Available))
}
