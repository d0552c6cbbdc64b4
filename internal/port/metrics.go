package port

type Metrics interface {
	CheckoutCompleted(tenant string)
	CheckoutFailed(tenant, reason string)
	ReservationFailed(key string)
	StockRejected(key string)
	OrderTransitioned(status string)
}

type NopMetrics struct{}

func (NopMetrics) CheckoutCompleted(string)      {}
func (NopMetrics) CheckoutFailed(string, string) {}
func (NopMetrics) ReservationFailed(string)      {}
func (NopMetrics) StockRejected(string)          {}
func (NopMetrics) OrderTransitioned(string)      {}
