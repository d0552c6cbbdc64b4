package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/rl1809/catalog-cart/internal/core/cart"
	"github.com/rl1809/catalog-cart/internal/core/domain"
	"github.com/rl1809/catalog-cart/internal/core/order"
	"github.com/rl1809/catalog-cart/internal/port"
)

var (
	ErrDuplicateRequest = errors.New("duplicate request")
	ErrEmptyCart        = errors.New("cart is empty")
	ErrUnknownZone      = errors.New("unknown delivery zone")
)

const DefaultOrderExpiry = 24 * time.Hour

// Tenant is the per-catalog checkout configuration.
type Tenant struct {
	Key            string
	Name           string
	Greeting       string
	Form           domain.FormConfig
	TrackInventory bool
	RecordOrders   bool
	OrderExpiry    time.Duration
	Channel        port.MessageChannel
	Format         func(int64) string
	// Inventory may be nil when the tenant does not track stock.
	Inventory *InventoryService
	Orders    port.OrderRepository
}

func (t Tenant) tracked() bool {
	return t.TrackInventory && t.Inventory != nil && t.Orders != nil
}

type CheckoutRequest struct {
	RequestID string
	Form      domain.CheckoutForm
}

type CheckoutResult struct {
	OrderID string
	Link    string
	Message string
	Notice  string
}

type CheckoutService struct {
	cache      port.CacheRepository
	metrics    port.Metrics
	now        func() time.Time
	orderQueue chan domain.Order
}

type CheckoutOption func(*CheckoutService)

func WithCheckoutMetrics(m port.Metrics) CheckoutOption {
	return func(s *CheckoutService) { s.metrics = m }
}

func WithClock(now func() time.Time) CheckoutOption {
	return func(s *CheckoutService) { s.now = now }
}

// NewCheckoutService wires checkout. queueSize bounds the buffer of
// untracked orders waiting to be written by the order workers.
func NewCheckoutService(cache port.CacheRepository, queueSize int, opts ...CheckoutOption) *CheckoutService {
	s := &CheckoutService{
		cache:      cache,
		metrics:    port.NopMetrics{},
		now:        time.Now,
		orderQueue: make(chan domain.Order, queueSize),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout validates the form, reserves stock for tracked tenants, hands
// the order message to the tenant's channel and removes the ordered lines
// from the cart. Any failure leaves the cart as it was.
func (s *CheckoutService) Checkout(ctx context.Context, t Tenant, store *cart.Store, req CheckoutRequest) (*CheckoutResult, error) {
	logger := log.WithFields(log.Fields{"tenant": t.Key, "cart": store.Key()})

	if req.RequestID != "" {
		idempotencyKey := fmt.Sprintf("checkout:%s:%s", t.Key, req.RequestID)
		ok, err := s.cache.SetIdempotency(ctx, idempotencyKey)
		if err != nil {
			return nil, errors.Wrap(err, "idempotency check failed")
		}
		if !ok {
			return nil, ErrDuplicateRequest
		}
		result, err := s.checkout(ctx, t, store, req.Form, logger)
		if err != nil {
			if clearErr := s.cache.ClearIdempotency(ctx, idempotencyKey); clearErr != nil {
				logger.WithError(clearErr).Warn("could not clear idempotency key")
			}
		}
		return result, err
	}
	return s.checkout(ctx, t, store, req.Form, logger)
}

func (s *CheckoutService) checkout(ctx context.Context, t Tenant, store *cart.Store, raw domain.CheckoutForm, logger *log.Entry) (*CheckoutResult, error) {
	form := raw.Trimmed()

	zone := store.Zone()
	if form.DeliveryZone != "" {
		z, ok := t.Form.Zone(form.DeliveryZone)
		if !ok {
			s.metrics.CheckoutFailed(t.Key, "form")
			return nil, errors.Wrapf(ErrUnknownZone, "zone %s", form.DeliveryZone)
		}
		zone = &z
	}
	if err := ValidateForm(t.Form, form, zone); err != nil {
		s.metrics.CheckoutFailed(t.Key, "form")
		return nil, err
	}
	if zone != nil {
		store.SelectZone(zone)
	}

	items := store.Items()
	if len(items) == 0 {
		s.metrics.CheckoutFailed(t.Key, "empty")
		return nil, ErrEmptyCart
	}
	if err := t.Channel.Check(); err != nil {
		s.metrics.CheckoutFailed(t.Key, "channel")
		return nil, errors.Wrap(err, "channel unavailable")
	}

	tracked := t.tracked()
	if tracked {
		if err := t.Inventory.ValidateAvailability(ctx, items); err != nil {
			s.metrics.CheckoutFailed(t.Key, "stock")
			return nil, err
		}
	}

	totals := store.Totals()
	o := s.newOrder(t, items, totals, form, zone)

	if tracked {
		if err := t.Orders.CreateOrder(ctx, o); err != nil {
			s.metrics.CheckoutFailed(t.Key, "order")
			return nil, errors.Wrap(err, "create order")
		}
		if err := t.Inventory.Reserve(ctx, o.ReservationItems()); err != nil {
			s.metrics.CheckoutFailed(t.Key, "stock")
			if tErr := t.Orders.TransitionOrder(ctx, o.ID, domain.OrderStatusPending, domain.OrderStatusCancelled); tErr != nil {
				logger.WithError(tErr).WithField("order_id", o.ID).Error("could not cancel unreserved order")
			}
			return nil, err
		}
	}

	in := order.MessageInput{
		Greeting:    t.Greeting,
		CatalogName: t.Name,
		Items:       items,
		Totals:      totals,
		Zone:        zone,
		Form:        form,
		Config:      t.Form,
		Format:      t.Format,
	}
	if tracked {
		in.OrderID = o.ID
	}
	message := order.BuildMessage(in)

	link, err := t.Channel.Handoff(ctx, message)
	if err != nil {
		s.metrics.CheckoutFailed(t.Key, "channel")
		if tracked {
			if _, cErr := t.Inventory.Cancel(ctx, o.ID); cErr != nil {
				logger.WithError(cErr).WithField("order_id", o.ID).Error("CRITICAL: reserved stock not released after failed hand-off")
			}
		}
		return nil, errors.Wrap(err, "hand off order message")
	}

	// only what was ordered leaves the cart; lines added meanwhile stay
	if err := store.RemoveOrdered(ctx, items); err != nil {
		logger.WithError(err).Warn("could not clear cart")
	}
	store.SelectZone(nil)

	if !tracked && t.RecordOrders {
		s.enqueue(o, logger)
	}

	s.metrics.CheckoutCompleted(t.Key)
	logger.WithFields(log.Fields{"order_id": o.ID, "items": len(items), "total": totals.Total}).Info("checkout completed")

	result := &CheckoutResult{Link: link, Message: message, Notice: order.NoticeSent}
	if tracked || t.RecordOrders {
		result.OrderID = o.ID
	}
	return result, nil
}

func (s *CheckoutService) newOrder(t Tenant, items []domain.LineItem, totals domain.Totals, form domain.CheckoutForm, zone *domain.DeliveryZone) domain.Order {
	now := s.now().UTC()
	expiry := t.OrderExpiry
	if expiry <= 0 {
		expiry = DefaultOrderExpiry
	}
	customer := domain.Customer{
		Name:          form.Name,
		Phone:         form.Phone,
		Address:       form.Address,
		Notes:         form.Notes,
		PaymentMethod: form.PaymentMethod,
		Custom:        form.Custom,
	}
	if zone != nil {
		customer.DeliveryZone = zone.Name
	}
	return domain.Order{
		ID:           uuid.NewString(),
		CatalogKey:   t.Key,
		Status:       domain.OrderStatusPending,
		Items:        domain.OrderItemsFromCart(items, t.Format),
		Customer:     customer,
		Subtotal:     totals.Subtotal,
		DeliveryCost: totals.Delivery,
		Total:        totals.Total,
		CreatedAt:    now,
		UpdatedAt:    now,
		ExpiresAt:    now.Add(expiry),
	}
}

// enqueue never blocks checkout; a full queue drops the record.
func (s *CheckoutService) enqueue(o domain.Order, logger *log.Entry) {
	select {
	case s.orderQueue <- o:
	default:
		logger.WithField("order_id", o.ID).Warn("order queue full, record dropped")
	}
}

func (s *CheckoutService) GetOrderQueue() <-chan domain.Order {
	return s.orderQueue
}

func (s *CheckoutService) Close() {
	close(s.orderQueue)
}

// ValidateForm returns *domain.FieldErrors naming every required field that
// is missing, plus a payment method the catalog does not offer. zone is the
// selected delivery zone, if any.
func ValidateForm(cfg domain.FormConfig, form domain.CheckoutForm, zone *domain.DeliveryZone) error {
	var missing []string
	if cfg.RequireName && form.Name == "" {
		missing = append(missing, "name")
	}
	if cfg.RequirePhone && form.Phone == "" {
		missing = append(missing, "phone")
	}
	if cfg.ShowAddress && cfg.AddressRequired && form.Address == "" {
		missing = append(missing, "address")
	}
	if cfg.ShowDeliveryZone && cfg.DeliveryRequired && zone == nil {
		missing = append(missing, "deliveryZone")
	}
	if cfg.ShowPayment && cfg.PaymentRequired && form.PaymentMethod == "" {
		missing = append(missing, "paymentMethod")
	} else if form.PaymentMethod != "" && len(cfg.PaymentMethods) > 0 {
		if _, ok := cfg.Payment(form.PaymentMethod); !ok {
			missing = append(missing, "paymentMethod")
		}
	}
	for _, f := range cfg.CustomFields {
		if !f.Required {
			continue
		}
		value := form.Custom[f.ID]
		if f.Type == domain.FieldCheckbox {
			if !order.Checked(value) {
				missing = append(missing, f.ID)
			}
		} else if value == "" {
			missing = append(missing, f.ID)
		}
	}
	if len(missing) > 0 {
		return &domain.FieldErrors{Fields: missing}
	}
	return nil
}
