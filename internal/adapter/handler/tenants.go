package handler

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/rl1809/catalog-cart/internal/config"
	"github.com/rl1809/catalog-cart/internal/core/cart"
	"github.com/rl1809/catalog-cart/internal/core/catalog"
	"github.com/rl1809/catalog-cart/internal/core/price"
	"github.com/rl1809/catalog-cart/internal/core/service"
	"github.com/rl1809/catalog-cart/internal/port"
)

// Tenant bundles what the handlers need for one catalog.
type Tenant struct {
	Config    config.Tenant
	Checkout  service.Tenant
	Inventory *service.InventoryService
	// Prices is nil when the catalog has no override store.
	Prices   *service.PriceService
	Reader   *catalog.Reader
	Products *catalog.Registry
	Format   price.Formatter
}

// NewTenant assembles a catalog from its configuration. inventory may be nil
// for catalogs that do not track stock, prices for catalogs without admin
// price overrides.
func NewTenant(cfg config.Tenant, inventory *service.InventoryService, orders port.OrderRepository, prices port.PriceRepository, ch port.MessageChannel) *Tenant {
	format := cfg.Formatter()
	reader := catalog.NewReader(cfg.Normalizer(), catalog.WithPriceFormat(format))
	t := &Tenant{
		Config:    cfg,
		Inventory: inventory,
		Reader:    reader,
		Products:  catalog.NewRegistry(reader, cfg.Products),
		Format:    format,
		Checkout: service.Tenant{
			Key:            cfg.ID,
			Name:           cfg.Name,
			Greeting:       cfg.WhatsAppMessage,
			Form:           cfg.Form,
			TrackInventory: cfg.InventoryEnabled,
			RecordOrders:   cfg.RecordOrders,
			OrderExpiry:    cfg.OrderExpiry(),
			Channel:        ch,
			Format:         format.Format,
			Inventory:      inventory,
			Orders:         orders,
		},
	}
	if prices != nil {
		t.Prices = service.NewPriceService(prices, reader)
	}
	return t
}

func (t *Tenant) Tracked() bool {
	return t.Config.InventoryEnabled && t.Inventory != nil
}

// DefaultSessionTTL is how long an idle cart session stays in memory.
const DefaultSessionTTL = 24 * time.Hour

type session struct {
	store   *cart.Store
	mu      sync.Mutex
	notices []cart.Notice
	// seen is guarded by Tenants.mu
	seen time.Time
}

func (s *session) push(n cart.Notice) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, n)
}

func (s *session) drain() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.notices))
	for _, n := range s.notices {
		out = append(out, n.Message)
	}
	s.notices = nil
	return out
}

// Tenants resolves tenants by id and keeps one cart store per tenant and
// customer session. Idle sessions are evicted after the session TTL; their
// carts stay in storage and load again on the next request.
type Tenants struct {
	storage port.CartStorage
	now     func() time.Time

	mu       sync.Mutex
	ttl      time.Duration
	byID     map[string]*Tenant
	sessions map[string]*session
}

func NewTenants(storage port.CartStorage, tenants ...*Tenant) *Tenants {
	t := &Tenants{
		storage:  storage,
		now:      time.Now,
		ttl:      DefaultSessionTTL,
		byID:     make(map[string]*Tenant, len(tenants)),
		sessions: make(map[string]*session),
	}
	for _, tenant := range tenants {
		t.byID[tenant.Config.ID] = tenant
	}
	return t
}

func (t *Tenants) Get(id string) (*Tenant, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tenant, ok := t.byID[id]
	return tenant, ok
}

func (t *Tenants) All() []*Tenant {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Tenant, 0, len(t.byID))
	for _, tenant := range t.byID {
		out = append(out, tenant)
	}
	return out
}

// session returns the cart session for a customer, loading the stored cart
// the first time it is seen.
func (t *Tenants) session(ctx context.Context, tenant *Tenant, sessionID string) (*session, error) {
	key := cart.StorageKey(tenant.Config.ID, sessionID)

	t.mu.Lock()
	s, ok := t.sessions[key]
	if ok {
		s.seen = t.now()
		t.mu.Unlock()
		return s, nil
	}
	s = &session{seen: t.now()}
	opts := []cart.Option{cart.WithFormatter(tenant.Format), cart.WithNotifier(s.push)}
	if tenant.Tracked() {
		opts = append(opts, cart.WithStockReader(tenant.Inventory))
	}
	s.store = cart.New(key, t.storage, opts...)
	t.sessions[key] = s
	t.mu.Unlock()

	if err := s.store.Load(ctx); err != nil {
		t.mu.Lock()
		delete(t.sessions, key)
		t.mu.Unlock()
		return nil, err
	}
	return s, nil
}

// SetSessionTTL changes how long idle sessions are kept. A non-positive ttl
// keeps the default.
func (t *Tenants) SetSessionTTL(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ttl = ttl
}

// Sessions counts the sessions held in memory.
func (t *Tenants) Sessions() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// Sweep evicts sessions idle for longer than the session TTL and returns how
// many it removed.
func (t *Tenants) Sweep() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-t.ttl)
	removed := 0
	for key, s := range t.sessions {
		if s.seen.Before(cutoff) {
			delete(t.sessions, key)
			removed++
		}
	}
	return removed
}

// Run sweeps idle sessions every interval until ctx is done.
func (t *Tenants) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := t.Sweep(); n > 0 {
				log.WithField("evicted", n).Debug("evicted idle cart sessions")
			}
		}
	}
}
