// Package cart holds a customer's cart: an ordered list of line items that
// round-trips through durable storage after every mutation.
package cart

import (
	"context"
	"encoding/json"
	"math"
	"slices"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/rl1809/catalog-cart/internal/core/domain"
	"github.com/rl1809/catalog-cart/internal/core/price"
	"github.com/rl1809/catalog-cart/internal/port"
)

const keyPrefix = "scg_cart_"

var (
	ErrNoStock      = errors.New("no more stock available")
	ErrItemNotFound = errors.New("cart item not found")
	ErrInvalidItem  = errors.New("invalid cart item")
)

type NoticeKind string

const (
	NoticeAdded   NoticeKind = "added"
	NoticeNoStock NoticeKind = "no_stock"
)

// Notice is a transient confirmation meant for a toast.
type Notice struct {
	Kind    NoticeKind
	Message string
}

type Notifier func(Notice)

type Option func(*Store)

// WithStockReader turns on inventory tracking for the cart.
func WithStockReader(r port.StockReader) Option {
	return func(s *Store) { s.stock = r }
}

func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notify = n }
}

func WithFormatter(f price.Formatter) Option {
	return func(s *Store) { s.format = f }
}

type Store struct {
	mu      sync.Mutex
	key     string
	storage port.CartStorage
	stock   port.StockReader
	format  price.Formatter
	notify  Notifier

	items []domain.LineItem
	zone  *domain.DeliveryZone
}

// StorageKey is the per-tenant key a cart is stored under. session scopes
// it further when several customers share one backend.
func StorageKey(tenant, session string) string {
	if tenant == "" {
		tenant = "default"
	}
	if session == "" {
		return keyPrefix + tenant
	}
	return keyPrefix + tenant + ":" + session
}

func New(key string, storage port.CartStorage, opts ...Option) *Store {
	s := &Store{
		key:     key,
		storage: storage,
		format:  price.DefaultFormatter(),
		notify:  func(Notice) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Key() string {
	return s.key
}

func (s *Store) TrackingInventory() bool {
	return s.stock != nil
}

// Load replaces the in-memory cart with the stored one. A stored cart with
// any line whose price disagrees with its own display text is discarded
// whole, never partially repaired.
func (s *Store) Load(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	data, err := s.storage.LoadCart(ctx, s.key)
	if err != nil {
		return errors.Wrap(err, "load cart")
	}
	if len(data) == 0 {
		return nil
	}

	var items []domain.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		log.WithError(err).WithField("key", s.key).Warn("stored cart unreadable, starting empty")
		return nil
	}
	if bad, ok := s.findCorrupted(items); ok {
		log.WithFields(log.Fields{"key": s.key, "item": bad.ID, "price": bad.Price, "price_text": bad.PriceText}).
			Warn("cart prices look corrupted, clearing cart")
		if err := s.storage.RemoveCart(ctx, s.key); err != nil {
			return errors.Wrap(err, "remove corrupted cart")
		}
		return nil
	}
	s.items = items
	return nil
}

func (s *Store) findCorrupted(items []domain.LineItem) (domain.LineItem, bool) {
	parser := price.Normalizer{Scale: int32(s.format.Scale)}
	for _, it := range items {
		if it.Quantity <= 0 || it.ID == "" || it.Price < 0 {
			return it, true
		}
		if it.PriceText == "" {
			continue
		}
		if price.Implausible(it.Price, parser.ParseDisplay(it.PriceText)) {
			return it, true
		}
	}
	if _, ok := sumTotals(items, nil); !ok && len(items) > 0 {
		return items[0], true
	}
	return domain.LineItem{}, false
}

// Add merges item into an existing line with the same composite id or
// appends it with quantity 1.
func (s *Store) Add(ctx context.Context, item domain.LineItem) error {
	if item.ID == "" {
		return errors.Wrap(ErrInvalidItem, "missing id")
	}
	if !price.Addable(item.Price, item.VariantID != "") {
		return errors.Wrapf(ErrInvalidItem, "%s has no price", item.Name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkStock(ctx, item, 1); err != nil {
		return err
	}

	next := slices.Clone(s.items)
	if i := s.index(item.ID); i >= 0 {
		next[i].Quantity++
	} else {
		item.Quantity = 1
		if item.BaseID == "" {
			item.BaseID = item.Base()
		}
		next = append(next, item)
	}
	if _, ok := sumTotals(next, s.zone); !ok {
		return errors.Wrapf(ErrInvalidItem, "%s: cart total too large", item.Name)
	}
	s.items = next
	s.persist(ctx)
	s.notify(Notice{Kind: NoticeAdded, Message: "✅ " + item.Name + " agregado al carrito"})
	return nil
}

// SetQuantity applies delta to a line. Reaching zero or less removes it.
func (s *Store) SetQuantity(ctx context.Context, id string, delta int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(id)
	if i < 0 {
		return errors.Wrapf(ErrItemNotFound, "item %s", id)
	}
	if delta > 0 {
		if s.items[i].Quantity > math.MaxInt32-delta {
			return errors.Wrapf(ErrInvalidItem, "%s: quantity too large", s.items[i].Name)
		}
		if err := s.checkStock(ctx, s.items[i], delta); err != nil {
			return err
		}
	}

	next := slices.Clone(s.items)
	next[i].Quantity += delta
	if next[i].Quantity <= 0 {
		next = append(next[:i], next[i+1:]...)
	} else if _, ok := sumTotals(next, s.zone); !ok {
		return errors.Wrapf(ErrInvalidItem, "%s: cart total too large", next[i].Name)
	}
	s.items = next
	s.persist(ctx)
	return nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.index(id); i >= 0 {
		s.items = append(s.items[:i], s.items[i+1:]...)
	}
	s.persist(ctx)
	return nil
}

// RemoveOrdered takes the quantities of an earlier Items snapshot out of the
// cart. Lines added or incremented after the snapshot keep the difference.
func (s *Store) RemoveOrdered(ctx context.Context, ordered []domain.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range ordered {
		i := s.index(o.ID)
		if i < 0 {
			continue
		}
		s.items[i].Quantity -= o.Quantity
		if s.items[i].Quantity <= 0 {
			s.items = append(s.items[:i], s.items[i+1:]...)
		}
	}
	if len(s.items) == 0 {
		s.items = nil
	}
	s.persist(ctx)
	return nil
}

func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.persist(ctx)
	return nil
}

// SelectZone sets the delivery zone; nil clears it.
func (s *Store) SelectZone(zone *domain.DeliveryZone) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if zone == nil {
		s.zone = nil
		return
	}
	z := *zone
	s.zone = &z
}

func (s *Store) Zone() *domain.DeliveryZone {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.zone == nil {
		return nil
	}
	z := *s.zone
	return &z
}

func (s *Store) Items() []domain.LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]domain.LineItem(nil), s.items...)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.items)
}

// committed is the quantity already in the cart for an inventory key.
func (s *Store) committed(key string) int {
	total := 0
	for _, it := range s.items {
		if it.StockKey() == key {
			total += it.Quantity
		}
	}
	return total
}

// checkStock rejects adding want more units of item when the cart already
// holds what is available under its inventory key.
func (s *Store) checkStock(ctx context.Context, item domain.LineItem, want int) error {
	if s.stock == nil {
		return nil
	}
	available, err := s.stock.Available(ctx, item.Base(), item.VariantID)
	if err != nil {
		return errors.Wrap(err, "read available stock")
	}
	if available != nil && *available < s.committed(item.StockKey())+want {
		s.notify(Notice{Kind: NoticeNoStock, Message: "⚠️ No hay más stock disponible de " + item.ProductName()})
		return errors.Wrapf(ErrNoStock, "%s", item.ProductName())
	}
	return nil
}

func (s *Store) index(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// persist writes the cart; a failed write is logged and the in-memory cart
// stays authoritative for the session.
func (s *Store) persist(ctx context.Context) {
	data, err := json.Marshal(s.itemsOrEmpty())
	if err != nil {
		log.WithError(err).WithField("key", s.key).Warn("could not encode cart")
		return
	}
	if err := s.storage.SaveCart(ctx, s.key, data); err != nil {
		log.WithError(err).WithField("key", s.key).Warn("could not save cart")
	}
}

func (s *Store) itemsOrEmpty() []domain.LineItem {
	if s.items == nil {
		return []domain.LineItem{}
	}
	return s.items
}
