package catalog

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/rl1809/catalog-cart/internal/core/domain"
)

// Registry is the set of products a tenant sells. Cards are kept as raw
// attributes and parsed on every lookup, so price overrides set later still
// apply.
//
// Configured products are authoritative: when a tenant lists any, page cards
// are never registered. Otherwise a page card is registered the first time
// its id is seen and later cards with the same id never replace it.
type Registry struct {
	reader *Reader

	mu     sync.RWMutex
	cards  map[string]map[string]string
	closed bool
}

func NewRegistry(reader *Reader, configured []map[string]string) *Registry {
	r := &Registry{reader: reader, cards: make(map[string]map[string]string, len(configured))}
	for _, attrs := range configured {
		p, err := reader.Parse(attrs)
		if err != nil {
			log.WithError(err).Warn("skipping configured product")
			continue
		}
		r.cards[p.ID] = copyAttrs(attrs)
	}
	r.closed = len(configured) > 0
	return r
}

// Register records the page cards it may accept and returns the registered
// version of every card whose id the registry knows, in card order.
func (r *Registry) Register(cards []map[string]string) []domain.Product {
	products := make([]domain.Product, 0, len(cards))
	seen := make(map[string]bool, len(cards))
	for _, attrs := range cards {
		p, err := r.reader.Parse(attrs)
		if err != nil {
			log.WithError(err).Debug("skipping product card")
			continue
		}
		if seen[p.ID] {
			continue
		}
		seen[p.ID] = true

		r.mu.Lock()
		if _, known := r.cards[p.ID]; !known && !r.closed {
			r.cards[p.ID] = copyAttrs(attrs)
		}
		r.mu.Unlock()

		if registered, ok := r.Lookup(p.ID); ok {
			products = append(products, registered)
		}
	}
	return products
}

// Lookup parses the registered card for id with the current overrides.
func (r *Registry) Lookup(id string) (domain.Product, bool) {
	r.mu.RLock()
	attrs, ok := r.cards[id]
	r.mu.RUnlock()
	if !ok {
		return domain.Product{}, false
	}
	p, err := r.reader.Parse(attrs)
	if err != nil {
		return domain.Product{}, false
	}
	return p, true
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cards)
}

func copyAttrs(attrs map[string]string) map[string]string {
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
