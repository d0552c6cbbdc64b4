// Package catalog reads product descriptors from the declarative attributes
// rendered on a catalog page's product cards.
package catalog

import (
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/rl1809/catalog-cart/internal/core/domain"
	"github.com/rl1809/catalog-cart/internal/core/price"
)

const (
	AttrID                  = "data-item-id"
	AttrName                = "data-item-name"
	AttrPrice               = "data-item-price"
	AttrPriceText           = "data-item-price-text"
	AttrImage               = "data-item-image"
	AttrHasVariants         = "data-has-variants"
	AttrVariants            = "data-variants"
	AttrHasCustomizations   = "data-has-customizations"
	AttrCustomizations      = "data-customizations"
	AttrHasGroups           = "data-has-customization-groups"
	AttrCustomizationGroups = "data-customization-groups"
)

var (
	ErrMissingID   = errors.New("product id is required")
	ErrMissingName = errors.New("product name is required")
)

type rawVariant struct {
	ID        json.RawMessage `json:"id"`
	Name      string          `json:"name"`
	Price     json.RawMessage `json:"price"`
	PriceText string          `json:"priceText"`
}

type rawOption struct {
	ID             json.RawMessage `json:"id"`
	Name           string          `json:"name"`
	Price          json.RawMessage `json:"price"`
	PriceFormatted string          `json:"priceFormatted"`
}

type rawCustomization struct {
	rawOption
	Type      string `json:"type"`
	IsDefault bool   `json:"isDefault"`
}

type rawGroup struct {
	ID                json.RawMessage `json:"id"`
	Name              string          `json:"name"`
	SelectionType     string          `json:"selectionType"`
	MinSelections     int             `json:"minSelections"`
	MaxSelections     int             `json:"maxSelections"`
	IsRequired        bool            `json:"isRequired"`
	DependsOnOptionID json.RawMessage `json:"dependsOnOptionId"`
	Options           []rawOption     `json:"options"`
}

// Reader parses product attributes using a price normalizer for the
// catalog's currency scale. Admin price overrides, when set, win over the
// prices the page carries.
type Reader struct {
	prices price.Normalizer
	format price.Formatter

	mu        sync.RWMutex
	overrides map[string]int64
}

type ReaderOption func(*Reader)

// WithPriceFormat renders the display text of overridden prices.
func WithPriceFormat(f price.Formatter) ReaderOption {
	return func(r *Reader) { r.format = f }
}

func NewReader(prices price.Normalizer, opts ...ReaderOption) *Reader {
	r := &Reader{prices: prices, format: price.DefaultFormatter()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetOverrides replaces the price overrides, keyed by product id or by
// itemId_variantId for a single variant.
func (r *Reader) SetOverrides(overrides map[string]int64) {
	copied := make(map[string]int64, len(overrides))
	for k, v := range overrides {
		copied[k] = v
	}
	r.mu.Lock()
	r.overrides = copied
	r.mu.Unlock()
}

func (r *Reader) override(key string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	amount, ok := r.overrides[key]
	return amount, ok
}

func ParseProductDescriptor(attrs map[string]string) (domain.Product, error) {
	return NewReader(price.Normalizer{}).Parse(attrs)
}

func (r *Reader) Parse(attrs map[string]string) (domain.Product, error) {
	p := domain.Product{
		ID:        strings.TrimSpace(attrs[AttrID]),
		Name:      strings.TrimSpace(attrs[AttrName]),
		PriceText: strings.TrimSpace(attrs[AttrPriceText]),
		Image:     strings.TrimSpace(attrs[AttrImage]),
	}
	if p.ID == "" {
		return domain.Product{}, ErrMissingID
	}
	if p.Name == "" {
		return domain.Product{}, errors.Wrapf(ErrMissingName, "product %s", p.ID)
	}
	p.Price = r.prices.Normalize(attrs[AttrPrice], p.PriceText)
	if amount, ok := r.override(p.ID); ok {
		p.Price, p.PriceText = amount, r.format.Format(amount)
	}

	if flag(attrs, AttrHasVariants) {
		var raw []rawVariant
		if decode(p.ID, attrs[AttrVariants], &raw) {
			for _, v := range raw {
				id := jsonID(v.ID)
				if id == "" {
					continue
				}
				variant := domain.Variant{
					ID:        id,
					Name:      v.Name,
					Price:     r.prices.Normalize(jsonNumber(v.Price), v.PriceText),
					PriceText: v.PriceText,
				}
				if amount, ok := r.override(domain.StockKey(p.ID, id)); ok {
					variant.Price, variant.PriceText = amount, r.format.Format(amount)
				}
				p.Variants = append(p.Variants, variant)
			}
		}
	}

	if flag(attrs, AttrHasCustomizations) {
		var raw []rawCustomization
		if decode(p.ID, attrs[AttrCustomizations], &raw) {
			for _, c := range raw {
				p.Customizations = append(p.Customizations, domain.Customization{
					ID:             jsonID(c.ID),
					Name:           c.Name,
					Type:           customizationType(c.Type),
					Price:          r.optionPrice(c.rawOption),
					PriceFormatted: c.PriceFormatted,
					IsDefault:      c.IsDefault,
				})
			}
		}
	}

	if flag(attrs, AttrHasGroups) {
		var raw []rawGroup
		if decode(p.ID, attrs[AttrCustomizationGroups], &raw) {
			for _, g := range raw {
				p.Groups = append(p.Groups, r.group(g))
			}
		}
	}

	return p, nil
}

// ParseProducts parses every card of a page, skipping cards that lack an
// id or a name.
func (r *Reader) ParseProducts(cards []map[string]string) []domain.Product {
	products := make([]domain.Product, 0, len(cards))
	for _, attrs := range cards {
		p, err := r.Parse(attrs)
		if err != nil {
			log.WithError(err).Debug("skipping product card")
			continue
		}
		products = append(products, p)
	}
	return products
}

func (r *Reader) group(g rawGroup) domain.CustomizationGroup {
	group := domain.CustomizationGroup{
		ID:                jsonID(g.ID),
		Name:              strings.TrimSpace(g.Name),
		Required:          g.IsRequired,
		DependsOnOptionID: jsonID(g.DependsOnOptionID),
	}
	switch domain.SelectionKind(g.SelectionType) {
	case domain.SelectionExactly:
		group.Rule = domain.SelectionRule{Kind: domain.SelectionExactly, N: g.MinSelections}
	case domain.SelectionAtLeast:
		group.Rule = domain.SelectionRule{Kind: domain.SelectionAtLeast, N: g.MinSelections}
	default:
		group.Rule = domain.SelectionRule{Kind: domain.SelectionUpTo, N: g.MaxSelections}
	}
	for _, o := range g.Options {
		group.Options = append(group.Options, domain.Option{
			ID:             jsonID(o.ID),
			Name:           o.Name,
			Price:          r.optionPrice(o),
			PriceFormatted: o.PriceFormatted,
		})
	}
	return group
}

func (r *Reader) optionPrice(o rawOption) int64 {
	return r.prices.Normalize(jsonNumber(o.Price), o.PriceFormatted)
}

func customizationType(t string) domain.CustomizationType {
	switch t {
	case "add", "addon":
		return domain.CustomizationAdd
	default:
		return domain.CustomizationRemove
	}
}

func flag(attrs map[string]string, name string) bool {
	return attrs[name] == "true"
}

func decode(productID, raw string, v any) bool {
	if strings.TrimSpace(raw) == "" {
		return false
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		log.WithError(err).WithField("product", productID).Debug("ignoring malformed product attribute")
		return false
	}
	return true
}

// jsonID accepts ids rendered either as JSON strings or numbers.
func jsonID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(string(raw))
}

func jsonNumber(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return ""
}
