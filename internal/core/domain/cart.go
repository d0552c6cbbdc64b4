package domain

import "strings"

type PricedChoice struct {
	Name           string `json:"name"`
	Price          int64  `json:"price"`
	PriceFormatted string `json:"priceFormatted,omitempty"`
}

type GroupSelection struct {
	GroupName string         `json:"groupName"`
	Options   []PricedChoice `json:"options"`
}

// LineItem is one purchasable configuration in a cart. ID is the composite
// identity (base id + variant + customization fingerprint).
type LineItem struct {
	ID              string           `json:"id"`
	BaseID          string           `json:"baseId"`
	Name            string           `json:"name"`
	Price           int64            `json:"price"`
	PriceText       string           `json:"priceText"`
	Image           string           `json:"image,omitempty"`
	Exclusions      []string         `json:"exclusions,omitempty"`
	Addons          []PricedChoice   `json:"addons,omitempty"`
	GroupSelections []GroupSelection `json:"groupSelections,omitempty"`
	VariantID       string           `json:"variantId,omitempty"`
	VariantName     string           `json:"variantName,omitempty"`
	Quantity        int              `json:"qty"`
}

// StockKey is the inventory record key for the line: itemId or itemId_variantId.
func (l LineItem) StockKey() string {
	return StockKey(l.Base(), l.VariantID)
}

// ProductName is the display name without the variant suffix.
func (l LineItem) ProductName() string {
	if l.VariantName != "" {
		return strings.TrimSuffix(l.Name, " - "+l.VariantName)
	}
	return l.Name
}

func (l LineItem) Base() string {
	if l.BaseID != "" {
		return l.BaseID
	}
	// carts persisted before BaseID existed only carry the composite id
	base, _, _ := strings.Cut(l.ID, "_")
	return base
}

type Totals struct {
	Count     int
	Subtotal  int64
	Delivery  int64
	Total     int64
	ToConsult bool
	HasZone   bool
}
