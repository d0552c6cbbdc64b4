package domain

import "time"

// PriceOverride replaces the price a catalog page carries for one item.
// ItemID is either a product id or an itemId_variantId inventory key.
type PriceOverride struct {
	ItemID        string    `json:"itemId"`
	Price         int64     `json:"price"`
	OriginalPrice int64     `json:"originalPrice"`
	ItemName      string    `json:"itemName"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
