package adminpb

import "time"

type TenantRequest struct {
	Tenant string `json:"tenant"`
}

type OrderRequest struct {
	Tenant  string `json:"tenant"`
	OrderID string `json:"orderId"`
}

type ListOrdersRequest struct {
	Tenant string `json:"tenant"`
	Status string `json:"status,omitempty"`
}

type SetStockRequest struct {
	Tenant    string `json:"tenant"`
	ItemID    string `json:"itemId"`
	VariantID string `json:"variantId,omitempty"`
	Stock     int    `json:"stock"`
}

type AdjustStockRequest struct {
	Tenant string `json:"tenant"`
	Key    string `json:"key"`
	Delta  int    `json:"delta"`
}

type GetInventoryRequest struct {
	Tenant string `json:"tenant"`
	Key    string `json:"key"`
}

type SeedItem struct {
	ItemID    string `json:"itemId"`
	VariantID string `json:"variantId,omitempty"`
}

type SeedRequest struct {
	Tenant string     `json:"tenant"`
	Items  []SeedItem `json:"items"`
	// Stock is used for every created record; zero means the tenant default.
	Stock int `json:"stock"`
}

type OrderLine struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    int64  `json:"price"`
}

type Order struct {
	ID        string      `json:"id"`
	Tenant    string      `json:"tenant"`
	Status    string      `json:"status"`
	Customer  string      `json:"customer"`
	Phone     string      `json:"phone"`
	Items     []OrderLine `json:"items"`
	Total     int64       `json:"total"`
	CreatedAt time.Time   `json:"createdAt"`
	ExpiresAt time.Time   `json:"expiresAt"`
}

type OrderReply struct {
	Order Order `json:"order"`
}

type ListOrdersReply struct {
	Orders []Order `json:"orders"`
}

type Inventory struct {
	Key       string    `json:"key"`
	ItemID    string    `json:"itemId"`
	Stock     int       `json:"stock"`
	Reserved  int       `json:"reserved"`
	Available int       `json:"available"`
	Version   int       `json:"version"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type InventoryReply struct {
	Inventory Inventory `json:"inventory"`
}

type ListInventoryReply struct {
	Items []Inventory `json:"items"`
}

type Drift struct {
	Key      string `json:"key"`
	Stored   int    `json:"stored"`
	Expected int    `json:"expected"`
}

type RecalculateReply struct {
	Changed []Drift `json:"changed"`
}

type DiagnoseReply struct {
	Oversold []Inventory `json:"oversold"`
	Drift    []Drift     `json:"drift"`
}

type SeedReply struct {
	Created []string `json:"created"`
}

type SetPriceRequest struct {
	Tenant    string `json:"tenant"`
	ItemID    string `json:"itemId"`
	VariantID string `json:"variantId,omitempty"`
	Price     int64  `json:"price"`
}

type ResetPriceRequest struct {
	Tenant    string `json:"tenant"`
	ItemID    string `json:"itemId"`
	VariantID string `json:"variantId,omitempty"`
}

type Price struct {
	Key           string    `json:"key"`
	Price         int64     `json:"price"`
	OriginalPrice int64     `json:"originalPrice"`
	ItemName      string    `json:"itemName"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type PriceReply struct {
	Price Price `json:"price"`
}

type ResetPriceReply struct {
	Key string `json:"key"`
}

type ListPricesReply struct {
	Prices []Price `json:"prices"`
}
