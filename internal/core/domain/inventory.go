package domain

import "time"

type Inventory struct {
	Key       string
	ItemID    string
	Stock     int
	Reserved  int
	Version   int // optimistic locking
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (i Inventory) Available() int {
	return i.Stock - i.Reserved
}

func StockKey(itemID, variantID string) string {
	if variantID == "" {
		return itemID
	}
	return itemID + "_" + variantID
}

type ReservationItem struct {
	ItemID    string
	VariantID string
	Name      string
	Quantity  int
}

func (r ReservationItem) Key() string {
	return StockKey(r.ItemID, r.VariantID)
}

type ReserveOutcome int

const (
	ReserveApplied ReserveOutcome = iota
	// ReserveCreated means no record existed and one was created with stock 0.
	ReserveCreated
	ReserveInsufficient
)

type InventoryChangeKind string

const (
	ChangeReserved  InventoryChangeKind = "reserved"
	ChangeReleased  InventoryChangeKind = "released"
	ChangeConfirmed InventoryChangeKind = "confirmed"
	ChangeStockSet  InventoryChangeKind = "stock_set"
)

type InventoryChange struct {
	Kind      InventoryChangeKind `json:"kind"`
	Key       string              `json:"key"`
	Stock     int                 `json:"stock"`
	Reserved  int                 `json:"reserved"`
	Available int                 `json:"available"`
	At        time.Time           `json:"at"`
}

func NewInventoryChange(kind InventoryChangeKind, inv Inventory) InventoryChange {
	return InventoryChange{
		Kind:      kind,
		Key:       inv.Key,
		Stock:     inv.Stock,
		Reserved:  inv.Reserved,
		Available: inv.Available(),
		At:        time.Now().UTC(),
	}
}
