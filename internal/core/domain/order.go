package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type OrderItem struct {
	ItemID      string `json:"itemId"`
	BaseID      string `json:"baseId"`
	VariantID   string `json:"variantId,omitempty"`
	Name        string `json:"name"`
	VariantName string `json:"variantName,omitempty"`
	Quantity    int    `json:"quantity"`
	Price       int64  `json:"price"`
	PriceText   string `json:"priceText"`
	Image       string `json:"image,omitempty"`
}

func (i OrderItem) StockKey() string {
	return StockKey(i.BaseID, i.VariantID)
}

type Customer struct {
	Name          string            `json:"name"`
	Phone         string            `json:"phone"`
	Address       string            `json:"address,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	PaymentMethod string            `json:"paymentMethod,omitempty"`
	DeliveryZone  string            `json:"deliveryZone,omitempty"`
	Custom        map[string]string `json:"custom,omitempty"`
}

type Order struct {
	ID           string
	CatalogKey   string
	Status       OrderStatus
	Items        []OrderItem
	Customer     Customer
	Subtotal     int64
	DeliveryCost int64
	Total        int64
	CreatedAt    time.Time
	UpdatedAt    time.Time
	ExpiresAt    time.Time
}

func OrderItemsFromCart(lines []LineItem, format func(int64) string) []OrderItem {
	items := make([]OrderItem, 0, len(lines))
	for _, l := range lines {
		items = append(items, OrderItem{
			ItemID:      l.ID,
			BaseID:      l.Base(),
			VariantID:   l.VariantID,
			Name:        l.Name,
			VariantName: l.VariantName,
			Quantity:    l.Quantity,
			Price:       l.Price,
			PriceText:   format(l.Price * int64(l.Quantity)),
			Image:       l.Image,
		})
	}
	return items
}

// ReservationItems groups order lines by inventory key.
func (o Order) ReservationItems() []ReservationItem {
	var out []ReservationItem
	index := make(map[string]int)
	for _, it := range o.Items {
		key := it.StockKey()
		if i, ok := index[key]; ok {
			out[i].Quantity += it.Quantity
			continue
		}
		index[key] = len(out)
		out = append(out, ReservationItem{
			ItemID:    it.BaseID,
			VariantID: it.VariantID,
			Name:      it.Name,
			Quantity:  it.Quantity,
		})
	}
	return out
}
