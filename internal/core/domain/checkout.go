package domain

import (
	"fmt"
	"strings"
)

type FieldType string

const (
	FieldText     FieldType = "text"
	FieldSelect   FieldType = "select"
	FieldCheckbox FieldType = "checkbox"
)

type SelectOption struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
}

type CustomField struct {
	ID       string         `yaml:"id" json:"id"`
	Label    string         `yaml:"label" json:"label"`
	Type     FieldType      `yaml:"type" json:"type"`
	Required bool           `yaml:"required" json:"required"`
	Options  []SelectOption `yaml:"options" json:"options,omitempty"`
}

type PaymentMethod struct {
	ID   string `yaml:"id" json:"id"`
	Name string `yaml:"name" json:"name"`
}

// FormConfig declares which checkout fields are shown and which are required.
type FormConfig struct {
	RequireName      bool            `yaml:"requireName"`
	RequirePhone     bool            `yaml:"requirePhone"`
	ShowAddress      bool            `yaml:"showAddress"`
	AddressRequired  bool            `yaml:"addressRequired"`
	ShowNotes        bool            `yaml:"showNotes"`
	ShowPayment      bool            `yaml:"showPaymentMethod"`
	PaymentRequired  bool            `yaml:"paymentRequired"`
	PaymentMethods   []PaymentMethod `yaml:"paymentMethods"`
	ShowDeliveryZone bool            `yaml:"showDeliveryZone"`
	DeliveryRequired bool            `yaml:"deliveryRequired"`
	DeliveryZones    []DeliveryZone  `yaml:"deliveryZones"`
	CustomFields     []CustomField   `yaml:"customFields"`
}

func (f FormConfig) Zone(id string) (DeliveryZone, bool) {
	for _, z := range f.DeliveryZones {
		if z.ID == id {
			return z, true
		}
	}
	return DeliveryZone{}, false
}

func (f FormConfig) Payment(id string) (PaymentMethod, bool) {
	for _, p := range f.PaymentMethods {
		if p.ID == id {
			return p, true
		}
	}
	return PaymentMethod{}, false
}

// CheckoutForm is what the customer submitted.
type CheckoutForm struct {
	Name          string            `json:"name"`
	Phone         string            `json:"phone"`
	Address       string            `json:"address"`
	Notes         string            `json:"notes"`
	PaymentMethod string            `json:"paymentMethod"`
	DeliveryZone  string            `json:"deliveryZone"`
	Custom        map[string]string `json:"custom"`
}

func (f CheckoutForm) Trimmed() CheckoutForm {
	out := f
	out.Name = strings.TrimSpace(f.Name)
	out.Phone = strings.TrimSpace(f.Phone)
	out.Address = strings.TrimSpace(f.Address)
	out.Notes = strings.TrimSpace(f.Notes)
	out.Custom = make(map[string]string, len(f.Custom))
	for k, v := range f.Custom {
		out.Custom[k] = strings.TrimSpace(v)
	}
	return out
}

// FieldErrors lists the form fields that failed validation.
type FieldErrors struct {
	Fields []string
}

func (e *FieldErrors) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.Fields, ", "))
}

// StockError reports a product whose requested quantity exceeds what is available.
type StockError struct {
	Name      string
	Key       string
	Requested int
	Available int
}

func (e *StockError) Error() string {
	if e.Available <= 0 {
		return fmt.Sprintf("%q is no longer available", e.Name)
	}
	return fmt.Sprintf("%q only has %d units available", e.Name, e.Available)
}

func (e *StockError) Unwrap() error {
	return ErrInsufficientStock
}
