// Package order renders the human-readable order message sent to the shop
// owner and the customer-facing notices around checkout.
package order

import (
	"fmt"
	"strings"

	"github.com/rl1809/catalog-cart/internal/core/domain"
)

const (
	DefaultGreeting = "Hola! Quiero hacer el siguiente pedido:"
	separator       = "━━━━━━━━━━━━━━━━━━"
)

// MessageInput is everything the message needs. Form must already be trimmed.
type MessageInput struct {
	Greeting    string
	CatalogName string
	Items       []domain.LineItem
	Totals      domain.Totals
	Zone        *domain.DeliveryZone
	Form        domain.CheckoutForm
	Config      domain.FormConfig
	OrderID     string
	Format      func(int64) string
}

// ShortID is the order reference shown to humans: the first 8 characters
// of the id, upper-cased.
func ShortID(id string) string {
	if len(id) > 8 {
		id = id[:8]
	}
	return strings.ToUpper(id)
}

func BuildMessage(in MessageInput) string {
	format := in.Format
	greeting := in.Greeting
	if greeting == "" {
		greeting = DefaultGreeting
	}

	var b strings.Builder
	if in.OrderID != "" {
		fmt.Fprintf(&b, "📦 *Pedido #%s*\n", ShortID(in.OrderID))
	}
	b.WriteString(greeting + "\n\n")
	fmt.Fprintf(&b, "📋 *Pedido de %s*\n", in.CatalogName)
	b.WriteString(separator + "\n\n")

	for _, it := range in.Items {
		writeItem(&b, it, format)
	}

	b.WriteString(separator + "\n")
	fmt.Fprintf(&b, "📦 *Subtotal:* %s\n", format(in.Totals.Subtotal))
	if in.Zone != nil {
		switch {
		case in.Zone.ToConsult:
			fmt.Fprintf(&b, "🚚 *Envío (%s):* A consultar\n", in.Zone.Name)
		case in.Totals.Delivery > 0:
			fmt.Fprintf(&b, "🚚 *Envío (%s):* %s\n", in.Zone.Name, format(in.Totals.Delivery))
		default:
			fmt.Fprintf(&b, "🚚 *Envío (%s):* Gratis\n", in.Zone.Name)
		}
	}
	if in.Totals.ToConsult {
		fmt.Fprintf(&b, "💰 *TOTAL: %s + envío a consultar*\n\n", format(in.Totals.Subtotal))
	} else {
		fmt.Fprintf(&b, "💰 *TOTAL: %s*\n\n", format(in.Totals.Total))
	}

	writeCustomer(&b, in.Form, in.Config)

	if in.OrderID != "" {
		b.WriteString("\n" + separator + "\n")
		b.WriteString("⚠️ _Stock reservado. Confirmar en admin._\n")
	}
	return b.String()
}

func writeItem(b *strings.Builder, it domain.LineItem, format func(int64) string) {
	fmt.Fprintf(b, "• %s\n", it.Name)
	if len(it.Exclusions) > 0 {
		fmt.Fprintf(b, "  ❌ Sin %s\n", strings.Join(it.Exclusions, ", Sin "))
	}
	for _, g := range it.GroupSelections {
		names := make([]string, 0, len(g.Options))
		for _, o := range g.Options {
			if o.Price > 0 {
				names = append(names, fmt.Sprintf("%s (+%s)", o.Name, choicePrice(o, format)))
			} else {
				names = append(names, o.Name)
			}
		}
		fmt.Fprintf(b, "  📋 %s: %s\n", g.GroupName, strings.Join(names, ", "))
	}
	if len(it.Addons) > 0 {
		addons := make([]string, 0, len(it.Addons))
		for _, a := range it.Addons {
			addons = append(addons, fmt.Sprintf("%s (+%s)", a.Name, choicePrice(a, format)))
		}
		fmt.Fprintf(b, "  ➕ Con %s\n", strings.Join(addons, ", "))
	}
	fmt.Fprintf(b, "  %d x %s = %s\n\n", it.Quantity, format(it.Price), format(it.Price*int64(it.Quantity)))
}

func writeCustomer(b *strings.Builder, form domain.CheckoutForm, cfg domain.FormConfig) {
	fmt.Fprintf(b, "👤 *Cliente:* %s\n", form.Name)
	fmt.Fprintf(b, "📱 *Teléfono:* %s\n", form.Phone)
	if form.Address != "" {
		fmt.Fprintf(b, "📍 *Dirección:* %s\n", form.Address)
	}
	if form.PaymentMethod != "" {
		name := form.PaymentMethod
		if p, ok := cfg.Payment(form.PaymentMethod); ok {
			name = p.Name
		}
		fmt.Fprintf(b, "💳 *Forma de pago:* %s\n", name)
	}
	for _, field := range cfg.CustomFields {
		if value := CustomValue(field, form.Custom[field.ID]); value != "" {
			fmt.Fprintf(b, "📌 *%s:* %s\n", field.Label, value)
		}
	}
	if form.Notes != "" {
		fmt.Fprintf(b, "\n📝 *Notas:* %s\n", form.Notes)
	}
}

// CustomValue renders a submitted custom field value. Checkboxes always
// render as Sí or No; selects render the option label.
func CustomValue(field domain.CustomField, raw string) string {
	switch field.Type {
	case domain.FieldCheckbox:
		if Checked(raw) {
			return "Sí"
		}
		return "No"
	case domain.FieldSelect:
		for _, o := range field.Options {
			if o.Value == raw {
				return o.Label
			}
		}
		return raw
	default:
		return raw
	}
}

func Checked(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true", "on", "1", "yes", "si", "sí":
		return true
	}
	return false
}

func choicePrice(c domain.PricedChoice, format func(int64) string) string {
	if c.PriceFormatted != "" {
		return c.PriceFormatted
	}
	return format(c.Price)
}
