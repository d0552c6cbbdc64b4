package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/rl1809/catalog-cart/internal/core/domain"
	"github.com/rl1809/catalog-cart/internal/core/price"
)

// Tenant is one catalog served by the process.
type Tenant struct {
	ID               string            `yaml:"id"`
	Name             string            `yaml:"name"`
	Phone            string            `yaml:"phone"`
	WhatsAppMessage  string            `yaml:"whatsappMessage"`
	InventoryEnabled bool              `yaml:"inventoryEnabled"`
	RecordOrders     bool              `yaml:"recordOrders"`
	OrderExpiryHours int               `yaml:"orderExpiryHours"`
	DefaultStock     int               `yaml:"defaultStock"`
	Locale           string            `yaml:"locale"`
	PriceFormat      string            `yaml:"priceFormat"`
	Scale            int               `yaml:"scale"`
	Form             domain.FormConfig `yaml:"form"`
	// Products, when listed, are the only products the catalog sells; page
	// cards can no longer add or reprice any.
	Products []map[string]string `yaml:"products"`
}

func (t Tenant) Formatter() price.Formatter {
	return price.NewFormatter(t.Locale, t.PriceFormat, t.Scale)
}

func (t Tenant) Normalizer() price.Normalizer {
	return price.Normalizer{Scale: int32(t.Scale)}
}

func (t Tenant) OrderExpiry() time.Duration {
	if t.OrderExpiryHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(t.OrderExpiryHours) * time.Hour
}

type Catalog struct {
	Tenants []Tenant `yaml:"tenants"`
}

func (c *Catalog) Tenant(id string) (Tenant, bool) {
	for _, t := range c.Tenants {
		if t.ID == id {
			return t, true
		}
	}
	return Tenant{}, false
}

func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read catalog file %s", path)
	}
	return ParseCatalog(data)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errors.Wrap(err, "parse catalog YAML")
	}

	seen := make(map[string]bool, len(c.Tenants))
	for i := range c.Tenants {
		t := &c.Tenants[i]
		if t.ID == "" {
			return nil, errors.Errorf("tenant %d has no id", i)
		}
		if seen[t.ID] {
			return nil, errors.Errorf("duplicate tenant %q", t.ID)
		}
		seen[t.ID] = true
		if t.Name == "" {
			t.Name = t.ID
		}
		if t.Scale < 0 {
			return nil, errors.Errorf("tenant %q: negative scale", t.ID)
		}
	}
	return &c, nil
}
