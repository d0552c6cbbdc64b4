package domain

type SelectionKind string

const (
	SelectionExactly SelectionKind = "exactly"
	SelectionUpTo    SelectionKind = "up_to"
	SelectionAtLeast SelectionKind = "at_least"
)

// SelectionRule bounds how many options of a group may be selected.
// For up_to, N == 0 means no cap.
type SelectionRule struct {
	Kind SelectionKind `json:"kind"`
	N    int           `json:"n"`
}

type CustomizationType string

const (
	CustomizationRemove CustomizationType = "remove"
	CustomizationAdd    CustomizationType = "add"
)

type Variant struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	PriceText string `json:"priceText"`
}

type Option struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Price          int64  `json:"price"`
	PriceFormatted string `json:"priceFormatted,omitempty"`
}

type CustomizationGroup struct {
	ID                string        `json:"id"`
	Name              string        `json:"name"`
	Rule              SelectionRule `json:"rule"`
	Required          bool          `json:"required"`
	Options           []Option      `json:"options"`
	DependsOnOptionID string        `json:"dependsOnOptionId,omitempty"`
}

// Customization is an entry of the legacy flat list: either an ingredient
// that can be removed or a priced add-on.
type Customization struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Type           CustomizationType `json:"type"`
	Price          int64             `json:"price"`
	PriceFormatted string            `json:"priceFormatted,omitempty"`
	IsDefault      bool              `json:"isDefault"`
}

type Product struct {
	ID             string               `json:"id"`
	Name           string               `json:"name"`
	Price          int64                `json:"price"`
	PriceText      string               `json:"priceText"`
	Image          string               `json:"image,omitempty"`
	Variants       []Variant            `json:"variants,omitempty"`
	Groups         []CustomizationGroup `json:"groups,omitempty"`
	Customizations []Customization      `json:"customizations,omitempty"`
}

func (p Product) HasVariants() bool {
	return len(p.Variants) > 0
}

func (p Product) Variant(id string) (Variant, bool) {
	for _, v := range p.Variants {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}

func (p Product) Exclusions() []Customization {
	return p.customizationsOf(CustomizationRemove)
}

func (p Product) Addons() []Customization {
	return p.customizationsOf(CustomizationAdd)
}

func (p Product) customizationsOf(t CustomizationType) []Customization {
	var out []Customization
	for _, c := range p.Customizations {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}
