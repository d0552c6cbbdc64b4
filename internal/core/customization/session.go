// Package customization implements the per-product configuration session a
// customer goes through before a line item is added to the cart: variant
// choice, ingredient exclusions, add-ons and rule-bound option groups.
package customization

import (
	"slices"

	"github.com/pkg/errors"

	"github.com/rl1809/catalog-cart/internal/core/domain"
	"github.com/rl1809/catalog-cart/internal/core/price"
)

var (
	ErrClosed          = errors.New("customization session is not open")
	ErrVariantRequired = errors.New("a variant must be selected")
	ErrUnknownVariant  = errors.New("unknown variant")
	ErrUnknownOption   = errors.New("unknown option")
	ErrUnknownGroup    = errors.New("unknown customization group")
	ErrGroupHidden     = errors.New("customization group is not active")
	ErrSelectionLimit  = errors.New("selection limit reached")
	ErrNotAddable      = errors.New("product has no price")
)

type State int

const (
	StateClosed State = iota
	StateVariantSelection
	StateGroupSelection
	StateReview
	StateConfirmed
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateVariantSelection:
		return "variant_selection"
	case StateGroupSelection:
		return "group_selection"
	case StateReview:
		return "review"
	case StateConfirmed:
		return "confirmed"
	}
	return "unknown"
}

type Session struct {
	product   domain.Product
	format    func(int64) string
	open      bool
	confirmed bool

	variantID string
	excluded  map[string]bool
	addons    map[string]bool
	selected  map[string]map[string]bool
	hidden    map[string]bool
}

// NewSession prepares a closed session for p. format renders unit prices
// into the line item's display text.
func NewSession(p domain.Product, format func(int64) string) *Session {
	if format == nil {
		format = price.DefaultFormatter().Format
	}
	return &Session{product: p, format: format}
}

// Open starts the session from scratch; nothing from a previous run survives.
func (s *Session) Open() {
	s.open = true
	s.confirmed = false
	s.variantID = ""
	s.excluded = make(map[string]bool)
	s.addons = make(map[string]bool)
	s.selected = make(map[string]map[string]bool)
	s.hidden = make(map[string]bool)

	for _, c := range s.product.Addons() {
		if c.IsDefault {
			s.addons[customizationKey(c)] = true
		}
	}
	for _, g := range s.product.Groups {
		s.selected[g.ID] = make(map[string]bool)
	}
	s.refreshVisibility()
}

func (s *Session) Close() {
	s.open = false
}

func (s *Session) Product() domain.Product {
	return s.product
}

func (s *Session) State() State {
	switch {
	case s.confirmed:
		return StateConfirmed
	case !s.open:
		return StateClosed
	case s.product.HasVariants() && s.variantID == "":
		return StateVariantSelection
	case s.Validate() != nil:
		return StateGroupSelection
	}
	return StateReview
}

// Valid reports whether confirm is currently allowed.
func (s *Session) Valid() bool {
	return s.State() == StateReview
}

func (s *Session) SelectVariant(id string) error {
	if !s.open {
		return ErrClosed
	}
	if _, ok := s.product.Variant(id); !ok {
		return errors.Wrapf(ErrUnknownVariant, "variant %s", id)
	}
	s.variantID = id
	return nil
}

// SetIncluded toggles a removable ingredient. Every one starts included.
func (s *Session) SetIncluded(customizationID string, included bool) error {
	if !s.open {
		return ErrClosed
	}
	c, ok := s.findCustomization(s.product.Exclusions(), customizationID)
	if !ok {
		return errors.Wrapf(ErrUnknownOption, "exclusion %s", customizationID)
	}
	s.excluded[customizationKey(c)] = !included
	return nil
}

func (s *Session) SetAddon(customizationID string, selected bool) error {
	if !s.open {
		return ErrClosed
	}
	c, ok := s.findCustomization(s.product.Addons(), customizationID)
	if !ok {
		return errors.Wrapf(ErrUnknownOption, "add-on %s", customizationID)
	}
	s.addons[customizationKey(c)] = selected
	s.refreshVisibility()
	return nil
}

// SetOption checks or unchecks an option of a group. Checking an option in
// a group that already reached its cap fails with ErrSelectionLimit and
// leaves the selection untouched.
func (s *Session) SetOption(groupID, optionID string, selected bool) error {
	if !s.open {
		return ErrClosed
	}
	g, ok := s.group(groupID)
	if !ok {
		return errors.Wrapf(ErrUnknownGroup, "group %s", groupID)
	}
	if !hasOption(g, optionID) {
		return errors.Wrapf(ErrUnknownOption, "group %s option %s", groupID, optionID)
	}
	if s.hidden[g.ID] {
		return errors.Wrapf(ErrGroupHidden, "group %s", g.Name)
	}

	current := s.selected[g.ID]
	if current[optionID] == selected {
		return nil
	}
	if selected && capped(g.Rule) && countTrue(current) >= limit(g.Rule) {
		return errors.Wrapf(ErrSelectionLimit, "group %s allows %d", g.Name, g.Rule.N)
	}
	current[optionID] = selected
	s.refreshVisibility()
	return nil
}

// Groups reports the live status of every group in product order.
func (s *Session) Groups() []GroupStatus {
	out := make([]GroupStatus, 0, len(s.product.Groups))
	for _, g := range s.product.Groups {
		current := s.selected[g.ID]
		count := countTrue(current)
		st := GroupStatus{
			ID:       g.ID,
			Name:     g.Name,
			Label:    RuleLabel(g.Rule),
			Required: g.Required,
			Visible:  !s.hidden[g.ID],
		}
		if !st.Visible {
			out = append(out, st)
			continue
		}
		st.Valid = satisfied(g, count)
		st.Status = statusText(g.Rule, count)
		atCap := capped(g.Rule) && count >= limit(g.Rule)
		for _, o := range g.Options {
			switch {
			case current[o.ID]:
				st.Selected = append(st.Selected, o.ID)
			case atCap:
				st.Disabled = append(st.Disabled, o.ID)
			}
		}
		out = append(out, st)
	}
	return out
}

// Validate returns a *GroupError for the first visible required group whose
// rule is unmet. Hidden and optional groups never fail validation.
func (s *Session) Validate() error {
	for _, g := range s.product.Groups {
		if s.hidden[g.ID] || !g.Required {
			continue
		}
		if !satisfied(g, countTrue(s.selected[g.ID])) {
			return &GroupError{GroupID: g.ID, Group: g.Name, Rule: g.Rule}
		}
	}
	return nil
}

// UnitPrice is the variant (or base) price plus every selected add-on and
// group option.
func (s *Session) UnitPrice() int64 {
	total := s.basePrice()
	for _, c := range s.product.Addons() {
		if s.addons[customizationKey(c)] {
			total += c.Price
		}
	}
	for _, g := range s.product.Groups {
		for _, o := range g.Options {
			if s.selected[g.ID][o.ID] {
				total += o.Price
			}
		}
	}
	return total
}

// Confirm validates the session and produces the line item to add.
func (s *Session) Confirm() (domain.LineItem, error) {
	if !s.open {
		return domain.LineItem{}, ErrClosed
	}
	variant, hasVariant := s.product.Variant(s.variantID)
	if s.product.HasVariants() && !hasVariant {
		return domain.LineItem{}, ErrVariantRequired
	}
	if err := s.Validate(); err != nil {
		return domain.LineItem{}, err
	}
	unit := s.UnitPrice()
	if !price.Addable(unit, s.product.HasVariants()) {
		return domain.LineItem{}, errors.Wrapf(ErrNotAddable, "product %s", s.product.ID)
	}

	var exclusions []string
	for _, c := range s.product.Exclusions() {
		if s.excluded[customizationKey(c)] {
			exclusions = append(exclusions, c.Name)
		}
	}
	var addons []domain.PricedChoice
	var addonNames []string
	for _, c := range s.product.Addons() {
		if s.addons[customizationKey(c)] {
			addons = append(addons, s.choice(c.Name, c.Price, c.PriceFormatted))
			addonNames = append(addonNames, c.Name)
		}
	}
	var groups []domain.GroupSelection
	for _, g := range s.product.Groups {
		var opts []domain.PricedChoice
		for _, o := range g.Options {
			if s.selected[g.ID][o.ID] {
				opts = append(opts, s.choice(o.Name, o.Price, o.PriceFormatted))
			}
		}
		if len(opts) > 0 {
			groups = append(groups, domain.GroupSelection{GroupName: g.Name, Options: opts})
		}
	}

	item := domain.LineItem{
		BaseID:          s.product.ID,
		Name:            s.product.Name,
		Price:           unit,
		PriceText:       s.format(unit),
		Image:           s.product.Image,
		Exclusions:      sortedCopy(exclusions),
		Addons:          addons,
		GroupSelections: groups,
		Quantity:        1,
	}
	if hasVariant {
		item.Name = s.product.Name + " - " + variant.Name
		item.VariantID = variant.ID
		item.VariantName = variant.Name
	}
	item.ID = Fingerprint(s.product.ID, item.VariantID, exclusions, addonNames, groups)

	s.open = false
	s.confirmed = true
	return item, nil
}

func (s *Session) basePrice() int64 {
	if v, ok := s.product.Variant(s.variantID); ok && v.Price > 0 {
		return v.Price
	}
	return s.product.Price
}

func (s *Session) choice(name string, amount int64, formatted string) domain.PricedChoice {
	if formatted == "" && amount > 0 {
		formatted = s.format(amount)
	}
	return domain.PricedChoice{Name: name, Price: amount, PriceFormatted: formatted}
}

// refreshVisibility hides every conditional group whose trigger option is
// not selected and clears what was selected inside it. Clearing can hide
// further groups, so it repeats until nothing changes.
func (s *Session) refreshVisibility() {
	for {
		active := s.activeOptions()
		changed := false
		for _, g := range s.product.Groups {
			if g.DependsOnOptionID == "" {
				continue
			}
			hide := !active[g.DependsOnOptionID]
			if hide && countTrue(s.selected[g.ID]) > 0 {
				s.selected[g.ID] = make(map[string]bool)
				changed = true
			}
			if s.hidden[g.ID] != hide {
				s.hidden[g.ID] = hide
				changed = true
			}
		}
		if !changed {
			return
		}
	}
}

func (s *Session) activeOptions() map[string]bool {
	active := make(map[string]bool)
	for _, g := range s.product.Groups {
		if s.hidden[g.ID] {
			continue
		}
		for id, on := range s.selected[g.ID] {
			if on {
				active[id] = true
			}
		}
	}
	for _, c := range s.product.Addons() {
		if s.addons[customizationKey(c)] {
			active[c.ID] = true
		}
	}
	return active
}

func (s *Session) group(id string) (domain.CustomizationGroup, bool) {
	for _, g := range s.product.Groups {
		if g.ID == id {
			return g, true
		}
	}
	return domain.CustomizationGroup{}, false
}

func (s *Session) findCustomization(list []domain.Customization, id string) (domain.Customization, bool) {
	for _, c := range list {
		if customizationKey(c) == id {
			return c, true
		}
	}
	return domain.Customization{}, false
}

func customizationKey(c domain.Customization) string {
	if c.ID != "" {
		return c.ID
	}
	return c.Name
}

func hasOption(g domain.CustomizationGroup, id string) bool {
	for _, o := range g.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

func countTrue(m map[string]bool) int {
	n := 0
	for _, v := range m {
		if v {
			n++
		}
	}
	return n
}

func sortedCopy(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := append([]string(nil), in...)
	slices.Sort(out)
	return out
}
