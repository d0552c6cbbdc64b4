package customization

import (
	"fmt"

	"github.com/rl1809/catalog-cart/internal/core/domain"
)

// GroupStatus is the live state of one customization group.
type GroupStatus struct {
	ID       string
	Name     string
	Label    string
	Required bool
	Visible  bool
	Selected []string
	Disabled []string
	Valid    bool
	Status   string
}

// GroupError describes the first visible required group whose rule is unmet.
type GroupError struct {
	GroupID string
	Group   string
	Rule    domain.SelectionRule
}

func (e *GroupError) Error() string {
	switch e.Rule.Kind {
	case domain.SelectionExactly:
		return fmt.Sprintf("%s: Elegí exactamente %d", e.Group, e.Rule.N)
	case domain.SelectionAtLeast:
		return fmt.Sprintf("%s: Elegí al menos %d", e.Group, e.Rule.N)
	default:
		return fmt.Sprintf("%s: Elegí al menos 1", e.Group)
	}
}

// RuleLabel is the short hint shown next to a group name.
func RuleLabel(r domain.SelectionRule) string {
	switch r.Kind {
	case domain.SelectionExactly:
		return fmt.Sprintf("Elegir %d", r.N)
	case domain.SelectionUpTo:
		if r.N > 0 {
			return fmt.Sprintf("Hasta %d", r.N)
		}
		return "Opcional"
	case domain.SelectionAtLeast:
		return fmt.Sprintf("Mínimo %d", r.N)
	}
	return ""
}

// limit is the selection cap beyond which unchecked options are disabled.
// Zero means uncapped.
func limit(r domain.SelectionRule) int {
	switch r.Kind {
	case domain.SelectionExactly:
		return r.N
	case domain.SelectionUpTo:
		return r.N
	}
	return 0
}

func capped(r domain.SelectionRule) bool {
	return r.Kind == domain.SelectionExactly || (r.Kind == domain.SelectionUpTo && r.N > 0)
}

func satisfied(g domain.CustomizationGroup, count int) bool {
	switch g.Rule.Kind {
	case domain.SelectionExactly:
		return count == g.Rule.N
	case domain.SelectionUpTo:
		if g.Rule.N > 0 && count > g.Rule.N {
			return false
		}
		return !g.Required || count > 0
	case domain.SelectionAtLeast:
		return count >= g.Rule.N
	}
	return true
}

func statusText(r domain.SelectionRule, count int) string {
	switch r.Kind {
	case domain.SelectionExactly:
		return fmt.Sprintf("%d/%d seleccionados", count, r.N)
	case domain.SelectionUpTo:
		if r.N > 0 {
			return fmt.Sprintf("%d/%d seleccionados", count, r.N)
		}
		return fmt.Sprintf("%d seleccionados", count)
	case domain.SelectionAtLeast:
		return fmt.Sprintf("%d/%d+ seleccionados", count, r.N)
	}
	return ""
}
