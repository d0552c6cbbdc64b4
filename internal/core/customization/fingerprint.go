package customization

import (
	"regexp"
	"slices"
	"strings"

	"github.com/rl1809/catalog-cart/internal/core/domain"
)

var (
	whitespace = regexp.MustCompile(`\s+`)
	// separators the fingerprint joins names with are escaped inside names,
	// so ["a_b"] and ["a", "b"] never collide
	nameEscaper = strings.NewReplacer("%", "%25", "_", "%5F", "-", "%2D")
)

// Fingerprint derives the composite line item id from a product id and its
// chosen configuration. Inputs are sorted first, so selection order never
// changes the result.
func Fingerprint(baseID, variantID string, exclusions, addons []string, groups []domain.GroupSelection) string {
	var parts []string
	if variantID != "" {
		parts = append(parts, "var_"+variantID)
	}
	if len(exclusions) > 0 {
		parts = append(parts, "exc_"+joinSorted(exclusions, "_"))
	}
	if len(addons) > 0 {
		parts = append(parts, "add_"+joinSorted(addons, "_"))
	}
	if len(groups) > 0 {
		pairs := make([]string, 0, len(groups))
		for _, g := range groups {
			names := make([]string, 0, len(g.Options))
			for _, o := range g.Options {
				names = append(names, o.Name)
			}
			pairs = append(pairs, slug(g.GroupName)+"-"+joinSorted(names, "-"))
		}
		slices.Sort(pairs)
		parts = append(parts, "grp_"+strings.Join(pairs, "_"))
	}
	if len(parts) == 0 {
		return baseID
	}
	return baseID + "_" + strings.Join(parts, "_")
}

func joinSorted(names []string, sep string) string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, slug(n))
	}
	slices.Sort(out)
	return strings.Join(out, sep)
}

func slug(s string) string {
	s = nameEscaper.Replace(strings.ToLower(strings.TrimSpace(s)))
	return whitespace.ReplaceAllString(s, "-")
}
