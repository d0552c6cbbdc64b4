package customization

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rl1809/catalog-cart/internal/core/domain"
)

func TestFingerprint_PlainProduct(t *testing.T) {
	assert.Equal(t, "42", Fingerprint("42", "", nil, nil, nil))
}

func TestFingerprint_OrderIndependent(t *testing.T) {
	g1 := []domain.GroupSelection{
		{GroupName: "Salsas", Options: []domain.PricedChoice{{Name: "Pesto"}, {Name: "Ajo"}}},
		{GroupName: "Masa", Options: []domain.PricedChoice{{Name: "Fina"}}},
	}
	g2 := []domain.GroupSelection{
		{GroupName: "Masa", Options: []domain.PricedChoice{{Name: "Fina"}}},
		{GroupName: "Salsas", Options: []domain.PricedChoice{{Name: "Ajo"}, {Name: "Pesto"}}},
	}
	a := Fingerprint("1", "v", []string{"Tomate", "Cebolla"}, []string{"Queso", "Bacon"}, g1)
	b := Fingerprint("1", "v", []string{"Cebolla", "Tomate"}, []string{"Bacon", "Queso"}, g2)
	assert.Equal(t, a, b)
	assert.Equal(t, "1_var_v_exc_cebolla_tomate_add_bacon_queso_grp_masa-fina_salsas-ajo-pesto", a)
}

func TestFingerprint_DiffersBySelection(t *testing.T) {
	a := Fingerprint("1", "", nil, nil, []domain.GroupSelection{{GroupName: "Masa", Options: []domain.PricedChoice{{Name: "Fina"}}}})
	b := Fingerprint("1", "", nil, nil, []domain.GroupSelection{{GroupName: "Masa", Options: []domain.PricedChoice{{Name: "Gruesa"}}}})
	assert.NotEqual(t, a, b)
}

func TestFingerprint_SlugsWhitespace(t *testing.T) {
	assert.Equal(t, "1_exc_sin-cebolla-morada", Fingerprint("1", "", []string{"Sin  Cebolla Morada"}, nil, nil))
}

func TestFingerprint_SeparatorsInNamesDoNotCollide(t *testing.T) {
	joined := Fingerprint("1", "", []string{"a_b"}, nil, nil)
	split := Fingerprint("1", "", []string{"a", "b"}, nil, nil)
	assert.NotEqual(t, joined, split)
	assert.Equal(t, "1_exc_a%5Fb", joined)

	hyphen := Fingerprint("1", "", nil, nil, []domain.GroupSelection{{GroupName: "Masa", Options: []domain.PricedChoice{{Name: "media-masa"}}}})
	spaced := Fingerprint("1", "", nil, nil, []domain.GroupSelection{{GroupName: "Masa", Options: []domain.PricedChoice{{Name: "media masa"}}}})
	assert.NotEqual(t, hyphen, spaced)
	assert.Equal(t, "1_grp_masa-media%2Dmasa", hyphen)
}
