package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partschat/internal/memory"
	"partschat/pkg"
)

func TestNormalize(t *testing.T) {
	lex := Lexicon{"chapas": "cerraduras"}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases and trims", "  Necesito BALATAS  ", "necesito balatas"},
		{"substitutes colloquial terms", "busco chapas para mi auto", "busco cerraduras para mi auto"},
		{"strips punctuation keeping accents", "¿cuánto cuesta el envío?", "cuánto cuesta el envío"},
		{"collapses whitespace", "balatas    para   toyota", "balatas para toyota"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in, lex))
		})
	}
}

func TestExtractIntentClassification(t *testing.T) {
	tests := []struct {
		message string
		want    pkg.Intent
	}{
		{"necesito balatas para mi toyota corolla 2018", pkg.IntentSearchProduct},
		{"necesito balatas", pkg.IntentRequestCarInfo},
		{"tengo un toyota corolla 2018", pkg.IntentRequestProductInfo},
		{"hola cómo estás", pkg.IntentGeneralInquiry},
		{"qué precio tiene", pkg.IntentPriceInquiry},
		{"quisiera hacer una compra", pkg.IntentPurchase},
		{"qué hay en el inventario", pkg.IntentInventoryCheck},
		{"puedo darte mi vin", pkg.IntentVinLookup},
		{"ocupo soporte por favor", pkg.IntentSupportRequest},
		{"hacen entrega a domicilio", pkg.IntentShippingInquiry},
	}

	for _, tt := range tests {
		t.Run(tt.message, func(t *testing.T) {
			res := Extract(tt.message, nil)
			assert.Equal(t, tt.want, res.Intent)
		})
	}
}

func TestExtractEntities(t *testing.T) {
	res := Extract("necesito balatas y frenos para mi toyota corolla 2018 de 1.8 litros", nil)

	assert.Equal(t, "toyota", res.Entities["brand"])
	assert.Equal(t, 2018, res.Entities["year"])
	assert.Equal(t, "toyota", res.Entities["car_marca"])
	assert.Equal(t, "corolla", res.Entities["car_modelo"])
	assert.Equal(t, 2018, res.Entities["car_año"])
	assert.Equal(t, "1.8 litros", res.Entities["car_litraje"])

	terms, ok := res.Entities["product_terms"].([]string)
	require.True(t, ok)
	assert.Equal(t, []string{"balatas", "frenos"}, terms)
}

func TestExtractVIN(t *testing.T) {
	res := Extract("busca mi auto con 1hgbh41jxmn109186", nil)

	assert.Equal(t, "1hgbh41jxmn109186", res.Entities["vin"])
	assert.Equal(t, pkg.IntentVinLookup, res.Intent)
}

func TestHistoryOverride(t *testing.T) {
	mem := &memory.ConversationMemory{}
	mem.ShortTerm.RecentQueries = []string{"consulta el inventario de balatas"}

	res := Extract("y qué más hay", mem)
	assert.Equal(t, pkg.IntentInventoryFollowup, res.Intent)

	mem.ShortTerm.RecentQueries = []string{"quiero buscar otro producto"}
	res = Extract("y qué más hay", mem)
	assert.Equal(t, pkg.IntentProductSearchFollowup, res.Intent)
}

func TestHistoryOverrideNeverDowngradesSpecificIntent(t *testing.T) {
	mem := &memory.ConversationMemory{}
	mem.ShortTerm.RecentQueries = []string{"consulta el inventario de balatas"}

	res := Extract("cuánto cuesta", mem)
	assert.Equal(t, pkg.IntentPriceInquiry, res.Intent)
}

func TestSearchProductNeedsAllThreeSignals(t *testing.T) {
	// Part terms plus car data but no search phrasing stays out of
	// search_product.
	res := Extract("balatas toyota corolla", nil)
	assert.NotEqual(t, pkg.IntentRequestCarInfo, res.Intent)
	assert.NotEqual(t, pkg.IntentSearchProduct, res.Intent)
}
