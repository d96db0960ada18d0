package prompt

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"partschat/internal/memory"
	"partschat/pkg"
)

func frozenClock(hour int) memory.Clock {
	return func() time.Time {
		return time.Date(2025, 3, 10, hour, 30, 0, 0, time.UTC)
	}
}

func testContext(length int) Context {
	mem := &memory.ConversationMemory{
		ConversationID: "conv-1",
		LongTerm: memory.LongTermMemory{
			Profile: &memory.UserProfile{
				UserID: "user-1",
				Preferences: memory.Preferences{
					CommunicationStyle: memory.StyleCasual,
				},
			},
		},
	}
	mem.Meta.ConversationLength = length
	return Context{
		Memory:         mem,
		Message:        "necesito balatas",
		Intent:         pkg.IntentSearchProduct,
		Entities:       pkg.Entities{},
		AllowedActions: []string{"buscarProductoPorTermino", "solicitarAsesor"},
		Business:       BusinessInfo{PointOfSaleID: "pos-1"},
	}
}

func TestRenderBlockOrder(t *testing.T) {
	s := NewSynthesizer(frozenClock(10))
	out := s.Render("main", testContext(1))

	markers := []string{
		"Eres Birlo",
		"CONTEXTO ESPECIAL:",
		"ESTILO DE COMUNICACIÓN:",
		"ESCENARIO ACTUAL:",
		"CONTEXTO DE CONVERSACIÓN:",
		"FUNCIONES DISPONIBLES:",
		"CONTEXTO DEL NEGOCIO:",
	}
	last := -1
	for _, marker := range markers {
		idx := strings.Index(out, marker)
		assert.Greater(t, idx, last, "marker %q out of order", marker)
		last = idx
	}
}

func TestRenderFirstInteractionOfDay(t *testing.T) {
	s := NewSynthesizer(frozenClock(10))
	out := s.Render("main", testContext(1))

	assert.Contains(t, out, "PRIMERA INTERACCIÓN DEL DÍA")
	assert.NotContains(t, out, "CONVERSACIÓN EN CURSO")
}

func TestRenderOngoingConversationSkipsGreeting(t *testing.T) {
	s := NewSynthesizer(frozenClock(10))
	ctx := testContext(3)
	ctx.Memory.ShortTerm.RecentQueries = []string{"balatas toyota", "precio de balatas"}

	out := s.Render("main", ctx)
	assert.Contains(t, out, "CONVERSACIÓN EN CURSO")
	assert.NotContains(t, out, "PRIMERA INTERACCIÓN DEL DÍA")
	// The callout references the second most recent query.
	assert.Contains(t, out, `CONSULTA ANTERIOR: "balatas toyota"`)
}

func TestRenderTimeOfDayBuckets(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{8, "mañana"},
		{14, "tarde"},
		{20, "noche"},
		{23, "madrugada"},
		{3, "madrugada"},
	}
	for _, tt := range tests {
		s := NewSynthesizer(frozenClock(tt.hour))
		out := s.Render("main", testContext(1))
		assert.Contains(t, out, "- HORA: "+tt.want)
	}
}

func TestRenderStyleVariant(t *testing.T) {
	s := NewSynthesizer(frozenClock(10))
	ctx := testContext(1)
	ctx.Memory.LongTerm.Profile.Preferences.CommunicationStyle = memory.StyleFormal

	out := s.Render("main", ctx)
	assert.Contains(t, out, "tratamiento formal")
	assert.NotContains(t, out, "tuteo")
}

func TestRenderActionCatalogOmitsUnknownNames(t *testing.T) {
	s := NewSynthesizer(frozenClock(10))
	ctx := testContext(1)
	ctx.AllowedActions = []string{"buscarProductoPorTermino", "accionInventada"}

	out := s.Render("main", ctx)
	assert.Contains(t, out, "buscarProductoPorTermino:")
	assert.NotContains(t, out, "accionInventada")
}

func TestRenderUnknownTemplateFallsBack(t *testing.T) {
	s := NewSynthesizer(frozenClock(10))
	out := s.Render("no_such_template", testContext(1))

	assert.Contains(t, out, "Eres Birlo")
	assert.Contains(t, out, "necesito balatas")
	assert.NotContains(t, out, "CONTEXTO DEL NEGOCIO")
}

func TestRenderContinuationForcesContinuityEvenOnFirstTurn(t *testing.T) {
	s := NewSynthesizer(frozenClock(10))
	ctx := testContext(1)

	plain := s.Render("main", ctx)
	cont := s.RenderContinuation(ctx)

	assert.NotContains(t, plain, "INSTRUCCIONES ESPECÍFICAS DE CONTINUIDAD")
	assert.Contains(t, cont, "INSTRUCCIONES ESPECÍFICAS DE CONTINUIDAD")
	assert.Contains(t, cont, "NO saludes nuevamente")
}

func TestScenarioSelectionByIntentKeyword(t *testing.T) {
	tests := []struct {
		intent pkg.Intent
		want   Scenario
	}{
		{pkg.IntentSearchProduct, ScenarioSearching},
		{pkg.IntentProductSearchFollowup, ScenarioSearching},
		{pkg.IntentPurchase, ScenarioPurchasing},
		{pkg.IntentSupportRequest, ScenarioSupport},
		{pkg.IntentPriceInquiry, ScenarioInitial},
		{pkg.IntentInventoryCheck, ScenarioInitial},
		{pkg.IntentVinLookup, ScenarioInitial},
		{pkg.IntentInventoryFollowup, ScenarioInitial},
		{pkg.IntentGeneralInquiry, ScenarioInitial},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, scenarioForIntent(tt.intent), "intent %s", tt.intent)
	}

	// Keyword-less intents render the initial scenario variant.
	s := NewSynthesizer(frozenClock(10))
	ctx := testContext(1)
	ctx.Intent = pkg.IntentPriceInquiry
	out := s.Render("main", ctx)
	assert.Contains(t, out, "Saluda contextualmente y pregunta cómo puedes ayudar.")
	assert.NotContains(t, out, "Ayuda a comparar opciones")
}

func TestRenderVIPAndPatterns(t *testing.T) {
	s := NewSynthesizer(frozenClock(10))
	ctx := testContext(2)
	ctx.Memory.LongTerm.Profile.Business.IsVIPCustomer = true
	ctx.Memory.LongTerm.BehaviorPatterns = []string{"price_conscious", "urgent_need"}

	out := s.Render("main", ctx)
	assert.Contains(t, out, "CLIENTE VIP")
	assert.Contains(t, out, "PRECIO SENSIBLE")
	assert.Contains(t, out, "URGENTE")
}

func TestRegisterCustomTemplate(t *testing.T) {
	s := NewSynthesizer(frozenClock(10))
	s.Register(&Template{
		ID:   "warranty",
		Base: "Atiendes dudas de garantía.",
		StyleVariants: map[memory.CommunicationStyle]string{
			memory.StyleCasual: "Tono amigable.",
		},
		ScenarioVariants: map[Scenario]string{
			ScenarioInitial: "Pregunta por el producto.",
		},
	})

	assert.Contains(t, s.Templates(), "warranty")
	out := s.Render("warranty", testContext(1))
	assert.Contains(t, out, "Atiendes dudas de garantía.")
}
