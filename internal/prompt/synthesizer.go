package prompt

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"partschat/internal/memory"
	"partschat/pkg"
)

// BusinessInfo is retail-side context injected into directives.
type BusinessInfo struct {
	PointOfSaleID      string
	SpecialOffers      []string
	InventoryUpdatedAt string
}

// Context carries everything a directive render needs for one turn.
type Context struct {
	Memory         *memory.ConversationMemory
	Message        string
	Intent         pkg.Intent
	Entities       pkg.Entities
	AllowedActions []string
	Business       BusinessInfo
}

// Synthesizer renders system directives from registered templates and
// per-turn context. The clock drives time-of-day and first-interaction
// heuristics.
type Synthesizer struct {
	templates map[string]*Template
	now       memory.Clock
}

// NewSynthesizer builds a synthesizer preloaded with the built-in
// templates (main, inventory_search, ticket_generation, error_handling).
func NewSynthesizer(now memory.Clock) *Synthesizer {
	if now == nil {
		now = time.Now
	}
	s := &Synthesizer{
		templates: make(map[string]*Template),
		now:       now,
	}
	for _, t := range builtinTemplates() {
		s.Register(t)
	}
	return s
}

// Register adds or replaces a directive template.
func (s *Synthesizer) Register(t *Template) {
	s.templates[t.ID] = t
}

// Templates returns registered template ids, sorted.
func (s *Synthesizer) Templates() []string {
	ids := make([]string, 0, len(s.templates))
	for id := range s.templates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Render produces the directive for a template id. Unknown ids fall back
// to a minimal directive rather than failing the turn.
func (s *Synthesizer) Render(templateID string, ctx Context) string {
	return s.render(templateID, ctx, false)
}

// RenderContinuation renders the main directive with the continuity
// branch forced, regardless of the first-interaction-of-day heuristic.
func (s *Synthesizer) RenderContinuation(ctx Context) string {
	return s.render("main", ctx, true)
}

func (s *Synthesizer) render(templateID string, ctx Context, forceContinuity bool) string {
	t, ok := s.templates[templateID]
	if !ok {
		return s.fallback(ctx)
	}

	var b strings.Builder
	b.WriteString(t.Base)
	b.WriteString(s.contextualBlock(ctx))
	b.WriteString(s.styleBlock(t, ctx))
	b.WriteString(s.scenarioBlock(t, ctx))
	b.WriteString(s.conversationBlock(ctx))
	b.WriteString(s.actionBlock(ctx))
	b.WriteString(s.businessBlock(ctx))

	if forceContinuity {
		b.WriteString(s.continuityBlock(ctx))
	}

	return b.String()
}

// contextualBlock covers the per-turn situational modifiers: day
// rollover, known/new customer, VIP, behavior patterns, time of day.
func (s *Synthesizer) contextualBlock(ctx Context) string {
	mem := ctx.Memory
	profile := mem.LongTerm.Profile
	length := mem.Meta.ConversationLength
	now := s.now()

	var b strings.Builder
	b.WriteString("\n\nCONTEXTO ESPECIAL:\n")

	last := profile.Interactions.LastInteraction
	firstOfDay := last.IsZero() ||
		last.Year() != now.Year() || last.YearDay() != now.YearDay()

	if firstOfDay && length == 1 {
		b.WriteString("- PRIMERA INTERACCIÓN DEL DÍA: saluda apropiadamente\n")
	} else if length > 1 {
		b.WriteString("- CONVERSACIÓN EN CURSO: mantén continuidad sin repetir saludos\n")
	}

	if profile.Interactions.TotalMessages > 5 {
		b.WriteString("- CLIENTE CONOCIDO: personaliza la experiencia\n")
	} else if length == 1 {
		b.WriteString("- CLIENTE NUEVO: explica el proceso y sé acogedor\n")
	}

	if profile.Business.IsVIPCustomer {
		b.WriteString("- CLIENTE VIP: ofrece atención preferencial\n")
	}

	for _, pattern := range mem.LongTerm.BehaviorPatterns {
		switch pattern {
		case "price_conscious":
			b.WriteString("- PRECIO SENSIBLE: enfócate en valor y opciones económicas\n")
		case "urgent_need":
			b.WriteString("- URGENTE: prioriza rapidez y disponibilidad inmediata\n")
		case "brand_focused":
			b.WriteString("- ENFOQUE EN MARCA: respeta las preferencias de marca\n")
		case "compatibility_focused":
			b.WriteString("- ENFOQUE EN COMPATIBILIDAD: verifica compatibilidad a detalle\n")
		}
	}

	b.WriteString(fmt.Sprintf("- HORA: %s\n", timeOfDay(now)))

	if length > 1 {
		b.WriteString("\nINSTRUCCIONES DE CONTINUIDAD:\n")
		b.WriteString("- Usa referencias a la conversación anterior\n")
		b.WriteString("- NO repitas información ya proporcionada\n")
	}

	return b.String()
}

func (s *Synthesizer) styleBlock(t *Template, ctx Context) string {
	style := ctx.Memory.LongTerm.Profile.Preferences.CommunicationStyle
	variant, ok := t.StyleVariants[style]
	if !ok {
		variant = t.StyleVariants[memory.StyleCasual]
	}
	return fmt.Sprintf("\n\nESTILO DE COMUNICACIÓN:\n%s\n", variant)
}

func (s *Synthesizer) scenarioBlock(t *Template, ctx Context) string {
	scenario := scenarioForIntent(ctx.Intent)
	var b strings.Builder
	b.WriteString(fmt.Sprintf("\n\nESCENARIO ACTUAL:\n%s\n", t.ScenarioVariants[scenario]))

	if ctx.Memory.Meta.ConversationLength > 1 {
		b.WriteString("\nINSTRUCCIONES DE TRANSICIÓN:\n")
		switch scenario {
		case ScenarioSearching:
			b.WriteString("- Si cambias de búsqueda, usa \"Ahora busquemos...\"\n")
			b.WriteString("- Si retomas una búsqueda, usa \"Volviendo a lo que buscabas...\"\n")
		case ScenarioComparing:
			b.WriteString("- Usa \"Comparando...\" y menciona los criterios con claridad\n")
		case ScenarioPurchasing:
			b.WriteString("- Usa \"Procedamos con la compra...\" y mantén los productos seleccionados\n")
		case ScenarioSupport:
			b.WriteString("- Usa \"Te ayudo con...\" y mantén el enfoque en el problema\n")
		default:
			b.WriteString("- Haz transiciones naturales entre temas\n")
		}
	}

	return b.String()
}

// scenarioForIntent selects by keyword containment on the intent name;
// intents without a keyword (price_inquiry, inventory_check, vin_lookup,
// inventory_followup, ...) stay on the initial scenario.
func scenarioForIntent(intent pkg.Intent) Scenario {
	name := string(intent)
	switch {
	case strings.Contains(name, "search") || strings.Contains(name, "find"):
		return ScenarioSearching
	case strings.Contains(name, "compare"):
		return ScenarioComparing
	case strings.Contains(name, "buy") || strings.Contains(name, "purchase"):
		return ScenarioPurchasing
	case strings.Contains(name, "support") || strings.Contains(name, "help"):
		return ScenarioSupport
	default:
		return ScenarioInitial
	}
}

func (s *Synthesizer) conversationBlock(ctx Context) string {
	mem := ctx.Memory
	profile := mem.LongTerm.Profile
	queries := mem.ShortTerm.RecentQueries
	length := mem.Meta.ConversationLength

	var b strings.Builder
	b.WriteString("\n\nCONTEXTO DE CONVERSACIÓN:\n")

	if length == 1 {
		b.WriteString("- PRIMERA INTERACCIÓN: saluda contextualmente\n")
	} else if length > 1 {
		b.WriteString("- CONVERSACIÓN EN CURSO: mantén continuidad y usa referencias\n")
	}

	if vehicle := profile.Preferences.Vehicle; vehicle != nil {
		b.WriteString(fmt.Sprintf("- VEHÍCULO CONOCIDO: %s %s %d\n", vehicle.Brand, vehicle.Model, vehicle.Year))
	}
	if brands := profile.Preferences.PreferredBrands; len(brands) > 0 {
		b.WriteString(fmt.Sprintf("- MARCAS PREFERIDAS: %s\n", strings.Join(brands, ", ")))
	}

	if len(queries) > 1 {
		b.WriteString(fmt.Sprintf("- CONSULTA ANTERIOR: %q\n", queries[len(queries)-2]))
	}

	if len(ctx.Entities) > 0 {
		b.WriteString("- ENTIDADES MENCIONADAS:\n")
		keys := make([]string, 0, len(ctx.Entities))
		for k := range ctx.Entities {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(fmt.Sprintf("  * %s: %v\n", k, ctx.Entities[k]))
		}
	}

	if topic := mem.ShortTerm.CurrentTopic; topic != "" {
		b.WriteString(fmt.Sprintf("- TÓPICO ACTUAL: %s\n", topic))
	}
	if patterns := mem.LongTerm.BehaviorPatterns; len(patterns) > 0 {
		b.WriteString(fmt.Sprintf("- PATRONES DETECTADOS: %s\n", strings.Join(patterns, ", ")))
	}

	if length > 1 {
		b.WriteString("\n- NO repitas saludos ni información ya proporcionada\n")
	}

	return b.String()
}

func (s *Synthesizer) actionBlock(ctx Context) string {
	var b strings.Builder
	b.WriteString("\n\nFUNCIONES DISPONIBLES:\n")
	for _, name := range ctx.AllowedActions {
		desc, ok := actionCatalog[name]
		if !ok {
			continue
		}
		b.WriteString(fmt.Sprintf("- %s: %s\n", name, desc))
	}
	b.WriteString("\nUsa estas funciones cuando sea apropiado para ayudar al cliente.\n")
	return b.String()
}

func (s *Synthesizer) businessBlock(ctx Context) string {
	var b strings.Builder
	b.WriteString("\n\nCONTEXTO DEL NEGOCIO:\n")
	b.WriteString(fmt.Sprintf("- Sucursal: %s\n", ctx.Business.PointOfSaleID))
	b.WriteString(fmt.Sprintf("- Hora del día: %s\n", timeOfDay(s.now())))
	if len(ctx.Business.SpecialOffers) > 0 {
		b.WriteString(fmt.Sprintf("- Ofertas especiales: %s\n", strings.Join(ctx.Business.SpecialOffers, ", ")))
	}
	if ctx.Business.InventoryUpdatedAt != "" {
		b.WriteString(fmt.Sprintf("- Inventario actualizado: %s\n", ctx.Business.InventoryUpdatedAt))
	}
	return b.String()
}

// continuityBlock is the forced continuation appendix. It repeats the
// no-repeat rules with concrete references from memory.
func (s *Synthesizer) continuityBlock(ctx Context) string {
	mem := ctx.Memory
	profile := mem.LongTerm.Profile

	var b strings.Builder
	b.WriteString("\n\nINSTRUCCIONES ESPECÍFICAS DE CONTINUIDAD:\n")
	b.WriteString("- NO saludes nuevamente\n")
	b.WriteString("- Usa referencias a la conversación anterior\n")

	if queries := mem.ShortTerm.RecentQueries; len(queries) > 1 {
		b.WriteString(fmt.Sprintf("- Última consulta: %q\n", queries[len(queries)-2]))
	}
	if topic := mem.ShortTerm.CurrentTopic; topic != "" {
		b.WriteString(fmt.Sprintf("- Tópico actual: %s\n", topic))
	}
	if vehicle := profile.Preferences.Vehicle; vehicle != nil {
		b.WriteString(fmt.Sprintf("- Vehículo mencionado: %s %s %d\n", vehicle.Brand, vehicle.Model, vehicle.Year))
	}
	if brands := profile.Preferences.PreferredBrands; len(brands) > 0 {
		b.WriteString(fmt.Sprintf("- Marcas preferidas: %s\n", strings.Join(brands, ", ")))
	}

	b.WriteString("\nFRASES DE CONTINUIDAD SUGERIDAS:\n")
	b.WriteString("- \"Continuemos con lo que estábamos viendo...\"\n")
	b.WriteString("- \"Como mencionabas antes...\"\n")
	b.WriteString("- \"Retomando lo que buscabas...\"\n")

	return b.String()
}

func (s *Synthesizer) fallback(ctx Context) string {
	return fmt.Sprintf(`Eres Birlo, el asistente virtual de refacciones automotrices de RefaNorte.

Ayuda al cliente de manera profesional y amigable.
Usa las funciones disponibles para buscar productos y procesar compras.
Pregunta por detalles específicos cuando haga falta.

Cliente: %s

Responde de manera útil y proactiva.`, ctx.Message)
}

func timeOfDay(now time.Time) string {
	hour := now.Hour()
	switch {
	case hour >= 6 && hour < 12:
		return "mañana"
	case hour >= 12 && hour < 18:
		return "tarde"
	case hour >= 18 && hour < 22:
		return "noche"
	default:
		return "madrugada"
	}
}
