package extract

import (
	"regexp"
	"strconv"
	"strings"

	"partschat/internal/memory"
	"partschat/pkg"
)

// Result is the extractor output for one normalized message.
type Result struct {
	Intent   pkg.Intent
	Entities pkg.Entities
}

// CarData is the vehicle information recognized in a message.
type CarData struct {
	Brand        string
	Model        string
	Year         int
	Displacement string
}

var (
	brandRe = regexp.MustCompile(`\b(nissan|toyota|honda|ford|chevrolet|volkswagen|hyundai|kia|mazda|subaru|bmw|mercedes|audi)\b`)
	yearRe  = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	vinRe   = regexp.MustCompile(`(?i)\b[a-hj-npr-z0-9]{17}\b`)

	modelRes = []*regexp.Regexp{
		regexp.MustCompile(`\b(corolla|camry|civic|accord|focus|fusion|jetta|golf|sentra|altima)\b`),
		regexp.MustCompile(`\b(x5|x3|e90|e46|w203|c200|c300|a3|a4|q3|q5)\b`),
	}

	displacementRe = regexp.MustCompile(`\b(\d+\.?\d*)\s*(l|litros?|cc|cilindros?)\b`)

	searchPatternRes = []*regexp.Regexp{
		regexp.MustCompile(`\b(buscar|encontrar|necesito|quiero|busco|tengo|requiero)\b`),
		regexp.MustCompile(`\b(pieza|repuesto|refacción|parte|componente)\b`),
		regexp.MustCompile(`\b(para mi|de mi|del|de la)\b`),
	}
)

// partVocab lists the part terms recognized in user messages.
var partVocab = []string{
	"balatas", "frenos", "filtro", "aceite", "bujías", "amortiguadores",
	"suspensión", "dirección", "transmisión", "motor", "batería",
	"correa", "bomba", "radiador", "silenciador", "luces", "llantas",
	"neumáticos", "pastillas", "zapatas", "embrague", "diferencial",
}

// Extract classifies a normalized message and pulls out its entities.
// The memory snapshot supplies conversational history for the followup
// override; it may be nil.
func Extract(message string, mem *memory.ConversationMemory) Result {
	entities := pkg.Entities{}

	if m := brandRe.FindString(message); m != "" {
		entities["brand"] = m
	}
	if m := yearRe.FindString(message); m != "" {
		year, _ := strconv.Atoi(m)
		entities["year"] = year
	}
	vin := vinRe.FindString(message)
	if vin != "" {
		entities["vin"] = vin
	}

	car := ExtractCarData(message)
	if car.Brand != "" {
		entities["car_marca"] = car.Brand
	}
	if car.Model != "" {
		entities["car_modelo"] = car.Model
	}
	if car.Year != 0 {
		entities["car_año"] = car.Year
	}
	if car.Displacement != "" {
		entities["car_litraje"] = car.Displacement
	}

	parts := ExtractPartTerms(message)
	if len(parts) > 0 {
		entities["product_terms"] = parts
	}

	intent := classify(message, classifySignals{
		hasParts:   len(parts) > 0,
		hasCarData: car.Brand != "" || car.Model != "" || car.Year != 0,
		hasPattern: hasSearchPattern(message),
		hasVIN:     vin != "",
	})

	intent = applyHistoryOverride(intent, mem)

	return Result{Intent: intent, Entities: entities}
}

// ExtractCarData pulls vehicle brand, model, year and displacement out
// of a normalized message.
func ExtractCarData(message string) CarData {
	car := CarData{}

	if m := brandRe.FindString(message); m != "" {
		car.Brand = m
	}
	if m := yearRe.FindString(message); m != "" {
		car.Year, _ = strconv.Atoi(m)
	}
	for _, re := range modelRes {
		if m := re.FindString(message); m != "" {
			car.Model = m
			break
		}
	}
	if m := displacementRe.FindString(message); m != "" {
		car.Displacement = m
	}

	return car
}

// ExtractPartTerms returns every known part term present in the message,
// in vocabulary order.
func ExtractPartTerms(message string) []string {
	terms := []string{}
	for _, term := range partVocab {
		if strings.Contains(message, term) {
			terms = append(terms, term)
		}
	}
	return terms
}

func hasSearchPattern(message string) bool {
	for _, re := range searchPatternRes {
		if re.MatchString(message) {
			return true
		}
	}
	return false
}

type classifySignals struct {
	hasParts   bool
	hasCarData bool
	hasPattern bool
	hasVIN     bool
}

func containsAny(message string, terms ...string) bool {
	for _, term := range terms {
		if strings.Contains(message, term) {
			return true
		}
	}
	return false
}

// classify walks the intent rules in order; the first match wins.
func classify(message string, sig classifySignals) pkg.Intent {
	rules := []struct {
		intent pkg.Intent
		match  func() bool
	}{
		{pkg.IntentSearchProduct, func() bool { return sig.hasParts && sig.hasCarData && sig.hasPattern }},
		{pkg.IntentRequestCarInfo, func() bool { return sig.hasParts && !sig.hasCarData }},
		{pkg.IntentRequestProductInfo, func() bool { return !sig.hasParts && sig.hasCarData }},
		{pkg.IntentPriceInquiry, func() bool { return containsAny(message, "precio", "costo", "cuánto") }},
		{pkg.IntentPurchase, func() bool { return containsAny(message, "comprar", "ticket", "compra") }},
		{pkg.IntentInventoryCheck, func() bool { return containsAny(message, "inventario", "stock", "tienes") }},
		{pkg.IntentVinLookup, func() bool { return strings.Contains(message, "vin") || sig.hasVIN }},
		{pkg.IntentSupportRequest, func() bool { return containsAny(message, "ayuda", "soporte", "asesor") }},
		{pkg.IntentShippingInquiry, func() bool { return containsAny(message, "envío", "entrega", "domicilio") }},
	}

	for _, rule := range rules {
		if rule.match() {
			return rule.intent
		}
	}
	return pkg.IntentGeneralInquiry
}

// applyHistoryOverride upgrades general_inquiry to a followup intent when
// the previous query was about inventory or products. Specific intents
// are never downgraded.
func applyHistoryOverride(intent pkg.Intent, mem *memory.ConversationMemory) pkg.Intent {
	if intent != pkg.IntentGeneralInquiry || mem == nil {
		return intent
	}
	queries := mem.ShortTerm.RecentQueries
	if len(queries) == 0 {
		return intent
	}

	last := queries[len(queries)-1]
	if strings.Contains(last, "inventario") {
		return pkg.IntentInventoryFollowup
	}
	if strings.Contains(last, "producto") || strings.Contains(last, "buscar") {
		return pkg.IntentProductSearchFollowup
	}
	return intent
}
