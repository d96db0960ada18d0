package engine

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"partschat/internal/services"
	"partschat/pkg"
)

var (
	fastBrandRe     = regexp.MustCompile(`(?:para|de|mi)\s+(toyota|honda|nissan|ford|chevrolet|volkswagen|mazda|hyundai)`)
	fastBrandPairRe = regexp.MustCompile(`(toyota|honda|nissan|ford|chevrolet|volkswagen|mazda|hyundai)\s+(corolla|civic|sentra|focus|cruze|golf|accent|camry|accord|altima|fusion|malibu|jetta|cx-5|elantra)`)
	fastModelRe     = regexp.MustCompile(`(corolla|civic|sentra|focus|cruze|golf|accent|camry|accord|altima|fusion|malibu|jetta|cx-5|elantra)`)
	fastYearCtxRe   = regexp.MustCompile(`(?:año|modelo|del)\s+(\d{4})`)
	fastYearBareRe  = regexp.MustCompile(`\b(\d{4})\b`)
	fastDisplaceRe  = regexp.MustCompile(`(\d+\.?\d*)\s*(?:l\b|litros?)`)
	fastPartLeadRe  = regexp.MustCompile(`^(balatas?|frenos?|pastillas?|filtros?|aceite|batería|llantas?|amortiguadores?|bujías?|correas?)`)
	fastPartVerbRe  = regexp.MustCompile(`(?:necesito|busco|quiero)\s+(balatas?|frenos?|pastillas?|filtros?|aceite|batería|llantas?|amortiguadores?|bujías?|correas?)`)
)

// PartsResponse is a turn response enriched with the structured search
// outcome when the fast path resolved one.
type PartsResponse struct {
	pkg.TurnResponse
	SearchResults *pkg.SearchResponse `json:"search_results,omitempty"`
	CarInfo       *pkg.CarInfo        `json:"car_info,omitempty"`
	PartName      string              `json:"part_name,omitempty"`
}

// FastPath answers parts requests that already carry a complete
// vehicle and part name without a completion round-trip. Anything
// incomplete falls through to the engine.
type FastPath struct {
	engine *Engine
	search services.PartsSearch
	log    zerolog.Logger
}

// NewFastPath wires the fast path over an engine and a parts search.
func NewFastPath(engine *Engine, search services.PartsSearch, log zerolog.Logger) *FastPath {
	return &FastPath{
		engine: engine,
		search: search,
		log:    log.With().Str("component", "fastpath").Logger(),
	}
}

// Process resolves one parts turn. Complete requests are answered
// directly from the catalog; incomplete ones delegate to the engine
// and then retry with whatever memory accumulated.
func (f *FastPath) Process(ctx context.Context, req pkg.TurnRequest) *PartsResponse {
	message := strings.ToLower(strings.TrimSpace(req.Message))
	car, partName := f.extractCarAndPart(message)

	if car.Brand != "" && car.Model != "" && partName != "" {
		f.log.Debug().Str("conversation_id", req.ConversationID).Str("part", partName).Msg("direct parts search")
		return f.directSearch(ctx, car, partName)
	}

	resp := f.engine.Process(ctx, req)
	out := &PartsResponse{TurnResponse: *resp}

	// The engine may have filled the gaps from conversation memory.
	car, partName = f.resolveFromMemory(req.ConversationID, car, partName)
	if car.Brand != "" && car.Model != "" && partName != "" {
		results, err := f.search.Search(ctx, partName, car, pkg.SearchOptions{Limit: 5, MinConfidence: 0.4})
		if err != nil {
			f.log.Warn().Err(err).Msg("contextual parts search failed")
			return out
		}
		out.SearchResults = results
		out.CarInfo = &car
		out.PartName = partName
	}
	return out
}

func (f *FastPath) directSearch(ctx context.Context, car pkg.CarInfo, partName string) *PartsResponse {
	results, err := f.search.Search(ctx, partName, car, pkg.SearchOptions{Limit: 5, MinConfidence: 0.4})
	if err != nil {
		f.log.Error().Err(err).Msg("direct parts search failed")
		return &PartsResponse{TurnResponse: *f.engine.fallbackResponse()}
	}

	return &PartsResponse{
		TurnResponse: pkg.TurnResponse{
			Text:     renderSearchReply(results, car, partName),
			Intent:   pkg.IntentSearchProduct,
			Entities: pkg.Entities{"car_marca": car.Brand, "car_modelo": car.Model, "part_name": partName},
			State: pkg.ConversationState{
				Phase:       "search_completed",
				CanProgress: true,
				NextSteps:   []string{"confirm_purchase", "search_another_part"},
			},
			Metrics: pkg.TurnMetrics{
				ConfidenceScore: 0.9,
				PromptUsed:      "parts_results",
			},
		},
		SearchResults: results,
		CarInfo:       &car,
		PartName:      partName,
	}
}

// extractCarAndPart pulls vehicle data and a part name from one
// message with shallow patterns tuned for the happy path.
func (f *FastPath) extractCarAndPart(message string) (pkg.CarInfo, string) {
	car := pkg.CarInfo{}

	if m := fastBrandPairRe.FindStringSubmatch(message); m != nil {
		car.Brand = m[1]
		car.Model = m[2]
	} else if m := fastBrandRe.FindStringSubmatch(message); m != nil {
		car.Brand = m[1]
	}
	if car.Model == "" {
		if m := fastModelRe.FindStringSubmatch(message); m != nil {
			car.Model = m[1]
		}
	}

	yearMatch := fastYearCtxRe.FindStringSubmatch(message)
	if yearMatch == nil {
		yearMatch = fastYearBareRe.FindStringSubmatch(message)
	}
	if yearMatch != nil {
		year, err := strconv.Atoi(yearMatch[1])
		if err == nil && year >= 1990 && year <= f.engine.now().Year()+1 {
			car.Year = year
		}
	}

	if m := fastDisplaceRe.FindStringSubmatch(message); m != nil {
		car.Displacement = m[1]
	}

	partName := ""
	if m := fastPartLeadRe.FindStringSubmatch(message); m != nil {
		partName = m[1]
	} else if m := fastPartVerbRe.FindStringSubmatch(message); m != nil {
		partName = m[1]
	}

	return car, partName
}

// resolveFromMemory fills missing car or part fields from the
// conversation's contextual entities.
func (f *FastPath) resolveFromMemory(conversationID string, car pkg.CarInfo, partName string) (pkg.CarInfo, string) {
	mem, ok := f.engine.store.Get(conversationID)
	if !ok {
		return car, partName
	}
	entities := mem.ShortTerm.ContextualEntities

	if stored, ok := entities["carInfo"].(pkg.CarInfo); ok {
		if car.Brand == "" {
			car.Brand = stored.Brand
		}
		if car.Model == "" {
			car.Model = stored.Model
		}
		if car.Year == 0 {
			car.Year = stored.Year
		}
	}
	if car.Brand == "" {
		car.Brand, _ = entities["car_marca"].(string)
	}
	if car.Model == "" {
		car.Model, _ = entities["car_modelo"].(string)
	}
	if car.Year == 0 {
		switch raw := entities["car_año"].(type) {
		case int:
			car.Year = raw
		case string:
			if year, err := strconv.Atoi(raw); err == nil {
				car.Year = year
			}
		}
	}

	if partName == "" {
		partName, _ = entities["partName"].(string)
	}
	if partName == "" {
		if terms, ok := entities["product_terms"].([]string); ok && len(terms) > 0 {
			partName = terms[0]
		}
	}
	return car, partName
}

func renderSearchReply(results *pkg.SearchResponse, car pkg.CarInfo, partName string) string {
	switch len(results.Results) {
	case 0:
		return fmt.Sprintf(
			"❌ No encontré piezas de %s para tu %s %s. ¿Podrías verificar el nombre de la pieza o darme más detalles del vehículo?",
			partName, car.Brand, car.Model)
	case 1:
		r := results.Results[0]
		return fmt.Sprintf(
			"✅ Encontré esta pieza para tu %s %s:\n\nClave: %s\nMarca: %s\nDescripción: %s",
			car.Brand, car.Model, r.Code, r.Brand, r.Description)
	default:
		var b strings.Builder
		fmt.Fprintf(&b, "✅ Encontré %d opciones para tu %s %s:\n", len(results.Results), car.Brand, car.Model)
		for i, r := range results.Results {
			fmt.Fprintf(&b, "\n%d. Clave: %s | Marca: %s | %s", i+1, r.Code, r.Brand, r.Description)
		}
		b.WriteString("\n\n¿Cuál te interesa?")
		return b.String()
	}
}
