package services

import (
	"context"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"partschat/pkg"
)

// PartsSearch is the structured parts search contract used by the fast
// path and by dispatched actions.
type PartsSearch interface {
	Search(ctx context.Context, partName string, car pkg.CarInfo, opts pkg.SearchOptions) (*pkg.SearchResponse, error)
}

// Part is one catalog entry.
type Part struct {
	Code        string
	Brand       string
	Description string
	PartType    string
	CarBrands   []string
	CarModels   []string
	YearFrom    int
	YearTo      int
}

// CatalogSearch is an in-process PartsSearch over a static catalog.
type CatalogSearch struct {
	catalog  []Part
	synonyms map[string]string
	log      zerolog.Logger
}

// NewCatalogSearch builds the catalog search with the demo catalog.
func NewCatalogSearch(log zerolog.Logger) *CatalogSearch {
	return &CatalogSearch{
		catalog:  demoCatalog(),
		synonyms: partSynonyms(),
		log:      log.With().Str("component", "parts_search").Logger(),
	}
}

// Search finds catalog parts matching the term and vehicle, scored by
// confidence and bounded by the options.
func (s *CatalogSearch) Search(ctx context.Context, partName string, car pkg.CarInfo, opts pkg.SearchOptions) (*pkg.SearchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	term := s.normalizeTerm(partName)
	if opts.Limit <= 0 {
		opts.Limit = 5
	}

	results := []pkg.PartResult{}
	for _, part := range s.catalog {
		confidence := s.score(part, term, car)
		if confidence == 0 || confidence < opts.MinConfidence {
			continue
		}
		results = append(results, pkg.PartResult{
			Code:        part.Code,
			Brand:       part.Brand,
			Description: part.Description,
			Confidence:  confidence,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Confidence > results[j].Confidence
	})
	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	s.log.Debug().Str("term", term).Int("results", len(results)).Msg("parts search")

	return &pkg.SearchResponse{
		Success:        len(results) > 0,
		NormalizedTerm: term,
		Results:        results,
	}, nil
}

// normalizeTerm maps colloquial part names onto catalog part types.
func (s *CatalogSearch) normalizeTerm(partName string) string {
	term := strings.ToLower(strings.TrimSpace(partName))
	if canonical, ok := s.synonyms[term]; ok {
		return canonical
	}
	return term
}

// score weights the term match highest, then vehicle brand, model and
// year. A part that does not match the term at all scores zero.
func (s *CatalogSearch) score(part Part, term string, car pkg.CarInfo) float64 {
	if !strings.Contains(part.PartType, term) && !strings.Contains(strings.ToLower(part.Description), term) {
		return 0
	}
	score := 0.5
	if car.Brand != "" && containsFold(part.CarBrands, car.Brand) {
		score += 0.2
	}
	if car.Model != "" && containsFold(part.CarModels, car.Model) {
		score += 0.2
	}
	if car.Year != 0 && part.YearFrom <= car.Year && car.Year <= part.YearTo {
		score += 0.1
	}

	return score
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

func partSynonyms() map[string]string {
	return map[string]string{
		"pastillas":  "balatas",
		"pastilla":   "balatas",
		"zapatas":    "balatas",
		"balata":     "balatas",
		"frenos":     "balatas",
		"acumulador": "batería",
		"llanta":     "llantas",
		"neumáticos": "llantas",
		"bujía":      "bujías",
	}
}

func demoCatalog() []Part {
	return []Part{
		{
			Code:        "BAL-7741",
			Brand:       "BREMBO",
			Description: "Juego de balatas delanteras cerámicas",
			PartType:    "balatas",
			CarBrands:   []string{"toyota"},
			CarModels:   []string{"corolla", "camry"},
			YearFrom:    2014,
			YearTo:      2021,
		},
		{
			Code:        "BAL-2280",
			Brand:       "AKEBONO",
			Description: "Balatas traseras semimetálicas",
			PartType:    "balatas",
			CarBrands:   []string{"toyota", "honda"},
			CarModels:   []string{"corolla", "civic"},
			YearFrom:    2012,
			YearTo:      2020,
		},
		{
			Code:        "FIL-0915",
			Brand:       "FRAM",
			Description: "Filtro de aceite de motor",
			PartType:    "filtro",
			CarBrands:   []string{"nissan", "toyota"},
			CarModels:   []string{"sentra", "corolla"},
			YearFrom:    2010,
			YearTo:      2023,
		},
		{
			Code:        "AMO-5530",
			Brand:       "KYB",
			Description: "Amortiguador delantero gas",
			PartType:    "amortiguadores",
			CarBrands:   []string{"volkswagen"},
			CarModels:   []string{"jetta", "golf"},
			YearFrom:    2011,
			YearTo:      2019,
		},
		{
			Code:        "BUJ-1198",
			Brand:       "NGK",
			Description: "Bujía de iridio",
			PartType:    "bujías",
			CarBrands:   []string{"honda", "nissan"},
			CarModels:   []string{"civic", "altima"},
			YearFrom:    2013,
			YearTo:      2022,
		},
		{
			Code:        "BAT-3402",
			Brand:       "LTH",
			Description: "Batería 12V 600 CCA",
			PartType:    "batería",
			CarBrands:   []string{"toyota", "honda", "nissan", "ford"},
			CarModels:   []string{"corolla", "civic", "sentra", "focus"},
			YearFrom:    2008,
			YearTo:      2024,
		},
		{
			Code:        "COR-8823",
			Brand:       "GATES",
			Description: "Correa de distribución reforzada",
			PartType:    "correa",
			CarBrands:   []string{"ford", "chevrolet"},
			CarModels:   []string{"focus", "cruze"},
			YearFrom:    2012,
			YearTo:      2018,
		},
	}
}
