package entities

import (
	"regexp"
	"strings"

	"tendersum/internal/models"
	"tendersum/internal/util"
)

const (
	maxWorkSentences = 5
	maxRequirements  = 10
)

// projectTaxonomy maps project-type categories to trigger substrings. Slice
// order fixes the reporting order, which in turn fixes workType derivation.
var projectTaxonomy = []struct {
	category string
	triggers []string
}{
	{"construction", []string{"construction", "building", "structure", "infrastructure"}},
	{"roads", []string{"road", "highway", "street", "pavement", "asphalt"}},
	{"bridges", []string{"bridge", "overpass", "underpass", "flyover"}},
	{"water", []string{"water", "pipeline", "drainage", "sewage", "irrigation"}},
	{"electrical", []string{"electrical", "power", "lighting", "wiring", "transformer"}},
	{"maintenance", []string{"maintenance", "repair", "renovation", "upgrade"}},
	{"supply", []string{"supply", "procurement", "purchase", "equipment", "materials"}},
}

var workKeywords = []string{"work", "construction", "installation", "maintenance", "repair", "supply", "provide"}

// Requirement patterns, applied in order; matches keep pattern order then
// match order.
var requirementRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)must\s+[^.]+`),
	regexp.MustCompile(`(?i)shall\s+[^.]+`),
	regexp.MustCompile(`(?i)required\s+[^.]+`),
	regexp.MustCompile(`(?i)specification[s]?[^.]+`),
	regexp.MustCompile(`(?i)minimum\s+[^.]+`),
}

// Extractor combines named-entity recognition with the keyword- and
// pattern-driven sub-extractions. No sub-step can fail the pipeline; empty
// categories are valid and only lower downstream confidence.
type Extractor struct {
	recognizer Recognizer
}

func NewExtractor(r Recognizer) *Extractor {
	if r == nil {
		r = NewLexiconRecognizer()
	}
	return &Extractor{recognizer: r}
}

func (e *Extractor) Extract(text string) models.ExtractedInfo {
	ents := e.recognizer.Recognize(text)
	return models.ExtractedInfo{
		Organizations:    ents.Organizations,
		Places:           ents.Places,
		Money:            ents.Money,
		Dates:            ents.Dates,
		Numbers:          ents.Numbers,
		ProjectTypes:     ExtractProjectTypes(text),
		WorkDescriptions: ExtractWorkDescriptions(text),
		Requirements:     ExtractRequirements(text),
	}
}

// ExtractProjectTypes reports every taxonomy category with at least one
// trigger substring present, case-insensitively, in taxonomy order.
func ExtractProjectTypes(text string) []string {
	lower := strings.ToLower(text)
	found := make([]string, 0, 2)
	for _, entry := range projectTaxonomy {
		for _, trigger := range entry.triggers {
			if strings.Contains(lower, trigger) {
				found = append(found, entry.category)
				break
			}
		}
	}
	return found
}

// ExtractWorkDescriptions keeps sentences mentioning work-related keywords, in
// document order, capped at five.
func ExtractWorkDescriptions(text string) []string {
	out := make([]string, 0, maxWorkSentences)
	for _, sentence := range util.SplitSentences(text) {
		lower := strings.ToLower(sentence)
		for _, kw := range workKeywords {
			if strings.Contains(lower, kw) {
				out = append(out, sentence)
				break
			}
		}
		if len(out) == maxWorkSentences {
			break
		}
	}
	return out
}

// ExtractRequirements collects requirement clauses across the fixed pattern
// set, trimmed, capped at ten.
func ExtractRequirements(text string) []string {
	out := make([]string, 0, maxRequirements)
	for _, re := range requirementRes {
		for _, m := range re.FindAllString(text, -1) {
			m = strings.TrimSpace(m)
			if m == "" {
				continue
			}
			out = append(out, m)
			if len(out) == maxRequirements {
				return out
			}
		}
	}
	return out
}
