package summarize

import (
	"sort"
	"strings"

	"tendersum/internal/util"
)

var (
	overviewKeywords = []string{"tender", "work", "construction", "supply", "maintenance", "project"}
	currencyMarkers  = []string{"rs", "₹", "rupees", "inr"}
)

const (
	earlySentenceWindow = 5
	minSentenceScore    = 3
	overviewSentences   = 3
)

// RuleBasedOverview selects the three highest-scoring sentences as a
// deterministic fallback overview. Scoring: +2 per work keyword present, +3
// for sentences in the first five, +1 for a digit, +2 for a currency marker.
// Only sentences scoring strictly above 3 are kept; ties preserve document
// order.
func RuleBasedOverview(text string) string {
	type scored struct {
		sentence string
		score    int
	}
	sentences := util.SplitSentences(text)
	kept := make([]scored, 0, len(sentences))
	for i, sentence := range sentences {
		lower := strings.ToLower(sentence)
		score := 0
		for _, kw := range overviewKeywords {
			if strings.Contains(lower, kw) {
				score += 2
			}
		}
		if i < earlySentenceWindow {
			score += 3
		}
		if strings.ContainsAny(sentence, "0123456789") {
			score++
		}
		for _, marker := range currencyMarkers {
			if strings.Contains(lower, marker) {
				score += 2
				break
			}
		}
		if score > minSentenceScore {
			kept = append(kept, scored{sentence: sentence, score: score})
		}
	}
	sort.SliceStable(kept, func(i, j int) bool { return kept[i].score > kept[j].score })

	top := make([]string, 0, overviewSentences)
	for i, s := range kept {
		if i == overviewSentences {
			break
		}
		top = append(top, s.sentence)
	}
	return strings.Join(top, " ")
}
