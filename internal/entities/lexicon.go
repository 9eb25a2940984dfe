package entities

import (
	"regexp"
	"strings"
)

// LexiconRecognizer is a deterministic pattern-and-gazetteer recognizer tuned
// for Indian procurement documents. It favors precision on the entity classes
// the summarizer derives fields from: money, places, dates, numeric tokens and
// organization mentions.
type LexiconRecognizer struct{}

func NewLexiconRecognizer() *LexiconRecognizer {
	return &LexiconRecognizer{}
}

var (
	moneyRe = regexp.MustCompile(`(?i)(?:₹\s?[\d][\d,]*(?:\.\d+)?|(?:rs\.?|inr|rupees)\s+[\d][\d,]*(?:\.\d+)?)(?:\s?(?:lakhs?|crores?))?`)

	dateRes = []*regexp.Regexp{
		regexp.MustCompile(`\b\d{1,2}[-/]\d{1,2}[-/]\d{2,4}\b`),
		regexp.MustCompile(`(?i)\b\d{1,2}(?:st|nd|rd|th)?\s+(?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{4}\b`),
		regexp.MustCompile(`(?i)\b(?:january|february|march|april|may|june|july|august|september|october|november|december)\s+\d{1,2},?\s+\d{4}\b`),
	}

	// A number with its trailing unit word, so timeline keywords like
	// "90 days" survive as one token.
	numberRe = regexp.MustCompile(`\b\d[\d,]*(?:\.\d+)?(?:\s[a-zA-Z]+)?`)

	// Party and institution mentions common in tender text, fixed scan order.
	orgTerms = []string{
		"municipal corporation",
		"public works department",
		"contractor",
		"department",
		"corporation",
		"authority",
		"government",
		"ministry",
		"directorate",
		"board",
		"council",
		"agency",
	}

	// Capitalized phrases ending in an institutional suffix.
	orgSuffixRe = regexp.MustCompile(`(?:[A-Z][A-Za-z0-9]*\s+){0,4}(?:Ltd|Limited|Pvt|Corporation|Authority|Department|Board|Ministry|Council|Agency|Nigam)\b`)

	// City and state gazetteer, fixed scan order.
	placeTerms = []string{
		"Pune", "Mumbai", "Delhi", "Nagpur", "Nashik", "Thane", "Aurangabad",
		"Bengaluru", "Bangalore", "Hyderabad", "Chennai", "Kolkata", "Ahmedabad",
		"Surat", "Jaipur", "Lucknow", "Kanpur", "Indore", "Bhopal", "Patna",
		"Chandigarh", "Kochi", "Coimbatore", "Visakhapatnam", "Vadodara",
		"Maharashtra", "Gujarat", "Karnataka", "Rajasthan", "Kerala",
		"Tamil Nadu", "Uttar Pradesh", "Madhya Pradesh", "West Bengal",
		"Andhra Pradesh", "Telangana", "Bihar", "Punjab", "Haryana", "Odisha",
	}
)

func (l *LexiconRecognizer) Recognize(text string) Entities {
	if strings.TrimSpace(text) == "" {
		return Entities{}
	}
	return Entities{
		Organizations: recognizeOrganizations(text),
		Places:        recognizePlaces(text),
		Money:         dedupe(trimAll(moneyRe.FindAllString(text, -1))),
		Dates:         recognizeDates(text),
		Numbers:       dedupe(trimAll(numberRe.FindAllString(text, -1))),
	}
}

func recognizeOrganizations(text string) []string {
	out := make([]string, 0, 4)
	for _, m := range orgSuffixRe.FindAllString(text, -1) {
		out = append(out, strings.TrimSpace(m))
	}
	lower := strings.ToLower(text)
	for _, term := range orgTerms {
		if idx := indexWord(lower, term); idx >= 0 {
			out = append(out, text[idx:idx+len(term)])
		}
	}
	return dedupeFold(out)
}

func recognizePlaces(text string) []string {
	lower := strings.ToLower(text)
	out := make([]string, 0, 2)
	for _, term := range placeTerms {
		if indexWord(lower, strings.ToLower(term)) >= 0 {
			out = append(out, term)
		}
	}
	return dedupeFold(out)
}

func recognizeDates(text string) []string {
	out := make([]string, 0, 2)
	for _, re := range dateRes {
		out = append(out, trimAll(re.FindAllString(text, -1))...)
	}
	return dedupe(out)
}

// indexWord finds term in s at word boundaries; both must share case.
func indexWord(s, term string) int {
	from := 0
	for {
		i := strings.Index(s[from:], term)
		if i < 0 {
			return -1
		}
		i += from
		before := i == 0 || !isWordByte(s[i-1])
		afterIdx := i + len(term)
		after := afterIdx >= len(s) || !isWordByte(s[afterIdx])
		if before && after {
			return i
		}
		from = i + len(term)
		if from >= len(s) {
			return -1
		}
	}
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.Trim(s, " ,")
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func dedupeFold(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		k := strings.ToLower(s)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, s)
	}
	return out
}
