package util

import (
	"regexp"
	"strings"
)

var (
	urlRe   = regexp.MustCompile(`https?://\S+`)
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	// Conservative allow-list: word characters, whitespace, basic punctuation.
	// The rupee sign stays in so value extraction and currency scoring can see it.
	disallowedRe = regexp.MustCompile(`[^\w\s.,!?;:()\-₹]`)
)

// NormalizeText produces the canonical clean text the extraction stages run on.
// It removes URLs and email addresses, strips characters outside the allow-list
// and collapses whitespace runs. Idempotent: normalizing normalized text is a
// no-op.
func NormalizeText(text string) string {
	text = urlRe.ReplaceAllString(text, "")
	text = emailRe.ReplaceAllString(text, "")
	text = disallowedRe.ReplaceAllString(text, "")
	return strings.Join(strings.Fields(text), " ")
}

// SanitizeText removes bytes and control characters that Postgres text columns
// reject (especially NUL / 0x00 from some PDF extractors).
func SanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = strings.ReplaceAll(s, "\x00", "")

	r := make([]rune, 0, len(s))
	for _, ch := range s {
		if ch == '\n' || ch == '\r' || ch == '\t' {
			r = append(r, ch)
			continue
		}
		if ch < 0x20 {
			continue
		}
		r = append(r, ch)
	}
	return strings.TrimSpace(string(r))
}
