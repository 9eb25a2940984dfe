package summarize

import (
	"strings"
	"testing"
)

func TestRuleBasedOverviewPicksScoredSentences(t *testing.T) {
	text := "Tender for road construction in Pune. The weather was pleasant. Contract value is ₹50,00,000."
	got := RuleBasedOverview(text)
	want := "Tender for road construction in Pune. Contract value is ₹50,00,000."
	if got != want {
		t.Fatalf("want %q got %q", want, got)
	}
}

func TestRuleBasedOverviewDropsLowScores(t *testing.T) {
	// Early-position bonus alone is 3, which does not pass the strict >3 gate.
	got := RuleBasedOverview("Nothing relevant here. Still nothing. More filler text.")
	if got != "" {
		t.Fatalf("expected empty overview, got %q", got)
	}
}

func TestRuleBasedOverviewStableTieOrder(t *testing.T) {
	// Both sentences score identically; document order must be preserved.
	text := "Alpha tender work notice. Beta tender work notice."
	got := RuleBasedOverview(text)
	want := "Alpha tender work notice. Beta tender work notice."
	if got != want {
		t.Fatalf("want %q got %q", want, got)
	}
}

func TestRuleBasedOverviewCapsAtThreeSentences(t *testing.T) {
	text := "First tender work project. Second tender work project. Third tender work project. Fourth tender work project."
	got := RuleBasedOverview(text)
	if n := len(strings.Split(got, ". ")); n != 3 {
		t.Fatalf("expected 3 sentences, got %d: %q", n, got)
	}
}

func TestRuleBasedOverviewEmptyText(t *testing.T) {
	if got := RuleBasedOverview(""); got != "" {
		t.Fatalf("expected empty overview for empty text, got %q", got)
	}
}
