package summarize

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"tendersum/internal/models"
)

const (
	NotSpecified    = "Not specified"
	DefaultWorkType = "General Work"
	scopeFallback   = "Project scope not clearly specified in document"
)

var timelineKeywords = []string{"days", "weeks", "months", "completion", "duration"}

type Options struct {
	MaxInputLen int
	MinTokens   int
	MaxTokens   int
	Timeout     time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxInputLen <= 0 {
		o.MaxInputLen = 4000
	}
	if o.MinTokens <= 0 {
		o.MinTokens = 50
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 150
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	return o
}

// Summarizer combines an optional AI overview with the always-computed
// rule-based summary and derives the structured fields.
type Summarizer struct {
	provider OverviewProvider
	opts     Options
}

// New builds a Summarizer. provider may be nil, in which case only the
// rule-based path runs.
func New(provider OverviewProvider, opts Options) *Summarizer {
	return &Summarizer{provider: provider, opts: opts.withDefaults()}
}

func (s *Summarizer) Summarize(ctx context.Context, cleanText string, info models.ExtractedInfo) models.Summary {
	aiOverview := s.aiOverview(ctx, cleanText)
	ruleOverview := RuleBasedOverview(cleanText)

	overview := aiOverview
	if overview == "" {
		overview = ruleOverview
	}

	return models.Summary{
		Overview:        overview,
		WorkType:        deriveWorkType(info),
		EstimatedValue:  firstOr(info.Money, NotSpecified),
		Location:        firstOr(info.Places, NotSpecified),
		KeyRequirements: head(info.Requirements, 3),
		Timeline:        deriveTimeline(info),
		ProjectScope:    deriveScope(info),
		Confidence:      Confidence(cleanText, info),
	}
}

// aiOverview asks the configured provider for an abstractive summary. Every
// failure mode (no provider, timeout, transport or decode error, empty text)
// collapses to "" so the rule-based overview takes over.
func (s *Summarizer) aiOverview(ctx context.Context, text string) string {
	if s.provider == nil || strings.TrimSpace(text) == "" {
		return ""
	}
	truncated := text
	if len(truncated) > s.opts.MaxInputLen {
		// Back off to a rune boundary so a multi-byte character such as ₹
		// is never split mid-sequence.
		cut := s.opts.MaxInputLen
		for cut > 0 && !utf8.RuneStart(truncated[cut]) {
			cut--
		}
		truncated = truncated[:cut] + "..."
	}
	callCtx, cancel := context.WithTimeout(ctx, s.opts.Timeout)
	defer cancel()
	resp, _, err := s.provider.Summarize(callCtx, SummaryRequest{
		Text:      truncated,
		MinTokens: s.opts.MinTokens,
		MaxTokens: s.opts.MaxTokens,
	})
	if err != nil {
		return ""
	}
	return strings.TrimSpace(resp.Text)
}

func deriveWorkType(info models.ExtractedInfo) string {
	if len(info.ProjectTypes) == 0 {
		return DefaultWorkType
	}
	t := info.ProjectTypes[0]
	return strings.ToUpper(t[:1]) + t[1:]
}

func deriveTimeline(info models.ExtractedInfo) string {
	for _, n := range info.Numbers {
		lower := strings.ToLower(n)
		for _, kw := range timelineKeywords {
			if strings.Contains(lower, kw) {
				return n
			}
		}
	}
	if len(info.Dates) > 0 {
		return "Target completion: " + info.Dates[0]
	}
	return NotSpecified
}

func deriveScope(info models.ExtractedInfo) string {
	if len(info.WorkDescriptions) > 0 {
		return strings.Join(head(info.WorkDescriptions, 2), " ")
	}
	if len(info.ProjectTypes) > 0 {
		return strings.Join(info.ProjectTypes, ", ") + " project"
	}
	return scopeFallback
}

// Confidence is the additive completeness heuristic, clamped to 100.
func Confidence(cleanText string, info models.ExtractedInfo) int {
	confidence := 0
	if len(cleanText) > 1000 {
		confidence += 20
	}
	if len(cleanText) > 5000 {
		confidence += 20
	}
	if len(info.Organizations) > 0 {
		confidence += 15
	}
	if len(info.Money) > 0 {
		confidence += 15
	}
	if len(info.Places) > 0 {
		confidence += 10
	}
	if len(info.ProjectTypes) > 0 {
		confidence += 15
	}
	if len(info.Requirements) > 0 {
		confidence += 5
	}
	if confidence > 100 {
		confidence = 100
	}
	return confidence
}

func firstOr(values []string, fallback string) string {
	if len(values) > 0 {
		return values[0]
	}
	return fallback
}

func head(values []string, n int) []string {
	if len(values) <= n {
		return values
	}
	return values[:n]
}
