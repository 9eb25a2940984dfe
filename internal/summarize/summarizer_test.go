package summarize

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"tendersum/internal/models"

	"github.com/stretchr/testify/require"
)

type failingProvider struct{}

func (failingProvider) Summarize(context.Context, SummaryRequest) (SummaryResponse, ProviderInfo, error) {
	return SummaryResponse{}, ProviderInfo{Name: "failing"}, fmt.Errorf("connection refused")
}

type hangingProvider struct{}

func (hangingProvider) Summarize(ctx context.Context, _ SummaryRequest) (SummaryResponse, ProviderInfo, error) {
	<-ctx.Done()
	return SummaryResponse{}, ProviderInfo{Name: "hanging"}, ctx.Err()
}

type capturingProvider struct {
	lastText string
}

func (c *capturingProvider) Summarize(_ context.Context, req SummaryRequest) (SummaryResponse, ProviderInfo, error) {
	c.lastText = req.Text
	return SummaryResponse{Text: "AI overview of the tender."}, ProviderInfo{Name: "capturing"}, nil
}

const roadTenderText = "The contractor must complete road construction within 90 days for ₹50,00,000 in Pune."

func roadTenderInfo() models.ExtractedInfo {
	return models.ExtractedInfo{
		Organizations:    []string{"contractor"},
		Places:           []string{"Pune"},
		Money:            []string{"₹50,00,000"},
		Numbers:          []string{"90 days", "50,00,000 in"},
		ProjectTypes:     []string{"construction", "roads"},
		WorkDescriptions: []string{roadTenderText},
		Requirements:     []string{"must complete road construction within 90 days for ₹50,00,000 in Pune"},
	}
}

func TestSummarizePrefersAIOverview(t *testing.T) {
	s := New(&capturingProvider{}, Options{})
	got := s.Summarize(context.Background(), roadTenderText, roadTenderInfo())
	require.Equal(t, "AI overview of the tender.", got.Overview)
}

func TestSummarizeFallsBackWhenProviderFails(t *testing.T) {
	s := New(failingProvider{}, Options{})
	got := s.Summarize(context.Background(), roadTenderText, roadTenderInfo())
	require.Equal(t, RuleBasedOverview(roadTenderText), got.Overview)
	require.NotEmpty(t, got.Overview)
}

func TestSummarizeFallsBackOnTimeout(t *testing.T) {
	s := New(hangingProvider{}, Options{Timeout: 20 * time.Millisecond})
	start := time.Now()
	got := s.Summarize(context.Background(), roadTenderText, roadTenderInfo())
	require.Less(t, time.Since(start), 2*time.Second)
	require.Equal(t, RuleBasedOverview(roadTenderText), got.Overview)
}

func TestSummarizeWithoutProviderUsesRuleOverview(t *testing.T) {
	s := New(nil, Options{})
	got := s.Summarize(context.Background(), roadTenderText, roadTenderInfo())
	require.Equal(t, RuleBasedOverview(roadTenderText), got.Overview)
}

func TestSummarizeTruncatesProviderInput(t *testing.T) {
	p := &capturingProvider{}
	s := New(p, Options{MaxInputLen: 50})
	long := strings.Repeat("tender work notice ", 20)
	s.Summarize(context.Background(), long, models.ExtractedInfo{})
	require.Len(t, p.lastText, 53)
	require.True(t, strings.HasSuffix(p.lastText, "..."))
}

func TestSummarizeTruncationKeepsRuneBoundary(t *testing.T) {
	p := &capturingProvider{}
	s := New(p, Options{MaxInputLen: 50})
	// The ₹ sign is three bytes starting at offset 49, so a byte cut at 50
	// would land mid-rune.
	text := strings.Repeat("a", 49) + "₹50,00,000 for road work in Pune"
	s.Summarize(context.Background(), text, models.ExtractedInfo{})
	require.True(t, utf8.ValidString(p.lastText))
	require.Equal(t, strings.Repeat("a", 49)+"...", p.lastText)
}

func TestSummarizeFieldDerivation(t *testing.T) {
	got := New(nil, Options{}).Summarize(context.Background(), roadTenderText, roadTenderInfo())
	require.Equal(t, "Construction", got.WorkType)
	require.Equal(t, "₹50,00,000", got.EstimatedValue)
	require.Equal(t, "Pune", got.Location)
	require.Equal(t, "90 days", got.Timeline)
	require.Equal(t, roadTenderText, got.ProjectScope)
	require.Len(t, got.KeyRequirements, 1)
	require.GreaterOrEqual(t, got.Confidence, 50)
	require.LessOrEqual(t, got.Confidence, 100)
}

func TestSummarizeEmptyDocumentDefaults(t *testing.T) {
	got := New(nil, Options{}).Summarize(context.Background(), "", models.ExtractedInfo{})
	require.Equal(t, "", got.Overview)
	require.Equal(t, DefaultWorkType, got.WorkType)
	require.Equal(t, NotSpecified, got.EstimatedValue)
	require.Equal(t, NotSpecified, got.Location)
	require.Equal(t, NotSpecified, got.Timeline)
	require.Equal(t, scopeFallback, got.ProjectScope)
	require.Empty(t, got.KeyRequirements)
	require.Equal(t, 0, got.Confidence)
}

func TestTimelineFallsBackToFirstDate(t *testing.T) {
	info := models.ExtractedInfo{Dates: []string{"15/09/2026", "30/11/2026"}}
	got := New(nil, Options{}).Summarize(context.Background(), "", info)
	require.Equal(t, "Target completion: 15/09/2026", got.Timeline)
}

func TestScopeFallsBackToProjectTypes(t *testing.T) {
	info := models.ExtractedInfo{ProjectTypes: []string{"water", "electrical"}}
	got := New(nil, Options{}).Summarize(context.Background(), "", info)
	require.Equal(t, "water, electrical project", got.ProjectScope)
}

func TestConfidenceMonotonicAndBounded(t *testing.T) {
	text := strings.Repeat("x", 1500)
	info := models.ExtractedInfo{}
	prev := Confidence(text, info)

	steps := []func(*models.ExtractedInfo){
		func(i *models.ExtractedInfo) { i.Organizations = []string{"contractor"} },
		func(i *models.ExtractedInfo) { i.Money = []string{"₹1,00,000"} },
		func(i *models.ExtractedInfo) { i.Places = []string{"Pune"} },
		func(i *models.ExtractedInfo) { i.ProjectTypes = []string{"roads"} },
		func(i *models.ExtractedInfo) { i.Requirements = []string{"must submit EMD"} },
	}
	for _, step := range steps {
		step(&info)
		next := Confidence(text, info)
		require.GreaterOrEqual(t, next, prev)
		require.LessOrEqual(t, next, 100)
		prev = next
	}
	require.Equal(t, 80, prev)
}

func TestConfidenceKeyRequirementsIndependence(t *testing.T) {
	// The additive formula counts the requirements category once regardless of
	// how many clauses feed keyRequirements.
	text := ""
	one := Confidence(text, models.ExtractedInfo{Requirements: []string{"must a"}})
	many := Confidence(text, models.ExtractedInfo{Requirements: []string{"must a", "must b", "must c", "must d"}})
	require.Equal(t, one, many)
}
