package summarize

import (
	"context"
	"strings"
)

// MockProvider returns a deterministic overview derived from the input,
// keeping tests and local development independent of any remote service.
type MockProvider struct{}

func NewMockProvider() *MockProvider {
	return &MockProvider{}
}

func (m *MockProvider) Summarize(ctx context.Context, req SummaryRequest) (SummaryResponse, ProviderInfo, error) {
	_ = ctx
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return SummaryResponse{}, ProviderInfo{Name: "mock", Model: "mock-summary-v1", Key: "mock"}, nil
	}
	words := strings.Fields(text)
	limit := req.MaxTokens
	if limit <= 0 || limit > len(words) {
		limit = len(words)
	}
	return SummaryResponse{Text: strings.Join(words[:limit], " ")},
		ProviderInfo{Name: "mock", Model: "mock-summary-v1", Key: "mock"}, nil
}
