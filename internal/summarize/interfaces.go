package summarize

import "context"

type ProviderInfo struct {
	Name  string `json:"name"`
	Model string `json:"model"`
	Key   string `json:"key"`
}

type SummaryRequest struct {
	Text      string `json:"text"`
	MinTokens int    `json:"min_tokens"`
	MaxTokens int    `json:"max_tokens"`
}

type SummaryResponse struct {
	Text string `json:"text"`
}

// OverviewProvider produces a short abstractive overview of tender text. It is
// an untrusted, unreliable capability: any error degrades to the rule-based
// overview and never fails the pipeline.
type OverviewProvider interface {
	Summarize(ctx context.Context, req SummaryRequest) (SummaryResponse, ProviderInfo, error)
}
