package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// RemoteProvider calls a hosted summarization endpoint (Hugging Face inference
// style request/response) when an API key is configured.
type RemoteProvider struct {
	endpoint string
	keyName  string
	apiKey   string
	client   *http.Client
}

func NewRemoteProvider(endpoint, keyName string) *RemoteProvider {
	return &RemoteProvider{
		endpoint: endpoint,
		keyName:  keyName,
		apiKey:   resolveRemoteKey(keyName),
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (p *RemoteProvider) Summarize(ctx context.Context, req SummaryRequest) (SummaryResponse, ProviderInfo, error) {
	info := ProviderInfo{Name: "remote", Model: p.endpoint, Key: p.keyName}
	if p.endpoint == "" {
		return SummaryResponse{}, info, fmt.Errorf("summary endpoint not configured")
	}
	if p.apiKey == "" {
		return SummaryResponse{}, info, fmt.Errorf("summary api key missing for alias %q", p.keyName)
	}
	payload, _ := json.Marshal(map[string]any{
		"inputs": req.Text,
		"parameters": map[string]any{
			"max_length": req.MaxTokens,
			"min_length": req.MinTokens,
			"do_sample":  false,
		},
	})
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
	if err != nil {
		return SummaryResponse{}, info, fmt.Errorf("build summary request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(httpReq)
	if err != nil {
		return SummaryResponse{}, info, fmt.Errorf("summary request failed: %w", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return SummaryResponse{}, info, fmt.Errorf("summary endpoint error %d: %s", resp.StatusCode, string(body))
	}
	var parsed []struct {
		SummaryText string `json:"summary_text"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return SummaryResponse{}, info, fmt.Errorf("decode summary response: %w", err)
	}
	if len(parsed) == 0 {
		return SummaryResponse{}, info, fmt.Errorf("summary endpoint returned no candidates")
	}
	return SummaryResponse{Text: strings.TrimSpace(parsed[0].SummaryText)}, info, nil
}

func resolveRemoteKey(alias string) string {
	if alias != "" {
		k := os.Getenv("TENDERSUM_SUMMARY_KEY_" + strings.ToUpper(alias))
		if k != "" {
			return k
		}
	}
	return os.Getenv("TENDERSUM_SUMMARY_API_KEY")
}
