// internal/providers/web/client.go
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"product-matcher/internal/common/config"
	apperrors "product-matcher/internal/common/errors"
	"product-matcher/internal/common/httpclient"
	"product-matcher/internal/models"
)

// HTTPResearchClient calls the research/extraction service over HTTP.
type HTTPResearchClient struct {
	config config.WebProviderConfig
	client *httpclient.Client
}

func NewHTTPResearchClient(cfg config.WebProviderConfig) *HTTPResearchClient {
	return &HTTPResearchClient{
		config: cfg,
		client: httpclient.NewClient(cfg.Timeout()),
	}
}

func (c *HTTPResearchClient) Lookup(ctx context.Context, text string) (*ResearchResult, error) {
	payload, err := json.Marshal(map[string]string{"query": text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v1/research", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.NewRateLimitError(models.ProviderIDWeb, "research API rate limit reached")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("research API returned %d", resp.StatusCode)
	}

	var result ResearchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode research response: %w", err)
	}
	return &result, nil
}
