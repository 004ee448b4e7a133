// internal/providers/catalog/provider.go

// Package catalog implements the primary supplier-catalog search provider.
package catalog

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/time/rate"

	"product-matcher/internal/common/config"
	"product-matcher/internal/common/database"
	apperrors "product-matcher/internal/common/errors"
	"product-matcher/internal/common/httpclient"
	"product-matcher/internal/common/logger"
	"product-matcher/internal/models"
	"product-matcher/internal/providers"
)

const providerName = "Supplier Catalog"

// searchRequest is the provider-native filter translation of our criteria.
type searchRequest struct {
	Keyword       string   `json:"keyword"`
	Page          int      `json:"page"`
	PageSize      int      `json:"pageSize"`
	MinPrice      *float64 `json:"minPrice,omitempty"`
	MaxPrice      *float64 `json:"maxPrice,omitempty"`
	OriginCountry []string `json:"originCountry,omitempty"`
}

type searchResponse struct {
	Total int                      `json:"total"`
	Items []map[string]interface{} `json:"items"`
}

type Provider struct {
	config  config.CatalogProviderConfig
	client  *httpclient.Client
	cache   *database.RedisClient
	limiter *rate.Limiter
	logger  logger.Logger
}

// NewProvider builds the catalog provider. cache may be nil; search responses
// are then always fetched fresh.
func NewProvider(cfg config.CatalogProviderConfig, cache *database.RedisClient, log logger.Logger) *Provider {
	return &Provider{
		config:  cfg,
		client:  httpclient.NewClient(cfg.Timeout()),
		cache:   cache,
		limiter: rate.NewLimiter(rate.Every(cfg.PageDelay()), 1),
		logger:  log.With(map[string]interface{}{"provider": models.ProviderIDCatalog}),
	}
}

func (p *Provider) ID() string   { return models.ProviderIDCatalog }
func (p *Provider) Name() string { return providerName }

// Search paginates the upstream catalog until it has enough candidates, then
// normalizes, filters by the job criteria, and truncates to maxResults.
func (p *Provider) Search(ctx context.Context, query models.ProductQuery, criteria models.SearchCriteria) ([]models.ProviderResult, error) {
	cacheKey := p.cacheKey(query, criteria)
	if cached, ok := p.fromCache(ctx, cacheKey); ok {
		p.logger.Debug("catalog cache hit", map[string]interface{}{"key": cacheKey})
		return cached, nil
	}

	rawItems, err := p.fetchPages(ctx, query, criteria)
	if err != nil {
		return nil, err
	}

	results := make([]models.ProviderResult, 0, len(rawItems))
	for _, item := range rawItems {
		results = append(results, p.normalizeItem(item))
	}

	results = p.applyFilters(results, criteria)
	p.toCache(ctx, cacheKey, results)

	p.logger.Info("catalog search completed", map[string]interface{}{
		"query":   query.Name,
		"fetched": len(rawItems),
		"kept":    len(results),
	})
	return results, nil
}

// fetchPages walks pages until the target count is reached, a short page
// signals end of data, or the page ceiling is hit. Page fetches are paced by
// the limiter to respect the upstream rate limit.
func (p *Provider) fetchPages(ctx context.Context, query models.ProductQuery, criteria models.SearchCriteria) ([]map[string]interface{}, error) {
	target := targetResultCount(criteria)

	var collected []map[string]interface{}
	for page := 1; page <= p.config.MaxPages; page++ {
		// Every fetch takes a token. The first page spends the initial
		// one, so each following page waits out the full inter-page delay.
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		items, err := p.fetchPage(ctx, query, criteria, page)
		if err != nil {
			return nil, err
		}

		collected = append(collected, items...)
		if len(collected) >= target {
			break
		}
		if len(items) < p.config.PageSize {
			// End of data upstream.
			break
		}
	}
	return collected, nil
}

func (p *Provider) fetchPage(ctx context.Context, query models.ProductQuery, criteria models.SearchCriteria, page int) ([]map[string]interface{}, error) {
	reqBody := searchRequest{
		Keyword:       query.Name,
		Page:          page,
		PageSize:      p.config.PageSize,
		OriginCountry: criteria.ShippingOrigin,
	}
	if criteria.PriceRange != nil {
		reqBody.MinPrice = criteria.PriceRange.Min
		reqBody.MaxPrice = criteria.PriceRange.Max
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/v1/products/search", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if p.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, apperrors.NewRateLimitError(p.ID(), "catalog API rate limit reached")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog API returned %d", resp.StatusCode)
	}

	var body searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	return body.Items, nil
}

// applyFilters narrows by MOQ range and lead time, applies the shared
// criteria filter, and truncates to maxResults.
func (p *Provider) applyFilters(results []models.ProviderResult, criteria models.SearchCriteria) []models.ProviderResult {
	filtered := make([]models.ProviderResult, 0, len(results))
	for _, r := range results {
		if criteria.MinMoq != nil && r.MOQ != nil && *r.MOQ < *criteria.MinMoq {
			continue
		}
		if criteria.MaxMoq != nil && r.MOQ != nil && *r.MOQ > *criteria.MaxMoq {
			continue
		}
		if criteria.MaxLeadTimeDays != nil && r.LeadTimeDays != nil && *r.LeadTimeDays > *criteria.MaxLeadTimeDays {
			continue
		}
		filtered = append(filtered, r)
	}

	filtered = providers.ApplyCriteriaFilter(filtered, criteria)

	if criteria.MaxResults != nil && len(filtered) > *criteria.MaxResults {
		filtered = filtered[:*criteria.MaxResults]
	}
	return filtered
}

// targetResultCount guarantees enough candidates per row without over-fetching:
// max(4, min(10, requested-max)).
func targetResultCount(criteria models.SearchCriteria) int {
	requested := 10
	if criteria.MaxResults != nil {
		requested = *criteria.MaxResults
	}
	if requested > 10 {
		requested = 10
	}
	if requested < 4 {
		requested = 4
	}
	return requested
}

// --- cache ---

func (p *Provider) cacheKey(query models.ProductQuery, criteria models.SearchCriteria) string {
	qj, _ := json.Marshal(query)
	cj, _ := json.Marshal(criteria)
	sum := sha1.Sum(append(qj, cj...))
	return "catalog:search:" + hex.EncodeToString(sum[:])
}

func (p *Provider) fromCache(ctx context.Context, key string) ([]models.ProviderResult, bool) {
	if p.cache == nil {
		return nil, false
	}
	val, err := p.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var results []models.ProviderResult
	if err := json.Unmarshal([]byte(val), &results); err != nil {
		return nil, false
	}
	return results, true
}

func (p *Provider) toCache(ctx context.Context, key string, results []models.ProviderResult) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(results)
	if err != nil {
		return
	}
	if err := p.cache.Set(ctx, key, data, p.config.CacheTTL()); err != nil {
		p.logger.Warn("failed to cache catalog results", map[string]interface{}{"error": err.Error()})
	}
}
