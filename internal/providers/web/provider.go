// internal/providers/web/provider.go

// Package web implements the low-confidence fallback provider. It issues one
// free-text lookup against a generic research/extraction capability and wraps
// the single returned item as a candidate. Its results carry no verifiable
// product identity, so downstream scoring treats them accordingly.
package web

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"product-matcher/internal/common/config"
	"product-matcher/internal/common/logger"
	"product-matcher/internal/models"
	"product-matcher/internal/providers"
)

const providerName = "Generic Web Research"

// ResearchResult is the contract of the research capability: free text in,
// loosely structured product facts out.
type ResearchResult struct {
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Specs          map[string]string `json:"specs"`
	EstimatedPrice string            `json:"estimatedPrice"`
	Features       []string          `json:"features"`
	Tags           []string          `json:"tags"`
}

// ResearchClient performs the free-text lookup.
type ResearchClient interface {
	Lookup(ctx context.Context, text string) (*ResearchResult, error)
}

type Provider struct {
	config   config.WebProviderConfig
	research ResearchClient
	logger   logger.Logger
}

func NewProvider(cfg config.WebProviderConfig, research ResearchClient, log logger.Logger) *Provider {
	return &Provider{
		config:   cfg,
		research: research,
		logger:   log.With(map[string]interface{}{"provider": models.ProviderIDWeb}),
	}
}

func (p *Provider) ID() string   { return models.ProviderIDWeb }
func (p *Provider) Name() string { return providerName }

// Search returns zero or one candidates: the research capability's single
// extraction, passed through the shared criteria filter.
func (p *Provider) Search(ctx context.Context, query models.ProductQuery, criteria models.SearchCriteria) ([]models.ProviderResult, error) {
	text := buildLookupText(query)

	found, err := p.research.Lookup(ctx, text)
	if err != nil {
		return nil, err
	}
	if found == nil || found.Title == "" {
		return []models.ProviderResult{}, nil
	}

	origin := p.config.DefaultOrigin
	if criteria.ShipFrom != "" {
		origin = strings.ToUpper(criteria.ShipFrom)
	}

	candidate := models.ProviderResult{
		ProviderID:     models.ProviderIDWeb,
		ProviderName:   providerName,
		ProductID:      "web-" + uuid.NewString(),
		Title:          found.Title,
		Description:    found.Description,
		Price:          parseEstimatedPrice(found.EstimatedPrice),
		Currency:       "USD",
		Images:         []string{},
		ShippingOrigin: origin,
		Specs:          found.Specs,
		RawData: map[string]interface{}{
			"estimatedPrice": found.EstimatedPrice,
			"features":       found.Features,
			"tags":           found.Tags,
		},
	}

	results := providers.ApplyCriteriaFilter([]models.ProviderResult{candidate}, criteria)

	p.logger.Info("web research completed", map[string]interface{}{
		"query": query.Name,
		"kept":  len(results),
	})
	return results, nil
}

// buildLookupText flattens the query into the free-text lookup: name,
// description, then specs in stable key order.
func buildLookupText(query models.ProductQuery) string {
	parts := []string{query.Name}
	if query.Description != "" {
		parts = append(parts, query.Description)
	}

	keys := make([]string, 0, len(query.Specs))
	for k := range query.Specs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, query.Specs[k]))
	}

	return strings.Join(parts, ". ")
}

var priceRe = regexp.MustCompile(`[0-9]+(?:[.,][0-9]+)?`)

// parseEstimatedPrice pulls the first numeric figure out of a free-form price
// string like "$12.99" or "around 15 USD". Returns 0 when nothing parses.
func parseEstimatedPrice(raw string) float64 {
	match := priceRe.FindString(raw)
	if match == "" {
		return 0
	}
	match = strings.ReplaceAll(match, ",", ".")
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0
	}
	return v
}
