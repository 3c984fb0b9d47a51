package recommend

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/lucid-vigil/argus/pkg/analytics/graph"
)

// maxSimilarItems caps the similar-item portion of a recommendation set.
const maxSimilarItems = 5

// Recommendation is one prioritized suggestion for an analyst.
type Recommendation struct {
	Type       string  `json:"type"` // similar-item, enrichment-source, playbook
	ResourceID string  `json:"resource_id"`
	Title      string  `json:"title"`
	Reason     string  `json:"reason"`
	Priority   string  `json:"priority"` // high, medium, low
	Relevance  float64 `json:"relevance"`
}

// EnrichmentRecommender suggests enrichment sources for a resource. Deployed
// installations plug their own implementation in.
type EnrichmentRecommender interface {
	RecommendEnrichments(ctx context.Context, userID, resourceID, resourceType string) []Recommendation
}

// PlaybookRecommender suggests response playbooks for a resource.
type PlaybookRecommender interface {
	RecommendPlaybooks(ctx context.Context, userID, resourceID, resourceType string) []Recommendation
}

// NoopEnrichmentRecommender is the default hook; it recommends nothing.
type NoopEnrichmentRecommender struct{}

func (NoopEnrichmentRecommender) RecommendEnrichments(ctx context.Context, userID, resourceID, resourceType string) []Recommendation {
	return nil
}

// NoopPlaybookRecommender is the default hook; it recommends nothing.
type NoopPlaybookRecommender struct{}

func (NoopPlaybookRecommender) RecommendPlaybooks(ctx context.Context, userID, resourceID, resourceType string) []Recommendation {
	return nil
}

// Engine ranks similar historical items via the graph engine's embedding
// similarity and merges them with deployment-specific recommender hooks.
type Engine struct {
	graph       *graph.Engine
	enrichments EnrichmentRecommender
	playbooks   PlaybookRecommender
	logger      zerolog.Logger
}

// NewEngine creates a recommendation engine. Nil hooks default to no-ops.
func NewEngine(logger zerolog.Logger, graphEngine *graph.Engine, enrichments EnrichmentRecommender, playbooks PlaybookRecommender) *Engine {
	if enrichments == nil {
		enrichments = NoopEnrichmentRecommender{}
	}
	if playbooks == nil {
		playbooks = NoopPlaybookRecommender{}
	}
	return &Engine{
		graph:       graphEngine,
		enrichments: enrichments,
		playbooks:   playbooks,
		logger:      logger.With().Str("component", "recommendation_engine").Logger(),
	}
}

// Generate combines up to five similar-item recommendations with the
// enrichment and playbook hooks' output, sorted by relevance.
func (e *Engine) Generate(ctx context.Context, userID, currentResourceID, resourceType string, recentActivity []string) []Recommendation {
	var recs []Recommendation

	for _, similar := range e.graph.FindSimilarItems(currentResourceID, resourceType, maxSimilarItems) {
		priority := "medium"
		if similar.Similarity > 0.8 {
			priority = "high"
		}
		recs = append(recs, Recommendation{
			Type:       "similar-item",
			ResourceID: similar.ItemID,
			Title:      fmt.Sprintf("Review related %s %s", similar.ItemType, similar.ItemID),
			Reason:     fmt.Sprintf("%.0f%% similar to the current %s", similar.Similarity*100, resourceType),
			Priority:   priority,
			Relevance:  similar.Similarity,
		})
	}

	recs = append(recs, e.enrichments.RecommendEnrichments(ctx, userID, currentResourceID, resourceType)...)
	recs = append(recs, e.playbooks.RecommendPlaybooks(ctx, userID, currentResourceID, resourceType)...)

	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Relevance > recs[j].Relevance
	})

	e.logger.Debug().
		Str("user_id", userID).
		Str("resource_id", currentResourceID).
		Int("recommendations", len(recs)).
		Msg("Recommendations generated")

	return recs
}
