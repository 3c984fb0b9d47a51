package recommend

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucid-vigil/argus/pkg/analytics/graph"
)

type fixedStrategy struct {
	vectors map[string][]float64
}

func (f fixedStrategy) Embed(node graph.Node, neighbors []string) []float64 {
	return f.vectors[node.ID]
}

type stubEnrichments struct{ recs []Recommendation }

func (s stubEnrichments) RecommendEnrichments(ctx context.Context, userID, resourceID, resourceType string) []Recommendation {
	return s.recs
}

type stubPlaybooks struct{ recs []Recommendation }

func (s stubPlaybooks) RecommendPlaybooks(ctx context.Context, userID, resourceID, resourceType string) []Recommendation {
	return s.recs
}

// graphWithIncidents builds a graph engine holding the current incident plus
// n close neighbors and one orthogonal outlier.
func graphWithIncidents(n int) *graph.Engine {
	vectors := map[string][]float64{
		"current": {1, 0},
		"outlier": {0, 1},
	}
	nodes := []graph.Node{
		{ID: "current", Type: "incident"},
		{ID: "outlier", Type: "incident"},
	}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("inc-%d", i)
		vectors[id] = []float64{1, 0.01 * float64(i+1)}
		nodes = append(nodes, graph.Node{ID: id, Type: "incident"})
	}

	e := graph.NewEngine(zerolog.Nop(), fixedStrategy{vectors: vectors}, nil)
	e.ProcessGraph(graph.Graph{Nodes: nodes})
	return e
}

func TestGenerateSimilarItemRecommendations(t *testing.T) {
	engine := NewEngine(zerolog.Nop(), graphWithIncidents(3), nil, nil)

	recs := engine.Generate(context.Background(), "analyst-1", "current", "incident", nil)
	require.Len(t, recs, 3)

	for i, rec := range recs {
		assert.Equal(t, "similar-item", rec.Type)
		assert.NotEqual(t, "current", rec.ResourceID)
		assert.NotEqual(t, "outlier", rec.ResourceID)
		// High similarity maps to high priority.
		assert.Equal(t, "high", rec.Priority)
		if i > 0 {
			assert.GreaterOrEqual(t, recs[i-1].Relevance, rec.Relevance)
		}
	}
}

func TestGenerateCapsSimilarItemsAtFive(t *testing.T) {
	engine := NewEngine(zerolog.Nop(), graphWithIncidents(9), nil, nil)

	recs := engine.Generate(context.Background(), "analyst-1", "current", "incident", nil)
	assert.Len(t, recs, 5)
}

func TestGenerateMergesHookRecommendations(t *testing.T) {
	enrichments := stubEnrichments{recs: []Recommendation{
		{Type: "enrichment-source", ResourceID: "vt", Title: "Query VirusTotal", Priority: "medium", Relevance: 0.99},
	}}
	playbooks := stubPlaybooks{recs: []Recommendation{
		{Type: "playbook", ResourceID: "pb-7", Title: "Run containment playbook", Priority: "high", Relevance: 0.1},
	}}
	engine := NewEngine(zerolog.Nop(), graphWithIncidents(1), enrichments, playbooks)

	recs := engine.Generate(context.Background(), "analyst-1", "current", "incident", nil)
	require.Len(t, recs, 3)

	// Sorted by relevance: the enrichment hook outranks the similar item,
	// the playbook trails.
	assert.Equal(t, "enrichment-source", recs[0].Type)
	assert.Equal(t, "similar-item", recs[1].Type)
	assert.Equal(t, "playbook", recs[2].Type)
}

func TestGenerateUnknownResource(t *testing.T) {
	engine := NewEngine(zerolog.Nop(), graphWithIncidents(2), nil, nil)

	// Missing embedding degrades to an empty set, never an error.
	recs := engine.Generate(context.Background(), "analyst-1", "never-seen", "incident", nil)
	assert.Empty(t, recs)
}
