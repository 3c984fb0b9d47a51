package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/lucid-vigil/argus/pkg/events"
)

// Thresholds for the similarity-driven operations. All comparisons are
// strictly greater-than, so a value exactly at a threshold is excluded.
const (
	patternMatchThreshold  = 0.6
	relationshipThreshold  = 0.6
	similarItemThreshold   = 0.5
	relationshipConfidence = 0.75
)

// Engine builds per-node embeddings from relationship graphs and performs
// attack pattern matching and relationship prediction via vector similarity.
// Embeddings live in memory for the lifetime of the engine; reprocessing a
// node overwrites its entry and nothing is ever evicted.
type Engine struct {
	embeddings map[string]*Embedding
	mu         sync.RWMutex
	strategy   EmbeddingStrategy
	templates  []PatternTemplate
	bus        *events.EventBus
	logger     zerolog.Logger
}

// NewEngine creates a graph pattern engine. A nil strategy selects the
// deterministic default; the bus may be nil.
func NewEngine(logger zerolog.Logger, strategy EmbeddingStrategy, bus *events.EventBus) *Engine {
	if strategy == nil {
		strategy = hashStrategy{}
	}
	return &Engine{
		embeddings: make(map[string]*Embedding),
		strategy:   strategy,
		templates:  defaultPatternTemplates(),
		bus:        bus,
		logger:     logger.With().Str("component", "graph_engine").Logger(),
	}
}

// ProcessGraph embeds every node of the graph, overwriting any existing
// embeddings for the same node IDs.
func (e *Engine) ProcessGraph(g Graph) {
	neighbors := make(map[string][]string, len(g.Nodes))
	degree := make(map[string]int, len(g.Nodes))
	for _, edge := range g.Edges {
		neighbors[edge.SourceID] = append(neighbors[edge.SourceID], edge.TargetID)
		degree[edge.SourceID]++
		degree[edge.TargetID]++
	}

	maxDegree := 0
	for _, d := range degree {
		if d > maxDegree {
			maxDegree = d
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, node := range g.Nodes {
		importance := 0.0
		if maxDegree > 0 {
			importance = float64(degree[node.ID]) / float64(maxDegree)
		}
		e.embeddings[node.ID] = &Embedding{
			NodeID:     node.ID,
			NodeType:   node.Type,
			Vector:     e.strategy.Embed(node, neighbors[node.ID]),
			Neighbors:  append([]string(nil), neighbors[node.ID]...),
			Importance: importance,
		}
	}

	e.logger.Debug().
		Int("nodes", len(g.Nodes)).
		Int("edges", len(g.Edges)).
		Msg("Graph processed into embeddings")
}

// GetEmbedding returns the stored embedding for a node, or nil.
func (e *Engine) GetEmbedding(nodeID string) *Embedding {
	e.mu.RLock()
	defer e.mu.RUnlock()
	emb, ok := e.embeddings[nodeID]
	if !ok {
		return nil
	}
	cp := *emb
	cp.Vector = append([]float64(nil), emb.Vector...)
	cp.Neighbors = append([]string(nil), emb.Neighbors...)
	return &cp
}

// RecognizeAttackPatterns embeds the graph and compares it against the
// built-in attack pattern templates, keeping matches whose confidence
// exceeds 0.6.
func (e *Engine) RecognizeAttackPatterns(ctx context.Context, g Graph) []AttackPatternMatch {
	e.ProcessGraph(g)

	var matches []AttackPatternMatch
	for _, tmpl := range e.templates {
		match := tmpl.match(g)
		if match.Confidence > patternMatchThreshold {
			matches = append(matches, match)
			e.publishPattern(ctx, match)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})
	return matches
}

func (e *Engine) publishPattern(ctx context.Context, match AttackPatternMatch) {
	if e.bus == nil {
		return
	}
	err := e.bus.Publish(ctx, events.AnalyticsEvent{
		Type:        events.EventPatternRecognized,
		Source:      "graph_engine",
		Subject:     match.PatternName,
		Severity:    match.Severity,
		Description: match.Description,
		Data: map[string]interface{}{
			"confidence":    match.Confidence,
			"matched_nodes": match.MatchedNodes,
		},
	})
	if err != nil {
		e.logger.Warn().Err(err).Str("pattern", match.PatternName).Msg("Failed to publish pattern event")
	}
}

// RelationshipPrediction forecasts a likely but unobserved edge between two
// nodes.
type RelationshipPrediction struct {
	SourceID    string   `json:"source_id"`
	TargetID    string   `json:"target_id"`
	Probability float64  `json:"probability"`
	Confidence  float64  `json:"confidence"`
	Evidence    []string `json:"evidence"`
}

// PredictRelationships scores each candidate target against the source by
// cosine similarity, keeping candidates above 0.6. Candidates without a
// known embedding are skipped; an unknown source yields an empty result.
func (e *Engine) PredictRelationships(sourceID string, candidateTargetIDs []string) []RelationshipPrediction {
	e.mu.RLock()
	defer e.mu.RUnlock()

	source, ok := e.embeddings[sourceID]
	if !ok {
		return nil
	}

	var predictions []RelationshipPrediction
	for _, targetID := range candidateTargetIDs {
		if targetID == sourceID {
			continue
		}
		target, ok := e.embeddings[targetID]
		if !ok {
			continue
		}

		similarity := CosineSimilarity(source.Vector, target.Vector)
		if similarity <= relationshipThreshold {
			continue
		}

		shared := sharedNeighbors(source.Neighbors, target.Neighbors)
		predictions = append(predictions, RelationshipPrediction{
			SourceID:    sourceID,
			TargetID:    targetID,
			Probability: similarity,
			Confidence:  relationshipConfidence,
			Evidence: []string{
				fmt.Sprintf("embedding similarity %.0f%%", similarity*100),
				fmt.Sprintf("%d shared neighbors", shared),
			},
		})
	}

	sort.Slice(predictions, func(i, j int) bool {
		return predictions[i].Probability > predictions[j].Probability
	})
	return predictions
}

// SimilarityResult is one item ranked by embedding closeness.
type SimilarityResult struct {
	ItemID     string  `json:"item_id"`
	ItemType   string  `json:"item_type"`
	Similarity float64 `json:"similarity"`
}

// FindSimilarItems compares an item's embedding against all other embeddings
// of the same type, keeping those with similarity above 0.5, sorted
// descending and truncated to limit. The queried item itself is never
// included.
func (e *Engine) FindSimilarItems(itemID, itemType string, limit int) []SimilarityResult {
	e.mu.RLock()
	defer e.mu.RUnlock()

	source, ok := e.embeddings[itemID]
	if !ok {
		return nil
	}

	var results []SimilarityResult
	for id, emb := range e.embeddings {
		if id == itemID || emb.NodeType != itemType {
			continue
		}
		similarity := CosineSimilarity(source.Vector, emb.Vector)
		if similarity <= similarItemThreshold {
			continue
		}
		results = append(results, SimilarityResult{
			ItemID:     id,
			ItemType:   emb.NodeType,
			Similarity: similarity,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results
}

func sharedNeighbors(a, b []string) int {
	set := make(map[string]struct{}, len(a))
	for _, n := range a {
		set[n] = struct{}{}
	}
	count := 0
	for _, n := range b {
		if _, ok := set[n]; ok {
			count++
		}
	}
	return count
}
