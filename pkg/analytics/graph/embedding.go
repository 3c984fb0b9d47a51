package graph

import (
	"hash/fnv"
	"math"
)

// Node is one vertex of a relationship graph submitted for analysis.
type Node struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

// Edge is a directed, typed relationship between two nodes.
type Edge struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Type     string `json:"type"`
}

// Graph is a relationship graph of entities under investigation.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Embedding is the fixed-length vector representation of one graph node,
// along with its direct outgoing neighbors and an importance score.
type Embedding struct {
	NodeID     string    `json:"node_id"`
	NodeType   string    `json:"node_type"`
	Vector     []float64 `json:"vector"`
	Neighbors  []string  `json:"neighbors"`
	Importance float64   `json:"importance"`
}

// EmbeddingStrategy produces a node's vector. The default is a deterministic
// stand-in; a trained graph-embedding model can be substituted without
// touching any caller.
type EmbeddingStrategy interface {
	Embed(node Node, neighbors []string) []float64
}

// embeddingDim is the vector length produced by the default strategy.
const embeddingDim = 16

// hashStrategy derives a vector from an FNV hash of the node identity and a
// cheap multiplicative generator. Deterministic, so reprocessing a node
// yields the same vector.
type hashStrategy struct{}

func (hashStrategy) Embed(node Node, neighbors []string) []float64 {
	h := fnv.New64a()
	h.Write([]byte(node.Type))
	h.Write([]byte{0})
	h.Write([]byte(node.ID))
	state := h.Sum64()

	vec := make([]float64, embeddingDim)
	for i := range vec {
		state = state*6364136223846793005 + 1442695040888963407
		vec[i] = float64(state>>11) / float64(1<<53)
	}
	return vec
}

// CosineSimilarity is the normalized dot product of two vectors. It returns
// exactly 0 for vectors of unequal length or zero magnitude instead of
// failing on malformed input.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
