// Package analytics wires the threat analytics components into one
// explicitly constructed engine. There is no ambient singleton; every
// collaborator is injected through Options.
package analytics

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/lucid-vigil/argus/pkg/analytics/anomaly"
	"github.com/lucid-vigil/argus/pkg/analytics/baseline"
	"github.com/lucid-vigil/argus/pkg/analytics/graph"
	"github.com/lucid-vigil/argus/pkg/analytics/model"
	"github.com/lucid-vigil/argus/pkg/analytics/predict"
	"github.com/lucid-vigil/argus/pkg/analytics/recommend"
	"github.com/lucid-vigil/argus/pkg/analytics/textextract"
	"github.com/lucid-vigil/argus/pkg/events"
)

// Options configures an Engine. Nil fields select safe defaults: no
// persistence, no event bus, deterministic placeholder embeddings, no-op
// recommender hooks.
type Options struct {
	Logger        zerolog.Logger
	ModelRepo     model.Repository
	BaselineRepo  baseline.Repository
	Bus           *events.EventBus
	TrainingDelay time.Duration
	Embeddings    graph.EmbeddingStrategy
	Enrichments   recommend.EnrichmentRecommender
	Playbooks     recommend.PlaybookRecommender
}

// Engine is the threat analytics engine. All exported component operations
// are safe for concurrent callers; each component guards its own state.
type Engine struct {
	Models    *model.Registry
	Baselines *baseline.Store
	Anomaly   *anomaly.Detector
	Text      *textextract.Extractor
	Graph     *graph.Engine
	Predict   *predict.Predictor
	Recommend *recommend.Engine
}

// New constructs an engine from the given options and restores any
// persisted models.
func New(opts Options) *Engine {
	registry := model.NewRegistry(opts.Logger, opts.ModelRepo, opts.Bus, opts.TrainingDelay)
	registry.Restore()

	baselines := baseline.NewStore(opts.Logger, opts.BaselineRepo, opts.Bus)
	graphEngine := graph.NewEngine(opts.Logger, opts.Embeddings, opts.Bus)

	return &Engine{
		Models:    registry,
		Baselines: baselines,
		Anomaly:   anomaly.NewDetector(opts.Logger, baselines, opts.Bus),
		Text:      textextract.NewExtractor(opts.Logger),
		Graph:     graphEngine,
		Predict:   predict.NewPredictor(opts.Logger, registry, opts.Bus),
		Recommend: recommend.NewEngine(opts.Logger, graphEngine, opts.Enrichments, opts.Playbooks),
	}
}
