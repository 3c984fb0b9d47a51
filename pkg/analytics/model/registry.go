package model

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lucid-vigil/argus/pkg/errors"
	"github.com/lucid-vigil/argus/pkg/events"
)

// Registry tracks the lifecycle of analytic models. TrainModel is the only
// asynchronous operation in the engine: it returns a model in training status
// and flips it to ready in the background after trainingDelay, publishing a
// model_trained event. There is no cancellation of an in-flight training run.
type Registry struct {
	models        map[string]*AnalyticModel
	mu            sync.RWMutex
	repo          Repository
	bus           *events.EventBus
	logger        zerolog.Logger
	trainingDelay time.Duration
	rng           *rand.Rand
	rngMu         sync.Mutex
}

// NewRegistry creates a model registry. The repository and event bus may be
// nil; persistence and notifications are then skipped.
func NewRegistry(logger zerolog.Logger, repo Repository, bus *events.EventBus, trainingDelay time.Duration) *Registry {
	if trainingDelay <= 0 {
		trainingDelay = 5 * time.Second
	}
	return &Registry{
		models:        make(map[string]*AnalyticModel),
		repo:          repo,
		bus:           bus,
		logger:        logger.With().Str("component", "model_registry").Logger(),
		trainingDelay: trainingDelay,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Restore loads previously persisted models into the registry. Load failures
// are logged and leave the registry empty.
func (r *Registry) Restore() {
	if r.repo == nil {
		return
	}
	loaded, err := r.repo.LoadModels()
	if err != nil {
		errors.NewPersistenceError("model_registry", "load models", err).Log(r.logger)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range loaded {
		// A model persisted mid-training can never complete; mark it updating
		// so a retrain makes it authoritative again.
		if m.Status == StatusTraining {
			m.Status = StatusUpdating
		}
		r.models[m.ID] = m
	}
	r.logger.Info().Int("count", len(loaded)).Msg("Models restored from repository")
}

// TrainModel creates a model in training status and returns it immediately.
// The transition to ready happens in the background, detached from the
// caller's context: an in-flight training run cannot be cancelled, so a
// short-lived caller (an HTTP request, say) still gets a ready model after
// the delay.
func (r *Registry) TrainModel(ctx context.Context, modelType Type, trainingData []map[string]interface{}, hyperparameters map[string]interface{}, orgID string) *AnalyticModel {
	m := &AnalyticModel{
		ID:              uuid.NewString(),
		Type:            modelType,
		Version:         "1.0.0",
		Status:          StatusTraining,
		TrainingSize:    len(trainingData),
		Hyperparameters: hyperparameters,
		OrgID:           orgID,
	}

	r.mu.Lock()
	r.models[m.ID] = m
	r.mu.Unlock()

	r.logger.Info().
		Str("model_id", m.ID).
		Str("type", string(modelType)).
		Int("training_size", m.TrainingSize).
		Msg("Model training started")

	r.publish(ctx, events.EventTrainingStarted, m, "low", "Model training started")

	go r.completeTraining(context.WithoutCancel(ctx), m.ID)

	return r.snapshot(m)
}

// completeTraining finishes a training run after the configured delay. The
// run always completes; cancellation of in-flight training is not supported.
func (r *Registry) completeTraining(ctx context.Context, modelID string) {
	time.Sleep(r.trainingDelay)

	metrics := r.evaluate()

	r.mu.Lock()
	m, ok := r.models[modelID]
	if !ok {
		r.mu.Unlock()
		return
	}
	m.Status = StatusReady
	m.Metrics = metrics
	m.TrainedAt = time.Now()
	saved := r.snapshot(m)
	r.mu.Unlock()

	r.logger.Info().
		Str("model_id", modelID).
		Str("type", string(saved.Type)).
		Float64("f1_score", saved.Metrics.F1Score).
		Msg("Model training completed")

	r.persist(saved)
	r.publish(ctx, events.EventModelTrained, saved, "low", "Model training completed")
}

// evaluate produces bounded pseudo-evaluation scores. This stands in for a
// real evaluation pipeline; the bounds match the original heuristics.
func (r *Registry) evaluate() QualityMetrics {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()

	accuracy := 0.85 + r.rng.Float64()*0.10
	precision := 0.82 + r.rng.Float64()*0.10
	recall := 0.80 + r.rng.Float64()*0.10
	f1 := 2 * precision * recall / (precision + recall)

	return QualityMetrics{
		Accuracy:  accuracy,
		Precision: precision,
		Recall:    recall,
		F1Score:   f1,
	}
}

// GetModel returns the authoritative ready model for a capability type, or
// nil if none is ready. When several are ready the most recently trained one
// wins, so a retrain becomes authoritative as soon as it completes.
func (r *Registry) GetModel(modelType Type) *AnalyticModel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var best *AnalyticModel
	for _, m := range r.models {
		if m.Type != modelType || m.Status != StatusReady {
			continue
		}
		if best == nil || m.TrainedAt.After(best.TrainedAt) {
			best = m
		}
	}
	if best == nil {
		return nil
	}
	return r.snapshot(best)
}

// ListModels returns models visible to an organization: its own plus global
// models carrying no org tag.
func (r *Registry) ListModels(orgID string) []*AnalyticModel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*AnalyticModel, 0, len(r.models))
	for _, m := range r.models {
		if m.OrgID == "" || m.OrgID == orgID {
			out = append(out, r.snapshot(m))
		}
	}
	return out
}

// DeprecateModel flips a model to deprecated status. Models are never
// physically removed.
func (r *Registry) DeprecateModel(ctx context.Context, modelID string) bool {
	r.mu.Lock()
	m, ok := r.models[modelID]
	if !ok {
		r.mu.Unlock()
		return false
	}
	m.Status = StatusDeprecated
	saved := r.snapshot(m)
	r.mu.Unlock()

	r.logger.Info().Str("model_id", modelID).Msg("Model deprecated")
	r.persist(saved)
	r.publish(ctx, events.EventModelDeprecated, saved, "low", "Model deprecated")
	return true
}

func (r *Registry) persist(m *AnalyticModel) {
	if r.repo == nil {
		return
	}
	if err := r.repo.SaveModel(m); err != nil {
		errors.NewPersistenceError("model_registry", "save model "+m.ID, err).Log(r.logger)
	}
}

func (r *Registry) publish(ctx context.Context, eventType events.EventType, m *AnalyticModel, severity, description string) {
	if r.bus == nil {
		return
	}
	err := r.bus.Publish(ctx, events.AnalyticsEvent{
		Type:        eventType,
		Source:      "model_registry",
		Subject:     m.ID,
		Severity:    severity,
		Description: description,
		Data: map[string]interface{}{
			"model_type": string(m.Type),
			"status":     string(m.Status),
			"org_id":     m.OrgID,
		},
	})
	if err != nil {
		r.logger.Warn().Err(err).Str("model_id", m.ID).Msg("Failed to publish model event")
	}
}

// snapshot returns a copy so callers never share the registry's mutable state.
func (r *Registry) snapshot(m *AnalyticModel) *AnalyticModel {
	cp := *m
	if m.Hyperparameters != nil {
		cp.Hyperparameters = make(map[string]interface{}, len(m.Hyperparameters))
		for k, v := range m.Hyperparameters {
			cp.Hyperparameters[k] = v
		}
	}
	return &cp
}
