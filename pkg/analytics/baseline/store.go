package baseline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lucid-vigil/argus/pkg/errors"
	"github.com/lucid-vigil/argus/pkg/events"
)

// Store holds per-entity behavioral baselines in memory, backed by an
// optional repository. Baselines are created lazily with default metrics and
// replaced wholesale by Learn.
type Store struct {
	baselines map[string]*Baseline
	mu        sync.RWMutex
	repo      Repository
	bus       *events.EventBus
	logger    zerolog.Logger
}

// NewStore creates a baseline store. The repository and event bus may be nil.
func NewStore(logger zerolog.Logger, repo Repository, bus *events.EventBus) *Store {
	return &Store{
		baselines: make(map[string]*Baseline),
		repo:      repo,
		bus:       bus,
		logger:    logger.With().Str("component", "baseline_store").Logger(),
	}
}

func key(entityID string, entityType EntityType) string {
	return string(entityType) + ":" + entityID
}

// GetOrCreate returns the baseline for an entity, synthesizing and storing a
// default one when the entity has never been seen. The default has sample
// size 0, so anomaly verdicts built on it carry zero confidence.
func (s *Store) GetOrCreate(entityID string, entityType EntityType) *Baseline {
	k := key(entityID, entityType)

	s.mu.RLock()
	if b, ok := s.baselines[k]; ok {
		s.mu.RUnlock()
		return snapshot(b)
	}
	s.mu.RUnlock()

	// Try the repository before seeding defaults.
	if s.repo != nil {
		if loaded, err := s.repo.LoadBaseline(entityID, entityType); err != nil {
			errors.NewPersistenceError("baseline_store", "load baseline "+k, err).Log(s.logger)
		} else if loaded != nil {
			s.mu.Lock()
			s.baselines[k] = loaded
			s.mu.Unlock()
			return snapshot(loaded)
		}
	}

	b := &Baseline{
		EntityID:   entityID,
		EntityType: entityType,
		Metrics:    defaultMetrics(),
		ComputedAt: time.Now(),
		SampleSize: 0,
	}

	s.mu.Lock()
	// Another caller may have created it while the lock was released.
	if existing, ok := s.baselines[k]; ok {
		s.mu.Unlock()
		return snapshot(existing)
	}
	s.baselines[k] = b
	s.mu.Unlock()

	s.logger.Debug().
		Str("entity_id", entityID).
		Str("entity_type", string(entityType)).
		Msg("Seeded default baseline for unseen entity")

	return snapshot(b)
}

// Learn aggregates historical samples into a fresh baseline, replacing any
// prior record for the entity, and persists it best-effort.
func (s *Store) Learn(ctx context.Context, entityID string, entityType EntityType, samples []ActivityMetrics) *Baseline {
	b := &Baseline{
		EntityID:   entityID,
		EntityType: entityType,
		Metrics:    aggregate(samples),
		ComputedAt: time.Now(),
		SampleSize: len(samples),
	}

	s.mu.Lock()
	s.baselines[key(entityID, entityType)] = b
	s.mu.Unlock()

	s.logger.Info().
		Str("entity_id", entityID).
		Str("entity_type", string(entityType)).
		Int("sample_size", b.SampleSize).
		Msg("Baseline learned from historical samples")

	if s.repo != nil {
		if err := s.repo.SaveBaseline(b); err != nil {
			errors.NewPersistenceError("baseline_store", "save baseline "+key(entityID, entityType), err).Log(s.logger)
		}
	}

	if s.bus != nil {
		err := s.bus.Publish(ctx, events.AnalyticsEvent{
			Type:        events.EventBaselineUpdated,
			Source:      "baseline_store",
			Subject:     entityID,
			Severity:    "low",
			Description: "Behavioral baseline recomputed",
			Data: map[string]interface{}{
				"entity_type": string(entityType),
				"sample_size": b.SampleSize,
			},
		})
		if err != nil {
			s.logger.Warn().Err(err).Str("entity_id", entityID).Msg("Failed to publish baseline event")
		}
	}

	return snapshot(b)
}

// aggregate computes the arithmetic mean of the numeric metrics and the
// union of the categorical ones across all samples.
func aggregate(samples []ActivityMetrics) ActivityMetrics {
	if len(samples) == 0 {
		return defaultMetrics()
	}

	var out ActivityMetrics
	threatTypes := map[string]struct{}{}
	severities := map[string]struct{}{}
	hours := map[int]struct{}{}
	sources := map[string]struct{}{}

	for _, s := range samples {
		out.AvgIOCsPerDay += s.AvgIOCsPerDay
		out.AvgEnrichmentsPerDay += s.AvgEnrichmentsPerDay
		out.AvgConfidenceScore += s.AvgConfidenceScore
		out.AvgResponseTimeMinutes += s.AvgResponseTimeMinutes
		for _, t := range s.CommonThreatTypes {
			threatTypes[t] = struct{}{}
		}
		for _, sev := range s.CommonSeverities {
			severities[sev] = struct{}{}
		}
		for _, h := range s.PeakActivityHours {
			hours[h] = struct{}{}
		}
		for _, src := range s.TypicalDataSources {
			sources[src] = struct{}{}
		}
	}

	n := float64(len(samples))
	out.AvgIOCsPerDay /= n
	out.AvgEnrichmentsPerDay /= n
	out.AvgConfidenceScore /= n
	out.AvgResponseTimeMinutes /= n

	out.CommonThreatTypes = sortedKeys(threatTypes)
	out.CommonSeverities = sortedKeys(severities)
	out.TypicalDataSources = sortedKeys(sources)

	for h := range hours {
		out.PeakActivityHours = append(out.PeakActivityHours, h)
	}
	sort.Ints(out.PeakActivityHours)

	return out
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func snapshot(b *Baseline) *Baseline {
	cp := *b
	cp.Metrics.CommonThreatTypes = append([]string(nil), b.Metrics.CommonThreatTypes...)
	cp.Metrics.CommonSeverities = append([]string(nil), b.Metrics.CommonSeverities...)
	cp.Metrics.PeakActivityHours = append([]int(nil), b.Metrics.PeakActivityHours...)
	cp.Metrics.TypicalDataSources = append([]string(nil), b.Metrics.TypicalDataSources...)
	return &cp
}
