// Package storage provides the persistence collaborators the analytics
// engine depends on: an in-memory store for tests and ephemeral deployments,
// and a JSON file store with hot reload for operator-managed data.
package storage

import (
	"sync"

	"github.com/lucid-vigil/argus/pkg/analytics/baseline"
	"github.com/lucid-vigil/argus/pkg/analytics/model"
)

// MemoryStore keeps models and baselines in process memory. It implements
// both model.Repository and baseline.Repository.
type MemoryStore struct {
	mu        sync.RWMutex
	models    map[string]*model.AnalyticModel
	baselines map[string]*baseline.Baseline
}

// NewMemoryStore creates an empty in-memory repository.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		models:    make(map[string]*model.AnalyticModel),
		baselines: make(map[string]*baseline.Baseline),
	}
}

func (s *MemoryStore) SaveModel(m *model.AnalyticModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.models[m.ID] = &cp
	return nil
}

func (s *MemoryStore) LoadModels() ([]*model.AnalyticModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.AnalyticModel, 0, len(s.models))
	for _, m := range s.models {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) SaveBaseline(b *baseline.Baseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.baselines[baselineKey(b.EntityID, b.EntityType)] = &cp
	return nil
}

func (s *MemoryStore) LoadBaseline(entityID string, entityType baseline.EntityType) (*baseline.Baseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.baselines[baselineKey(entityID, entityType)]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

func baselineKey(entityID string, entityType baseline.EntityType) string {
	return string(entityType) + ":" + entityID
}
