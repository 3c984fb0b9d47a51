package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/lucid-vigil/argus/pkg/analytics/baseline"
	"github.com/lucid-vigil/argus/pkg/analytics/model"
)

const (
	modelsFile    = "models.json"
	baselinesFile = "baselines.json"
)

// FileStore persists models and baselines as JSON files under a data
// directory and can watch the directory for edits made outside the process,
// reloading its in-memory view when a file changes on disk.
type FileStore struct {
	dir       string
	mu        sync.RWMutex
	models    map[string]*model.AnalyticModel
	baselines map[string]*baseline.Baseline
	logger    zerolog.Logger
}

// NewFileStore creates a file-backed repository rooted at dir, creating the
// directory if needed and loading any existing records.
func NewFileStore(logger zerolog.Logger, dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	s := &FileStore{
		dir:       dir,
		models:    make(map[string]*model.AnalyticModel),
		baselines: make(map[string]*baseline.Baseline),
		logger:    logger.With().Str("component", "file_store").Logger(),
	}
	s.reloadModels()
	s.reloadBaselines()
	return s, nil
}

func (s *FileStore) SaveModel(m *model.AnalyticModel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.models[m.ID] = &cp
	return s.writeFile(modelsFile, s.models)
}

func (s *FileStore) LoadModels() ([]*model.AnalyticModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.AnalyticModel, 0, len(s.models))
	for _, m := range s.models {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (s *FileStore) SaveBaseline(b *baseline.Baseline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *b
	s.baselines[baselineKey(b.EntityID, b.EntityType)] = &cp
	return s.writeFile(baselinesFile, s.baselines)
}

func (s *FileStore) LoadBaseline(entityID string, entityType baseline.EntityType) (*baseline.Baseline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.baselines[baselineKey(entityID, entityType)]
	if !ok {
		return nil, nil
	}
	cp := *b
	return &cp, nil
}

// writeFile marshals v and replaces the target atomically. Callers hold the
// write lock.
func (s *FileStore) writeFile(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	tmp := filepath.Join(s.dir, name+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filepath.Join(s.dir, name))
}

func (s *FileStore) reloadModels() {
	data, err := os.ReadFile(filepath.Join(s.dir, modelsFile))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Msg("Failed to read models file")
		}
		return
	}

	loaded := make(map[string]*model.AnalyticModel)
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.Warn().Err(err).Msg("Malformed models file, keeping current records")
		return
	}

	s.mu.Lock()
	s.models = loaded
	s.mu.Unlock()
	s.logger.Debug().Int("count", len(loaded)).Msg("Models reloaded from disk")
}

func (s *FileStore) reloadBaselines() {
	data, err := os.ReadFile(filepath.Join(s.dir, baselinesFile))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Msg("Failed to read baselines file")
		}
		return
	}

	loaded := make(map[string]*baseline.Baseline)
	if err := json.Unmarshal(data, &loaded); err != nil {
		s.logger.Warn().Err(err).Msg("Malformed baselines file, keeping current records")
		return
	}

	s.mu.Lock()
	s.baselines = loaded
	s.mu.Unlock()
	s.logger.Debug().Int("count", len(loaded)).Msg("Baselines reloaded from disk")
}

// Watch reloads records when the data files change on disk, letting an
// operator edit or drop in files while the service runs. It blocks until the
// context is cancelled.
func (s *FileStore) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(s.dir); err != nil {
		return err
	}
	s.logger.Info().Str("dir", s.dir).Msg("Watching data directory for changes")

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			switch filepath.Base(event.Name) {
			case modelsFile:
				s.reloadModels()
			case baselinesFile:
				s.reloadBaselines()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn().Err(err).Msg("Watcher error")
		}
	}
}
