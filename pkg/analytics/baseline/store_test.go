package baseline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu      sync.Mutex
	saved   map[string]*Baseline
	saveErr error
	loadErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{saved: make(map[string]*Baseline)}
}

func (f *fakeRepo) SaveBaseline(b *Baseline) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved[string(b.EntityType)+":"+b.EntityID] = b
	return nil
}

func (f *fakeRepo) LoadBaseline(entityID string, entityType EntityType) (*Baseline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.saved[string(entityType)+":"+entityID], nil
}

func TestGetOrCreateSeedsDefaults(t *testing.T) {
	store := NewStore(zerolog.Nop(), nil, nil)

	b := store.GetOrCreate("analyst-7", EntityUser)
	require.NotNil(t, b)
	assert.Equal(t, "analyst-7", b.EntityID)
	assert.Equal(t, EntityUser, b.EntityType)
	assert.Equal(t, 0, b.SampleSize)
	assert.Equal(t, 10.0, b.Metrics.AvgIOCsPerDay)
	assert.Equal(t, 25.0, b.Metrics.AvgEnrichmentsPerDay)
	assert.Equal(t, 0.75, b.Metrics.AvgConfidenceScore)
	assert.Equal(t, 45.0, b.Metrics.AvgResponseTimeMinutes)
	assert.Contains(t, b.Metrics.PeakActivityHours, 9)
	assert.Contains(t, b.Metrics.PeakActivityHours, 17)

	// Second lookup returns the stored record, not a new seed.
	again := store.GetOrCreate("analyst-7", EntityUser)
	assert.Equal(t, b.ComputedAt, again.ComputedAt)
}

func TestLearnThenGetRoundTrip(t *testing.T) {
	store := NewStore(zerolog.Nop(), nil, nil)

	samples := []ActivityMetrics{
		{AvgIOCsPerDay: 20, AvgEnrichmentsPerDay: 40, AvgConfidenceScore: 0.8, AvgResponseTimeMinutes: 30,
			CommonThreatTypes: []string{"malware"}, PeakActivityHours: []int{8, 9}},
		{AvgIOCsPerDay: 40, AvgEnrichmentsPerDay: 60, AvgConfidenceScore: 0.6, AvgResponseTimeMinutes: 50,
			CommonThreatTypes: []string{"phishing"}, PeakActivityHours: []int{9, 10}},
	}

	learned := store.Learn(context.Background(), "corp-net", EntityNetworkAddress, samples)
	assert.Equal(t, 2, learned.SampleSize)
	assert.Equal(t, 30.0, learned.Metrics.AvgIOCsPerDay)
	assert.Equal(t, 50.0, learned.Metrics.AvgEnrichmentsPerDay)
	assert.InDelta(t, 0.7, learned.Metrics.AvgConfidenceScore, 1e-9)
	assert.Equal(t, 40.0, learned.Metrics.AvgResponseTimeMinutes)
	assert.ElementsMatch(t, []string{"malware", "phishing"}, learned.Metrics.CommonThreatTypes)
	assert.Equal(t, []int{8, 9, 10}, learned.Metrics.PeakActivityHours)

	// The learned baseline, not the default, is returned afterwards.
	got := store.GetOrCreate("corp-net", EntityNetworkAddress)
	assert.Equal(t, 30.0, got.Metrics.AvgIOCsPerDay)
	assert.Equal(t, 2, got.SampleSize)
}

func TestLearnPersistsAndLoadPrefersRepository(t *testing.T) {
	repo := newFakeRepo()
	store := NewStore(zerolog.Nop(), repo, nil)

	store.Learn(context.Background(), "evil.example", EntityDomainName, []ActivityMetrics{{AvgIOCsPerDay: 5}})
	assert.Len(t, repo.saved, 1)

	// A fresh store hydrates from the repository instead of seeding defaults.
	fresh := NewStore(zerolog.Nop(), repo, nil)
	b := fresh.GetOrCreate("evil.example", EntityDomainName)
	assert.Equal(t, 5.0, b.Metrics.AvgIOCsPerDay)
	assert.Equal(t, 1, b.SampleSize)
}

func TestPersistenceFailureDoesNotFailLearn(t *testing.T) {
	repo := newFakeRepo()
	repo.saveErr = errors.New("repository offline")
	store := NewStore(zerolog.Nop(), repo, nil)

	learned := store.Learn(context.Background(), "org-1", EntityOrganization, []ActivityMetrics{{AvgIOCsPerDay: 12}})
	require.NotNil(t, learned)
	assert.Equal(t, 12.0, learned.Metrics.AvgIOCsPerDay)

	// In-memory state survives the failed save.
	got := store.GetOrCreate("org-1", EntityOrganization)
	assert.Equal(t, 12.0, got.Metrics.AvgIOCsPerDay)
}

func TestLearnWithNoSamplesFallsBackToDefaults(t *testing.T) {
	store := NewStore(zerolog.Nop(), nil, nil)

	learned := store.Learn(context.Background(), "u1", EntityUser, nil)
	assert.Equal(t, 0, learned.SampleSize)
	assert.Equal(t, 10.0, learned.Metrics.AvgIOCsPerDay)
}
