package baseline

import (
	"time"
)

// EntityType identifies what kind of entity a baseline belongs to.
type EntityType string

const (
	EntityUser           EntityType = "user"
	EntityNetworkAddress EntityType = "network-address"
	EntityDomainName     EntityType = "domain-name"
	EntityOrganization   EntityType = "organization"
)

// ActivityMetrics is an aggregated snapshot of entity behavior. A zero value
// on a numeric field means the metric was not observed for that period.
type ActivityMetrics struct {
	AvgIOCsPerDay          float64  `json:"avg_iocs_per_day"`
	AvgEnrichmentsPerDay   float64  `json:"avg_enrichments_per_day"`
	AvgConfidenceScore     float64  `json:"avg_confidence_score"`
	AvgResponseTimeMinutes float64  `json:"avg_response_time_minutes"`
	CommonThreatTypes      []string `json:"common_threat_types,omitempty"`
	CommonSeverities       []string `json:"common_severities,omitempty"`
	PeakActivityHours      []int    `json:"peak_activity_hours,omitempty"`
	TypicalDataSources     []string `json:"typical_data_sources,omitempty"`
}

// Baseline is a per-entity rolling summary of normal behavior, the reference
// point for anomaly scoring.
type Baseline struct {
	EntityID   string          `json:"entity_id"`
	EntityType EntityType      `json:"entity_type"`
	Metrics    ActivityMetrics `json:"metrics"`
	ComputedAt time.Time       `json:"computed_at"`
	SampleSize int             `json:"sample_size"`
}

// Repository is the abstract persistence collaborator for baselines.
// Failures are logged by the store and never surfaced to callers.
type Repository interface {
	SaveBaseline(b *Baseline) error
	LoadBaseline(entityID string, entityType EntityType) (*Baseline, error)
}

// defaultMetrics are the conservative seed values used when an entity is
// checked before any history has been learned.
func defaultMetrics() ActivityMetrics {
	return ActivityMetrics{
		AvgIOCsPerDay:          10,
		AvgEnrichmentsPerDay:   25,
		AvgConfidenceScore:     0.75,
		AvgResponseTimeMinutes: 45,
		CommonThreatTypes:      []string{"malware", "phishing"},
		CommonSeverities:       []string{"medium"},
		PeakActivityHours:      []int{9, 10, 11, 12, 13, 14, 15, 16, 17},
		TypicalDataSources:     []string{"osint"},
	}
}
