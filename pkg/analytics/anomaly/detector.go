package anomaly

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lucid-vigil/argus/pkg/analytics/baseline"
	"github.com/lucid-vigil/argus/pkg/events"
)

// anomalyThreshold is the score above which (strictly) an entity is flagged.
const anomalyThreshold = 0.7

// Result is the verdict for one anomaly check. BaselineDeviation equals
// AnomalyScore; both are computed by the same deviation function.
type Result struct {
	EntityID          string   `json:"entity_id"`
	EntityType        string   `json:"entity_type"`
	IsAnomaly         bool     `json:"is_anomaly"`
	AnomalyScore      float64  `json:"anomaly_score"`
	AnomalyType       string   `json:"anomaly_type"`
	Reasons           []string `json:"reasons"`
	BaselineDeviation float64  `json:"baseline_deviation"`
	Confidence        float64  `json:"confidence"`
	Recommendations   []string `json:"recommendations"`
}

// Detector scores current entity activity against its behavioral baseline.
type Detector struct {
	baselines *baseline.Store
	bus       *events.EventBus
	logger    zerolog.Logger
}

// NewDetector creates an anomaly detector on top of a baseline store.
func NewDetector(logger zerolog.Logger, baselines *baseline.Store, bus *events.EventBus) *Detector {
	return &Detector{
		baselines: baselines,
		bus:       bus,
		logger:    logger.With().Str("component", "anomaly_detector").Logger(),
	}
}

// Detect compares current metrics to the entity's baseline. It never returns
// an error: missing metrics are skipped and unseen entities are scored
// against the default baseline.
func (d *Detector) Detect(ctx context.Context, entityID string, entityType baseline.EntityType, current baseline.ActivityMetrics) Result {
	b := d.baselines.GetOrCreate(entityID, entityType)

	score := deviationScore(current, b.Metrics)
	reasons := deriveReasons(current, b.Metrics)

	result := Result{
		EntityID:          entityID,
		EntityType:        string(entityType),
		IsAnomaly:         score > anomalyThreshold,
		AnomalyScore:      score,
		AnomalyType:       classifyAnomalyType(reasons),
		Reasons:           reasons,
		BaselineDeviation: deviationScore(current, b.Metrics),
		Confidence:        math.Min(float64(b.SampleSize)/1000, 0.95),
		Recommendations:   remediation(reasons),
	}

	d.logger.Debug().
		Str("entity_id", entityID).
		Str("entity_type", string(entityType)).
		Float64("score", score).
		Bool("is_anomaly", result.IsAnomaly).
		Msg("Anomaly check completed")

	if result.IsAnomaly && d.bus != nil {
		err := d.bus.Publish(ctx, events.AnalyticsEvent{
			Type:        events.EventAnomalyDetected,
			Source:      "anomaly_detector",
			Subject:     entityID,
			Severity:    "high",
			Description: "Entity activity deviates from its behavioral baseline",
			Data: map[string]interface{}{
				"entity_type":   string(entityType),
				"anomaly_score": score,
				"anomaly_type":  result.AnomalyType,
				"reasons":       reasons,
			},
		})
		if err != nil {
			d.logger.Warn().Err(err).Str("entity_id", entityID).Msg("Failed to publish anomaly event")
		}
	}

	return result
}

// deviationScore is the mean of per-metric relative deviations, each capped
// at 1. A metric participates only when it was reported (non-zero) and the
// baseline counterpart is non-zero. Result is always in [0,1].
func deviationScore(current, base baseline.ActivityMetrics) float64 {
	type pair struct{ cur, base float64 }
	pairs := []pair{
		{current.AvgIOCsPerDay, base.AvgIOCsPerDay},
		{current.AvgEnrichmentsPerDay, base.AvgEnrichmentsPerDay},
		{current.AvgConfidenceScore, base.AvgConfidenceScore},
		{current.AvgResponseTimeMinutes, base.AvgResponseTimeMinutes},
	}

	var sum float64
	var count int
	for _, p := range pairs {
		if p.cur == 0 || p.base == 0 {
			continue
		}
		sum += math.Min(math.Abs(p.cur-p.base)/p.base, 1)
		count++
	}

	if count == 0 {
		return 0
	}
	return sum / float64(count)
}

// deriveReasons produces human-readable explanations independently of the
// numeric score.
func deriveReasons(current, base baseline.ActivityMetrics) []string {
	var reasons []string

	if base.AvgIOCsPerDay > 0 && current.AvgIOCsPerDay > 2*base.AvgIOCsPerDay {
		reasons = append(reasons, fmt.Sprintf(
			"unusually high indicator volume: %.1f per day against a baseline of %.1f",
			current.AvgIOCsPerDay, base.AvgIOCsPerDay))
	}

	if base.AvgConfidenceScore > 0 && current.AvgConfidenceScore > 0 &&
		current.AvgConfidenceScore < 0.7*base.AvgConfidenceScore {
		reasons = append(reasons, fmt.Sprintf(
			"lower than normal confidence: %.2f against a baseline of %.2f",
			current.AvgConfidenceScore, base.AvgConfidenceScore))
	}

	return reasons
}

// classifyAnomalyType keyword-matches the reasons: volume-related deviations
// are statistical, time-related ones temporal, everything else behavioral.
func classifyAnomalyType(reasons []string) string {
	for _, r := range reasons {
		if strings.Contains(r, "volume") {
			return "statistical"
		}
	}
	for _, r := range reasons {
		if strings.Contains(r, "hour") || strings.Contains(r, "time") {
			return "temporal"
		}
	}
	return "behavioral"
}

func remediation(reasons []string) []string {
	var recs []string
	for _, r := range reasons {
		switch {
		case strings.Contains(r, "volume"):
			recs = append(recs, "Investigate the source of the increased indicator volume")
		case strings.Contains(r, "confidence"):
			recs = append(recs, "Review data source quality and enrichment coverage")
		}
	}
	if len(recs) == 0 {
		recs = append(recs, "No immediate action required")
	}
	return recs
}
