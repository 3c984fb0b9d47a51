package predict

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lucid-vigil/argus/pkg/analytics/model"
	"github.com/lucid-vigil/argus/pkg/events"
)

// probabilityThreshold filters predictions: only strictly greater survives.
const probabilityThreshold = 0.5

// maxPredictions caps the result set after sorting.
const maxPredictions = 10

// Indicator is one observable fed into prediction.
type Indicator struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Value      string    `json:"value"`
	Severity   string    `json:"severity"`
	Confidence float64   `json:"confidence"`
	Source     string    `json:"source,omitempty"`
	FirstSeen  time.Time `json:"first_seen,omitempty"`
}

// ActivityEvent is one recent activity record for the organization.
type ActivityEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType string    `json:"event_type"`
	EntityID  string    `json:"entity_id"`
}

// TimeWindow is the finite future window a prediction applies to.
type TimeWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ThreatPrediction is a forward-looking threat judgment for one indicator
// pattern.
type ThreatPrediction struct {
	ID          string     `json:"id"`
	OrgID       string     `json:"org_id,omitempty"`
	ThreatType  string     `json:"threat_type"`
	Probability float64    `json:"probability"`
	Severity    string     `json:"severity"`
	Window      TimeWindow `json:"window"`
	Indicators  []string   `json:"indicators"`
	GeneratedAt time.Time  `json:"generated_at"`
}

// Predictor derives threat and campaign predictions from indicator sets. It
// requires a ready threat-prediction model and degrades to empty results
// when none exists.
type Predictor struct {
	registry *model.Registry
	bus      *events.EventBus
	logger   zerolog.Logger
}

// NewPredictor creates a threat prediction engine.
func NewPredictor(logger zerolog.Logger, registry *model.Registry, bus *events.EventBus) *Predictor {
	return &Predictor{
		registry: registry,
		bus:      bus,
		logger:   logger.With().Str("component", "threat_predictor").Logger(),
	}
}

// PredictThreats generates one prediction per indicator pattern, drops
// anything with probability at or below 0.5, and returns at most 10 results
// sorted descending by probability. A missing ready model is not an error;
// it yields an empty result set.
func (p *Predictor) PredictThreats(ctx context.Context, orgID string, indicators []Indicator, recentActivity []ActivityEvent, timeframeHours int) []ThreatPrediction {
	if p.registry.GetModel(model.TypeThreatPrediction) == nil {
		p.logger.Debug().Msg("No ready threat-prediction model, returning empty result")
		return nil
	}
	if timeframeHours <= 0 {
		timeframeHours = 24
	}

	activityBoost := math.Min(float64(len(recentActivity))/1000, 0.1)
	now := time.Now()

	var predictions []ThreatPrediction
	for _, cluster := range clusterIndicators(indicators) {
		probability := clusterProbability(cluster) + activityBoost
		if probability > 0.95 {
			probability = 0.95
		}
		if probability <= probabilityThreshold {
			continue
		}

		values := make([]string, len(cluster))
		for i, ind := range cluster {
			values[i] = ind.Value
		}

		predictions = append(predictions, ThreatPrediction{
			ID:          uuid.NewString(),
			OrgID:       orgID,
			ThreatType:  threatTypeFor(cluster[0].Type),
			Probability: probability,
			Severity:    severityFor(probability),
			Window: TimeWindow{
				Start: now,
				End:   now.Add(time.Duration(timeframeHours) * time.Hour),
			},
			Indicators:  values,
			GeneratedAt: now,
		})
	}

	sort.Slice(predictions, func(i, j int) bool {
		return predictions[i].Probability > predictions[j].Probability
	})
	if len(predictions) > maxPredictions {
		predictions = predictions[:maxPredictions]
	}

	p.logger.Debug().
		Str("org_id", orgID).
		Int("indicators", len(indicators)).
		Int("predictions", len(predictions)).
		Msg("Threat prediction completed")

	for _, pred := range predictions {
		p.publish(ctx, events.EventThreatPredicted, pred.ThreatType, pred.Severity,
			"Threat predicted from indicator pattern", map[string]interface{}{
				"probability": pred.Probability,
				"org_id":      orgID,
			})
	}

	return predictions
}

// clusterIndicators groups the indicator set into candidate patterns. The
// grouping is a type-bucketed threshold scheme standing in for a trained
// clustering model; callers only see the clusters.
func clusterIndicators(indicators []Indicator) [][]Indicator {
	buckets := make(map[string][]Indicator)
	for _, ind := range indicators {
		buckets[ind.Type] = append(buckets[ind.Type], ind)
	}

	types := make([]string, 0, len(buckets))
	for t := range buckets {
		types = append(types, t)
	}
	sort.Strings(types)

	clusters := make([][]Indicator, 0, len(types))
	for _, t := range types {
		clusters = append(clusters, buckets[t])
	}
	return clusters
}

// clusterProbability scores a cluster from its size and the average
// confidence of its members, bounded to [0,0.95].
func clusterProbability(cluster []Indicator) float64 {
	size := len(cluster)
	if size == 0 {
		return 0
	}

	var confSum float64
	for _, ind := range cluster {
		confSum += ind.Confidence
	}
	avgConf := confSum / float64(size)

	sizeFactor := float64(size)
	if sizeFactor > 5 {
		sizeFactor = 5
	}

	probability := 0.35 + 0.06*sizeFactor + 0.25*avgConf
	return math.Min(probability, 0.95)
}

func threatTypeFor(indicatorType string) string {
	switch indicatorType {
	case "ip":
		return "network-intrusion"
	case "domain":
		return "phishing-infrastructure"
	case "url":
		return "drive-by-compromise"
	case "email":
		return "phishing"
	case "hash":
		return "malware-delivery"
	case "cve":
		return "vulnerability-exploitation"
	default:
		return "suspicious-activity"
	}
}

func severityFor(probability float64) string {
	switch {
	case probability > 0.8:
		return "high"
	case probability > 0.65:
		return "medium"
	default:
		return "low"
	}
}

func (p *Predictor) publish(ctx context.Context, eventType events.EventType, subject, severity, description string, data map[string]interface{}) {
	if p.bus == nil {
		return
	}
	err := p.bus.Publish(ctx, events.AnalyticsEvent{
		Type:        eventType,
		Source:      "threat_predictor",
		Subject:     subject,
		Severity:    severity,
		Description: description,
		Data:        data,
	})
	if err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("Failed to publish prediction event")
	}
}
