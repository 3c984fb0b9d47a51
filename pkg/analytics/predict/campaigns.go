package predict

import (
	"context"
	"math"
	"time"

	"github.com/lucid-vigil/argus/pkg/events"
)

// KillChainPhase is a stage of the attack chain a campaign is operating in.
type KillChainPhase string

const (
	PhaseReconnaissance      KillChainPhase = "reconnaissance"
	PhaseWeaponization       KillChainPhase = "weaponization"
	PhaseDelivery            KillChainPhase = "delivery"
	PhaseExploitation        KillChainPhase = "exploitation"
	PhaseInstallation        KillChainPhase = "installation"
	PhaseCommandAndControl   KillChainPhase = "command-and-control"
	PhaseActionsOnObjectives KillChainPhase = "actions-on-objectives"
)

// CampaignPrediction names a coordinated campaign recognized from an
// indicator cluster, with its current attack-chain phase and an ETA for the
// next phase.
type CampaignPrediction struct {
	Name         string         `json:"name"`
	Confidence   float64        `json:"confidence"`
	Phase        KillChainPhase `json:"phase"`
	NextPhaseETA time.Time      `json:"next_phase_eta"`
	Indicators   []string       `json:"indicators"`
}

// campaignProfile is one entry of the known-campaign catalog.
type campaignProfile struct {
	name           string
	indicatorTypes map[string]bool
	minSize        int
	phase          KillChainPhase
	nextPhaseDelay time.Duration
}

var campaignCatalog = []campaignProfile{
	{
		name:           "credential-harvesting",
		indicatorTypes: map[string]bool{"email": true, "url": true},
		minSize:        2,
		phase:          PhaseDelivery,
		nextPhaseDelay: 48 * time.Hour,
	},
	{
		name:           "infrastructure-staging",
		indicatorTypes: map[string]bool{"ip": true, "domain": true},
		minSize:        3,
		phase:          PhaseWeaponization,
		nextPhaseDelay: 72 * time.Hour,
	},
	{
		name:           "malware-distribution",
		indicatorTypes: map[string]bool{"hash": true},
		minSize:        2,
		phase:          PhaseInstallation,
		nextPhaseDelay: 24 * time.Hour,
	},
	{
		name:           "exploitation-wave",
		indicatorTypes: map[string]bool{"cve": true},
		minSize:        2,
		phase:          PhaseExploitation,
		nextPhaseDelay: 36 * time.Hour,
	},
}

// DetectCampaigns clusters the indicators and resolves each cluster against
// the known-campaign catalog. Clusters that resolve to no campaign are
// silently dropped.
func (p *Predictor) DetectCampaigns(ctx context.Context, indicators []Indicator) []CampaignPrediction {
	var campaigns []CampaignPrediction

	for _, cluster := range clusterIndicators(indicators) {
		campaign, ok := identifyCampaign(cluster)
		if !ok {
			continue
		}
		campaigns = append(campaigns, campaign)

		p.publish(ctx, events.EventCampaignDetected, campaign.Name, "high",
			"Coordinated campaign recognized from indicator cluster", map[string]interface{}{
				"phase":      string(campaign.Phase),
				"confidence": campaign.Confidence,
				"indicators": len(campaign.Indicators),
			})
	}

	p.logger.Debug().
		Int("indicators", len(indicators)).
		Int("campaigns", len(campaigns)).
		Msg("Campaign detection completed")

	return campaigns
}

func identifyCampaign(cluster []Indicator) (CampaignPrediction, bool) {
	if len(cluster) == 0 {
		return CampaignPrediction{}, false
	}

	for _, profile := range campaignCatalog {
		if !profile.indicatorTypes[cluster[0].Type] || len(cluster) < profile.minSize {
			continue
		}

		values := make([]string, len(cluster))
		for i, ind := range cluster {
			values[i] = ind.Value
		}

		return CampaignPrediction{
			Name:         profile.name,
			Confidence:   math.Min(0.5+0.1*float64(len(cluster)), 0.95),
			Phase:        profile.phase,
			NextPhaseETA: time.Now().Add(profile.nextPhaseDelay),
			Indicators:   values,
		}, true
	}

	return CampaignPrediction{}, false
}
