package model

import (
	"time"
)

// Type identifies the capability an analytic model provides.
type Type string

const (
	TypeAnomalyDetection        Type = "anomaly-detection"
	TypeThreatPrediction        Type = "threat-prediction"
	TypeIndicatorClassification Type = "indicator-classification"
	TypeCampaignClustering      Type = "campaign-clustering"
	TypeTextExtraction          Type = "text-extraction"
	TypeRecommendation          Type = "recommendation"
	TypeGraphEmbedding          Type = "graph-embedding"
)

// Status is the lifecycle state of a model.
type Status string

const (
	StatusTraining   Status = "training"
	StatusReady      Status = "ready"
	StatusUpdating   Status = "updating"
	StatusDeprecated Status = "deprecated"
)

// QualityMetrics are the evaluation scores attached to a model when its
// training run completes. All values are in [0,1].
type QualityMetrics struct {
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1Score   float64 `json:"f1_score"`
}

// AnalyticModel describes one named analytic model tracked by the registry.
// Models are never deleted; deprecation is a status value only.
type AnalyticModel struct {
	ID              string                 `json:"id"`
	Type            Type                   `json:"type"`
	Version         string                 `json:"version"`
	Status          Status                 `json:"status"`
	Metrics         QualityMetrics         `json:"metrics"`
	TrainedAt       time.Time              `json:"trained_at"`
	TrainingSize    int                    `json:"training_size"`
	Hyperparameters map[string]interface{} `json:"hyperparameters,omitempty"`
	OrgID           string                 `json:"org_id,omitempty"` // empty means global
}

// Repository is the abstract persistence collaborator for models. Save/load
// failures are logged by the registry and never surfaced to API callers.
type Repository interface {
	SaveModel(m *AnalyticModel) error
	LoadModels() ([]*AnalyticModel, error)
}
