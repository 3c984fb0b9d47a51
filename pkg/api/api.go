// Package api exposes the analytics engine to the dashboard over JSON HTTP.
// Handlers are thin: decode, delegate to the engine, encode. No analytic
// semantics live here.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/lucid-vigil/argus/pkg/analytics"
	"github.com/lucid-vigil/argus/pkg/analytics/baseline"
	"github.com/lucid-vigil/argus/pkg/analytics/graph"
	"github.com/lucid-vigil/argus/pkg/analytics/model"
	"github.com/lucid-vigil/argus/pkg/analytics/predict"
)

// Server serves the analytics API.
type Server struct {
	engine *analytics.Engine
	logger zerolog.Logger
}

// NewServer creates an API server over an engine.
func NewServer(logger zerolog.Logger, engine *analytics.Engine) *Server {
	return &Server{
		engine: engine,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

// Handler returns the route table as an http.Handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.HandleFunc("POST /api/v1/text/extract", s.handleTextExtract)
	mux.HandleFunc("POST /api/v1/text/summarize", s.handleTextSummarize)
	mux.HandleFunc("POST /api/v1/text/tags", s.handleTextTags)
	mux.HandleFunc("POST /api/v1/anomaly/detect", s.handleAnomalyDetect)
	mux.HandleFunc("POST /api/v1/baselines/learn", s.handleBaselineLearn)
	mux.HandleFunc("POST /api/v1/threats/predict", s.handleThreatPredict)
	mux.HandleFunc("POST /api/v1/campaigns/detect", s.handleCampaignDetect)
	mux.HandleFunc("POST /api/v1/graph/patterns", s.handleGraphPatterns)
	mux.HandleFunc("POST /api/v1/graph/relationships", s.handleGraphRelationships)
	mux.HandleFunc("GET /api/v1/similar", s.handleSimilarItems)
	mux.HandleFunc("POST /api/v1/recommendations", s.handleRecommendations)
	mux.HandleFunc("POST /api/v1/models/train", s.handleModelTrain)
	mux.HandleFunc("GET /api/v1/models", s.handleModelList)

	return mux
}

// Start runs the HTTP server until it fails. Intended to be called in its
// own goroutine, matching how the binary wires it.
func (s *Server) Start(port string) {
	s.logger.Info().Msgf("API server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, s.Handler()); err != nil {
		s.logger.Fatal().Err(err).Msg("API server failed to start")
	}
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) handleTextExtract(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.writeJSON(w, map[string]interface{}{
		"iocs":      s.engine.Text.ExtractIOCs(req.Text),
		"entities":  s.engine.Text.ExtractEntities(req.Text),
		"sentiment": s.engine.Text.AnalyzeSentiment(req.Text),
	})
}

func (s *Server) handleTextSummarize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text      string `json:"text"`
		MaxLength int    `json:"max_length"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.writeJSON(w, map[string]string{
		"summary": s.engine.Text.Summarize(req.Text, req.MaxLength),
	})
}

func (s *Server) handleTextTags(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Content      string   `json:"content"`
		ExistingTags []string `json:"existing_tags"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.writeJSON(w, map[string][]string{
		"tags": s.engine.Text.AutoTag(req.Content, req.ExistingTags),
	})
}

func (s *Server) handleAnomalyDetect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityID   string                   `json:"entity_id"`
		EntityType baseline.EntityType      `json:"entity_type"`
		Metrics    baseline.ActivityMetrics `json:"metrics"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.writeJSON(w, s.engine.Anomaly.Detect(r.Context(), req.EntityID, req.EntityType, req.Metrics))
}

func (s *Server) handleBaselineLearn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EntityID   string                     `json:"entity_id"`
		EntityType baseline.EntityType        `json:"entity_type"`
		Samples    []baseline.ActivityMetrics `json:"samples"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	s.writeJSON(w, s.engine.Baselines.Learn(r.Context(), req.EntityID, req.EntityType, req.Samples))
}

func (s *Server) handleThreatPredict(w http.ResponseWriter, r *http.Request) {
	var req struct {
		OrgID          string                  `json:"org_id"`
		Indicators     []predict.Indicator     `json:"indicators"`
		RecentActivity []predict.ActivityEvent `json:"recent_activity"`
		TimeframeHours int                     `json:"timeframe_hours"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	predictions := s.engine.Predict.PredictThreats(r.Context(), req.OrgID, req.Indicators, req.RecentActivity, req.TimeframeHours)
	s.writeJSON(w, map[string]interface{}{"predictions": predictions})
}

func (s *Server) handleCampaignDetect(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Indicators []predict.Indicator `json:"indicators"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	campaigns := s.engine.Predict.DetectCampaigns(r.Context(), req.Indicators)
	s.writeJSON(w, map[string]interface{}{"campaigns": campaigns})
}

func (s *Server) handleGraphPatterns(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Graph graph.Graph `json:"graph"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	patterns := s.engine.Graph.RecognizeAttackPatterns(r.Context(), req.Graph)
	s.writeJSON(w, map[string]interface{}{"patterns": patterns})
}

func (s *Server) handleGraphRelationships(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SourceID   string   `json:"source_id"`
		Candidates []string `json:"candidates"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	predictions := s.engine.Graph.PredictRelationships(req.SourceID, req.Candidates)
	s.writeJSON(w, map[string]interface{}{"predictions": predictions})
}

func (s *Server) handleSimilarItems(w http.ResponseWriter, r *http.Request) {
	itemID := r.URL.Query().Get("item_id")
	itemType := r.URL.Query().Get("item_type")
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 10
	}
	results := s.engine.Graph.FindSimilarItems(itemID, itemType, limit)
	s.writeJSON(w, map[string]interface{}{"results": results})
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID         string   `json:"user_id"`
		ResourceID     string   `json:"resource_id"`
		ResourceType   string   `json:"resource_type"`
		RecentActivity []string `json:"recent_activity"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	recs := s.engine.Recommend.Generate(r.Context(), req.UserID, req.ResourceID, req.ResourceType, req.RecentActivity)
	s.writeJSON(w, map[string]interface{}{"recommendations": recs})
}

func (s *Server) handleModelTrain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Type            model.Type               `json:"type"`
		TrainingData    []map[string]interface{} `json:"training_data"`
		Hyperparameters map[string]interface{}   `json:"hyperparameters"`
		OrgID           string                   `json:"org_id"`
	}
	if !s.decode(w, r, &req) {
		return
	}
	m := s.engine.Models.TrainModel(r.Context(), req.Type, req.TrainingData, req.Hyperparameters, req.OrgID)
	w.WriteHeader(http.StatusAccepted)
	s.encode(w, m)
}

func (s *Server) handleModelList(w http.ResponseWriter, r *http.Request) {
	models := s.engine.Models.ListModels(r.URL.Query().Get("org_id"))
	s.writeJSON(w, map[string]interface{}{"models": models})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		s.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("Rejected malformed request body")
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	s.encode(w, v)
}

func (s *Server) encode(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}
