package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lucid-vigil/argus/pkg/analytics"
	"github.com/lucid-vigil/argus/pkg/storage"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	engine := analytics.New(analytics.Options{
		Logger:        zerolog.Nop(),
		ModelRepo:     storage.NewMemoryStore(),
		BaselineRepo:  storage.NewMemoryStore(),
		TrainingDelay: 10 * time.Millisecond,
	})
	ts := httptest.NewServer(NewServer(zerolog.Nop(), engine).Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTextExtractEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/text/extract", map[string]string{
		"text": "Contact 8.8.8.8 about malware.com",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeBody(t, resp)
	iocs, ok := out["iocs"].([]interface{})
	require.True(t, ok)
	assert.Len(t, iocs, 2)
	assert.Contains(t, out, "sentiment")
}

func TestAnomalyDetectEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/anomaly/detect", map[string]interface{}{
		"entity_id":   "user-1",
		"entity_type": "user",
		"metrics": map[string]interface{}{
			"avg_iocs_per_day": 10.0,
		},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeBody(t, resp)
	assert.Equal(t, false, out["is_anomaly"])
	assert.Contains(t, out, "anomaly_score")
}

func TestModelTrainAndListEndpoints(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/models/train", map[string]interface{}{
		"type":   "threat-prediction",
		"org_id": "org-1",
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	trained := decodeBody(t, resp)
	assert.Equal(t, "training", trained["status"])
	require.NotEmpty(t, trained["id"])

	listResp, err := http.Get(ts.URL + "/api/v1/models?org_id=org-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, listResp.StatusCode)

	out := decodeBody(t, listResp)
	models, ok := out["models"].([]interface{})
	require.True(t, ok)
	assert.Len(t, models, 1)
}

func TestModelTrainedViaAPIBecomesReady(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/models/train", map[string]interface{}{
		"type":   "anomaly-detection",
		"org_id": "org-1",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	trained := decodeBody(t, resp)
	modelID := trained["id"]

	// The request context dies when the handler returns; training must
	// finish anyway and show up as ready on a later poll.
	require.Eventually(t, func() bool {
		listResp, err := http.Get(ts.URL + "/api/v1/models?org_id=org-1")
		if err != nil {
			return false
		}
		out := decodeBody(t, listResp)
		models, ok := out["models"].([]interface{})
		if !ok {
			return false
		}
		for _, raw := range models {
			m, ok := raw.(map[string]interface{})
			if ok && m["id"] == modelID && m["status"] == "ready" {
				return true
			}
		}
		return false
	}, time.Second, 20*time.Millisecond)
}

func TestThreatPredictEndpointWithoutModel(t *testing.T) {
	ts := newTestServer(t)

	resp := postJSON(t, ts.URL+"/api/v1/threats/predict", map[string]interface{}{
		"org_id": "org-1",
		"indicators": []map[string]interface{}{
			{"id": "i1", "type": "ip", "value": "10.0.0.1", "confidence": 0.9},
		},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeBody(t, resp)
	// No ready model yet, so predictions degrade to empty.
	assert.Empty(t, out["predictions"])
}

func TestMalformedBodyRejected(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/v1/text/extract", "application/json", bytes.NewReader([]byte("{not json")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSimilarItemsEndpoint(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/v1/similar?item_id=unknown&item_type=indicator")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeBody(t, resp)
	assert.Empty(t, out["results"])
}
