package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/paylens/paylens/internal/config"
	"github.com/paylens/paylens/internal/feature"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// stubModel implements model.Model for testing without a model artifact
type stubModel struct{}

func (stubModel) Predict(features []float64) (float64, error) { return 0.02, nil }
func (stubModel) FeatureNames() []string                      { return feature.DefaultSchema() }
func (stubModel) Version() string                             { return "test" }

// testConfig returns a minimal config for testing
func testConfig() *config.Config {
	return &config.Config{
		Port:           "0",
		Env:            "development",
		LogLevel:       "error",
		ModelPath:      "unused",
		BlockThreshold: 0.95,
		ScoreTimeout:   50 * time.Millisecond,
	}
}

// newTestServer creates a server with in-memory stores and a stub model
func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := New(testConfig(), WithModel(stubModel{}))
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	return s
}

// ---------------------------------------------------------------------------
// Health endpoint tests
// ---------------------------------------------------------------------------

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", resp["status"])
	}
}

func TestLivenessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/live", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}

func TestReadinessEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health/ready", nil)
	s.router.ServeHTTP(w, req)

	// Server hasn't called Run() so ready is false
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 (not ready), got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Route registration tests
// ---------------------------------------------------------------------------

func TestCoreRoutesRegistered(t *testing.T) {
	s := newTestServer(t)

	routes := s.router.Routes()
	expected := []string{
		"GET:/health",
		"GET:/health/live",
		"GET:/health/ready",
		"GET:/metrics",
		"GET:/ws",
		"POST:/v1/score",
		"POST:/v1/score/batch",
		"POST:/v1/transactions/:id/resolve",
		"GET:/v1/scores/recent",
		"GET:/v1/scores/:id",
		"GET:/v1/model/info",
		"GET:/v1/realtime/stats",
	}

	routeSet := make(map[string]bool)
	for _, route := range routes {
		routeSet[route.Method+":"+route.Path] = true
	}

	for _, e := range expected {
		if !routeSet[e] {
			t.Errorf("Core route %s not registered", e)
		}
	}
}

// ---------------------------------------------------------------------------
// Scoring through the full stack
// ---------------------------------------------------------------------------

func TestScoreEndToEnd(t *testing.T) {
	s := newTestServer(t)

	body := `{
		"transaction_id": "tx_srv_1",
		"timestamp": "2025-06-03T14:00:00Z",
		"user_id": "user_1",
		"merchant_id": "merch_1",
		"device_id": "dev_1",
		"ip_address": "10.0.0.1",
		"amount": 45.99,
		"currency": "USD",
		"country": "US"
	}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/score", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["decision"] != "APPROVE" {
		t.Errorf("Expected APPROVE from low-score stub model, got %v", resp["decision"])
	}
	if resp["transaction_id"] != "tx_srv_1" {
		t.Errorf("Expected transaction_id echoed back, got %v", resp["transaction_id"])
	}
}

func TestScoreRejectsMalformedBody(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/v1/score", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", w.Code)
	}
}

// ---------------------------------------------------------------------------
// Info endpoint
// ---------------------------------------------------------------------------

func TestInfoEndpoint(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}

	var resp map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}

	if resp["model_version"] != "test" {
		t.Errorf("Expected model_version 'test', got %v", resp["model_version"])
	}
}

// ---------------------------------------------------------------------------
// Headers and 404
// ---------------------------------------------------------------------------

func TestRequestIDHeader(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	s.router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("Expected X-Request-ID header")
	}
}

func TestNotFoundRoute(t *testing.T) {
	s := newTestServer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/v1/nonexistent", nil)
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", w.Code)
	}
}
