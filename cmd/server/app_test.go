package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/phrazzld/aiorch/internal/api"
	"github.com/phrazzld/aiorch/internal/config"
	"github.com/phrazzld/aiorch/internal/domain"
	"github.com/phrazzld/aiorch/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{Port: 8080, LogLevel: "error"},
		Auth: config.AuthConfig{
			JWTSecret:            "test-secret-that-is-long-enough-for-testing",
			TokenLifetimeMinutes: 60,
		},
		Queue: config.QueueConfig{MaxConcurrent: 2, MaxRetries: 1},
		Cache: config.CacheConfig{
			MaxSize:          100,
			TTL:              time.Hour,
			AcceptThreshold:  0.9,
			ConsumeThreshold: 0.95,
		},
		Monitor: config.MonitorConfig{
			MaxMetrics:              1000,
			Retention:               time.Hour,
			Window:                  time.Hour,
			SweepInterval:           time.Hour,
			ResponseTimeThresholdMs: 5000,
			ErrorRateThreshold:      0.1,
			CacheHitRateThreshold:   0.3,
			ExportInterval:          time.Hour,
		},
		Enrich: config.EnrichConfig{
			CacheTTL:      time.Minute,
			HistorySize:   5,
			LookupTimeout: time.Second,
		},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *application {
	t.Helper()
	app, err := newApplication(context.Background(), cfg, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(app.cleanup)
	return app
}

func bearer(t *testing.T, app *application, userID string) string {
	t.Helper()
	token, err := app.jwtService.GenerateToken(context.Background(), userID)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestNewApplicationRejectsBadAuthConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = "short"

	_, err := newApplication(context.Background(), cfg, logger.Discard())
	assert.Error(t, err)
}

func TestNewApplicationRejectsMissingCatalog(t *testing.T) {
	cfg := testConfig()
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "missing.yaml")

	_, err := newApplication(context.Background(), cfg, logger.Discard())
	assert.Error(t, err)
}

func TestNewApplicationSkipsGeminiWithoutKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
models:
  - name: local
    type: general
    provider: echo
    capabilities: [text, summarization]
    avg_latency_ms: 10
    quality_score: 0.9
  - name: remote
    type: general
    provider: gemini
    capabilities: [text]
    avg_latency_ms: 800
    quality_score: 0.95
`), 0o600))

	cfg := testConfig()
	cfg.Catalog.Path = path
	app := newTestApp(t, cfg)

	models := app.orchestrator.Registry().All()
	require.Len(t, models, 1)
	assert.Equal(t, "local", models[0].Name)
}

func TestRouterHealthIsPublic(t *testing.T) {
	app := newTestApp(t, testConfig())
	srv := httptest.NewServer(app.setupRouter())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	var body api.HealthResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body.Status)
}

func TestRouterProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t, testConfig())
	srv := httptest.NewServer(app.setupRouter())
	defer srv.Close()

	for _, path := range []string{"/api/models", "/api/models/health", "/api/metrics/report", "/api/queue/stats"} {
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestRouterSubmitTask(t *testing.T) {
	app := newTestApp(t, testConfig())
	srv := httptest.NewServer(app.setupRouter())
	defer srv.Close()

	body, err := json.Marshal(map[string]any{
		"type":  "summarization",
		"input": "the quarterly report shows revenue growth across every region",
	})
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/tasks", bytes.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, app, "user-1"))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var envelope domain.ResultEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, domain.TaskSummarization, envelope.Data.Kind)
	assert.Equal(t, "echo-writer", envelope.Metadata.ModelUsed)
	assert.NotEmpty(t, envelope.Data.Text)

	assert.EqualValues(t, 1, app.orchestrator.QueueStats().Completed)
}

func TestRouterSubmitTaskRejectsInvalidType(t *testing.T) {
	app := newTestApp(t, testConfig())
	srv := httptest.NewServer(app.setupRouter())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/tasks",
		bytes.NewReader([]byte(`{"type":"juggling","input":"x"}`)))
	require.NoError(t, err)
	req.Header.Set("Authorization", bearer(t, app, "user-1"))

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestStartHTTPServerStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = 0
	app := newTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.startHTTPServer(ctx, http.NotFoundHandler()) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
