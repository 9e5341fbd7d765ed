package system

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Star2578/AINA/internal/config"
)

func setupRouter(t *testing.T) (*chi.Mux, *config.Settings) {
	t.Helper()

	cfg := &config.Config{
		LLM: config.LLMConfig{
			Provider:     config.ProviderOllama,
			HistoryLimit: 10,
			Stream:       true,
			OllamaModel:  "tinyllama",
		},
		Classifier: config.ClassifierConfig{Provider: config.ClassifierKeyword},
	}
	settings := config.NewSettings("tinyllama")

	r := chi.NewRouter()
	New(cfg, settings, zap.NewNop()).RegisterRoutes(r)
	return r, settings
}

func TestGetConfigSnapshot(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/config", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	require.Equal(t, "ollama", body["provider"])
	require.Equal(t, "tinyllama", body["model"])
	require.Equal(t, "keyword", body["classifierProvider"])
}

func TestSetModelAppliesToFutureSessions(t *testing.T) {
	r, settings := setupRouter(t)

	payload, _ := json.Marshal(map[string]string{"model": "qwen2.5"})
	req := httptest.NewRequest(http.MethodPut, "/config/model", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "qwen2.5", settings.Model())
}

func TestSetModelRejectsEmpty(t *testing.T) {
	r, settings := setupRouter(t)

	payload, _ := json.Marshal(map[string]string{"model": ""})
	req := httptest.NewRequest(http.MethodPut, "/config/model", bytes.NewReader(payload))
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	require.Equal(t, "tinyllama", settings.Model())
}

func TestHealthz(t *testing.T) {
	r, _ := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
}
