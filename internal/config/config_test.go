package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so tests see pure defaults
// regardless of the developer's shell.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "AINA_LLM_PROVIDER", "AINA_SYSTEM_PROMPT", "AINA_HISTORY_LIMIT",
		"AINA_GENERATE_TIMEOUT", "AINA_TEMPERATURE", "AINA_TOP_P", "AINA_TOP_K",
		"AINA_MAX_TOKENS", "AINA_STREAM", "OLLAMA_BASE_URL", "OLLAMA_MODEL",
		"AINA_CLASSIFIER_PROVIDER", "AINA_CLASSIFIER_URL", "AINA_CLASSIFIER_TOKEN",
		"AINA_CLASSIFY_TIMEOUT", "AINA_EMOTE_MANIFEST", "AINA_TRANSCRIPT_DB",
		"AINA_LOG_LEVEL", "AINA_LOG_DEV",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, ":8080", cfg.Server.Addr)
	require.Equal(t, ProviderOllama, cfg.LLM.Provider)
	require.Equal(t, "tinyllama", cfg.LLM.DefaultModel())
	require.Equal(t, 10, cfg.LLM.HistoryLimit)
	require.True(t, cfg.LLM.Stream)
	require.Equal(t, 60*time.Second, cfg.LLM.Timeout)
	require.Equal(t, ClassifierKeyword, cfg.Classifier.Provider)
	require.False(t, cfg.Transcript.Enabled())
}

func TestLoadPortForms(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9000", cfg.Server.Addr)

	t.Setenv("PORT", "127.0.0.1:9000")
	cfg, err = Load()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
}

func TestLoadClassifierURLImpliesHTTP(t *testing.T) {
	clearEnv(t)
	t.Setenv("AINA_CLASSIFIER_URL", "http://127.0.0.1:5000/classify")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ClassifierHTTP, cfg.Classifier.Provider)
	require.Equal(t, "http://127.0.0.1:5000/classify", cfg.Classifier.URL)
}

func TestLoadHTTPClassifierRequiresURL(t *testing.T) {
	clearEnv(t)
	t.Setenv("AINA_CLASSIFIER_PROVIDER", "http")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	clearEnv(t)
	t.Setenv("AINA_LLM_PROVIDER", "openai")
	_, err := Load()
	require.Error(t, err)
}

func TestLoadHistoryLimitFloor(t *testing.T) {
	clearEnv(t)
	t.Setenv("AINA_HISTORY_LIMIT", "0")
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 1, cfg.LLM.HistoryLimit)
}

func TestSettingsModelSwap(t *testing.T) {
	s := NewSettings("tinyllama")
	require.Equal(t, "tinyllama", s.Model())

	require.NoError(t, s.SetModel("llama3"))
	require.Equal(t, "llama3", s.Model())

	require.ErrorIs(t, s.SetModel("  "), ErrEmptyModel)
	require.Equal(t, "llama3", s.Model())
}
