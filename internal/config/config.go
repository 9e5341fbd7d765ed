package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino-ext/components/model/ollama"
	"github.com/cloudwego/eino/components/model"
	"github.com/ollama/ollama/api"
)

// Generation providers.
const (
	ProviderOllama = "ollama"
	ProviderArk    = "ark"
)

// Classifier providers.
const (
	ClassifierHTTP    = "http"
	ClassifierKeyword = "keyword"
)

// Config aggregates every runtime setting of the daemon.
type Config struct {
	Server     ServerConfig
	LLM        LLMConfig
	Classifier ClassifierConfig
	Emotes     EmoteConfig
	Transcript TranscriptConfig
	Log        LogConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	llm, err := loadLLMConfig()
	if err != nil {
		return nil, err
	}

	classifier, err := loadClassifierConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:     server,
		LLM:        llm,
		Classifier: classifier,
		Emotes:     EmoteConfig{ManifestPath: strings.TrimSpace(os.Getenv("AINA_EMOTE_MANIFEST"))},
		Transcript: TranscriptConfig{DSN: strings.TrimSpace(os.Getenv("AINA_TRANSCRIPT_DB"))},
		Log:        logCfg,
	}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// Allow passing ":8080" or "127.0.0.1:8080" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// LLMConfig describes the generation capability. The daemon defaults to a
// locally hosted Ollama server; Volcengine Ark is kept as a hosted
// alternative for installs without local inference hardware.
type LLMConfig struct {
	Provider      string
	SystemPrompt  string
	HistoryLimit  int
	Timeout       time.Duration
	Temperature   *float64
	TopP          *float64
	TopK          *int
	MaxTokens     *int
	Stream        bool
	OllamaBaseURL string
	OllamaModel   string
	ArkAPIKey     string
	ArkAccessKey  string
	ArkSecretKey  string
	ArkBaseURL    string
	ArkRegion     string
	ArkModel      string
}

// DefaultModel returns the model identifier sessions start with when the
// client does not pick one.
func (c LLMConfig) DefaultModel() string {
	if c.Provider == ProviderArk {
		return c.ArkModel
	}
	return c.OllamaModel
}

// NewChatModel creates a chat model instance for the given model identifier.
// The identifier comes from the session, never from ambient state, so a
// model change only applies to sessions created or reset afterwards.
func (c LLMConfig) NewChatModel(ctx context.Context, modelID string) (model.ChatModel, error) {
	switch c.Provider {
	case ProviderOllama:
		return c.newOllamaModel(ctx, modelID)
	case ProviderArk:
		return c.newArkModel(ctx, modelID)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", c.Provider)
	}
}

func (c LLMConfig) newOllamaModel(ctx context.Context, modelID string) (model.ChatModel, error) {
	if modelID == "" {
		return nil, fmt.Errorf("ollama model identifier is required (set OLLAMA_MODEL)")
	}

	options := &api.Options{}
	if c.Temperature != nil {
		options.Temperature = float32(*c.Temperature)
	}
	if c.TopP != nil {
		options.TopP = float32(*c.TopP)
	}
	if c.TopK != nil {
		options.TopK = *c.TopK
	}
	if c.MaxTokens != nil {
		options.NumPredict = *c.MaxTokens
	}

	return ollama.NewChatModel(ctx, &ollama.ChatModelConfig{
		BaseURL: c.OllamaBaseURL,
		Timeout: c.Timeout,
		Model:   modelID,
		Options: options,
	})
}

func (c LLMConfig) newArkModel(ctx context.Context, modelID string) (model.ChatModel, error) {
	if modelID == "" {
		return nil, fmt.Errorf("ark model identifier is required (set ARK_MODEL)")
	}
	if c.ArkAPIKey == "" && (c.ArkAccessKey == "" || c.ArkSecretKey == "") {
		return nil, fmt.Errorf("ark credentials missing: provide ARK_API_KEY or ARK_ACCESS_KEY + ARK_SECRET_KEY")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	return ark.NewChatModel(ctx, &ark.ChatModelConfig{
		BaseURL:     c.ArkBaseURL,
		Region:      c.ArkRegion,
		APIKey:      c.ArkAPIKey,
		AccessKey:   c.ArkAccessKey,
		SecretKey:   c.ArkSecretKey,
		Model:       modelID,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	})
}

func loadLLMConfig() (LLMConfig, error) {
	provider := strings.ToLower(getEnvOrDefault("AINA_LLM_PROVIDER", ProviderOllama))
	if provider != ProviderOllama && provider != ProviderArk {
		return LLMConfig{}, fmt.Errorf("invalid AINA_LLM_PROVIDER value %q", provider)
	}

	temperature, err := parseOptionalFloatEnv("AINA_TEMPERATURE")
	if err != nil {
		return LLMConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("AINA_TOP_P")
	if err != nil {
		return LLMConfig{}, err
	}

	topK, err := parseOptionalIntEnv("AINA_TOP_K")
	if err != nil {
		return LLMConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AINA_MAX_TOKENS")
	if err != nil {
		return LLMConfig{}, err
	}

	stream, err := parseBoolEnv("AINA_STREAM", true)
	if err != nil {
		return LLMConfig{}, err
	}

	historyLimit := 10
	if override, err := parseOptionalIntEnv("AINA_HISTORY_LIMIT"); err != nil {
		return LLMConfig{}, err
	} else if override != nil {
		if *override < 1 {
			historyLimit = 1
		} else {
			historyLimit = *override
		}
	}

	timeout, err := parseDurationEnv("AINA_GENERATE_TIMEOUT", 60*time.Second)
	if err != nil {
		return LLMConfig{}, err
	}

	return LLMConfig{
		Provider:      provider,
		SystemPrompt:  getEnvOrDefault("AINA_SYSTEM_PROMPT", defaultSystemPrompt),
		HistoryLimit:  historyLimit,
		Timeout:       timeout,
		Temperature:   temperature,
		TopP:          topP,
		TopK:          topK,
		MaxTokens:     maxTokens,
		Stream:        stream,
		OllamaBaseURL: getEnvOrDefault("OLLAMA_BASE_URL", "http://127.0.0.1:11434"),
		OllamaModel:   getEnvOrDefault("OLLAMA_MODEL", "tinyllama"),
		ArkAPIKey:     strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		ArkAccessKey:  strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		ArkSecretKey:  strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		ArkBaseURL:    getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		ArkRegion:     getEnvOrDefault("ARK_REGION", "cn-beijing"),
		ArkModel:      strings.TrimSpace(os.Getenv("ARK_MODEL")),
	}, nil
}

const defaultSystemPrompt = "You are AINA, a cheerful desktop companion. " +
	"Keep replies short, warm and conversational. Answer in the language the user writes in."

// ClassifierConfig describes the emotion classification capability.
type ClassifierConfig struct {
	Provider string
	URL      string
	Token    string
	Timeout  time.Duration
}

func loadClassifierConfig() (ClassifierConfig, error) {
	url := strings.TrimSpace(os.Getenv("AINA_CLASSIFIER_URL"))

	defaultProvider := ClassifierHTTP
	if url == "" {
		defaultProvider = ClassifierKeyword
	}
	provider := strings.ToLower(getEnvOrDefault("AINA_CLASSIFIER_PROVIDER", defaultProvider))

	switch provider {
	case ClassifierHTTP:
		if url == "" {
			return ClassifierConfig{}, fmt.Errorf("AINA_CLASSIFIER_URL is required for the http classifier")
		}
	case ClassifierKeyword:
	default:
		return ClassifierConfig{}, fmt.Errorf("invalid AINA_CLASSIFIER_PROVIDER value %q", provider)
	}

	timeout, err := parseDurationEnv("AINA_CLASSIFY_TIMEOUT", 10*time.Second)
	if err != nil {
		return ClassifierConfig{}, err
	}

	return ClassifierConfig{
		Provider: provider,
		URL:      url,
		Token:    strings.TrimSpace(os.Getenv("AINA_CLASSIFIER_TOKEN")),
		Timeout:  timeout,
	}, nil
}

// EmoteConfig points at an optional manifest replacing the built-in emotes.
type EmoteConfig struct {
	ManifestPath string
}

// TranscriptConfig enables the sqlite transcript archive when DSN is set.
type TranscriptConfig struct {
	DSN string
}

// Enabled reports whether turns should be archived.
func (c TranscriptConfig) Enabled() bool {
	return c.DSN != ""
}

// LogConfig controls the zap logger.
type LogConfig struct {
	Level       string
	Development bool
}

func loadLogConfig() (LogConfig, error) {
	dev, err := parseBoolEnv("AINA_LOG_DEV", false)
	if err != nil {
		return LogConfig{}, err
	}
	return LogConfig{
		Level:       strings.ToLower(getEnvOrDefault("AINA_LOG_LEVEL", "info")),
		Development: dev,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
