package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/Star2578/AINA/internal/config"
	"github.com/Star2578/AINA/internal/handler"
	"github.com/Star2578/AINA/internal/model/emote"
	"github.com/Star2578/AINA/internal/service/ai"
	chatservice "github.com/Star2578/AINA/internal/service/chat"
	"github.com/Star2578/AINA/internal/service/classify"
	"github.com/Star2578/AINA/internal/service/dispatch"
	"github.com/Star2578/AINA/internal/store"
	"github.com/Star2578/AINA/internal/surface"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: failed to load .env file: %v", err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	registry, err := buildRegistry(cfg.Emotes, logger)
	if err != nil {
		logger.Fatal("emote registry configuration error", zap.Error(err))
	}

	classifier, err := buildClassifier(cfg.Classifier, logger)
	if err != nil {
		logger.Fatal("classifier configuration error", zap.Error(err))
	}

	sessions := chatservice.NewService()
	generator := ai.NewService(cfg.LLM, logger)
	settings := config.NewSettings(cfg.LLM.DefaultModel())

	hub := surface.NewHub(logger)
	go hub.Run()

	opts := []dispatch.Option{
		dispatch.WithTimeouts(cfg.Classifier.Timeout, cfg.LLM.Timeout),
		dispatch.WithHistoryLimit(cfg.LLM.HistoryLimit),
		dispatch.WithPublisher(surface.NewPublisher(hub, logger)),
	}

	var transcripts *store.TranscriptStore
	if cfg.Transcript.Enabled() {
		transcripts, err = store.NewTranscriptStore(cfg.Transcript.DSN, logger)
		if err != nil {
			logger.Fatal("transcript store initialization failed", zap.Error(err))
		}
		defer transcripts.Close()
		opts = append(opts, dispatch.WithArchiver(transcripts))
		logger.Info("transcript archive enabled", zap.String("dsn", cfg.Transcript.DSN))
	}

	controller := dispatch.NewController(classifier, generator, sessions, registry, logger, opts...)

	deps := handler.Deps{
		Config:     cfg,
		Settings:   settings,
		Sessions:   sessions,
		Controller: controller,
		Registry:   registry,
		Hub:        hub,
		Logger:     logger,
	}
	if transcripts != nil {
		deps.Transcripts = transcripts
	}

	router := handler.NewRouter(deps)
	startServer(ctx, cfg.Server, router, logger)
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zapCfg := zap.NewProductionConfig()
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid AINA_LOG_LEVEL %q: %w", cfg.Level, err)
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

func buildRegistry(cfg config.EmoteConfig, logger *zap.Logger) (*emote.Registry, error) {
	entries := emote.Seed()
	if cfg.ManifestPath != "" {
		loaded, err := emote.LoadManifest(cfg.ManifestPath)
		if err != nil {
			return nil, err
		}
		entries = loaded
		logger.Info("emote manifest loaded", zap.String("path", cfg.ManifestPath))
	}
	return emote.NewRegistry(entries)
}

func buildClassifier(cfg config.ClassifierConfig, logger *zap.Logger) (classify.Classifier, error) {
	switch cfg.Provider {
	case config.ClassifierHTTP:
		var opts []classify.ClientOption
		if cfg.Token != "" {
			opts = append(opts, classify.WithToken(cfg.Token))
		}
		return classify.NewClient(cfg.URL, cfg.Timeout, logger, opts...)
	case config.ClassifierKeyword:
		logger.Warn("no inference endpoint configured, using the offline keyword classifier; " +
			"set AINA_CLASSIFIER_URL to enable the fine-tuned model")
		return classify.NewKeywordClassifier(), nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              serverCfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	logger.Info("AINA daemon listening", zap.String("addr", serverCfg.Addr))
	if err := runServer(ctx, srv); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
