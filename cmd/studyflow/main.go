package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/studyflow-ai/studyflow/internal/config"
	"github.com/studyflow-ai/studyflow/internal/db"
	dbRedis "github.com/studyflow-ai/studyflow/internal/db/redis"
	"github.com/studyflow-ai/studyflow/internal/domain"
	logpkg "github.com/studyflow-ai/studyflow/internal/logger"
	"github.com/studyflow-ai/studyflow/internal/metrics"
	"github.com/studyflow-ai/studyflow/internal/repository/docstore"
	"github.com/studyflow-ai/studyflow/internal/repository/embcache"
	"github.com/studyflow-ai/studyflow/internal/repository/knowstore"
	"github.com/studyflow-ai/studyflow/internal/repository/vectorindex"
	chiTransport "github.com/studyflow-ai/studyflow/internal/transport/chi"
	"github.com/studyflow-ai/studyflow/internal/transport/mockai"
	openaiTransport "github.com/studyflow-ai/studyflow/internal/transport/openai"
	embeddinguc "github.com/studyflow-ai/studyflow/internal/usecase/embedding"
	healthuc "github.com/studyflow-ai/studyflow/internal/usecase/health"
	knowledgeuc "github.com/studyflow-ai/studyflow/internal/usecase/knowledge"
	retrievaluc "github.com/studyflow-ai/studyflow/internal/usecase/retrieval"
	"github.com/studyflow-ai/studyflow/internal/version"
)

// embedder combines the single and batch vectorization contracts; every
// decorator in the chain implements both.
type embedder interface {
	domain.Embedder
	domain.BatchEmbedder
}

func main() {
	// Optional .env for local development; config does the real loading.
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting studyflow API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("generation_provider", cfg.Generation.Provider),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterGenerationMetrics()

	// Embedder chain — composition root
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.EmbedderConfig{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Timeout:    time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		Logger:     logger,
	})
	docEmbedder := buildEmbedder(baseEmbedder, cfg, cfg.Embedding.DocumentInstruction, store, logger)
	queryEmbedder := buildEmbedder(baseEmbedder, cfg, cfg.Embedding.QueryInstruction, store, logger)
	logger.Info("Embedders created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	generator := buildGenerator(cfg, logger)
	logger.Info("Generator created", zap.String("provider", generator.Name()))

	// Repositories (one store, three key families)
	indexRepo := vectorindex.New(store)
	docRepo := docstore.New(store)
	knowRepo := knowstore.New(store)

	// Use case services
	genTimeout := time.Duration(cfg.Generation.TimeoutSec) * time.Second
	retrievalSvc := retrievaluc.New(docRepo, indexRepo, docEmbedder, queryEmbedder, generator,
		retrievaluc.Options{
			ChunkSize:          cfg.Retrieval.ChunkSize,
			Overlap:            cfg.Retrieval.Overlap,
			TopK:               cfg.Retrieval.TopK,
			RelevanceThreshold: cfg.Retrieval.RelevanceThreshold,
			GenTimeout:         genTimeout,
		},
		logger,
	)
	knowledgeSvc := knowledgeuc.New(docRepo, knowRepo, generator,
		cfg.Retrieval.MaxExtractionChars, genTimeout, logger)

	var genChecker healthuc.ProviderChecker
	if hc, ok := generator.(healthuc.ProviderChecker); ok {
		genChecker = hc
	}
	healthSvc := healthuc.New(store, baseEmbedder, genChecker)

	server := chiTransport.NewServer(retrievalSvc, knowledgeSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	base *openaiTransport.Embedder,
	cfg config.Config,
	instruction string,
	store db.Store,
	logger *zap.Logger,
) embedder {
	// Cached
	var e domain.Embedder = base
	if store != nil {
		e = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (metrics + logging)
	instrumented := embeddinguc.NewInstrumentedEmbedder(
		e, cfg.Embedding.Provider, cfg.Embedding.Model, logger,
	)

	// Instruction prefix (outermost — cache key includes instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(instrumented, instruction)
	}

	return instrumented
}

// buildGenerator selects the text generation provider from config.
// DeepSeek and MiniMax both speak the OpenAI chat protocol; "mock" is the
// offline canned provider.
func buildGenerator(cfg config.Config, logger *zap.Logger) domain.Generator {
	if cfg.Generation.Provider == "mock" {
		return mockai.New()
	}

	provCfg := cfg.Generation.Providers[cfg.Generation.Provider]
	return openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:   provCfg.APIKey,
		BaseURL:  provCfg.BaseURL,
		Model:    provCfg.Model,
		Provider: cfg.Generation.Provider,
		Logger:   logger,
	})
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
