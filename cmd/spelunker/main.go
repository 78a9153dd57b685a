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
	"go.uber.org/zap"

	"github.com/woeplanet/woeplanet-www-spelunker/internal/cache"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/config"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/es"
	logpkg "github.com/woeplanet/woeplanet-www-spelunker/internal/logger"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/metrics"
	placerepo "github.com/woeplanet/woeplanet-www-spelunker/internal/repository/place"
	placetyperepo "github.com/woeplanet/woeplanet-www-spelunker/internal/repository/placetype"
	chiTransport "github.com/woeplanet/woeplanet-www-spelunker/internal/transport/chi"
	healthuc "github.com/woeplanet/woeplanet-www-spelunker/internal/usecase/health"
	inflateuc "github.com/woeplanet/woeplanet-www-spelunker/internal/usecase/inflate"
	placeuc "github.com/woeplanet/woeplanet-www-spelunker/internal/usecase/place"
	searchuc "github.com/woeplanet/woeplanet-www-spelunker/internal/usecase/search"
	"github.com/woeplanet/woeplanet-www-spelunker/internal/version"
)

func main() {
	// Load configuration based on ENV
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

	logger.Info("Starting spelunker server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("engine_addrs", cfg.Engine.Addrs),
		zap.String("doc_index", cfg.Engine.DocIndex),
		zap.String("placetype_index", cfg.Engine.PlacetypeIndex),
	)

	// Register engine metrics explicitly (no init())
	metrics.RegisterEngineMetrics()

	// Engine client, wrapped with query metrics
	client, err := es.NewClient(es.Config{
		Addrs:      cfg.Engine.Addrs,
		Username:   cfg.Engine.Username,
		Password:   cfg.Engine.Password,
		Timeout:    time.Duration(cfg.Engine.TimeoutSec) * time.Second,
		MaxRetries: cfg.Engine.MaxRetries,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create engine client", zap.Error(err))
	}
	engine := es.NewInstrumented(client)

	// Response cache is optional: no addresses, no cache.
	var responseCache *cache.Store
	if len(cfg.Cache.Addrs) > 0 {
		responseCache, err = cache.New(cache.Config{
			Addrs:    cfg.Cache.Addrs,
			Username: cfg.Cache.Username,
			Password: cfg.Cache.Password,
			DB:       cfg.Cache.DB,
			TTL:      time.Duration(cfg.Cache.TTLSec) * time.Second,
		})
		if err != nil {
			logger.Fatal("Failed to create response cache", zap.Error(err))
		}
		defer responseCache.Close()
		logger.Info("Response cache enabled",
			zap.Strings("cache_addrs", cfg.Cache.Addrs),
			zap.Int("ttl_sec", cfg.Cache.TTLSec),
		)
	}

	// Repositories: one per logical index
	placeRepo := placerepo.New(engine, cfg.Engine.DocIndex, logger)
	placetypeRepo := placetyperepo.New(engine, cfg.Engine.PlacetypeIndex, logger)

	// Use case services
	searchSvc := searchuc.New(placeRepo, placetypeRepo, logger).
		WithPagination(cfg.Search.PerPageMax)
	placeSvc := placeuc.New(placeRepo, placetypeRepo, logger)
	inflateSvc := inflateuc.New(placeRepo, placetypeRepo, logger).
		WithConcurrency(cfg.Search.InflateConcurrency)

	// Pass nil interface (not typed nil pointer!) if the cache is not
	// configured. Go gotcha: (*cache.Store)(nil) wrapped in CachePinger != nil.
	var cachePinger healthuc.CachePinger
	if responseCache != nil {
		cachePinger = responseCache
	}
	healthSvc := healthuc.New(engine, cachePinger)

	// Chi server
	server := chiTransport.NewServer(
		searchSvc, placeSvc, inflateSvc, healthSvc, placetypeRepo, logger,
	).WithDefaults(cfg.Search.NearbyRadius, cfg.Search.PerPage)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	if responseCache != nil {
		r.Use(cache.Middleware(responseCache, logger))
	}
	server.Register(r)

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
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
