// Package main implements the anirec HTTP API server: it runs the setup
// pipeline on boot and serves similarity recommendations and catalog
// lookups over JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/AniRecAI/anirec/engine/catalog"
	"github.com/AniRecAI/anirec/engine/domain"
	"github.com/AniRecAI/anirec/engine/embed"
	"github.com/AniRecAI/anirec/engine/recommend"
	"github.com/AniRecAI/anirec/engine/semantic"
	"github.com/AniRecAI/anirec/pkg/config"
	"github.com/AniRecAI/anirec/pkg/metrics"
	"github.com/AniRecAI/anirec/pkg/mid"
	"github.com/AniRecAI/anirec/pkg/ollama"
	"github.com/AniRecAI/anirec/pkg/resilience"
)

var met = metrics.New()

var (
	mRecommends   = met.Counter("anirec_api_recommends_total", "Total recommendation requests")
	mUnknownRefs  = met.Counter("anirec_api_unknown_refs_total", "Requests for ids absent from the index")
	mRecommendDur = met.Histogram("anirec_api_recommend_duration_seconds", "Recommendation latency", nil)
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(os.Getenv("ANIREC_CONFIG"))
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gateway := semantic.New(cfg.QdrantAddr, cfg.Collection, logger)
	defer gateway.Close()

	rec := recommend.New(
		&catalog.Loader{
			Path:           cfg.DataPath,
			MinSynopsisLen: cfg.MinSynopsisLength,
			ExcludePattern: cfg.ExcludePattern,
			Logger:         logger,
		},
		&embed.Cache{
			Path:     cfg.EmbeddingsPath,
			Provider: ollama.New(cfg.OllamaURL, cfg.EmbeddingModel, cfg.EmbeddingDim),
			Logger:   logger,
		},
		gateway,
		recommend.Options{
			Dimension:    cfg.EmbeddingDim,
			Metric:       cfg.DistanceMetric,
			BatchSize:    cfg.BatchSize,
			DefaultLimit: cfg.DefaultLimit,
		},
		logger,
	)

	logger.Info("running setup", "collection", cfg.Collection)
	if err := rec.Setup(ctx, envBool("ANIREC_FORCE_REBUILD")); err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	logger.Info("setup complete")

	breaker := resilience.NewBreaker(resilience.DefaultBreakerOpts)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("GET /api/recommendations/{id}", handleRecommend(rec, breaker, logger))
	mux.HandleFunc("GET /api/anime/{id}", handleInfo(rec))
	mux.Handle("GET /metrics", met.Handler())

	handler := mid.Chain(mux,
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(envOr("CORS_ORIGIN", "*")),
		mid.RateLimit(50, 100),
		mid.OTel("anirec-api"),
	)

	srv := &http.Server{
		Addr:         ":" + envOr("PORT", "8080"),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// RecommendResponse is the JSON body for GET /api/recommendations/{id}.
type RecommendResponse struct {
	ReferenceID int64                   `json:"reference_id"`
	Results     []domain.Recommendation `json:"results"`
}

func handleRecommend(rec *recommend.Recommender, breaker *resilience.Breaker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			limit, err = strconv.Atoi(v)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
		}
		skipSelf := r.URL.Query().Get("skip_self") == "true"

		mRecommends.Inc()
		start := time.Now()

		// Expected user-facing errors (unknown id, bad limit) must not count
		// as breaker failures; only system faults do.
		var results []domain.Recommendation
		var userErr error
		err = breaker.Call(r.Context(), func(ctx context.Context) error {
			var callErr error
			results, callErr = rec.Recommend(ctx, id, limit)
			if errors.Is(callErr, domain.ErrUnknownReference) || errors.Is(callErr, domain.ErrInvalidLimit) {
				userErr = callErr
				return nil
			}
			return callErr
		})
		if err == nil {
			err = userErr
		}
		mRecommendDur.Since(start)

		switch {
		case err == nil:
		case errors.Is(err, domain.ErrUnknownReference):
			mUnknownRefs.Inc()
			writeError(w, http.StatusNotFound, fmt.Sprintf("id %d is not in the index", id))
			return
		case errors.Is(err, domain.ErrInvalidLimit):
			writeError(w, http.StatusBadRequest, "limit must be >= 1")
			return
		case errors.Is(err, resilience.ErrCircuitOpen):
			writeError(w, http.StatusServiceUnavailable, "temporarily unavailable")
			return
		default:
			logger.Error("recommend failed", "id", id, "err", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if skipSelf {
			filtered := results[:0]
			for _, rr := range results {
				if rr.MALID != id {
					filtered = append(filtered, rr)
				}
			}
			results = filtered
		}
		writeJSON(w, http.StatusOK, RecommendResponse{ReferenceID: id, Results: results})
	}
}

func handleInfo(rec *recommend.Recommender) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		info, err := rec.LookupInfo(id)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeError(w, http.StatusNotFound, fmt.Sprintf("anime %d not found", id))
				return
			}
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeJSON(w, http.StatusOK, info)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	return os.Getenv(key) == "true"
}
