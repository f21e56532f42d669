// Command worker serves recommendation requests over NATS request/reply on
// the anirec.recommend subject. It runs the setup pipeline on boot, then
// answers JSON requests until interrupted.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/AniRecAI/anirec/engine/catalog"
	"github.com/AniRecAI/anirec/engine/domain"
	"github.com/AniRecAI/anirec/engine/embed"
	"github.com/AniRecAI/anirec/engine/recommend"
	"github.com/AniRecAI/anirec/engine/semantic"
	"github.com/AniRecAI/anirec/pkg/config"
	"github.com/AniRecAI/anirec/pkg/natsutil"
	"github.com/AniRecAI/anirec/pkg/ollama"
)

// RecommendSubject is the NATS subject this worker answers on.
const RecommendSubject = "anirec.recommend"

// RecommendRequest is the JSON request body.
type RecommendRequest struct {
	MALID    int64 `json:"mal_id"`
	Limit    int   `json:"limit"`
	SkipSelf bool  `json:"skip_self"`
}

// RecommendReply is the JSON reply body. Error is empty on success.
type RecommendReply struct {
	Results []domain.Recommendation `json:"results,omitempty"`
	Error   string                  `json:"error,omitempty"`
}

func main() {
	var (
		natsURL = flag.String("nats", nats.DefaultURL, "NATS server URL")
		cfgFile = flag.String("config", "", "path to TOML config file")
		rebuild = flag.Bool("rebuild", false, "force rebuild of embeddings and collection")
	)
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := config.Load(*cfgFile)
	if err != nil {
		logger.Error("config load failed", "err", err)
		os.Exit(1)
	}

	if err := run(cfg, *natsURL, *rebuild, logger); err != nil {
		logger.Error("worker exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, natsURL string, rebuild bool, logger *slog.Logger) error {
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
	if err := rec.Setup(ctx, rebuild); err != nil {
		return err
	}
	logger.Info("setup complete")

	nc, err := nats.Connect(natsURL)
	if err != nil {
		return err
	}
	defer nc.Drain()

	sub, err := natsutil.Serve(nc, RecommendSubject, func(ctx context.Context, req RecommendRequest) RecommendReply {
		results, err := rec.Recommend(ctx, req.MALID, req.Limit)
		if err != nil {
			if errors.Is(err, domain.ErrUnknownReference) {
				return RecommendReply{Error: "unknown reference id"}
			}
			logger.Error("recommend failed", "mal_id", req.MALID, "err", err)
			return RecommendReply{Error: "internal error"}
		}
		if req.SkipSelf {
			kept := results[:0]
			for _, r := range results {
				if r.MALID != req.MALID {
					kept = append(kept, r)
				}
			}
			results = kept
		}
		return RecommendReply{Results: results}
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	logger.Info("worker listening", "subject", RecommendSubject, "nats", natsURL)
	<-ctx.Done()
	logger.Info("shutdown signal received")
	return nil
}
