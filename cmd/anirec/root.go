package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/AniRecAI/anirec/engine/catalog"
	"github.com/AniRecAI/anirec/engine/embed"
	"github.com/AniRecAI/anirec/engine/recommend"
	"github.com/AniRecAI/anirec/engine/semantic"
	"github.com/AniRecAI/anirec/pkg/config"
	"github.com/AniRecAI/anirec/pkg/ollama"
)

var (
	cfgPath string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "anirec",
	Short:         "Anime similarity recommendations from synopsis embeddings",
	Long:          "anirec builds a vector index over anime synopsis embeddings and\nrecommends titles similar to a given MAL_ID.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app wires the engine components from configuration. Every subcommand
// builds one and owns its gateway session for the duration of the run.
type app struct {
	cfg     config.Config
	gateway *semantic.Gateway
	rec     *recommend.Recommender
}

func newApp() (*app, error) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	gateway := semantic.New(cfg.QdrantAddr, cfg.Collection, logger)
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
	return &app{cfg: cfg, gateway: gateway, rec: rec}, nil
}

func (a *app) close() {
	_ = a.gateway.Close()
}
