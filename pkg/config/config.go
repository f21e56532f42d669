// Package config centralizes engine settings: defaults first, then an
// optional TOML file, then environment variable overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

// Config holds every overridable setting of the recommendation engine.
type Config struct {
	DataPath       string `toml:"data_path"`
	EmbeddingsPath string `toml:"embeddings_path"`

	OllamaURL      string `toml:"ollama_url"`
	EmbeddingModel string `toml:"embedding_model"`
	EmbeddingDim   int    `toml:"embedding_dim"`

	MinSynopsisLength int    `toml:"min_synopsis_length"`
	ExcludePattern    string `toml:"exclude_pattern"`

	QdrantAddr     string `toml:"qdrant_addr"`
	Collection     string `toml:"collection"`
	DistanceMetric string `toml:"distance_metric"`

	BatchSize    int `toml:"batch_size"`
	DefaultLimit int `toml:"default_limit"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		DataPath:          "data/anime_with_synopsis.csv",
		EmbeddingsPath:    "data/anime_synopsis_embeddings.vec",
		OllamaURL:         "http://localhost:11434",
		EmbeddingModel:    "nomic-embed-text",
		EmbeddingDim:      768,
		MinSynopsisLength: 100,
		ExcludePattern:    "No synopsis information has been",
		QdrantAddr:        "localhost:6334",
		Collection:        "anime_synopsis_collection",
		DistanceMetric:    "Cosine",
		BatchSize:         100,
		DefaultLimit:      10,
	}
}

// Load builds the effective configuration: defaults, overlaid by the TOML
// file at path (if path is non-empty; the file must then exist), overlaid
// by environment variables.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.DataPath = envOr("ANIREC_DATA_PATH", c.DataPath)
	c.EmbeddingsPath = envOr("ANIREC_EMBEDDINGS_PATH", c.EmbeddingsPath)
	c.OllamaURL = envOr("ANIREC_OLLAMA_URL", c.OllamaURL)
	c.EmbeddingModel = envOr("ANIREC_EMBEDDING_MODEL", c.EmbeddingModel)
	c.EmbeddingDim = envOrInt("ANIREC_EMBEDDING_DIM", c.EmbeddingDim)
	c.MinSynopsisLength = envOrInt("ANIREC_MIN_SYNOPSIS_LENGTH", c.MinSynopsisLength)
	c.ExcludePattern = envOr("ANIREC_EXCLUDE_PATTERN", c.ExcludePattern)
	c.QdrantAddr = envOr("ANIREC_QDRANT_ADDR", c.QdrantAddr)
	c.Collection = envOr("ANIREC_COLLECTION", c.Collection)
	c.DistanceMetric = envOr("ANIREC_DISTANCE_METRIC", c.DistanceMetric)
	c.BatchSize = envOrInt("ANIREC_BATCH_SIZE", c.BatchSize)
	c.DefaultLimit = envOrInt("ANIREC_DEFAULT_LIMIT", c.DefaultLimit)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
