// Package recommend composes the catalog, embedding cache, and vector
// gateway into the two operations callers care about: a setup pass that
// builds the corpus and populates the index, and a similarity query that
// resolves a reference id to its nearest neighbors.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/AniRecAI/anirec/engine/catalog"
	"github.com/AniRecAI/anirec/engine/domain"
	"github.com/AniRecAI/anirec/engine/semantic"
	"github.com/AniRecAI/anirec/pkg/fn"
)

// CorpusBuilder produces the canonical record set.
type CorpusBuilder interface {
	Build() (*catalog.Corpus, error)
}

// EmbeddingSource yields one vector per corpus text, in corpus order.
type EmbeddingSource interface {
	Ensure(ctx context.Context, ids []int64, texts []string, forceRebuild bool) ([][]float32, error)
}

// VectorIndex abstracts the vector store gateway.
type VectorIndex interface {
	Connect(ctx context.Context) error
	EnsureCollection(ctx context.Context, dim int, metric string, forceRebuild bool) (bool, error)
	Ingest(ctx context.Context, vectors [][]float32, meta []domain.ItemMeta, batchSize int) error
	FetchVector(ctx context.Context, id int64) (semantic.Point, error)
	QueryNearest(ctx context.Context, vector []float32, limit int) ([]semantic.Neighbor, error)
}

// Options configures index shape and query defaults.
type Options struct {
	Dimension    int
	Metric       string
	BatchSize    int
	DefaultLimit int
}

// Recommender is the single owner of the corpus, embedding cache, and
// gateway session it composes. All operations are synchronous.
type Recommender struct {
	source     CorpusBuilder
	embeddings EmbeddingSource
	index      VectorIndex
	opts       Options
	logger     *slog.Logger

	corpus *catalog.Corpus
	ready  bool
}

// New creates a Recommender. Setup must succeed before Recommend or
// LookupInfo can be used.
func New(source CorpusBuilder, embeddings EmbeddingSource, index VectorIndex, opts Options, logger *slog.Logger) *Recommender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recommender{
		source:     source,
		embeddings: embeddings,
		index:      index,
		opts:       opts,
		logger:     logger,
	}
}

// Ready reports whether a Setup run has completed successfully.
func (r *Recommender) Ready() bool { return r.ready }

// Setup builds the corpus, ensures embeddings exist for it, and makes sure
// the collection is populated. Any component error aborts the run and
// leaves the recommender not ready; there is no partial-ready state.
//
// A freshly created collection (and any forced rebuild) is repopulated in
// full, so the collection is always all-or-nothing per setup run.
func (r *Recommender) Setup(ctx context.Context, forceRebuild bool) error {
	r.ready = false

	corpus, err := r.source.Build()
	if err != nil {
		return fmt.Errorf("recommend: setup: %w", err)
	}
	r.corpus = corpus
	r.logger.Info("corpus built", "records", corpus.Len())

	vectors, err := r.embeddings.Ensure(ctx, corpus.IDs(), corpus.Texts(), forceRebuild)
	if err != nil {
		return fmt.Errorf("recommend: setup: %w", err)
	}

	if err := r.index.Connect(ctx); err != nil {
		return fmt.Errorf("recommend: setup: %w", err)
	}
	created, err := r.index.EnsureCollection(ctx, r.opts.Dimension, r.opts.Metric, forceRebuild)
	if err != nil {
		return fmt.Errorf("recommend: setup: %w", err)
	}
	if created || forceRebuild {
		if err := r.index.Ingest(ctx, vectors, corpus.Meta(), r.opts.BatchSize); err != nil {
			return fmt.Errorf("recommend: setup: %w", err)
		}
	} else {
		r.logger.Info("collection reused, skipping ingestion")
	}

	r.ready = true
	return nil
}

// Recommend returns up to limit items most similar to the reference id,
// ordered by descending score (ties broken by ascending id). The reference
// item itself is included when the store returns it; callers wanting it
// excluded filter by id. A limit below 1 falls back to the configured
// default.
func (r *Recommender) Recommend(ctx context.Context, referenceID int64, limit int) ([]domain.Recommendation, error) {
	if !r.ready {
		return nil, fmt.Errorf("recommend: %w", domain.ErrNotReady)
	}
	if limit < 1 {
		limit = r.opts.DefaultLimit
	}
	if err := domain.ValidateLimit(limit); err != nil {
		return nil, err
	}

	point, err := r.index.FetchVector(ctx, referenceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("recommend: reference %d: %w", referenceID, domain.ErrUnknownReference)
		}
		return nil, fmt.Errorf("recommend: %w", err)
	}

	neighbors, err := r.index.QueryNearest(ctx, point.Vector, limit)
	if err != nil {
		return nil, fmt.Errorf("recommend: %w", err)
	}

	results := fn.Map(neighbors, func(n semantic.Neighbor) domain.Recommendation {
		return domain.Recommendation{MALID: n.MALID, Name: n.Name, Score: n.Score}
	})
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].MALID < results[j].MALID
	})
	return results, nil
}

// LookupInfo returns the canonical record for id from the in-memory corpus,
// not the vector store.
func (r *Recommender) LookupInfo(id int64) (domain.Anime, error) {
	if r.corpus == nil {
		return domain.Anime{}, fmt.Errorf("recommend: %w", domain.ErrNotReady)
	}
	a, ok := r.corpus.Lookup(id)
	if !ok {
		return domain.Anime{}, fmt.Errorf("recommend: anime %d: %w", id, domain.ErrNotFound)
	}
	return a, nil
}
