package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for the pipeline. Components wrap these with context via
// fmt.Errorf("...: %w", ...) so callers can branch with errors.Is.
var (
	// ErrDataUnavailable means the raw catalog source could not be read.
	ErrDataUnavailable = errors.New("catalog data unavailable")
	// ErrMissingColumn means a required column is absent from the source.
	ErrMissingColumn = errors.New("required column missing")
	// ErrEmbedderUnavailable means the embedding backend could not be
	// invoked. Fatal to setup, never retried by the engine.
	ErrEmbedderUnavailable = errors.New("embedding backend unavailable")
	// ErrStoreUnreachable means the vector store session could not be
	// established or a call failed at the transport level.
	ErrStoreUnreachable = errors.New("vector store unreachable")
	// ErrIngestFailed means a batch upsert failed mid-run. Points ingested
	// before the failing chunk are not rolled back; re-running setup with a
	// forced rebuild is the recovery path.
	ErrIngestFailed = errors.New("ingest failed")
	// ErrNotFound reports an id absent from the in-memory catalog.
	ErrNotFound = errors.New("not found")
	// ErrNotReady means Recommend or LookupInfo was called before a
	// successful Setup.
	ErrNotReady = errors.New("recommender not ready")
	// ErrUnknownReference means the reference id is not present in the
	// vector index. Expected and user-facing, not a system fault.
	ErrUnknownReference = errors.New("unknown reference id")
	// ErrInvalidLimit rejects result limits below 1.
	ErrInvalidLimit = errors.New("limit must be >= 1")
)

// IngestError reports which chunk of a batched ingestion failed, so a
// caller knows the ingested prefix ends at Chunk-1.
type IngestError struct {
	Chunk int
	Cause error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest: chunk %d: %v", e.Chunk, e.Cause)
}

func (e *IngestError) Unwrap() []error { return []error{ErrIngestFailed, e.Cause} }
