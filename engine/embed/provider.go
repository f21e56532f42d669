// Package embed turns the ordered corpus texts into ordered fixed-dimension
// vectors and persists them so later runs skip regeneration. The embedding
// model itself is opaque: any Provider that maps a text batch to
// index-aligned vectors of a fixed dimension will do.
package embed

import "context"

// Provider is the embedding backend boundary.
type Provider interface {
	// EmbedBatch returns one vector per input text, index-aligned, each of
	// Dimension() length.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimension is the fixed output vector length of the model.
	Dimension() int
}
