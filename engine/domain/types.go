// Package domain defines the core catalog types and the error taxonomy
// shared across the recommendation engine. It is the single vocabulary the
// catalog, embedding cache, vector gateway, and orchestrator agree on.
package domain

// Anime is one canonical catalog record, built once per pipeline run from
// the raw CSV and immutable afterwards.
type Anime struct {
	MALID          int64  `json:"mal_id"`
	Name           string `json:"name"`
	Score          string `json:"score"`
	Genres         string `json:"genres"`
	Synopsis       string `json:"synopsis"`
	SynopsisLength int    `json:"synopsis_length"`
}

// ItemMeta is the payload stored alongside each vector in the index.
type ItemMeta struct {
	MALID int64  `json:"mal_id"`
	Name  string `json:"name"`
}

// Recommendation is one ranked similarity hit returned to callers.
// Score is whatever the collection's distance metric yields; for cosine,
// higher means more similar.
type Recommendation struct {
	MALID int64   `json:"mal_id"`
	Name  string  `json:"name"`
	Score float32 `json:"score"`
}
