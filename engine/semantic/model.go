package semantic

// Neighbor is a single similarity hit from the vector index, scored under
// the collection's distance metric.
type Neighbor struct {
	MALID int64   `json:"mal_id"`
	Name  string  `json:"name"`
	Score float32 `json:"score"`
}

// Point is one stored unit: record id, its vector, and the payload the
// index keeps alongside it.
type Point struct {
	MALID  int64
	Vector []float32
	Name   string
}
