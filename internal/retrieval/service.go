// Package retrieval builds the threat-intelligence context for a run:
// sample the normalized log, embed it, populate a vector index with the
// most relevant knowledge documents, and search that index for snippets.
// Retrieval is best-effort throughout; any collaborator failure yields an
// empty context.
package retrieval

import "context"

// Point is one indexed document: a random identifier, its embedding, and
// the snippet text as payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]string
}

// Hit is one search result; only the payload matters to callers.
type Hit struct {
	Payload map[string]string
}

// SearchService is the vector-index collaborator.
type SearchService interface {
	ListCollections(ctx context.Context) ([]string, error)
	// EnsureCollection creates the collection with cosine distance if it
	// does not already exist.
	EnsureCollection(ctx context.Context, name string, vectorSize int) error
	Upsert(ctx context.Context, collection string, points []Point) error
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]Hit, error)
}
